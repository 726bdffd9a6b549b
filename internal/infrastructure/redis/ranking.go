package redis

import (
	"context"
	"fmt"

	"github.com/cobasjano/JC-sistema-sub001/internal/application/report"
	"github.com/redis/go-redis/v9"
)

// Ranking keeps per-tenant product sales in a sorted set.
type Ranking struct {
	client redis.UniversalClient
}

var _ report.Ranking = (*Ranking)(nil)

func NewRanking(client redis.UniversalClient) *Ranking {
	return &Ranking{client: client}
}

func rankingKey(tenantID string) string {
	return fmt.Sprintf("ranking:%s:products", tenantID)
}

func (r *Ranking) Increment(ctx context.Context, tenantID, productID string, quantity float64) error {
	if err := r.client.ZIncrBy(ctx, rankingKey(tenantID), quantity, productID).Err(); err != nil {
		return fmt.Errorf("increment ranking: %w", err)
	}
	return nil
}

func (r *Ranking) Top(ctx context.Context, tenantID string, limit int) ([]report.ProductRank, error) {
	if limit <= 0 {
		return nil, nil
	}
	zs, err := r.client.ZRevRangeWithScores(ctx, rankingKey(tenantID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read ranking: %w", err)
	}
	out := make([]report.ProductRank, 0, len(zs))
	for _, z := range zs {
		id, _ := z.Member.(string)
		out = append(out, report.ProductRank{ProductID: id, Quantity: z.Score})
	}
	return out, nil
}
