package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	infraRedis "github.com/cobasjano/JC-sistema-sub001/internal/infrastructure/redis"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// KeyLock serializes requests that share an Idempotency-Key so two concurrent
// deliveries of the same sale cannot both run. The loser gets 409 with code
// request_in_progress and is expected to retry.
func KeyLock(client redis.UniversalClient, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := scopedKey(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			lock := infraRedis.NewDistributedLock(client, "idem:"+key, ttl)
			ok, err := lock.Acquire(r.Context())
			if err != nil {
				log.Ctx(r.Context()).Error().Err(err).Msg("key lock unavailable")
				writeLockError(w, http.StatusServiceUnavailable, "lock service unavailable", "lock_unavailable")
				return
			}
			if !ok {
				writeLockError(w, http.StatusConflict, "request with this idempotency key is in progress", "request_in_progress")
				return
			}
			stop := keepAlive(r.Context(), lock, ttl)
			defer func() {
				stop()
				if err := lock.Release(r.Context()); err != nil {
					log.Ctx(r.Context()).Warn().Err(err).Msg("key lock release failed")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// keepAlive extends the lock every ttl/2 until the returned function is
// called, so a request outliving ttl keeps its key.
func keepAlive(ctx context.Context, lock *infraRedis.DistributedLock, ttl time.Duration) (stop func()) {
	if ttl <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(ttl / 2)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := lock.Extend(ctx, ttl); err != nil {
					log.Ctx(ctx).Warn().Err(err).Msg("key lock extend failed")
					return
				}
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}

func writeLockError(w http.ResponseWriter, status int, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": msg,
		"code":  code,
	})
}
