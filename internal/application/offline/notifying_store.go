package offline

import (
	"context"

	"github.com/cobasjano/JC-sistema-sub001/internal/domain/pending"
)

// NotifyingStore decorates a pending.Store and publishes queue events after
// each successful mutation.
type NotifyingStore struct {
	pending.Store
	bus *Bus
}

var _ pending.Store = (*NotifyingStore)(nil)

func NewNotifyingStore(store pending.Store, bus *Bus) *NotifyingStore {
	return &NotifyingStore{Store: store, bus: bus}
}

func (s *NotifyingStore) Append(ctx context.Context, sale pending.QueuedSale) error {
	if err := s.Store.Append(ctx, sale); err != nil {
		return err
	}
	s.bus.Publish(Event{Kind: EventSaleQueued, SaleID: sale.ID})
	return nil
}

func (s *NotifyingStore) Remove(ctx context.Context, id string) error {
	if err := s.Store.Remove(ctx, id); err != nil {
		return err
	}
	s.bus.Publish(Event{Kind: EventSaleRemoved, SaleID: id})
	return nil
}
