package pending

import "context"

// Store is the ordered, durable holding area for sales awaiting upload.
type Store interface {
	// Append adds a sale to the end of the queue.
	// Returns ErrDuplicateQueuedSale if the id is already queued.
	Append(ctx context.Context, sale QueuedSale) error

	// Remove deletes the entry with the given id. Removing an absent id is not an error.
	Remove(ctx context.Context, id string) error

	// List returns every queued sale in insertion order. The result is a
	// snapshot; mutating it does not affect the store.
	List(ctx context.Context) ([]QueuedSale, error)

	// Count returns the number of queued sales.
	Count(ctx context.Context) (int, error)
}
