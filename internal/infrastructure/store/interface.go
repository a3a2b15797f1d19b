package store

import (
	"context"

	"github.com/meditationastro/medinow-sub000/internal/domain/order"
)

// UpdateFunc mutates a loaded order inside the store's transaction. A
// returned StatusChange is appended to the audit trail. Returning an error
// aborts the update and leaves the stored order untouched.
type UpdateFunc func(o *order.Order) (*order.StatusChange, error)

// OrderStore persists order aggregates. Every method that writes treats the
// order, its items and its status history as one unit.
type OrderStore interface {
	// Create inserts the order and all of its items atomically.
	Create(ctx context.Context, o *order.Order) error

	// Get loads an order with its items. Unknown ids return order.ErrOrderNotFound.
	Get(ctx context.Context, id string) (*order.Order, error)

	// List returns orders newest first, each with its items.
	List(ctx context.Context, f order.Filter) ([]order.Order, error)

	// Stats aggregates counts and revenue over all orders.
	Stats(ctx context.Context) (order.Stats, error)

	// Update locks the order row, applies fn and writes the result.
	Update(ctx context.Context, id string, fn UpdateFunc) (*order.Order, error)

	// History returns the status audit trail, oldest first.
	History(ctx context.Context, id string) ([]order.StatusChange, error)

	// Delete removes the order together with its items and history.
	Delete(ctx context.Context, id string) error
}
