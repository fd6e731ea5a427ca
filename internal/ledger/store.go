package ledger

import (
	"context"

	"github.com/jcmexdev/stock-ledger/internal/ledger/domain"
)

// Store is the port (interface) for the ledger's durable state.
// The ledger depends on this abstraction, not on SQLite directly, so the
// implementation can be swapped for Postgres, in-memory (tests), etc.
//
// The ledger serializes all mutations of one product before calling Apply,
// so implementations only need to make the two-row write atomic — they never
// see concurrent writers for the same product.
type Store interface {
	// GetProduct returns the stock record for productID.
	// Returns domain.ErrProductNotFound if the product is unknown.
	GetProduct(ctx context.Context, productID string) (domain.Product, error)

	// PutProduct inserts or replaces a product row on its own.
	// Used for seeding and stock adjustments, not by reservation flows.
	PutProduct(ctx context.Context, p domain.Product) error

	// GetReservation returns the reservation for (holderID, productID).
	// The bool is false when no record exists for the key.
	GetReservation(ctx context.Context, holderID, productID string) (domain.Reservation, bool, error)

	// Apply writes the product row and the reservation row as a single
	// atomic unit. Either both land or neither does — a crash mid-operation
	// must not leave the counters and the reservation disagreeing.
	Apply(ctx context.Context, p domain.Product, r domain.Reservation) error
}
