// Package ledger implements the stock reservation ledger: per-product
// available/reserved counters plus the reservation records held against them.
//
// Concurrency model: every mutation of one product runs inside that
// product's critical section (a keyed mutex), so concurrent reserves can
// never jointly oversell. Operations on different products never block each
// other, and no external I/O happens while a product lock is held except the
// store write itself.
//
// Idempotency: Release, Finalize and Unsell detect retried calls from the
// reservation's current state and last transition quantity, not from request
// IDs — callers retry after timeouts and must be able to do so safely.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jcmexdev/stock-ledger/internal/ledger/domain"
)

// Ledger is the single source of truth for stock and reservations.
// Safe for concurrent use.
type Ledger struct {
	store Store
	now   func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(store Store) *Ledger {
	return &Ledger{
		store: store,
		now:   time.Now,
		locks: make(map[string]*sync.Mutex),
	}
}

// WithClock overrides the timestamp source. Intended for tests.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// lockProduct enters the product's critical section and returns the unlock
// function. Lock entries are never removed; the map grows with the catalog,
// not with traffic.
func (l *Ledger) lockProduct(productID string) func() {
	l.mu.Lock()
	lock, ok := l.locks[productID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[productID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// Reserve places (or grows) a hold of qty units for holderID.
//
// The check against Available and the counter/reservation update happen in a
// single indivisible step, so two concurrent reserves whose combined
// quantity exceeds Available can never both succeed. On
// domain.ErrInsufficientStock nothing is changed.
func (l *Ledger) Reserve(ctx context.Context, productID, holderID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("reserve %d of %s: %w", qty, productID, domain.ErrInvalidQuantity)
	}

	defer l.lockProduct(productID)()

	p, err := l.store.GetProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("reserve %s for %s: %w", productID, holderID, err)
	}

	if qty > p.Available() {
		return fmt.Errorf("reserve %d of %s (available %d): %w",
			qty, productID, p.Available(), domain.ErrInsufficientStock)
	}

	r, found, err := l.store.GetReservation(ctx, holderID, productID)
	if err != nil {
		return fmt.Errorf("reserve %s for %s: %w", productID, holderID, err)
	}

	now := l.now()
	if found && r.State == domain.StateActive {
		// Repeated reserve for the same holder/product grows the existing
		// hold instead of creating a duplicate record.
		r.Quantity += qty
		r.LastTransitionAt = now
	} else {
		// No record, or only a terminal one: start a fresh hold.
		r = domain.Reservation{
			HolderID:         holderID,
			ProductID:        productID,
			Quantity:         qty,
			State:            domain.StateActive,
			CreatedAt:        now,
			LastTransitionAt: now,
		}
	}
	p.Reserved += qty

	if err := l.store.Apply(ctx, p, r); err != nil {
		return fmt.Errorf("reserve %s for %s: %w", productID, holderID, err)
	}
	return nil
}

// Release cancels qty units of holderID's pending hold, returning them to
// availability. Releasing more than is held fails with domain.ErrOverRelease
// and changes nothing — the ledger never clamps silently.
//
// A retried full release (reservation already RELEASED with the same
// quantity) returns nil without touching the counters.
func (l *Ledger) Release(ctx context.Context, productID, holderID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("release %d of %s: %w", qty, productID, domain.ErrInvalidQuantity)
	}

	defer l.lockProduct(productID)()

	r, found, err := l.store.GetReservation(ctx, holderID, productID)
	if err != nil {
		return fmt.Errorf("release %s for %s: %w", productID, holderID, err)
	}
	if !found {
		return fmt.Errorf("release %s for %s: %w", productID, holderID, domain.ErrNoSuchReservation)
	}

	if r.State == domain.StateReleased && r.Quantity == qty {
		return nil // duplicate delivery of a completed release
	}
	if r.State != domain.StateActive {
		return fmt.Errorf("release %s for %s (state %s): %w",
			productID, holderID, r.State, domain.ErrNoSuchReservation)
	}
	if qty > r.Quantity {
		return fmt.Errorf("release %d of %s (held %d): %w",
			qty, productID, r.Quantity, domain.ErrOverRelease)
	}

	p, err := l.store.GetProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("release %s for %s: %w", productID, holderID, err)
	}

	p.Reserved -= qty
	r.Quantity -= qty
	r.LastTransitionAt = l.now()
	if r.Quantity == 0 {
		// Keep the released amount on the terminal record so a retried
		// Release(qty) can be recognised above.
		r.Quantity = qty
		r.State = domain.StateReleased
	}

	if err := l.store.Apply(ctx, p, r); err != nil {
		return fmt.Errorf("release %s for %s: %w", productID, holderID, err)
	}
	return nil
}

// Finalize converts holderID's hold into a permanent sale. The hold must be
// ACTIVE with exactly qty units (finalization is all-or-nothing per line;
// partial amounts fail with domain.ErrQuantityMismatch and change nothing).
//
// TotalStock and Reserved both drop by qty, so Available is unaffected: the
// stock left the system, it did not return to the pool.
func (l *Ledger) Finalize(ctx context.Context, productID, holderID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("finalize %d of %s: %w", qty, productID, domain.ErrInvalidQuantity)
	}

	defer l.lockProduct(productID)()

	r, found, err := l.store.GetReservation(ctx, holderID, productID)
	if err != nil {
		return fmt.Errorf("finalize %s for %s: %w", productID, holderID, err)
	}
	if !found {
		return fmt.Errorf("finalize %s for %s: %w", productID, holderID, domain.ErrNoSuchReservation)
	}

	if r.State == domain.StateFinalized && r.Quantity == qty {
		return nil // duplicate delivery of a completed finalize
	}
	if r.State != domain.StateActive {
		return fmt.Errorf("finalize %s for %s (state %s): %w",
			productID, holderID, r.State, domain.ErrNoSuchReservation)
	}
	if r.Quantity != qty {
		return fmt.Errorf("finalize %d of %s (held %d): %w",
			qty, productID, r.Quantity, domain.ErrQuantityMismatch)
	}

	p, err := l.store.GetProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("finalize %s for %s: %w", productID, holderID, err)
	}

	p.TotalStock -= qty
	p.Reserved -= qty
	r.State = domain.StateFinalized
	r.LastTransitionAt = l.now()

	if err := l.store.Apply(ctx, p, r); err != nil {
		return fmt.Errorf("finalize %s for %s: %w", productID, holderID, err)
	}
	return nil
}

// Unsell reverses a finalized sale, putting qty units back into TotalStock.
// Used by order cancellation (and by saga compensation when a later line of
// the same order fails). Distinct from Release: it undoes a permanent sale,
// not a pending hold.
func (l *Ledger) Unsell(ctx context.Context, productID, holderID string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("unsell %d of %s: %w", qty, productID, domain.ErrInvalidQuantity)
	}

	defer l.lockProduct(productID)()

	r, found, err := l.store.GetReservation(ctx, holderID, productID)
	if err != nil {
		return fmt.Errorf("unsell %s for %s: %w", productID, holderID, err)
	}
	if !found {
		return fmt.Errorf("unsell %s for %s: %w", productID, holderID, domain.ErrNoSuchReservation)
	}

	if r.State == domain.StateReleased && r.Quantity == qty {
		return nil // duplicate delivery of a completed unsell
	}
	if r.State != domain.StateFinalized {
		return fmt.Errorf("unsell %s for %s (state %s): %w",
			productID, holderID, r.State, domain.ErrNoSuchReservation)
	}
	if r.Quantity != qty {
		return fmt.Errorf("unsell %d of %s (sold %d): %w",
			qty, productID, r.Quantity, domain.ErrQuantityMismatch)
	}

	p, err := l.store.GetProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("unsell %s for %s: %w", productID, holderID, err)
	}

	p.TotalStock += qty
	r.State = domain.StateReleased
	r.LastTransitionAt = l.now()

	if err := l.store.Apply(ctx, p, r); err != nil {
		return fmt.Errorf("unsell %s for %s: %w", productID, holderID, err)
	}
	return nil
}

// Availability returns the current stock record for productID.
func (l *Ledger) Availability(ctx context.Context, productID string) (domain.Product, error) {
	return l.store.GetProduct(ctx, productID)
}

// Reservation returns holderID's reservation for productID, if any.
func (l *Ledger) Reservation(ctx context.Context, holderID, productID string) (domain.Reservation, bool, error) {
	return l.store.GetReservation(ctx, holderID, productID)
}

// SetStock creates the product or adjusts its total stock. Seeding/admin
// operation; it refuses to shrink the pool below what is currently reserved.
func (l *Ledger) SetStock(ctx context.Context, productID string, total int) error {
	if total < 0 {
		return fmt.Errorf("set stock %d of %s: %w", total, productID, domain.ErrInvalidQuantity)
	}

	defer l.lockProduct(productID)()

	p, err := l.store.GetProduct(ctx, productID)
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		p = domain.Product{ProductID: productID}
	case err != nil:
		// A transient store failure must not be mistaken for a new product:
		// writing a zero-value row here would wipe Reserved while ACTIVE
		// reservations still hold stock.
		return fmt.Errorf("set stock of %s: %w", productID, err)
	}

	if total < p.Reserved {
		return fmt.Errorf("set stock %d of %s below reserved %d: %w",
			total, productID, p.Reserved, domain.ErrInvalidQuantity)
	}

	p.TotalStock = total
	if err := l.store.PutProduct(ctx, p); err != nil {
		return fmt.Errorf("set stock of %s: %w", productID, err)
	}
	return nil
}
