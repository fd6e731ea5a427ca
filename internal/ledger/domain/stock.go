// Package domain defines the records the Stock Ledger owns: per-product
// stock counters and the reservations held against them.
//
// The ledger is the single source of truth for "can this quantity be
// claimed". Carts and orders reference reservations by holder ID; they never
// own a reservation record themselves.
package domain

import "time"

// Product is the per-product stock record.
//
// TotalStock is the sellable pool; Reserved is the portion currently held by
// ACTIVE reservations. Both are non-negative at all times, and
// Reserved <= TotalStock, so Available() never goes below zero.
type Product struct {
	ProductID  string
	TotalStock int
	Reserved   int
}

// Available is the quantity still claimable by new reservations.
func (p Product) Available() int {
	return p.TotalStock - p.Reserved
}

// ReservationState is the lifecycle state of a reservation.
// ACTIVE is the only non-terminal state.
type ReservationState string

const (
	// StateActive is a pending hold against available stock.
	StateActive ReservationState = "ACTIVE"

	// StateFinalized means the hold became a permanent sale: the quantity
	// left TotalStock and will not return unless the sale is reversed.
	StateFinalized ReservationState = "FINALIZED"

	// StateReleased means the hold was cancelled (or a finalized sale was
	// reversed) and the quantity is back in the sellable pool.
	StateReleased ReservationState = "RELEASED"
)

// Terminal reports whether the state admits no further transitions.
func (s ReservationState) Terminal() bool {
	return s == StateFinalized || s == StateReleased
}

// Reservation is a hold on stock keyed by (HolderID, ProductID).
//
// At most one non-terminal record exists per key; repeated reserves for the
// same key add to the existing ACTIVE record instead of creating duplicates.
//
// For terminal records Quantity keeps the amount of the last transition
// (the amount fully released, finalized, or unsold). Callers retry after
// timeouts, and matching a retried Release/Finalize/Unsell against that
// quantity is how the ledger detects the duplicate without request IDs.
type Reservation struct {
	HolderID         string
	ProductID        string
	Quantity         int
	State            ReservationState
	CreatedAt        time.Time
	LastTransitionAt time.Time
}
