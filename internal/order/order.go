// Package order implements the order aggregate and the saga that creates an
// order from reserved stock. An order only ever exists if every one of its
// lines was finalized in the ledger; mid-saga failures are compensated by
// unselling the lines that had already been finalized.
package order

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrAlreadyCanceled   = errors.New("order already canceled")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNoItems           = errors.New("order has no items")
)

type Order struct {
	ID         string
	CustomerID string

	// ReservationHolder is the holder identity under which this order's
	// stock was reserved and finalized (the originating cart's holder ID).
	// Cancellation unsells under this identity — the ledger only honours
	// transitions from the holder that owns the reservation.
	ReservationHolder string

	Items           []OrderItem
	TotalAmount     float64
	Status          Status
	PaymentMethod   string
	ShippingAddress string
	OrderDate       time.Time
	UpdatedAt       time.Time
}

type OrderItem struct {
	ProductID string
	Name      string
	Quantity  int
	Price     float64
}

func (i OrderItem) Subtotal() float64 {
	return float64(i.Quantity) * i.Price
}

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCanceled  Status = "CANCELED"
)

// ParseStatus validates a status string from the request layer.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusShipped, StatusDelivered, StatusCanceled:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q: %w", s, ErrInvalidTransition)
}

// canTransitionTo encodes the externally driven lifecycle:
// PENDING → SHIPPED → DELIVERED. CANCELED is reachable from PENDING and
// SHIPPED but only through Service.Cancel, which reverses the stock first.
func (s Status) canTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusShipped
	case StatusShipped:
		return next == StatusDelivered
	default:
		return false
	}
}
