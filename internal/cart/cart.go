// Package cart implements the cart aggregate. Every quantity change in a
// cart is mirrored by a reserve or release against the stock ledger under
// the cart's holder identity, and the ledger call always goes first: a cart
// line without a matching ACTIVE reservation is a bug, so a failed ledger
// call leaves the cart untouched.
package cart

import (
	"errors"
	"time"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrItemNotFound = errors.New("item not found in cart")
)

// Cart tracks the line items a customer is assembling.
// Items maps product ID to quantity.
type Cart struct {
	ID         string
	CustomerID string
	CreatedAt  time.Time
	Items      map[string]int
}

// HolderID is the identity under which this cart's reservations are held.
func (c *Cart) HolderID() string {
	return "cart:" + c.ID
}
