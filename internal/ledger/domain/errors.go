package domain

import "errors"

// Business failures returned by ledger operations. Callers are expected to
// branch with errors.Is; the wire codes below carry the same distinctions
// across the HTTP boundary.
//
// ErrInsufficientStock is the only recoverable one (retry with a lower
// quantity, or tell the shopper). The reservation-state errors signal a
// desync between caller and ledger and must never be swallowed.
var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrNoSuchReservation = errors.New("no such reservation")
	ErrQuantityMismatch  = errors.New("reservation quantity mismatch")
	ErrOverRelease       = errors.New("release exceeds reserved quantity")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
)

// Wire codes for the errors above. The HTTP API writes them; the HTTP client
// maps them back to the sentinels so errors.Is works the same on both sides
// of the network boundary.
const (
	CodeProductNotFound   = "product_not_found"
	CodeInsufficientStock = "insufficient_stock"
	CodeNoSuchReservation = "no_such_reservation"
	CodeQuantityMismatch  = "quantity_mismatch"
	CodeOverRelease       = "over_release"
	CodeInvalidQuantity   = "invalid_quantity"
)

var errCodes = map[string]error{
	CodeProductNotFound:   ErrProductNotFound,
	CodeInsufficientStock: ErrInsufficientStock,
	CodeNoSuchReservation: ErrNoSuchReservation,
	CodeQuantityMismatch:  ErrQuantityMismatch,
	CodeOverRelease:       ErrOverRelease,
	CodeInvalidQuantity:   ErrInvalidQuantity,
}

// ErrorCode returns the wire code for a business error, or "" if err is not
// one of the ledger sentinels.
func ErrorCode(err error) string {
	for code, sentinel := range errCodes {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return ""
}

// ErrorFromCode is the inverse of ErrorCode. Unknown codes return nil.
func ErrorFromCode(code string) error {
	return errCodes[code]
}
