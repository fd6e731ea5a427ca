package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jcmexdev/stock-ledger/internal/ledger/domain"
	"github.com/jcmexdev/stock-ledger/internal/reservation"
)

// Service coordinates cart mutations with the stock ledger.
type Service struct {
	repo  Repository
	stock reservation.Client
}

func NewService(repo Repository, stock reservation.Client) *Service {
	return &Service{repo: repo, stock: stock}
}

func (s *Service) Create(ctx context.Context, customerID string) (*Cart, error) {
	c := &Cart{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		CreatedAt:  time.Now().UTC(),
		Items:      make(map[string]int),
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, cartID string) (*Cart, error) {
	return s.repo.Get(ctx, cartID)
}

// Items returns the cart's lines as a product→quantity map.
func (s *Service) Items(ctx context.Context, cartID string) (map[string]int, error) {
	c, err := s.repo.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return c.Items, nil
}

// AddItem reserves qty units and then adds them to the cart line (creating
// it if needed). On a stock shortage the cart is not changed.
func (s *Service) AddItem(ctx context.Context, cartID, productID string, qty int) (*Cart, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("add %d of %s: %w", qty, productID, domain.ErrInvalidQuantity)
	}

	c, err := s.repo.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}

	if err := s.reserve(ctx, c.HolderID(), productID, qty); err != nil {
		return nil, fmt.Errorf("add item to cart %s: %w", cartID, err)
	}

	c.Items[productID] += qty
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("add item to cart %s: %w", cartID, err)
	}
	return c, nil
}

// UpdateItemQuantity moves an existing line to newQty, reserving the
// increase or releasing the decrease first. The cart line only changes when
// the matching ledger change succeeded; release failures are surfaced, not
// swallowed, since silently keeping the old hold would strand stock.
func (s *Service) UpdateItemQuantity(ctx context.Context, cartID, productID string, newQty int) (*Cart, error) {
	if newQty <= 0 {
		return nil, fmt.Errorf("update %s to %d: %w", productID, newQty, domain.ErrInvalidQuantity)
	}

	c, err := s.repo.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	current, ok := c.Items[productID]
	if !ok {
		return nil, fmt.Errorf("update %s in cart %s: %w", productID, cartID, ErrItemNotFound)
	}

	switch delta := newQty - current; {
	case delta > 0:
		if err := s.reserve(ctx, c.HolderID(), productID, delta); err != nil {
			return nil, fmt.Errorf("update item in cart %s: %w", cartID, err)
		}
	case delta < 0:
		if err := s.release(ctx, c.HolderID(), productID, -delta); err != nil {
			return nil, fmt.Errorf("update item in cart %s: %w", cartID, err)
		}
	default:
		return c, nil
	}

	c.Items[productID] = newQty
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("update item in cart %s: %w", cartID, err)
	}
	return c, nil
}

// RemoveItem releases the line's full quantity and then deletes it.
// If the release fails, the line is retained so cart and ledger keep
// agreeing — release-then-delete is one logical step, never "delete anyway".
func (s *Service) RemoveItem(ctx context.Context, cartID, productID string) (*Cart, error) {
	c, err := s.repo.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}
	qty, ok := c.Items[productID]
	if !ok {
		return nil, fmt.Errorf("remove %s from cart %s: %w", productID, cartID, ErrItemNotFound)
	}

	if err := s.release(ctx, c.HolderID(), productID, qty); err != nil {
		return nil, fmt.Errorf("remove item from cart %s: %w", cartID, err)
	}

	delete(c.Items, productID)
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("remove item from cart %s: %w", cartID, err)
	}
	return c, nil
}

// ClearCart releases and deletes every line. Lines whose release fails are
// retained, and the failures are returned joined — the caller decides
// whether to retry.
func (s *Service) ClearCart(ctx context.Context, cartID string) (*Cart, error) {
	c, err := s.repo.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}

	// Deterministic order keeps logs and retries predictable.
	productIDs := make([]string, 0, len(c.Items))
	for productID := range c.Items {
		productIDs = append(productIDs, productID)
	}
	sort.Strings(productIDs)

	var failures []error
	for _, productID := range productIDs {
		if err := s.release(ctx, c.HolderID(), productID, c.Items[productID]); err != nil {
			slog.ErrorContext(ctx, "clear cart: line retained, release failed",
				"cart_id", cartID, "product_id", productID, "error", err)
			failures = append(failures, fmt.Errorf("release %s: %w", productID, err))
			continue
		}
		delete(c.Items, productID)
	}

	if err := s.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("clear cart %s: %w", cartID, err)
	}
	if len(failures) > 0 {
		return c, fmt.Errorf("clear cart %s: %w", cartID, errors.Join(failures...))
	}
	return c, nil
}

// CompleteCheckout empties the cart after its reservations were finalized
// into an order. No ledger calls happen here: the holds were consumed by
// finalization and no longer exist as holds.
func (s *Service) CompleteCheckout(ctx context.Context, cartID string) error {
	c, err := s.repo.Get(ctx, cartID)
	if err != nil {
		return err
	}
	c.Items = make(map[string]int)
	if err := s.repo.Save(ctx, c); err != nil {
		return fmt.Errorf("complete checkout of cart %s: %w", cartID, err)
	}
	return nil
}

func (s *Service) reserve(ctx context.Context, holderID, productID string, qty int) error {
	results, err := s.stock.Reserve(ctx, holderID, []reservation.Line{{ProductID: productID, Quantity: qty}})
	if err != nil {
		return err
	}
	return reservation.FirstError(results)
}

func (s *Service) release(ctx context.Context, holderID, productID string, qty int) error {
	results, err := s.stock.Release(ctx, holderID, []reservation.Line{{ProductID: productID, Quantity: qty}})
	if err != nil {
		return err
	}
	return reservation.FirstError(results)
}
