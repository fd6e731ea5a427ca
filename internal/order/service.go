package order

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jcmexdev/stock-ledger/internal/coordinator"
	"github.com/jcmexdev/stock-ledger/internal/coordinator/sagalog"
	"github.com/jcmexdev/stock-ledger/internal/reservation"
)

// CreateOrder is the input for CreateFromReservedItems. Quantities must
// match the ACTIVE reservations held under HolderID — finalization is exact
// per line, so a cart that changed concurrently fails the saga.
type CreateOrder struct {
	CustomerID      string
	HolderID        string
	Items           []OrderItem
	PaymentMethod   string
	ShippingAddress string
}

// Service owns the order lifecycle. Saga transitions are recorded in the
// saga log (may be nil in tests).
type Service struct {
	repo    Repository
	stock   reservation.Client
	sagaLog sagalog.Repository
}

func NewService(repo Repository, stock reservation.Client, sagaLog sagalog.Repository) *Service {
	return &Service{repo: repo, stock: stock, sagaLog: sagaLog}
}

// CreateFromReservedItems finalizes every line's reservation and, only once
// all of them succeeded, persists the order with status PENDING.
//
// This is a saga, not a transaction: each line is a separate ledger call.
// If any line fails, the lines already finalized in this call are unsold
// (they succeeded as permanent sales) before the failure is reported, and no
// order record is written. A *coordinator.CompensationError means that
// rollback itself failed — stock was partially sold with no order to show
// for it, which requires operator attention.
func (s *Service) CreateFromReservedItems(ctx context.Context, in CreateOrder) (*Order, error) {
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("create order for %s: %w", in.CustomerID, ErrNoItems)
	}

	steps := make([]coordinator.Step, len(in.Items))
	for i, item := range in.Items {
		steps[i] = coordinator.NewFinalizeLineStep(s.stock, in.HolderID, reservation.Line{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	// The holder ID doubles as the saga ID so the log joins directly to the
	// ledger's reservation records.
	saga := coordinator.NewOrchestrator(in.HolderID, steps, s.sagaLog)
	if err := saga.Start(ctx); err != nil {
		if coordinator.IsCompensationFailure(err) {
			slog.ErrorContext(ctx, "CRITICAL: order saga compensation failed, manual intervention required",
				"holder_id", in.HolderID, "customer_id", in.CustomerID, "error", err)
		}
		return nil, fmt.Errorf("create order for %s: %w", in.CustomerID, err)
	}

	var total float64
	for _, item := range in.Items {
		total += item.Subtotal()
	}

	now := time.Now().UTC()
	o := &Order{
		ID:                uuid.NewString(),
		CustomerID:        in.CustomerID,
		ReservationHolder: in.HolderID,
		Items:             append([]OrderItem(nil), in.Items...),
		TotalAmount:       total,
		Status:            StatusPending,
		PaymentMethod:     in.PaymentMethod,
		ShippingAddress:   in.ShippingAddress,
		OrderDate:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Save(ctx, o); err != nil {
		return nil, fmt.Errorf("persist order for %s: %w", in.CustomerID, err)
	}

	slog.InfoContext(ctx, "order created",
		"order_id", o.ID, "customer_id", o.CustomerID, "holder_id", o.ReservationHolder, "total", o.TotalAmount)
	return o, nil
}

// Cancel unsells every item of the order and only then marks it CANCELED.
//
// If any Unsell fails the order keeps its current status and the failure is
// surfaced: an order must not claim cancellation while its stock remains
// sold. Unsell is idempotent, so retrying a half-done cancel is safe.
func (s *Service) Cancel(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == StatusCanceled {
		return nil, fmt.Errorf("cancel order %s: %w", orderID, ErrAlreadyCanceled)
	}
	if o.Status == StatusDelivered {
		return nil, fmt.Errorf("cancel order %s (status %s): %w", orderID, o.Status, ErrInvalidTransition)
	}

	for _, item := range o.Items {
		line := reservation.Line{ProductID: item.ProductID, Quantity: item.Quantity}
		results, err := s.stock.Unsell(ctx, o.ReservationHolder, []reservation.Line{line})
		if err == nil {
			err = reservation.FirstError(results)
		}
		if err != nil {
			slog.ErrorContext(ctx, "cancel aborted: stock not reversed, order status unchanged",
				"order_id", orderID, "product_id", item.ProductID, "error", err)
			return nil, fmt.Errorf("cancel order %s: unsell %s: %w", orderID, item.ProductID, err)
		}
	}

	o.Status = StatusCanceled
	o.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(ctx, o); err != nil {
		return nil, fmt.Errorf("cancel order %s: %w", orderID, err)
	}

	slog.InfoContext(ctx, "order canceled", "order_id", orderID)
	return o, nil
}

// UpdateStatus drives the externally triggered part of the lifecycle
// (PENDING → SHIPPED → DELIVERED). CANCELED is rejected here: cancellation
// goes through Cancel so stock is reversed first.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, next Status) (*Order, error) {
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !o.Status.canTransitionTo(next) {
		return nil, fmt.Errorf("order %s: %s -> %s: %w", orderID, o.Status, next, ErrInvalidTransition)
	}

	o.Status = next
	o.UpdatedAt = time.Now().UTC()
	if err := s.repo.Save(ctx, o); err != nil {
		return nil, fmt.Errorf("update order %s: %w", orderID, err)
	}
	return o, nil
}

func (s *Service) Get(ctx context.Context, orderID string) (*Order, error) {
	return s.repo.Get(ctx, orderID)
}

func (s *Service) List(ctx context.Context) ([]*Order, error) {
	return s.repo.List(ctx)
}
