package coordinator

import (
	"context"
	"fmt"

	"github.com/jcmexdev/stock-ledger/internal/reservation"
)

// FinalizeLineStep converts one reserved line into a permanent sale.
//
// Its compensation is Unsell, not Release: once Execute succeeds the stock
// has left the sellable pool, so undoing it means reversing a sale.
type FinalizeLineStep struct {
	client   reservation.Client
	holderID string
	line     reservation.Line
}

func NewFinalizeLineStep(client reservation.Client, holderID string, line reservation.Line) *FinalizeLineStep {
	return &FinalizeLineStep{client: client, holderID: holderID, line: line}
}

func (s *FinalizeLineStep) Name() string {
	return fmt.Sprintf("Finalize_%s", s.line.ProductID)
}

func (s *FinalizeLineStep) Execute(ctx context.Context) error {
	results, err := s.client.Finalize(ctx, s.holderID, []reservation.Line{s.line})
	if err != nil {
		// Transport failure: outcome unknown. "No confirmation received" is
		// treated as failure, so completed steps get compensated and the
		// whole saga can be retried — Finalize is idempotent on the ledger
		// side, so re-running an actually-applied line is harmless.
		return fmt.Errorf("finalize %s for %s: %w", s.line.ProductID, s.holderID, err)
	}
	if ferr := reservation.FirstError(results); ferr != nil {
		return fmt.Errorf("finalize %s for %s: %w", s.line.ProductID, s.holderID, ferr)
	}
	return nil
}

func (s *FinalizeLineStep) Compensate(ctx context.Context) error {
	results, err := s.client.Unsell(ctx, s.holderID, []reservation.Line{s.line})
	if err != nil {
		return fmt.Errorf("unsell %s for %s: %w", s.line.ProductID, s.holderID, err)
	}
	if uerr := reservation.FirstError(results); uerr != nil {
		return fmt.Errorf("unsell %s for %s: %w", s.line.ProductID, s.holderID, uerr)
	}
	return nil
}
