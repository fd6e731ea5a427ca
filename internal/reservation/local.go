package reservation

import (
	"context"

	"github.com/jcmexdev/stock-ledger/internal/ledger"
)

// Local is the in-process Client: calls go straight into the ledger.
// There is no transport to fail, so the error return is always nil.
type Local struct {
	ledger *ledger.Ledger
}

func NewLocal(l *ledger.Ledger) *Local {
	return &Local{ledger: l}
}

func (c *Local) Reserve(ctx context.Context, holderID string, lines []Line) ([]Result, error) {
	return c.each(ctx, holderID, lines, c.ledger.Reserve), nil
}

func (c *Local) Release(ctx context.Context, holderID string, lines []Line) ([]Result, error) {
	return c.each(ctx, holderID, lines, c.ledger.Release), nil
}

func (c *Local) Finalize(ctx context.Context, holderID string, lines []Line) ([]Result, error) {
	return c.each(ctx, holderID, lines, c.ledger.Finalize), nil
}

func (c *Local) Unsell(ctx context.Context, holderID string, lines []Line) ([]Result, error) {
	return c.each(ctx, holderID, lines, c.ledger.Unsell), nil
}

func (c *Local) each(
	ctx context.Context,
	holderID string,
	lines []Line,
	op func(ctx context.Context, productID, holderID string, qty int) error,
) []Result {
	results := make([]Result, len(lines))
	for i, line := range lines {
		results[i] = Result{Line: line, Err: op(ctx, line.ProductID, holderID, line.Quantity)}
	}
	return results
}
