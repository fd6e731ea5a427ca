// Package coordinator runs multi-item ledger operations as sagas: each step
// is an independent, atomic ledger call, and apparent atomicity across steps
// comes from compensation, not locking.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jcmexdev/stock-ledger/internal/coordinator/sagalog"
)

// Step represents a single unit of work in the saga.
// Each step must have a compensating action to undo its effects.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
	Compensate(ctx context.Context) error
}

// CompensationError reports lost consistency: a step failed AND undoing one
// or more earlier steps failed too. The system now holds effects the saga
// could not reverse; this must reach an operator, never be masked as an
// ordinary business failure.
type CompensationError struct {
	// Cause is the step failure that triggered the rollback.
	Cause error
	// Failed maps step name to its compensation failure.
	Failed map[string]error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("saga compensation failed for %d step(s) after: %v", len(e.Failed), e.Cause)
}

func (e *CompensationError) Unwrap() error { return e.Cause }

// Orchestrator manages the execution of a collection of Steps and records
// every transition in the saga log. sagaLog may be nil (transitions are then
// not persisted — acceptable in tests, not in production).
type Orchestrator struct {
	sagaID  string
	steps   []Step
	sagaLog sagalog.Repository
}

func NewOrchestrator(sagaID string, steps []Step, sagaLog sagalog.Repository) *Orchestrator {
	return &Orchestrator{sagaID: sagaID, steps: steps, sagaLog: sagaLog}
}

// Start runs the saga steps sequentially, in the order submitted.
// If a step fails, every previously successful step is compensated in LIFO
// order before the step's error is returned. If any compensation itself
// fails, Start returns a *CompensationError instead.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.record(ctx, sagalog.StatusStarted, "", nil)

	var completed []Step
	for _, step := range o.steps {
		if err := step.Execute(ctx); err != nil {
			slog.ErrorContext(ctx, "saga step failed, rolling back",
				"saga_id", o.sagaID, "step", step.Name(), "error", err)
			o.record(ctx, sagalog.StatusCompensating, step.Name(), []string{err.Error()})

			if compErr := o.rollback(ctx, completed, err); compErr != nil {
				return compErr
			}
			o.record(ctx, sagalog.StatusCompensated, step.Name(), []string{err.Error()})
			return err
		}
		completed = append(completed, step)
		o.record(ctx, sagalog.StatusStepDone, step.Name(), nil)
	}

	o.record(ctx, sagalog.StatusCompleted, "", nil)
	return nil
}

// rollback compensates completed steps in reverse order. All compensations
// are attempted even when one fails; failures are aggregated.
func (o *Orchestrator) rollback(ctx context.Context, steps []Step, cause error) error {
	failed := make(map[string]error)
	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		if err := step.Compensate(ctx); err != nil {
			slog.ErrorContext(ctx, "CRITICAL: saga compensation failed",
				"saga_id", o.sagaID, "step", step.Name(), "error", err)
			failed[step.Name()] = err
		}
	}

	if len(failed) == 0 {
		return nil
	}

	msgs := make([]string, 0, len(failed)+1)
	msgs = append(msgs, cause.Error())
	for name, err := range failed {
		msgs = append(msgs, fmt.Sprintf("compensation of %s failed: %v", name, err))
	}
	o.record(ctx, sagalog.StatusFailed, "", msgs)

	return &CompensationError{Cause: cause, Failed: failed}
}

func (o *Orchestrator) record(ctx context.Context, status sagalog.Status, step string, errs []string) {
	if o.sagaLog == nil {
		return
	}
	entry := sagalog.NewEntry(ctx, o.sagaID, status, step, "", errs)
	if err := o.sagaLog.Save(ctx, entry); err != nil {
		// The log is an audit trail, not a lock: losing an entry must not
		// abort the business operation.
		slog.ErrorContext(ctx, "failed to persist saga log entry",
			"saga_id", o.sagaID, "status", status, "error", err)
	}
}

// IsCompensationFailure reports whether err carries a *CompensationError.
func IsCompensationFailure(err error) bool {
	var ce *CompensationError
	return errors.As(err, &ce)
}
