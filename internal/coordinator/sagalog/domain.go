// Package sagalog defines the durable audit trail of reservation sagas.
//
// Every transition an order-creation saga goes through lands here, for two
// reasons:
//
//  1. Observability: a FAILED row with compensation errors is the signal
//     that stock was sold but could not be reversed — the one condition that
//     requires manual intervention. The trace_id column links the row to the
//     full distributed trace.
//
//  2. Recovery: after a crash, rows in COMPENSATING with no later entry tell
//     the operator (or a future recovery job) which holders may still own
//     finalized stock without an order record.
package sagalog

import "time"

// Status represents the lifecycle state of a saga execution.
type Status string

const (
	StatusStarted      Status = "STARTED"
	StatusStepDone     Status = "STEP_DONE"
	StatusCompleted    Status = "COMPLETED"
	StatusCompensating Status = "COMPENSATING"
	// StatusCompensated: a step failed but every completed step was undone;
	// the ledger is consistent again and the failure was purely business.
	StatusCompensated Status = "COMPENSATED"
	// StatusFailed: compensation itself failed — lost consistency.
	StatusFailed Status = "FAILED"
)

// SagaLog is a single row in the saga_logs table: a point-in-time snapshot
// of a saga execution. Rows are append-only.
type SagaLog struct {
	// SagaID identifies the saga execution. For order creation this is the
	// reservation holder ID, so the log joins directly to the ledger's
	// reservation records.
	SagaID string

	// Status is the lifecycle state at the time this row was written.
	Status Status

	// CurrentStep is the step that was just executed or failed,
	// e.g. "Finalize_prod_1". Empty for saga-level transitions.
	CurrentStep string

	// Payload is the JSON-serialised input that started the saga.
	// Written once on STARTED so the saga can be replayed from the log.
	Payload string

	// ErrorMessages accumulates failure details as a JSON array, one entry
	// per failed step or failed compensation.
	ErrorMessages string

	// TraceID is the W3C trace ID from the OpenTelemetry span active when
	// this entry was written; SpanID pinpoints the call within that trace.
	TraceID string
	SpanID  string

	// UpdatedAt is the wall-clock time of this log entry.
	UpdatedAt time.Time
}
