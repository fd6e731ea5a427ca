package sagalog

import "context"

// Repository is the port (interface) for persisting saga log entries.
// The coordinator depends on this abstraction, not on SQLite directly,
// so the implementation can be swapped for Postgres, in-memory (tests), etc.
type Repository interface {
	// Save appends a new log entry. The log is append-only: each call adds
	// a row, never an upsert.
	Save(ctx context.Context, entry *SagaLog) error
}
