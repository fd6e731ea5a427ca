// Package sqlite provides a SQLite-backed implementation of ledger.Store.
//
// WAL mode is enabled on Open so availability reads never block the
// reservation write path. The ledger already serializes writers per product,
// but the HTTP layer reads product rows concurrently with those writes.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jcmexdev/stock-ledger/internal/ledger/domain"

	// Register the pure-Go SQLite driver.
	// modernc.org/sqlite avoids CGO, which keeps Docker (Alpine) builds simple.
	_ "modernc.org/sqlite"
)

// schema is the DDL executed once on startup.
// products and reservations are updated together inside one transaction in
// Apply — that transaction is what makes a ledger operation atomic on disk.
const schema = `
CREATE TABLE IF NOT EXISTS products (
    product_id      TEXT PRIMARY KEY,
    total_stock     INTEGER NOT NULL CHECK (total_stock >= 0),
    reserved        INTEGER NOT NULL DEFAULT 0 CHECK (reserved >= 0)
);

CREATE TABLE IF NOT EXISTS reservations (
    holder_id           TEXT NOT NULL,
    product_id          TEXT NOT NULL,
    quantity            INTEGER NOT NULL CHECK (quantity > 0),
    state               TEXT NOT NULL,
    created_at          TEXT NOT NULL,
    last_transition_at  TEXT NOT NULL,
    PRIMARY KEY (holder_id, product_id)
);

-- Reverse lookup: "who holds stock of product X" (operational queries).
CREATE INDEX IF NOT EXISTS idx_reservations_product ON reservations(product_id, state);
`

// Store is the SQLite implementation of ledger.Store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
//
//	store, err := sqlite.Open("./data/ledger.db")
func Open(path string) (*Store, error) {
	// WAL enables concurrent readers; busy_timeout waits for locks instead
	// of failing immediately.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	// Use "sqlite", not "sqlite3", for the modernc driver.
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// SQLite performs best with a single writer connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database connection. Call it with defer in main().
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	const q = `SELECT product_id, total_stock, reserved FROM products WHERE product_id = ?`

	var p domain.Product
	err := s.db.QueryRowContext(ctx, q, productID).Scan(&p.ProductID, &p.TotalStock, &p.Reserved)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, fmt.Errorf("sqlite: product %q: %w", productID, domain.ErrProductNotFound)
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("sqlite: get product %q: %w", productID, err)
	}
	return p, nil
}

func (s *Store) PutProduct(ctx context.Context, p domain.Product) error {
	const q = `
		INSERT INTO products (product_id, total_stock, reserved)
		VALUES (?, ?, ?)
		ON CONFLICT(product_id) DO UPDATE SET total_stock = excluded.total_stock, reserved = excluded.reserved`

	if _, err := s.db.ExecContext(ctx, q, p.ProductID, p.TotalStock, p.Reserved); err != nil {
		return fmt.Errorf("sqlite: put product %q: %w", p.ProductID, err)
	}
	return nil
}

func (s *Store) GetReservation(ctx context.Context, holderID, productID string) (domain.Reservation, bool, error) {
	const q = `
		SELECT holder_id, product_id, quantity, state, created_at, last_transition_at
		FROM   reservations
		WHERE  holder_id = ? AND product_id = ?`

	var (
		r                     domain.Reservation
		state                 string
		createdAt, transition string
	)
	err := s.db.QueryRowContext(ctx, q, holderID, productID).
		Scan(&r.HolderID, &r.ProductID, &r.Quantity, &state, &createdAt, &transition)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Reservation{}, false, nil
	}
	if err != nil {
		return domain.Reservation{}, false, fmt.Errorf("sqlite: get reservation %q/%q: %w", holderID, productID, err)
	}

	r.State = domain.ReservationState(state)
	if r.CreatedAt, err = parseRFC3339(createdAt); err != nil {
		return domain.Reservation{}, false, err
	}
	if r.LastTransitionAt, err = parseRFC3339(transition); err != nil {
		return domain.Reservation{}, false, err
	}
	return r, true, nil
}

// Apply upserts the product and reservation rows in one transaction.
func (s *Store) Apply(ctx context.Context, p domain.Product, r domain.Reservation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin apply: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const upsertProduct = `
		INSERT INTO products (product_id, total_stock, reserved)
		VALUES (?, ?, ?)
		ON CONFLICT(product_id) DO UPDATE SET total_stock = excluded.total_stock, reserved = excluded.reserved`
	if _, err := tx.ExecContext(ctx, upsertProduct, p.ProductID, p.TotalStock, p.Reserved); err != nil {
		return fmt.Errorf("sqlite: apply product %q: %w", p.ProductID, err)
	}

	const upsertReservation = `
		INSERT INTO reservations (holder_id, product_id, quantity, state, created_at, last_transition_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(holder_id, product_id) DO UPDATE SET
			quantity = excluded.quantity,
			state = excluded.state,
			created_at = excluded.created_at,
			last_transition_at = excluded.last_transition_at`
	if _, err := tx.ExecContext(ctx, upsertReservation,
		r.HolderID,
		r.ProductID,
		r.Quantity,
		string(r.State),
		formatRFC3339(r.CreatedAt),
		formatRFC3339(r.LastTransitionAt),
	); err != nil {
		return fmt.Errorf("sqlite: apply reservation %q/%q: %w", r.HolderID, r.ProductID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit apply: %w", err)
	}
	return nil
}

// SQLite has no native datetime type; timestamps are stored as RFC3339 TEXT.

func formatRFC3339(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseRFC3339(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", s, err)
	}
	return t, nil
}
