package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/stock-ledger/internal/ledger"
	"github.com/jcmexdev/stock-ledger/internal/ledger/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestProductRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	want := domain.Product{ProductID: "p1", TotalStock: 10, Reserved: 3}
	require.NoError(t, s.PutProduct(ctx, want))

	got, err := s.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Upsert replaces the row in place.
	want.Reserved = 7
	require.NoError(t, s.PutProduct(ctx, want))
	got, err = s.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 7, got.Reserved)
}

func TestGetProductMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetProduct(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestGetReservationMissing(t *testing.T) {
	s := openTestStore(t)
	_, found, err := s.GetReservation(context.Background(), "cart:a", "p1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestApplyWritesBothRowsAtomically(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	p := domain.Product{ProductID: "p1", TotalStock: 10, Reserved: 4}
	r := domain.Reservation{
		HolderID:         "cart:a",
		ProductID:        "p1",
		Quantity:         4,
		State:            domain.StateActive,
		CreatedAt:        now,
		LastTransitionAt: now,
	}
	require.NoError(t, s.Apply(ctx, p, r))

	gotP, err := s.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, p, gotP)

	gotR, found, err := s.GetReservation(ctx, "cart:a", "p1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, r.HolderID, gotR.HolderID)
	assert.Equal(t, r.ProductID, gotR.ProductID)
	assert.Equal(t, r.Quantity, gotR.Quantity)
	assert.Equal(t, r.State, gotR.State)
	assert.True(t, gotR.CreatedAt.Equal(now), "created_at survives the TEXT round trip")
	assert.True(t, gotR.LastTransitionAt.Equal(now))
}

// TestLedgerOverSQLite runs a full reserve/finalize cycle through the real
// ledger to make sure state survives the SQL round trip.
func TestLedgerOverSQLite(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	l := ledger.New(s)

	require.NoError(t, l.SetStock(ctx, "p1", 10))
	require.NoError(t, l.Reserve(ctx, "p1", "cart:a", 4))

	p, err := l.Availability(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 6, p.Available())

	require.NoError(t, l.Finalize(ctx, "p1", "cart:a", 4))

	p, err = l.Availability(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 6, p.TotalStock)
	assert.Equal(t, 0, p.Reserved)

	r, found, err := l.Reservation(ctx, "cart:a", "p1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, domain.StateFinalized, r.State)
}
