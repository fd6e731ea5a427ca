package reservation_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/stock-ledger/internal/ledger"
	"github.com/jcmexdev/stock-ledger/internal/ledger/domain"
	"github.com/jcmexdev/stock-ledger/internal/ledger/httpapi"
	"github.com/jcmexdev/stock-ledger/internal/reservation"
)

// newLedgerServer serves the real HTTP API over an in-memory ledger, so the
// client tests cover the full wire round trip rather than a canned handler.
func newLedgerServer(t *testing.T, stock map[string]int) *httptest.Server {
	t.Helper()
	l := ledger.New(ledger.NewMemoryStore())
	for id, total := range stock {
		require.NoError(t, l.SetStock(context.Background(), id, total))
	}
	ts := httptest.NewServer(httpapi.NewRouter(httpapi.NewHandler(l, nil)))
	t.Cleanup(ts.Close)
	return ts
}

func TestHTTPClientReserve(t *testing.T) {
	ts := newLedgerServer(t, map[string]int{"p1": 10, "p2": 5})
	c := reservation.NewHTTPClient(ts.URL)

	results, err := c.Reserve(context.Background(), "cart:a", []reservation.Line{
		{ProductID: "p1", Quantity: 3},
		{ProductID: "p2", Quantity: 2},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.NoError(t, reservation.FirstError(results))
}

// Business failures come back inside a 200 body and must decode into the
// same sentinels the in-process client returns.
func TestHTTPClientDecodesBusinessErrors(t *testing.T) {
	ts := newLedgerServer(t, map[string]int{"p1": 10, "p2": 1})
	c := reservation.NewHTTPClient(ts.URL)

	results, err := c.Reserve(context.Background(), "cart:a", []reservation.Line{
		{ProductID: "p1", Quantity: 3},
		{ProductID: "p2", Quantity: 5},
		{ProductID: "ghost", Quantity: 1},
	})
	require.NoError(t, err, "per-line failures are not a call failure")
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err, "lines are independent")
	assert.ErrorIs(t, results[1].Err, domain.ErrInsufficientStock)
	assert.ErrorIs(t, results[2].Err, domain.ErrProductNotFound)

	assert.ErrorIs(t, reservation.FirstError(results), domain.ErrInsufficientStock)

	var te *reservation.TransportError
	assert.False(t, errors.As(results[1].Err, &te), "a ledger verdict is not a transport error")
}

func TestHTTPClientTransportError(t *testing.T) {
	ts := newLedgerServer(t, map[string]int{"p1": 10})
	c := reservation.NewHTTPClient(ts.URL)
	ts.Close()

	results, err := c.Reserve(context.Background(), "cart:a", []reservation.Line{{ProductID: "p1", Quantity: 1}})
	require.Error(t, err)
	assert.Nil(t, results, "no per-line verdicts when the call itself failed")

	var te *reservation.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "reserve", te.Op)
}

func TestHTTPClientFullLifecycle(t *testing.T) {
	ctx := context.Background()
	ts := newLedgerServer(t, map[string]int{"p1": 10})
	c := reservation.NewHTTPClient(ts.URL)

	line := []reservation.Line{{ProductID: "p1", Quantity: 4}}

	results, err := c.Reserve(ctx, "cart:a", line)
	require.NoError(t, err)
	require.NoError(t, reservation.FirstError(results))

	results, err = c.Finalize(ctx, "cart:a", line)
	require.NoError(t, err)
	require.NoError(t, reservation.FirstError(results))

	// Retrying a finalize that already landed is accepted.
	results, err = c.Finalize(ctx, "cart:a", line)
	require.NoError(t, err)
	assert.NoError(t, reservation.FirstError(results))

	results, err = c.Unsell(ctx, "cart:a", line)
	require.NoError(t, err)
	assert.NoError(t, reservation.FirstError(results))
}
