package httpx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/stock-ledger/internal/cart"
	"github.com/jcmexdev/stock-ledger/internal/gateway/httpx"
	"github.com/jcmexdev/stock-ledger/internal/ledger"
	"github.com/jcmexdev/stock-ledger/internal/order"
	"github.com/jcmexdev/stock-ledger/internal/reservation"
)

type gatewayFixture struct {
	server *httptest.Server
	ledger *ledger.Ledger
}

// newGatewayFixture wires the full stack in-process: gateway handlers, cart
// and order services, and an in-memory ledger behind the local client.
func newGatewayFixture(t *testing.T, stock map[string]int) gatewayFixture {
	t.Helper()
	l := ledger.New(ledger.NewMemoryStore())
	for id, total := range stock {
		require.NoError(t, l.SetStock(context.Background(), id, total))
	}

	client := reservation.NewLocal(l)
	carts := cart.NewService(cart.NewMemoryRepository(), client)
	orders := order.NewService(order.NewMemoryRepository(), client, nil)

	ts := httptest.NewServer(httpx.NewRouter(httpx.NewHandler(carts, orders)))
	t.Cleanup(ts.Close)
	return gatewayFixture{server: ts, ledger: l}
}

func (f gatewayFixture) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (f gatewayFixture) available(t *testing.T, productID string) int {
	t.Helper()
	p, err := f.ledger.Availability(context.Background(), productID)
	require.NoError(t, err)
	return p.Available()
}

func (f gatewayFixture) newCartWithItem(t *testing.T, productID string, qty int) httpx.CartResponse {
	t.Helper()
	resp := f.do(t, http.MethodPost, "/carts", httpx.CreateCartRequest{CustomerID: "customer-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	c := decode[httpx.CartResponse](t, resp)

	resp = f.do(t, http.MethodPost, "/carts/"+c.CartID+"/items", httpx.AddItemRequest{ProductID: productID, Quantity: qty})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decode[httpx.CartResponse](t, resp)
}

func TestCartLifecycleOverHTTP(t *testing.T) {
	f := newGatewayFixture(t, map[string]int{"p1": 10})

	c := f.newCartWithItem(t, "p1", 3)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, 7, f.available(t, "p1"))

	// Update the line quantity down; the ledger releases the delta.
	resp := f.do(t, http.MethodPut, "/carts/"+c.CartID+"/items/p1", httpx.UpdateItemRequest{Quantity: 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 9, f.available(t, "p1"))

	// Remove the line entirely.
	resp = f.do(t, http.MethodDelete, "/carts/"+c.CartID+"/items/p1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 10, f.available(t, "p1"))
}

func TestGetCartItemsOverHTTP(t *testing.T) {
	f := newGatewayFixture(t, map[string]int{"p1": 10})
	c := f.newCartWithItem(t, "p1", 3)

	resp := f.do(t, http.MethodGet, "/carts/"+c.CartID+"/items", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := decode[[]httpx.CartItemDTO](t, resp)
	require.Len(t, items, 1)
	assert.Equal(t, httpx.CartItemDTO{ProductID: "p1", Quantity: 3}, items[0])
}

func TestAddItemShortageOverHTTP(t *testing.T) {
	f := newGatewayFixture(t, map[string]int{"p1": 2})

	resp := f.do(t, http.MethodPost, "/carts", httpx.CreateCartRequest{CustomerID: "customer-1"})
	c := decode[httpx.CartResponse](t, resp)

	resp = f.do(t, http.MethodPost, "/carts/"+c.CartID+"/items", httpx.AddItemRequest{ProductID: "p1", Quantity: 5})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	e := decode[httpx.ErrorResponse](t, resp)
	assert.Equal(t, "insufficient_stock", e.Error)
}

func TestGetUnknownCartOverHTTP(t *testing.T) {
	f := newGatewayFixture(t, nil)
	resp := f.do(t, http.MethodGet, "/carts/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCheckoutCreatesOrderAndEmptiesCart(t *testing.T) {
	f := newGatewayFixture(t, map[string]int{"p1": 10})
	c := f.newCartWithItem(t, "p1", 3)

	resp := f.do(t, http.MethodPost, "/orders", httpx.CheckoutRequest{
		CartID:          c.CartID,
		PaymentMethod:   "card",
		ShippingAddress: "1 Main St",
		Items:           []httpx.CheckoutItemDTO{{ProductID: "p1", Name: "Widget", Price: 9.50}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	o := decode[httpx.OrderResponse](t, resp)
	assert.Equal(t, "PENDING", o.Status)
	assert.InDelta(t, 28.50, o.TotalAmount, 1e-9)

	// The sale is permanent: stock left the pool, the hold is gone.
	p, err := f.ledger.Availability(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 7, p.TotalStock)
	assert.Equal(t, 0, p.Reserved)

	// The cart was emptied as part of checkout.
	resp = f.do(t, http.MethodGet, "/carts/"+c.CartID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[httpx.CartResponse](t, resp).Items)

	// And the order is retrievable.
	resp = f.do(t, http.MethodGet, "/orders/"+o.OrderID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, o.OrderID, decode[httpx.OrderResponse](t, resp).OrderID)
}

func TestCheckoutRequiresPricingForEveryLine(t *testing.T) {
	f := newGatewayFixture(t, map[string]int{"p1": 10, "p2": 10})
	c := f.newCartWithItem(t, "p1", 2)
	resp := f.do(t, http.MethodPost, "/carts/"+c.CartID+"/items", httpx.AddItemRequest{ProductID: "p2", Quantity: 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/orders", httpx.CheckoutRequest{
		CartID:          c.CartID,
		ShippingAddress: "1 Main St",
		Items:           []httpx.CheckoutItemDTO{{ProductID: "p1", Name: "Widget", Price: 9.50}},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "missing_item_pricing", decode[httpx.ErrorResponse](t, resp).Error)

	// Nothing was finalized: the holds are intact.
	assert.Equal(t, 8, f.available(t, "p1"))
	assert.Equal(t, 9, f.available(t, "p2"))
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newGatewayFixture(t, nil)
	resp := f.do(t, http.MethodPost, "/carts", httpx.CreateCartRequest{CustomerID: "customer-1"})
	c := decode[httpx.CartResponse](t, resp)

	resp = f.do(t, http.MethodPost, "/orders", httpx.CheckoutRequest{
		CartID:          c.CartID,
		ShippingAddress: "1 Main St",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "empty_cart", decode[httpx.ErrorResponse](t, resp).Error)
}

func TestCancelOrderOverHTTP(t *testing.T) {
	f := newGatewayFixture(t, map[string]int{"p1": 10})
	c := f.newCartWithItem(t, "p1", 3)

	resp := f.do(t, http.MethodPost, "/orders", httpx.CheckoutRequest{
		CartID:          c.CartID,
		ShippingAddress: "1 Main St",
		Items:           []httpx.CheckoutItemDTO{{ProductID: "p1", Name: "Widget", Price: 9.50}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	o := decode[httpx.OrderResponse](t, resp)

	resp = f.do(t, http.MethodPost, fmt.Sprintf("/orders/%s/cancel", o.OrderID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "CANCELED", decode[httpx.OrderResponse](t, resp).Status)
	assert.Equal(t, 10, f.available(t, "p1"), "canceled stock returned to the pool")

	// A second cancel is a conflict, not a double refund.
	resp = f.do(t, http.MethodPost, fmt.Sprintf("/orders/%s/cancel", o.OrderID), nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "already_canceled", decode[httpx.ErrorResponse](t, resp).Error)
	assert.Equal(t, 10, f.available(t, "p1"))
}

func TestUpdateOrderStatusOverHTTP(t *testing.T) {
	f := newGatewayFixture(t, map[string]int{"p1": 10})
	c := f.newCartWithItem(t, "p1", 1)

	resp := f.do(t, http.MethodPost, "/orders", httpx.CheckoutRequest{
		CartID:          c.CartID,
		ShippingAddress: "1 Main St",
		Items:           []httpx.CheckoutItemDTO{{ProductID: "p1", Name: "Widget", Price: 5}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	o := decode[httpx.OrderResponse](t, resp)

	resp = f.do(t, http.MethodPatch, "/orders/"+o.OrderID+"/status", httpx.UpdateStatusRequest{Status: "SHIPPED"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "SHIPPED", decode[httpx.OrderResponse](t, resp).Status)

	// CANCELED is not reachable through the status endpoint.
	resp = f.do(t, http.MethodPatch, "/orders/"+o.OrderID+"/status", httpx.UpdateStatusRequest{Status: "CANCELED"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodPatch, "/orders/"+o.OrderID+"/status", httpx.UpdateStatusRequest{Status: "BOGUS"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_status", decode[httpx.ErrorResponse](t, resp).Error)
}

func TestListOrdersOverHTTP(t *testing.T) {
	f := newGatewayFixture(t, map[string]int{"p1": 10})
	c := f.newCartWithItem(t, "p1", 1)

	resp := f.do(t, http.MethodPost, "/orders", httpx.CheckoutRequest{
		CartID:          c.CartID,
		ShippingAddress: "1 Main St",
		Items:           []httpx.CheckoutItemDTO{{ProductID: "p1", Name: "Widget", Price: 5}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/orders", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]httpx.OrderResponse](t, resp), 1)
}
