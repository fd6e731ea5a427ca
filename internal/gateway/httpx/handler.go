// Package httpx is the customer-facing request layer: carts and orders.
// It owns HTTP concerns only — validation, status mapping, JSON — and
// delegates every stock decision to the cart/order services, which in turn
// talk to the ledger.
package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jcmexdev/stock-ledger/internal/cart"
	"github.com/jcmexdev/stock-ledger/internal/coordinator"
	"github.com/jcmexdev/stock-ledger/internal/ledger/domain"
	"github.com/jcmexdev/stock-ledger/internal/order"
	"github.com/jcmexdev/stock-ledger/internal/reservation"
)

type Handler struct {
	carts  *cart.Service
	orders *order.Service
}

func NewHandler(carts *cart.Service, orders *order.Service) *Handler {
	return &Handler{carts: carts, orders: orders}
}

// ── Carts ────────────────────────────────────────────────────────────────

func (h *Handler) CreateCart(w http.ResponseWriter, r *http.Request) {
	var req CreateCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.CustomerID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "customer_id is required")
		return
	}

	c, err := h.carts.Create(r.Context(), req.CustomerID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapCart(c))
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapCart(c))
}

func (h *Handler) GetCartItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.carts.Items(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	out := make([]CartItemDTO, 0, len(items))
	for productID, qty := range items {
		out = append(out, CartItemDTO{ProductID: productID, Quantity: qty})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "product_id is required")
		return
	}

	c, err := h.carts.AddItem(r.Context(), chi.URLParam(r, "id"), req.ProductID, req.Quantity)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapCart(c))
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	c, err := h.carts.UpdateItemQuantity(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "productID"), req.Quantity)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapCart(c))
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.RemoveItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "productID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapCart(c))
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.ClearCart(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		// Failed lines were retained; report the partial state honestly.
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapCart(c))
}

// ── Orders ───────────────────────────────────────────────────────────────

// Checkout converts a cart into an order: every cart line's reservation is
// finalized (all-or-compensate) and only then does the order exist.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.CartID == "" || req.ShippingAddress == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "cart_id and shipping_address are required")
		return
	}

	c, err := h.carts.Get(r.Context(), req.CartID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if len(c.Items) == 0 {
		writeError(w, http.StatusBadRequest, "empty_cart", "cart has no items to check out")
		return
	}

	pricing := make(map[string]CheckoutItemDTO, len(req.Items))
	for _, it := range req.Items {
		if it.Name == "" || it.Price <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_item", "name and a positive price are required per item")
			return
		}
		pricing[it.ProductID] = it
	}

	items := make([]order.OrderItem, 0, len(c.Items))
	for productID, qty := range c.Items {
		info, ok := pricing[productID]
		if !ok {
			writeError(w, http.StatusBadRequest, "missing_item_pricing", "no name/price supplied for product "+productID)
			return
		}
		items = append(items, order.OrderItem{
			ProductID: productID,
			Name:      info.Name,
			Quantity:  qty,
			Price:     info.Price,
		})
	}

	o, err := h.orders.CreateFromReservedItems(r.Context(), order.CreateOrder{
		CustomerID:      c.CustomerID,
		HolderID:        c.HolderID(),
		Items:           items,
		PaymentMethod:   req.PaymentMethod,
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	// The cart's holds were consumed by finalization; empty it so cart and
	// ledger keep agreeing. The order already exists either way.
	if err := h.carts.CompleteCheckout(r.Context(), req.CartID); err != nil {
		slog.ErrorContext(r.Context(), "order created but cart not emptied",
			"cart_id", req.CartID, "order_id", o.ID, "error", err)
	}

	writeJSON(w, http.StatusCreated, mapOrder(o))
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(o))
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.orders.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	out := make([]OrderResponse, len(list))
	for i, o := range list {
		out[i] = mapOrder(o)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	next, err := order.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_status", err.Error())
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), next)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(o))
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(o))
}

// ── Mapping & errors ─────────────────────────────────────────────────────

func mapCart(c *cart.Cart) CartResponse {
	items := make([]CartItemDTO, 0, len(c.Items))
	for productID, qty := range c.Items {
		items = append(items, CartItemDTO{ProductID: productID, Quantity: qty})
	}
	return CartResponse{
		CartID:     c.ID,
		CustomerID: c.CustomerID,
		CreatedAt:  c.CreatedAt,
		Items:      items,
	}
}

func mapOrder(o *order.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = OrderItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.Price,
		}
	}
	return OrderResponse{
		OrderID:         o.ID,
		CustomerID:      o.CustomerID,
		OrderDate:       o.OrderDate,
		Status:          string(o.Status),
		TotalAmount:     o.TotalAmount,
		PaymentMethod:   o.PaymentMethod,
		ShippingAddress: o.ShippingAddress,
		Items:           items,
	}
}

// writeDomainError maps service errors onto HTTP statuses. The ordering
// matters: compensation failures and transport failures are checked before
// the plain business sentinels they may wrap.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var compErr *coordinator.CompensationError
	if errors.As(err, &compErr) {
		// Lost consistency — stock partially sold, rollback failed. Never
		// masked as an ordinary failure.
		slog.ErrorContext(r.Context(), "CRITICAL: compensation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "compensation_failed", err.Error())
		return
	}

	var transportErr *reservation.TransportError
	if errors.As(err, &transportErr) {
		writeError(w, http.StatusBadGateway, "ledger_unreachable", err.Error())
		return
	}

	switch {
	case errors.Is(err, cart.ErrCartNotFound),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, domain.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrInsufficientStock):
		writeError(w, http.StatusConflict, domain.CodeInsufficientStock, err.Error())
	case errors.Is(err, domain.ErrNoSuchReservation),
		errors.Is(err, domain.ErrQuantityMismatch),
		errors.Is(err, domain.ErrOverRelease):
		// Caller/ledger desync — a hard error, surfaced as-is.
		writeError(w, http.StatusConflict, domain.ErrorCode(err), err.Error())
	case errors.Is(err, order.ErrAlreadyCanceled):
		writeError(w, http.StatusConflict, "already_canceled", err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, order.ErrNoItems):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: msg})
}
