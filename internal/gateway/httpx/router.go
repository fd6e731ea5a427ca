package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jcmexdev/stock-ledger/internal/pkg/requestmeta"
	"github.com/jcmexdev/stock-ledger/internal/pkg/telemetry"
)

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestmeta.Middleware)
	r.Use(telemetry.Middleware("api-gateway"))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/carts", func(r chi.Router) {
		r.Post("/", handler.CreateCart)
		r.Get("/{id}", handler.GetCart)
		r.Get("/{id}/items", handler.GetCartItems)
		r.Post("/{id}/items", handler.AddItem)
		r.Put("/{id}/items/{productID}", handler.UpdateItem)
		r.Delete("/{id}/items/{productID}", handler.RemoveItem)
		r.Delete("/{id}/items", handler.ClearCart)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", handler.Checkout)
		r.Get("/", handler.ListOrders)
		r.Get("/{id}", handler.GetOrder)
		r.Patch("/{id}/status", handler.UpdateOrderStatus)
		r.Post("/{id}/cancel", handler.CancelOrder)
	})

	return r
}
