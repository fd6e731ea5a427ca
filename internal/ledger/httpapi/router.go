package httpapi

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
	r.Use(telemetry.Middleware("ledger-service"))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/reserve", handler.Reserve)
	r.Post("/release", handler.Release)
	r.Post("/finalize", handler.Finalize)
	r.Post("/unsell", handler.Unsell)
	r.Get("/products/{id}", handler.GetProduct)
	r.Put("/products/{id}", handler.SetStock)
	return r
}
