// Package httpapi exposes the stock ledger to other services over HTTP.
//
// Business failures are reported per line inside a 200 response; non-200
// statuses are reserved for requests that never reached the ledger proper,
// so the client can tell "the ledger said no" apart from "the call failed".
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jcmexdev/stock-ledger/internal/ledger"
	"github.com/jcmexdev/stock-ledger/internal/ledger/domain"
	"github.com/jcmexdev/stock-ledger/internal/pkg/cache"
	"github.com/jcmexdev/stock-ledger/internal/reservation"
)

// availabilityTTL bounds how stale a cached availability read may be.
// Writes invalidate the key as well; the TTL covers missed invalidations.
const availabilityTTL = 2 * time.Second

// Handler serves the reservation operations and the product read/seed
// endpoints. cache may be nil — availability reads then always hit the store.
type Handler struct {
	ledger *ledger.Ledger
	cache  cache.Cache
}

func NewHandler(l *ledger.Ledger, c cache.Cache) *Handler {
	return &Handler{ledger: l, cache: c}
}

func (h *Handler) Reserve(w http.ResponseWriter, r *http.Request) {
	h.operation(w, r, "reserve", h.ledger.Reserve)
}

func (h *Handler) Release(w http.ResponseWriter, r *http.Request) {
	h.operation(w, r, "release", h.ledger.Release)
}

func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	h.operation(w, r, "finalize", h.ledger.Finalize)
}

func (h *Handler) Unsell(w http.ResponseWriter, r *http.Request) {
	h.operation(w, r, "unsell", h.ledger.Unsell)
}

// operation decodes a multi-line request and applies op line by line, in the
// order submitted. Each line is independent: a failed line does not stop the
// rest, and its failure travels back as a per-line error code.
func (h *Handler) operation(
	w http.ResponseWriter,
	r *http.Request,
	name string,
	op func(ctx context.Context, productID, holderID string, qty int) error,
) {
	var req reservation.OperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.HolderID == "" || len(req.Lines) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "holder_id and lines are required")
		return
	}

	resp := reservation.OperationResponse{Results: make([]reservation.LineResult, len(req.Lines))}
	for i, line := range req.Lines {
		lr := reservation.LineResult{ProductID: line.ProductID, Quantity: line.Quantity}
		if err := op(r.Context(), line.ProductID, req.HolderID, line.Quantity); err != nil {
			code := domain.ErrorCode(err)
			if code == "" {
				// Store failure, not a business verdict: the whole request
				// fails so the caller treats it as an ambiguous outcome.
				slog.ErrorContext(r.Context(), "ledger store failure",
					"op", name, "holder_id", req.HolderID, "product_id", line.ProductID, "error", err)
				writeError(w, http.StatusInternalServerError, "store_failure", err.Error())
				return
			}
			lr.ErrorCode = code
			lr.Message = err.Error()
		} else {
			h.invalidate(r.Context(), line.ProductID)
		}
		resp.Results[i] = lr
	}

	slog.InfoContext(r.Context(), "ledger operation applied",
		"op", name, "holder_id", req.HolderID, "lines", len(req.Lines))
	writeJSON(w, http.StatusOK, resp)
}

// GetProduct returns the product's stock counters, served from the redis
// cache when a fresh entry exists.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	if h.cache != nil {
		if cached, err := h.cache.Get(r.Context(), h.cache.GenerateKey("availability", productID)); err == nil && cached != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(cached))
			return
		}
	}

	p, err := h.ledger.Availability(r.Context(), productID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, domain.CodeProductNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "store_failure", err.Error())
		return
	}

	resp := ProductResponse{
		ProductID:  p.ProductID,
		TotalStock: p.TotalStock,
		Reserved:   p.Reserved,
		Available:  p.Available(),
	}
	if h.cache != nil {
		if body, err := json.Marshal(resp); err == nil {
			_ = h.cache.Set(r.Context(), h.cache.GenerateKey("availability", productID), string(body), availabilityTTL)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// SetStock creates the product or adjusts its total stock (seeding/admin).
func (h *Handler) SetStock(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	var req SetStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	if err := h.ledger.SetStock(r.Context(), productID, req.TotalStock); err != nil {
		if code := domain.ErrorCode(err); code != "" {
			writeError(w, http.StatusBadRequest, code, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "store_failure", err.Error())
		return
	}

	h.invalidate(r.Context(), productID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) invalidate(ctx context.Context, productID string) {
	if h.cache == nil {
		return
	}
	// Best effort: the TTL covers a missed invalidation.
	_ = h.cache.Del(ctx, h.cache.GenerateKey("availability", productID))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: msg})
}
