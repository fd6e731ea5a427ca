// Package reservation defines the contract a calling service uses to claim,
// release and finalize stock against the ledger, without caring whether the
// ledger is in-process or behind a network boundary.
//
// Business failures (insufficient stock, desync signals) come back per line
// inside the results. The error return is reserved for transport problems —
// timeout, unreachable service — whose outcome is ambiguous and which the
// caller must handle by idempotent retry, never by assuming success.
package reservation

import (
	"context"
	"fmt"

	"github.com/jcmexdev/stock-ledger/internal/ledger/domain"
)

// Line is one (product, quantity) pair of a multi-item operation.
type Line struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Result is the outcome for one line. Err is nil on success, otherwise one
// of the domain sentinels (match with errors.Is).
type Result struct {
	Line
	Err error
}

// Client is the synchronous reservation contract.
//
// Lines are processed in the order submitted; a line's business failure does
// not stop later lines (each product's ledger operation is independent).
// A transport failure aborts the remainder and is returned as the error —
// results for lines already attempted are still returned.
type Client interface {
	Reserve(ctx context.Context, holderID string, lines []Line) ([]Result, error)
	Release(ctx context.Context, holderID string, lines []Line) ([]Result, error)
	Finalize(ctx context.Context, holderID string, lines []Line) ([]Result, error)
	Unsell(ctx context.Context, holderID string, lines []Line) ([]Result, error)
}

// TransportError marks a failure to reach the ledger (as opposed to the
// ledger refusing the operation). The outcome of the attempted call is
// unknown; retry idempotently.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("ledger unreachable during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// FirstError returns the first per-line business failure, or nil.
func FirstError(results []Result) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}

// Wire types shared by the HTTP client and the ledger service's HTTP API.
// Per-line errors travel as the code strings from the domain package.

type OperationRequest struct {
	HolderID string `json:"holder_id"`
	Lines    []Line `json:"lines"`
}

type OperationResponse struct {
	Results []LineResult `json:"results"`
}

type LineResult struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ToResult maps a wire result back to a Result with a domain sentinel.
func (lr LineResult) ToResult() Result {
	res := Result{Line: Line{ProductID: lr.ProductID, Quantity: lr.Quantity}}
	if lr.ErrorCode == "" {
		return res
	}
	if sentinel := domain.ErrorFromCode(lr.ErrorCode); sentinel != nil {
		res.Err = fmt.Errorf("%s: %w", lr.Message, sentinel)
	} else {
		res.Err = fmt.Errorf("ledger error %s: %s", lr.ErrorCode, lr.Message)
	}
	return res
}
