package reservation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jcmexdev/stock-ledger/internal/pkg/requestmeta"
	"github.com/jcmexdev/stock-ledger/internal/pkg/telemetry"
)

// HTTPClient reaches a ledger service over its HTTP API.
//
// Wire failures surface as *TransportError; per-line business failures are
// decoded from the response body back into the domain sentinels, so callers
// branch on errors.Is exactly as they would with the in-process client.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient builds a client for the ledger service at baseURL
// (e.g. "http://localhost:9092").
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *HTTPClient) Reserve(ctx context.Context, holderID string, lines []Line) ([]Result, error) {
	return c.post(ctx, "reserve", holderID, lines)
}

func (c *HTTPClient) Release(ctx context.Context, holderID string, lines []Line) ([]Result, error) {
	return c.post(ctx, "release", holderID, lines)
}

func (c *HTTPClient) Finalize(ctx context.Context, holderID string, lines []Line) ([]Result, error) {
	return c.post(ctx, "finalize", holderID, lines)
}

func (c *HTTPClient) Unsell(ctx context.Context, holderID string, lines []Line) ([]Result, error) {
	return c.post(ctx, "unsell", holderID, lines)
}

func (c *HTTPClient) post(ctx context.Context, op, holderID string, lines []Line) ([]Result, error) {
	body, err := json.Marshal(OperationRequest{HolderID: holderID, Lines: lines})
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+op, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	requestmeta.Attach(ctx, req)
	telemetry.Inject(req)

	resp, err := c.client.Do(req)
	if err != nil {
		// Timeout or unreachable: the ledger may or may not have applied
		// the operation. The caller must retry, never assume either way.
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	// Per-line failures arrive with 200; any other status means the request
	// never reached the ledger proper (bad payload, proxy error, crash).
	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var decoded OperationResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}

	results := make([]Result, len(decoded.Results))
	for i, lr := range decoded.Results {
		results[i] = lr.ToResult()
	}
	return results, nil
}
