// Package orders implements the client for the external order service.
//
// The client deliberately never surfaces transport or application failures
// as Go errors to its callers in the tool layer: every failure mode is
// folded into Result.Err as a human-readable string, so the assistant can
// relay it conversationally instead of aborting the turn.
package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the order service root used when no endpoint is configured.
const DefaultBaseURL = "http://127.0.0.1:8000/data/"

// Result is the outcome of an order lookup. Exactly one of Orders or Err is
// meaningful: a non-empty Err describes why no orders could be fetched.
type Result struct {
	// Orders holds the raw order objects returned by the service.
	Orders []json.RawMessage
	// Err is a human-readable failure description, empty on success.
	Err string
}

// Failed reports whether the lookup produced an error instead of orders.
func (r Result) Failed() bool { return r.Err != "" }

// Client talks to the order service over HTTP. It is safe for concurrent use.
type Client struct {
	// baseURL is the service root, always with a trailing slash.
	baseURL string
	// client is the shared HTTP client with a sensible timeout.
	client *http.Client
}

// NewClient constructs a Client for the given base URL. An empty baseURL
// selects DefaultBaseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// OrdersByCustomer fetches all orders for the given customer ID.
func (c *Client) OrdersByCustomer(ctx context.Context, customerID int) Result {
	return c.get(ctx, fmt.Sprintf("customer/%d", customerID))
}

// OrdersByPriority fetches all orders with the given priority level.
// The priority is sent as-is; callers validate it first.
func (c *Client) OrdersByPriority(ctx context.Context, priority string) Result {
	return c.get(ctx, "priority/"+priority)
}

// get performs the lookup and folds every failure mode into Result.Err.
func (c *Client) get(ctx context.Context, path string) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return Result{Err: fmt.Sprintf("Request failed: %v", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{Err: fmt.Sprintf("Request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{Err: fmt.Sprintf("API request failed with status code: %d", resp.StatusCode)}
	}

	// The service returns a bare JSON array of orders, or an object
	// envelope carrying "orders" and/or "error" fields. Decode into
	// RawMessage first so all shapes can be inspected.
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Result{Err: fmt.Sprintf("Request failed: %v", err)}
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "{") {
		var envelope struct {
			Orders []json.RawMessage `json:"orders"`
			Error  string            `json:"error"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return Result{Err: fmt.Sprintf("Request failed: %v", err)}
		}
		if envelope.Error != "" {
			return Result{Err: envelope.Error}
		}
		if envelope.Orders != nil {
			return Result{Orders: envelope.Orders}
		}
		return Result{Err: fmt.Sprintf("Request failed: unexpected response shape: %s", trimmed)}
	}

	var orders []json.RawMessage
	if err := json.Unmarshal(raw, &orders); err != nil {
		return Result{Err: fmt.Sprintf("Request failed: %v", err)}
	}
	return Result{Orders: orders}
}

// Ping checks that the order service is reachable. Unlike the lookup
// methods it returns a real error, because readiness probes need one.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return fmt.Errorf("orders: create ping request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("orders: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("orders: service unhealthy: HTTP %d", resp.StatusCode)
	}
	return nil
}
