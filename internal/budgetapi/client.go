// Package budgetapi is the HTTP client for the remote budget service.
//
// The service exposes /transactions and /summary as JSON over HTTP. Query
// parameters are only sent when set, there is no authentication, no
// pagination and no retrying: a failed call surfaces immediately.
package budgetapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"budget/internal/core"
)

const (
	msgFetchTransactions = "Failed to fetch transactions"
	msgFetchSummary      = "Failed to fetch summary"
	msgCreate            = "Failed to create transaction"
	msgDelete            = "Failed to delete transaction"

	maxBodyBytes = 4 << 20
)

// Client manages the endpoints of the budget service.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
}

// New creates a client for the service at baseURL.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return &Client{httpClient: httpClient, baseURL: u}, nil
}

// BaseURL returns the service root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ListTransactions returns the transactions matching f in service order.
func (c *Client) ListTransactions(ctx context.Context, f core.Filter) ([]core.Transaction, error) {
	var out []core.Transaction
	if err := c.getJSON(ctx, "list_transactions", c.endpoint(f.Query(), "transactions"), msgFetchTransactions, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []core.Transaction{}
	}
	return out, nil
}

// GetSummary returns the totals for the transactions matching f.
func (c *Client) GetSummary(ctx context.Context, f core.Filter) (core.Summary, error) {
	var out core.Summary
	if err := c.getJSON(ctx, "get_summary", c.endpoint(f.Query(), "summary"), msgFetchSummary, &out); err != nil {
		return core.Summary{}, err
	}
	return out, nil
}

// CreateTransaction submits in and returns the stored transaction.
func (c *Client) CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("marshal transaction: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(nil, "transactions"), bytes.NewReader(body))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.Transaction{}, &NetworkError{Op: "create_transaction", Message: msgCreate, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return core.Transaction{}, &NetworkError{Op: "create_transaction", StatusCode: resp.StatusCode, Message: msgCreate, Err: err}
	}
	if !isSuccess(resp.StatusCode) {
		return core.Transaction{}, &ValidationError{StatusCode: resp.StatusCode, Message: detailMessage(raw, msgCreate)}
	}

	var out core.Transaction
	if err := json.Unmarshal(raw, &out); err != nil {
		return core.Transaction{}, &NetworkError{Op: "create_transaction", StatusCode: resp.StatusCode, Message: msgCreate, Err: fmt.Errorf("decode response: %w", err)}
	}
	slog.DebugContext(ctx, "Transaction created",
		"transaction_id", out.ID,
		"type", out.Type,
		"category", out.Category)
	return out, nil
}

// DeleteTransaction removes the transaction with the given id.
func (c *Client) DeleteTransaction(ctx context.Context, id int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint(nil, "transactions", strconv.FormatInt(id, 10)), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: "delete_transaction", Message: msgDelete, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	if !isSuccess(resp.StatusCode) {
		return &NetworkError{Op: "delete_transaction", StatusCode: resp.StatusCode, Message: msgDelete}
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, op, target, msg string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Message: msg, Err: err}
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return &NetworkError{Op: op, StatusCode: resp.StatusCode, Message: msg}
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return &NetworkError{Op: op, StatusCode: resp.StatusCode, Message: msg, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) endpoint(q url.Values, elem ...string) string {
	u := c.baseURL.JoinPath(elem...)
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}

// detailMessage extracts the service's error detail. FastAPI sends either
// {"detail": "text"} or, for request validation, {"detail": [{"msg": ...}]}.
func detailMessage(body []byte, fallback string) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return fallback
	}
	var text string
	if err := json.Unmarshal(payload.Detail, &text); err == nil {
		if text == "" {
			return fallback
		}
		return text
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil && len(items) > 0 && items[0].Msg != "" {
		return items[0].Msg
	}
	return fallback
}
