// Package inventory is the HTTP client of the inventory/cabinet backend: it
// lists items per location, resolves barcodes and applies moves and
// responsible-person changes.
package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/heartmarshall/inventory-audit-backend/internal/domain"
	"github.com/heartmarshall/inventory-audit-backend/internal/telemetry"
)

const retryDelay = 500 * time.Millisecond

// Client talks to the inventory backend REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a Client. timeout bounds every single HTTP attempt.
func NewClient(baseURL, token string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.With("adapter", "inventory"),
	}
}

// GetItemsByLocation returns every item the registry places at locationID.
func (c *Client) GetItemsByLocation(ctx context.Context, locationID int64) (_ []domain.InventoryItem, err error) {
	defer func(start time.Time) { telemetry.ObserveInventory("items_by_location", start, err) }(time.Now())

	q := url.Values{"location_id": {strconv.FormatInt(locationID, 10)}}

	var items []apiItem
	if err := c.getJSON(ctx, "/items?"+q.Encode(), &items); err != nil {
		return nil, fmt.Errorf("inventory: items of location %d: %w", locationID, err)
	}

	out := make([]domain.InventoryItem, 0, len(items))
	for _, it := range items {
		out = append(out, it.toDomain())
	}

	c.log.DebugContext(ctx, "inventory items loaded",
		slog.Int64("location_id", locationID),
		slog.Int("items", len(out)),
	)
	return out, nil
}

// ResolveBarcode maps a barcode to its item. Returns domain.ErrUnknownBarcode
// when the registry knows no such barcode.
func (c *Client) ResolveBarcode(ctx context.Context, barcode string) (_ *domain.InventoryItem, err error) {
	defer func(start time.Time) { telemetry.ObserveInventory("resolve_barcode", start, err) }(time.Now())

	var item apiItem
	err = c.getJSON(ctx, "/items/by-barcode/"+url.PathEscape(barcode), &item)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("inventory: barcode %q: %w", barcode, domain.ErrUnknownBarcode)
	}
	if err != nil {
		return nil, fmt.Errorf("inventory: barcode %q: %w", barcode, err)
	}

	out := item.toDomain()
	return &out, nil
}

// GetItem returns one item. Returns domain.ErrNotFound for unknown ids.
func (c *Client) GetItem(ctx context.Context, itemID int64) (_ *domain.InventoryItem, err error) {
	defer func(start time.Time) { telemetry.ObserveInventory("get_item", start, err) }(time.Now())

	var item apiItem
	if err := c.getJSON(ctx, "/items/"+strconv.FormatInt(itemID, 10), &item); err != nil {
		return nil, fmt.Errorf("inventory: item %d: %w", itemID, err)
	}

	out := item.toDomain()
	return &out, nil
}

// MoveItem relocates an item. The idempotency key lets the backend drop replays.
func (c *Client) MoveItem(ctx context.Context, itemID, toLocationID int64, idempotencyKey string) (err error) {
	defer func(start time.Time) { telemetry.ObserveInventory("move_item", start, err) }(time.Now())

	path := "/items/" + strconv.FormatInt(itemID, 10) + "/move"
	if err := c.send(ctx, http.MethodPost, path, moveRequest{ToLocationID: toLocationID}, idempotencyKey); err != nil {
		return fmt.Errorf("inventory: move item %d to %d: %w", itemID, toLocationID, err)
	}
	return nil
}

// SetResponsible assigns the responsible person of an item; nil clears it.
func (c *Client) SetResponsible(ctx context.Context, itemID int64, userID *int64, idempotencyKey string) (err error) {
	defer func(start time.Time) { telemetry.ObserveInventory("set_responsible", start, err) }(time.Now())

	path := "/items/" + strconv.FormatInt(itemID, 10) + "/responsible"
	if err := c.send(ctx, http.MethodPut, path, responsibleRequest{UserID: userID}, idempotencyKey); err != nil {
		return fmt.Errorf("inventory: set responsible of item %d: %w", itemID, err)
	}
	return nil
}

// getJSON performs a read with one retry and decodes a 200 body into dst.
func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	resp, err := c.doWithRetry(ctx, req, path)
	if err != nil {
		c.log.ErrorContext(ctx, "inventory request failed", slog.String("path", path), slog.String("error", err.Error()))
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

// send performs a single write attempt. Writes are never retried here; the
// caller records the failure on the action.
func (c *Client) send(ctx context.Context, method, path string, body any, idempotencyKey string) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	req, err := c.newRequest(ctx, method, path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// doWithRetry executes the request with a single retry on 5xx or network errors.
func (c *Client) doWithRetry(ctx context.Context, req *http.Request, path string) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)

	shouldRetry := err != nil || (resp != nil && resp.StatusCode >= 500)
	if !shouldRetry {
		return resp, err
	}

	if ctx.Err() != nil {
		return resp, err
	}

	reason := "network error"
	if err == nil && resp != nil {
		reason = fmt.Sprintf("status %d", resp.StatusCode)
	}
	c.log.WarnContext(ctx, "inventory retry", slog.String("path", path), slog.String("reason", reason))

	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(retryDelay):
	}

	return c.httpClient.Do(req)
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	}

	var apiErr apiError
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, apiErr.Message)
	}
	return fmt.Errorf("unexpected status %d", resp.StatusCode)
}
