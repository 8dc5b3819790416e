package legacy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fulfillment/internal/config"
	"fulfillment/internal/model"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned when no legacy base URL is set.
var ErrNotConfigured = errors.New("legacy backend is not configured")

// StatusError is a 4xx answer from the legacy backend. It is not retryable.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("legacy api error %d: %s", e.StatusCode, e.Body)
}

// Client talks to the existing REST backend using its original payload shapes.
type Client struct {
	baseURL    string
	http       *http.Client
	maxRetries int
	backoff    time.Duration
	log        *zap.Logger
}

func NewClient(cfg config.LegacyConfig, log *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		http:       &http.Client{Timeout: cfg.Timeout},
		maxRetries: max(cfg.MaxRetries, 0),
		backoff:    200 * time.Millisecond,
		log:        log,
	}
}

// Configured reports whether a base URL is set.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// FetchOrder loads an order with its detail lines.
func (c *Client) FetchOrder(ctx context.Context, id string) (*Order, error) {
	var out Order
	if err := c.getWithRetry(ctx, "/orders/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListDeliveries returns the deliveries for an order, or all of them when orderID is empty.
func (c *Client) ListDeliveries(ctx context.Context, orderID string) ([]Delivery, error) {
	params := url.Values{}
	if orderID != "" {
		params.Set("order_id", orderID)
	}
	var out []Delivery
	if err := c.getWithRetry(ctx, "/deliveries", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateDelivery posts a delivery. It is never retried here: after an
// ambiguous failure the caller decides whether to try again.
func (c *Client) CreateDelivery(ctx context.Context, d Delivery) (*Delivery, error) {
	var out Delivery
	if err := c.do(ctx, http.MethodPost, "/deliveries", nil, d, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) getWithRetry(ctx context.Context, path string, params url.Values, out interface{}) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.backoff
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0

	op := func() error {
		err := c.do(ctx, http.MethodGet, path, params, nil, out)
		if err != nil && model.KindOf(err) != model.KindNetwork {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.log.Debug("retrying legacy request", zap.String("path", path), zap.Duration("wait", wait), zap.Error(err))
	}
	return backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.maxRetries)), ctx), notify)
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out interface{}) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode legacy request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s %s: %w", method, path, model.NewNetworkError(err.Error()))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, model.NewNetworkError("failed to read legacy response: "+err.Error()))
	}
	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s %s: %w", method, path,
			model.NewNetworkError(fmt.Sprintf("legacy api error %d", resp.StatusCode)))
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, model.ErrNotFound)
	case resp.StatusCode >= 400:
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode legacy response: %w", err)
	}
	return nil
}
