package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
)

// DefaultTimeout bounds a single delivery attempt.
const DefaultTimeout = 30 * time.Second

// Notifier delivers JSON payloads to a webhook endpoint.
// Transient failures are retried with exponential backoff; every delivery
// carries a unique X-Delivery-Id header so receivers can deduplicate.
type Notifier struct {
	endpoint string
	client   *retryablehttp.Client
	logger   *slog.Logger
}

// Option configures a Notifier.
type Option func(*Notifier) error

// WithTimeout sets the per-attempt timeout.
// Default is DefaultTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(n *Notifier) error {
		if timeout <= 0 {
			return ErrInvalidTimeout
		}
		n.client.HTTPClient.Timeout = timeout
		return nil
	}
}

// WithRetryMax sets the maximum number of retries per delivery.
// Default is 3.
func WithRetryMax(retries int) Option {
	return func(n *Notifier) error {
		if retries < 0 {
			retries = 0
		}
		n.client.RetryMax = retries
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(n *Notifier) error {
		if logger == nil {
			logger = slog.Default()
		}
		n.logger = logger
		n.client.Logger = retryablehttp.LeveledLogger(logger)
		return nil
	}
}

// NewNotifier creates a notifier for the given endpoint URL.
func NewNotifier(endpoint string, opts ...Option) (*Notifier, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEndpoint, endpoint)
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.HTTPClient.Timeout = DefaultTimeout
	client.Logger = retryablehttp.LeveledLogger(slog.Default())

	n := &Notifier{
		endpoint: endpoint,
		client:   client,
		logger:   slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(n); err != nil {
			return nil, err
		}
	}

	return n, nil
}

// Deliver posts the payload as JSON to the endpoint.
// Returns an error when the payload cannot be marshalled, the request
// exhausts its retries, or the endpoint answers with a non-2xx status.
func (n *Notifier) Deliver(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshalling webhook payload: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, "POST", n.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}

	deliveryId := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-Id", deliveryId)

	logger := n.logger.With("delivery_id", deliveryId)
	logger.Info("delivering webhook", "endpoint", n.endpoint, "bytes", len(body))

	resp, err := n.client.Do(req)
	if err != nil {
		logger.Error("webhook delivery failed", "err", err)
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Error("webhook rejected", "status", resp.StatusCode)
		return fmt.Errorf("%w: endpoint returned %d", ErrDeliveryFailed, resp.StatusCode)
	}

	logger.Info("webhook delivered", "status", resp.StatusCode)
	return nil
}
