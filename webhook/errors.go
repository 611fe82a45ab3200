package webhook

import "errors"

var (
	// ErrInvalidEndpoint is returned when the endpoint is not an http(s) URL.
	ErrInvalidEndpoint = errors.New("invalid webhook endpoint")

	// ErrInvalidTimeout is returned when a non-positive timeout is configured.
	ErrInvalidTimeout = errors.New("timeout must be positive")

	// ErrDeliveryFailed is returned when a payload could not be delivered.
	ErrDeliveryFailed = errors.New("webhook delivery failed")
)
