package shopify

import "time"

// RetryConfig bounds per-request retries against the Shopify Admin API.
// Only transport failures are retried; an HTTP error status is final.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
}

// DefaultRetryConfig returns the retry policy used in production.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    4,
		InitialBackoff: 500 * time.Millisecond,
	}
}
