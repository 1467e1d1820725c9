package api

import (
	"context"
	"time"
)

// RetryConfig configures transport-level retries. Retries happen at a fixed
// interval; there is no backoff.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts. Zero disables retries.
	MaxRetries int
	// Delay is the wait between attempts.
	Delay time.Duration
	// RetryableOn determines if a status code should trigger a retry.
	RetryableOn func(statusCode int) bool
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries: 0,
		Delay:      time.Second,
		RetryableOn: func(statusCode int) bool {
			switch statusCode {
			case 408, 429, 500, 502, 503, 504:
				return true
			default:
				return false
			}
		},
	}
}

// ShouldRetry determines if a request that got statusCode should be retried.
func (r *RetryConfig) ShouldRetry(attempt int, statusCode int) bool {
	if attempt >= r.MaxRetries || r.RetryableOn == nil {
		return false
	}
	return r.RetryableOn(statusCode)
}

// ShouldRetryError determines if a request that failed at the transport
// level should be retried.
func (r *RetryConfig) ShouldRetryError(attempt int) bool {
	return attempt < r.MaxRetries
}

// Wait waits for the retry delay or until ctx is done.
func (r *RetryConfig) Wait(ctx context.Context) error {
	if r.Delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(r.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
