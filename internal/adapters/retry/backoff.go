package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/longregen/promptloop/internal/domain"
)

type BackoffConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// MaxRetries counts retries after the first attempt
	MaxRetries int
	Multiplier float64
	// OnRetry is called before each wait. Optional.
	OnRetry func(attempt int, err error, wait time.Duration)
}

func DefaultConfig() BackoffConfig {
	return BackoffConfig{
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		MaxRetries:      3,
		Multiplier:      2.0,
	}
}

// LLMConfig allows three attempts in total, waiting 2s then 4s, capped at 10s
func LLMConfig() BackoffConfig {
	return BackoffConfig{
		InitialInterval: 2 * time.Second,
		MaxInterval:     10 * time.Second,
		MaxRetries:      2,
		Multiplier:      2.0,
	}
}

func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// Classified transport failures
	if errors.Is(err, domain.ErrLLMProvider) ||
		errors.Is(err, domain.ErrLLMQuota) ||
		errors.Is(err, domain.ErrLLMNetwork) ||
		errors.Is(err, domain.ErrLLMTimeout) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		// IsNotFound indicates a definitive NXDOMAIN, which shouldn't be retried
		return !dnsErr.IsNotFound
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return true
		}
		if errors.Is(opErr.Err, syscall.ECONNRESET) {
			return true
		}
		if errors.Is(opErr.Err, syscall.EPIPE) {
			return true
		}
	}

	return false
}

func IsRetryableHTTPStatus(statusCode int) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}

	if statusCode >= 500 && statusCode < 600 {
		return true
	}

	if statusCode == http.StatusRequestTimeout {
		return true
	}

	return false
}

// ShouldRetry classifies by status code when one was received, otherwise by error
func ShouldRetry(err error, statusCode int) bool {
	if statusCode > 0 && (statusCode < 200 || statusCode >= 300) {
		return IsRetryableHTTPStatus(statusCode)
	}
	return IsRetryableError(err)
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func next(cfg BackoffConfig, interval time.Duration) time.Duration {
	interval = time.Duration(float64(interval) * cfg.Multiplier)
	if interval > cfg.MaxInterval {
		interval = cfg.MaxInterval
	}
	return interval
}

// WithBackoff runs fn until it succeeds, returns a non-retryable error, or
// runs out of retries. Returned errors wrap the last error from fn.
func WithBackoff(ctx context.Context, cfg BackoffConfig, fn func() error) error {
	var lastErr error
	interval := cfg.InitialInterval

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsRetryableError(err) {
			return fmt.Errorf("non-retryable error on attempt %d: %w", attempt+1, err)
		}

		if attempt == cfg.MaxRetries {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err, interval)
		}
		if err := wait(ctx, interval); err != nil {
			return err
		}
		interval = next(cfg, interval)
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", cfg.MaxRetries, lastErr)
}

// WithBackoffHTTP is WithBackoff for calls that also report a status code.
// A received non-2xx status decides retryability even when fn returns an error for it.
func WithBackoffHTTP(ctx context.Context, cfg BackoffConfig, fn func() (int, error)) error {
	var lastErr error
	var lastStatus int
	interval := cfg.InitialInterval

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		statusCode, err := fn()
		lastStatus = statusCode
		lastErr = err

		if err == nil && (statusCode == 0 || (statusCode >= 200 && statusCode < 300)) {
			return nil
		}

		if !ShouldRetry(err, statusCode) {
			if err != nil {
				return fmt.Errorf("non-retryable error on attempt %d (status %d): %w", attempt+1, statusCode, err)
			}
			return fmt.Errorf("non-retryable status code %d on attempt %d", statusCode, attempt+1)
		}

		if attempt == cfg.MaxRetries {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err, interval)
		}
		if err := wait(ctx, interval); err != nil {
			return err
		}
		interval = next(cfg, interval)
	}

	if lastErr != nil {
		return fmt.Errorf("max retries (%d) exceeded (status %d): %w", cfg.MaxRetries, lastStatus, lastErr)
	}
	return fmt.Errorf("max retries (%d) exceeded with status code %d", cfg.MaxRetries, lastStatus)
}
