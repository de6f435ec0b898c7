// Package resilience provides retry with exponential backoff for remote
// dataset sources.
package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"net"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Config controls retry behavior. Zero values take defaults.
type Config struct {
	// Attempts is the total number of tries including the first. Default: 3.
	Attempts int

	// BaseDelay is the backoff before the first retry. Default: 500ms.
	BaseDelay time.Duration

	// MaxDelay caps the backoff. Default: 30s.
	MaxDelay time.Duration

	// Jitter is the random fraction added to each delay, in [0, 1).
	// Default: 0.25.
	Jitter float64

	// Retryable overrides the transient-error check. Nil means IsTransient.
	Retryable func(error) bool
}

func (c Config) withDefaults() Config {
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 500 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.Jitter <= 0 {
		c.Jitter = 0.25
	}
	return c
}

func (c Config) delay(attempt int) time.Duration {
	d := float64(c.BaseDelay) * math.Pow(2, float64(attempt))
	if d > float64(c.MaxDelay) {
		d = float64(c.MaxDelay)
	}
	d += d * c.Jitter * rand.Float64()
	return time.Duration(d)
}

// Do runs fn until it succeeds, the error is permanent, the context is
// canceled, or attempts run out. The last error is returned.
func Do(ctx context.Context, cfg Config, op string, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal is Do for functions that return a value.
func DoVal[T any](ctx context.Context, cfg Config, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()
	retryable := cfg.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < cfg.Attempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !retryable(err) || attempt == cfg.Attempts-1 {
			break
		}

		zap.L().Warn("resilience: retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)

		t := time.NewTimer(cfg.delay(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, lastErr
		case <-t.C:
		}
	}
	return zero, lastErr
}

// Transient marks an error as safe to retry.
type Transient struct {
	Err error
}

func (e *Transient) Error() string { return e.Err.Error() }
func (e *Transient) Unwrap() error { return e.Err }

// MarkTransient wraps err so IsTransient reports true for it.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &Transient{Err: err}
}

// IsTransient reports whether err looks safe to retry: an explicit
// Transient marker, a network timeout, a connection-level failure, or a
// message matching common transport hiccups.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var tr *Transient
	if errors.As(err, &tr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"no such host",
		"i/o timeout",
		"tls handshake timeout",
		"server closed idle connection",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// RetryableStatus reports whether an HTTP status code is worth retrying.
func RetryableStatus(code int) bool {
	switch code {
	case 408, 429, 500, 502, 503, 504:
		return true
	}
	return false
}
