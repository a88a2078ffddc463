package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

// ErrExhausted is wrapped by the error returned when every attempt failed.
var ErrExhausted = errors.New("retries exhausted")

// Config controls WithExponentialBackoff.
type Config struct {
	// Retries is the number of attempts after the first one.
	Retries int

	// Backoff spaces the attempts. Steps is ignored; Cap bounds the delay.
	Backoff wait.Backoff

	// OnRetry is called after each failed attempt that will be retried.
	OnRetry func(attempt int, err error)
}

// Option is a functional option for retry configuration.
type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		Retries: 5,
		Backoff: wait.Backoff{Duration: time.Second, Factor: 2, Cap: 30 * time.Second},
	}
}

// WithExponentialBackoff runs operation until it succeeds, the retries are
// spent or ctx is done. Errors wrapped with Fatal end the loop at once.
func WithExponentialBackoff(ctx context.Context, operation func() error, opts ...Option) error {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	backoff := cfg.Backoff
	backoff.Steps = math.MaxInt32

	for attempt := 1; ; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		if IsFatal(err) {
			return fmt.Errorf("fatal error (not retrying): %w", err)
		}
		if attempt > cfg.Retries {
			return fmt.Errorf("operation failed after %d attempts: %w: %w", attempt, ErrExhausted, err)
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}
		timer := time.NewTimer(backoff.Step())
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("context cancelled after %d attempts: %w", attempt, ctx.Err())
		case <-timer.C:
		}
	}
}

// WithMaxRetries sets the number of retries after the first attempt.
func WithMaxRetries(n int) Option {
	return func(c *Config) { c.Retries = n }
}

// WithInitialDelay sets the delay before the first retry.
func WithInitialDelay(d time.Duration) Option {
	return func(c *Config) { c.Backoff.Duration = d }
}

// WithMaxDelay caps the delay between retries.
func WithMaxDelay(d time.Duration) Option {
	return func(c *Config) { c.Backoff.Cap = d }
}

// WithJitter randomizes each delay by up to factor times its length.
func WithJitter(factor float64) Option {
	return func(c *Config) { c.Backoff.Jitter = factor }
}

// WithConstantDelay spaces every retry by exactly d.
func WithConstantDelay(d time.Duration) Option {
	return func(c *Config) {
		c.Backoff = wait.Backoff{Duration: d, Cap: d}
	}
}

// WithOnRetry registers a callback invoked after each failed attempt that
// will be retried.
func WithOnRetry(fn func(attempt int, err error)) Option {
	return func(c *Config) { c.OnRetry = fn }
}

type fatalError struct{ err error }

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// Fatal marks err as not worth retrying. Fatal(nil) is nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// IsFatal reports whether err or anything it wraps was marked with Fatal.
func IsFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}
