// Package retry runs operations with exponential backoff and a bounded
// number of attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gnames/cinder/pkg/config"
)

// Policy defines retry behavior.
type Policy struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	JitterFactor  float64
}

// New creates a policy from fetch settings.
func New(cfg config.FetchConfig) Policy {
	return Policy{
		MaxAttempts:   cfg.MaxAttempts,
		InitialDelay:  cfg.InitialBackoff,
		MaxDelay:      cfg.MaxBackoff,
		BackoffFactor: 2,
		JitterFactor:  0.2,
	}
}

// ExhaustedError is returned when every attempt failed with a
// transient error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks an error that must not be retried.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent checks if an error was marked with Permanent.
func IsPermanent(err error) bool {
	var pErr *permanentError
	return errors.As(err, &pErr)
}

// Notify is called after a failed attempt, before waiting for the
// next one.
type Notify func(attempt int, err error, wait time.Duration)

// Do runs op until it succeeds, returns a permanent error, the context
// is cancelled or the attempts are used up. Permanent errors are
// returned unwrapped, used up attempts return *ExhaustedError.
func (p Policy) Do(
	ctx context.Context,
	op func(attempt int) error,
	notify Notify,
) error {
	var attempt int
	var lastErr error
	var permanent bool

	operation := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		attempt++
		err := op(attempt)
		if err == nil {
			return nil
		}
		lastErr = err
		var pErr *permanentError
		if errors.As(err, &pErr) {
			permanent = true
			return backoff.Permanent(pErr.err)
		}
		return err
	}

	onRetry := func(err error, wait time.Duration) {
		if notify != nil {
			notify(attempt, err, wait)
		}
	}

	err := backoff.RetryNotify(operation, p.backOff(ctx), onRetry)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case permanent:
		return err
	default:
		return &ExhaustedError{Attempts: attempt, Err: lastErr}
	}
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialDelay > 0 {
		b.InitialInterval = p.InitialDelay
	}
	if p.MaxDelay > 0 {
		b.MaxInterval = p.MaxDelay
	}
	if p.BackoffFactor > 1 {
		b.Multiplier = p.BackoffFactor
	}
	b.RandomizationFactor = p.JitterFactor
	// the number of attempts limits retries, not the elapsed time
	b.MaxElapsedTime = 0
	b.Reset()

	retries := max(p.MaxAttempts-1, 0)
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}
