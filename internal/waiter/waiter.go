// Package waiter polls a resource until it reaches a target state.
package waiter

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/cenkalti/backoff/v5"
)

var (
	// ErrFailureState is returned when the resource reports a terminal
	// state that is not a target.
	ErrFailureState = errors.New("resource reached a failure state")

	// ErrTimeout is returned when the target state was not reached in time.
	ErrTimeout = errors.New("timed out waiting for resource")

	errPending = errors.New("resource not ready")
)

// CheckFunc reports the current state of the resource.
type CheckFunc func(ctx context.Context) (string, error)

// Options controls polling.
type Options struct {
	Target  []string
	Failure []string

	Interval    time.Duration
	MaxInterval time.Duration
	Timeout     time.Duration

	// OnPoll, if set, is called with every observed state.
	OnPoll func(state string)
}

// Defaults fills zero fields with the values used across the examples.
func (o Options) Defaults() Options {
	if o.Interval <= 0 {
		o.Interval = 2 * time.Second
	}
	if o.MaxInterval <= 0 {
		o.MaxInterval = 20 * time.Second
	}
	if o.MaxInterval < o.Interval {
		o.MaxInterval = o.Interval
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Minute
	}
	return o
}

type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// Retryable marks a CheckFunc error as transient. Unmarked errors end the
// wait immediately.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// Until polls check until it returns a target state. It returns the last
// observed state together with any error.
func Until(ctx context.Context, opts Options, check CheckFunc) (string, error) {
	if len(opts.Target) == 0 {
		return "", errors.New("waiter: no target state")
	}
	opts = opts.Defaults()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = opts.Interval
	b.MaxInterval = opts.MaxInterval
	b.Multiplier = 1.5
	b.RandomizationFactor = 0.2

	var last string
	state, err := backoff.Retry(ctx, func() (string, error) {
		state, err := check(ctx)
		if err != nil {
			var r *retryableError
			if errors.As(err, &r) {
				return state, err
			}
			return state, backoff.Permanent(err)
		}

		last = state
		if opts.OnPoll != nil {
			opts.OnPoll(state)
		}

		switch {
		case slices.Contains(opts.Target, state):
			return state, nil
		case slices.Contains(opts.Failure, state):
			return state, backoff.Permanent(fmt.Errorf("%w: %s", ErrFailureState, state))
		default:
			return state, errPending
		}
	}, backoff.WithBackOff(b), backoff.WithMaxElapsedTime(opts.Timeout))

	if err == nil {
		return state, nil
	}
	if errors.Is(err, errPending) {
		return last, fmt.Errorf("%w after %s (last state %q)", ErrTimeout, opts.Timeout, last)
	}
	var r *retryableError
	if errors.As(err, &r) {
		return last, fmt.Errorf("%w after %s: %w", ErrTimeout, opts.Timeout, r.err)
	}
	return last, err
}
