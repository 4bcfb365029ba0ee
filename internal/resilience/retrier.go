// Package resilience retries calls to a remote dependency with exponential backoff behind
// a circuit breaker.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// tripAfter consecutive failed calls open the breaker.
const tripAfter = 3

// Policy controls retries and the breaker for one dependency.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Breaker   bool
	OpenFor   time.Duration
}

// Retrier calls one remote dependency. The delay doubles after every failed attempt,
// capped at MaxDelay. Context cancellation never counts against the breaker.
type Retrier struct {
	name    string
	policy  Policy
	logger  *slog.Logger
	breaker *gobreaker.CircuitBreaker[struct{}]
}

func New(name string, p Policy, logger *slog.Logger) *Retrier {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Retrier{name: name, policy: p, logger: logger}
	if p.Breaker {
		r.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     p.OpenFor,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= tripAfter
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state change", "dependency", name, "from", from.String(), "to", to.String())
			},
		})
	}
	return r
}

// Do runs fn until it succeeds, fails with an error retryable rejects, or runs out of
// attempts. A nil retryable retries nothing.
func (r *Retrier) Do(ctx context.Context, fn func(context.Context) error, retryable func(error) bool) error {
	if r.breaker == nil {
		return r.retry(ctx, fn, retryable)
	}
	_, err := r.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, r.retry(ctx, fn, retryable)
	})
	return err
}

func (r *Retrier) retry(ctx context.Context, fn func(context.Context) error, retryable func(error) bool) error {
	delay := r.policy.BaseDelay
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil || attempt >= r.policy.Attempts || retryable == nil || !retryable(err) {
			return err
		}

		r.logger.Warn("retrying",
			"dependency", r.name,
			"attempt", attempt,
			"of", r.policy.Attempts,
			"delay", delay,
			"error", err,
		)
		if delay > 0 {
			select {
			case <-ctx.Done():
				return err
			case <-time.After(delay):
			}
		}
		delay = min(delay*2, r.policy.MaxDelay)
	}
}

// IsOpen reports whether the breaker rejected the call without running it.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
