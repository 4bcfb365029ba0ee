package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"ecommerce-dashboard/internal/observability"
)

var errFlaky = errors.New("flaky")

func isFlaky(err error) bool { return errors.Is(err, errFlaky) }

func fastPolicy(breaker bool) Policy {
	return Policy{
		Attempts:  3,
		BaseDelay: time.Millisecond,
		MaxDelay:  2 * time.Millisecond,
		Breaker:   breaker,
		OpenFor:   time.Minute,
	}
}

func TestRetrier_Do(t *testing.T) {
	tests := []struct {
		name         string
		failures     int
		err          error
		retryable    func(error) bool
		wantErr      error
		wantAttempts int
	}{
		{"first try", 0, errFlaky, isFlaky, nil, 1},
		{"succeeds on third attempt", 2, errFlaky, isFlaky, nil, 3},
		{"gives up after max attempts", 5, errFlaky, isFlaky, errFlaky, 3},
		{"permanent error not retried", 5, errFlaky, func(error) bool { return false }, errFlaky, 1},
		{"nil classifier retries nothing", 5, errFlaky, nil, errFlaky, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New("boundary", fastPolicy(false), observability.Discard())

			attempts := 0
			err := r.Do(context.Background(), func(context.Context) error {
				attempts++
				if attempts <= tt.failures {
					return tt.err
				}
				return nil
			}, tt.retryable)

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Do() error = %v, want %v", err, tt.wantErr)
			}
			if attempts != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", attempts, tt.wantAttempts)
			}
		})
	}
}

func TestRetrier_OpensAfterConsecutiveFailures(t *testing.T) {
	p := fastPolicy(true)
	p.Attempts = 1
	r := New("boundary", p, observability.Discard())

	calls := 0
	fail := func(context.Context) error {
		calls++
		return errFlaky
	}

	for i := 0; i < tripAfter; i++ {
		if err := r.Do(context.Background(), fail, nil); !errors.Is(err, errFlaky) {
			t.Fatalf("call %d error = %v, want %v", i, err, errFlaky)
		}
	}

	err := r.Do(context.Background(), fail, nil)
	if !IsOpen(err) {
		t.Fatalf("expected open breaker, got %v", err)
	}
	if calls != tripAfter {
		t.Errorf("calls = %d, want %d", calls, tripAfter)
	}
}

func TestRetrier_CancellationDoesNotTrip(t *testing.T) {
	r := New("boundary", fastPolicy(true), observability.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < tripAfter+1; i++ {
		err := r.Do(ctx, func(context.Context) error {
			t.Error("callback should not run with a cancelled context")
			return nil
		}, isFlaky)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Do() error = %v, want context.Canceled", err)
		}
	}
}

func TestNew_NormalizesPolicy(t *testing.T) {
	r := New("boundary", Policy{BaseDelay: time.Second}, nil)
	if r.policy.Attempts != 1 || r.policy.MaxDelay != time.Second || r.logger == nil {
		t.Errorf("policy = %+v", r.policy)
	}
}
