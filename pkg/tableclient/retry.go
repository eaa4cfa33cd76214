package tableclient

import (
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/mesh-intelligence/tablestore/pkg/types"
)

type noRetry struct{}

func (noRetry) Next(int, error) (time.Duration, bool) { return 0, false }

// NoRetry never retries. It is the default policy.
var NoRetry types.RetryPolicy = noRetry{}

// BackoffPolicy retries transient failures on the schedule of a go-retry
// Backoff. NewBackoff is called once per decision and advanced to the
// current attempt, so the policy holds no state between calls.
type BackoffPolicy struct {
	NewBackoff func() retry.Backoff

	// Retryable decides which failures are retried. Nil means
	// types.IsTransient.
	Retryable func(error) bool
}

// NewBackoffPolicy retries transient failures with Fibonacci backoff
// starting at base, at most maxRetries times.
func NewBackoffPolicy(base time.Duration, maxRetries uint64) *BackoffPolicy {
	return &BackoffPolicy{
		NewBackoff: func() retry.Backoff {
			return retry.WithMaxRetries(maxRetries, retry.NewFibonacci(base))
		},
	}
}

// Next implements types.RetryPolicy.
func (p *BackoffPolicy) Next(attempt int, err error) (time.Duration, bool) {
	if p == nil || p.NewBackoff == nil || attempt < 1 {
		return 0, false
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = types.IsTransient
	}
	if !retryable(err) {
		return 0, false
	}
	b := p.NewBackoff()
	var (
		delay time.Duration
		stop  bool
	)
	for range attempt {
		if delay, stop = b.Next(); stop {
			return 0, false
		}
	}
	return delay, true
}
