package tableclient

import (
	"context"
	"errors"
	"time"

	"github.com/mesh-intelligence/tablestore/pkg/types"
)

// action is one runtime primitive pair bound to its parameters.
type action[T any] struct {
	op    string
	begin func(opts *types.RequestOptions, octx *types.OperationContext) types.AsyncResult
	end   func(ar types.AsyncResult) (T, error)
}

// submit runs a until it succeeds, is canceled, or the retry policy gives
// up. Each attempt is its own pending operation. MaximumExecutionTime bounds
// all attempts together: later attempts get only the time left, and no
// retry starts once its delay would reach the deadline.
func submit[T any](ctx context.Context, c *Client, a action[T], opts *types.RequestOptions, octx *types.OperationContext) (T, error) {
	start := time.Now()
	c.observer.OperationStarted(a.op)
	c.logger.Debug("operation started", "op", a.op, "table", c.runtime.Name())

	policy := c.retryPolicy(opts)
	var deadline time.Time
	if opts != nil && opts.MaximumExecutionTime > 0 {
		deadline = start.Add(opts.MaximumExecutionTime)
	}
	var (
		value T
		err   error
	)
	for attempt := 1; ; attempt++ {
		attemptOpts := opts
		if attempt > 1 && !deadline.IsZero() {
			left := time.Until(deadline)
			if left <= 0 {
				break
			}
			attemptOpts = withExecutionTime(opts, left)
		}
		value, err = once(ctx, a, attemptOpts, octx)
		if err == nil || IsCanceled(err) {
			break
		}
		delay, ok := policy.Next(attempt, err)
		if !ok {
			break
		}
		if !deadline.IsZero() && time.Until(deadline) <= delay {
			c.logger.Debug("operation out of time for retry", "op", a.op, "attempt", attempt, "err", err)
			break
		}
		c.logger.Debug("operation retrying", "op", a.op, "attempt", attempt+1, "delay", delay, "err", err)
		if werr := sleep(ctx, delay); werr != nil {
			err = canceled(ctx, a.op, err)
			break
		}
		c.observer.OperationRetried(a.op, attempt+1, delay)
	}

	outcome := Classify(err)
	duration := time.Since(start)
	c.observer.OperationFinished(a.op, outcome, duration, err)
	switch outcome {
	case Failed:
		c.logger.Warn("operation failed", "op", a.op, "table", c.runtime.Name(), "duration", duration, "err", err)
	default:
		c.logger.Debug("operation finished", "op", a.op, "outcome", outcome.String(), "duration", duration)
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return value, nil
}

// once runs a single attempt: begin, register, wait, release, end.
func once[T any](ctx context.Context, a action[T], opts *types.RequestOptions, octx *types.OperationContext) (T, error) {
	ar := a.begin(opts, octx)
	fired := arm(ctx, ar).wait()

	value, err := a.end(ar)
	if err != nil && fired && errors.Is(err, types.ErrOperationCanceled) {
		var zero T
		return zero, canceled(ctx, a.op, err)
	}
	return value, err
}

// withExecutionTime returns a copy of opts whose MaximumExecutionTime is d.
// ServerTimeout stays per request.
func withExecutionTime(opts *types.RequestOptions, d time.Duration) *types.RequestOptions {
	o := *opts
	o.MaximumExecutionTime = d
	return &o
}

// sleep waits d or until ctx ends.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}
