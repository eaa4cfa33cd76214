package types

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RetryPolicy decides whether a failed attempt is retried. Next receives
// the number of attempts made so far (starting at 1) and the failure, and
// returns the delay before the next attempt and whether to make it.
type RetryPolicy interface {
	Next(attempt int, err error) (time.Duration, bool)
}

// RequestOptions tune a single operation. A nil *RequestOptions means
// runtime defaults.
type RequestOptions struct {
	// ServerTimeout bounds each request the runtime issues.
	ServerTimeout time.Duration

	// MaximumExecutionTime bounds the whole operation. A client that
	// retries shares it across attempts.
	MaximumExecutionTime time.Duration

	// RetryPolicy overrides the client's retry policy for this operation.
	RetryPolicy RetryPolicy
}

// Timeout returns the tightest non-zero bound of ServerTimeout and
// MaximumExecutionTime, or zero when neither is set.
func (o *RequestOptions) Timeout() time.Duration {
	if o == nil {
		return 0
	}
	switch {
	case o.ServerTimeout == 0:
		return o.MaximumExecutionTime
	case o.MaximumExecutionTime == 0:
		return o.ServerTimeout
	default:
		return min(o.ServerTimeout, o.MaximumExecutionTime)
	}
}

// RequestResult records one request a runtime made on behalf of an
// operation.
type RequestResult struct {
	ServiceRequestID string
	StatusCode       int
	StartTime        time.Time
	EndTime          time.Time
	Err              error
}

// OperationContext carries diagnostics for one logical operation across its
// attempts. Runtimes append a RequestResult per request; the methods are
// safe for concurrent use.
type OperationContext struct {
	ClientRequestID string

	mu        sync.Mutex
	startTime time.Time
	endTime   time.Time
	results   []RequestResult
}

// NewOperationContext returns a context with a fresh client request ID.
func NewOperationContext() *OperationContext {
	return &OperationContext{ClientRequestID: newRequestID()}
}

// EnsureRequestID assigns a client request ID if none is set and returns it.
func (c *OperationContext) EnsureRequestID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ClientRequestID == "" {
		c.ClientRequestID = newRequestID()
	}
	return c.ClientRequestID
}

// MarkStart records the operation start time the first time it is called.
func (c *OperationContext) MarkStart(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.startTime.IsZero() {
		c.startTime = t
	}
}

// MarkEnd records the operation end time.
func (c *OperationContext) MarkEnd(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endTime = t
}

// StartTime returns when the first request started.
func (c *OperationContext) StartTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startTime
}

// EndTime returns when the last request finished.
func (c *OperationContext) EndTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endTime
}

// AddRequestResult appends r to the request log.
func (c *OperationContext) AddRequestResult(r RequestResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

// RequestResults returns a copy of the request log.
func (c *OperationContext) RequestResults() []RequestResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.results)
}

// LastResult returns the most recent request result.
func (c *OperationContext) LastResult() (RequestResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.results) == 0 {
		return RequestResult{}, false
	}
	return c.results[len(c.results)-1], true
}

// newRequestID returns a UUID v7 string, falling back to v4.
func newRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
