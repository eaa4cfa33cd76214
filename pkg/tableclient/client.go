package tableclient

import (
	"errors"
	"log/slog"

	"github.com/mesh-intelligence/tablestore/pkg/types"
)

// ErrNilRuntime is returned by New when no runtime is given.
var ErrNilRuntime = errors.New("tableclient: nil runtime")

// Client is the context-aware facade over one table's runtime. A Client is
// safe for concurrent use; calls share no mutable state.
type Client struct {
	runtime  types.TableRuntime
	logger   *slog.Logger
	observer Observer
	retry    types.RetryPolicy
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger for operation events. The default is
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver sets the observer notified of every operation.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithRetryPolicy sets the client-wide retry policy. RequestOptions.RetryPolicy
// overrides it per call. The default is NoRetry.
func WithRetryPolicy(p types.RetryPolicy) Option {
	return func(c *Client) {
		if p != nil {
			c.retry = p
		}
	}
}

// New returns a Client for runtime.
func New(runtime types.TableRuntime, opts ...Option) (*Client, error) {
	if runtime == nil {
		return nil, ErrNilRuntime
	}
	c := &Client{
		runtime:  runtime,
		logger:   slog.Default(),
		observer: nopObserver{},
		retry:    NoRetry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name returns the table name.
func (c *Client) Name() string {
	return c.runtime.Name()
}

// Runtime returns the wrapped runtime.
func (c *Client) Runtime() types.TableRuntime {
	return c.runtime
}

func (c *Client) retryPolicy(opts *types.RequestOptions) types.RetryPolicy {
	if opts != nil && opts.RetryPolicy != nil {
		return opts.RetryPolicy
	}
	return c.retry
}
