package tableclient

import (
	"context"

	"github.com/mesh-intelligence/tablestore/pkg/types"
)

// noValue adapts an end primitive that returns only an error.
func noValue(end func(types.AsyncResult) error) func(types.AsyncResult) (struct{}, error) {
	return func(ar types.AsyncResult) (struct{}, error) {
		return struct{}{}, end(ar)
	}
}

// Create creates the table. It fails with types.ErrTableExists when the
// table already exists.
func (c *Client) Create(ctx context.Context) error {
	return c.CreateWithOptions(ctx, nil, nil)
}

func (c *Client) CreateWithOptions(ctx context.Context, opts *types.RequestOptions, octx *types.OperationContext) error {
	_, err := submit(ctx, c, action[struct{}]{
		op:    "Create",
		begin: c.runtime.BeginCreate,
		end:   noValue(c.runtime.EndCreate),
	}, opts, octx)
	return err
}

// CreateIfNotExists creates the table unless it exists and reports whether
// it was created.
func (c *Client) CreateIfNotExists(ctx context.Context) (bool, error) {
	return c.CreateIfNotExistsWithOptions(ctx, nil, nil)
}

func (c *Client) CreateIfNotExistsWithOptions(ctx context.Context, opts *types.RequestOptions, octx *types.OperationContext) (bool, error) {
	return submit(ctx, c, action[bool]{
		op:    "CreateIfNotExists",
		begin: c.runtime.BeginCreateIfNotExists,
		end:   c.runtime.EndCreateIfNotExists,
	}, opts, octx)
}

// Delete deletes the table with its entities and permissions. It fails
// with types.ErrTableNotFound when the table does not exist.
func (c *Client) Delete(ctx context.Context) error {
	return c.DeleteWithOptions(ctx, nil, nil)
}

func (c *Client) DeleteWithOptions(ctx context.Context, opts *types.RequestOptions, octx *types.OperationContext) error {
	_, err := submit(ctx, c, action[struct{}]{
		op:    "Delete",
		begin: c.runtime.BeginDelete,
		end:   noValue(c.runtime.EndDelete),
	}, opts, octx)
	return err
}

// DeleteIfExists deletes the table if it exists and reports whether it was
// deleted.
func (c *Client) DeleteIfExists(ctx context.Context) (bool, error) {
	return c.DeleteIfExistsWithOptions(ctx, nil, nil)
}

func (c *Client) DeleteIfExistsWithOptions(ctx context.Context, opts *types.RequestOptions, octx *types.OperationContext) (bool, error) {
	return submit(ctx, c, action[bool]{
		op:    "DeleteIfExists",
		begin: c.runtime.BeginDeleteIfExists,
		end:   c.runtime.EndDeleteIfExists,
	}, opts, octx)
}

// Exists reports whether the table exists.
func (c *Client) Exists(ctx context.Context) (bool, error) {
	return c.ExistsWithOptions(ctx, nil, nil)
}

func (c *Client) ExistsWithOptions(ctx context.Context, opts *types.RequestOptions, octx *types.OperationContext) (bool, error) {
	return submit(ctx, c, action[bool]{
		op:    "Exists",
		begin: c.runtime.BeginExists,
		end:   c.runtime.EndExists,
	}, opts, octx)
}
