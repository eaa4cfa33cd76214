package tableclient

import (
	"context"

	"github.com/mesh-intelligence/tablestore/pkg/types"
)

// GetPermissions returns the table's stored access policies.
func (c *Client) GetPermissions(ctx context.Context) (*types.Permissions, error) {
	return c.GetPermissionsWithOptions(ctx, nil, nil)
}

func (c *Client) GetPermissionsWithOptions(ctx context.Context, opts *types.RequestOptions, octx *types.OperationContext) (*types.Permissions, error) {
	return submit(ctx, c, action[*types.Permissions]{
		op:    "GetPermissions",
		begin: c.runtime.BeginGetPermissions,
		end:   c.runtime.EndGetPermissions,
	}, opts, octx)
}

// SetPermissions replaces the table's stored access policies with perms.
func (c *Client) SetPermissions(ctx context.Context, perms *types.Permissions) error {
	return c.SetPermissionsWithOptions(ctx, perms, nil, nil)
}

func (c *Client) SetPermissionsWithOptions(ctx context.Context, perms *types.Permissions, opts *types.RequestOptions, octx *types.OperationContext) error {
	const name = "SetPermissions"
	if perms == nil {
		return invalidArgument(name, "nil permissions")
	}
	_, err := submit(ctx, c, action[struct{}]{
		op: name,
		begin: func(opts *types.RequestOptions, octx *types.OperationContext) types.AsyncResult {
			return c.runtime.BeginSetPermissions(perms, opts, octx)
		},
		end: noValue(c.runtime.EndSetPermissions),
	}, opts, octx)
	return err
}
