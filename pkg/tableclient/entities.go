package tableclient

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/tablestore/pkg/types"
)

// Execute runs one entity operation.
func (c *Client) Execute(ctx context.Context, op *types.TableOperation) (*types.TableResult, error) {
	return c.ExecuteWithOptions(ctx, op, nil, nil)
}

func (c *Client) ExecuteWithOptions(ctx context.Context, op *types.TableOperation, opts *types.RequestOptions, octx *types.OperationContext) (*types.TableResult, error) {
	const name = "Execute"
	if op == nil {
		return nil, invalidArgument(name, "nil operation")
	}
	return submit(ctx, c, action[*types.TableResult]{
		op: name,
		begin: func(opts *types.RequestOptions, octx *types.OperationContext) types.AsyncResult {
			return c.runtime.BeginExecute(op, opts, octx)
		},
		end: c.runtime.EndExecute,
	}, opts, octx)
}

// ExecuteEntity runs an operation of kind t on the entity w renders. A
// writer that cannot render itself is a misuse and never reaches the
// runtime.
func (c *Client) ExecuteEntity(ctx context.Context, t types.OperationType, w types.EntityWriter) (*types.TableResult, error) {
	return c.ExecuteEntityWithOptions(ctx, t, w, nil, nil)
}

func (c *Client) ExecuteEntityWithOptions(ctx context.Context, t types.OperationType, w types.EntityWriter, opts *types.RequestOptions, octx *types.OperationContext) (*types.TableResult, error) {
	op, err := types.NewOperation(t, w)
	if err != nil {
		return nil, fmt.Errorf("Execute: %w: %w", ErrInvalidArgument, err)
	}
	return c.ExecuteWithOptions(ctx, op, opts, octx)
}

// ExecuteBatch runs batch atomically. A nil or empty batch is a misuse and
// never reaches the runtime; the other batch rules (size, single partition,
// unique rows) are enforced by the runtime.
func (c *Client) ExecuteBatch(ctx context.Context, batch types.BatchOperation) ([]*types.TableResult, error) {
	return c.ExecuteBatchWithOptions(ctx, batch, nil, nil)
}

func (c *Client) ExecuteBatchWithOptions(ctx context.Context, batch types.BatchOperation, opts *types.RequestOptions, octx *types.OperationContext) ([]*types.TableResult, error) {
	const name = "ExecuteBatch"
	if len(batch) == 0 {
		return nil, invalidArgument(name, "empty batch")
	}
	return submit(ctx, c, action[[]*types.TableResult]{
		op: name,
		begin: func(opts *types.RequestOptions, octx *types.OperationContext) types.AsyncResult {
			return c.runtime.BeginExecuteBatch(batch, opts, octx)
		},
		end: c.runtime.EndExecuteBatch,
	}, opts, octx)
}
