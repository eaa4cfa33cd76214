package tableclient

import (
	"context"
	"fmt"
	"time"

	"github.com/mesh-intelligence/tablestore/pkg/types"
)

const opQuerySegmented = "ExecuteQuerySegmented"

// ExecuteQuerySegmented reads one segment of query results, resuming at
// token when it is non-nil. A nil ContinuationToken in the result means the
// query is complete.
func (c *Client) ExecuteQuerySegmented(ctx context.Context, query *types.Query, token *types.ContinuationToken) (*types.QuerySegment[*types.Entity], error) {
	return c.ExecuteQuerySegmentedWithOptions(ctx, query, token, nil, nil)
}

func (c *Client) ExecuteQuerySegmentedWithOptions(ctx context.Context, query *types.Query, token *types.ContinuationToken, opts *types.RequestOptions, octx *types.OperationContext) (*types.QuerySegment[*types.Entity], error) {
	if query == nil {
		return nil, invalidArgument(opQuerySegmented, "nil query")
	}
	return submit(ctx, c, segmentAction(c, query, token), opts, octx)
}

// QuerySegmented reads one segment and decodes each entity into a T through
// its ReadEntity method.
func QuerySegmented[T any, PT interface {
	*T
	types.EntityReader
}](ctx context.Context, c *Client, query *types.Query, token *types.ContinuationToken) (*types.QuerySegment[T], error) {
	return QuerySegmentedWithOptions[T, PT](ctx, c, query, token, nil, nil)
}

func QuerySegmentedWithOptions[T any, PT interface {
	*T
	types.EntityReader
}](ctx context.Context, c *Client, query *types.Query, token *types.ContinuationToken, opts *types.RequestOptions, octx *types.OperationContext) (*types.QuerySegment[T], error) {
	return QuerySegmentedResolveWithOptions[T](ctx, c, query, token, func(pk, rk string, ts time.Time, props map[string]any, etag string) (T, error) {
		var v T
		err := PT(&v).ReadEntity(&types.Entity{
			PartitionKey: pk,
			RowKey:       rk,
			Timestamp:    ts,
			ETag:         etag,
			Properties:   props,
		})
		return v, err
	}, opts, octx)
}

// QuerySegmentedResolve reads one segment and maps each entity through
// resolver.
func QuerySegmentedResolve[R any](ctx context.Context, c *Client, query *types.Query, token *types.ContinuationToken, resolver types.Resolver[R]) (*types.QuerySegment[R], error) {
	return QuerySegmentedResolveWithOptions(ctx, c, query, token, resolver, nil, nil)
}

func QuerySegmentedResolveWithOptions[R any](ctx context.Context, c *Client, query *types.Query, token *types.ContinuationToken, resolver types.Resolver[R], opts *types.RequestOptions, octx *types.OperationContext) (*types.QuerySegment[R], error) {
	if c == nil {
		return nil, invalidArgument(opQuerySegmented, "nil client")
	}
	if query == nil {
		return nil, invalidArgument(opQuerySegmented, "nil query")
	}
	if resolver == nil {
		return nil, invalidArgument(opQuerySegmented, "nil resolver")
	}
	seg, err := submit(ctx, c, segmentAction(c, query, token), opts, octx)
	if err != nil {
		return nil, err
	}
	return resolveSegment(seg, resolver)
}

func segmentAction(c *Client, query *types.Query, token *types.ContinuationToken) action[*types.QuerySegment[*types.Entity]] {
	return action[*types.QuerySegment[*types.Entity]]{
		op: opQuerySegmented,
		begin: func(opts *types.RequestOptions, octx *types.OperationContext) types.AsyncResult {
			return c.runtime.BeginExecuteQuerySegmented(query, token, opts, octx)
		},
		end: c.runtime.EndExecuteQuerySegmented,
	}
}

func resolveSegment[R any](seg *types.QuerySegment[*types.Entity], resolver types.Resolver[R]) (*types.QuerySegment[R], error) {
	out := &types.QuerySegment[R]{
		Results:           make([]R, 0, len(seg.Results)),
		ContinuationToken: seg.ContinuationToken,
	}
	for _, e := range seg.Results {
		v, err := resolver(e.PartitionKey, e.RowKey, e.Timestamp, e.Properties, e.ETag)
		if err != nil {
			return nil, fmt.Errorf("%s: resolve %s/%s: %w", opQuerySegmented, e.PartitionKey, e.RowKey, err)
		}
		out.Results = append(out.Results, v)
	}
	return out, nil
}
