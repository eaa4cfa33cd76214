package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/tablestore/pkg/types"
)

var sqlOps = map[types.CompareOp]string{
	types.Eq: "=",
	types.Ne: "<>",
	types.Gt: ">",
	types.Ge: ">=",
	types.Lt: "<",
	types.Le: "<=",
}

// buildQuery renders a segment query. It selects one row more than the
// page size so the caller can tell whether a continuation token is needed.
func (t *Table) buildQuery(q *types.Query, token *types.ContinuationToken) (string, []any, error) {
	var (
		where = []string{"table_key = ?"}
		args  = []any{t.key}
	)

	if token != nil {
		where = append(where, "(partition_key > ? OR (partition_key = ? AND row_key >= ?))")
		args = append(args, token.NextPartitionKey, token.NextPartitionKey, token.NextRowKey)
	}

	if q != nil {
		for _, c := range q.Conditions {
			op := sqlOps[c.Op]
			switch c.Property {
			case types.PropPartitionKey:
				where = append(where, "partition_key "+op+" ?")
				args = append(args, c.Value)
			case types.PropRowKey:
				where = append(where, "row_key "+op+" ?")
				args = append(args, c.Value)
			case types.PropTimestamp:
				v, err := filterValue(c.Value)
				if err != nil {
					return "", nil, fmt.Errorf("%w: %v", types.ErrInvalidFilter, err)
				}
				where = append(where, "timestamp "+op+" ?")
				args = append(args, v)
			default:
				v, err := filterValue(c.Value)
				if err != nil {
					return "", nil, fmt.Errorf("%w: %v", types.ErrInvalidFilter, err)
				}
				where = append(where, "json_extract(properties, ?) "+op+" ?")
				args = append(args, propertyPath(c.Property), v)
			}
		}
	}

	stmt := `SELECT partition_key, row_key, etag, timestamp, properties FROM entities WHERE ` +
		strings.Join(where, " AND ") +
		` ORDER BY partition_key, row_key LIMIT ?`
	args = append(args, q.PageSize()+1)
	return stmt, args, nil
}

// BeginExecuteQuerySegmented starts reading one segment of query results,
// resuming at token when it is non-nil.
func (t *Table) BeginExecuteQuerySegmented(query *types.Query, token *types.ContinuationToken, opts *types.RequestOptions, octx *types.OperationContext) types.AsyncResult {
	return t.begin(opQuerySegmented, opts, octx, func(ctx context.Context) (any, int, error) {
		if err := query.Validate(); err != nil {
			return nil, 0, err
		}
		db := t.backend.db
		if err := t.requireTable(ctx, db); err != nil {
			return nil, 0, err
		}

		stmt, args, err := t.buildQuery(query, token)
		if err != nil {
			return nil, 0, err
		}
		rows, err := db.QueryContext(ctx, stmt, args...)
		if err != nil {
			return nil, 0, fmt.Errorf("query entities: %w", err)
		}
		defer rows.Close()

		var columns []string
		if query != nil {
			columns = query.Select
		}
		take := query.PageSize()
		seg := &types.QuerySegment[*types.Entity]{}
		for rows.Next() {
			var (
				pk, rk string
				s      storedEntity
			)
			if err := rows.Scan(&pk, &rk, &s.etag, &s.timestamp, &s.properties); err != nil {
				return nil, 0, fmt.Errorf("scan entity: %w", err)
			}
			if len(seg.Results) == take {
				seg.ContinuationToken = &types.ContinuationToken{NextPartitionKey: pk, NextRowKey: rk}
				break
			}
			ent, err := s.toEntity(pk, rk, columns)
			if err != nil {
				return nil, 0, err
			}
			seg.Results = append(seg.Results, ent)
		}
		if err := rows.Err(); err != nil {
			return nil, 0, fmt.Errorf("iterate entities: %w", err)
		}
		return seg, statusOK, nil
	})
}

// EndExecuteQuerySegmented returns the segment.
func (t *Table) EndExecuteQuerySegmented(ar types.AsyncResult) (*types.QuerySegment[*types.Entity], error) {
	v, err := t.end(ar, opQuerySegmented)
	if err != nil {
		return nil, err
	}
	return v.(*types.QuerySegment[*types.Entity]), nil
}
