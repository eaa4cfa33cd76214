package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/mesh-intelligence/tablestore/pkg/types"
)

// storedEntity is a row of the entities table.
type storedEntity struct {
	etag       string
	timestamp  string
	properties string
}

// loadEntity reads one row. It returns nil without error when the row does
// not exist.
func (t *Table) loadEntity(ctx context.Context, q querier, pk, rk string) (*storedEntity, error) {
	var s storedEntity
	err := q.QueryRowContext(ctx,
		`SELECT etag, timestamp, properties FROM entities
		 WHERE table_key = ? AND partition_key = ? AND row_key = ?`,
		t.key, pk, rk).Scan(&s.etag, &s.timestamp, &s.properties)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load entity: %w", err)
	}
	return &s, nil
}

// toEntity decodes a stored row.
func (s *storedEntity) toEntity(pk, rk string, columns []string) (*types.Entity, error) {
	ts, err := parseTime(s.timestamp)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp: %w", err)
	}
	props, err := unmarshalProperties(s.properties, columns)
	if err != nil {
		return nil, err
	}
	return &types.Entity{
		PartitionKey: pk,
		RowKey:       rk,
		Timestamp:    ts,
		ETag:         s.etag,
		Properties:   props,
	}, nil
}

// writeEntity upserts a row with a fresh ETag and timestamp and returns
// both.
func (t *Table) writeEntity(ctx context.Context, q querier, pk, rk string, props map[string]any) (string, time.Time, error) {
	data, err := marshalProperties(props)
	if err != nil {
		return "", time.Time{}, err
	}
	etag := newETag()
	now := time.Now().UTC()
	_, err = q.ExecContext(ctx,
		`INSERT INTO entities (table_key, partition_key, row_key, etag, timestamp, properties)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (table_key, partition_key, row_key)
		 DO UPDATE SET etag = excluded.etag, timestamp = excluded.timestamp, properties = excluded.properties`,
		t.key, pk, rk, etag, formatTime(now), data)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("write entity: %w", err)
	}
	return etag, now, nil
}

// checkETag enforces the optimistic-concurrency precondition.
func checkETag(want string, stored *storedEntity) error {
	if want == types.ETagAny || want == stored.etag {
		return nil
	}
	return fmt.Errorf("%w: have %s, want %s", types.ErrPreconditionFailed, stored.etag, want)
}

// mergedProperties returns the stored properties overlaid with update.
func mergedProperties(stored *storedEntity, update map[string]any) (map[string]any, error) {
	props, err := unmarshalProperties(stored.properties, nil)
	if err != nil {
		return nil, err
	}
	maps.Copy(props, update)
	return props, nil
}

// apply executes one validated operation against q. The table must exist.
func (t *Table) apply(ctx context.Context, q querier, op *types.TableOperation) (*types.TableResult, error) {
	e := op.Entity
	pk, rk := e.PartitionKey, e.RowKey

	stored, err := t.loadEntity(ctx, q, pk, rk)
	if err != nil {
		return nil, err
	}

	notFound := func() error {
		return fmt.Errorf("%w: (%s, %s)", types.ErrEntityNotFound, pk, rk)
	}

	var props map[string]any
	switch op.Type {
	case types.OpRetrieve:
		if stored == nil {
			return nil, notFound()
		}
		ent, err := stored.toEntity(pk, rk, op.SelectColumns)
		if err != nil {
			return nil, err
		}
		return &types.TableResult{StatusCode: statusOK, ETag: ent.ETag, Entity: ent}, nil

	case types.OpDelete:
		if stored == nil {
			return nil, notFound()
		}
		if err := checkETag(e.ETag, stored); err != nil {
			return nil, err
		}
		if _, err := q.ExecContext(ctx,
			`DELETE FROM entities WHERE table_key = ? AND partition_key = ? AND row_key = ?`,
			t.key, pk, rk); err != nil {
			return nil, fmt.Errorf("delete entity: %w", err)
		}
		return &types.TableResult{StatusCode: statusNoContent}, nil

	case types.OpInsert:
		if stored != nil {
			return nil, fmt.Errorf("%w: (%s, %s)", types.ErrEntityExists, pk, rk)
		}
		props = e.Properties

	case types.OpInsertOrReplace:
		props = e.Properties

	case types.OpInsertOrMerge:
		props = e.Properties
		if stored != nil {
			if props, err = mergedProperties(stored, e.Properties); err != nil {
				return nil, err
			}
		}

	case types.OpReplace, types.OpMerge:
		if stored == nil {
			return nil, notFound()
		}
		if err := checkETag(e.ETag, stored); err != nil {
			return nil, err
		}
		props = e.Properties
		if op.Type == types.OpMerge {
			if props, err = mergedProperties(stored, e.Properties); err != nil {
				return nil, err
			}
		}

	default:
		return nil, fmt.Errorf("%w: %s", types.ErrInvalidOperation, op.Type)
	}

	etag, ts, err := t.writeEntity(ctx, q, pk, rk, props)
	if err != nil {
		return nil, err
	}
	result := &types.TableResult{StatusCode: statusNoContent, ETag: etag}
	if op.Type == types.OpInsert && op.EchoContent {
		echo := e.Clone()
		echo.ETag, echo.Timestamp = etag, ts
		result.StatusCode, result.Entity = statusCreated, echo
	}
	return result, nil
}

// BeginExecute starts a single entity operation.
func (t *Table) BeginExecute(op *types.TableOperation, opts *types.RequestOptions, octx *types.OperationContext) types.AsyncResult {
	return t.begin(opExecute, opts, octx, func(ctx context.Context) (any, int, error) {
		if err := op.Validate(); err != nil {
			return nil, 0, err
		}
		var result *types.TableResult
		err := t.withTx(ctx, func(tx *sql.Tx) error {
			if err := t.requireTable(ctx, tx); err != nil {
				return err
			}
			var err error
			result, err = t.apply(ctx, tx, op)
			return err
		})
		if err != nil {
			return nil, 0, err
		}
		return result, result.StatusCode, nil
	})
}

// EndExecute returns the operation result.
func (t *Table) EndExecute(ar types.AsyncResult) (*types.TableResult, error) {
	v, err := t.end(ar, opExecute)
	if err != nil {
		return nil, err
	}
	return v.(*types.TableResult), nil
}

// BeginExecuteBatch starts an atomic batch. Batches that break the batch
// rules are rejected before any operation runs; a failing operation rolls
// back the whole batch.
func (t *Table) BeginExecuteBatch(batch types.BatchOperation, opts *types.RequestOptions, octx *types.OperationContext) types.AsyncResult {
	return t.begin(opExecuteBatch, opts, octx, func(ctx context.Context) (any, int, error) {
		if err := batch.Validate(); err != nil {
			return nil, 0, err
		}
		results := make([]*types.TableResult, 0, len(batch))
		err := t.withTx(ctx, func(tx *sql.Tx) error {
			if err := t.requireTable(ctx, tx); err != nil {
				return err
			}
			for i, op := range batch {
				res, err := t.apply(ctx, tx, op)
				if err != nil {
					return fmt.Errorf("operation %d: %w", i, err)
				}
				results = append(results, res)
			}
			return nil
		})
		if err != nil {
			return nil, 0, err
		}
		return results, statusAccepted, nil
	})
}

// EndExecuteBatch returns one result per batch operation, in order.
func (t *Table) EndExecuteBatch(ar types.AsyncResult) ([]*types.TableResult, error) {
	v, err := t.end(ar, opExecuteBatch)
	if err != nil {
		return nil, err
	}
	return v.([]*types.TableResult), nil
}
