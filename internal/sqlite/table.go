package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mesh-intelligence/tablestore/pkg/types"
)

// Table is the begin/end runtime of one table.
type Table struct {
	name    string   // Name as first requested.
	key     string   // Lower-cased name used as the primary key.
	backend *Backend // Parent backend for DB access.
}

var _ types.TableRuntime = (*Table)(nil)

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn in a transaction, committing on success.
func (t *Table) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := t.backend.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// tableExists reports whether the table row is present.
func (t *Table) tableExists(ctx context.Context, q querier) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM tables WHERE name_key = ?`, t.key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check table: %w", err)
	}
	return true, nil
}

// requireTable fails with ErrTableNotFound when the table does not exist.
func (t *Table) requireTable(ctx context.Context, q querier) error {
	ok, err := t.tableExists(ctx, q)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrTableNotFound, t.name)
	}
	return nil
}

// createTable inserts the table row and reports whether it was created.
func (t *Table) createTable(ctx context.Context, q querier) (bool, error) {
	res, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO tables (name_key, name, created_at) VALUES (?, ?, ?)`,
		t.key, t.name, formatTime(time.Now()))
	if err != nil {
		return false, fmt.Errorf("insert table: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// dropTable removes the table with its entities and policies and reports
// whether it existed.
func (t *Table) dropTable(ctx context.Context, tx *sql.Tx) (bool, error) {
	if _, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE table_key = ?`, t.key); err != nil {
		return false, fmt.Errorf("delete entities: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM access_policies WHERE table_key = ?`, t.key); err != nil {
		return false, fmt.Errorf("delete policies: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM tables WHERE name_key = ?`, t.key)
	if err != nil {
		return false, fmt.Errorf("delete table: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// BeginCreate starts creating the table. It fails with ErrTableExists when
// the table is already present.
func (t *Table) BeginCreate(opts *types.RequestOptions, octx *types.OperationContext) types.AsyncResult {
	return t.begin(opCreate, opts, octx, func(ctx context.Context) (any, int, error) {
		created, err := t.createTable(ctx, t.backend.db)
		if err != nil {
			return nil, 0, err
		}
		if !created {
			return nil, 0, fmt.Errorf("%w: %s", types.ErrTableExists, t.name)
		}
		return nil, statusNoContent, nil
	})
}

// EndCreate waits for BeginCreate.
func (t *Table) EndCreate(ar types.AsyncResult) error {
	_, err := t.end(ar, opCreate)
	return err
}

// BeginCreateIfNotExists starts creating the table if it is missing.
func (t *Table) BeginCreateIfNotExists(opts *types.RequestOptions, octx *types.OperationContext) types.AsyncResult {
	return t.begin(opCreateIfNotExists, opts, octx, func(ctx context.Context) (any, int, error) {
		created, err := t.createTable(ctx, t.backend.db)
		if err != nil {
			return nil, 0, err
		}
		if created {
			return true, statusNoContent, nil
		}
		return false, statusConflict, nil
	})
}

// EndCreateIfNotExists reports whether the table was created.
func (t *Table) EndCreateIfNotExists(ar types.AsyncResult) (bool, error) {
	v, err := t.end(ar, opCreateIfNotExists)
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// BeginDelete starts deleting the table. It fails with ErrTableNotFound
// when the table is missing.
func (t *Table) BeginDelete(opts *types.RequestOptions, octx *types.OperationContext) types.AsyncResult {
	return t.begin(opDelete, opts, octx, func(ctx context.Context) (any, int, error) {
		err := t.withTx(ctx, func(tx *sql.Tx) error {
			existed, err := t.dropTable(ctx, tx)
			if err != nil {
				return err
			}
			if !existed {
				return fmt.Errorf("%w: %s", types.ErrTableNotFound, t.name)
			}
			return nil
		})
		if err != nil {
			return nil, 0, err
		}
		return nil, statusNoContent, nil
	})
}

// EndDelete waits for BeginDelete.
func (t *Table) EndDelete(ar types.AsyncResult) error {
	_, err := t.end(ar, opDelete)
	return err
}

// BeginDeleteIfExists starts deleting the table if it is present.
func (t *Table) BeginDeleteIfExists(opts *types.RequestOptions, octx *types.OperationContext) types.AsyncResult {
	return t.begin(opDeleteIfExists, opts, octx, func(ctx context.Context) (any, int, error) {
		var existed bool
		err := t.withTx(ctx, func(tx *sql.Tx) error {
			var err error
			existed, err = t.dropTable(ctx, tx)
			return err
		})
		if err != nil {
			return nil, 0, err
		}
		if existed {
			return true, statusNoContent, nil
		}
		return false, statusNotFound, nil
	})
}

// EndDeleteIfExists reports whether the table was deleted.
func (t *Table) EndDeleteIfExists(ar types.AsyncResult) (bool, error) {
	v, err := t.end(ar, opDeleteIfExists)
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// BeginExists starts checking whether the table exists.
func (t *Table) BeginExists(opts *types.RequestOptions, octx *types.OperationContext) types.AsyncResult {
	return t.begin(opExists, opts, octx, func(ctx context.Context) (any, int, error) {
		ok, err := t.tableExists(ctx, t.backend.db)
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			return false, statusNotFound, nil
		}
		return true, statusOK, nil
	})
}

// EndExists reports whether the table exists.
func (t *Table) EndExists(ar types.AsyncResult) (bool, error) {
	v, err := t.end(ar, opExists)
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}
