package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mesh-intelligence/tablestore/pkg/types"
)

func nullableTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func parseNullableTime(s sql.NullString) (time.Time, error) {
	if !s.Valid {
		return time.Time{}, nil
	}
	return parseTime(s.String)
}

// BeginGetPermissions starts reading the table's stored access policies.
func (t *Table) BeginGetPermissions(opts *types.RequestOptions, octx *types.OperationContext) types.AsyncResult {
	return t.begin(opGetPermissions, opts, octx, func(ctx context.Context) (any, int, error) {
		db := t.backend.db
		if err := t.requireTable(ctx, db); err != nil {
			return nil, 0, err
		}
		rows, err := db.QueryContext(ctx,
			`SELECT policy_id, start, expiry, permissions FROM access_policies WHERE table_key = ?`, t.key)
		if err != nil {
			return nil, 0, fmt.Errorf("query policies: %w", err)
		}
		defer rows.Close()

		perms := types.NewPermissions()
		for rows.Next() {
			var (
				id            string
				start, expiry sql.NullString
				pol           types.AccessPolicy
			)
			if err := rows.Scan(&id, &start, &expiry, &pol.Permissions); err != nil {
				return nil, 0, fmt.Errorf("scan policy: %w", err)
			}
			if pol.Start, err = parseNullableTime(start); err != nil {
				return nil, 0, fmt.Errorf("policy %q start: %w", id, err)
			}
			if pol.Expiry, err = parseNullableTime(expiry); err != nil {
				return nil, 0, fmt.Errorf("policy %q expiry: %w", id, err)
			}
			perms.Policies[id] = pol
		}
		if err := rows.Err(); err != nil {
			return nil, 0, fmt.Errorf("iterate policies: %w", err)
		}
		return perms, statusOK, nil
	})
}

// EndGetPermissions returns the stored access policies.
func (t *Table) EndGetPermissions(ar types.AsyncResult) (*types.Permissions, error) {
	v, err := t.end(ar, opGetPermissions)
	if err != nil {
		return nil, err
	}
	return v.(*types.Permissions), nil
}

// BeginSetPermissions starts replacing the table's stored access policies
// with perms.
func (t *Table) BeginSetPermissions(perms *types.Permissions, opts *types.RequestOptions, octx *types.OperationContext) types.AsyncResult {
	return t.begin(opSetPermissions, opts, octx, func(ctx context.Context) (any, int, error) {
		if err := perms.Validate(); err != nil {
			return nil, 0, err
		}
		err := t.withTx(ctx, func(tx *sql.Tx) error {
			if err := t.requireTable(ctx, tx); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM access_policies WHERE table_key = ?`, t.key); err != nil {
				return fmt.Errorf("clear policies: %w", err)
			}
			for id, pol := range perms.Policies {
				letters, err := types.NormalizePermissions(pol.Permissions)
				if err != nil {
					return err
				}
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO access_policies (table_key, policy_id, start, expiry, permissions) VALUES (?, ?, ?, ?, ?)`,
					t.key, id, nullableTime(pol.Start), nullableTime(pol.Expiry), letters); err != nil {
					return fmt.Errorf("insert policy %q: %w", id, err)
				}
			}
			return nil
		})
		if err != nil {
			return nil, 0, err
		}
		return nil, statusNoContent, nil
	})
}

// EndSetPermissions waits for BeginSetPermissions.
func (t *Table) EndSetPermissions(ar types.AsyncResult) error {
	_, err := t.end(ar, opSetPermissions)
	return err
}
