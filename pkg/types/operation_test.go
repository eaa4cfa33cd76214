package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableOperationValidate(t *testing.T) {
	tests := []struct {
		name    string
		op      *TableOperation
		wantErr error
	}{
		{"insert", Insert(NewEntity("pk", "rk").Set("A", 1)), nil},
		{"retrieve", Retrieve("pk", "rk"), nil},
		{"delete with any etag", Delete(&Entity{PartitionKey: "pk", RowKey: "rk", ETag: ETagAny}), nil},
		{"nil operation", nil, ErrInvalidOperation},
		{"unknown type", &TableOperation{Type: 99, Entity: NewEntity("pk", "rk")}, ErrInvalidOperation},
		{"missing entity", &TableOperation{Type: OpInsert}, ErrInvalidOperation},
		{"replace without etag", Replace(NewEntity("pk", "rk")), ErrInvalidOperation},
		{"merge without etag", Merge(NewEntity("pk", "rk")), ErrInvalidOperation},
		{"retrieve bad key", Retrieve("pk", ""), ErrInvalidKey},
		{"insert bad property", Insert(NewEntity("pk", "rk").Set(PropETag, "x")), ErrInvalidProperty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

type writerFunc func() (*Entity, error)

func (f writerFunc) WriteEntity() (*Entity, error) { return f() }

func TestNewOperation(t *testing.T) {
	t.Run("renders entity", func(t *testing.T) {
		e := NewEntity("pk", "rk").Set("A", 1)
		op, err := NewOperation(OpInsertOrMerge, writerFunc(func() (*Entity, error) { return e, nil }))
		require.NoError(t, err)
		assert.Equal(t, OpInsertOrMerge, op.Type)
		assert.Same(t, e, op.Entity)
		assert.NoError(t, op.Validate())
	})

	writeErr := errors.New("no customer")
	tests := []struct {
		name    string
		typ     OperationType
		w       EntityWriter
		wantErr error
	}{
		{"nil writer", OpInsert, nil, ErrInvalidOperation},
		{"unknown type", 99, writerFunc(func() (*Entity, error) { return NewEntity("pk", "rk"), nil }), ErrInvalidOperation},
		{"write fails", OpInsert, writerFunc(func() (*Entity, error) { return nil, writeErr }), writeErr},
		{"nil entity", OpInsert, writerFunc(func() (*Entity, error) { return nil, nil }), ErrInvalidOperation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, err := NewOperation(tt.typ, tt.w)
			assert.Nil(t, op)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrInvalidOperation)
		})
	}
}

func TestBatchOperationValidate(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.ErrorIs(t, BatchOperation{}.Validate(), ErrBatchEmpty)
	})

	t.Run("too large", func(t *testing.T) {
		var b BatchOperation
		for i := 0; i <= MaxBatchSize; i++ {
			b.Add(Insert(NewEntity("pk", fmt.Sprintf("rk-%03d", i))))
		}
		assert.ErrorIs(t, b.Validate(), ErrBatchTooLarge)
	})

	t.Run("at limit", func(t *testing.T) {
		var b BatchOperation
		for i := 0; i < MaxBatchSize; i++ {
			b.Add(Insert(NewEntity("pk", fmt.Sprintf("rk-%03d", i))))
		}
		assert.NoError(t, b.Validate())
	})

	t.Run("partition mismatch", func(t *testing.T) {
		b := BatchOperation{Insert(NewEntity("a", "1")), Insert(NewEntity("b", "2"))}
		assert.ErrorIs(t, b.Validate(), ErrBatchPartitionMismatch)
	})

	t.Run("duplicate row", func(t *testing.T) {
		b := BatchOperation{Insert(NewEntity("a", "1")), InsertOrMerge(NewEntity("a", "1"))}
		assert.ErrorIs(t, b.Validate(), ErrBatchDuplicateRow)
	})

	t.Run("retrieve not alone", func(t *testing.T) {
		b := BatchOperation{Retrieve("a", "1"), Insert(NewEntity("a", "2"))}
		assert.ErrorIs(t, b.Validate(), ErrBatchRetrieveNotAlone)
	})
}

func TestOperationTypeString(t *testing.T) {
	assert.Equal(t, "insert-or-merge", OpInsertOrMerge.String())
	assert.Equal(t, "OperationType(42)", OperationType(42).String())
}
