package types

import "fmt"

// OperationType identifies what a TableOperation does to its entity.
type OperationType int

// Entity operation kinds.
const (
	OpInsert OperationType = iota + 1
	OpInsertOrReplace
	OpInsertOrMerge
	OpReplace
	OpMerge
	OpDelete
	OpRetrieve
)

var operationNames = map[OperationType]string{
	OpInsert:          "insert",
	OpInsertOrReplace: "insert-or-replace",
	OpInsertOrMerge:   "insert-or-merge",
	OpReplace:         "replace",
	OpMerge:           "merge",
	OpDelete:          "delete",
	OpRetrieve:        "retrieve",
}

func (t OperationType) String() string {
	if name, ok := operationNames[t]; ok {
		return name
	}
	return fmt.Sprintf("OperationType(%d)", int(t))
}

// RequiresETag reports whether the operation is conditional on the
// entity's ETag.
func (t OperationType) RequiresETag() bool {
	return t == OpReplace || t == OpMerge || t == OpDelete
}

// TableOperation is a single entity operation for Execute or a member of a
// BatchOperation.
type TableOperation struct {
	Type   OperationType
	Entity *Entity

	// EchoContent asks inserts to return the stored entity in the result.
	EchoContent bool

	// SelectColumns projects the custom properties a Retrieve returns.
	// Empty means all properties.
	SelectColumns []string
}

// Insert adds a new entity; it fails with ErrEntityExists when the key is
// taken.
func Insert(e *Entity) *TableOperation {
	return &TableOperation{Type: OpInsert, Entity: e}
}

// InsertOrReplace upserts e, discarding any existing properties.
func InsertOrReplace(e *Entity) *TableOperation {
	return &TableOperation{Type: OpInsertOrReplace, Entity: e}
}

// InsertOrMerge upserts e, keeping existing properties e does not set.
func InsertOrMerge(e *Entity) *TableOperation {
	return &TableOperation{Type: OpInsertOrMerge, Entity: e}
}

// Replace overwrites an existing entity whose ETag matches e.ETag.
func Replace(e *Entity) *TableOperation {
	return &TableOperation{Type: OpReplace, Entity: e}
}

// Merge updates properties of an existing entity whose ETag matches e.ETag.
func Merge(e *Entity) *TableOperation {
	return &TableOperation{Type: OpMerge, Entity: e}
}

// Delete removes an existing entity whose ETag matches e.ETag.
func Delete(e *Entity) *TableOperation {
	return &TableOperation{Type: OpDelete, Entity: e}
}

// Retrieve reads one entity by key, optionally projecting columns.
func Retrieve(partitionKey, rowKey string, columns ...string) *TableOperation {
	return &TableOperation{
		Type:          OpRetrieve,
		Entity:        &Entity{PartitionKey: partitionKey, RowKey: rowKey},
		SelectColumns: columns,
	}
}

// NewOperation builds an operation of kind t from a typed entity. It fails
// with ErrInvalidOperation when w is nil, when t is unknown, or when w
// cannot render itself.
func NewOperation(t OperationType, w EntityWriter) (*TableOperation, error) {
	if _, ok := operationNames[t]; !ok {
		return nil, fmt.Errorf("%w: unknown type %d", ErrInvalidOperation, int(t))
	}
	if w == nil {
		return nil, fmt.Errorf("%w: nil entity writer", ErrInvalidOperation)
	}
	e, err := w.WriteEntity()
	if err != nil {
		return nil, fmt.Errorf("%w: write entity: %w", ErrInvalidOperation, err)
	}
	if e == nil {
		return nil, fmt.Errorf("%w: %s wrote no entity", ErrInvalidOperation, t)
	}
	return &TableOperation{Type: t, Entity: e}, nil
}

// Validate checks the operation shape and its entity.
func (op *TableOperation) Validate() error {
	if op == nil {
		return fmt.Errorf("%w: nil operation", ErrInvalidOperation)
	}
	if _, ok := operationNames[op.Type]; !ok {
		return fmt.Errorf("%w: unknown type %d", ErrInvalidOperation, int(op.Type))
	}
	if op.Entity == nil {
		return fmt.Errorf("%w: %s without entity", ErrInvalidOperation, op.Type)
	}
	if op.Type == OpRetrieve || op.Type == OpDelete {
		if err := ValidateKey(op.Entity.PartitionKey); err != nil {
			return fmt.Errorf("partition key: %w", err)
		}
		if err := ValidateKey(op.Entity.RowKey); err != nil {
			return fmt.Errorf("row key: %w", err)
		}
	} else if err := op.Entity.Validate(); err != nil {
		return err
	}
	if op.Type.RequiresETag() && op.Entity.ETag == "" {
		return fmt.Errorf("%w: %s requires an ETag (use %q to match any)", ErrInvalidOperation, op.Type, ETagAny)
	}
	return nil
}

// MaxBatchSize is the largest number of operations a batch may hold.
const MaxBatchSize = 100

// BatchOperation is an ordered group of operations on one partition that
// the runtime applies atomically.
type BatchOperation []*TableOperation

// Add appends op to the batch.
func (b *BatchOperation) Add(op *TableOperation) {
	*b = append(*b, op)
}

// Validate checks the batch rules: 1..MaxBatchSize operations, one
// partition key, no row touched twice, and a Retrieve only on its own.
func (b BatchOperation) Validate() error {
	if len(b) == 0 {
		return ErrBatchEmpty
	}
	if len(b) > MaxBatchSize {
		return fmt.Errorf("%w: %d operations (max %d)", ErrBatchTooLarge, len(b), MaxBatchSize)
	}
	rows := make(map[string]bool, len(b))
	for i, op := range b {
		if err := op.Validate(); err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
		if op.Type == OpRetrieve && len(b) > 1 {
			return ErrBatchRetrieveNotAlone
		}
		if op.Entity.PartitionKey != b[0].Entity.PartitionKey {
			return fmt.Errorf("%w: operation %d uses %q, batch uses %q",
				ErrBatchPartitionMismatch, i, op.Entity.PartitionKey, b[0].Entity.PartitionKey)
		}
		if rows[op.Entity.RowKey] {
			return fmt.Errorf("%w: %q", ErrBatchDuplicateRow, op.Entity.RowKey)
		}
		rows[op.Entity.RowKey] = true
	}
	return nil
}

// TableResult is the outcome of one entity operation.
type TableResult struct {
	// StatusCode is 200 for retrieves, 201 for echoed inserts and 204
	// otherwise.
	StatusCode int
	ETag       string

	// Entity is set for retrieves and for inserts with EchoContent.
	Entity *Entity
}
