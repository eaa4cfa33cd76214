package types

// AsyncResult is the handle a Begin primitive returns. Cancel asks the
// primitive to stop; it is idempotent and a no-op once the primitive has
// completed. Done is closed when the primitive reaches a terminal state.
type AsyncResult interface {
	Cancel()
	Done() <-chan struct{}
	IsCompleted() bool
}

// TableRuntime is the begin/end API of one table. Options and operation
// context may be nil to use runtime defaults. Each End blocks until its
// primitive completes and returns the typed result or a *StorageError; a
// primitive canceled before completion fails with ErrOperationCanceled.
type TableRuntime interface {
	// Name returns the table name.
	Name() string

	BeginCreate(opts *RequestOptions, octx *OperationContext) AsyncResult
	EndCreate(ar AsyncResult) error

	BeginCreateIfNotExists(opts *RequestOptions, octx *OperationContext) AsyncResult
	EndCreateIfNotExists(ar AsyncResult) (bool, error)

	BeginDelete(opts *RequestOptions, octx *OperationContext) AsyncResult
	EndDelete(ar AsyncResult) error

	BeginDeleteIfExists(opts *RequestOptions, octx *OperationContext) AsyncResult
	EndDeleteIfExists(ar AsyncResult) (bool, error)

	BeginExists(opts *RequestOptions, octx *OperationContext) AsyncResult
	EndExists(ar AsyncResult) (bool, error)

	BeginExecute(op *TableOperation, opts *RequestOptions, octx *OperationContext) AsyncResult
	EndExecute(ar AsyncResult) (*TableResult, error)

	BeginExecuteBatch(batch BatchOperation, opts *RequestOptions, octx *OperationContext) AsyncResult
	EndExecuteBatch(ar AsyncResult) ([]*TableResult, error)

	BeginExecuteQuerySegmented(query *Query, token *ContinuationToken, opts *RequestOptions, octx *OperationContext) AsyncResult
	EndExecuteQuerySegmented(ar AsyncResult) (*QuerySegment[*Entity], error)

	BeginGetPermissions(opts *RequestOptions, octx *OperationContext) AsyncResult
	EndGetPermissions(ar AsyncResult) (*Permissions, error)

	BeginSetPermissions(perms *Permissions, opts *RequestOptions, octx *OperationContext) AsyncResult
	EndSetPermissions(ar AsyncResult) error
}

// Service is a backend that hands out TableRuntime handles. Callers attach
// it to a backend, obtain tables by name, and detach when done.
type Service interface {
	// Table returns the runtime for the named table. The table need not
	// exist yet; BeginCreate creates it. Returns ErrInvalidTableName for
	// malformed names and ErrBackendDetached when not attached.
	Table(name string) (TableRuntime, error)

	// ListTables returns the names of existing tables in sorted order.
	ListTables() ([]string, error)

	// Attach connects the service to the backend described by config.
	// Returns ErrAlreadyAttached if called while attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent.
	Detach() error
}
