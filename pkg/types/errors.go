package types

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Service lifecycle errors.
var (
	ErrBackendDetached = errors.New("backend is detached")
	ErrAlreadyAttached = errors.New("backend is already attached")
	ErrBackendEmpty    = errors.New("backend must not be empty")
	ErrBackendUnknown  = errors.New("unknown backend")
)

// Primitive lifecycle errors.
var (
	ErrOperationCanceled  = errors.New("operation canceled")
	ErrOperationTimeout   = errors.New("operation timed out")
	ErrInvalidAsyncResult = errors.New("async result does not belong to this operation")
)

// Table and entity errors.
var (
	ErrInvalidTableName   = errors.New("invalid table name")
	ErrTableNotFound      = errors.New("table not found")
	ErrTableExists        = errors.New("table already exists")
	ErrEntityNotFound     = errors.New("entity not found")
	ErrEntityExists       = errors.New("entity already exists")
	ErrPreconditionFailed = errors.New("etag precondition failed")
	ErrInvalidKey         = errors.New("invalid partition or row key")
	ErrInvalidProperty    = errors.New("invalid entity property")
	ErrInvalidOperation   = errors.New("invalid table operation")
	ErrInvalidQuery       = errors.New("invalid query")
	ErrInvalidFilter      = errors.New("invalid filter condition")
	ErrServiceUnavailable = errors.New("service unavailable")
)

// Batch errors.
var (
	ErrBatchEmpty             = errors.New("batch contains no operations")
	ErrBatchTooLarge          = errors.New("batch exceeds the maximum number of operations")
	ErrBatchPartitionMismatch = errors.New("batch operations must share one partition key")
	ErrBatchDuplicateRow      = errors.New("batch contains more than one operation on a row")
	ErrBatchRetrieveNotAlone  = errors.New("a retrieve must be the only operation in a batch")
)

// Permission errors.
var (
	ErrInvalidPolicy   = errors.New("invalid access policy")
	ErrTooManyPolicies = errors.New("too many stored access policies")
)

// errorCodes maps sentinel errors to the status code and error code the
// table service reports for them.
var errorCodes = []struct {
	err    error
	status int
	code   string
}{
	{ErrTableNotFound, http.StatusNotFound, "TableNotFound"},
	{ErrEntityNotFound, http.StatusNotFound, "ResourceNotFound"},
	{ErrTableExists, http.StatusConflict, "TableAlreadyExists"},
	{ErrEntityExists, http.StatusConflict, "EntityAlreadyExists"},
	{ErrPreconditionFailed, http.StatusPreconditionFailed, "UpdateConditionNotSatisfied"},
	{ErrInvalidTableName, http.StatusBadRequest, "InvalidResourceName"},
	{ErrInvalidKey, http.StatusBadRequest, "InvalidInput"},
	{ErrInvalidProperty, http.StatusBadRequest, "PropertyValueInvalid"},
	{ErrInvalidOperation, http.StatusBadRequest, "InvalidInput"},
	{ErrInvalidQuery, http.StatusBadRequest, "InvalidInput"},
	{ErrInvalidFilter, http.StatusBadRequest, "InvalidInput"},
	{ErrBatchEmpty, http.StatusBadRequest, "InvalidInput"},
	{ErrBatchTooLarge, http.StatusBadRequest, "InvalidInput"},
	{ErrBatchPartitionMismatch, http.StatusBadRequest, "CommandsInBatchActOnDifferentPartitions"},
	{ErrBatchDuplicateRow, http.StatusBadRequest, "InvalidDuplicateRow"},
	{ErrBatchRetrieveNotAlone, http.StatusBadRequest, "InvalidInput"},
	{ErrInvalidPolicy, http.StatusBadRequest, "InvalidXmlDocument"},
	{ErrTooManyPolicies, http.StatusBadRequest, "InvalidXmlDocument"},
	{ErrOperationTimeout, http.StatusRequestTimeout, "OperationTimedOut"},
	{ErrServiceUnavailable, http.StatusServiceUnavailable, "ServerBusy"},
	{ErrOperationCanceled, 0, "OperationCanceled"},
	{ErrBackendDetached, 0, "ClientClosed"},
	{ErrInvalidAsyncResult, 0, "InvalidAsyncResult"},
}

// StorageError is the failure every runtime primitive reports. It records
// the operation that failed, the status and error codes the service would
// return, and the underlying cause.
type StorageError struct {
	Operation  string
	StatusCode int
	Code       string
	Err        error
}

// NewStorageError classifies err and wraps it for the named operation.
// A nil err yields nil. An err that already is a *StorageError is returned
// as is.
func NewStorageError(operation string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	status, code := http.StatusInternalServerError, "InternalError"
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			status, code = ec.status, ec.code
			break
		}
	}
	return &StorageError{Operation: operation, StatusCode: status, Code: code, Err: err}
}

func (e *StorageError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s: %v", e.Operation, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %d %s: %v", e.Operation, e.StatusCode, e.Code, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// StatusCode returns the status code carried by err, or zero when err is not
// a *StorageError.
func StatusCode(err error) int {
	var se *StorageError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// IsTransient reports whether err is worth retrying: timeouts, throttling
// and server-side failures. Cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrOperationCanceled) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrOperationTimeout) || errors.Is(err, ErrServiceUnavailable) {
		return true
	}
	switch StatusCode(err) {
	case http.StatusRequestTimeout, http.StatusInternalServerError,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
