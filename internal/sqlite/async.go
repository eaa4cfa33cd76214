package sqlite

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/tablestore/pkg/types"
)

// Primitive names, used in StorageError.Operation and to pair Begin/End.
const (
	opCreate            = "Create"
	opCreateIfNotExists = "CreateIfNotExists"
	opDelete            = "Delete"
	opDeleteIfExists    = "DeleteIfExists"
	opExists            = "Exists"
	opExecute           = "Execute"
	opExecuteBatch      = "ExecuteBatch"
	opQuerySegmented    = "ExecuteQuerySegmented"
	opGetPermissions    = "GetPermissions"
	opSetPermissions    = "SetPermissions"
)

// asyncResult is the AsyncResult of one primitive.
type asyncResult struct {
	op     string
	table  *Table
	cancel context.CancelCauseFunc
	done   chan struct{}

	completed atomic.Bool
	value     any
	err       error
}

// Cancel stops the primitive. It is a no-op once the primitive completed.
func (r *asyncResult) Cancel() {
	if r.completed.Load() {
		return
	}
	r.cancel(types.ErrOperationCanceled)
}

func (r *asyncResult) Done() <-chan struct{} {
	return r.done
}

func (r *asyncResult) IsCompleted() bool {
	return r.completed.Load()
}

func (r *asyncResult) complete(value any, err error) {
	r.value, r.err = value, err
	r.completed.Store(true)
	close(r.done)
}

// work is the body of a primitive. It returns the result value and the
// status code of a successful request.
type work func(ctx context.Context) (any, int, error)

// begin starts fn on its own goroutine and returns its handle.
func (t *Table) begin(op string, opts *types.RequestOptions, octx *types.OperationContext, fn work) *asyncResult {
	r := &asyncResult{op: op, table: t, done: make(chan struct{})}

	parent, _, err := t.backend.acquire()
	if err != nil {
		r.cancel = func(error) {}
		r.complete(nil, types.NewStorageError(op, err))
		return r
	}

	ctx, cancel := context.WithCancelCause(parent)
	r.cancel = cancel
	if octx != nil {
		octx.EnsureRequestID()
	}

	go func() {
		defer t.backend.release()
		defer cancel(nil)

		runCtx := ctx
		if d := opts.Timeout(); d > 0 {
			var stop context.CancelFunc
			runCtx, stop = context.WithTimeoutCause(ctx, d, types.ErrOperationTimeout)
			defer stop()
		}

		start := time.Now()
		if octx != nil {
			octx.MarkStart(start)
		}
		if hook := t.backend.beforeRun; hook != nil {
			hook(runCtx, op)
		}

		var (
			value  any
			status int
			err    error
		)
		if err = runCtx.Err(); err == nil {
			value, status, err = fn(runCtx)
		}
		if err != nil {
			err = types.NewStorageError(op, classify(runCtx, err))
			status = types.StatusCode(err)
		}

		if octx != nil {
			end := time.Now()
			octx.AddRequestResult(types.RequestResult{
				ServiceRequestID: newETag(),
				StatusCode:       status,
				StartTime:        start,
				EndTime:          end,
				Err:              err,
			})
			octx.MarkEnd(end)
		}
		r.complete(value, err)
	}()
	return r
}

// end waits for ar and returns its value. ar must come from a Begin of the
// same operation on this table.
func (t *Table) end(ar types.AsyncResult, op string) (any, error) {
	r, ok := ar.(*asyncResult)
	if !ok || r == nil || r.table != t || r.op != op {
		return nil, types.NewStorageError(op, types.ErrInvalidAsyncResult)
	}
	<-r.done
	return r.value, r.err
}

// classify maps context and driver failures onto the package sentinels.
// A failure observed after the context ended is attributed to its cause.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		cause := context.Cause(ctx)
		switch {
		case errors.Is(cause, types.ErrOperationCanceled):
			return fmt.Errorf("%w: %v", types.ErrOperationCanceled, err)
		case errors.Is(cause, types.ErrOperationTimeout):
			return fmt.Errorf("%w: %v", types.ErrOperationTimeout, err)
		case errors.Is(cause, context.Canceled):
			return fmt.Errorf("%w: %v", types.ErrBackendDetached, err)
		}
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %v", types.ErrServiceUnavailable, err)
		}
	}
	return err
}

// Status codes primitives report on success.
const (
	statusOK        = http.StatusOK
	statusCreated   = http.StatusCreated
	statusNoContent = http.StatusNoContent
	statusNotFound  = http.StatusNotFound
	statusConflict  = http.StatusConflict
	statusAccepted  = http.StatusAccepted
)
