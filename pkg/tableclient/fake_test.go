package tableclient

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mesh-intelligence/tablestore/pkg/types"
)

// fakeResult is a primitive whose completion the test controls.
type fakeResult struct {
	op        string
	done      chan struct{}
	once      sync.Once
	completed atomic.Bool
	cancels   atomic.Int32

	// ignoreCancel makes Cancel a no-op, as when the primitive finishes
	// before the cancel takes effect.
	ignoreCancel bool

	value any
	err   error
}

func newFakeResult(op string) *fakeResult {
	return &fakeResult{op: op, done: make(chan struct{})}
}

func (r *fakeResult) finish(value any, err error) {
	r.once.Do(func() {
		r.value, r.err = value, err
		r.completed.Store(true)
		close(r.done)
	})
}

func (r *fakeResult) Cancel() {
	r.cancels.Add(1)
	if r.ignoreCancel || r.completed.Load() {
		return
	}
	r.finish(nil, types.NewStorageError(r.op, types.ErrOperationCanceled))
}

func (r *fakeResult) Done() <-chan struct{} { return r.done }
func (r *fakeResult) IsCompleted() bool     { return r.completed.Load() }

// fakeRuntime is a TableRuntime whose primitives either complete at once
// with a scripted outcome or stay pending until canceled or finished.
type fakeRuntime struct {
	mu sync.Mutex

	// hold keeps primitives pending.
	hold         bool
	ignoreCancel bool

	// value is returned by every successful End; errs are returned by
	// successive attempts, then err.
	value any
	errs  []error
	err   error

	begun   chan *fakeResult
	results []*fakeResult
	opts    []*types.RequestOptions
	params  []any
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{begun: make(chan *fakeResult, 64)}
}

func (f *fakeRuntime) Name() string { return "fake" }

func (f *fakeRuntime) begin(op string, param any, opts *types.RequestOptions) types.AsyncResult {
	f.mu.Lock()
	r := newFakeResult(op)
	r.ignoreCancel = f.ignoreCancel
	f.results = append(f.results, r)
	f.opts = append(f.opts, opts)
	f.params = append(f.params, param)
	err := f.err
	if len(f.errs) > 0 {
		err, f.errs = f.errs[0], f.errs[1:]
	}
	hold := f.hold
	value := f.value
	f.mu.Unlock()

	if !hold {
		if err != nil {
			r.finish(nil, err)
		} else {
			r.finish(value, nil)
		}
	}
	f.begun <- r
	return r
}

func (f *fakeRuntime) end(ar types.AsyncResult) (any, error) {
	r := ar.(*fakeResult)
	<-r.done
	return r.value, r.err
}

func (f *fakeRuntime) beginCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.results)
}

func (f *fakeRuntime) result(i int) *fakeResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.results[i]
}

func endAs[T any](f *fakeRuntime, ar types.AsyncResult) (T, error) {
	v, err := f.end(ar)
	var zero T
	if err != nil || v == nil {
		return zero, err
	}
	return v.(T), nil
}

func (f *fakeRuntime) BeginCreate(opts *types.RequestOptions, _ *types.OperationContext) types.AsyncResult {
	return f.begin("Create", nil, opts)
}
func (f *fakeRuntime) EndCreate(ar types.AsyncResult) error { _, err := f.end(ar); return err }

func (f *fakeRuntime) BeginCreateIfNotExists(opts *types.RequestOptions, _ *types.OperationContext) types.AsyncResult {
	return f.begin("CreateIfNotExists", nil, opts)
}
func (f *fakeRuntime) EndCreateIfNotExists(ar types.AsyncResult) (bool, error) {
	return endAs[bool](f, ar)
}

func (f *fakeRuntime) BeginDelete(opts *types.RequestOptions, _ *types.OperationContext) types.AsyncResult {
	return f.begin("Delete", nil, opts)
}
func (f *fakeRuntime) EndDelete(ar types.AsyncResult) error { _, err := f.end(ar); return err }

func (f *fakeRuntime) BeginDeleteIfExists(opts *types.RequestOptions, _ *types.OperationContext) types.AsyncResult {
	return f.begin("DeleteIfExists", nil, opts)
}
func (f *fakeRuntime) EndDeleteIfExists(ar types.AsyncResult) (bool, error) {
	return endAs[bool](f, ar)
}

func (f *fakeRuntime) BeginExists(opts *types.RequestOptions, _ *types.OperationContext) types.AsyncResult {
	return f.begin("Exists", nil, opts)
}
func (f *fakeRuntime) EndExists(ar types.AsyncResult) (bool, error) { return endAs[bool](f, ar) }

func (f *fakeRuntime) BeginExecute(op *types.TableOperation, opts *types.RequestOptions, _ *types.OperationContext) types.AsyncResult {
	return f.begin("Execute", op, opts)
}
func (f *fakeRuntime) EndExecute(ar types.AsyncResult) (*types.TableResult, error) {
	return endAs[*types.TableResult](f, ar)
}

func (f *fakeRuntime) BeginExecuteBatch(batch types.BatchOperation, opts *types.RequestOptions, _ *types.OperationContext) types.AsyncResult {
	return f.begin("ExecuteBatch", batch, opts)
}
func (f *fakeRuntime) EndExecuteBatch(ar types.AsyncResult) ([]*types.TableResult, error) {
	return endAs[[]*types.TableResult](f, ar)
}

func (f *fakeRuntime) BeginExecuteQuerySegmented(query *types.Query, token *types.ContinuationToken, opts *types.RequestOptions, _ *types.OperationContext) types.AsyncResult {
	return f.begin("ExecuteQuerySegmented", query, opts)
}
func (f *fakeRuntime) EndExecuteQuerySegmented(ar types.AsyncResult) (*types.QuerySegment[*types.Entity], error) {
	return endAs[*types.QuerySegment[*types.Entity]](f, ar)
}

func (f *fakeRuntime) BeginGetPermissions(opts *types.RequestOptions, _ *types.OperationContext) types.AsyncResult {
	return f.begin("GetPermissions", nil, opts)
}
func (f *fakeRuntime) EndGetPermissions(ar types.AsyncResult) (*types.Permissions, error) {
	return endAs[*types.Permissions](f, ar)
}

func (f *fakeRuntime) BeginSetPermissions(perms *types.Permissions, opts *types.RequestOptions, _ *types.OperationContext) types.AsyncResult {
	return f.begin("SetPermissions", perms, opts)
}
func (f *fakeRuntime) EndSetPermissions(ar types.AsyncResult) error { _, err := f.end(ar); return err }

var _ types.TableRuntime = (*fakeRuntime)(nil)

// registrations counts cancellation registrations and their releases.
type registrations struct {
	registered atomic.Int32
	released   atomic.Int32
}

// trackRegistrations wraps registerCancel for the duration of the test.
func trackRegistrations(t *testing.T) *registrations {
	t.Helper()
	regs := &registrations{}
	orig := registerCancel
	registerCancel = func(ctx context.Context, f func()) func() bool {
		regs.registered.Add(1)
		stop := orig(ctx, f)
		return func() bool {
			regs.released.Add(1)
			return stop()
		}
	}
	t.Cleanup(func() { registerCancel = orig })
	return regs
}

// nextBegun returns the next primitive the fake starts, or false when none
// starts in time.
func nextBegun(f *fakeRuntime) (*fakeResult, bool) {
	select {
	case r := <-f.begun:
		return r, true
	case <-time.After(5 * time.Second):
		return nil, false
	}
}

// waitBegun returns the next primitive the fake starts. It must be called
// from the test goroutine.
func waitBegun(t *testing.T, f *fakeRuntime) *fakeResult {
	t.Helper()
	r, ok := nextBegun(f)
	if !ok {
		t.Fatal("primitive was not started")
	}
	return r
}

// onBegun calls fn on its own goroutine once the fake starts the next
// primitive.
func onBegun(t *testing.T, f *fakeRuntime, fn func(r *fakeResult)) {
	t.Helper()
	go func() {
		r, ok := nextBegun(f)
		if !ok {
			t.Error("primitive was not started")
			return
		}
		fn(r)
	}()
}

// recordingObserver records observer calls.
type recordingObserver struct {
	mu       sync.Mutex
	started  []string
	retried  []int
	outcomes []Outcome
}

func (o *recordingObserver) OperationStarted(op string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, op)
}

func (o *recordingObserver) OperationRetried(_ string, attempt int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.retried = append(o.retried, attempt)
}

func (o *recordingObserver) OperationFinished(_ string, outcome Outcome, _ time.Duration, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}
