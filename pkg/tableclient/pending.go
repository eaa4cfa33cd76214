package tableclient

import (
	"context"
	"sync/atomic"

	"github.com/mesh-intelligence/tablestore/pkg/types"
)

// registerCancel links a context to a callback. Tests replace it to count
// registrations and releases.
var registerCancel = context.AfterFunc

// pending is one in-flight primitive and the registration that forwards
// ctx cancellation to it.
type pending struct {
	ar       types.AsyncResult
	stop     func() bool
	released atomic.Bool
	fired    atomic.Bool
}

// arm registers ctx against ar. The callback cancels ar only while it has
// not completed.
func arm(ctx context.Context, ar types.AsyncResult) *pending {
	p := &pending{ar: ar}
	p.stop = registerCancel(ctx, func() {
		if ar.IsCompleted() {
			return
		}
		p.fired.Store(true)
		ar.Cancel()
	})
	return p
}

// wait blocks until the primitive reaches a terminal state and then
// releases the registration. It reports whether a cancel may have been
// forwarded.
func (p *pending) wait() bool {
	<-p.ar.Done()
	return p.release()
}

// release drops the registration. Only the first call has an effect. It
// reports whether the registration had already run, meaning a cancel may
// have been forwarded.
func (p *pending) release() bool {
	if !p.released.CompareAndSwap(false, true) {
		return p.fired.Load()
	}
	if !p.stop() {
		p.fired.Store(true)
	}
	return p.fired.Load()
}
