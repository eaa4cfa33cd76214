package tableclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/tablestore/pkg/types"
)

// Error classification.
var (
	// ErrCanceled matches every *CanceledError.
	ErrCanceled = errors.New("tableclient: operation canceled")

	// ErrInvalidArgument reports a malformed call detected before any
	// primitive started.
	ErrInvalidArgument = errors.New("tableclient: invalid argument")
)

// CanceledError reports that the caller's context ended before the
// operation finished. It matches ErrCanceled and types.ErrOperationCanceled,
// and unwraps to the context's cause and the runtime's failure.
type CanceledError struct {
	Op    string
	Cause error
	Err   error
}

func (e *CanceledError) Error() string {
	return fmt.Sprintf("%s canceled: %v", e.Op, e.Cause)
}

func (e *CanceledError) Is(target error) bool {
	return target == ErrCanceled || target == types.ErrOperationCanceled
}

func (e *CanceledError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// IsCanceled reports whether err is a caller cancellation.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// Outcome is the terminal state of an operation.
type Outcome int

const (
	Succeeded Outcome = iota
	Failed
	Canceled
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Canceled:
		return "canceled"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Classify returns the outcome err represents.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return Succeeded
	case IsCanceled(err):
		return Canceled
	default:
		return Failed
	}
}

func invalidArgument(op, format string, args ...any) error {
	return fmt.Errorf("%s: %w: %s", op, ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func canceled(ctx context.Context, op string, err error) error {
	return &CanceledError{Op: op, Cause: context.Cause(ctx), Err: err}
}
