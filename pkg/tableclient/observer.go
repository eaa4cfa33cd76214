package tableclient

import "time"

// Observer is notified of facade operations. Implementations must be safe
// for concurrent use.
type Observer interface {
	// OperationStarted is called before the first attempt.
	OperationStarted(op string)

	// OperationRetried is called before attempt, after waiting delay.
	OperationRetried(op string, attempt int, delay time.Duration)

	// OperationFinished is called once with the call's outcome, its total
	// duration and its error.
	OperationFinished(op string, outcome Outcome, duration time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) OperationStarted(string)                                 {}
func (nopObserver) OperationRetried(string, int, time.Duration)             {}
func (nopObserver) OperationFinished(string, Outcome, time.Duration, error) {}
