package chain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned by accessors when no value is stored for a label.
	ErrNotFound = errors.New("chain: no value for label")

	ErrTransport    = errors.New("transport failure")
	ErrParse        = errors.New("parse failure")
	ErrCapacity     = errors.New("capacity truncation")
	ErrMissingInput = errors.New("missing input")
)

// StepError is the recorded cause of a failed ledger entry. Match the kind with
// errors.Is(err, ErrTransport) and friends; errors.Unwrap reaches the cause.
type StepError struct {
	Kind  error
	Step  string
	Label Key
	At    time.Time
	Err   error
}

func (e *StepError) Error() string {
	if e == nil {
		return "step error"
	}
	if e.Err == nil {
		return fmt.Sprintf("step %q: %v", e.Step, e.Kind)
	}
	return fmt.Sprintf("step %q: %v: %v", e.Step, e.Kind, e.Err)
}

func (e *StepError) Unwrap() []error {
	if e == nil {
		return nil
	}
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Cause returns the underlying error without the kind sentinel.
func (e *StepError) Cause() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newStepError(kind error, step string, label Key, err error) *StepError {
	return &StepError{Kind: kind, Step: step, Label: label, At: time.Now(), Err: err}
}

func notFound(k Key) error {
	return fmt.Errorf("%w: %s", ErrNotFound, k)
}
