package access

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrAttemptNotFound = errors.New("access attempt not found")
	ErrClosed          = errors.New("access attempt is closed")
	ErrChecksRequired  = errors.New("security checks must pass before accessing content")

	// user-facing fetch messages
	msgFetchFailed   = "Unable to load course session"
	msgFetchTimedOut = "Timed out loading course session"
)

// FetchFailure is returned by a SessionFetcher when the session cannot be resolved.
// Message is shown to the learner as is.
type FetchFailure struct {
	Message string
	Err     error
}

func NewFetchFailure(msg string, err ...error) *FetchFailure {
	ff := &FetchFailure{Message: msg}
	if len(err) > 0 {
		ff.Err = err[0]
	}
	return ff
}

func (ff *FetchFailure) Error() string {
	if ff.Err != nil {
		return ff.Message + ": " + ff.Err.Error()
	}
	return ff.Message
}

func (ff *FetchFailure) Unwrap() error { return ff.Err }

// TransitionError is returned when an action is not allowed in the current state.
type TransitionError struct {
	Action string
	State  State
}

func (err *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s while %s", err.Action, err.State)
}

// IsTransitionError reports whether err (or any error it wraps) is a *TransitionError.
func IsTransitionError(err error) bool {
	var tErr *TransitionError
	return errors.As(err, &tErr)
}
