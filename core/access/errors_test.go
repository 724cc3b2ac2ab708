package access

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestIsTransitionError(t *testing.T) {
	tErr := &TransitionError{Action: "retry", State: StateReady}

	assert.True(t, IsTransitionError(tErr))
	assert.True(t, IsTransitionError(errors.Wrap(tErr, "retrying access attempt")))
	assert.False(t, IsTransitionError(ErrClosed))
	assert.Equal(t, "cannot retry while ready", tErr.Error())
}

func TestFetchFailure_Unwrap(t *testing.T) {
	ff := NewFetchFailure("Unable to load course session", context.DeadlineExceeded)

	assert.True(t, errors.Is(errors.Wrap(ff, "fetching"), context.DeadlineExceeded))
	var got *FetchFailure
	assert.True(t, errors.As(errors.Wrap(ff, "fetching"), &got))
	assert.Equal(t, "Unable to load course session: context deadline exceeded", got.Error())
	assert.Equal(t, "Session not found", NewFetchFailure("Session not found").Error())
}
