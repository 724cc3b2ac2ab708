package access

import "context"

type (
	// SessionFetcher resolves the course/session payload of an access attempt.
	// Implementations should return a *FetchFailure for learner-facing failures.
	SessionFetcher interface {
		FetchAccessSession(ctx context.Context, sessionID string) (AccessSession, error)
	}

	// Notifier delivers check warnings to the learner. Warn must not block.
	Notifier interface {
		Warn(w Warning)
	}

	// Observer is told about every state change and check result.
	Observer interface {
		StateChanged(from, to State, trigger string)
		CheckEvaluated(check Check, passed bool)
	}
)

type nopNotifier struct{}

func (nopNotifier) Warn(Warning) {}

type nopObserver struct{}

func (nopObserver) StateChanged(State, State, string) {}
func (nopObserver) CheckEvaluated(Check, bool)        {}

// NopNotifier drops every warning.
var NopNotifier Notifier = nopNotifier{}

// NopObserver ignores every event.
var NopObserver Observer = nopObserver{}

type multiNotifier []Notifier

func (mn multiNotifier) Warn(w Warning) {
	for _, n := range mn {
		n.Warn(w)
	}
}

// MultiNotifier fans warnings out to every notifier.
func MultiNotifier(notifiers ...Notifier) Notifier {
	return multiNotifier(notifiers)
}
