package access

type (
	// Environment exposes the capabilities of the learner's executing context.
	Environment interface {
		HasCameraAPI() bool
		HasLocalStorage() bool
		HasSessionStorage() bool
		HasNotifications() bool
		IsSecureContext() bool
		CookiesEnabled() bool
	}

	// Authenticator verifies the learner's current authentication token.
	Authenticator interface {
		IsTokenValid() bool
	}

	// AuthenticatorFunc adapts a function to an Authenticator.
	AuthenticatorFunc func() bool
)

func (f AuthenticatorFunc) IsTokenValid() bool { return f() }

// AlwaysValid stands in for an SSO verifier when none is configured.
var AlwaysValid Authenticator = AuthenticatorFunc(func() bool { return true })

// DeviceCheck passes when every required platform capability is present.
func DeviceCheck(env Environment) bool {
	if env == nil {
		return false
	}
	return env.HasCameraAPI() && env.HasLocalStorage() && env.HasSessionStorage() && env.HasNotifications()
}

// RequirementsCheck passes in a secure transport context with cookies enabled.
func RequirementsCheck(env Environment) bool {
	if env == nil {
		return false
	}
	return env.IsSecureContext() && env.CookiesEnabled()
}

// IdentityCheck passes when the authentication token is valid. A nil Authenticator acts as AlwaysValid.
func IdentityCheck(auth Authenticator) bool {
	if auth == nil {
		return true
	}
	return auth.IsTokenValid()
}

// Subject identifies the attempt being evaluated, for warnings.
type Subject struct {
	AttemptID string
	SessionID string
	Learner   Learner
}

// Evaluator runs the security checks of an access attempt.
type Evaluator struct {
	notifier Notifier
	observer Observer
}

func NewEvaluator(notifier Notifier, observer Observer) *Evaluator {
	if notifier == nil {
		notifier = NopNotifier
	}
	if observer == nil {
		observer = NopObserver
	}
	return &Evaluator{notifier: notifier, observer: observer}
}

// Evaluate runs the device, requirements and identity checks against the ambient environment.
// A warning is emitted for every failing check; failures never block.
func (ev *Evaluator) Evaluate(sub Subject, env Environment, auth Authenticator) SecurityCheckState {
	var state SecurityCheckState
	state.set(CheckDevice, DeviceCheck(env))
	state.set(CheckRequirements, RequirementsCheck(env))
	state.set(CheckIdentity, IdentityCheck(auth))

	for _, check := range Checks {
		passed := state.Passed(check)
		ev.observer.CheckEvaluated(check, passed)
		if !passed {
			ev.notifier.Warn(Warning{
				AttemptID: sub.AttemptID,
				SessionID: sub.SessionID,
				Learner:   sub.Learner,
				Check:     check,
				Message:   WarningMessage(check),
			})
		}
	}
	return state
}
