package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestController_AllChecksPass(t *testing.T) {
	sess := testSession(Online)
	fetcher := &countingFetcher{sess: sess}
	c := newTestController(fetcher)
	assert.Equal(t, StateLoading, c.Outcome().State())

	c.Start()
	snap := waitSettled(t, c)

	ready, ok := snap.Outcome.(Ready)
	require.True(t, ok, "outcome = %T, want Ready", snap.Outcome)
	assert.False(t, ready.Manual)
	assert.Equal(t, sess, ready.Session)
	assert.Equal(t, SecurityCheckState{Identity: true, Device: true, Requirements: true}, snap.Checks)
	assert.Empty(t, snap.Warnings)
	assert.Equal(t, []State{StateLoading, StateRedirecting, StateReady}, states(snap.History))
	assert.Equal(t, 1, fetcher.Calls())
}

func TestController_FetchFailure(t *testing.T) {
	fetcher := &countingFetcher{err: NewFetchFailure("Session not found")}
	c := newTestController(fetcher)
	c.Start()

	snap := waitSettled(t, c)
	assert.Equal(t, Failed{Message: "Session not found"}, snap.Outcome)
	assert.Equal(t, []State{StateLoading, StateError}, states(snap.History))

	// retry re-enters Loading and fetches again, once per call
	fetcher.Set(testSession(Online), nil)
	require.NoError(t, c.Retry())
	snap = waitSettled(t, c)
	assert.Equal(t, 2, fetcher.Calls())
	assert.Equal(t, 2, snap.Fetches)
	assert.Equal(t, []State{StateLoading, StateError, StateLoading, StateRedirecting, StateReady}, states(snap.History))
	assert.Equal(t, TriggerRetry, snap.History[2].Trigger)
}

func TestController_RetryCountsFetches(t *testing.T) {
	fetcher := &countingFetcher{err: NewFetchFailure("Session not found")}
	c := newTestController(fetcher)
	c.Start()
	waitSettled(t, c)

	for i := 2; i <= 4; i++ {
		require.NoError(t, c.Retry())
		snap := waitSettled(t, c)
		assert.Equal(t, StateError, snap.Outcome.State())
		assert.Equal(t, i, fetcher.Calls())
	}
}

func TestController_FailureMessages(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{name: "fetch failure", err: NewFetchFailure("Session not found"), wantMsg: "Session not found"},
		{name: "unexpected error", err: errors.New("boom"), wantMsg: msgFetchFailed},
		{name: "empty fetch failure message", err: &FetchFailure{Err: errors.New("db down")}, wantMsg: msgFetchFailed},
		{name: "deadline", err: context.DeadlineExceeded, wantMsg: msgFetchTimedOut},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestController(&countingFetcher{err: tt.err})
			c.Start()
			snap := waitSettled(t, c)
			assert.Equal(t, Failed{Message: tt.wantMsg}, snap.Outcome)
		})
	}
}

func TestController_FetchTimeout(t *testing.T) {
	fetcher := fetcherFunc(func(ctx context.Context, _ string) (AccessSession, error) {
		<-ctx.Done()
		return AccessSession{}, ctx.Err()
	})
	c := newTestController(fetcher, withTimeout(20*time.Millisecond))
	c.Start()

	snap := waitSettled(t, c)
	assert.Equal(t, Failed{Message: msgFetchTimedOut}, snap.Outcome)
}

func TestController_DeviceCheckFails(t *testing.T) {
	env := capableEnv()
	env.camera = false
	notifier := &recordingNotifier{}
	c := newTestController(&countingFetcher{sess: testSession(Online)}, withEnv(env), withNotifier(notifier))
	c.Start()

	snap := waitSettled(t, c)
	assert.Equal(t, Redirecting{Checks: SecurityCheckState{Identity: true, Device: false, Requirements: true}}, snap.Outcome)
	assert.Equal(t, []string{WarningMessage(CheckDevice)}, snap.Warnings)

	warnings := notifier.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, CheckDevice, warnings[0].Check)
	assert.Equal(t, "attempt-1", warnings[0].AttemptID)
	assert.Equal(t, "jo@test.cd", warnings[0].Learner.Email)

	// stays Redirecting until the learner asks for manual access
	assert.Equal(t, StateRedirecting, c.Outcome().State())
	require.NoError(t, c.ManualAccess())

	ready, ok := c.Outcome().(Ready)
	require.True(t, ok)
	assert.True(t, ready.Manual)
	snap = c.Snapshot()
	assert.Equal(t, TriggerManual, snap.History[len(snap.History)-1].Trigger)
}

func TestController_ManualAccessAlwaysAvailable(t *testing.T) {
	envs := map[string]fakeEnv{
		"nothing":     {},
		"no cookies":  {camera: true, local: true, session: true, notifications: true, secure: true},
		"plain http":  {camera: true, local: true, session: true, notifications: true, cookies: true},
		"no storage":  {camera: true, notifications: true, secure: true, cookies: true},
		"no notifier": {camera: true, local: true, session: true, secure: true, cookies: true},
	}
	for name, env := range envs {
		t.Run(name, func(t *testing.T) {
			c := newTestController(&countingFetcher{sess: testSession(Online)}, withEnv(env), withAuth(invalidToken))
			c.Start()
			snap := waitSettled(t, c)
			require.Equal(t, StateRedirecting, snap.Outcome.State())
			require.NoError(t, c.ManualAccess())
			assert.Equal(t, StateReady, c.Outcome().State())
		})
	}
}

func TestController_ReadyIffAllChecksPass(t *testing.T) {
	bools := []bool{false, true}
	for _, device := range bools {
		for _, secure := range bools {
			for _, identity := range bools {
				identity := identity
				env := capableEnv()
				env.camera = device
				env.secure = secure
				auth := AuthenticatorFunc(func() bool { return identity })

				c := newTestController(&countingFetcher{sess: testSession(Online)}, withEnv(env), withAuth(auth))
				c.Start()
				snap := waitSettled(t, c)

				allTrue := device && secure && identity
				assert.Equal(t, allTrue, snap.Checks.AllPassed())
				assert.Equal(t, allTrue, snap.Outcome.State() == StateReady,
					"device=%v secure=%v identity=%v: state %s", device, secure, identity, snap.Outcome.State())
			}
		}
	}
}

func TestController_Recheck(t *testing.T) {
	env := capableEnv()
	env.cookies = false
	c := newTestController(&countingFetcher{sess: testSession(Online)}, withEnv(env))
	c.Start()
	snap := waitSettled(t, c)
	require.Equal(t, StateRedirecting, snap.Outcome.State())
	assert.False(t, snap.Checks.Requirements)

	// still missing camera: stays Redirecting
	env2 := capableEnv()
	env2.camera = false
	require.NoError(t, c.Recheck(env2, nil))
	assert.Equal(t, Redirecting{Checks: SecurityCheckState{Identity: true, Requirements: true}}, c.Outcome())

	require.NoError(t, c.Recheck(capableEnv(), nil))
	snap = c.Snapshot()
	assert.Equal(t, StateReady, snap.Outcome.State())
	assert.Empty(t, snap.Warnings)
	assert.Equal(t, TriggerRecheck, snap.History[len(snap.History)-1].Trigger)
}

func TestController_InvalidTransitions(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	loading := newTestController(fetcherFunc(func(ctx context.Context, _ string) (AccessSession, error) {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return AccessSession{}, ctx.Err()
	}))
	loading.Start()
	defer loading.Close()

	ready := newTestController(&countingFetcher{sess: testSession(Online)})
	ready.Start()
	waitSettled(t, ready)

	failed := newTestController(&countingFetcher{err: NewFetchFailure("Session not found")})
	failed.Start()
	waitSettled(t, failed)

	tests := []struct {
		name   string
		ctrl   *Controller
		action func(*Controller) error
		state  State
	}{
		{name: "manual while loading", ctrl: loading, action: (*Controller).ManualAccess, state: StateLoading},
		{name: "retry while loading", ctrl: loading, action: (*Controller).Retry, state: StateLoading},
		{name: "return while loading", ctrl: loading, action: (*Controller).Return, state: StateLoading},
		{name: "manual while ready", ctrl: ready, action: (*Controller).ManualAccess, state: StateReady},
		{name: "retry while ready", ctrl: ready, action: (*Controller).Retry, state: StateReady},
		{name: "recheck while ready", ctrl: ready, action: func(c *Controller) error { return c.Recheck(nil, nil) }, state: StateReady},
		{name: "manual while failed", ctrl: failed, action: (*Controller).ManualAccess, state: StateError},
		{name: "recheck while failed", ctrl: failed, action: func(c *Controller) error { return c.Recheck(nil, nil) }, state: StateError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.action(tt.ctrl)
			var tErr *TransitionError
			require.True(t, errors.As(err, &tErr), "err = %v", err)
			assert.Equal(t, tt.state, tErr.State)
			assert.Equal(t, tt.state, tt.ctrl.Outcome().State())
		})
	}
}

func TestController_Return(t *testing.T) {
	c := newTestController(&countingFetcher{err: NewFetchFailure("Session not found")})
	c.Start()
	waitSettled(t, c)

	require.NoError(t, c.Return())
	assert.True(t, c.Snapshot().Closed)
	assert.Equal(t, ErrClosed, c.Retry())
	assert.Equal(t, ErrClosed, c.Return())

	_, err := c.Wait(context.Background())
	assert.Equal(t, ErrClosed, err)
}

func TestController_RequireChecksForManual(t *testing.T) {
	env := capableEnv()
	env.camera = false
	c := newTestController(&countingFetcher{sess: testSession(Online)}, withEnv(env), withPolicy(Policy{RequireChecksForManual: true}))
	c.Start()
	waitSettled(t, c)

	assert.Equal(t, ErrChecksRequired, c.ManualAccess())
	assert.Equal(t, StateRedirecting, c.Outcome().State())
}

func TestController_UnmountWhileLoading(t *testing.T) {
	ignore := goleak.IgnoreCurrent()

	release := make(chan struct{})
	fetcher := fetcherFunc(func(_ context.Context, _ string) (AccessSession, error) {
		<-release // resolves late, ignoring cancellation
		return testSession(Online), nil
	})
	c := newTestController(fetcher)
	c.Start()
	require.Equal(t, StateLoading, c.Outcome().State())

	c.Close()
	close(release)

	// the fetch goroutine exits without touching the closed attempt
	goleak.VerifyNone(t, ignore)

	snap := c.Snapshot()
	assert.True(t, snap.Closed)
	assert.Equal(t, Loading{}, snap.Outcome)
	assert.Equal(t, []State{StateLoading}, states(snap.History))
	assert.Equal(t, SecurityCheckState{}, snap.Checks)
}

func TestController_CloseUnblocksWait(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	c := newTestController(fetcherFunc(func(ctx context.Context, _ string) (AccessSession, error) {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return AccessSession{}, ctx.Err()
	}))
	c.Start()

	errc := make(chan error, 1)
	go func() {
		_, err := c.Wait(context.Background())
		errc <- err
	}()
	c.Close()

	select {
	case err := <-errc:
		assert.Equal(t, ErrClosed, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not return after Close()")
	}
}

type recordingObserver struct {
	transitions []Transition
	checks      map[Check]bool
}

func (o *recordingObserver) StateChanged(from, to State, trigger string) {
	o.transitions = append(o.transitions, Transition{From: from, To: to, Trigger: trigger})
}

func (o *recordingObserver) CheckEvaluated(check Check, passed bool) {
	if o.checks == nil {
		o.checks = make(map[Check]bool)
	}
	o.checks[check] = passed
}

func TestController_Observer(t *testing.T) {
	obs := &recordingObserver{}
	c := newTestController(&countingFetcher{sess: testSession(Online)}, withObserver(obs))
	c.Start()
	waitSettled(t, c)

	require.Len(t, obs.transitions, 3)
	assert.Equal(t, Transition{From: "", To: StateLoading, Trigger: TriggerStart}, obs.transitions[0])
	assert.Equal(t, Transition{From: StateLoading, To: StateRedirecting, Trigger: TriggerFetched}, obs.transitions[1])
	assert.Equal(t, Transition{From: StateRedirecting, To: StateReady, Trigger: TriggerChecksPassed}, obs.transitions[2])
}

// staticFetcher is a non-pointer SessionFetcher.
type staticFetcher struct {
	sess AccessSession
}

func (f staticFetcher) FetchAccessSession(context.Context, string) (AccessSession, error) {
	return f.sess, nil
}

func TestNewController_ValueDependencies(t *testing.T) {
	opts := Options{
		ID:        "attempt-1",
		SessionID: "sess-1",
		Fetcher:   staticFetcher{sess: testSession(Virtual)},
		Evaluator: NewEvaluator(nil, nil),
		Env:       capableEnv(),
		Auth:      validToken,
		Logger:    nopLogger{},
	}

	var c *Controller
	require.NotPanics(t, func() { c = NewController(opts) })
	c.Start()
	snap := waitSettled(t, c)
	assert.Equal(t, StateReady, snap.Outcome.State())

	missing := opts
	missing.Logger = nil
	assert.Panics(t, func() { NewController(missing) })
	missing = opts
	missing.Fetcher = nil
	assert.Panics(t, func() { NewController(missing) })
}
