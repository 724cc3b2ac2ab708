package access

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeEnv struct {
	camera, local, session, notifications, secure, cookies bool
}

func (e fakeEnv) HasCameraAPI() bool      { return e.camera }
func (e fakeEnv) HasLocalStorage() bool   { return e.local }
func (e fakeEnv) HasSessionStorage() bool { return e.session }
func (e fakeEnv) HasNotifications() bool  { return e.notifications }
func (e fakeEnv) IsSecureContext() bool   { return e.secure }
func (e fakeEnv) CookiesEnabled() bool    { return e.cookies }

func capableEnv() fakeEnv {
	return fakeEnv{camera: true, local: true, session: true, notifications: true, secure: true, cookies: true}
}

var (
	validToken   = AuthenticatorFunc(func() bool { return true })
	invalidToken = AuthenticatorFunc(func() bool { return false })
)

type fetcherFunc func(ctx context.Context, sessionID string) (AccessSession, error)

func (f fetcherFunc) FetchAccessSession(ctx context.Context, sessionID string) (AccessSession, error) {
	return f(ctx, sessionID)
}

// countingFetcher returns `sess` (or `err`) and counts its calls.
type countingFetcher struct {
	mu    sync.Mutex
	calls int
	sess  AccessSession
	err   error
}

func (f *countingFetcher) FetchAccessSession(_ context.Context, _ string) (AccessSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.sess, f.err
}

func (f *countingFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *countingFetcher) Set(sess AccessSession, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sess, f.err = sess, err
}

type recordingNotifier struct {
	mu       sync.Mutex
	warnings []Warning
}

func (n *recordingNotifier) Warn(w Warning) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.warnings = append(n.warnings, w)
}

func (n *recordingNotifier) Warnings() []Warning {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Warning(nil), n.warnings...)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func testSession(modality Modality) AccessSession {
	starts := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	return AccessSession{
		SessionID: "sess-1",
		Course: CourseRef{
			ID:         "course-1",
			Title:      "Kubernetes Fundamentals",
			Modality:   modality,
			ContentURL: "https://lms.test/courses/k8s",
		},
		Session: SessionRef{
			ID:         "sess-1",
			StartsAt:   starts,
			EndsAt:     starts.Add(2 * time.Hour),
			Location:   "Room 4B, Kinshasa",
			JoinURL:    "https://meet.test/k8s",
			ContentURL: "https://lms.test/courses/k8s/sessions/1",
		},
	}
}

type ctrlOpt func(*Options)

func withPolicy(p Policy) ctrlOpt { return func(o *Options) { o.Policy = p } }
func withTimeout(d time.Duration) ctrlOpt { return func(o *Options) { o.FetchTimeout = d } }
func withNotifier(n Notifier) ctrlOpt { return func(o *Options) { o.Evaluator = NewEvaluator(n, nil) } }
func withAuth(a Authenticator) ctrlOpt { return func(o *Options) { o.Auth = a } }
func withEnv(e Environment) ctrlOpt { return func(o *Options) { o.Env = e } }
func withObserver(obs Observer) ctrlOpt { return func(o *Options) { o.Observer = obs } }

func newTestController(fetcher SessionFetcher, opts ...ctrlOpt) *Controller {
	o := Options{
		ID:        "attempt-1",
		SessionID: "sess-1",
		Learner:   Learner{ID: "u1", Name: "Jo", Email: "jo@test.cd"},
		Fetcher:   fetcher,
		Evaluator: NewEvaluator(nil, nil),
		Env:       capableEnv(),
		Auth:      validToken,
		Logger:    nopLogger{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return NewController(o)
}

func waitSettled(t *testing.T, c *Controller) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := c.Wait(ctx)
	require.NoError(t, err)
	return snap
}

func states(history []Transition) []State {
	sts := make([]State, 0, len(history))
	for _, tr := range history {
		sts = append(sts, tr.To)
	}
	return sts
}
