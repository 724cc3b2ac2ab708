package access_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/access"
	"github.com/trezcool/academia/core/access/mocks"
)

type testLogger struct{}

func (testLogger) Debug(string, ...interface{}) {}
func (testLogger) Info(string, ...interface{})  {}
func (testLogger) Warn(string, ...interface{})  {}
func (testLogger) Error(string, ...interface{}) {}
func (testLogger) Fatal(string, ...interface{}) {}

type env struct{ secure bool }

func (env) HasCameraAPI() bool      { return true }
func (env) HasLocalStorage() bool   { return true }
func (env) HasSessionStorage() bool { return true }
func (env) HasNotifications() bool  { return true }
func (e env) IsSecureContext() bool { return e.secure }
func (env) CookiesEnabled() bool    { return true }

func session(modality access.Modality) access.AccessSession {
	return access.AccessSession{
		SessionID: "sess-1",
		Course:    access.CourseRef{ID: "course-1", Title: "Go 101", Modality: modality, ContentURL: "https://lms.test/go"},
		Session:   access.SessionRef{ID: "sess-1", JoinURL: "https://meet.test/go", Location: "Lab 2"},
	}
}

func newService(t *testing.T, opts access.ServiceOptions) (*access.Service, *mocks.MockSessionFetcher) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockSessionFetcher(ctrl)
	return access.NewService(fetcher, nil, nil, testLogger{}, opts), fetcher
}

func TestService_BeginAndDispatch(t *testing.T) {
	svc, fetcher := newService(t, access.ServiceOptions{})
	fetcher.EXPECT().
		FetchAccessSession(gomock.Any(), "sess-1").
		Return(session(access.Virtual), nil).
		Times(1)

	snap, err := svc.Begin(access.BeginRequest{SessionID: " sess-1 ", Env: env{secure: true}})
	require.NoError(t, err)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, "sess-1", snap.SessionID)
	assert.Equal(t, 1, svc.Len())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err = svc.Wait(ctx, snap.ID)
	require.NoError(t, err)
	require.Equal(t, access.StateReady, snap.Outcome.State())

	d, err := svc.Dispatch(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, access.ActionRender, d.Action)
	assert.Equal(t, access.HandlerVirtualClassroom, d.Handler)
	assert.Equal(t, "https://meet.test/go", d.Target)
}

func TestService_BeginValidation(t *testing.T) {
	svc, _ := newService(t, access.ServiceOptions{})
	_, err := svc.Begin(access.BeginRequest{SessionID: "  "})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, 0, svc.Len())
}

func TestService_ManualAccessThenDispatch(t *testing.T) {
	svc, fetcher := newService(t, access.ServiceOptions{})
	fetcher.EXPECT().FetchAccessSession(gomock.Any(), "sess-1").Return(session(access.Online), nil)

	snap, err := svc.Begin(access.BeginRequest{SessionID: "sess-1", Env: env{secure: false}})
	require.NoError(t, err)
	snap, err = svc.Wait(context.Background(), snap.ID)
	require.NoError(t, err)
	require.Equal(t, access.StateRedirecting, snap.Outcome.State())

	_, err = svc.Dispatch(snap.ID)
	assert.True(t, access.IsTransitionError(err))

	snap, err = svc.ManualAccess(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, access.StateReady, snap.Outcome.State())

	d, err := svc.Dispatch(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, access.ActionNavigate, d.Action)
	assert.Equal(t, "https://lms.test/go", d.Target)
}

func TestService_RetryAndReturn(t *testing.T) {
	svc, fetcher := newService(t, access.ServiceOptions{})
	fetcher.EXPECT().
		FetchAccessSession(gomock.Any(), "missing").
		Return(access.AccessSession{}, access.NewFetchFailure("Session not found")).
		Times(2)

	snap, err := svc.Begin(access.BeginRequest{SessionID: "missing"})
	require.NoError(t, err)
	id := snap.ID

	snap, err = svc.Wait(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, access.Failed{Message: "Session not found"}, snap.Outcome)

	_, err = svc.Retry(id)
	require.NoError(t, err)
	snap, err = svc.Wait(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, access.StateError, snap.Outcome.State())
	assert.Equal(t, 2, snap.Fetches)

	snap, err = svc.Return(id)
	require.NoError(t, err)
	assert.True(t, snap.Closed)

	_, err = svc.Get(id)
	assert.Equal(t, access.ErrAttemptNotFound, err)
}

func TestService_NotFound(t *testing.T) {
	svc, _ := newService(t, access.ServiceOptions{})
	_, err := svc.Get("nope")
	assert.Equal(t, access.ErrAttemptNotFound, err)
	_, err = svc.Retry("nope")
	assert.Equal(t, access.ErrAttemptNotFound, err)
	_, err = svc.Dispatch("nope")
	assert.Equal(t, access.ErrAttemptNotFound, err)
	assert.Equal(t, access.ErrAttemptNotFound, svc.Close("nope"))
}

func TestService_Sweep(t *testing.T) {
	now := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)
	access.NowFunc = func() time.Time { return now }
	defer func() { access.NowFunc = time.Now }()

	svc, fetcher := newService(t, access.ServiceOptions{AttemptTTL: 30 * time.Minute})
	fetcher.EXPECT().FetchAccessSession(gomock.Any(), gomock.Any()).Return(session(access.Online), nil).Times(2)

	old, err := svc.Begin(access.BeginRequest{SessionID: "sess-1", Env: env{secure: true}})
	require.NoError(t, err)
	_, err = svc.Wait(context.Background(), old.ID)
	require.NoError(t, err)

	now = now.Add(20 * time.Minute)
	fresh, err := svc.Begin(access.BeginRequest{SessionID: "sess-1", Env: env{secure: true}})
	require.NoError(t, err)
	_, err = svc.Wait(context.Background(), fresh.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, svc.Sweep(now))
	assert.Equal(t, 1, svc.Sweep(now.Add(15*time.Minute)))

	_, err = svc.Get(old.ID)
	assert.Equal(t, access.ErrAttemptNotFound, err)
	_, err = svc.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestService_RunClosesAttempts(t *testing.T) {
	svc, fetcher := newService(t, access.ServiceOptions{SweepInterval: time.Hour})
	fetcher.EXPECT().FetchAccessSession(gomock.Any(), gomock.Any()).Return(session(access.Online), nil)

	snap, err := svc.Begin(access.BeginRequest{SessionID: "sess-1", Env: env{secure: true}})
	require.NoError(t, err)
	_, err = svc.Wait(context.Background(), snap.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	cancel()

	select {
	case err = <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return")
	}
	assert.Equal(t, 0, svc.Len())
}

type staticFetcher struct {
	sess access.AccessSession
}

func (f staticFetcher) FetchAccessSession(context.Context, string) (access.AccessSession, error) {
	return f.sess, nil
}

func TestNewService_ValueDependencies(t *testing.T) {
	var svc *access.Service
	require.NotPanics(t, func() {
		svc = access.NewService(staticFetcher{sess: session(access.Online)}, nil, nil, testLogger{}, access.ServiceOptions{})
	})

	snap, err := svc.Begin(access.BeginRequest{SessionID: "sess-1", Env: env{secure: true}})
	require.NoError(t, err)
	snap, err = svc.Wait(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Equal(t, access.StateReady, snap.Outcome.State())

	assert.Panics(t, func() { access.NewService(nil, nil, nil, testLogger{}, access.ServiceOptions{}) })
	assert.Panics(t, func() { access.NewService(staticFetcher{}, nil, nil, nil, access.ServiceOptions{}) })
}
