package access

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/academia/core"
)

const (
	defaultAttemptTTL    = 30 * time.Minute
	defaultSweepInterval = time.Minute
)

type (
	// ServiceOptions tunes the Service.
	ServiceOptions struct {
		FetchTimeout  time.Duration
		AttemptTTL    time.Duration
		SweepInterval time.Duration
		Policy        Policy
	}

	// BeginRequest starts an access attempt for a session.
	BeginRequest struct {
		SessionID string
		Learner   Learner
		Env       Environment
		Auth      Authenticator
	}

	// Service keeps track of the live access attempts.
	Service struct {
		fetcher    SessionFetcher
		evaluator  *Evaluator
		dispatcher Dispatcher
		observer   Observer
		logger     core.Logger
		opts       ServiceOptions

		mu       sync.RWMutex
		attempts map[string]*Controller
	}
)

func NewService(fetcher SessionFetcher, notifier Notifier, observer Observer, logger core.Logger, opts ServiceOptions) *Service {
	if fetcher == nil {
		panic("access: fetcher is required")
	}
	if logger == nil {
		panic("access: logger is required")
	}

	if observer == nil {
		observer = NopObserver
	}
	if opts.AttemptTTL <= 0 {
		opts.AttemptTTL = defaultAttemptTTL
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = defaultSweepInterval
	}
	return &Service{
		fetcher:    fetcher,
		evaluator:  NewEvaluator(notifier, observer),
		dispatcher: NewDispatcher(),
		observer:   observer,
		logger:     logger,
		opts:       opts,
		attempts:   make(map[string]*Controller),
	}
}

// Begin starts a new access attempt. The payload is fetched in the background.
func (svc *Service) Begin(req BeginRequest) (Snapshot, error) {
	sessionID := core.CleanString(req.SessionID)
	if sessionID == "" {
		return Snapshot{}, core.NewValidationError(nil, core.FieldError{Field: "session_id", Error: "this field is required"})
	}

	ctrl := NewController(Options{
		ID:           uuid.New().String(),
		SessionID:    sessionID,
		Learner:      req.Learner,
		Fetcher:      svc.fetcher,
		Evaluator:    svc.evaluator,
		Env:          req.Env,
		Auth:         req.Auth,
		Observer:     svc.observer,
		Logger:       svc.logger,
		Policy:       svc.opts.Policy,
		FetchTimeout: svc.opts.FetchTimeout,
	})

	svc.mu.Lock()
	svc.attempts[ctrl.ID()] = ctrl
	svc.mu.Unlock()

	ctrl.Start()
	return ctrl.Snapshot(), nil
}

func (svc *Service) controller(id string) (*Controller, error) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	if ctrl, ok := svc.attempts[id]; ok {
		return ctrl, nil
	}
	return nil, ErrAttemptNotFound
}

func (svc *Service) Get(id string) (Snapshot, error) {
	ctrl, err := svc.controller(id)
	if err != nil {
		return Snapshot{}, err
	}
	return ctrl.Snapshot(), nil
}

// Wait blocks until the attempt has left Loading or ctx is done.
func (svc *Service) Wait(ctx context.Context, id string) (Snapshot, error) {
	ctrl, err := svc.controller(id)
	if err != nil {
		return Snapshot{}, err
	}
	return ctrl.Wait(ctx)
}

func (svc *Service) Retry(id string) (Snapshot, error) {
	return svc.act(id, (*Controller).Retry)
}

func (svc *Service) ManualAccess(id string) (Snapshot, error) {
	return svc.act(id, (*Controller).ManualAccess)
}

func (svc *Service) Recheck(id string, env Environment, auth Authenticator) (Snapshot, error) {
	return svc.act(id, func(ctrl *Controller) error { return ctrl.Recheck(env, auth) })
}

// Return exits a failed attempt and forgets it.
func (svc *Service) Return(id string) (Snapshot, error) {
	snap, err := svc.act(id, (*Controller).Return)
	if err == nil {
		svc.forget(id)
	}
	return snap, err
}

// Close abandons an attempt in any state and forgets it.
func (svc *Service) Close(id string) error {
	ctrl, err := svc.controller(id)
	if err != nil {
		return err
	}
	ctrl.Close()
	svc.forget(id)
	return nil
}

// Dispatch resolves a Ready attempt to its Dispatch.
func (svc *Service) Dispatch(id string) (Dispatch, error) {
	ctrl, err := svc.controller(id)
	if err != nil {
		return Dispatch{}, err
	}
	ready, ok := ctrl.Outcome().(Ready)
	if !ok {
		return Dispatch{}, &TransitionError{Action: "dispatch", State: ctrl.Outcome().State()}
	}
	return svc.dispatcher.Dispatch(ready.Session), nil
}

func (svc *Service) act(id string, action func(*Controller) error) (Snapshot, error) {
	ctrl, err := svc.controller(id)
	if err != nil {
		return Snapshot{}, err
	}
	if err = action(ctrl); err != nil {
		return ctrl.Snapshot(), err
	}
	return ctrl.Snapshot(), nil
}

func (svc *Service) forget(id string) {
	svc.mu.Lock()
	delete(svc.attempts, id)
	svc.mu.Unlock()
}

// Len returns the number of live attempts.
func (svc *Service) Len() int {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	return len(svc.attempts)
}

// Sweep closes and forgets the attempts idle since before now - AttemptTTL. It returns how many were evicted.
func (svc *Service) Sweep(now time.Time) int {
	cutoff := now.Add(-svc.opts.AttemptTTL)

	svc.mu.Lock()
	var expired []*Controller
	for id, ctrl := range svc.attempts {
		if ctrl.Snapshot().LastSeen.Before(cutoff) {
			expired = append(expired, ctrl)
			delete(svc.attempts, id)
		}
	}
	svc.mu.Unlock()

	for _, ctrl := range expired {
		ctrl.Close()
	}
	if n := len(expired); n > 0 {
		svc.logger.Debug(fmt.Sprintf("access: evicted %d idle attempts", n))
	}
	return len(expired)
}

// Run sweeps idle attempts every SweepInterval until ctx is done, then closes every attempt.
func (svc *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(svc.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			svc.closeAll()
			return nil
		case <-ticker.C:
			svc.Sweep(NowFunc().UTC())
		}
	}
}

func (svc *Service) closeAll() {
	svc.mu.Lock()
	attempts := svc.attempts
	svc.attempts = make(map[string]*Controller)
	svc.mu.Unlock()

	for _, ctrl := range attempts {
		ctrl.Close()
	}
}
