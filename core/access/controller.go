package access

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var NowFunc = time.Now // mockable

const defaultFetchTimeout = 10 * time.Second

// Policy tunes how permissive the access gate is.
type Policy struct {
	// RequireChecksForManual refuses manual access while any check fails.
	RequireChecksForManual bool
}

// Options configures a Controller. Fetcher, Evaluator, Logger and SessionID are required.
type Options struct {
	ID           string
	SessionID    string
	Learner      Learner
	Fetcher      SessionFetcher
	Evaluator    *Evaluator
	Env          Environment
	Auth         Authenticator
	Observer     Observer
	Logger       core.Logger
	Policy       Policy
	FetchTimeout time.Duration
}

// Snapshot is a point-in-time copy of an access attempt.
type Snapshot struct {
	ID        string
	SessionID string
	Learner   Learner
	Outcome   Outcome
	Checks    SecurityCheckState
	Warnings  []string
	Fetches   int
	History   []Transition
	Closed    bool
	LastSeen  time.Time
}

// Controller owns the Outcome of one access attempt and its transitions:
//
//	Loading     -> Redirecting | Error
//	Redirecting -> Ready (checks passed, recheck or manual access)
//	Error       -> Loading (retry) | exit (return)
//
// Ready is terminal. A Controller is safe for concurrent use.
type Controller struct {
	id        string
	sessionID string
	learner   Learner
	fetcher   SessionFetcher
	evaluator *Evaluator
	observer  Observer
	logger    core.Logger
	policy    Policy
	timeout   time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	env      Environment
	auth     Authenticator
	outcome  Outcome
	session  AccessSession
	checks   SecurityCheckState
	warnings []string
	history  []Transition
	fetches  int
	gen      int
	settled  chan struct{} // closed once the current fetch resolves
	started  bool
	closed   bool
	lastSeen time.Time
}

func NewController(opts Options) *Controller {
	vala.BeginValidation().Validate(
		vala.StringNotEmpty(opts.SessionID, "SessionID"),
		vala.IsNotNil(opts.Evaluator, "Evaluator"),
	).CheckAndPanic()
	// vala cannot check interfaces holding non-pointer values
	if opts.Fetcher == nil {
		panic("access: Fetcher is required")
	}
	if opts.Logger == nil {
		panic("access: Logger is required")
	}

	if opts.Observer == nil {
		opts.Observer = NopObserver
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		id:        opts.ID,
		sessionID: opts.SessionID,
		learner:   opts.Learner,
		fetcher:   opts.Fetcher,
		evaluator: opts.Evaluator,
		observer:  opts.Observer,
		logger:    opts.Logger,
		policy:    opts.Policy,
		timeout:   opts.FetchTimeout,
		ctx:       ctx,
		cancel:    cancel,
		env:       opts.Env,
		auth:      opts.Auth,
		outcome:   Loading{},
		lastSeen:  NowFunc().UTC(),
	}
}

func (c *Controller) ID() string { return c.id }

// Start fetches the course/session payload. Calling it more than once is a no-op.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.closed {
		return
	}
	c.started = true
	c.load(TriggerStart)
}

// Outcome returns the current Outcome.
func (c *Controller) Outcome() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Wait blocks until the attempt leaves Loading, the attempt is closed or ctx is done.
func (c *Controller) Wait(ctx context.Context) (Snapshot, error) {
	for {
		c.mu.Lock()
		if c.closed {
			snap := c.snapshot()
			c.mu.Unlock()
			return snap, ErrClosed
		}
		if c.outcome.State() != StateLoading || c.settled == nil {
			snap := c.snapshot()
			c.mu.Unlock()
			return snap, nil
		}
		settled := c.settled
		c.mu.Unlock()

		select {
		case <-settled:
		case <-ctx.Done():
			return c.Snapshot(), ctx.Err()
		}
	}
}

// ManualAccess lets the learner through without waiting for every check to pass.
func (c *Controller) ManualAccess() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return err
	}
	r, ok := c.outcome.(Redirecting)
	if !ok {
		return &TransitionError{Action: "access content manually", State: c.outcome.State()}
	}
	if c.policy.RequireChecksForManual && !r.Checks.AllPassed() {
		return ErrChecksRequired
	}
	c.transition(Ready{Session: c.session, Manual: true}, TriggerManual)
	return nil
}

// Retry fetches the payload again after a failure.
func (c *Controller) Retry() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return err
	}
	if c.outcome.State() != StateError {
		return &TransitionError{Action: "retry", State: c.outcome.State()}
	}
	c.load(TriggerRetry)
	return nil
}

// Return exits the flow after a failure. The attempt is closed afterwards.
func (c *Controller) Return() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return err
	}
	if c.outcome.State() != StateError {
		return &TransitionError{Action: "return", State: c.outcome.State()}
	}
	c.close()
	return nil
}

// Recheck evaluates the security checks again against a fresh environment.
// A nil env or auth keeps the previous one.
func (c *Controller) Recheck(env Environment, auth Authenticator) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.check(); err != nil {
		return err
	}
	if c.outcome.State() != StateRedirecting {
		return &TransitionError{Action: "recheck", State: c.outcome.State()}
	}
	if env != nil {
		c.env = env
	}
	if auth != nil {
		c.auth = auth
	}
	c.evaluate(TriggerRecheck)
	return nil
}

// Close abandons the attempt, cancelling any in-flight fetch. A fetch resolving afterwards is ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.close()
}

func (c *Controller) close() {
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	if c.outcome.State() == StateLoading && c.settled != nil {
		close(c.settled)
	}
}

// check must be called with c.mu held.
func (c *Controller) check() error {
	if c.closed {
		return ErrClosed
	}
	c.lastSeen = NowFunc().UTC()
	return nil
}

// load must be called with c.mu held.
func (c *Controller) load(trigger string) {
	c.gen++
	c.fetches++
	c.settled = make(chan struct{})
	c.transition(Loading{}, trigger)

	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	go c.fetch(ctx, cancel, c.gen, c.settled)
}

func (c *Controller) fetch(ctx context.Context, cancel context.CancelFunc, gen int, settled chan struct{}) {
	defer cancel()
	as, err := c.fetcher.FetchAccessSession(ctx, c.sessionID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.gen {
		return
	}
	defer close(settled)

	if err != nil {
		msg := c.fetchMessage(ctx, err)
		c.transition(Failed{Message: msg}, TriggerFetchFailed)
		return
	}
	c.session = as
	c.checks = SecurityCheckState{}
	c.transition(Redirecting{Checks: c.checks}, TriggerFetched)
	c.evaluate(TriggerChecksPassed)
}

func (c *Controller) fetchMessage(ctx context.Context, err error) string {
	var ff *FetchFailure
	if errors.As(err, &ff) && ff.Message != "" {
		c.logger.Info(fmt.Sprintf("access %s: fetching session %s: %s", c.id, c.sessionID, ff.Message), c.person())
		return ff.Message
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		c.logger.Warn(fmt.Sprintf("access %s: fetching session %s timed out", c.id, c.sessionID), err, c.person())
		return msgFetchTimedOut
	}
	c.logger.Error(
		fmt.Sprintf("access %s: fetching session %s", c.id, c.sessionID),
		errors.Wrap(err, "fetching access session"),
		c.person(),
	)
	return msgFetchFailed
}

// evaluate must be called with c.mu held, in Redirecting.
func (c *Controller) evaluate(trigger string) {
	sub := Subject{AttemptID: c.id, SessionID: c.sessionID, Learner: c.learner}
	c.checks = c.evaluator.Evaluate(sub, c.env, c.auth)

	c.warnings = c.warnings[:0]
	for _, check := range c.checks.Failed() {
		c.warnings = append(c.warnings, WarningMessage(check))
	}

	if c.checks.AllPassed() {
		c.transition(Ready{Session: c.session}, trigger)
		return
	}
	c.outcome = Redirecting{Checks: c.checks}
}

// transition must be called with c.mu held.
func (c *Controller) transition(to Outcome, trigger string) {
	var from State
	if len(c.history) > 0 {
		from = c.outcome.State()
	}
	now := NowFunc().UTC()
	c.outcome = to
	c.lastSeen = now
	c.history = append(c.history, Transition{From: from, To: to.State(), Trigger: trigger, At: now})
	c.observer.StateChanged(from, to.State(), trigger)
}

func (c *Controller) snapshot() Snapshot {
	snap := Snapshot{
		ID:        c.id,
		SessionID: c.sessionID,
		Learner:   c.learner,
		Outcome:   c.outcome,
		Checks:    c.checks,
		Fetches:   c.fetches,
		Closed:    c.closed,
		LastSeen:  c.lastSeen,
	}
	if len(c.warnings) > 0 {
		snap.Warnings = append([]string(nil), c.warnings...)
	}
	snap.History = append([]Transition(nil), c.history...)
	return snap
}

func (c *Controller) person() core.Person {
	return core.Person{ID: c.learner.ID, Username: c.learner.Name, Email: c.learner.Email}
}
