package access

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Check names one of the security checks gating the automatic redirect.
type Check string

const (
	CheckIdentity     Check = "identity"
	CheckDevice       Check = "device"
	CheckRequirements Check = "requirements"
)

// Checks lists every security check in evaluation order.
var Checks = []Check{CheckDevice, CheckRequirements, CheckIdentity}

// SecurityCheckState holds the result of each security check for one access attempt.
// The zero value has every check failing.
type SecurityCheckState struct {
	Identity     bool `json:"identity"`
	Device       bool `json:"device"`
	Requirements bool `json:"requirements"`
}

func (s SecurityCheckState) AllPassed() bool {
	return s.Identity && s.Device && s.Requirements
}

func (s SecurityCheckState) Passed(check Check) bool {
	switch check {
	case CheckIdentity:
		return s.Identity
	case CheckDevice:
		return s.Device
	case CheckRequirements:
		return s.Requirements
	}
	return false
}

// Failed returns the failing checks, in evaluation order.
func (s SecurityCheckState) Failed() []Check {
	var failed []Check
	for _, check := range Checks {
		if !s.Passed(check) {
			failed = append(failed, check)
		}
	}
	return failed
}

func (s *SecurityCheckState) set(check Check, passed bool) {
	switch check {
	case CheckIdentity:
		s.Identity = passed
	case CheckDevice:
		s.Device = passed
	case CheckRequirements:
		s.Requirements = passed
	}
}

// State tags the current Outcome of an access attempt.
type State string

const (
	StateLoading     State = "loading"
	StateRedirecting State = "redirecting"
	StateError       State = "error"
	StateReady       State = "ready"
)

type (
	// Outcome is one of Loading, Redirecting, Failed or Ready.
	Outcome interface {
		State() State
		isOutcome()
	}

	// Loading means the course/session payload is being fetched.
	Loading struct{}

	// Redirecting means the payload is resolved and the security checks gate the redirect.
	Redirecting struct {
		Checks SecurityCheckState
	}

	// Failed means the payload could not be fetched.
	Failed struct {
		Message string
	}

	// Ready means the learner may access the content, either because every check
	// passed or because they asked for manual access.
	Ready struct {
		Session AccessSession
		Manual  bool
	}
)

func (Loading) State() State     { return StateLoading }
func (Redirecting) State() State { return StateRedirecting }
func (Failed) State() State      { return StateError }
func (Ready) State() State       { return StateReady }

func (Loading) isOutcome()     {}
func (Redirecting) isOutcome() {}
func (Failed) isOutcome()      {}
func (Ready) isOutcome()       {}

// Transition triggers
const (
	TriggerStart        = "start"
	TriggerFetched      = "fetched"
	TriggerFetchFailed  = "fetch-failed"
	TriggerChecksPassed = "checks-passed"
	TriggerManual       = "manual"
	TriggerRetry        = "retry"
	TriggerRecheck      = "recheck"
)

// Transition records one state change of an access attempt.
type Transition struct {
	From    State     `json:"from"`
	To      State     `json:"to"`
	Trigger string    `json:"trigger"`
	At      time.Time `json:"at"` // UTC
}

// Learner is who attempts access, when known.
type Learner struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Warning is emitted for each failed security check.
type Warning struct {
	AttemptID string
	SessionID string
	Learner   Learner
	Check     Check
	Message   string
}

var warningMessages = map[Check]string{
	CheckDevice:       "Your device is missing a required capability (camera, storage or notifications). Some content may not work.",
	CheckRequirements: "A secure connection with cookies enabled is required for this content.",
	CheckIdentity:     "We could not verify your identity. Please sign in again.",
}

// WarningMessage returns the learner-facing message for a failed check.
func WarningMessage(check Check) string {
	return warningMessages[check]
}

type (
	// CourseRef is the course part of an AccessSession.
	CourseRef struct {
		ID         string
		Title      string
		Modality   Modality
		ContentURL string
	}

	// SessionRef is the scheduled session part of an AccessSession.
	SessionRef struct {
		ID         string    `json:"id"`
		StartsAt   time.Time `json:"starts_at"` // UTC
		EndsAt     time.Time `json:"ends_at"`   // UTC
		Location   string    `json:"location,omitempty"`
		JoinURL    string    `json:"join_url,omitempty"`
		ContentURL string    `json:"content_url,omitempty"`
	}

	// AccessSession is the resolved course/session payload of one access attempt.
	AccessSession struct {
		SessionID string     `json:"session_id"`
		Course    CourseRef  `json:"course"`
		Session   SessionRef `json:"session"`
	}
)

// ContentURL returns the learning-content URL of the session, falling back to the course's.
func (as AccessSession) ContentURL() string {
	if as.Session.ContentURL != "" {
		return as.Session.ContentURL
	}
	return as.Course.ContentURL
}

type courseRefJSON struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Modality   string `json:"modality"`
	ContentURL string `json:"content_url,omitempty"`
}

func (c CourseRef) MarshalJSON() ([]byte, error) {
	var tag string
	if c.Modality != nil {
		tag = c.Modality.String()
	}
	return json.Marshal(courseRefJSON{ID: c.ID, Title: c.Title, Modality: tag, ContentURL: c.ContentURL})
}

func (c *CourseRef) UnmarshalJSON(data []byte) error {
	var raw courseRefJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	modality, err := ParseModality(raw.Modality)
	if err != nil {
		return errors.Wrap(err, "parsing course modality")
	}
	*c = CourseRef{ID: raw.ID, Title: raw.Title, Modality: modality, ContentURL: raw.ContentURL}
	return nil
}
