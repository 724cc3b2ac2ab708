package access

// Action tells the client what to do with a Dispatch.
type Action string

const (
	// ActionNavigate redirects the learner to Dispatch.Target right away.
	ActionNavigate Action = "navigate"
	// ActionRender shows the access summary with a manual access action (when Target is set).
	ActionRender Action = "render"
)

// Handlers
const (
	HandlerLMSRedirect      = "lms-redirect"
	HandlerVirtualClassroom = "virtual-classroom"
	HandlerVenue            = "venue"
	HandlerBlended          = "blended"
)

// Dispatch is what a Ready access attempt resolves to.
type Dispatch struct {
	Action   Action        `json:"action"`
	Handler  string        `json:"handler"`
	Target   string        `json:"target,omitempty"`
	Location string        `json:"location,omitempty"`
	Summary  AccessSession `json:"summary"`
}

// Dispatcher maps a resolved AccessSession to its modality-specific Dispatch.
type Dispatcher struct{}

var _ ModalityVisitor = Dispatcher{}

func NewDispatcher() Dispatcher { return Dispatcher{} }

// Dispatch never fails: the session payload is validated when fetched.
func (d Dispatcher) Dispatch(as AccessSession) Dispatch {
	if as.Course.Modality == nil {
		return d.VisitOnline(as)
	}
	return as.Course.Modality.accept(d, as)
}

func (Dispatcher) VisitOnline(as AccessSession) Dispatch {
	return Dispatch{
		Action:  ActionNavigate,
		Handler: HandlerLMSRedirect,
		Target:  as.ContentURL(),
		Summary: as,
	}
}

func (Dispatcher) VisitInPerson(as AccessSession) Dispatch {
	return Dispatch{
		Action:   ActionRender,
		Handler:  HandlerVenue,
		Location: as.Session.Location,
		Summary:  as,
	}
}

func (Dispatcher) VisitVirtual(as AccessSession) Dispatch {
	return Dispatch{
		Action:  ActionRender,
		Handler: HandlerVirtualClassroom,
		Target:  as.Session.JoinURL,
		Summary: as,
	}
}

func (Dispatcher) VisitBlended(as AccessSession) Dispatch {
	return Dispatch{
		Action:   ActionRender,
		Handler:  HandlerBlended,
		Target:   as.ContentURL(),
		Location: as.Session.Location,
		Summary:  as,
	}
}
