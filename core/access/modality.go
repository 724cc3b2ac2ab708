package access

import (
	"fmt"
	"strings"
)

// Modality tags
const (
	TagOnline   = "online"
	TagInPerson = "in-person"
	TagVirtual  = "virtual"
	TagBlended  = "blended"
)

// ModalityVisitor handles every course modality.
// Adding a modality means adding a method here, so every visitor must handle it before the code compiles.
type ModalityVisitor interface {
	VisitOnline(as AccessSession) Dispatch
	VisitInPerson(as AccessSession) Dispatch
	VisitVirtual(as AccessSession) Dispatch
	VisitBlended(as AccessSession) Dispatch
}

// Modality is the delivery mode of a course. The set is closed: Online, InPerson, Virtual and Blended.
type Modality interface {
	fmt.Stringer
	accept(v ModalityVisitor, as AccessSession) Dispatch
}

type (
	online   struct{}
	inPerson struct{}
	virtual  struct{}
	blended  struct{}
)

var (
	Online   Modality = online{}
	InPerson Modality = inPerson{}
	Virtual  Modality = virtual{}
	Blended  Modality = blended{}

	// Modalities lists every modality.
	Modalities = []Modality{Online, InPerson, Virtual, Blended}
)

func (online) String() string   { return TagOnline }
func (inPerson) String() string { return TagInPerson }
func (virtual) String() string  { return TagVirtual }
func (blended) String() string  { return TagBlended }

func (online) accept(v ModalityVisitor, as AccessSession) Dispatch   { return v.VisitOnline(as) }
func (inPerson) accept(v ModalityVisitor, as AccessSession) Dispatch { return v.VisitInPerson(as) }
func (virtual) accept(v ModalityVisitor, as AccessSession) Dispatch  { return v.VisitVirtual(as) }
func (blended) accept(v ModalityVisitor, as AccessSession) Dispatch  { return v.VisitBlended(as) }

// ErrUnknownModality is returned by ParseModality for tags outside of the closed set.
type ErrUnknownModality struct {
	Tag string
}

func (err ErrUnknownModality) Error() string {
	return fmt.Sprintf("unknown course modality %q", err.Tag)
}

// ParseModality maps a modality tag to its Modality. Tags are case-insensitive;
// "in_person" and "inperson" are accepted as "in-person".
func ParseModality(tag string) (Modality, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case TagOnline:
		return Online, nil
	case TagInPerson, "in_person", "inperson":
		return InPerson, nil
	case TagVirtual:
		return Virtual, nil
	case TagBlended:
		return Blended, nil
	}
	return nil, ErrUnknownModality{Tag: tag}
}
