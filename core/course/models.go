package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/access"
)

// Orderable fields
var (
	CourseOrderings  = []string{"title", "modality", "created_at", "updated_at"}
	SessionOrderings = []string{"starts_at", "ends_at", "created_at"}
)

type Course struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Modality    string    `json:"modality" db:"modality"`
	ContentURL  string    `json:"content_url,omitempty" db:"content_url"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// Mode returns the typed modality of the course.
func (c Course) Mode() (access.Modality, error) {
	return access.ParseModality(c.Modality)
}

// Session is one scheduled occurrence of a Course.
type Session struct {
	ID         string    `json:"id" db:"id"`
	CourseID   string    `json:"course_id" db:"course_id"`
	StartsAt   time.Time `json:"starts_at" db:"starts_at"` // UTC
	EndsAt     time.Time `json:"ends_at" db:"ends_at"`     // UTC
	Location   string    `json:"location,omitempty" db:"location"`
	JoinURL    string    `json:"join_url,omitempty" db:"join_url"`
	ContentURL string    `json:"content_url,omitempty" db:"content_url"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"` // UTC
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Modality    string `json:"modality" validate:"required,modality"`
	ContentURL  string `json:"content_url" validate:"omitempty,weburl"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	nc.Modality = core.CleanString(nc.Modality, true /* lower */)
	nc.ContentURL = core.CleanString(nc.ContentURL)

	if err := validate.Struct(nc); err != nil {
		return err
	}
	// normalize aliases ("in_person", ...)
	mode, _ := access.ParseModality(nc.Modality)
	nc.Modality = mode.String()
	return nil
}

// NewSession contains information needed to schedule a new Session.
type NewSession struct {
	StartsAt   time.Time `json:"starts_at" validate:"required"`
	EndsAt     time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
	Location   string    `json:"location" validate:"max=500"`
	JoinURL    string    `json:"join_url" validate:"omitempty,weburl"`
	ContentURL string    `json:"content_url" validate:"omitempty,weburl"`
}

func (ns *NewSession) Validate(validate *validator.Validate) error {
	ns.Location = core.CleanString(ns.Location)
	ns.JoinURL = core.CleanString(ns.JoinURL)
	ns.ContentURL = core.CleanString(ns.ContentURL)
	ns.StartsAt = ns.StartsAt.UTC()
	ns.EndsAt = ns.EndsAt.UTC()
	return validate.Struct(ns)
}

type QueryFilter struct {
	Search   string `query:"search"`
	Modality string `query:"modality"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Modality == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	if mode, err := access.ParseModality(qf.Modality); err == nil {
		qf.Modality = mode.String()
	} else {
		qf.Modality = core.CleanString(qf.Modality, true /* lower */)
	}
}
