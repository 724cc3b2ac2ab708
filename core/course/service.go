package course

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/access"
)

var (
	// errors
	ErrNotFound        = errors.New("course not found")
	ErrSessionNotFound = errors.New("session not found")

	// learner-facing fetch failures
	msgSessionNotFound     = "Session not found"
	msgSessionNotAvailable = "Session is not available"
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		// QueryCourses applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Course.Title or Course.Description.
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error)
		CreateSession(ctx context.Context, sess Session) (Session, error)
		GetSession(ctx context.Context, id string) (Session, error)
		// QuerySessions returns the sessions of a course, by StartsAt by default.
		QuerySessions(ctx context.Context, courseID string, ordering []core.DBOrdering) ([]Session, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

var _ access.SessionFetcher = (*Service)(nil)

var NowFunc = time.Now // mockable

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	if err := nc.Validate(svc.validate); err != nil {
		return Course{}, err
	}
	now := NowFunc().UTC()
	crs := Course{
		Title:       nc.Title,
		Description: nc.Description,
		Modality:    nc.Modality,
		ContentURL:  nc.ContentURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateCourse(ctx, crs)
}

// CreateSession schedules a session of the course `courseID`.
func (svc *Service) CreateSession(ctx context.Context, courseID string, ns NewSession) (Session, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return Session{}, err
	}
	crs, err := svc.repo.GetCourse(ctx, core.CleanString(courseID))
	if err != nil {
		return Session{}, err
	}
	mode, err := crs.Mode()
	if err != nil {
		return Session{}, errors.Wrap(err, "parsing course modality")
	}
	if flds := sessionFieldErrors(mode, crs, ns); len(flds) > 0 {
		return Session{}, core.NewValidationError(nil, flds...)
	}

	sess := Session{
		CourseID:   crs.ID,
		StartsAt:   ns.StartsAt,
		EndsAt:     ns.EndsAt,
		Location:   ns.Location,
		JoinURL:    ns.JoinURL,
		ContentURL: ns.ContentURL,
		CreatedAt:  NowFunc().UTC(),
	}
	return svc.repo.CreateSession(ctx, sess)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryCourses(ctx, filter, core.FilterOrderings(ordering, CourseOrderings...))
}

func (svc *Service) Get(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, core.CleanString(id))
}

func (svc *Service) GetSession(ctx context.Context, id string) (Session, error) {
	return svc.repo.GetSession(ctx, core.CleanString(id))
}

func (svc *Service) QuerySessions(ctx context.Context, courseID string, ordering []core.DBOrdering) ([]Session, error) {
	crs, err := svc.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return svc.repo.QuerySessions(ctx, crs.ID, core.FilterOrderings(ordering, SessionOrderings...))
}

// FetchAccessSession resolves the course/session payload of an access attempt.
// Unknown or malformed sessions are reported as *access.FetchFailure.
func (svc *Service) FetchAccessSession(ctx context.Context, sessionID string) (access.AccessSession, error) {
	sess, err := svc.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return access.AccessSession{}, access.NewFetchFailure(msgSessionNotFound, err)
		}
		return access.AccessSession{}, errors.Wrap(err, "finding session")
	}

	crs, err := svc.repo.GetCourse(ctx, sess.CourseID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return access.AccessSession{}, access.NewFetchFailure(msgSessionNotAvailable, err)
		}
		return access.AccessSession{}, errors.Wrap(err, "finding session course")
	}
	mode, err := crs.Mode()
	if err != nil {
		return access.AccessSession{}, access.NewFetchFailure(msgSessionNotAvailable, err)
	}

	as := access.AccessSession{
		SessionID: sess.ID,
		Course: access.CourseRef{
			ID:         crs.ID,
			Title:      crs.Title,
			Modality:   mode,
			ContentURL: crs.ContentURL,
		},
		Session: access.SessionRef{
			ID:         sess.ID,
			StartsAt:   sess.StartsAt.UTC(),
			EndsAt:     sess.EndsAt.UTC(),
			Location:   sess.Location,
			JoinURL:    sess.JoinURL,
			ContentURL: sess.ContentURL,
		},
	}
	if !isDispatchable(as) {
		return access.AccessSession{}, access.NewFetchFailure(msgSessionNotAvailable)
	}
	return as, nil
}
