package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
)

const (
	courseColumns  = "id, title, description, modality, content_url, created_at, updated_at"
	sessionColumns = "id, course_id, starts_at, ends_at, location, join_url, content_url, created_at"
)

type (
	courseRow struct {
		ID          string      `db:"id"`
		Title       string      `db:"title"`
		Description null.String `db:"description"`
		Modality    string      `db:"modality"`
		ContentURL  null.String `db:"content_url"`
		CreatedAt   time.Time   `db:"created_at"`
		UpdatedAt   time.Time   `db:"updated_at"`
	}

	sessionRow struct {
		ID         string      `db:"id"`
		CourseID   string      `db:"course_id"`
		StartsAt   time.Time   `db:"starts_at"`
		EndsAt     time.Time   `db:"ends_at"`
		Location   null.String `db:"location"`
		JoinURL    null.String `db:"join_url"`
		ContentURL null.String `db:"content_url"`
		CreatedAt  time.Time   `db:"created_at"`
	}
)

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}

func (repo courseRepository) toCourseRow(crs course.Course) courseRow {
	return courseRow{
		ID:          crs.ID,
		Title:       crs.Title,
		Description: nullString(crs.Description),
		Modality:    crs.Modality,
		ContentURL:  nullString(crs.ContentURL),
		CreatedAt:   crs.CreatedAt.UTC(),
		UpdatedAt:   crs.UpdatedAt.UTC(),
	}
}

func (repo courseRepository) fromCourseRow(row courseRow) course.Course {
	return course.Course{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description.String,
		Modality:    row.Modality,
		ContentURL:  row.ContentURL.String,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

func (repo courseRepository) toSessionRow(sess course.Session) sessionRow {
	return sessionRow{
		ID:         sess.ID,
		CourseID:   sess.CourseID,
		StartsAt:   sess.StartsAt.UTC(),
		EndsAt:     sess.EndsAt.UTC(),
		Location:   nullString(sess.Location),
		JoinURL:    nullString(sess.JoinURL),
		ContentURL: nullString(sess.ContentURL),
		CreatedAt:  sess.CreatedAt.UTC(),
	}
}

func (repo courseRepository) fromSessionRow(row sessionRow) course.Session {
	return course.Session{
		ID:         row.ID,
		CourseID:   row.CourseID,
		StartsAt:   row.StartsAt.UTC(),
		EndsAt:     row.EndsAt.UTC(),
		Location:   row.Location.String,
		JoinURL:    row.JoinURL.String,
		ContentURL: row.ContentURL.String,
		CreatedAt:  row.CreatedAt.UTC(),
	}
}

// trapNoRowsErr maps psql "no rows" err to `notFound`
func (repo courseRepository) trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func orderBy(ordering []core.DBOrdering, dflt string) string {
	if len(ordering) == 0 {
		return " ORDER BY " + dflt
	}
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		orderList = append(orderList, ord.String())
	}
	return " ORDER BY " + strings.Join(orderList, ", ")
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.ID = uuid.New().String()
	q := `INSERT INTO course (` + courseColumns + `)
		VALUES (:id, :title, :description, :modality, :content_url, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.toCourseRow(crs)); err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return crs, nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Course{}, course.ErrNotFound
	}
	var row courseRow
	q := `SELECT ` + courseColumns + ` FROM course WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, course.ErrNotFound, "finding course by ID")
	}
	return repo.fromCourseRow(row), nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter != nil {
		// courses with Title or Description matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			where = append(where, "(title ILIKE ? OR description ILIKE ?)")
			args = append(args, val, val)
		}
		if filter.Modality != "" {
			where = append(where, "modality = ?")
			args = append(args, filter.Modality)
		}
	}

	q := `SELECT ` + courseColumns + ` FROM course`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += orderBy(ordering, "created_at DESC")

	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, repo.fromCourseRow(row))
	}
	return courses, nil
}

func (repo courseRepository) CreateSession(ctx context.Context, sess course.Session) (course.Session, error) {
	sess.ID = uuid.New().String()
	q := `INSERT INTO course_session (` + sessionColumns + `)
		VALUES (:id, :course_id, :starts_at, :ends_at, :location, :join_url, :content_url, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.toSessionRow(sess)); err != nil {
		return course.Session{}, errors.Wrap(err, "inserting session")
	}
	return sess, nil
}

func (repo courseRepository) GetSession(ctx context.Context, id string) (course.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Session{}, course.ErrSessionNotFound
	}
	var row sessionRow
	q := `SELECT ` + sessionColumns + ` FROM course_session WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return course.Session{}, repo.trapNoRowsErr(err, course.ErrSessionNotFound, "finding session by ID")
	}
	return repo.fromSessionRow(row), nil
}

func (repo courseRepository) QuerySessions(ctx context.Context, courseID string, ordering []core.DBOrdering) ([]course.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM course_session WHERE course_id = $1` + orderBy(ordering, "starts_at ASC")

	var rows []sessionRow
	if err := repo.db.SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	sessions := make([]course.Session, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, repo.fromSessionRow(row))
	}
	return sessions, nil
}
