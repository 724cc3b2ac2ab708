package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
)

type courseRepository struct {
	courses  *courseTable
	sessions *sessionTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{courses: db.course, sessions: db.session}
}

func (repo *courseRepository) CreateCourse(_ context.Context, crs course.Course) (course.Course, error) {
	repo.courses.mutex.Lock()
	defer repo.courses.mutex.Unlock()

	crs.ID = uuid.New().String()
	repo.courses.table[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id string) (course.Course, error) {
	repo.courses.mutex.RLock()
	defer repo.courses.mutex.RUnlock()

	if crs, ok := repo.courses.table[id]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter *course.QueryFilter, ordering []core.DBOrdering) ([]course.Course, error) {
	repo.courses.mutex.RLock()
	defer repo.courses.mutex.RUnlock()

	courses := make([]course.Course, 0, len(repo.courses.table))
	for _, crs := range repo.courses.table {
		if filter != nil && !matches(*crs, *filter) {
			continue
		}
		courses = append(courses, *crs)
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at"}}
	}
	sort.SliceStable(courses, func(i, j int) bool {
		return less(ordering, func(field string) int { return compareCourses(courses[i], courses[j], field) })
	})
	return courses, nil
}

func (repo *courseRepository) CreateSession(_ context.Context, sess course.Session) (course.Session, error) {
	repo.sessions.mutex.Lock()
	defer repo.sessions.mutex.Unlock()

	sess.ID = uuid.New().String()
	repo.sessions.table[sess.ID] = &sess
	return sess, nil
}

func (repo *courseRepository) GetSession(_ context.Context, id string) (course.Session, error) {
	repo.sessions.mutex.RLock()
	defer repo.sessions.mutex.RUnlock()

	if sess, ok := repo.sessions.table[id]; ok {
		return *sess, nil
	}
	return course.Session{}, course.ErrSessionNotFound
}

func (repo *courseRepository) QuerySessions(_ context.Context, courseID string, ordering []core.DBOrdering) ([]course.Session, error) {
	repo.sessions.mutex.RLock()
	defer repo.sessions.mutex.RUnlock()

	sessions := make([]course.Session, 0)
	for _, sess := range repo.sessions.table {
		if sess.CourseID == courseID {
			sessions = append(sessions, *sess)
		}
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "starts_at", Ascending: true}}
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return less(ordering, func(field string) int { return compareSessions(sessions[i], sessions[j], field) })
	})
	return sessions, nil
}

func matches(crs course.Course, filter course.QueryFilter) bool {
	if filter.Modality != "" && crs.Modality != filter.Modality {
		return false
	}
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(crs.Title), search) && !strings.Contains(strings.ToLower(crs.Description), search) {
			return false
		}
	}
	return true
}

// less applies `ordering` in turn until `cmp` breaks the tie.
func less(ordering []core.DBOrdering, cmp func(field string) int) bool {
	for _, ord := range ordering {
		c := cmp(ord.Field)
		if c == 0 {
			continue
		}
		if ord.Ascending {
			return c < 0
		}
		return c > 0
	}
	return false
}

func compareStrings(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func compareCourses(a, b course.Course, field string) int {
	switch field {
	case "title":
		return compareStrings(a.Title, b.Title)
	case "modality":
		return compareStrings(a.Modality, b.Modality)
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	}
	return 0
}

func compareSessions(a, b course.Session, field string) int {
	switch field {
	case "starts_at":
		return a.StartsAt.Compare(b.StartsAt)
	case "ends_at":
		return a.EndsAt.Compare(b.EndsAt)
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	}
	return 0
}
