package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/storage/database"
)

// NewValidator returns a validator with every app validator registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	return validate, translator
}

// PrepareDB opens and migrates the test database, and truncates its tables.
// The test is skipped when no database is reachable (set TEST_DATABASE_HOST to run it).
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if os.Getenv("TEST_DATABASE_HOST") == "" {
		t.Skip("TEST_DATABASE_HOST not set: skipping database test")
	}

	_ = os.Setenv("ENV", "test")
	conf := core.NewConfig()
	if err := database.CreateIfNotExist(conf); err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	if err = database.Migrate(db.DB); err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	if _, err = db.Exec("TRUNCATE course, course_session CASCADE"); err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func CreateCourse(
	t *testing.T,
	repo course.Repository,
	title, modality, contentURL string,
	createdAt ...time.Time,
) course.Course {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	crs, err := repo.CreateCourse(context.Background(), course.Course{
		Title:      title,
		Modality:   modality,
		ContentURL: contentURL,
		CreatedAt:  tstamp,
		UpdatedAt:  tstamp,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

func CreateSession(
	t *testing.T,
	repo course.Repository,
	crs course.Course,
	startsAt time.Time,
	location, joinURL, contentURL string,
) course.Session {
	sess, err := repo.CreateSession(context.Background(), course.Session{
		CourseID:   crs.ID,
		StartsAt:   startsAt.UTC(),
		EndsAt:     startsAt.Add(2 * time.Hour).UTC(),
		Location:   location,
		JoinURL:    joinURL,
		ContentURL: contentURL,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	return sess
}
