package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/trezcool/academia/core/course"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	"github.com/trezcool/academia/tests"
)

var crsRepo course.Repository

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	// set up repos & services
	crsRepo = inmemdb.NewCourseRepository(inmemdb.Open())
	validate, translator := testutil.NewValidator()
	out := new(bytes.Buffer)

	// start CLI
	return &commandLine{
		courseSvc:  course.NewService(crsRepo, validate),
		translator: translator,
		out:        out,
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func checkRun(t *testing.T, cli *commandLine, tt cliTest) {
	t.Helper()
	args := append([]string{"admin"}, tt.args...)
	if err := cli.run(args); err != nil {
		if tt.wantErr != nil {
			if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		} else if tt.wantErrStr != "" {
			if err.Error() != tt.wantErrStr {
				t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
			}
		} else {
			t.Errorf("cli.run() unexpected error = %v", err)
		}
	} else if tt.wantErr != nil || tt.wantErrStr != "" {
		t.Errorf("cli.run() error = nil, want an error")
	}
}

func Test_commandLine_run(t *testing.T) {
	cli, _ := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkRun(t, cli, tt)
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	var gotDir string
	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		gotDir = dir
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "add_course_level", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkRun(t, cli, tt)
		})
	}
	if gotDir != "migrations" {
		t.Errorf("migrations dir = %q, want %q", gotDir, "migrations")
	}
}

func Test_commandLine_addCourse(t *testing.T) {
	cli, out := setup(t)

	tests := []cliTest{
		{name: "no args", args: []string{"addcourse"}, wantErr: errHelp},
		{name: "title but no modality", args: []string{"addcourse", "-title", "Go"}, wantErr: errHelp},
		{
			name:       "unknown modality",
			args:       []string{"addcourse", "-title", "Go", "-modality", "hybrid"},
			wantErrStr: "invalid input: modality: must be one of online, in-person, virtual or blended",
		},
		{
			name:       "online course without content",
			args:       []string{"addcourse", "-title", "Go", "-modality", "online"},
			wantErrStr: "invalid input: content_url: this field is required for the course modality",
		},
		{name: "created", args: []string{"addcourse", "-title", "Go for Gophers", "-modality", "virtual"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkRun(t, cli, tt)
		})
	}

	courses, err := crsRepo.QueryCourses(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("QueryCourses() failed: %v", err)
	}
	if len(courses) != 1 || courses[0].Title != "Go for Gophers" || courses[0].Modality != "virtual" {
		t.Fatalf("courses = %+v, want the created course only", courses)
	}
	if !strings.Contains(out.String(), courses[0].ID) {
		t.Errorf("output = %q, want the course ID", out.String())
	}
}

func Test_commandLine_addSession(t *testing.T) {
	cli, out := setup(t)

	crs := testutil.CreateCourse(t, crsRepo, "Carpentry", "in-person", "")

	tests := []cliTest{
		{name: "no args", args: []string{"addsession"}, wantErr: errHelp},
		{name: "no end", args: []string{"addsession", "-course", crs.ID, "-starts", "2026-03-02T09:00:00Z"}, wantErr: errHelp},
		{
			name:       "bad start",
			args:       []string{"addsession", "-course", crs.ID, "-starts", "tomorrow", "-ends", "2026-03-02T11:00:00Z"},
			wantErrStr: `invalid -starts: parsing time "tomorrow" as "2006-01-02T15:04:05Z07:00": cannot parse "tomorrow" as "2006"`,
		},
		{
			name:       "unknown course",
			args:       []string{"addsession", "-course", "9f1c9f5e-59a5-4b0a-8d3c-0d0b1d1f3e4a", "-starts", "2026-03-02T09:00:00Z", "-ends", "2026-03-02T11:00:00Z", "-location", "Lab 2"},
			wantErr:    course.ErrNotFound,
		},
		{
			name:       "in-person session without location",
			args:       []string{"addsession", "-course", crs.ID, "-starts", "2026-03-02T09:00:00Z", "-ends", "2026-03-02T11:00:00Z"},
			wantErrStr: "invalid input: location: this field is required for the course modality",
		},
		{name: "scheduled", args: []string{"addsession", "-course", crs.ID, "-starts", "2026-03-02T09:00:00+01:00", "-ends", "2026-03-02T11:00:00+01:00", "-location", "Lab 2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkRun(t, cli, tt)
		})
	}

	sessions, err := crsRepo.QuerySessions(context.Background(), crs.ID, nil)
	if err != nil {
		t.Fatalf("QuerySessions() failed: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Location != "Lab 2" || sessions[0].StartsAt.Hour() != 8 {
		t.Fatalf("sessions = %+v, want the scheduled session (UTC) only", sessions)
	}
	if !strings.Contains(out.String(), sessions[0].ID) {
		t.Errorf("output = %q, want the session ID", out.String())
	}
}
