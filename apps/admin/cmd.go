package main

import (
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/course"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db         *sql.DB
	courseSvc  *course.Service
	translator ut.Translator
	out        io.Writer
}

func (cli *commandLine) stdout() io.Writer {
	if cli.out != nil {
		return cli.out
	}
	return os.Stdout
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Println("  addcourse -title TITLE -modality online|in-person|virtual|blended [-description TEXT] [-content-url URL] - create a course")
	fmt.Println("  addsession -course ID -starts RFC3339 -ends RFC3339 [-location TEXT] [-join-url URL] [-content-url URL] - schedule a course session")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addCourseCmd := flag.NewFlagSet("addcourse", flag.ExitOnError)
	addCourseTitle := addCourseCmd.String("title", "", "The course title")
	addCourseModality := addCourseCmd.String("modality", "", "online, in-person, virtual or blended")
	addCourseDescription := addCourseCmd.String("description", "", "The course description")
	addCourseContentURL := addCourseCmd.String("content-url", "", "The learning content URL (required for online & blended courses)")

	addSessionCmd := flag.NewFlagSet("addsession", flag.ExitOnError)
	addSessionCourse := addSessionCmd.String("course", "", "The course ID")
	addSessionStarts := addSessionCmd.String("starts", "", "The session start time (RFC3339)")
	addSessionEnds := addSessionCmd.String("ends", "", "The session end time (RFC3339)")
	addSessionLocation := addSessionCmd.String("location", "", "The venue (required for in-person & blended courses)")
	addSessionJoinURL := addSessionCmd.String("join-url", "", "The virtual classroom URL (required for virtual courses)")
	addSessionContentURL := addSessionCmd.String("content-url", "", "The session learning content URL")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "addcourse":
		if err := addCourseCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addCourseTitle == "" || *addCourseModality == "" {
			addCourseCmd.Usage()
			return errHelp
		}
		return cli.addCourse(course.NewCourse{
			Title:       *addCourseTitle,
			Description: *addCourseDescription,
			Modality:    *addCourseModality,
			ContentURL:  *addCourseContentURL,
		})
	case "addsession":
		if err := addSessionCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addSessionCourse == "" || *addSessionStarts == "" || *addSessionEnds == "" {
			addSessionCmd.Usage()
			return errHelp
		}
		starts, err := time.Parse(time.RFC3339, *addSessionStarts)
		if err != nil {
			return errors.Wrap(err, "invalid -starts")
		}
		ends, err := time.Parse(time.RFC3339, *addSessionEnds)
		if err != nil {
			return errors.Wrap(err, "invalid -ends")
		}
		return cli.addSession(*addSessionCourse, course.NewSession{
			StartsAt:   starts,
			EndsAt:     ends,
			Location:   *addSessionLocation,
			JoinURL:    *addSessionJoinURL,
			ContentURL: *addSessionContentURL,
		})
	default:
		cli.printUsage()
		return errHelp
	}
}
