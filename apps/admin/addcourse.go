package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
)

func (cli *commandLine) addCourse(nc course.NewCourse) error {
	crs, err := cli.courseSvc.Create(context.Background(), nc)
	if err != nil {
		return cli.describe(err)
	}
	fmt.Fprintf(cli.stdout(), "course %q created: %s\n", crs.Title, crs.ID)
	return nil
}

func (cli *commandLine) addSession(courseID string, ns course.NewSession) error {
	sess, err := cli.courseSvc.CreateSession(context.Background(), courseID, ns)
	if err != nil {
		return cli.describe(err)
	}
	fmt.Fprintf(cli.stdout(), "session scheduled: %s (%s - %s)\n", sess.ID, sess.StartsAt.Format("2006-01-02 15:04"), sess.EndsAt.Format("15:04 MST"))
	return nil
}

// describe flattens validation errors into a single readable error.
func (cli *commandLine) describe(err error) error {
	var flds []string

	var vErrs validator.ValidationErrors
	var cErr *core.ValidationError
	switch {
	case errors.As(err, &vErrs):
		for _, vErr := range vErrs {
			msg := vErr.Error()
			if cli.translator != nil {
				msg = vErr.Translate(cli.translator)
			}
			flds = append(flds, vErr.Field()+": "+msg)
		}
	case errors.As(err, &cErr) && len(cErr.Fields) > 0:
		for _, fErr := range cErr.Fields {
			flds = append(flds, fErr.Field+": "+fErr.Error)
		}
	default:
		return err
	}
	sort.Strings(flds)
	return errors.Errorf("invalid input: %s", strings.Join(flds, "; "))
}
