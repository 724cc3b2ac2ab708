package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/access"
)

type (
	attemptView struct {
		ID        string                    `json:"id"`
		SessionID string                    `json:"session_id"`
		State     access.State              `json:"state"`
		Checks    access.SecurityCheckState `json:"checks"`
		Warnings  []string                  `json:"warnings"`
		Message   string                    `json:"message,omitempty"`
		Manual    bool                      `json:"manual,omitempty"`
		Session   *access.AccessSession     `json:"session,omitempty"`
		Fetches   int                       `json:"fetches"`
		History   []access.Transition       `json:"history"`
	}

	accessApi struct {
		conf *core.Config
		svc  *access.Service
	}
)

func newAttemptView(snap access.Snapshot) attemptView {
	view := attemptView{
		ID:        snap.ID,
		SessionID: snap.SessionID,
		State:     snap.Outcome.State(),
		Checks:    snap.Checks,
		Warnings:  snap.Warnings,
		Fetches:   snap.Fetches,
		History:   snap.History,
	}
	if view.Warnings == nil {
		view.Warnings = []string{}
	}
	switch out := snap.Outcome.(type) {
	case access.Failed:
		view.Message = out.Message
	case access.Ready:
		sess := out.Session
		view.Manual = out.Manual
		view.Session = &sess
	}
	return view
}

func registerAccessAPI(g *echo.Group, conf *core.Config, svc *access.Service) {
	api := &accessApi{conf: conf, svc: svc}

	g.POST("/sessions/:id/access", api.begin)

	attempts := g.Group("/access")
	attempts.GET("/:id", api.get)
	attempts.DELETE("/:id", api.close)
	attempts.POST("/:id/retry", api.retry)
	attempts.POST("/:id/manual-access", api.manualAccess)
	attempts.POST("/:id/recheck", api.recheck)
	attempts.POST("/:id/return", api.exit)
	attempts.GET("/:id/dispatch", api.dispatch)
}

// wantsWait reports whether the client asked to block until the payload is loaded.
func wantsWait(ctx echo.Context) bool {
	switch ctx.QueryParam("wait") {
	case "1", "true":
		return true
	}
	return false
}

func (api *accessApi) wait(ctx echo.Context, id string) (access.Snapshot, error) {
	// the fetch itself is bounded by FetchTimeout
	wctx, cancel := context.WithTimeout(ctx.Request().Context(), api.conf.Access.FetchTimeout+api.conf.Server.ReadTimeout)
	defer cancel()
	snap, err := api.svc.Wait(wctx, id)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return snap, nil // still loading, or the client went away
	}
	return snap, err
}

func (api *accessApi) begin(ctx echo.Context) error {
	env, err := bindEnvironment(ctx, api.conf)
	if err != nil {
		return errors.Wrap(err, "binding capability report")
	}

	snap, err := api.svc.Begin(access.BeginRequest{
		SessionID: ctx.Param("id"),
		Learner:   requestLearner(ctx, api.conf),
		Env:       env,
		Auth:      requestAuthenticator(ctx, api.conf),
	})
	if err != nil {
		return err
	}
	if wantsWait(ctx) {
		if snap, err = api.wait(ctx, snap.ID); err != nil {
			return errors.Wrap(err, "waiting for access session")
		}
	}
	return ctx.JSON(http.StatusCreated, newAttemptView(snap))
}

func (api *accessApi) get(ctx echo.Context) error {
	var snap access.Snapshot
	var err error
	if wantsWait(ctx) {
		snap, err = api.wait(ctx, ctx.Param("id"))
	} else {
		snap, err = api.svc.Get(ctx.Param("id"))
	}
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newAttemptView(snap))
}

func (api *accessApi) respond(ctx echo.Context, snap access.Snapshot, err error) error {
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newAttemptView(snap))
}

func (api *accessApi) retry(ctx echo.Context) error {
	snap, err := api.svc.Retry(ctx.Param("id"))
	if err == nil && wantsWait(ctx) {
		snap, err = api.wait(ctx, snap.ID)
	}
	return api.respond(ctx, snap, err)
}

func (api *accessApi) manualAccess(ctx echo.Context) error {
	snap, err := api.svc.ManualAccess(ctx.Param("id"))
	return api.respond(ctx, snap, err)
}

func (api *accessApi) recheck(ctx echo.Context) error {
	env, err := bindEnvironment(ctx, api.conf)
	if err != nil {
		return errors.Wrap(err, "binding capability report")
	}
	snap, err := api.svc.Recheck(ctx.Param("id"), env, requestAuthenticator(ctx, api.conf))
	return api.respond(ctx, snap, err)
}

func (api *accessApi) exit(ctx echo.Context) error {
	snap, err := api.svc.Return(ctx.Param("id"))
	return api.respond(ctx, snap, err)
}

func (api *accessApi) close(ctx echo.Context) error {
	if err := api.svc.Close(ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *accessApi) dispatch(ctx echo.Context) error {
	d, err := api.svc.Dispatch(ctx.Param("id"))
	if err != nil {
		return err
	}
	if d.Action == access.ActionNavigate && ctx.QueryParam("format") != "json" {
		return ctx.Redirect(http.StatusFound, d.Target)
	}
	return ctx.JSON(http.StatusOK, d)
}
