package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/access"
)

// CapabilityReport is what the learner's client reports about its platform.
// The secure context is never taken from the report: it is what the server observes.
type CapabilityReport struct {
	CameraAPI      bool `json:"camera_api"`
	LocalStorage   bool `json:"local_storage"`
	SessionStorage bool `json:"session_storage"`
	Notifications  bool `json:"notifications"`
	Cookies        bool `json:"cookies"`
}

type requestEnv struct {
	report CapabilityReport
	secure bool
}

var _ access.Environment = requestEnv{}

func (e requestEnv) HasCameraAPI() bool      { return e.report.CameraAPI }
func (e requestEnv) HasLocalStorage() bool   { return e.report.LocalStorage }
func (e requestEnv) HasSessionStorage() bool { return e.report.SessionStorage }
func (e requestEnv) HasNotifications() bool  { return e.report.Notifications }
func (e requestEnv) IsSecureContext() bool   { return e.secure }
func (e requestEnv) CookiesEnabled() bool    { return e.report.Cookies }

// isSecure reports whether the request came over TLS. Proxy headers are only
// honoured when the app runs behind a trusted proxy.
func isSecure(ctx echo.Context, conf *core.Config) bool {
	if ctx.IsTLS() {
		return true
	}
	return conf.Server.TrustProxy && ctx.Scheme() == "https"
}

// bindEnvironment binds the capability report of the request body (if any).
func bindEnvironment(ctx echo.Context, conf *core.Config) (access.Environment, error) {
	var report CapabilityReport
	if err := ctx.Bind(&report); err != nil {
		return nil, err
	}
	return requestEnv{report: report, secure: isSecure(ctx, conf)}, nil
}
