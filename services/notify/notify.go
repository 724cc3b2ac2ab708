package notifysvc

import (
	"fmt"
	"html/template"
	"net/mail"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/access"
)

var warningTemplate = template.Must(template.New("warning").Parse(
	`<p>Hi {{.Name}},</p>
<p>{{.Message}}</p>
<p>You can still open your session with the manual access button.</p>`))

// EmailNotifier emails check warnings to the learner, when their email is known.
type EmailNotifier struct {
	mailSvc core.EmailService
}

var _ access.Notifier = (*EmailNotifier)(nil)

func NewEmailNotifier(mailSvc core.EmailService) *EmailNotifier {
	return &EmailNotifier{mailSvc: mailSvc}
}

func (n *EmailNotifier) Warn(w access.Warning) {
	if w.Learner.Email == "" {
		return
	}
	name := w.Learner.Name
	if name == "" {
		name = w.Learner.Email
	}
	n.mailSvc.SendMessages(&core.EmailMessage{
		To:       []mail.Address{{Name: w.Learner.Name, Address: w.Learner.Email}},
		Subject:  "Security check failed",
		BodyStr:  w.Message,
		Template: warningTemplate,
		Data:     struct{ Name, Message string }{Name: name, Message: w.Message},
	})
}

// LogNotifier logs check warnings.
type LogNotifier struct {
	logger core.Logger
}

var _ access.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger core.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Warn(w access.Warning) {
	n.logger.Info(
		fmt.Sprintf("access %s: %s check failed for session %s", w.AttemptID, w.Check, w.SessionID),
		core.Person{ID: w.Learner.ID, Username: w.Learner.Name, Email: w.Learner.Email},
	)
}
