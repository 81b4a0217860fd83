// Package email sends notifications through SendGrid.
package email

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/vbonduro/propdesk/internal/notify"
)

const (
	defaultHost = "https://api.sendgrid.com"
	endpoint    = "/v3/mail/send"
)

var ErrNoRecipients = errors.New("no recipients")

type Notifier struct {
	key        string
	host       string
	from       *sgmail.Email
	defaultTo  []string
	subjPrefix string
}

// New creates a SendGrid notifier. defaultTo receives messages that name no
// recipients of their own.
func New(key, appName, fromEmail string, defaultTo []string) *Notifier {
	return &Notifier{
		key:        key,
		host:       defaultHost,
		from:       sgmail.NewEmail(appName, fromEmail),
		defaultTo:  defaultTo,
		subjPrefix: "[" + appName + "] ",
	}
}

func (n *Notifier) Notify(_ context.Context, msg notify.Message) error {
	to := msg.To
	if len(to) == 0 {
		to = n.defaultTo
	}
	if len(to) == 0 {
		return ErrNoRecipients
	}

	req := sendgrid.GetRequest(n.key, endpoint, n.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(n.prepare(msg, to))

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid returned status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

func (n *Notifier) prepare(msg notify.Message, to []string) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	subject := n.subjPrefix + msg.Subject
	if msg.Critical {
		subject = n.subjPrefix + "[CRITICAL] " + msg.Subject
	}
	p.Subject = subject
	for _, addr := range to {
		p.AddTos(sgmail.NewEmail("", addr))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(n.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.Body))
	return m
}
