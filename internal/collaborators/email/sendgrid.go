// Package email sends transactional mail through SendGrid.
package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sendgrid/rest"
	sendgrid "github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/angelmondragon/gatewaysync/pkg/config"
	pkgerrors "github.com/angelmondragon/gatewaysync/pkg/errors"
)

var validate = validator.New()

// Message is one outgoing email. At least one of HTML and Text is required.
type Message struct {
	To      string   `validate:"required,email"`
	ToName  string   `validate:"omitempty,max=256"`
	BCC     []string `validate:"omitempty,dive,email"`
	Subject string   `validate:"required,max=998"`
	HTML    string   `validate:"required_without=Text"`
	Text    string   `validate:"required_without=HTML"`
}

type sendClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// Sender wraps the SendGrid v3 mail send API.
type Sender struct {
	client   sendClient
	from     string
	fromName string
}

// NewSender returns nil without error when no API key is configured so the
// caller can skip email entirely.
func NewSender(cfg config.SendgridConfig) (*Sender, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, nil
	}
	if err := validate.Var(cfg.DefaultFrom, "required,email"); err != nil {
		return nil, fmt.Errorf("sendgrid from address: %w", err)
	}
	return newSender(sendgrid.NewSendClient(key), cfg.DefaultFrom, cfg.FromName), nil
}

func newSender(client sendClient, from, fromName string) *Sender {
	return &Sender{client: client, from: from, fromName: fromName}
}

func (s *Sender) Send(ctx context.Context, msg Message) error {
	if s == nil {
		return pkgerrors.New(pkgerrors.CodeConfiguration, "email sender not configured")
	}
	msg.To = strings.TrimSpace(msg.To)
	if err := validate.Struct(msg); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid email message")
	}

	resp, err := s.client.SendWithContext(ctx, s.build(msg))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send email")
	}
	if resp == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "send email: empty response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(resp.Body)), "send email")
	}
	return nil
}

func (s *Sender) build(msg Message) *mail.SGMailV3 {
	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail(s.fromName, s.from))
	m.Subject = msg.Subject

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(msg.ToName, msg.To))
	for _, bcc := range msg.BCC {
		if !strings.EqualFold(bcc, msg.To) {
			p.AddBCCs(mail.NewEmail("", bcc))
		}
	}
	m.AddPersonalizations(p)

	// text/plain must come first
	if msg.Text != "" {
		m.AddContent(mail.NewContent("text/plain", msg.Text))
	}
	if msg.HTML != "" {
		m.AddContent(mail.NewContent("text/html", msg.HTML))
	}
	return m
}
