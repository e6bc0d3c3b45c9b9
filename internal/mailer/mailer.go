// Package mailer renders and delivers account emails over SMTP.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/apperr"
	"github.com/wneessen/go-mail"
)

// ErrDisabled is returned when no SMTP server is configured.
var ErrDisabled = apperr.New(apperr.KindUpstreamUnavailable, "Email delivery is not configured")

// Transport delivers prepared messages. *mail.Client satisfies it.
type Transport interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPConfig holds the outbound mail connection settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	StartTLS bool
	SSL      bool
	Timeout  time.Duration
}

// NewSMTPClient builds a go-mail client from cfg.
func NewSMTPClient(cfg SMTPConfig) (*mail.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(timeout),
	}
	switch {
	case cfg.SSL:
		opts = append(opts, mail.WithSSL())
	case cfg.StartTLS:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return client, nil
}

// Mailer sends the verification and password reset emails.
type Mailer struct {
	transport   Transport
	from        string
	frontendURL string
}

// New returns a Mailer. A nil transport yields a mailer whose every send
// fails with ErrDisabled.
func New(transport Transport, from, frontendURL string) *Mailer {
	return &Mailer{
		transport:   transport,
		from:        from,
		frontendURL: strings.TrimSuffix(frontendURL, "/"),
	}
}

func (m *Mailer) Enabled() bool { return m.transport != nil }

func (m *Mailer) SendVerification(ctx context.Context, email, name, token string) error {
	link := m.link("/verify-email", token)
	body, err := render(verificationTemplate, templateData{Name: name, Link: link})
	if err != nil {
		return err
	}
	return m.send(ctx, email, "Verify Your Email", body)
}

func (m *Mailer) SendPasswordReset(ctx context.Context, email, name, token string) error {
	link := m.link("/reset-password", token)
	body, err := render(resetTemplate, templateData{Name: name, Link: link})
	if err != nil {
		return err
	}
	return m.send(ctx, email, "Password Reset Request", body)
}

func (m *Mailer) link(path, token string) string {
	return m.frontendURL + path + "?token=" + url.QueryEscape(token)
}

func (m *Mailer) send(ctx context.Context, to, subject, body string) error {
	if m.transport == nil {
		return ErrDisabled
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body)

	if err := m.transport.DialAndSendWithContext(ctx, msg); err != nil {
		return apperr.Wrap(err, apperr.KindUpstreamUnavailable, "Failed to send email")
	}
	return nil
}

type templateData struct {
	Name string
	Link string
}

func render(t *template.Template, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buf.String(), nil
}
