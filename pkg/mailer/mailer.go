package mailer

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/mail.v2"

	"github.com/fixify-hostel/fixify-api/pkg/config"
)

// Message is a single outbound email.
type Message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
	Enabled() bool
}

type sender interface {
	DialAndSend(m ...*mail.Message) error
}

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	from   string
	sender sender
	logger *zap.Logger
}

// New returns an SMTP mailer, or a no-op one when email is disabled.
func New(cfg config.EmailConfig, logger *zap.Logger) Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled || cfg.Host == "" {
		return &NoopMailer{logger: logger}
	}
	dialer := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.StartTLSPolicy = mail.OpportunisticStartTLS
	return newSMTPMailer(cfg, dialer, logger)
}

func newSMTPMailer(cfg config.EmailConfig, s sender, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{
		from:   fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromAddress),
		sender: s,
		logger: logger,
	}
}

// Send dials the relay and delivers msg.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("recipient required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	out := mail.NewMessage()
	out.SetHeader("From", m.from)
	out.SetHeader("To", msg.To)
	out.SetHeader("Subject", msg.Subject)
	out.SetBody("text/plain", msg.TextBody)
	if msg.HTMLBody != "" {
		out.AddAlternative("text/html", msg.HTMLBody)
	}

	if err := m.sender.DialAndSend(out); err != nil {
		return fmt.Errorf("send email to %s: %w", msg.To, err)
	}
	m.logger.Debug("email sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

// Enabled is always true for the SMTP mailer.
func (m *SMTPMailer) Enabled() bool { return true }

// NoopMailer drops messages.
type NoopMailer struct {
	logger *zap.Logger
}

func (n *NoopMailer) Send(_ context.Context, msg Message) error {
	n.logger.Debug("email disabled, dropping message", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

func (n *NoopMailer) Enabled() bool { return false }
