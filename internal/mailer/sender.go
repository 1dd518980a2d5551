package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"
)

const DefaultSMTPTimeout = 10 * time.Second

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// Timeout bounds dialing and every SMTP command of one delivery.
	Timeout time.Duration
}

type SMTPSender struct {
	cfg  SMTPConfig
	send func(ctx context.Context, msg *mail.Msg) error
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSMTPTimeout
	}
	s := &SMTPSender{cfg: cfg}
	s.send = s.dialAndSend
	return s
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	email, err := Compose(msg)
	if err != nil {
		return err
	}

	m, err := s.build(email)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	if err := s.send(ctx, m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", email.To, err)
	}
	return nil
}

func (s *SMTPSender) build(email Email) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender address %q: %w", s.cfg.From, err)
	}
	if err := m.To(email.To); err != nil {
		return nil, fmt.Errorf("invalid recipient address %q: %w", email.To, err)
	}
	m.Subject(email.Subject)
	m.SetBodyString(mail.TypeTextPlain, email.Body)
	return m, nil
}

func (s *SMTPSender) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	opts := []mail.Option{
		mail.WithTimeout(s.cfg.Timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithPort(s.cfg.Port),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, msg Message) error {
	email, err := Compose(msg)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "mail not delivered (no SMTP host configured)",
		"kind", msg.Kind, "to", email.To, "subject", email.Subject)
	slog.DebugContext(ctx, "mail body", "body", email.Body)
	return nil
}
