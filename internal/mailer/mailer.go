// Package mailer delivers member notifications by email.
package mailer

import (
	"context"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/iliyamo/kinder-market/internal/config"
	"github.com/iliyamo/kinder-market/internal/service"
)

// sender abstracts gomail's dialer for tests.
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTP sends rendered notifications through an SMTP relay.
type SMTP struct {
	from   string
	dialer sender
	log    *zap.Logger
}

var _ service.Notifier = (*SMTP)(nil)

// NewSMTP returns an SMTP notifier for cfg.
func NewSMTP(cfg config.MailConfig, log *zap.Logger) *SMTP {
	return &SMTP{
		from:   cfg.From,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		log:    log,
	}
}

// Notify renders n and sends it.  Each call opens its own connection.
func (s *SMTP) Notify(ctx context.Context, n service.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject, body, err := Render(n.Template, n.Data)
	if err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", n.To)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	if err := s.dialer.DialAndSend(m); err != nil {
		return err
	}
	s.log.Debug("notification sent", zap.String("template", n.Template), zap.String("to", n.To))
	return nil
}

// LogOnly renders notifications and writes them to the log instead of
// sending them.  It is used when mail is disabled.
type LogOnly struct {
	log *zap.Logger
}

var _ service.Notifier = (*LogOnly)(nil)

// NewLogOnly returns a LogOnly notifier.
func NewLogOnly(log *zap.Logger) *LogOnly { return &LogOnly{log: log} }

func (l *LogOnly) Notify(_ context.Context, n service.Notification) error {
	subject, _, err := Render(n.Template, n.Data)
	if err != nil {
		return err
	}
	l.log.Info("notification (mail disabled)",
		zap.String("template", n.Template),
		zap.String("to", n.To),
		zap.String("subject", subject))
	return nil
}

// New picks the SMTP notifier when mail is enabled and LogOnly otherwise.
func New(cfg config.MailConfig, log *zap.Logger) service.Notifier {
	if cfg.Enabled {
		return NewSMTP(cfg, log)
	}
	return NewLogOnly(log)
}
