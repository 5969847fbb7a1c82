package smtp

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/nrodcast/account-service/internal/core/port"
	"github.com/nrodcast/account-service/internal/infra/config"
	"github.com/nrodcast/account-service/internal/infra/logger"
)

// Notifier delivers plain-text mail over SMTP with optional AUTH.
type Notifier struct {
	cfg config.SMTPSettings
	log *zap.Logger
}

// NewNotifier constructs an SMTP-backed notifier.
func NewNotifier(cfg config.SMTPSettings, log *zap.Logger) *Notifier {
	return &Notifier{cfg: cfg, log: log}
}

// Send delivers one message. The context governs the caller's patience only;
// net/smtp itself has no context plumbing, so cancellation is checked before
// dialing.
func (n *Notifier) Send(ctx context.Context, to string, subject string, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	msg := strings.Join([]string{
		"From: " + n.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(addr, auth, n.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	n.log.Info("mail sent",
		zap.String("to", logger.MaskEmail(to)),
		zap.String("subject", subject),
	)

	return nil
}

// StubNotifier logs messages instead of delivering them. Selected when no
// SMTP host is configured.
type StubNotifier struct {
	log *zap.Logger
}

// NewStubNotifier constructs a logging notifier for development environments.
func NewStubNotifier(log *zap.Logger) *StubNotifier {
	return &StubNotifier{log: log}
}

// Send logs the message instead of delivering it.
func (n *StubNotifier) Send(_ context.Context, to string, subject string, body string) error {
	n.log.Info("stub mail delivery",
		zap.String("to", logger.MaskEmail(to)),
		zap.String("subject", subject),
		zap.Int("body_length", len(body)),
	)
	return nil
}

var (
	_ port.Notifier = (*Notifier)(nil)
	_ port.Notifier = (*StubNotifier)(nil)
)
