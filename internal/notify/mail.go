package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"

	"github.com/hivelabs/hive-server/pkg/config"
)

// SMTPNotifier delivers notifications as plain-text email over SMTP.
type SMTPNotifier struct {
	cfg    config.SMTPConfig
	logger *slog.Logger
}

// NewSMTPNotifier creates a notifier that sends through the configured
// SMTP relay.
func NewSMTPNotifier(cfg config.SMTPConfig, logger *slog.Logger) *SMTPNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPNotifier{
		cfg:    cfg,
		logger: logger,
	}
}

// Notify sends one email. Dialing and sending honor the context deadline.
func (n *SMTPNotifier) Notify(ctx context.Context, recipient, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(n.cfg.From); err != nil {
		return fmt.Errorf("setting sender: %w", err)
	}
	if err := msg.To(recipient); err != nil {
		return fmt.Errorf("setting recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(n.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if n.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(n.cfg.Username),
			mail.WithPassword(n.cfg.Password),
		)
	}

	client, err := mail.NewClient(n.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating SMTP client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	return nil
}
