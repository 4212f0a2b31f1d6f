// Package notify provides harvest notification delivery.
package notify

import (
	"context"
	"log/slog"
)

// Notifier delivers a single notification to one recipient address.
// Implementations should respect the context deadline; the harvest
// orchestrator bounds each delivery attempt so one unreachable address
// cannot stall the batch.
type Notifier interface {
	Notify(ctx context.Context, recipient, subject, body string) error
}

// LogNotifier logs notifications instead of delivering them. It is used
// when no SMTP host is configured, keeping local development and tests
// free of a mail dependency.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier that writes to the given logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the notification. The body is logged at debug level only;
// recipient addresses are personal data and stay out of info-level logs.
func (n *LogNotifier) Notify(ctx context.Context, recipient, subject, body string) error {
	n.logger.Info("notification (not sent, SMTP not configured)", "subject", subject)
	n.logger.Debug("notification detail", "recipient", recipient, "body", body)
	return nil
}
