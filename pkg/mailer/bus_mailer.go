package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pulsecrm/pulse/pkg/eventbus"
	"github.com/pulsecrm/pulse/pkg/events"
)

// BusMailer queues email on the event bus for a worker to deliver, so the
// request that triggered the alert never waits on an SMTP conversation.
type BusMailer struct {
	bus eventbus.EventPublisher
}

func NewBusMailer(bus eventbus.EventPublisher) *BusMailer {
	return &BusMailer{bus: bus}
}

func (m *BusMailer) Send(ctx context.Context, to []string, subject, body string) error {
	event := events.NewEmailQueued(to, subject, body)

	if err := m.bus.Publish(ctx, event.ID, event); err != nil {
		return fmt.Errorf("queueing email for %v: %w", to, err)
	}

	return nil
}

// LogMailer writes mail to the log instead of sending it. Development
// default when no SMTP server is configured.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger.With("module", "log_mailer")}
}

func (m *LogMailer) Send(ctx context.Context, to []string, subject, body string) error {
	m.logger.InfoContext(ctx, "Email (not sent)",
		"to", to,
		"subject", subject,
		"body_length", len(body),
	)

	return nil
}
