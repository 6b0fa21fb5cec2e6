// Package outbound provides the outbound-message workflow action.
package outbound

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/pulsecrm/pulse/pkg/models"
	"github.com/pulsecrm/pulse/pkg/protocol"
)

// Action serializes selected record fields and posts them to a configured
// external endpoint. Fire-and-forget: delivery failures are logged and
// recorded against the action, never escalated to the triggering caller,
// since downstream systems are untrusted.
type Action struct {
	ID     string
	URL    string
	Fields []string
}

// NewAction creates an outbound-message action from configuration.
func NewAction(config map[string]any) (*Action, error) {
	actionID, _ := config["id"].(string)

	endpoint, _ := config["url"].(string)
	if endpoint == "" {
		return nil, fmt.Errorf("outbound_message requires a 'url': %w", models.ErrConfiguration)
	}

	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("outbound_message 'url' %q is not an absolute URL: %w", endpoint, models.ErrConfiguration)
	}

	var fields []string

	if rawFields, exists := config["fields"]; exists {
		list, ok := rawFields.([]any)
		if !ok {
			return nil, fmt.Errorf("outbound_message 'fields' must be a list of field names: %w", models.ErrConfiguration)
		}

		for _, entry := range list {
			name, ok := entry.(string)
			if !ok || name == "" {
				return nil, fmt.Errorf("outbound_message field entries must be non-empty strings: %w", models.ErrConfiguration)
			}

			fields = append(fields, name)
		}
	}

	return &Action{
		ID:     actionID,
		URL:    endpoint,
		Fields: fields,
	}, nil
}

// Execute posts the message. An empty Fields list sends every field.
func (a *Action) Execute(ctx context.Context, execCtx protocol.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "outbound_message_action")

	fields := execCtx.Record.Fields()

	if len(a.Fields) > 0 {
		selected := make(map[string]any, len(a.Fields))

		for _, name := range a.Fields {
			if value, ok := execCtx.Record.Field(name); ok {
				selected[name] = value
			}
		}

		fields = selected
	}

	payload := map[string]any{
		"entity_type": execCtx.Record.EntityType(),
		"record_id":   execCtx.Record.RecordID(),
		"event":       string(execCtx.Event),
		"fields":      fields,
	}

	if err := execCtx.Poster.Post(ctx, a.URL, payload); err != nil {
		logger.WarnContext(ctx, "Outbound message delivery failed",
			"url", a.URL,
			"error", err,
		)

		return nil, fmt.Errorf("outbound post to %s failed: %v: %w", a.URL, err, models.ErrDelivery)
	}

	logger.InfoContext(ctx, "Posted outbound message", "url", a.URL)

	return map[string]any{"delivered": true, "url": a.URL}, nil
}
