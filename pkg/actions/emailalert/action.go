// Package emailalert provides the email-alert workflow action.
package emailalert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pulsecrm/pulse/pkg/models"
	"github.com/pulsecrm/pulse/pkg/protocol"
	"github.com/pulsecrm/pulse/pkg/template"
)

// RecipientOwner in the recipient list resolves to the record's owning
// user at execution time.
const RecipientOwner = "owner"

// Action renders a merge-field template against the record and dispatches
// it via the mailer collaborator. Mailer failures surface as
// models.ErrDelivery and do not roll back prior actions in the sequence.
type Action struct {
	ID           string
	To           []string
	Subject      string
	Body         string
	FollowUpDays int
}

// NewAction creates an email-alert action from configuration.
func NewAction(config map[string]any) (*Action, error) {
	actionID, _ := config["id"].(string)

	rawTo, ok := config["to"].([]any)
	if !ok || len(rawTo) == 0 {
		return nil, fmt.Errorf("email_alert requires a non-empty 'to' list: %w", models.ErrConfiguration)
	}

	to := make([]string, 0, len(rawTo))

	for _, entry := range rawTo {
		recipient, ok := entry.(string)
		if !ok || recipient == "" {
			return nil, fmt.Errorf("email_alert recipient entries must be non-empty strings: %w", models.ErrConfiguration)
		}

		to = append(to, recipient)
	}

	subject, _ := config["subject"].(string)
	if subject == "" {
		return nil, fmt.Errorf("email_alert requires a 'subject': %w", models.ErrConfiguration)
	}

	body, _ := config["body"].(string)
	if body == "" {
		return nil, fmt.Errorf("email_alert requires a 'body': %w", models.ErrConfiguration)
	}

	followUpDays := 0
	if raw, exists := config["follow_up_days"]; exists {
		days, ok := raw.(float64)
		if !ok || days < 0 {
			return nil, fmt.Errorf("email_alert 'follow_up_days' must be a non-negative number: %w", models.ErrConfiguration)
		}

		followUpDays = int(days)
	}

	return &Action{
		ID:           actionID,
		To:           to,
		Subject:      subject,
		Body:         body,
		FollowUpDays: followUpDays,
	}, nil
}

// Execute renders and dispatches the alert.
func (a *Action) Execute(ctx context.Context, execCtx protocol.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "email_alert_action")

	subject, err := template.Render(a.Subject, execCtx.Record, execCtx.Actor, execCtx.Clock)
	if err != nil {
		return nil, err
	}

	body, err := template.Render(a.Body, execCtx.Record, execCtx.Actor, execCtx.Clock)
	if err != nil {
		return nil, err
	}

	to := make([]string, 0, len(a.To))

	for _, recipient := range a.To {
		if recipient == RecipientOwner {
			recipient = execCtx.Record.OwnerID()
			if recipient == "" {
				continue
			}
		}

		to = append(to, recipient)
	}

	if len(to) == 0 {
		logger.WarnContext(ctx, "Email alert has no resolvable recipients, skipping",
			"entity_type", execCtx.Record.EntityType(),
			"record_id", execCtx.Record.RecordID(),
		)

		return map[string]any{"sent": false}, nil
	}

	if err := execCtx.Mailer.Send(ctx, to, subject, body); err != nil {
		return nil, fmt.Errorf("mailer failed for %v: %v: %w", to, err, models.ErrDelivery)
	}

	output := map[string]any{
		"sent":    true,
		"to":      to,
		"subject": subject,
	}

	if a.FollowUpDays > 0 {
		followUp := execCtx.Clock.Now().UTC().AddDate(0, 0, a.FollowUpDays)
		output["follow_up_date"] = followUp.Format(time.DateOnly)
	}

	logger.InfoContext(ctx, "Dispatched email alert", "to", to, "subject", subject)

	return output, nil
}
