// Package taskcreation provides the task-creation workflow action.
package taskcreation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pulsecrm/pulse/pkg/models"
	"github.com/pulsecrm/pulse/pkg/protocol"
	"github.com/pulsecrm/pulse/pkg/template"
)

// Action creates a new Task record linked to the source record, with a due
// date computed relative to trigger time.
type Action struct {
	ID          string
	Subject     string
	Description string
	DueInDays   int
	Priority    string
	Status      string
	Owner       string
}

// NewAction creates a task-creation action from configuration.
func NewAction(config map[string]any) (*Action, error) {
	actionID, _ := config["id"].(string)

	subject, _ := config["subject"].(string)
	if subject == "" {
		return nil, fmt.Errorf("task_creation requires a 'subject': %w", models.ErrConfiguration)
	}

	rawDue, exists := config["due_in_days"]
	if !exists {
		return nil, fmt.Errorf("task_creation requires 'due_in_days': %w", models.ErrConfiguration)
	}

	days, ok := rawDue.(float64)
	if !ok || days < 0 {
		return nil, fmt.Errorf("invalid due-date offset %v: %w", rawDue, models.ErrField)
	}

	priority, _ := config["priority"].(string)
	if priority == "" {
		priority = models.TaskPriorityMedium
	}

	switch priority {
	case models.TaskPriorityHigh, models.TaskPriorityMedium, models.TaskPriorityLow:
	default:
		return nil, fmt.Errorf("unknown task priority %q: %w", priority, models.ErrConfiguration)
	}

	description, _ := config["description"].(string)
	owner, _ := config["owner"].(string)

	return &Action{
		ID:          actionID,
		Subject:     subject,
		Description: description,
		DueInDays:   int(days),
		Priority:    priority,
		Status:      models.TaskStatusNotStarted,
		Owner:       owner,
	}, nil
}

// Execute creates the task through the record store, linked back to the
// source record. The due date is trigger time plus the configured offset.
func (a *Action) Execute(ctx context.Context, execCtx protocol.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "task_creation_action")

	subject, err := template.Render(a.Subject, execCtx.Record, execCtx.Actor, execCtx.Clock)
	if err != nil {
		return nil, err
	}

	owner := a.Owner
	if owner == "" {
		owner = execCtx.Record.OwnerID()
	}

	dueDate := execCtx.Clock.Now().UTC().AddDate(0, 0, a.DueInDays)

	fields := map[string]any{
		"subject":         subject,
		"due_date":        dueDate.Format(time.RFC3339),
		"status":          a.Status,
		"priority":        a.Priority,
		"related_to_type": strings.ToLower(execCtx.Record.EntityType()),
		"related_to_id":   execCtx.Record.RecordID(),
	}

	if a.Description != "" {
		description, err := template.Render(a.Description, execCtx.Record, execCtx.Actor, execCtx.Clock)
		if err != nil {
			return nil, err
		}

		fields["description"] = description
	}

	task, err := execCtx.Entities.NewRecord(models.EntityTask, 0, owner, fields)
	if err != nil {
		return nil, err
	}

	taskID, err := execCtx.Records.CreateRecord(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	logger.InfoContext(ctx, "Created task",
		"task_id", taskID,
		"subject", subject,
		"due_date", fields["due_date"],
	)

	return map[string]any{
		"task_id":  taskID,
		"subject":  subject,
		"due_date": fields["due_date"],
	}, nil
}
