// Package fieldupdate provides the field-update workflow action.
package fieldupdate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/pulsecrm/pulse/pkg/models"
	"github.com/pulsecrm/pulse/pkg/protocol"
	"github.com/pulsecrm/pulse/pkg/template"
)

// Action sets one or more named fields on the target record to literal or
// computed values. String values are merge-field templates, so authors can
// write "{{now}}" or "{{.actor}}" for trigger-time values.
type Action struct {
	ID     string
	Fields map[string]any
}

// NewAction creates a field-update action from configuration.
func NewAction(config map[string]any) (*Action, error) {
	actionID, _ := config["id"].(string)

	fields, ok := config["fields"].(map[string]any)
	if !ok || len(fields) == 0 {
		return nil, fmt.Errorf("field_update requires a non-empty 'fields' object: %w", models.ErrConfiguration)
	}

	return &Action{
		ID:     actionID,
		Fields: fields,
	}, nil
}

// Execute applies the configured field values to the record and persists
// them, so later actions in the same rule observe the update on re-read.
// It fails with models.ErrField when a named field does not exist on the
// record's type.
func (a *Action) Execute(ctx context.Context, execCtx protocol.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "field_update_action")

	names := make([]string, 0, len(a.Fields))
	for name := range a.Fields {
		names = append(names, name)
	}

	sort.Strings(names)

	updated := make(map[string]any, len(names))

	for _, name := range names {
		value := a.Fields[name]

		if input, ok := value.(string); ok {
			rendered, err := template.Render(input, execCtx.Record, execCtx.Actor, execCtx.Clock)
			if err != nil {
				return nil, err
			}

			value = rendered
		}

		if err := execCtx.Record.SetField(name, value); err != nil {
			return nil, err
		}

		updated[name] = value
	}

	if execCtx.Records != nil {
		if err := execCtx.Records.UpdateFields(ctx, execCtx.Record, updated); err != nil {
			return nil, fmt.Errorf("failed to persist field updates: %w", err)
		}
	}

	logger.InfoContext(ctx, "Updated record fields",
		"entity_type", execCtx.Record.EntityType(),
		"record_id", execCtx.Record.RecordID(),
		"fields", names,
	)

	return map[string]any{"updated": updated}, nil
}
