package taskcreation

import (
	"github.com/pulsecrm/pulse/pkg/protocol"
)

// ActionFactory creates task-creation actions.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}

func (f *ActionFactory) ID() string {
	return "task_creation"
}

// Schema returns the JSON schema for the task-creation configuration.
func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"subject": map[string]any{
				"type":        "string",
				"description": "Task subject merge-field template.",
				"minLength":   1,
			},
			"description": map[string]any{
				"type":        "string",
				"description": "Optional task description merge-field template.",
			},
			"due_in_days": map[string]any{
				"type":        "number",
				"description": "Due date offset in days from trigger time.",
				"minimum":     0,
			},
			"priority": map[string]any{
				"type": "string",
				"enum": []any{"high", "medium", "low"},
			},
			"owner": map[string]any{
				"type":        "string",
				"description": "Assignee. Defaults to the source record's owner.",
			},
		},
		"required":             []any{"subject", "due_in_days"},
		"additionalProperties": false,
	}
}
