package emailalert

import (
	"github.com/pulsecrm/pulse/pkg/protocol"
)

// ActionFactory creates email-alert actions.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}

func (f *ActionFactory) ID() string {
	return "email_alert"
}

// Schema returns the JSON schema for the email-alert configuration.
func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"to": map[string]any{
				"type":        "array",
				"description": "Recipient addresses. The entry \"owner\" resolves to the record's owning user.",
				"items":       map[string]any{"type": "string", "minLength": 1},
				"minItems":    1,
			},
			"subject": map[string]any{
				"type":        "string",
				"description": "Subject merge-field template.",
				"minLength":   1,
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Body merge-field template.",
				"minLength":   1,
			},
			"follow_up_days": map[string]any{
				"type":        "number",
				"description": "Optional follow-up date offset in days from trigger time.",
				"minimum":     0,
			},
		},
		"required":             []any{"to", "subject", "body"},
		"additionalProperties": false,
	}
}
