package fieldupdate

import (
	"github.com/pulsecrm/pulse/pkg/protocol"
)

// ActionFactory creates field-update actions.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}

func (f *ActionFactory) ID() string {
	return "field_update"
}

// Schema returns the JSON schema for the field-update configuration.
func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"fields": map[string]any{
				"type":        "object",
				"description": "Field name to value. String values are merge-field templates ({{now}}, {{.actor}}, {{.fields.name}}).",
				"minProperties": 1,
			},
		},
		"required":             []any{"fields"},
		"additionalProperties": false,
	}
}
