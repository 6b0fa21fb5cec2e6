package outbound

import (
	"github.com/pulsecrm/pulse/pkg/protocol"
)

// ActionFactory creates outbound-message actions.
type ActionFactory struct{}

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config)
}

func (f *ActionFactory) ID() string {
	return "outbound_message"
}

// Schema returns the JSON schema for the outbound-message configuration.
func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Absolute endpoint URL to post the message to.",
				"minLength":   1,
			},
			"fields": map[string]any{
				"type":        "array",
				"description": "Record fields to include in the payload. Omit to send all fields.",
				"items":       map[string]any{"type": "string", "minLength": 1},
			},
		},
		"required":             []any{"url"},
		"additionalProperties": false,
	}
}
