// Package registry holds the catalog of available workflow action types.
package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/pulsecrm/pulse/pkg/models"
	"github.com/pulsecrm/pulse/pkg/protocol"
)

// Registry maps action kinds to their factories. Besides creating actions
// at trigger time, it validates configuration payloads against each
// factory's JSON schema at save time, so authoring errors become
// models.ErrConfiguration when a rule is saved rather than when it fires.
type Registry struct {
	logger    *slog.Logger
	factories map[string]protocol.ActionFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[string]protocol.ActionFactory),
	}
}

// RegisterAction adds an action factory, keyed by its ID.
func (r *Registry) RegisterAction(factory protocol.ActionFactory) {
	r.factories[factory.ID()] = factory
}

// CreateAction builds an action of the given kind from its configuration.
func (r *Registry) CreateAction(kind models.ActionKind, config map[string]any) (protocol.Action, error) {
	factory, ok := r.factories[string(kind)]
	if !ok {
		return nil, fmt.Errorf("action kind %q not registered: %w", kind, models.ErrConfiguration)
	}

	return factory.Create(config)
}

// ValidateConfiguration checks an action configuration payload against the
// registered schema for its kind.
func (r *Registry) ValidateConfiguration(kind models.ActionKind, config map[string]any) error {
	factory, ok := r.factories[string(kind)]
	if !ok {
		return fmt.Errorf("action kind %q not registered: %w", kind, models.ErrConfiguration)
	}

	schemaLoader := gojsonschema.NewGoLoader(factory.Schema())
	documentLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("failed to validate %s configuration: %v: %w", kind, err, models.ErrConfiguration)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return fmt.Errorf("invalid %s configuration: %s: %w", kind, strings.Join(details, "; "), models.ErrConfiguration)
	}

	return nil
}

// ValidateActions validates every action in a declared sequence.
func (r *Registry) ValidateActions(actions []models.WorkflowAction) error {
	for _, action := range actions {
		if err := r.ValidateConfiguration(action.Kind, action.Configuration); err != nil {
			return fmt.Errorf("action %q: %w", action.Name, err)
		}
	}

	return nil
}

// ActionKinds returns the registered kinds in registration-independent
// deterministic order.
func (r *Registry) ActionKinds() []string {
	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}

	sort.Strings(kinds)

	return kinds
}

// HealthCheck reports whether the registry has the built-in action kinds.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.factories) == 0 {
		return "no action factories registered", false
	}

	return fmt.Sprintf("%d action kinds registered", len(r.factories)), true
}
