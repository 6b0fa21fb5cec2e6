// Package protocol defines the interfaces and contracts for pluggable
// workflow actions and the external collaborators they call into.
package protocol

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/pulsecrm/pulse/pkg/models"
)

// Action applies one typed effect to a record: a field update, an email
// alert, a task creation, or an outbound message. Execution of one action
// never observes another action's result within the same batch except
// through persisted record state.
type Action interface {
	Execute(ctx context.Context, execCtx ExecutionContext, logger *slog.Logger) (map[string]any, error)
}

// ActionFactory builds an Action from its configuration payload. Create
// fails with models.ErrConfiguration on malformed payloads so authoring
// errors surface at save time, not at trigger time.
type ActionFactory interface {
	Create(config map[string]any) (Action, error)
	ID() string
	Schema() map[string]any
}

// ExecutionContext bundles the acting user, the triggering event, the
// target record, and the external collaborator handles an action may use.
type ExecutionContext struct {
	Event  models.EventKind
	Actor  string
	Record models.FieldRecord

	Clock    clockwork.Clock
	Mailer   Mailer
	Poster   Poster
	Records  RecordStore
	Entities *models.EntityRegistry
}
