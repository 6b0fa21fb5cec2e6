package protocol

import (
	"context"

	"github.com/pulsecrm/pulse/pkg/models"
)

// Mailer dispatches email alerts. Implementations may send synchronously
// or enqueue for an asynchronous delivery worker.
type Mailer interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

// Poster delivers outbound messages to configured external endpoints.
// Best effort: callers log failures instead of raising them, since
// downstream systems are untrusted.
type Poster interface {
	Post(ctx context.Context, url string, payload map[string]any) error
}

// RecordStore reads and writes records by entity type and id. The store
// enforces the "exactly one pending request per (process, record)"
// invariant for the approval engine.
type RecordStore interface {
	Record(ctx context.Context, entityType string, id int64) (models.FieldRecord, error)

	// UpdateFields persists field values already applied to the record so
	// later actions in the same rule observe them on re-read.
	UpdateFields(ctx context.Context, record models.FieldRecord, fields map[string]any) error

	// CreateRecord persists a new record and returns its assigned id.
	CreateRecord(ctx context.Context, record models.FieldRecord) (int64, error)
}
