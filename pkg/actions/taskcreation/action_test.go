package taskcreation

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsecrm/pulse/pkg/models"
	"github.com/pulsecrm/pulse/pkg/protocol"
)

type fakeStore struct {
	created models.FieldRecord
}

func (s *fakeStore) Record(_ context.Context, _ string, _ int64) (models.FieldRecord, error) {
	return nil, nil
}

func (s *fakeStore) UpdateFields(_ context.Context, _ models.FieldRecord, _ map[string]any) error {
	return nil
}

func (s *fakeStore) CreateRecord(_ context.Context, record models.FieldRecord) (int64, error) {
	s.created = record
	return 101, nil
}

func testContext(t *testing.T) (protocol.ExecutionContext, *fakeStore) {
	t.Helper()

	registry := models.DefaultEntityRegistry()
	record, err := registry.NewRecord(models.EntityOpportunity, 12, "user-1", map[string]any{
		"name": "Acme renewal",
	})
	require.NoError(t, err)

	store := &fakeStore{}

	return protocol.ExecutionContext{
		Event:    models.EventCreated,
		Actor:    "user-2",
		Record:   record,
		Clock:    clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)),
		Records:  store,
		Entities: registry,
	}, store
}

func TestNewAction_InvalidDueOffsetIsFieldError(t *testing.T) {
	_, err := NewAction(map[string]any{"subject": "Call back", "due_in_days": -2.0})
	require.Error(t, err)
	assert.True(t, models.IsFieldError(err))

	_, err = NewAction(map[string]any{"subject": "Call back", "due_in_days": "soon"})
	require.Error(t, err)
	assert.True(t, models.IsFieldError(err))
}

func TestNewAction_MissingSubject(t *testing.T) {
	_, err := NewAction(map[string]any{"due_in_days": 1.0})
	require.Error(t, err)
	assert.True(t, models.IsConfigurationError(err))
}

func TestAction_Execute_CreatesLinkedTask(t *testing.T) {
	execCtx, store := testContext(t)

	action, err := NewAction(map[string]any{
		"subject":     "Follow up on {{.fields.name}}",
		"due_in_days": 5.0,
		"priority":    models.TaskPriorityHigh,
	})
	require.NoError(t, err)

	output, err := action.Execute(context.Background(), execCtx, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, int64(101), output["task_id"])

	require.NotNil(t, store.created)
	assert.Equal(t, models.EntityTask, store.created.EntityType())
	assert.Equal(t, "user-1", store.created.OwnerID())

	subject, _ := store.created.Field("subject")
	assert.Equal(t, "Follow up on Acme renewal", subject)

	dueDate, _ := store.created.Field("due_date")
	assert.Equal(t, "2026-03-06T10:00:00Z", dueDate)

	relatedType, _ := store.created.Field("related_to_type")
	assert.Equal(t, "opportunity", relatedType)

	relatedID, _ := store.created.Field("related_to_id")
	assert.Equal(t, int64(12), relatedID)
}
