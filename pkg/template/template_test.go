package template

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsecrm/pulse/pkg/models"
)

func TestRender_MergeFields(t *testing.T) {
	registry := models.DefaultEntityRegistry()
	record, err := registry.NewRecord(models.EntityOpportunity, 42, "user-1", map[string]any{
		"name":  "Acme renewal",
		"stage": models.StageNegotiation,
	})
	require.NoError(t, err)

	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	out, err := Render("Deal {{.fields.name}} moved to {{.fields.stage}} (record {{.record.id}}) at {{now}}", record, "user-2", clock)
	require.NoError(t, err)
	assert.Equal(t, "Deal Acme renewal moved to negotiation (record 42) at 2026-03-01T12:00:00Z", out)
}

func TestRender_ActorAndOwner(t *testing.T) {
	registry := models.DefaultEntityRegistry()
	record, err := registry.NewRecord(models.EntityLead, 7, "owner-9", map[string]any{"status": "new"})
	require.NoError(t, err)

	out, err := Render("{{.actor}}/{{.record.owner}}", record, "actor-3", clockwork.NewFakeClock())
	require.NoError(t, err)
	assert.Equal(t, "actor-3/owner-9", out)
}

func TestRender_ParseErrorIsConfigurationError(t *testing.T) {
	registry := models.DefaultEntityRegistry()
	record, err := registry.NewRecord(models.EntityLead, 7, "owner-9", nil)
	require.NoError(t, err)

	_, err = Render("{{.fields.status", record, "actor", clockwork.NewFakeClock())
	require.Error(t, err)
	assert.True(t, models.IsConfigurationError(err))
}
