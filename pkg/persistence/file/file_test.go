package file

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsecrm/pulse/pkg/models"
	"github.com/pulsecrm/pulse/pkg/persistence"
)

func newTestPersistence(t *testing.T) *Persistence {
	t.Helper()

	return NewPersistence(t.TempDir(), models.DefaultEntityRegistry())
}

func TestRuleRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)

	rule := &models.WorkflowRule{
		ID:         "rule-1",
		Name:       "hot lead alert",
		EntityType: models.EntityLead,
		Active:     true,
		Trigger:    models.TriggerOnCreate,
		Condition: &models.Expression{
			Field:      "source",
			Comparator: models.ComparatorEquals,
			Value:      "website",
		},
		Actions: []models.WorkflowAction{
			{ID: "a-1", Kind: models.ActionEmailAlert, Configuration: map[string]any{
				"to":      []any{"owner"},
				"subject": "New lead",
			}, Order: 1},
		},
	}

	require.NoError(t, p.Rules().SaveRule(ctx, rule))
	assert.False(t, rule.CreatedAt.IsZero())

	loaded, err := p.Rules().RuleByID(ctx, "rule-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, rule.Name, loaded.Name)
	assert.Equal(t, models.ComparatorEquals, loaded.Condition.Comparator)
	require.Len(t, loaded.Actions, 1)
	assert.Equal(t, models.ActionEmailAlert, loaded.Actions[0].Kind)

	missing, err := p.Rules().RuleByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, p.Rules().DeleteRule(ctx, "rule-1"))
	require.NoError(t, p.Rules().DeleteRule(ctx, "rule-1"))
}

func TestRuleRepository_ActiveRulesFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)

	save := func(id, entityType string, active bool) {
		require.NoError(t, p.Rules().SaveRule(ctx, &models.WorkflowRule{
			ID:         id,
			Name:       "rule " + id,
			EntityType: entityType,
			Active:     active,
			Trigger:    models.TriggerOnCreateOrEdit,
		}))
	}

	save("rule-b", models.EntityLead, true)
	save("rule-a", models.EntityLead, true)
	save("rule-c", models.EntityLead, false)
	save("rule-d", models.EntityContact, true)

	active, err := p.Rules().ActiveRules(ctx, models.EntityLead)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "rule-a", active[0].ID)
	assert.Equal(t, "rule-b", active[1].ID)
}

func TestApprovalRepository_ProcessRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)

	process := &models.ApprovalProcess{
		ID:         "proc-1",
		Name:       "discount approvals",
		EntityType: models.EntityOpportunity,
		Active:     true,
		Steps: []models.ApprovalStep{
			{StepNumber: 1, Policy: models.PolicyUnanimous, Approvers: []string{"mgr-a"}},
		},
	}

	require.NoError(t, p.Approvals().SaveProcess(ctx, process))

	loaded, err := p.Approvals().ProcessByID(ctx, "proc-1")
	require.NoError(t, err)
	require.Len(t, loaded.Steps, 1)
	assert.Equal(t, models.PolicyUnanimous, loaded.Steps[0].Policy)

	_, err = p.Approvals().ProcessByID(ctx, "nope")
	assert.True(t, persistence.IsProcessNotFound(err))
}

func TestApprovalRepository_SinglePendingRequestPerRecord(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)

	first := &models.ApprovalRequest{
		ID:         "req-1",
		ProcessID:  "proc-1",
		EntityType: models.EntityOpportunity,
		RecordID:   7,
		Status:     models.StatusPending,
		Submitter:  "sales-rep",
	}
	require.NoError(t, p.Approvals().SaveRequest(ctx, first))

	dup := &models.ApprovalRequest{
		ID:         "req-2",
		ProcessID:  "proc-1",
		EntityType: models.EntityOpportunity,
		RecordID:   7,
		Status:     models.StatusPending,
		Submitter:  "sales-rep",
	}
	err := p.Approvals().SaveRequest(ctx, dup)
	assert.True(t, persistence.IsDuplicatePendingRequest(err))

	// Updating the pending request itself is allowed.
	first.StepNumber = 2
	require.NoError(t, p.Approvals().SaveRequest(ctx, first))

	// Once the first is terminal, a new pending request may open.
	first.Status = models.StatusRecalled
	require.NoError(t, p.Approvals().SaveRequest(ctx, first))
	require.NoError(t, p.Approvals().SaveRequest(ctx, dup))

	pending, err := p.Approvals().PendingRequest(ctx, "proc-1", models.EntityOpportunity, 7)
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, "req-2", pending.ID)
}

func TestRecordStore_CreateAssignsSequentialIDs(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)
	entities := models.DefaultEntityRegistry()

	lead, err := entities.NewRecord(models.EntityLead, 0, "sales-rep", map[string]any{
		"first_name": "Dana",
		"last_name":  "Reyes",
		"source":     "website",
	})
	require.NoError(t, err)

	id, err := p.Records().CreateRecord(ctx, lead)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	second, err := entities.NewRecord(models.EntityLead, 0, "sales-rep", map[string]any{
		"first_name": "Kim",
	})
	require.NoError(t, err)

	id, err = p.Records().CreateRecord(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)

	loaded, err := p.Records().Record(ctx, models.EntityLead, 1)
	require.NoError(t, err)

	name, ok := loaded.Field("first_name")
	require.True(t, ok)
	assert.Equal(t, "Dana", name)
}

func TestRecordStore_UpdateFieldsPersists(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)
	entities := models.DefaultEntityRegistry()

	lead, err := entities.NewRecord(models.EntityLead, 5, "sales-rep", map[string]any{
		"status": "new",
	})
	require.NoError(t, err)

	_, err = p.Records().CreateRecord(ctx, lead)
	require.NoError(t, err)

	require.NoError(t, p.Records().UpdateFields(ctx, lead, map[string]any{"status": "contacted"}))

	loaded, err := p.Records().Record(ctx, models.EntityLead, 5)
	require.NoError(t, err)

	status, ok := loaded.Field("status")
	require.True(t, ok)
	assert.Equal(t, "contacted", status)

	err = p.Records().UpdateFields(ctx, lead, map[string]any{"unknown_field": 1})
	assert.True(t, models.IsFieldError(err))

	_, err = p.Records().Record(ctx, models.EntityLead, 99)
	assert.True(t, persistence.IsRecordNotFound(err))
}
