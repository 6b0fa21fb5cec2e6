package workflow

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsecrm/pulse/pkg/actions/emailalert"
	"github.com/pulsecrm/pulse/pkg/actions/fieldupdate"
	"github.com/pulsecrm/pulse/pkg/actions/outbound"
	"github.com/pulsecrm/pulse/pkg/actions/taskcreation"
	"github.com/pulsecrm/pulse/pkg/models"
	"github.com/pulsecrm/pulse/pkg/registry"
)

type fakeRules struct {
	rules []*models.WorkflowRule
}

func (f *fakeRules) Rules(_ context.Context) ([]*models.WorkflowRule, error) { return f.rules, nil }

func (f *fakeRules) RuleByID(_ context.Context, _ string) (*models.WorkflowRule, error) {
	return nil, nil
}

func (f *fakeRules) ActiveRules(_ context.Context, entityType string) ([]*models.WorkflowRule, error) {
	matched := make([]*models.WorkflowRule, 0)

	for _, rule := range f.rules {
		if rule.Active && rule.EntityType == entityType {
			matched = append(matched, rule)
		}
	}

	return matched, nil
}

func (f *fakeRules) SaveRule(_ context.Context, _ *models.WorkflowRule) error { return nil }

func (f *fakeRules) DeleteRule(_ context.Context, _ string) error { return nil }

type orderedPoster struct {
	urls []string
	fail map[string]bool
}

func (p *orderedPoster) Post(_ context.Context, url string, _ map[string]any) error {
	p.urls = append(p.urls, url)

	if p.fail[url] {
		return errors.New("endpoint down")
	}

	return nil
}

type nullStore struct{}

func (nullStore) Record(_ context.Context, _ string, _ int64) (models.FieldRecord, error) {
	return nil, nil
}

func (nullStore) UpdateFields(_ context.Context, _ models.FieldRecord, _ map[string]any) error {
	return nil
}

func (nullStore) CreateRecord(_ context.Context, _ models.FieldRecord) (int64, error) {
	return 1, nil
}

func testRegistry() *registry.Registry {
	r := registry.NewRegistry(slog.Default())
	r.RegisterAction(fieldupdate.NewActionFactory())
	r.RegisterAction(emailalert.NewActionFactory())
	r.RegisterAction(taskcreation.NewActionFactory())
	r.RegisterAction(outbound.NewActionFactory())

	return r
}

func outboundAction(id string, order int, url string) models.WorkflowAction {
	return models.WorkflowAction{
		ID:            id,
		Kind:          models.ActionOutboundMessage,
		Configuration: map[string]any{"url": url},
		Order:         order,
	}
}

func newTestEngine(rules *fakeRules, poster *orderedPoster) *Engine {
	return NewEngine(Config{
		Rules:    rules,
		Registry: testRegistry(),
		Entities: models.DefaultEntityRegistry(),
		Clock:    clockwork.NewFakeClock(),
		Poster:   poster,
		Records:  nullStore{},
		Logger:   slog.Default(),
	})
}

func opportunity(t *testing.T, stage string) models.FieldRecord {
	t.Helper()

	record, err := models.DefaultEntityRegistry().NewRecord(models.EntityOpportunity, 1, "user-1", map[string]any{
		"name":  "Acme renewal",
		"stage": stage,
	})
	require.NoError(t, err)

	return record
}

func prospectingRule(actions ...models.WorkflowAction) *models.WorkflowRule {
	return &models.WorkflowRule{
		ID:         "rule-1",
		Name:       "notify on new prospects",
		EntityType: models.EntityOpportunity,
		Active:     true,
		Trigger:    models.TriggerOnCreate,
		Condition: &models.Expression{
			Field:      "stage",
			Comparator: models.ComparatorEquals,
			Value:      "prospecting",
		},
		Actions: actions,
	}
}

func TestEngine_ActionsRunInDeclaredOrder(t *testing.T) {
	poster := &orderedPoster{}
	rules := &fakeRules{rules: []*models.WorkflowRule{prospectingRule(
		outboundAction("a-3", 3, "https://hooks.test/third"),
		outboundAction("a-1", 1, "https://hooks.test/first"),
		outboundAction("a-2", 2, "https://hooks.test/second"),
	)}}

	engine := newTestEngine(rules, poster)

	results := engine.OnRecordEvent(context.Background(), opportunity(t, models.StageProspecting), models.EventCreated, "user-2")

	require.Len(t, results, 3)
	assert.Equal(t, []string{
		"https://hooks.test/first",
		"https://hooks.test/second",
		"https://hooks.test/third",
	}, poster.urls)

	for _, result := range results {
		assert.Equal(t, models.ResultSucceeded, result.Status)
		assert.Equal(t, "rule-1", result.RuleID)
	}
}

func TestEngine_ConditionMismatchFiresNothing(t *testing.T) {
	poster := &orderedPoster{}
	rules := &fakeRules{rules: []*models.WorkflowRule{prospectingRule(
		outboundAction("a-1", 1, "https://hooks.test/first"),
	)}}

	engine := newTestEngine(rules, poster)

	results := engine.OnRecordEvent(context.Background(), opportunity(t, models.StageQualification), models.EventCreated, "user-2")

	assert.Empty(t, results)
	assert.Empty(t, poster.urls)
}

func TestEngine_TriggerKindFiltersEvents(t *testing.T) {
	poster := &orderedPoster{}
	rules := &fakeRules{rules: []*models.WorkflowRule{prospectingRule(
		outboundAction("a-1", 1, "https://hooks.test/first"),
	)}}

	engine := newTestEngine(rules, poster)

	// The rule's trigger is on_create; an edit must not fire it.
	results := engine.OnRecordEvent(context.Background(), opportunity(t, models.StageProspecting), models.EventEdited, "user-2")

	assert.Empty(t, results)
	assert.Empty(t, poster.urls)
}

func TestEngine_InactiveRulesNeverFire(t *testing.T) {
	rule := prospectingRule(outboundAction("a-1", 1, "https://hooks.test/first"))
	rule.Active = false

	poster := &orderedPoster{}
	engine := newTestEngine(&fakeRules{rules: []*models.WorkflowRule{rule}}, poster)

	results := engine.OnRecordEvent(context.Background(), opportunity(t, models.StageProspecting), models.EventCreated, "user-2")

	assert.Empty(t, results)
	assert.Empty(t, poster.urls)
}

func TestEngine_MalformedConditionAbortsOnlyThatRule(t *testing.T) {
	broken := &models.WorkflowRule{
		ID:         "rule-0",
		Name:       "broken",
		EntityType: models.EntityOpportunity,
		Active:     true,
		Trigger:    models.TriggerOnCreate,
		Condition:  &models.Expression{Field: "stage", Comparator: "like", Value: "pro"},
		Actions:    []models.WorkflowAction{outboundAction("a-0", 1, "https://hooks.test/broken")},
	}

	poster := &orderedPoster{}
	rules := &fakeRules{rules: []*models.WorkflowRule{
		broken,
		prospectingRule(outboundAction("a-1", 1, "https://hooks.test/first")),
	}}

	engine := newTestEngine(rules, poster)

	results := engine.OnRecordEvent(context.Background(), opportunity(t, models.StageProspecting), models.EventCreated, "user-2")

	require.Len(t, results, 2)
	assert.Equal(t, models.ResultFailed, results[0].Status)
	assert.Equal(t, "rule-0", results[0].RuleID)
	assert.Equal(t, models.ResultSucceeded, results[1].Status)

	// The broken rule's actions never ran.
	assert.Equal(t, []string{"https://hooks.test/first"}, poster.urls)
}

func TestEngine_ActionFailureDoesNotStopSequence(t *testing.T) {
	poster := &orderedPoster{fail: map[string]bool{"https://hooks.test/first": true}}
	rules := &fakeRules{rules: []*models.WorkflowRule{prospectingRule(
		outboundAction("a-1", 1, "https://hooks.test/first"),
		outboundAction("a-2", 2, "https://hooks.test/second"),
	)}}

	engine := newTestEngine(rules, poster)

	results := engine.OnRecordEvent(context.Background(), opportunity(t, models.StageProspecting), models.EventCreated, "user-2")

	require.Len(t, results, 2)
	assert.Equal(t, models.ResultFailed, results[0].Status)
	assert.Contains(t, results[0].Error, "delivery error")
	assert.Equal(t, models.ResultSucceeded, results[1].Status)
	assert.Len(t, poster.urls, 2)
}
