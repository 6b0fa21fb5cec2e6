package workflow

import (
	"context"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/pulsecrm/pulse/pkg/models"
	"github.com/pulsecrm/pulse/pkg/persistence"
	"github.com/pulsecrm/pulse/pkg/protocol"
	"github.com/pulsecrm/pulse/pkg/registry"
)

// Engine decides, per lifecycle event, which active rules apply and fires
// their action sequences. It is stateless per invocation; everything is
// driven by the event and the rule configuration.
type Engine struct {
	rules    persistence.RuleRepository
	runner   *Runner
	clock    clockwork.Clock
	logger   *slog.Logger
	entities *models.EntityRegistry

	mailer  protocol.Mailer
	poster  protocol.Poster
	records protocol.RecordStore
}

// Config wires the engine's collaborators.
type Config struct {
	Rules    persistence.RuleRepository
	Registry *registry.Registry
	Entities *models.EntityRegistry
	Clock    clockwork.Clock
	Mailer   protocol.Mailer
	Poster   protocol.Poster
	Records  protocol.RecordStore
	Logger   *slog.Logger
}

func NewEngine(cfg Config) *Engine {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		rules:    cfg.Rules,
		runner:   NewRunner(cfg.Registry, logger),
		clock:    clock,
		logger:   logger.With("module", "workflow_engine"),
		entities: cfg.Entities,
		mailer:   cfg.Mailer,
		poster:   cfg.Poster,
		records:  cfg.Records,
	}
}

// OnRecordEvent evaluates every applicable rule against the record and
// returns the accumulated per-action results. Failures never propagate
// past the engine boundary: the caller that persisted the triggering edit
// must not be blocked by automation problems.
func (e *Engine) OnRecordEvent(ctx context.Context, record models.FieldRecord, event models.EventKind, actor string) []models.ExecutionResult {
	logger := e.logger.With(
		"entity_type", record.EntityType(),
		"record_id", record.RecordID(),
		"event", event,
	)

	rules, err := e.rules.ActiveRules(ctx, record.EntityType())
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load rules, skipping automation", "error", err)
		return nil
	}

	results := make([]models.ExecutionResult, 0)

	for _, rule := range rules {
		if !rule.Active || !rule.Trigger.Matches(event) {
			continue
		}

		ruleLogger := logger.With("rule_id", rule.ID, "rule_name", rule.Name)

		matched, err := rule.Condition.Evaluate(record)
		if err != nil {
			// An authoring error aborts only this rule; sibling rules
			// still run.
			ruleLogger.ErrorContext(ctx, "Rule condition is malformed, skipping rule", "error", err)

			results = append(results, models.ExecutionResult{
				RuleID: rule.ID,
				Status: models.ResultFailed,
				Error:  err.Error(),
			})

			continue
		}

		if !matched {
			ruleLogger.DebugContext(ctx, "Rule condition did not match")
			continue
		}

		ruleLogger.InfoContext(ctx, "Rule matched, executing actions", "actions", len(rule.Actions))

		execCtx := protocol.ExecutionContext{
			Event:    event,
			Actor:    actor,
			Record:   record,
			Clock:    e.clock,
			Mailer:   e.mailer,
			Poster:   e.poster,
			Records:  e.records,
			Entities: e.entities,
		}

		actions := make([]models.WorkflowAction, len(rule.Actions))
		copy(actions, rule.Actions)

		for i := range actions {
			actions[i].RuleID = rule.ID
		}

		results = append(results, e.runner.Run(ctx, actions, execCtx)...)
	}

	return results
}
