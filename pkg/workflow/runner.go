// Package workflow implements the rule evaluation engine that reacts to
// record lifecycle events.
package workflow

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pulsecrm/pulse/pkg/models"
	"github.com/pulsecrm/pulse/pkg/protocol"
	"github.com/pulsecrm/pulse/pkg/registry"
	"github.com/pulsecrm/pulse/pkg/tracing"
)

// Runner executes a declared action sequence in (order, id) order and
// accumulates per-action results. Both the workflow engine and the
// approval engine route their action lists through it, so ordering and
// failure semantics stay identical.
type Runner struct {
	registry *registry.Registry
	logger   *slog.Logger
	tracer   trace.Tracer
}

func NewRunner(registry *registry.Registry, logger *slog.Logger) *Runner {
	return &Runner{
		registry: registry,
		logger:   logger,
		tracer:   otel.Tracer("pulse.workflow"),
	}
}

// Run executes the actions sequentially. A failing action is recorded
// against its result and does not stop the remaining actions; effects are
// independently committed, never rolled back.
func (r *Runner) Run(ctx context.Context, actions []models.WorkflowAction, execCtx protocol.ExecutionContext) []models.ExecutionResult {
	ordered := make([]models.WorkflowAction, len(actions))
	copy(ordered, actions)
	models.SortActions(ordered)

	results := make([]models.ExecutionResult, 0, len(ordered))

	for _, item := range ordered {
		results = append(results, r.runOne(ctx, item, execCtx))
	}

	return results
}

func (r *Runner) runOne(ctx context.Context, item models.WorkflowAction, execCtx protocol.ExecutionContext) models.ExecutionResult {
	ctx, span := tracing.StartSpan(ctx, r.tracer, "action.execute",
		attribute.String(tracing.ActionIDKey, item.ID),
		attribute.String(tracing.ActionKindKey, string(item.Kind)),
	)
	defer span.End()

	logger := r.logger.With(
		"action_id", item.ID,
		"action_kind", item.Kind,
	)

	result := models.ExecutionResult{
		RuleID:     item.RuleID,
		ActionID:   item.ID,
		ActionKind: item.Kind,
		Status:     models.ResultSucceeded,
	}

	config := make(map[string]any, len(item.Configuration)+1)
	for k, v := range item.Configuration {
		config[k] = v
	}

	config["id"] = item.ID

	action, err := r.registry.CreateAction(item.Kind, config)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create action", "error", err)
		tracing.SetError(span, err)

		result.Status = models.ResultFailed
		result.Error = err.Error()

		return result
	}

	output, err := action.Execute(ctx, execCtx, logger)
	if err != nil {
		logger.ErrorContext(ctx, "Action failed", "error", err)
		tracing.SetError(span, err)

		result.Status = models.ResultFailed
		result.Error = err.Error()

		return result
	}

	result.Output = output

	return result
}
