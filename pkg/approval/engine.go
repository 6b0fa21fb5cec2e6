// Package approval implements the multi-step approval engine: submission,
// voting, and recall of approval requests against configured processes.
package approval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/pulsecrm/pulse/pkg/locker"
	"github.com/pulsecrm/pulse/pkg/models"
	"github.com/pulsecrm/pulse/pkg/persistence"
	"github.com/pulsecrm/pulse/pkg/protocol"
	"github.com/pulsecrm/pulse/pkg/registry"
	"github.com/pulsecrm/pulse/pkg/workflow"
)

const lockTTL = 30 * time.Second

// Engine drives the approval request state machine. All transitions on a
// request serialize through the locker, so concurrent votes against a
// unanimous step tally correctly.
type Engine struct {
	approvals persistence.ApprovalRepository
	records   protocol.RecordStore
	runner    *workflow.Runner
	locks     locker.Locker
	clock     clockwork.Clock
	logger    *slog.Logger
	entities  *models.EntityRegistry

	mailer protocol.Mailer
	poster protocol.Poster
}

// Config wires the engine's collaborators.
type Config struct {
	Approvals persistence.ApprovalRepository
	Records   protocol.RecordStore
	Registry  *registry.Registry
	Locker    locker.Locker
	Entities  *models.EntityRegistry
	Clock     clockwork.Clock
	Mailer    protocol.Mailer
	Poster    protocol.Poster
	Logger    *slog.Logger
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

	locks := cfg.Locker
	if locks == nil {
		locks = locker.NewMemoryLocker()
	}

	return &Engine{
		approvals: cfg.Approvals,
		records:   cfg.Records,
		runner:    workflow.NewRunner(cfg.Registry, logger),
		locks:     locks,
		clock:     clock,
		logger:    logger.With("module", "approval_engine"),
		entities:  cfg.Entities,
		mailer:    cfg.Mailer,
		poster:    cfg.Poster,
	}
}

// Submit opens an approval request for the record against the process.
// The process must be active, its entry criteria must match the record,
// and no pending request may already exist for the (process, record)
// pair. The new request starts pending at the process's first step.
func (e *Engine) Submit(ctx context.Context, processID, entityType string, recordID int64, submitter, comments string) (*models.ApprovalRequest, error) {
	process, err := e.approvals.ProcessByID(ctx, processID)
	if err != nil {
		return nil, fmt.Errorf("loading process %q: %w", processID, err)
	}

	if !process.Active {
		return nil, fmt.Errorf("process %q is inactive: %w", processID, models.ErrState)
	}

	if process.EntityType != entityType {
		return nil, fmt.Errorf("process %q targets %s records, not %s: %w",
			processID, process.EntityType, entityType, models.ErrState)
	}

	record, err := e.records.Record(ctx, entityType, recordID)
	if err != nil {
		return nil, fmt.Errorf("loading %s record %d: %w", entityType, recordID, err)
	}

	matched, err := process.EntryCriteria.Evaluate(record)
	if err != nil {
		return nil, fmt.Errorf("entry criteria of process %q: %w", processID, err)
	}

	if !matched {
		return nil, fmt.Errorf("record %s/%d does not meet entry criteria of process %q: %w",
			entityType, recordID, processID, models.ErrState)
	}

	first, err := process.FirstStep()
	if err != nil {
		return nil, err
	}

	unlock, err := e.locks.Lock(ctx, submissionKey(processID, entityType, recordID), lockTTL)
	if err != nil {
		return nil, fmt.Errorf("locking submission for %s/%d: %w", entityType, recordID, err)
	}
	defer unlock()

	existing, err := e.approvals.PendingRequest(ctx, processID, entityType, recordID)
	if err != nil {
		return nil, fmt.Errorf("checking pending request for %s/%d: %w", entityType, recordID, err)
	}

	if existing != nil {
		return nil, fmt.Errorf("record %s/%d already has pending request %q: %w",
			entityType, recordID, existing.ID, models.ErrState)
	}

	now := e.clock.Now().UTC()

	request := &models.ApprovalRequest{
		ID:         uuid.New().String(),
		ProcessID:  processID,
		StepNumber: first.StepNumber,
		EntityType: entityType,
		RecordID:   recordID,
		Status:     models.StatusPending,
		Submitter:  submitter,
		Comments:   comments,
		Votes:      make(map[string]models.Decision),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := e.approvals.SaveRequest(ctx, request); err != nil {
		if persistence.IsDuplicatePendingRequest(err) {
			return nil, fmt.Errorf("record %s/%d already has a pending request: %w",
				entityType, recordID, models.ErrState)
		}

		return nil, fmt.Errorf("saving request: %w", err)
	}

	e.logger.InfoContext(ctx, "Approval request submitted",
		"request_id", request.ID,
		"process_id", processID,
		"entity_type", entityType,
		"record_id", recordID,
		"submitter", submitter,
	)

	return request, nil
}

// CastVote records one approver's decision on the request's current step
// and resolves the step when the vote policy is satisfied. Each approver
// votes at most once per step; votes reset when the request moves to
// another step.
func (e *Engine) CastVote(ctx context.Context, requestID, approver string, decision models.Decision, comment string) (*models.ApprovalRequest, error) {
	if decision != models.DecisionApprove && decision != models.DecisionReject {
		return nil, fmt.Errorf("unknown decision %q: %w", decision, models.ErrField)
	}

	unlock, err := e.locks.Lock(ctx, requestKey(requestID), lockTTL)
	if err != nil {
		return nil, fmt.Errorf("locking request %q: %w", requestID, err)
	}
	defer unlock()

	request, err := e.approvals.RequestByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("loading request %q: %w", requestID, err)
	}

	if request.Status.Terminal() {
		return nil, fmt.Errorf("request %q is %s and accepts no votes: %w",
			requestID, request.Status, models.ErrState)
	}

	process, err := e.approvals.ProcessByID(ctx, request.ProcessID)
	if err != nil {
		return nil, fmt.Errorf("loading process %q: %w", request.ProcessID, err)
	}

	step, err := process.Step(request.StepNumber)
	if err != nil {
		return nil, err
	}

	if !step.HasApprover(approver) {
		return nil, fmt.Errorf("user %q is not an approver of step %d: %w",
			approver, step.StepNumber, models.ErrAuthorization)
	}

	if _, voted := request.Votes[approver]; voted {
		return nil, fmt.Errorf("user %q already voted on step %d: %w",
			approver, step.StepNumber, models.ErrState)
	}

	if request.Votes == nil {
		request.Votes = make(map[string]models.Decision)
	}

	request.Votes[approver] = decision

	logger := e.logger.With(
		"request_id", requestID,
		"step", step.StepNumber,
		"approver", approver,
		"decision", decision,
	)

	switch {
	case decision == models.DecisionReject:
		// A single reject resolves the step regardless of policy.
		logger.InfoContext(ctx, "Step rejected")
		e.resolveReject(ctx, request, process, step)
	case step.Policy == models.PolicyFirstResponse || e.allApproved(request, step):
		logger.InfoContext(ctx, "Step approved")

		if err := e.resolveApprove(ctx, request, process, step); err != nil {
			return nil, err
		}
	default:
		logger.DebugContext(ctx, "Vote recorded, step still pending",
			"votes", len(request.Votes), "approvers", len(step.Approvers))
	}

	if comment != "" {
		request.Comments = comment
	}

	request.UpdatedAt = e.clock.Now().UTC()

	if err := e.approvals.SaveRequest(ctx, request); err != nil {
		return nil, fmt.Errorf("saving request: %w", err)
	}

	return request, nil
}

// Recall withdraws a pending request. Only the original submitter may
// recall, and recalled is terminal.
func (e *Engine) Recall(ctx context.Context, requestID, actor string) (*models.ApprovalRequest, error) {
	unlock, err := e.locks.Lock(ctx, requestKey(requestID), lockTTL)
	if err != nil {
		return nil, fmt.Errorf("locking request %q: %w", requestID, err)
	}
	defer unlock()

	request, err := e.approvals.RequestByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("loading request %q: %w", requestID, err)
	}

	if actor != request.Submitter {
		return nil, fmt.Errorf("user %q did not submit request %q: %w",
			actor, requestID, models.ErrAuthorization)
	}

	if request.Status.Terminal() {
		return nil, fmt.Errorf("request %q is %s and cannot be recalled: %w",
			requestID, request.Status, models.ErrState)
	}

	request.Status = models.StatusRecalled
	request.UpdatedAt = e.clock.Now().UTC()

	if err := e.approvals.SaveRequest(ctx, request); err != nil {
		return nil, fmt.Errorf("saving request: %w", err)
	}

	e.logger.InfoContext(ctx, "Approval request recalled",
		"request_id", requestID, "actor", actor)

	return request, nil
}

func (e *Engine) allApproved(request *models.ApprovalRequest, step *models.ApprovalStep) bool {
	for _, approver := range step.Approvers {
		if request.Votes[approver] != models.DecisionApprove {
			return false
		}
	}

	return true
}

func (e *Engine) resolveApprove(ctx context.Context, request *models.ApprovalRequest, process *models.ApprovalProcess, step *models.ApprovalStep) error {
	e.runStepActions(ctx, request, step.ApprovalActions)

	next := process.NextStep(step.StepNumber)
	if next == nil {
		request.Status = models.StatusApproved

		e.logger.InfoContext(ctx, "Approval request approved",
			"request_id", request.ID, "final_step", step.StepNumber)

		return nil
	}

	request.StepNumber = next.StepNumber
	request.Votes = make(map[string]models.Decision)

	e.logger.InfoContext(ctx, "Approval request advanced",
		"request_id", request.ID, "step", next.StepNumber)

	return nil
}

func (e *Engine) resolveReject(ctx context.Context, request *models.ApprovalRequest, process *models.ApprovalProcess, step *models.ApprovalStep) {
	e.runStepActions(ctx, request, step.RejectionActions)

	behavior := step.RejectBehavior
	if behavior.Kind != models.RejectReassign {
		request.Status = models.StatusRejected

		e.logger.InfoContext(ctx, "Approval request rejected",
			"request_id", request.ID, "step", step.StepNumber)

		return
	}

	target, err := process.Step(behavior.StepNumber)
	if err != nil {
		// A reassign target that no longer exists is an authoring error;
		// fall back to terminating so the request does not hang.
		e.logger.ErrorContext(ctx, "Reassign target step missing, terminating request",
			"request_id", request.ID, "target_step", behavior.StepNumber, "error", err)

		request.Status = models.StatusRejected

		return
	}

	request.StepNumber = target.StepNumber
	request.Votes = make(map[string]models.Decision)

	e.logger.InfoContext(ctx, "Approval request reassigned",
		"request_id", request.ID, "step", target.StepNumber)
}

// runStepActions fires a step's action list. Failures are recorded and
// logged but never block the state transition that triggered them.
func (e *Engine) runStepActions(ctx context.Context, request *models.ApprovalRequest, actions []models.WorkflowAction) {
	if len(actions) == 0 {
		return
	}

	record, err := e.records.Record(ctx, request.EntityType, request.RecordID)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to load record for step actions",
			"request_id", request.ID, "error", err)

		return
	}

	execCtx := protocol.ExecutionContext{
		Event:    models.EventEdited,
		Actor:    request.Submitter,
		Record:   record,
		Clock:    e.clock,
		Mailer:   e.mailer,
		Poster:   e.poster,
		Records:  e.records,
		Entities: e.entities,
	}

	results := e.runner.Run(ctx, actions, execCtx)
	for _, result := range results {
		if result.Status == models.ResultFailed {
			e.logger.WarnContext(ctx, "Step action failed",
				"request_id", request.ID,
				"action_id", result.ActionID,
				"error", result.Error,
			)
		}
	}
}

func submissionKey(processID, entityType string, recordID int64) string {
	return fmt.Sprintf("approval:submit:%s:%s:%d", processID, entityType, recordID)
}

func requestKey(requestID string) string {
	return "approval:request:" + requestID
}
