package web

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/pulsecrm/pulse/pkg/approval"
	"github.com/pulsecrm/pulse/pkg/eventbus"
	"github.com/pulsecrm/pulse/pkg/events"
	"github.com/pulsecrm/pulse/pkg/models"
	"github.com/pulsecrm/pulse/pkg/persistence"
	"github.com/pulsecrm/pulse/pkg/registry"
	"github.com/pulsecrm/pulse/pkg/workflow"
)

type APIHandlers struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	entities    *models.EntityRegistry
	validator   *validator.Validate
	workflows   *workflow.Engine
	approvals   *approval.Engine
	bus         eventbus.EventPublisher
	logger      *slog.Logger
}

func NewAPIHandlers(
	p persistence.Persistence,
	reg *registry.Registry,
	entities *models.EntityRegistry,
	validate *validator.Validate,
	workflows *workflow.Engine,
	approvals *approval.Engine,
	bus eventbus.EventPublisher,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		persistence: p,
		registry:    reg,
		entities:    entities,
		validator:   validate,
		workflows:   workflows,
		approvals:   approvals,
		bus:         bus,
		logger:      logger,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()

	repositoryCheck := "ok"
	repOk := true

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		repositoryCheck = err.Error()
		repOk = false
	}

	status := "unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// Workflow rules

func (h *APIHandlers) GetRules(c fiber.Ctx) error {
	rules, err := h.persistence.Rules().Rules(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(rules)
}

func (h *APIHandlers) GetRule(c fiber.Ctx) error {
	rule, err := h.persistence.Rules().RuleByID(c.Context(), c.Params("id"))
	if err != nil {
		return internalError(c, err)
	}

	if rule == nil {
		return notFound(c, "workflow rule not found")
	}

	return c.JSON(rule)
}

func (h *APIHandlers) CreateRule(c fiber.Ctx) error {
	var req SaveRuleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	rule, err := h.buildRule(uuid.New().String(), req)
	if err != nil {
		return handleDomainError(c, err)
	}

	if err := h.persistence.Rules().SaveRule(c.Context(), rule); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(rule)
}

func (h *APIHandlers) UpdateRule(c fiber.Ctx) error {
	id := c.Params("id")

	existing, err := h.persistence.Rules().RuleByID(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	if existing == nil {
		return notFound(c, "workflow rule not found")
	}

	var req SaveRuleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	rule, err := h.buildRule(id, req)
	if err != nil {
		return handleDomainError(c, err)
	}

	rule.CreatedAt = existing.CreatedAt

	if err := h.persistence.Rules().SaveRule(c.Context(), rule); err != nil {
		return internalError(c, err)
	}

	return c.JSON(rule)
}

func (h *APIHandlers) DeleteRule(c fiber.Ctx) error {
	if err := h.persistence.Rules().DeleteRule(c.Context(), c.Params("id")); err != nil {
		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// buildRule validates the condition tree, entity type, and every action
// configuration before anything is stored. Authoring errors surface here,
// not at trigger time.
func (h *APIHandlers) buildRule(id string, req SaveRuleRequest) (*models.WorkflowRule, error) {
	if _, err := h.entities.Schema(req.EntityType); err != nil {
		return nil, err
	}

	condition, err := models.ParseExpression(req.Condition)
	if err != nil {
		return nil, err
	}

	actions := buildActions(req.Actions)
	if err := h.registry.ValidateActions(actions); err != nil {
		return nil, err
	}

	return &models.WorkflowRule{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		EntityType:  req.EntityType,
		Active:      req.Active,
		Trigger:     models.TriggerKind(req.Trigger),
		Condition:   condition,
		Actions:     actions,
		Owner:       req.Owner,
	}, nil
}

func buildActions(requests []ActionRequest) []models.WorkflowAction {
	actions := make([]models.WorkflowAction, 0, len(requests))

	for _, item := range requests {
		actionID := item.ID
		if actionID == "" {
			actionID = uuid.New().String()
		}

		actions = append(actions, models.WorkflowAction{
			ID:            actionID,
			Name:          item.Name,
			Kind:          models.ActionKind(item.Kind),
			Configuration: item.Configuration,
			Order:         item.Order,
		})
	}

	return actions
}

// Approval processes

func (h *APIHandlers) GetProcesses(c fiber.Ctx) error {
	processes, err := h.persistence.Approvals().Processes(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(processes)
}

func (h *APIHandlers) GetProcess(c fiber.Ctx) error {
	process, err := h.persistence.Approvals().ProcessByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(process)
}

func (h *APIHandlers) CreateProcess(c fiber.Ctx) error {
	var req SaveProcessRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	process, err := h.buildProcess(uuid.New().String(), req)
	if err != nil {
		return handleDomainError(c, err)
	}

	if err := h.persistence.Approvals().SaveProcess(c.Context(), process); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(process)
}

func (h *APIHandlers) UpdateProcess(c fiber.Ctx) error {
	id := c.Params("id")

	existing, err := h.persistence.Approvals().ProcessByID(c.Context(), id)
	if err != nil {
		return handleDomainError(c, err)
	}

	var req SaveProcessRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	process, err := h.buildProcess(id, req)
	if err != nil {
		return handleDomainError(c, err)
	}

	process.CreatedAt = existing.CreatedAt

	if err := h.persistence.Approvals().SaveProcess(c.Context(), process); err != nil {
		return internalError(c, err)
	}

	return c.JSON(process)
}

func (h *APIHandlers) DeleteProcess(c fiber.Ctx) error {
	if err := h.persistence.Approvals().DeleteProcess(c.Context(), c.Params("id")); err != nil {
		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) buildProcess(id string, req SaveProcessRequest) (*models.ApprovalProcess, error) {
	if _, err := h.entities.Schema(req.EntityType); err != nil {
		return nil, err
	}

	criteria, err := models.ParseExpression(req.EntryCriteria)
	if err != nil {
		return nil, err
	}

	steps := make([]models.ApprovalStep, 0, len(req.Steps))

	for _, item := range req.Steps {
		step := models.ApprovalStep{
			ID:         uuid.New().String(),
			ProcessID:  id,
			Name:       item.Name,
			StepNumber: item.StepNumber,
			Policy:     models.VotePolicy(item.Policy),
			Approvers:  item.Approvers,
		}

		if item.RejectBehavior != nil {
			step.RejectBehavior = models.RejectBehavior{
				Kind:       models.RejectBehaviorKind(item.RejectBehavior.Kind),
				StepNumber: item.RejectBehavior.StepNumber,
			}
		}

		step.ApprovalActions = buildActions(item.ApprovalActions)
		if err := h.registry.ValidateActions(step.ApprovalActions); err != nil {
			return nil, err
		}

		step.RejectionActions = buildActions(item.RejectionActions)
		if err := h.registry.ValidateActions(step.RejectionActions); err != nil {
			return nil, err
		}

		steps = append(steps, step)
	}

	process := &models.ApprovalProcess{
		ID:            id,
		Name:          req.Name,
		Description:   req.Description,
		EntityType:    req.EntityType,
		Active:        req.Active,
		EntryCriteria: criteria,
		Steps:         steps,
		Owner:         req.Owner,
	}

	process.SortSteps()

	return process, nil
}

// Records and lifecycle events

func (h *APIHandlers) CreateRecord(c fiber.Ctx) error {
	var req CreateRecordRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	record, err := h.entities.NewRecord(req.EntityType, 0, req.Owner, req.Fields)
	if err != nil {
		return handleDomainError(c, err)
	}

	id, err := h.persistence.Records().CreateRecord(c.Context(), record)
	if err != nil {
		return handleDomainError(c, err)
	}

	results := h.workflows.OnRecordEvent(c.Context(), record, models.EventCreated, req.Owner)
	h.publishRecordChanged(c, req.EntityType, id, models.EventCreated, req.Owner, results)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"entity_type": req.EntityType,
		"id":          id,
		"results":     results,
	})
}

// RecordEvent applies any field changes carried on the event, then runs
// workflow evaluation for the record.
func (h *APIHandlers) RecordEvent(c fiber.Ctx) error {
	entityType := c.Params("entityType")

	recordID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return badRequest(c, "Record ID must be an integer")
	}

	var req RecordEventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	record, err := h.persistence.Records().Record(c.Context(), entityType, recordID)
	if err != nil {
		return handleDomainError(c, err)
	}

	if len(req.Fields) > 0 {
		if err := h.persistence.Records().UpdateFields(c.Context(), record, req.Fields); err != nil {
			return handleDomainError(c, err)
		}
	}

	event := models.EventKind(req.Event)

	results := h.workflows.OnRecordEvent(c.Context(), record, event, req.Actor)
	h.publishRecordChanged(c, entityType, recordID, event, req.Actor, results)

	return c.JSON(fiber.Map{"results": results})
}

func (h *APIHandlers) GetRecord(c fiber.Ctx) error {
	recordID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return badRequest(c, "Record ID must be an integer")
	}

	record, err := h.persistence.Records().Record(c.Context(), c.Params("entityType"), recordID)
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(fiber.Map{
		"entity_type": record.EntityType(),
		"id":          record.RecordID(),
		"owner":       record.OwnerID(),
		"fields":      record.Fields(),
	})
}

func (h *APIHandlers) publishRecordChanged(c fiber.Ctx, entityType string, recordID int64, event models.EventKind, actor string, results []models.ExecutionResult) {
	if h.bus == nil {
		return
	}

	change := events.NewRecordChanged(entityType, recordID, event, actor, results)

	if err := h.bus.Publish(c.Context(), entityType+"-"+strconv.FormatInt(recordID, 10), change); err != nil {
		h.logger.Error("Failed to publish record change", "error", err)
	}
}

// Approval requests

func (h *APIHandlers) SubmitApproval(c fiber.Ctx) error {
	var req SubmitApprovalRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	request, err := h.approvals.Submit(c.Context(), req.ProcessID, req.EntityType, req.RecordID, req.Submitter, req.Comments)
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(request)
}

func (h *APIHandlers) GetApproval(c fiber.Ctx) error {
	request, err := h.persistence.Approvals().RequestByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(request)
}

func (h *APIHandlers) CastVote(c fiber.Ctx) error {
	var req VoteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	request, err := h.approvals.CastVote(c.Context(), c.Params("id"), req.Approver, models.Decision(req.Decision), req.Comment)
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(request)
}

func (h *APIHandlers) RecallApproval(c fiber.Ctx) error {
	var req RecallRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	request, err := h.approvals.Recall(c.Context(), c.Params("id"), req.Actor)
	if err != nil {
		return handleDomainError(c, err)
	}

	return c.JSON(request)
}
