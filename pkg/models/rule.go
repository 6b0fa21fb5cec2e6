package models

import (
	"sort"
	"time"
)

// EventKind is a record lifecycle event, the trigger for workflow
// evaluation.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventEdited  EventKind = "edited"
)

// TriggerKind selects which lifecycle events a rule reacts to.
type TriggerKind string

const (
	TriggerOnCreate       TriggerKind = "on_create"
	TriggerOnCreateOrEdit TriggerKind = "on_create_or_edit"
	TriggerOnEveryEdit    TriggerKind = "on_every_edit"
)

// Matches reports whether the trigger fires for the given event kind.
func (t TriggerKind) Matches(event EventKind) bool {
	switch event {
	case EventCreated:
		return t == TriggerOnCreate || t == TriggerOnCreateOrEdit
	case EventEdited:
		return t == TriggerOnCreateOrEdit || t == TriggerOnEveryEdit
	default:
		return false
	}
}

// ActionKind discriminates workflow action configuration payloads.
type ActionKind string

const (
	ActionFieldUpdate     ActionKind = "field_update"
	ActionEmailAlert      ActionKind = "email_alert"
	ActionTaskCreation    ActionKind = "task_creation"
	ActionOutboundMessage ActionKind = "outbound_message"
)

// WorkflowRule reacts to record lifecycle events and fires a sequence of
// actions. Inactive rules never fire. Rules are created and edited through
// configuration and never mutated by evaluation.
type WorkflowRule struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"        validate:"required,min=3"`
	Description string           `json:"description"`
	EntityType  string           `json:"entity_type" validate:"required"`
	Active      bool             `json:"active"`
	Trigger     TriggerKind      `json:"trigger"     validate:"required,oneof=on_create on_create_or_edit on_every_edit"`
	Condition   *Expression      `json:"condition,omitempty"`
	Actions     []WorkflowAction `json:"actions"     validate:"dive"`
	Owner       string           `json:"owner"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// WorkflowAction is one typed action belonging to a rule. Actions for a
// rule execute strictly in ascending Order; ties are broken by ID so
// execution stays deterministic even with duplicate order values.
type WorkflowAction struct {
	ID            string         `json:"id"`
	RuleID        string         `json:"rule_id,omitempty"`
	Name          string         `json:"name"`
	Kind          ActionKind     `json:"kind" validate:"required,oneof=field_update email_alert task_creation outbound_message"`
	Configuration map[string]any `json:"configuration"`
	Order         int            `json:"order"`
}

// SortActions orders actions by (Order, ID) in place.
func SortActions(actions []WorkflowAction) {
	sort.SliceStable(actions, func(i, j int) bool {
		if actions[i].Order != actions[j].Order {
			return actions[i].Order < actions[j].Order
		}

		return actions[i].ID < actions[j].ID
	})
}

// ExecutionResult is the per-action outcome returned to the caller that
// triggered the automation. Failures are accumulated here, never raised
// past the engine boundary.
type ExecutionResult struct {
	RuleID     string         `json:"rule_id,omitempty"`
	ProcessID  string         `json:"process_id,omitempty"`
	StepNumber int            `json:"step_number,omitempty"`
	ActionID   string         `json:"action_id"`
	ActionKind ActionKind     `json:"action_kind"`
	Status     ResultStatus   `json:"status"`
	Error      string         `json:"error,omitempty"`
	Output     map[string]any `json:"output,omitempty"`
}

// ResultStatus classifies an ExecutionResult.
type ResultStatus string

const (
	ResultSucceeded ResultStatus = "succeeded"
	ResultFailed    ResultStatus = "failed"
	ResultSkipped   ResultStatus = "skipped"
)
