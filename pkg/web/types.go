// Package web provides the HTTP handlers and request types for the rule
// and approval management API.
package web

// SaveRuleRequest is the request body for creating or replacing a
// workflow rule.
type SaveRuleRequest struct {
	Name        string          `json:"name"        validate:"required,min=3"`
	Description string          `json:"description"`
	EntityType  string          `json:"entity_type" validate:"required"`
	Active      bool            `json:"active"`
	Trigger     string          `json:"trigger"     validate:"required,oneof=on_create on_create_or_edit on_every_edit"`
	Condition   map[string]any  `json:"condition,omitempty"`
	Actions     []ActionRequest `json:"actions"     validate:"dive"`
	Owner       string          `json:"owner"`
}

// ActionRequest is one action in a rule or approval step body.
type ActionRequest struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Kind          string         `json:"kind" validate:"required,oneof=field_update email_alert task_creation outbound_message"`
	Configuration map[string]any `json:"configuration"`
	Order         int            `json:"order"`
}

// SaveProcessRequest is the request body for creating or replacing an
// approval process.
type SaveProcessRequest struct {
	Name          string         `json:"name"           validate:"required,min=3"`
	Description   string         `json:"description"`
	EntityType    string         `json:"entity_type"    validate:"required"`
	Active        bool           `json:"active"`
	EntryCriteria map[string]any `json:"entry_criteria,omitempty"`
	Steps         []StepRequest  `json:"steps"          validate:"required,min=1,dive"`
	Owner         string         `json:"owner"`
}

// StepRequest is one approval step in a process body.
type StepRequest struct {
	Name             string                `json:"name"`
	StepNumber       int                   `json:"step_number" validate:"min=1"`
	Policy           string                `json:"policy"      validate:"required,oneof=unanimous first_response"`
	Approvers        []string              `json:"approvers"   validate:"required,min=1"`
	RejectBehavior   *RejectBehaviorRequest `json:"reject_behavior,omitempty"`
	ApprovalActions  []ActionRequest       `json:"approval_actions"  validate:"dive"`
	RejectionActions []ActionRequest       `json:"rejection_actions" validate:"dive"`
}

// RejectBehaviorRequest configures a step's rejection handling.
type RejectBehaviorRequest struct {
	Kind       string `json:"kind"        validate:"required,oneof=terminate reassign"`
	StepNumber int    `json:"step_number"`
}

// CreateRecordRequest is the request body for creating a CRM record.
type CreateRecordRequest struct {
	EntityType string         `json:"entity_type" validate:"required"`
	Owner      string         `json:"owner"`
	Fields     map[string]any `json:"fields"      validate:"required"`
}

// RecordEventRequest announces a record lifecycle event and triggers
// workflow evaluation.
type RecordEventRequest struct {
	Event  string         `json:"event"  validate:"required,oneof=created edited"`
	Actor  string         `json:"actor"`
	Fields map[string]any `json:"fields,omitempty"`
}

// SubmitApprovalRequest opens an approval request for a record.
type SubmitApprovalRequest struct {
	ProcessID  string `json:"process_id"  validate:"required"`
	EntityType string `json:"entity_type" validate:"required"`
	RecordID   int64  `json:"record_id"   validate:"required,min=1"`
	Submitter  string `json:"submitter"   validate:"required"`
	Comments   string `json:"comments"`
}

// VoteRequest casts one approver's decision on a request.
type VoteRequest struct {
	Approver string `json:"approver" validate:"required"`
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
	Comment  string `json:"comment"`
}

// RecallRequest withdraws a pending approval request.
type RecallRequest struct {
	Actor string `json:"actor" validate:"required"`
}
