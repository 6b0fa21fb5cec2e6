package models

import (
	"fmt"
	"sort"
	"time"
)

// VotePolicy determines how many approver votes resolve a step.
type VotePolicy string

const (
	// PolicyUnanimous approves only once every approver has voted approve.
	// A single reject resolves the step immediately; unanimity is required
	// only for approval, not for rejection.
	PolicyUnanimous VotePolicy = "unanimous"

	// PolicyFirstResponse lets the first vote received decide the step.
	PolicyFirstResponse VotePolicy = "first_response"
)

// Decision is a single approver's vote.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// RequestStatus is the approval request state machine's state. approved,
// rejected, and recalled are terminal.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
	StatusRecalled RequestStatus = "recalled"
)

// Terminal reports whether the status accepts no further transitions.
func (s RequestStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusRecalled
}

// RejectBehaviorKind selects what happens when a step resolves as reject.
type RejectBehaviorKind string

const (
	RejectTerminate RejectBehaviorKind = "terminate"
	RejectReassign  RejectBehaviorKind = "reassign"
)

// RejectBehavior configures a step's rejection handling. The zero value
// means terminate, the specified default when authors leave it out.
type RejectBehavior struct {
	Kind       RejectBehaviorKind `json:"kind,omitempty"`
	StepNumber int                `json:"step_number,omitempty"`
}

// ApprovalProcess routes a record through an ordered sequence of approver
// gates. Inactive processes reject submissions.
type ApprovalProcess struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"         validate:"required,min=3"`
	Description   string         `json:"description"`
	EntityType    string         `json:"entity_type"  validate:"required"`
	Active        bool           `json:"active"`
	EntryCriteria *Expression    `json:"entry_criteria,omitempty"`
	Steps         []ApprovalStep `json:"steps"        validate:"required,min=1,dive"`
	Owner         string         `json:"owner"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// SortSteps orders the process steps by step number in place.
func (p *ApprovalProcess) SortSteps() {
	sort.SliceStable(p.Steps, func(i, j int) bool {
		return p.Steps[i].StepNumber < p.Steps[j].StepNumber
	})
}

// FirstStep returns the step with the lowest step number.
func (p *ApprovalProcess) FirstStep() (*ApprovalStep, error) {
	if len(p.Steps) == 0 {
		return nil, fmt.Errorf("process %q has no steps: %w", p.ID, ErrConfiguration)
	}

	first := &p.Steps[0]
	for i := range p.Steps {
		if p.Steps[i].StepNumber < first.StepNumber {
			first = &p.Steps[i]
		}
	}

	return first, nil
}

// Step returns the step with the given step number.
func (p *ApprovalProcess) Step(number int) (*ApprovalStep, error) {
	for i := range p.Steps {
		if p.Steps[i].StepNumber == number {
			return &p.Steps[i], nil
		}
	}

	return nil, fmt.Errorf("process %q has no step %d: %w", p.ID, number, ErrConfiguration)
}

// NextStep returns the step following the given step number, or nil when
// it was the last one.
func (p *ApprovalProcess) NextStep(number int) *ApprovalStep {
	var next *ApprovalStep

	for i := range p.Steps {
		step := &p.Steps[i]
		if step.StepNumber <= number {
			continue
		}

		if next == nil || step.StepNumber < next.StepNumber {
			next = step
		}
	}

	return next
}

// ApprovalStep is one gate in an approval process with its own approver
// set, vote policy, and accept/reject action lists.
type ApprovalStep struct {
	ID               string           `json:"id"`
	ProcessID        string           `json:"process_id,omitempty"`
	Name             string           `json:"name"`
	StepNumber       int              `json:"step_number" validate:"min=1"`
	Policy           VotePolicy       `json:"policy"      validate:"required,oneof=unanimous first_response"`
	Approvers        []string         `json:"approvers"   validate:"required,min=1"`
	RejectBehavior   RejectBehavior   `json:"reject_behavior"`
	ApprovalActions  []WorkflowAction `json:"approval_actions"`
	RejectionActions []WorkflowAction `json:"rejection_actions"`
}

// HasApprover reports whether the user is in the step's approver set.
func (s *ApprovalStep) HasApprover(user string) bool {
	for _, approver := range s.Approvers {
		if approver == user {
			return true
		}
	}

	return false
}

// ApprovalRequest tracks one record moving through a process. Exactly one
// pending request may exist per (process, record) pair at a time.
type ApprovalRequest struct {
	ID         string        `json:"id"`
	ProcessID  string        `json:"process_id"`
	StepNumber int           `json:"step_number"`
	EntityType string        `json:"entity_type"`
	RecordID   int64         `json:"record_id"`
	Status     RequestStatus `json:"status"`
	Submitter  string        `json:"submitter"`
	Comments   string        `json:"comments,omitempty"`

	// Votes accumulates the current step's votes under the unanimous
	// policy. Advancing or reassigning resets it; votes never carry over
	// across steps.
	Votes map[string]Decision `json:"votes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
