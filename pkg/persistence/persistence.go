// Package persistence provides the data storage abstraction for workflow
// rules, approval processes, and CRM records.
package persistence

import (
	"context"

	"github.com/pulsecrm/pulse/pkg/models"
	"github.com/pulsecrm/pulse/pkg/protocol"
)

// Persistence aggregates the repositories one storage backend provides.
type Persistence interface {
	Rules() RuleRepository
	Approvals() ApprovalRepository
	Records() protocol.RecordStore

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// RuleRepository stores workflow rules and their action sequences.
type RuleRepository interface {
	Rules(ctx context.Context) ([]*models.WorkflowRule, error)
	RuleByID(ctx context.Context, id string) (*models.WorkflowRule, error)

	// ActiveRules returns active rules for the entity type ordered by rule
	// ID, so evaluation order across rules is deterministic.
	ActiveRules(ctx context.Context, entityType string) ([]*models.WorkflowRule, error)

	SaveRule(ctx context.Context, rule *models.WorkflowRule) error
	DeleteRule(ctx context.Context, id string) error
}

// ApprovalRepository stores approval processes and requests.
type ApprovalRepository interface {
	Processes(ctx context.Context) ([]*models.ApprovalProcess, error)
	ProcessByID(ctx context.Context, id string) (*models.ApprovalProcess, error)
	SaveProcess(ctx context.Context, process *models.ApprovalProcess) error
	DeleteProcess(ctx context.Context, id string) error

	RequestByID(ctx context.Context, id string) (*models.ApprovalRequest, error)

	// PendingRequest returns the pending request for (process, record), or
	// nil when none exists. Backends enforce at most one.
	PendingRequest(ctx context.Context, processID, entityType string, recordID int64) (*models.ApprovalRequest, error)

	// SaveRequest inserts or updates a request. Inserting a second pending
	// request for the same (process, record) fails with
	// ErrDuplicatePendingRequest.
	SaveRequest(ctx context.Context, request *models.ApprovalRequest) error
}
