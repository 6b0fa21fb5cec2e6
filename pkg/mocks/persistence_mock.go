package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pulsecrm/pulse/pkg/models"
)

// MockRuleRepository is a mock implementation of the
// persistence.RuleRepository interface.
type MockRuleRepository struct {
	mock.Mock
}

func (m *MockRuleRepository) Rules(ctx context.Context) ([]*models.WorkflowRule, error) {
	args := m.Called(ctx)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.WorkflowRule), args.Error(1)
}

func (m *MockRuleRepository) RuleByID(ctx context.Context, id string) (*models.WorkflowRule, error) {
	args := m.Called(ctx, id)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowRule), args.Error(1)
}

func (m *MockRuleRepository) ActiveRules(ctx context.Context, entityType string) ([]*models.WorkflowRule, error) {
	args := m.Called(ctx, entityType)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.WorkflowRule), args.Error(1)
}

func (m *MockRuleRepository) SaveRule(ctx context.Context, rule *models.WorkflowRule) error {
	args := m.Called(ctx, rule)

	return args.Error(0)
}

func (m *MockRuleRepository) DeleteRule(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockApprovalRepository is a mock implementation of the
// persistence.ApprovalRepository interface.
type MockApprovalRepository struct {
	mock.Mock
}

func (m *MockApprovalRepository) Processes(ctx context.Context) ([]*models.ApprovalProcess, error) {
	args := m.Called(ctx)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.ApprovalProcess), args.Error(1)
}

func (m *MockApprovalRepository) ProcessByID(ctx context.Context, id string) (*models.ApprovalProcess, error) {
	args := m.Called(ctx, id)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ApprovalProcess), args.Error(1)
}

func (m *MockApprovalRepository) SaveProcess(ctx context.Context, process *models.ApprovalProcess) error {
	args := m.Called(ctx, process)

	return args.Error(0)
}

func (m *MockApprovalRepository) DeleteProcess(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockApprovalRepository) RequestByID(ctx context.Context, id string) (*models.ApprovalRequest, error) {
	args := m.Called(ctx, id)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ApprovalRequest), args.Error(1)
}

func (m *MockApprovalRepository) PendingRequest(ctx context.Context, processID, entityType string, recordID int64) (*models.ApprovalRequest, error) {
	args := m.Called(ctx, processID, entityType, recordID)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ApprovalRequest), args.Error(1)
}

func (m *MockApprovalRepository) SaveRequest(ctx context.Context, request *models.ApprovalRequest) error {
	args := m.Called(ctx, request)

	return args.Error(0)
}
