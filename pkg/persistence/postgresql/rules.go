package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pulsecrm/pulse/pkg/models"
	"github.com/pulsecrm/pulse/pkg/persistence"
)

// RuleRepository handles workflow rule database operations.
type RuleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewRuleRepository(db *sql.DB, logger *slog.Logger) *RuleRepository {
	return &RuleRepository{db: db, logger: logger}
}

const ruleColumns = `
		id
	  , name
	  , description
	  , entity_type
	  , active
	  , trigger_kind
	  , condition
	  , actions
	  , owner
	  , created_at
	  , updated_at
`

// Rules returns all workflow rules ordered by ID.
func (r *RuleRepository) Rules(ctx context.Context) ([]*models.WorkflowRule, error) {
	query := `SELECT` + ruleColumns + `FROM workflow_rules ORDER BY id`

	return r.queryRules(ctx, query)
}

// ActiveRules returns active rules for the entity type ordered by ID.
func (r *RuleRepository) ActiveRules(ctx context.Context, entityType string) ([]*models.WorkflowRule, error) {
	query := `SELECT` + ruleColumns + `FROM workflow_rules WHERE active AND entity_type = $1 ORDER BY id`

	return r.queryRules(ctx, query, entityType)
}

func (r *RuleRepository) queryRules(ctx context.Context, query string, args ...any) ([]*models.WorkflowRule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow rules: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	rules := make([]*models.WorkflowRule, 0)

	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow rule: %w", err)
		}

		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflow rules: %w", err)
	}

	return rules, nil
}

// RuleByID returns a rule by its ID, or nil when it does not exist.
func (r *RuleRepository) RuleByID(ctx context.Context, id string) (*models.WorkflowRule, error) {
	query := `SELECT` + ruleColumns + `FROM workflow_rules WHERE id = $1`

	rule, err := scanRule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, persistence.NewStoreError("RuleByID", id, err)
	}

	return rule, nil
}

// SaveRule inserts or updates a workflow rule.
func (r *RuleRepository) SaveRule(ctx context.Context, rule *models.WorkflowRule) error {
	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}

	rule.UpdatedAt = now

	conditionJSON, err := marshalNullable(rule.Condition)
	if err != nil {
		return persistence.NewStoreError("SaveRule", rule.ID, err)
	}

	actionsJSON, err := json.Marshal(rule.Actions)
	if err != nil {
		return persistence.NewStoreError("SaveRule", rule.ID, err)
	}

	query := `
		INSERT INTO workflow_rules (id, name, description, entity_type, active, trigger_kind, condition, actions, owner, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name
		  , description = EXCLUDED.description
		  , entity_type = EXCLUDED.entity_type
		  , active = EXCLUDED.active
		  , trigger_kind = EXCLUDED.trigger_kind
		  , condition = EXCLUDED.condition
		  , actions = EXCLUDED.actions
		  , owner = EXCLUDED.owner
		  , updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		rule.ID, rule.Name, rule.Description, rule.EntityType, rule.Active,
		rule.Trigger, conditionJSON, actionsJSON, rule.Owner,
		rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return persistence.NewStoreError("SaveRule", rule.ID, err)
	}

	return nil
}

// DeleteRule removes a workflow rule.
func (r *RuleRepository) DeleteRule(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM workflow_rules WHERE id = $1", id)
	if err != nil {
		return persistence.NewStoreError("DeleteRule", id, err)
	}

	return nil
}

func scanRule(row interface{ Scan(...any) error }) (*models.WorkflowRule, error) {
	var (
		rule          models.WorkflowRule
		owner         sql.NullString
		conditionJSON []byte
		actionsJSON   []byte
	)

	err := row.Scan(
		&rule.ID, &rule.Name, &rule.Description, &rule.EntityType, &rule.Active,
		&rule.Trigger, &conditionJSON, &actionsJSON, &owner,
		&rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.Owner = owner.String

	if len(conditionJSON) > 0 {
		if err := json.Unmarshal(conditionJSON, &rule.Condition); err != nil {
			return nil, fmt.Errorf("failed to unmarshal condition: %w", err)
		}
	}

	if err := json.Unmarshal(actionsJSON, &rule.Actions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal actions: %w", err)
	}

	return &rule, nil
}

// marshalNullable marshals v, returning nil so the column stays NULL when
// v is a nil pointer.
func marshalNullable(v *models.Expression) ([]byte, error) {
	if v == nil {
		return nil, nil
	}

	return json.Marshal(v)
}
