package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/pulsecrm/pulse/pkg/models"
	"github.com/pulsecrm/pulse/pkg/persistence"
)

// RuleRepository stores workflow rules as one JSON file per rule under
// <root>/rules.
type RuleRepository struct {
	root string
}

func NewRuleRepository(root string) *RuleRepository {
	return &RuleRepository{root: root}
}

func (rr *RuleRepository) dir() string {
	return path.Join(rr.root, "rules")
}

// Rules returns every stored rule ordered by ID.
func (rr *RuleRepository) Rules(ctx context.Context) ([]*models.WorkflowRule, error) {
	jsonFiles, err := fs.Glob(os.DirFS(rr.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list rule files: %w", err)
	}

	rules := make([]*models.WorkflowRule, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		ruleID := file[:len(file)-5]

		rule, err := rr.RuleByID(ctx, ruleID)
		if err != nil {
			return nil, err
		}

		if rule != nil {
			rules = append(rules, rule)
		}
	}

	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })

	return rules, nil
}

// RuleByID retrieves a rule by its ID, or nil when it does not exist.
func (rr *RuleRepository) RuleByID(_ context.Context, id string) (*models.WorkflowRule, error) {
	filePath := filepath.Clean(path.Join(rr.dir(), id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, persistence.NewStoreError("RuleByID", id, err)
	}

	var rule models.WorkflowRule

	if err := json.Unmarshal(body, &rule); err != nil {
		return nil, persistence.NewStoreError("RuleByID", id, err)
	}

	return &rule, nil
}

// ActiveRules returns active rules for the entity type ordered by ID.
func (rr *RuleRepository) ActiveRules(ctx context.Context, entityType string) ([]*models.WorkflowRule, error) {
	all, err := rr.Rules(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.WorkflowRule, 0)

	for _, rule := range all {
		if rule.Active && rule.EntityType == entityType {
			matched = append(matched, rule)
		}
	}

	return matched, nil
}

// SaveRule inserts or updates a rule.
func (rr *RuleRepository) SaveRule(_ context.Context, rule *models.WorkflowRule) error {
	if err := os.MkdirAll(rr.dir(), 0750); err != nil {
		return persistence.NewStoreError("SaveRule", rule.ID, err)
	}

	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}

	rule.UpdatedAt = now

	data, err := json.MarshalIndent(rule, "", "  ")
	if err != nil {
		return persistence.NewStoreError("SaveRule", rule.ID, err)
	}

	return os.WriteFile(path.Join(rr.dir(), rule.ID+".json"), data, 0600)
}

// DeleteRule removes a rule. Deleting a missing rule is not an error.
func (rr *RuleRepository) DeleteRule(_ context.Context, id string) error {
	err := os.Remove(path.Join(rr.dir(), id+".json"))
	if err != nil && os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return persistence.NewStoreError("DeleteRule", id, err)
	}

	return nil
}
