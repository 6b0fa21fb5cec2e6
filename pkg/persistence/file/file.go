// Package file provides file-based persistence for workflow rules,
// approval processes, and CRM records. Intended for development and small
// single-instance deployments.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/pulsecrm/pulse/pkg/models"
	"github.com/pulsecrm/pulse/pkg/persistence"
	"github.com/pulsecrm/pulse/pkg/protocol"
)

// Persistence implements the persistence.Persistence interface on top of
// a directory of JSON files.
type Persistence struct {
	root      string
	rules     *RuleRepository
	approvals *ApprovalRepository
	records   *RecordStore
}

// NewPersistence creates a file persistence rooted at the given directory.
// A "file://" prefix on the root is stripped.
func NewPersistence(root string, entities *models.EntityRegistry) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:      cleanRoot,
		rules:     NewRuleRepository(cleanRoot),
		approvals: NewApprovalRepository(cleanRoot),
		records:   NewRecordStore(cleanRoot, entities),
	}
}

func (fp *Persistence) Rules() persistence.RuleRepository { return fp.rules }

func (fp *Persistence) Approvals() persistence.ApprovalRepository { return fp.approvals }

func (fp *Persistence) Records() protocol.RecordStore { return fp.records }

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. For file persistence there is
// nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}
