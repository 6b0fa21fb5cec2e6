// Package postgresql provides PostgreSQL persistence for workflow rules,
// approval processes, and CRM records.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	// Registers the postgres driver.
	_ "github.com/lib/pq"

	"github.com/pulsecrm/pulse/pkg/models"
	"github.com/pulsecrm/pulse/pkg/persistence"
	"github.com/pulsecrm/pulse/pkg/persistence/sqlbase"
	"github.com/pulsecrm/pulse/pkg/protocol"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db        *sql.DB
	logger    *slog.Logger
	rules     *RuleRepository
	approvals *ApprovalRepository
	records   *RecordStore
}

// NewPersistence connects, runs migrations, and returns a ready
// persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string, entities *models.EntityRegistry) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	if err := database.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())
	if err := migrationManager.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:        database,
		logger:    logger,
		rules:     NewRuleRepository(database, logger),
		approvals: NewApprovalRepository(database, logger),
		records:   NewRecordStore(database, logger, entities),
	}, nil
}

func (p *Persistence) Rules() persistence.RuleRepository { return p.rules }

func (p *Persistence) Approvals() persistence.ApprovalRepository { return p.approvals }

func (p *Persistence) Records() protocol.RecordStore { return p.records }

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
