package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/pulsecrm/pulse/pkg/models"
	"github.com/pulsecrm/pulse/pkg/persistence"
)

const uniqueViolation = "23505"

// ApprovalRepository handles approval process and request database
// operations. The single-pending-request invariant is enforced by a
// partial unique index, so concurrent submitters race safely.
type ApprovalRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewApprovalRepository(db *sql.DB, logger *slog.Logger) *ApprovalRepository {
	return &ApprovalRepository{db: db, logger: logger}
}

const processColumns = `
		id
	  , name
	  , description
	  , entity_type
	  , active
	  , entry_criteria
	  , steps
	  , owner
	  , created_at
	  , updated_at
`

// Processes returns all approval processes ordered by ID.
func (r *ApprovalRepository) Processes(ctx context.Context) ([]*models.ApprovalProcess, error) {
	query := `SELECT` + processColumns + `FROM approval_processes ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query approval processes: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	processes := make([]*models.ApprovalProcess, 0)

	for rows.Next() {
		process, err := scanProcess(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval process: %w", err)
		}

		processes = append(processes, process)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating approval processes: %w", err)
	}

	return processes, nil
}

// ProcessByID returns an approval process by its ID.
func (r *ApprovalRepository) ProcessByID(ctx context.Context, id string) (*models.ApprovalProcess, error) {
	query := `SELECT` + processColumns + `FROM approval_processes WHERE id = $1`

	process, err := scanProcess(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("ProcessByID", id, persistence.ErrProcessNotFound)
		}

		return nil, persistence.NewStoreError("ProcessByID", id, err)
	}

	return process, nil
}

// SaveProcess inserts or updates an approval process.
func (r *ApprovalRepository) SaveProcess(ctx context.Context, process *models.ApprovalProcess) error {
	now := time.Now().UTC()
	if process.CreatedAt.IsZero() {
		process.CreatedAt = now
	}

	process.UpdatedAt = now

	criteriaJSON, err := marshalNullable(process.EntryCriteria)
	if err != nil {
		return persistence.NewStoreError("SaveProcess", process.ID, err)
	}

	stepsJSON, err := json.Marshal(process.Steps)
	if err != nil {
		return persistence.NewStoreError("SaveProcess", process.ID, err)
	}

	query := `
		INSERT INTO approval_processes (id, name, description, entity_type, active, entry_criteria, steps, owner, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name
		  , description = EXCLUDED.description
		  , entity_type = EXCLUDED.entity_type
		  , active = EXCLUDED.active
		  , entry_criteria = EXCLUDED.entry_criteria
		  , steps = EXCLUDED.steps
		  , owner = EXCLUDED.owner
		  , updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		process.ID, process.Name, process.Description, process.EntityType, process.Active,
		criteriaJSON, stepsJSON, process.Owner, process.CreatedAt, process.UpdatedAt,
	)
	if err != nil {
		return persistence.NewStoreError("SaveProcess", process.ID, err)
	}

	return nil
}

// DeleteProcess removes an approval process.
func (r *ApprovalRepository) DeleteProcess(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM approval_processes WHERE id = $1", id)
	if err != nil {
		return persistence.NewStoreError("DeleteProcess", id, err)
	}

	return nil
}

const requestColumns = `
		id
	  , process_id
	  , step_number
	  , entity_type
	  , record_id
	  , status
	  , submitter
	  , comments
	  , votes
	  , created_at
	  , updated_at
`

// RequestByID returns an approval request by its ID.
func (r *ApprovalRepository) RequestByID(ctx context.Context, id string) (*models.ApprovalRequest, error) {
	query := `SELECT` + requestColumns + `FROM approval_requests WHERE id = $1`

	request, err := scanRequest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("RequestByID", id, persistence.ErrRequestNotFound)
		}

		return nil, persistence.NewStoreError("RequestByID", id, err)
	}

	return request, nil
}

// PendingRequest returns the pending request for (process, record), or nil
// when none exists.
func (r *ApprovalRepository) PendingRequest(ctx context.Context, processID, entityType string, recordID int64) (*models.ApprovalRequest, error) {
	query := `SELECT` + requestColumns + `
		FROM approval_requests
		WHERE process_id = $1 AND entity_type = $2 AND record_id = $3 AND status = 'pending'
	`

	request, err := scanRequest(r.db.QueryRowContext(ctx, query, processID, entityType, recordID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, persistence.NewStoreError("PendingRequest", processID, err)
	}

	return request, nil
}

// SaveRequest inserts or updates an approval request.
func (r *ApprovalRepository) SaveRequest(ctx context.Context, request *models.ApprovalRequest) error {
	votesJSON, err := json.Marshal(request.Votes)
	if err != nil {
		return persistence.NewStoreError("SaveRequest", request.ID, err)
	}

	query := `
		INSERT INTO approval_requests (id, process_id, step_number, entity_type, record_id, status, submitter, comments, votes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			step_number = EXCLUDED.step_number
		  , status = EXCLUDED.status
		  , comments = EXCLUDED.comments
		  , votes = EXCLUDED.votes
		  , updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		request.ID, request.ProcessID, request.StepNumber, request.EntityType, request.RecordID,
		request.Status, request.Submitter, request.Comments, votesJSON,
		request.CreatedAt, request.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return persistence.NewStoreError("SaveRequest", request.ID, persistence.ErrDuplicatePendingRequest)
		}

		return persistence.NewStoreError("SaveRequest", request.ID, err)
	}

	return nil
}

func scanProcess(row interface{ Scan(...any) error }) (*models.ApprovalProcess, error) {
	var (
		process      models.ApprovalProcess
		owner        sql.NullString
		criteriaJSON []byte
		stepsJSON    []byte
	)

	err := row.Scan(
		&process.ID, &process.Name, &process.Description, &process.EntityType, &process.Active,
		&criteriaJSON, &stepsJSON, &owner, &process.CreatedAt, &process.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	process.Owner = owner.String

	if len(criteriaJSON) > 0 {
		if err := json.Unmarshal(criteriaJSON, &process.EntryCriteria); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entry criteria: %w", err)
		}
	}

	if err := json.Unmarshal(stepsJSON, &process.Steps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
	}

	return &process, nil
}

func scanRequest(row interface{ Scan(...any) error }) (*models.ApprovalRequest, error) {
	var (
		request   models.ApprovalRequest
		votesJSON []byte
	)

	err := row.Scan(
		&request.ID, &request.ProcessID, &request.StepNumber, &request.EntityType, &request.RecordID,
		&request.Status, &request.Submitter, &request.Comments, &votesJSON,
		&request.CreatedAt, &request.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(votesJSON, &request.Votes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal votes: %w", err)
	}

	return &request, nil
}
