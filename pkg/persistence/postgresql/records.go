package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pulsecrm/pulse/pkg/models"
	"github.com/pulsecrm/pulse/pkg/persistence"
)

// RecordStore handles CRM record database operations.
type RecordStore struct {
	db       *sql.DB
	logger   *slog.Logger
	entities *models.EntityRegistry
}

func NewRecordStore(db *sql.DB, logger *slog.Logger, entities *models.EntityRegistry) *RecordStore {
	return &RecordStore{db: db, logger: logger, entities: entities}
}

// Record loads one record and rehydrates it against the entity registry.
func (s *RecordStore) Record(ctx context.Context, entityType string, recordID int64) (models.FieldRecord, error) {
	key := fmt.Sprintf("%s/%d", entityType, recordID)
	query := `SELECT owner, fields FROM records WHERE entity_type = $1 AND id = $2`

	var (
		owner      sql.NullString
		fieldsJSON []byte
	)

	err := s.db.QueryRowContext(ctx, query, entityType, recordID).Scan(&owner, &fieldsJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("Record", key, persistence.ErrRecordNotFound)
		}

		return nil, persistence.NewStoreError("Record", key, err)
	}

	var fields map[string]any
	if err := json.Unmarshal(fieldsJSON, &fields); err != nil {
		return nil, persistence.NewStoreError("Record", key, err)
	}

	record, err := s.entities.NewRecord(entityType, recordID, owner.String, fields)
	if err != nil {
		return nil, persistence.NewStoreError("Record", key, err)
	}

	return record, nil
}

// UpdateFields applies the field changes to the record and persists it.
func (s *RecordStore) UpdateFields(ctx context.Context, record models.FieldRecord, fields map[string]any) error {
	for name, value := range fields {
		if err := record.SetField(name, value); err != nil {
			return err
		}
	}

	key := fmt.Sprintf("%s/%d", record.EntityType(), record.RecordID())

	fieldsJSON, err := json.Marshal(record.Fields())
	if err != nil {
		return persistence.NewStoreError("UpdateFields", key, err)
	}

	query := `
		UPDATE records SET fields = $3, updated_at = NOW()
		WHERE entity_type = $1 AND id = $2
	`

	result, err := s.db.ExecContext(ctx, query, record.EntityType(), record.RecordID(), fieldsJSON)
	if err != nil {
		return persistence.NewStoreError("UpdateFields", key, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewStoreError("UpdateFields", key, err)
	}

	if affected == 0 {
		return persistence.NewStoreError("UpdateFields", key, persistence.ErrRecordNotFound)
	}

	return nil
}

// CreateRecord persists a new record, assigning the next free ID per
// entity type when the record carries none.
func (s *RecordStore) CreateRecord(ctx context.Context, record models.FieldRecord) (int64, error) {
	fieldsJSON, err := json.Marshal(record.Fields())
	if err != nil {
		return 0, persistence.NewStoreError("CreateRecord", record.EntityType(), err)
	}

	var query string

	args := []any{record.EntityType(), record.OwnerID(), fieldsJSON}

	if record.RecordID() > 0 {
		query = `
			INSERT INTO records (entity_type, id, owner, fields)
			VALUES ($1, $4, $2, $3)
			RETURNING id
		`
		args = append(args, record.RecordID())
	} else {
		query = `
			INSERT INTO records (entity_type, id, owner, fields)
			SELECT $1, COALESCE(MAX(id), 0) + 1, $2, $3 FROM records WHERE entity_type = $1
			RETURNING id
		`
	}

	var id int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, persistence.NewStoreError("CreateRecord", record.EntityType(), err)
	}

	return id, nil
}
