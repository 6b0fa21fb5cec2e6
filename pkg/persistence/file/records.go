package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/pulsecrm/pulse/pkg/models"
	"github.com/pulsecrm/pulse/pkg/persistence"
)

// recordDocument is the stored shape of a CRM record.
type recordDocument struct {
	EntityType string         `json:"entity_type"`
	ID         int64          `json:"id"`
	Owner      string         `json:"owner"`
	Fields     map[string]any `json:"fields"`
}

// RecordStore stores CRM records as <root>/records/<entity>/<id>.json.
type RecordStore struct {
	root     string
	entities *models.EntityRegistry
	mu       sync.Mutex
}

func NewRecordStore(root string, entities *models.EntityRegistry) *RecordStore {
	return &RecordStore{root: root, entities: entities}
}

func (rs *RecordStore) dir(entityType string) string {
	return path.Join(rs.root, "records", entityType)
}

// Record loads one record and rehydrates it against the entity registry.
func (rs *RecordStore) Record(_ context.Context, entityType string, recordID int64) (models.FieldRecord, error) {
	key := fmt.Sprintf("%s/%d", entityType, recordID)
	filePath := filepath.Clean(path.Join(rs.dir(entityType), strconv.FormatInt(recordID, 10)+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewStoreError("Record", key, persistence.ErrRecordNotFound)
		}

		return nil, persistence.NewStoreError("Record", key, err)
	}

	var doc recordDocument

	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, persistence.NewStoreError("Record", key, err)
	}

	record, err := rs.entities.NewRecord(doc.EntityType, doc.ID, doc.Owner, doc.Fields)
	if err != nil {
		return nil, persistence.NewStoreError("Record", key, err)
	}

	return record, nil
}

// UpdateFields applies the field changes to the record and persists it.
func (rs *RecordStore) UpdateFields(ctx context.Context, record models.FieldRecord, fields map[string]any) error {
	for name, value := range fields {
		if err := record.SetField(name, value); err != nil {
			return err
		}
	}

	return rs.write(record)
}

// CreateRecord persists a new record, assigning the next free ID when the
// record carries none.
func (rs *RecordStore) CreateRecord(_ context.Context, record models.FieldRecord) (int64, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	id := record.RecordID()
	if id == 0 {
		next, err := rs.nextID(record.EntityType())
		if err != nil {
			return 0, err
		}

		id = next
	}

	doc := recordDocument{
		EntityType: record.EntityType(),
		ID:         id,
		Owner:      record.OwnerID(),
		Fields:     record.Fields(),
	}

	if err := rs.writeDoc(doc); err != nil {
		return 0, err
	}

	return id, nil
}

func (rs *RecordStore) write(record models.FieldRecord) error {
	return rs.writeDoc(recordDocument{
		EntityType: record.EntityType(),
		ID:         record.RecordID(),
		Owner:      record.OwnerID(),
		Fields:     record.Fields(),
	})
}

func (rs *RecordStore) writeDoc(doc recordDocument) error {
	key := fmt.Sprintf("%s/%d", doc.EntityType, doc.ID)

	if err := os.MkdirAll(rs.dir(doc.EntityType), 0750); err != nil {
		return persistence.NewStoreError("SaveRecord", key, err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return persistence.NewStoreError("SaveRecord", key, err)
	}

	filePath := path.Join(rs.dir(doc.EntityType), strconv.FormatInt(doc.ID, 10)+".json")

	return os.WriteFile(filePath, data, 0600)
}

func (rs *RecordStore) nextID(entityType string) (int64, error) {
	jsonFiles, err := fs.Glob(os.DirFS(rs.dir(entityType)), "*.json")
	if err != nil {
		return 0, fmt.Errorf("failed to list record files: %w", err)
	}

	var maxID int64

	for _, file := range jsonFiles {
		id, err := strconv.ParseInt(file[:len(file)-5], 10, 64)
		if err != nil {
			continue
		}

		if id > maxID {
			maxID = id
		}
	}

	return maxID + 1, nil
}
