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
	"sync"
	"time"

	"github.com/pulsecrm/pulse/pkg/models"
	"github.com/pulsecrm/pulse/pkg/persistence"
)

// ApprovalRepository stores approval processes and requests as JSON files
// under <root>/processes and <root>/requests. A process-level mutex stands
// in for the partial unique index a database backend uses to enforce the
// single-pending-request invariant.
type ApprovalRepository struct {
	root string
	mu   sync.Mutex
}

func NewApprovalRepository(root string) *ApprovalRepository {
	return &ApprovalRepository{root: root}
}

func (ar *ApprovalRepository) processDir() string {
	return path.Join(ar.root, "processes")
}

func (ar *ApprovalRepository) requestDir() string {
	return path.Join(ar.root, "requests")
}

// Processes returns every stored approval process ordered by ID.
func (ar *ApprovalRepository) Processes(ctx context.Context) ([]*models.ApprovalProcess, error) {
	jsonFiles, err := fs.Glob(os.DirFS(ar.processDir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list process files: %w", err)
	}

	processes := make([]*models.ApprovalProcess, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		process, err := ar.ProcessByID(ctx, file[:len(file)-5])
		if err != nil {
			if persistence.IsProcessNotFound(err) {
				continue
			}

			return nil, err
		}

		processes = append(processes, process)
	}

	sort.Slice(processes, func(i, j int) bool { return processes[i].ID < processes[j].ID })

	return processes, nil
}

// ProcessByID retrieves an approval process by its ID.
func (ar *ApprovalRepository) ProcessByID(_ context.Context, id string) (*models.ApprovalProcess, error) {
	filePath := filepath.Clean(path.Join(ar.processDir(), id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewStoreError("ProcessByID", id, persistence.ErrProcessNotFound)
		}

		return nil, persistence.NewStoreError("ProcessByID", id, err)
	}

	var process models.ApprovalProcess

	if err := json.Unmarshal(body, &process); err != nil {
		return nil, persistence.NewStoreError("ProcessByID", id, err)
	}

	return &process, nil
}

// SaveProcess inserts or updates an approval process.
func (ar *ApprovalRepository) SaveProcess(_ context.Context, process *models.ApprovalProcess) error {
	if err := os.MkdirAll(ar.processDir(), 0750); err != nil {
		return persistence.NewStoreError("SaveProcess", process.ID, err)
	}

	now := time.Now().UTC()
	if process.CreatedAt.IsZero() {
		process.CreatedAt = now
	}

	process.UpdatedAt = now

	data, err := json.MarshalIndent(process, "", "  ")
	if err != nil {
		return persistence.NewStoreError("SaveProcess", process.ID, err)
	}

	return os.WriteFile(path.Join(ar.processDir(), process.ID+".json"), data, 0600)
}

// DeleteProcess removes an approval process. Deleting a missing process is
// not an error.
func (ar *ApprovalRepository) DeleteProcess(_ context.Context, id string) error {
	err := os.Remove(path.Join(ar.processDir(), id+".json"))
	if err != nil && os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return persistence.NewStoreError("DeleteProcess", id, err)
	}

	return nil
}

// RequestByID retrieves an approval request by its ID.
func (ar *ApprovalRepository) RequestByID(_ context.Context, id string) (*models.ApprovalRequest, error) {
	filePath := filepath.Clean(path.Join(ar.requestDir(), id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewStoreError("RequestByID", id, persistence.ErrRequestNotFound)
		}

		return nil, persistence.NewStoreError("RequestByID", id, err)
	}

	var request models.ApprovalRequest

	if err := json.Unmarshal(body, &request); err != nil {
		return nil, persistence.NewStoreError("RequestByID", id, err)
	}

	return &request, nil
}

// PendingRequest returns the pending request for (process, record), or nil
// when none exists.
func (ar *ApprovalRepository) PendingRequest(ctx context.Context, processID, entityType string, recordID int64) (*models.ApprovalRequest, error) {
	requests, err := ar.allRequests(ctx)
	if err != nil {
		return nil, err
	}

	for _, request := range requests {
		if request.ProcessID == processID && request.EntityType == entityType &&
			request.RecordID == recordID && request.Status == models.StatusPending {
			return request, nil
		}
	}

	return nil, nil
}

// SaveRequest inserts or updates an approval request, enforcing at most
// one pending request per (process, record).
func (ar *ApprovalRepository) SaveRequest(ctx context.Context, request *models.ApprovalRequest) error {
	ar.mu.Lock()
	defer ar.mu.Unlock()

	if request.Status == models.StatusPending {
		existing, err := ar.PendingRequest(ctx, request.ProcessID, request.EntityType, request.RecordID)
		if err != nil {
			return err
		}

		if existing != nil && existing.ID != request.ID {
			return persistence.NewStoreError("SaveRequest", request.ID, persistence.ErrDuplicatePendingRequest)
		}
	}

	if err := os.MkdirAll(ar.requestDir(), 0750); err != nil {
		return persistence.NewStoreError("SaveRequest", request.ID, err)
	}

	data, err := json.MarshalIndent(request, "", "  ")
	if err != nil {
		return persistence.NewStoreError("SaveRequest", request.ID, err)
	}

	return os.WriteFile(path.Join(ar.requestDir(), request.ID+".json"), data, 0600)
}

func (ar *ApprovalRepository) allRequests(ctx context.Context) ([]*models.ApprovalRequest, error) {
	jsonFiles, err := fs.Glob(os.DirFS(ar.requestDir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list request files: %w", err)
	}

	requests := make([]*models.ApprovalRequest, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		request, err := ar.RequestByID(ctx, file[:len(file)-5])
		if err != nil {
			if persistence.IsRequestNotFound(err) {
				continue
			}

			return nil, err
		}

		requests = append(requests, request)
	}

	return requests, nil
}
