package approval

import (
	"context"
	"log/slog"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsecrm/pulse/pkg/actions/outbound"
	"github.com/pulsecrm/pulse/pkg/models"
	"github.com/pulsecrm/pulse/pkg/persistence"
	"github.com/pulsecrm/pulse/pkg/registry"
)

type fakeApprovals struct {
	processes map[string]*models.ApprovalProcess
	requests  map[string]*models.ApprovalRequest
}

func newFakeApprovals(processes ...*models.ApprovalProcess) *fakeApprovals {
	f := &fakeApprovals{
		processes: make(map[string]*models.ApprovalProcess),
		requests:  make(map[string]*models.ApprovalRequest),
	}

	for _, p := range processes {
		f.processes[p.ID] = p
	}

	return f
}

func (f *fakeApprovals) Processes(_ context.Context) ([]*models.ApprovalProcess, error) {
	out := make([]*models.ApprovalProcess, 0, len(f.processes))
	for _, p := range f.processes {
		out = append(out, p)
	}

	return out, nil
}

func (f *fakeApprovals) ProcessByID(_ context.Context, id string) (*models.ApprovalProcess, error) {
	p, ok := f.processes[id]
	if !ok {
		return nil, persistence.NewStoreError("ProcessByID", id, persistence.ErrProcessNotFound)
	}

	return p, nil
}

func (f *fakeApprovals) SaveProcess(_ context.Context, p *models.ApprovalProcess) error {
	f.processes[p.ID] = p
	return nil
}

func (f *fakeApprovals) DeleteProcess(_ context.Context, id string) error {
	delete(f.processes, id)
	return nil
}

func (f *fakeApprovals) RequestByID(_ context.Context, id string) (*models.ApprovalRequest, error) {
	r, ok := f.requests[id]
	if !ok {
		return nil, persistence.NewStoreError("RequestByID", id, persistence.ErrRequestNotFound)
	}

	clone := *r

	return &clone, nil
}

func (f *fakeApprovals) PendingRequest(_ context.Context, processID, entityType string, recordID int64) (*models.ApprovalRequest, error) {
	for _, r := range f.requests {
		if r.ProcessID == processID && r.EntityType == entityType && r.RecordID == recordID && r.Status == models.StatusPending {
			clone := *r
			return &clone, nil
		}
	}

	return nil, nil
}

func (f *fakeApprovals) SaveRequest(_ context.Context, request *models.ApprovalRequest) error {
	if request.Status == models.StatusPending {
		for _, r := range f.requests {
			if r.ID != request.ID && r.ProcessID == request.ProcessID &&
				r.EntityType == request.EntityType && r.RecordID == request.RecordID &&
				r.Status == models.StatusPending {
				return persistence.NewStoreError("SaveRequest", request.ID, persistence.ErrDuplicatePendingRequest)
			}
		}
	}

	clone := *request
	f.requests[request.ID] = &clone

	return nil
}

type recordingStore struct {
	records map[string]models.FieldRecord
}

func (s *recordingStore) Record(_ context.Context, entityType string, recordID int64) (models.FieldRecord, error) {
	key := entityType
	if r, ok := s.records[key]; ok && r.RecordID() == recordID {
		return r, nil
	}

	return nil, persistence.NewStoreError("Record", entityType, persistence.ErrRecordNotFound)
}

func (s *recordingStore) UpdateFields(_ context.Context, _ models.FieldRecord, _ map[string]any) error {
	return nil
}

func (s *recordingStore) CreateRecord(_ context.Context, _ models.FieldRecord) (int64, error) {
	return 1, nil
}

type recordingPoster struct {
	urls []string
}

func (p *recordingPoster) Post(_ context.Context, url string, _ map[string]any) error {
	p.urls = append(p.urls, url)
	return nil
}

func webhookAction(id, url string) models.WorkflowAction {
	return models.WorkflowAction{
		ID:            id,
		Kind:          models.ActionOutboundMessage,
		Configuration: map[string]any{"url": url},
		Order:         1,
	}
}

func discountProcess(steps ...models.ApprovalStep) *models.ApprovalProcess {
	return &models.ApprovalProcess{
		ID:         "proc-1",
		Name:       "discount approvals",
		EntityType: models.EntityOpportunity,
		Active:     true,
		EntryCriteria: &models.Expression{
			Field:      "amount",
			Comparator: models.ComparatorGreaterThan,
			Value:      10000,
		},
		Steps: steps,
	}
}

func unanimousStep(number int, approvers ...string) models.ApprovalStep {
	return models.ApprovalStep{
		StepNumber: number,
		Policy:     models.PolicyUnanimous,
		Approvers:  approvers,
	}
}

func firstResponseStep(number int, approvers ...string) models.ApprovalStep {
	return models.ApprovalStep{
		StepNumber: number,
		Policy:     models.PolicyFirstResponse,
		Approvers:  approvers,
	}
}

type harness struct {
	engine *Engine
	store  *fakeApprovals
	poster *recordingPoster
}

func newHarness(t *testing.T, process *models.ApprovalProcess) *harness {
	t.Helper()

	record, err := models.DefaultEntityRegistry().NewRecord(models.EntityOpportunity, 7, "sales-rep", map[string]any{
		"name":   "Acme renewal",
		"amount": 25000,
		"stage":  models.StageNegotiation,
	})
	require.NoError(t, err)

	reg := registry.NewRegistry(slog.Default())
	reg.RegisterAction(outbound.NewActionFactory())

	store := newFakeApprovals(process)
	poster := &recordingPoster{}

	engine := NewEngine(Config{
		Approvals: store,
		Records:   &recordingStore{records: map[string]models.FieldRecord{models.EntityOpportunity: record}},
		Registry:  reg,
		Entities:  models.DefaultEntityRegistry(),
		Clock:     clockwork.NewFakeClock(),
		Poster:    poster,
		Logger:    slog.Default(),
	})

	return &harness{engine: engine, store: store, poster: poster}
}

func (h *harness) submit(t *testing.T) *models.ApprovalRequest {
	t.Helper()

	request, err := h.engine.Submit(context.Background(), "proc-1", models.EntityOpportunity, 7, "sales-rep", "please approve")
	require.NoError(t, err)

	return request
}

func TestSubmit_OpensPendingRequestAtFirstStep(t *testing.T) {
	h := newHarness(t, discountProcess(unanimousStep(1, "mgr-a", "mgr-b")))

	request := h.submit(t)

	assert.Equal(t, models.StatusPending, request.Status)
	assert.Equal(t, 1, request.StepNumber)
	assert.Equal(t, "sales-rep", request.Submitter)
	assert.Empty(t, request.Votes)
}

func TestSubmit_InactiveProcessIsRejected(t *testing.T) {
	process := discountProcess(unanimousStep(1, "mgr-a"))
	process.Active = false

	h := newHarness(t, process)

	_, err := h.engine.Submit(context.Background(), "proc-1", models.EntityOpportunity, 7, "sales-rep", "")
	assert.True(t, models.IsStateError(err))
}

func TestSubmit_EntryCriteriaMustMatch(t *testing.T) {
	process := discountProcess(unanimousStep(1, "mgr-a"))
	process.EntryCriteria = &models.Expression{
		Field:      "amount",
		Comparator: models.ComparatorGreaterThan,
		Value:      100000,
	}

	h := newHarness(t, process)

	_, err := h.engine.Submit(context.Background(), "proc-1", models.EntityOpportunity, 7, "sales-rep", "")
	assert.True(t, models.IsStateError(err))
	assert.Empty(t, h.store.requests)
}

func TestSubmit_SecondPendingRequestIsRejected(t *testing.T) {
	h := newHarness(t, discountProcess(unanimousStep(1, "mgr-a")))

	h.submit(t)

	_, err := h.engine.Submit(context.Background(), "proc-1", models.EntityOpportunity, 7, "sales-rep", "")
	assert.True(t, models.IsStateError(err))
}

func TestSubmit_EntityTypeMustMatchProcess(t *testing.T) {
	h := newHarness(t, discountProcess(unanimousStep(1, "mgr-a")))

	_, err := h.engine.Submit(context.Background(), "proc-1", models.EntityLead, 7, "sales-rep", "")
	assert.True(t, models.IsStateError(err))
}

func TestCastVote_UnanimousRequiresEveryApprover(t *testing.T) {
	h := newHarness(t, discountProcess(unanimousStep(1, "mgr-a", "mgr-b", "mgr-c")))
	request := h.submit(t)

	request, err := h.engine.CastVote(context.Background(), request.ID, "mgr-a", models.DecisionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, request.Status)

	request, err = h.engine.CastVote(context.Background(), request.ID, "mgr-b", models.DecisionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, request.Status)

	request, err = h.engine.CastVote(context.Background(), request.ID, "mgr-c", models.DecisionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, request.Status)
}

func TestCastVote_SingleRejectShortCircuitsUnanimousStep(t *testing.T) {
	step := unanimousStep(1, "mgr-a", "mgr-b", "mgr-c")
	step.RejectionActions = []models.WorkflowAction{webhookAction("a-r", "https://hooks.test/rejected")}

	h := newHarness(t, discountProcess(step))
	request := h.submit(t)

	_, err := h.engine.CastVote(context.Background(), request.ID, "mgr-a", models.DecisionApprove, "")
	require.NoError(t, err)

	request, err = h.engine.CastVote(context.Background(), request.ID, "mgr-b", models.DecisionReject, "too deep a discount")
	require.NoError(t, err)

	assert.Equal(t, models.StatusRejected, request.Status)
	assert.Equal(t, []string{"https://hooks.test/rejected"}, h.poster.urls)

	// Terminal: the remaining approver can no longer vote.
	_, err = h.engine.CastVote(context.Background(), request.ID, "mgr-c", models.DecisionApprove, "")
	assert.True(t, models.IsStateError(err))
}

func TestCastVote_FirstResponseDecidesImmediately(t *testing.T) {
	step := firstResponseStep(1, "mgr-a", "mgr-b")
	step.ApprovalActions = []models.WorkflowAction{webhookAction("a-ok", "https://hooks.test/approved")}

	h := newHarness(t, discountProcess(step))
	request := h.submit(t)

	request, err := h.engine.CastVote(context.Background(), request.ID, "mgr-b", models.DecisionApprove, "")
	require.NoError(t, err)

	assert.Equal(t, models.StatusApproved, request.Status)
	assert.Equal(t, []string{"https://hooks.test/approved"}, h.poster.urls)

	_, err = h.engine.CastVote(context.Background(), request.ID, "mgr-a", models.DecisionApprove, "")
	assert.True(t, models.IsStateError(err))
}

func TestCastVote_ApproverVotesOncePerStep(t *testing.T) {
	h := newHarness(t, discountProcess(unanimousStep(1, "mgr-a", "mgr-b")))
	request := h.submit(t)

	_, err := h.engine.CastVote(context.Background(), request.ID, "mgr-a", models.DecisionApprove, "")
	require.NoError(t, err)

	_, err = h.engine.CastVote(context.Background(), request.ID, "mgr-a", models.DecisionApprove, "")
	assert.True(t, models.IsStateError(err))
}

func TestCastVote_NonApproverIsRefused(t *testing.T) {
	h := newHarness(t, discountProcess(unanimousStep(1, "mgr-a")))
	request := h.submit(t)

	_, err := h.engine.CastVote(context.Background(), request.ID, "intern", models.DecisionApprove, "")
	assert.True(t, models.IsAuthorizationError(err))
}

func TestCastVote_UnknownDecisionIsRefused(t *testing.T) {
	h := newHarness(t, discountProcess(unanimousStep(1, "mgr-a")))
	request := h.submit(t)

	_, err := h.engine.CastVote(context.Background(), request.ID, "mgr-a", models.Decision("abstain"), "")
	assert.True(t, models.IsFieldError(err))
}

func TestCastVote_MultiStepAdvancesAndResetsVotes(t *testing.T) {
	h := newHarness(t, discountProcess(
		unanimousStep(1, "mgr-a", "mgr-b"),
		firstResponseStep(2, "vp-sales"),
	))
	request := h.submit(t)

	_, err := h.engine.CastVote(context.Background(), request.ID, "mgr-a", models.DecisionApprove, "")
	require.NoError(t, err)

	request, err = h.engine.CastVote(context.Background(), request.ID, "mgr-b", models.DecisionApprove, "")
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, request.Status)
	assert.Equal(t, 2, request.StepNumber)
	assert.Empty(t, request.Votes)

	// Step 1 approvers hold no authority on step 2.
	_, err = h.engine.CastVote(context.Background(), request.ID, "mgr-a", models.DecisionApprove, "")
	assert.True(t, models.IsAuthorizationError(err))

	request, err = h.engine.CastVote(context.Background(), request.ID, "vp-sales", models.DecisionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, request.Status)
}

func TestCastVote_RejectReassignReturnsToEarlierStep(t *testing.T) {
	step2 := firstResponseStep(2, "vp-sales")
	step2.RejectBehavior = models.RejectBehavior{Kind: models.RejectReassign, StepNumber: 1}

	h := newHarness(t, discountProcess(unanimousStep(1, "mgr-a"), step2))
	request := h.submit(t)

	_, err := h.engine.CastVote(context.Background(), request.ID, "mgr-a", models.DecisionApprove, "")
	require.NoError(t, err)

	request, err = h.engine.CastVote(context.Background(), request.ID, "vp-sales", models.DecisionReject, "rework the terms")
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, request.Status)
	assert.Equal(t, 1, request.StepNumber)
	assert.Empty(t, request.Votes)

	// The returned-to step votes fresh.
	request, err = h.engine.CastVote(context.Background(), request.ID, "mgr-a", models.DecisionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, 2, request.StepNumber)
}

func TestRecall_SubmitterWithdrawsPendingRequest(t *testing.T) {
	h := newHarness(t, discountProcess(unanimousStep(1, "mgr-a")))
	request := h.submit(t)

	request, err := h.engine.Recall(context.Background(), request.ID, "sales-rep")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRecalled, request.Status)

	_, err = h.engine.CastVote(context.Background(), request.ID, "mgr-a", models.DecisionApprove, "")
	assert.True(t, models.IsStateError(err))

	_, err = h.engine.Recall(context.Background(), request.ID, "sales-rep")
	assert.True(t, models.IsStateError(err))
}

func TestRecall_OnlySubmitterMayRecall(t *testing.T) {
	h := newHarness(t, discountProcess(unanimousStep(1, "mgr-a")))
	request := h.submit(t)

	_, err := h.engine.Recall(context.Background(), request.ID, "mgr-a")
	assert.True(t, models.IsAuthorizationError(err))
}

func TestSubmit_AllowedAgainAfterRecall(t *testing.T) {
	h := newHarness(t, discountProcess(unanimousStep(1, "mgr-a")))
	request := h.submit(t)

	_, err := h.engine.Recall(context.Background(), request.ID, "sales-rep")
	require.NoError(t, err)

	second := h.submit(t)
	assert.NotEqual(t, request.ID, second.ID)
	assert.Equal(t, models.StatusPending, second.Status)
}
