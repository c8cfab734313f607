package syncer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taskflowhq/taskflow/internal/integration"
	"github.com/taskflowhq/taskflow/internal/model"
	"github.com/taskflowhq/taskflow/internal/priority"
	"github.com/taskflowhq/taskflow/internal/repo"
)

type MockTaskStore struct {
	mock.Mock
}

func (m *MockTaskStore) Upsert(ctx context.Context, c model.CandidateTask) (repo.UpsertResult, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(repo.UpsertResult), args.Error(1)
}

func (m *MockTaskStore) SetPriority(ctx context.Context, id uuid.UUID, p model.Priority) error {
	args := m.Called(ctx, id, p)
	return args.Error(0)
}

type MockSource struct {
	mock.Mock
}

func (m *MockSource) Authenticate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSource) FetchTasks(ctx context.Context, courseIDs []int64) ([]model.CandidateTask, error) {
	args := m.Called(ctx, courseIDs)
	return args.Get(0).([]model.CandidateTask), args.Error(1)
}

func newTestService(store TaskStore, source integration.Source) *Service {
	engine := priority.NewEngine(nil, zap.NewNop())
	return NewService(store, source, engine, zap.NewNop())
}

func candidate(externalID string, due *time.Time) model.CandidateTask {
	return model.CandidateTask{
		ExternalID: externalID,
		Source:     model.SourceCanvas,
		Title:      "Assignment " + externalID,
		DueDate:    due,
		Status:     model.StatusPending,
	}
}

func inDays(d int) *time.Time {
	due := time.Now().Add(time.Duration(d) * 24 * time.Hour)
	return &due
}

func TestService_Sync_NewTask(t *testing.T) {
	store := new(MockTaskStore)
	source := new(MockSource)

	due := inDays(2)
	c := candidate("101", due)
	created := model.Task{
		ID:         uuid.New(),
		ExternalID: "101",
		Source:     model.SourceCanvas,
		DueDate:    due,
		Priority:   model.PriorityNone,
		Status:     model.StatusPending,
	}

	source.On("Authenticate", mock.Anything).Return(nil)
	source.On("FetchTasks", mock.Anything, []int64(nil)).Return([]model.CandidateTask{c}, nil)
	store.On("Upsert", mock.Anything, c).Return(repo.UpsertResult{Task: created, Created: true}, nil)
	store.On("SetPriority", mock.Anything, created.ID, model.PriorityHigh).Return(nil)

	svc := newTestService(store, source)
	stats, err := svc.Sync(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, Stats{Created: 1, Total: 1, Prioritized: 1}, stats)
	store.AssertExpectations(t)
	source.AssertExpectations(t)
}

func TestService_Sync_AuthFailure(t *testing.T) {
	store := new(MockTaskStore)
	source := new(MockSource)
	source.On("Authenticate", mock.Anything).Return(integration.ErrAuth)

	svc := newTestService(store, source)
	_, err := svc.Sync(context.Background(), nil)

	assert.ErrorIs(t, err, integration.ErrAuth)
	store.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestService_Sync_FetchFailure(t *testing.T) {
	store := new(MockTaskStore)
	source := new(MockSource)
	source.On("Authenticate", mock.Anything).Return(nil)
	source.On("FetchTasks", mock.Anything, []int64(nil)).
		Return([]model.CandidateTask(nil), integration.ErrRequest)

	svc := newTestService(store, source)
	_, err := svc.Sync(context.Background(), nil)

	assert.ErrorIs(t, err, integration.ErrRequest)
	store.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestService_Upsert_PreservesUserPriority(t *testing.T) {
	store := new(MockTaskStore)

	due := inDays(2)
	c := candidate("101", due)
	existing := model.Task{
		ID:         uuid.New(),
		ExternalID: "101",
		Source:     model.SourceCanvas,
		DueDate:    due,
		Priority:   model.PriorityLow,
		Status:     model.StatusPending,
	}

	store.On("Upsert", mock.Anything, c).
		Return(repo.UpsertResult{Task: existing, PrevDueDate: due}, nil)

	svc := newTestService(store, nil)
	stats, err := svc.Upsert(context.Background(), []model.CandidateTask{c})

	require.NoError(t, err)
	assert.Equal(t, Stats{Updated: 1, Total: 1, Skipped: 1}, stats)
	store.AssertNotCalled(t, "SetPriority", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Upsert_RecalculatesOnDeadlineShift(t *testing.T) {
	store := new(MockTaskStore)

	newDue := inDays(2)
	oldDue := inDays(20)
	c := candidate("101", newDue)
	existing := model.Task{
		ID:         uuid.New(),
		ExternalID: "101",
		Source:     model.SourceCanvas,
		DueDate:    newDue,
		Priority:   model.PriorityLow,
		Status:     model.StatusPending,
	}

	store.On("Upsert", mock.Anything, c).
		Return(repo.UpsertResult{Task: existing, PrevDueDate: oldDue}, nil)
	store.On("SetPriority", mock.Anything, existing.ID, model.PriorityHigh).Return(nil)

	svc := newTestService(store, nil)
	stats, err := svc.Upsert(context.Background(), []model.CandidateTask{c})

	require.NoError(t, err)
	assert.Equal(t, Stats{Updated: 1, Total: 1, Prioritized: 1}, stats)
	store.AssertExpectations(t)
}

func TestService_Upsert_UnchangedPrioritySkipsWrite(t *testing.T) {
	store := new(MockTaskStore)

	due := inDays(2)
	c := candidate("101", due)
	existing := model.Task{
		ID:         uuid.New(),
		ExternalID: "101",
		Source:     model.SourceCanvas,
		DueDate:    due,
		Priority:   model.PriorityHigh,
		Status:     model.StatusPending,
	}

	// Fresh due date on an existing row forces a recalculation that lands on
	// the priority the row already has.
	store.On("Upsert", mock.Anything, c).
		Return(repo.UpsertResult{Task: existing, PrevDueDate: nil}, nil)

	svc := newTestService(store, nil)
	stats, err := svc.Upsert(context.Background(), []model.CandidateTask{c})

	require.NoError(t, err)
	assert.Equal(t, Stats{Updated: 1, Total: 1, Prioritized: 1}, stats)
	store.AssertNotCalled(t, "SetPriority", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Upsert_PriorityWriteFailureCountsSkipped(t *testing.T) {
	store := new(MockTaskStore)

	due := inDays(2)
	c := candidate("101", due)
	created := model.Task{
		ID:         uuid.New(),
		ExternalID: "101",
		Source:     model.SourceCanvas,
		DueDate:    due,
		Priority:   model.PriorityNone,
		Status:     model.StatusPending,
	}

	store.On("Upsert", mock.Anything, c).
		Return(repo.UpsertResult{Task: created, Created: true}, nil)
	store.On("SetPriority", mock.Anything, created.ID, model.PriorityHigh).
		Return(errors.New("connection reset"))

	svc := newTestService(store, nil)
	stats, err := svc.Upsert(context.Background(), []model.CandidateTask{c})

	require.NoError(t, err)
	assert.Equal(t, Stats{Created: 1, Total: 1, Skipped: 1}, stats)
}

func TestService_Upsert_StoreFailureAborts(t *testing.T) {
	store := new(MockTaskStore)

	first := candidate("101", inDays(2))
	second := candidate("102", inDays(3))

	store.On("Upsert", mock.Anything, first).
		Return(repo.UpsertResult{}, errors.New("connection reset"))

	svc := newTestService(store, nil)
	_, err := svc.Upsert(context.Background(), []model.CandidateTask{first, second})

	assert.Error(t, err)
	store.AssertNumberOfCalls(t, "Upsert", 1)
}

func TestService_Upsert_CompletedTaskNotPrioritized(t *testing.T) {
	store := new(MockTaskStore)

	due := inDays(2)
	c := candidate("101", due)
	c.Status = model.StatusCompleted
	created := model.Task{
		ID:         uuid.New(),
		ExternalID: "101",
		Source:     model.SourceCanvas,
		DueDate:    due,
		Priority:   model.PriorityNone,
		Status:     model.StatusCompleted,
	}

	store.On("Upsert", mock.Anything, c).
		Return(repo.UpsertResult{Task: created, Created: true}, nil)

	svc := newTestService(store, nil)
	stats, err := svc.Upsert(context.Background(), []model.CandidateTask{c})

	require.NoError(t, err)
	assert.Equal(t, Stats{Created: 1, Total: 1, Skipped: 1}, stats)
	store.AssertNotCalled(t, "SetPriority", mock.Anything, mock.Anything, mock.Anything)
}
