package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/taskflowhq/taskflow/internal/model"
)

// UpsertResult reports how a single candidate was reconciled. PrevDueDate is
// the due date the row carried before the upsert (nil for fresh rows); the
// priority engine needs it to decide whether the deadline moved enough to
// recompute.
type UpsertResult struct {
	Task        model.Task
	Created     bool
	PrevDueDate *time.Time
}

// TaskRepository is the storage contract for task records.
type TaskRepository interface {
	Create(ctx context.Context, t model.Task) (model.Task, error)
	Get(ctx context.Context, id uuid.UUID) (model.Task, error)
	List(ctx context.Context, filter model.TaskFilter, limit, offset int) ([]model.Task, error)
	Update(ctx context.Context, id uuid.UUID, patch model.TaskUpdate) (model.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error

	Upsert(ctx context.Context, c model.CandidateTask) (UpsertResult, error)

	SetPriority(ctx context.Context, id uuid.UUID, p model.Priority) error
	SetStatus(ctx context.Context, id uuid.UUID, s model.Status) error
	SetNotionPageID(ctx context.Context, id uuid.UUID, pageID *string) error

	ListForNotionPush(ctx context.Context, ids []uuid.UUID, courseIDs []int64, limit int) ([]model.Task, error)
	ListCompletedWithNotionPage(ctx context.Context, ids []uuid.UUID) ([]model.Task, error)
	ListWithNotionPage(ctx context.Context, ids []uuid.UUID) ([]model.Task, error)
	ListPrioritizable(ctx context.Context, ids []uuid.UUID, courseIDs []int64) ([]model.Task, error)
}
