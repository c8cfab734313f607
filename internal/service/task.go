package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskflowhq/taskflow/internal/model"
	"github.com/taskflowhq/taskflow/internal/priority"
	"github.com/taskflowhq/taskflow/internal/repo"
)

var (
	ErrValidation = errors.New("validation error")
)

const (
	maxTitleLen    = 500
	maxExternalLen = 255

	defaultListLimit = 200
	maxListLimit     = 500
)

// PrioritizeStats summarizes one prioritize run over the record API.
type PrioritizeStats struct {
	Prioritized int `json:"prioritized"`
	Skipped     int `json:"skipped"`
	AIUsed      int `json:"ai_used"`
	Total       int `json:"total"`
}

type TaskService struct {
	repo   repo.TaskRepository
	engine *priority.Engine
	logger *zap.Logger
}

func NewTaskService(taskRepo repo.TaskRepository, engine *priority.Engine, logger *zap.Logger) *TaskService {
	return &TaskService{
		repo:   taskRepo,
		engine: engine,
		logger: logger,
	}
}

func (s *TaskService) Create(ctx context.Context, t model.Task) (model.Task, error) {
	if t.Priority == "" {
		t.Priority = model.PriorityNone
	}
	if t.Status == "" {
		t.Status = model.StatusPending
	}
	if err := s.validate(t); err != nil {
		return t, err
	}
	return s.repo.Create(ctx, t)
}

func (s *TaskService) Get(ctx context.Context, id uuid.UUID) (model.Task, error) {
	return s.repo.Get(ctx, id)
}

func (s *TaskService) List(ctx context.Context, filter model.TaskFilter, limit, offset int) ([]model.Task, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, filter, limit, offset)
}

func (s *TaskService) Update(ctx context.Context, id uuid.UUID, patch model.TaskUpdate) (model.Task, error) {
	if err := s.validatePatch(patch); err != nil {
		return model.Task{}, err
	}
	return s.repo.Update(ctx, id, patch)
}

func (s *TaskService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// Prioritize recomputes priorities over an explicit task-id list, a course-id
// list, or (by default) every pending task with a due date. A failure on one
// task is logged and counted as skipped.
func (s *TaskService) Prioritize(ctx context.Context, ids []uuid.UUID, courseIDs []int64, useAI bool) (PrioritizeStats, error) {
	if len(ids) > 0 {
		courseIDs = nil
	}

	tasks, err := s.repo.ListPrioritizable(ctx, ids, courseIDs)
	if err != nil {
		return PrioritizeStats{}, err
	}

	stats := PrioritizeStats{Total: len(tasks)}
	for _, task := range tasks {
		result := s.engine.Prioritize(ctx, task, task.DueDate, useAI)
		if !result.Recalculated {
			stats.Skipped++
			continue
		}

		if result.Priority != task.Priority {
			if err := s.repo.SetPriority(ctx, task.ID, result.Priority); err != nil {
				s.logger.Warn("failed to store priority",
					zap.String("task_id", task.ID.String()), zap.Error(err))
				stats.Skipped++
				continue
			}
		}

		stats.Prioritized++
		if result.AIUsed {
			stats.AIUsed++
		}
	}

	return stats, nil
}

func (s *TaskService) validate(t model.Task) error {
	if strings.TrimSpace(t.Title) == "" || len(t.Title) > maxTitleLen {
		return ErrValidation
	}
	if t.ExternalID == "" || len(t.ExternalID) > maxExternalLen {
		return ErrValidation
	}
	if !t.Source.IsValid() || !t.Status.IsValid() || !t.Priority.IsValid() {
		return ErrValidation
	}
	return nil
}

func (s *TaskService) validatePatch(patch model.TaskUpdate) error {
	if patch.Title != nil && (strings.TrimSpace(*patch.Title) == "" || len(*patch.Title) > maxTitleLen) {
		return ErrValidation
	}
	if patch.Status != nil && !patch.Status.IsValid() {
		return ErrValidation
	}
	if patch.Priority != nil && !patch.Priority.IsValid() {
		return ErrValidation
	}
	return nil
}
