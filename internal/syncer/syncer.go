// Package syncer runs the pull-then-upsert pipeline: fetch candidates from a
// source adapter, reconcile them against the store by natural key, then
// reprioritize the rows the batch touched.
package syncer

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskflowhq/taskflow/internal/integration"
	"github.com/taskflowhq/taskflow/internal/model"
	"github.com/taskflowhq/taskflow/internal/priority"
	"github.com/taskflowhq/taskflow/internal/repo"
)

// Stats summarizes one sync run.
type Stats struct {
	Created     int `json:"created"`
	Updated     int `json:"updated"`
	Total       int `json:"total"`
	Prioritized int `json:"prioritized"`
	Skipped     int `json:"skipped"`
	AIUsed      int `json:"ai_used"`
}

// TaskStore is the slice of the repository the pipeline needs.
type TaskStore interface {
	Upsert(ctx context.Context, c model.CandidateTask) (repo.UpsertResult, error)
	SetPriority(ctx context.Context, id uuid.UUID, p model.Priority) error
}

type Service struct {
	repo   TaskStore
	source integration.Source
	engine *priority.Engine
	logger *zap.Logger
}

func NewService(taskRepo TaskStore, source integration.Source, engine *priority.Engine, logger *zap.Logger) *Service {
	return &Service{
		repo:   taskRepo,
		source: source,
		engine: engine,
		logger: logger,
	}
}

// Sync authenticates, materializes the full candidate batch, then upserts it.
// The fetch completes before any store write so a mid-fetch provider failure
// leaves no partial writes. Candidates sharing a natural key within one batch
// resolve last-one-wins.
func (s *Service) Sync(ctx context.Context, courseIDs []int64) (Stats, error) {
	if err := s.source.Authenticate(ctx); err != nil {
		return Stats{}, err
	}

	candidates, err := s.source.FetchTasks(ctx, courseIDs)
	if err != nil {
		return Stats{}, err
	}

	return s.Upsert(ctx, candidates)
}

// Upsert reconciles a candidate batch and reprioritizes every touched row.
// A failure prioritizing one row is logged and counted as skipped; it never
// aborts the batch.
func (s *Service) Upsert(ctx context.Context, candidates []model.CandidateTask) (Stats, error) {
	stats := Stats{Total: len(candidates)}

	results := make([]repo.UpsertResult, 0, len(candidates))
	for _, c := range candidates {
		res, err := s.repo.Upsert(ctx, c)
		if err != nil {
			return stats, err
		}
		if res.Created {
			stats.Created++
		} else {
			stats.Updated++
		}
		results = append(results, res)
	}

	for _, res := range results {
		if err := s.prioritize(ctx, res, &stats); err != nil {
			s.logger.Warn("prioritization failed, skipping task",
				zap.String("task_id", res.Task.ID.String()),
				zap.Error(err),
			)
			stats.Skipped++
		}
	}

	return stats, nil
}

func (s *Service) prioritize(ctx context.Context, res repo.UpsertResult, stats *Stats) error {
	result := s.engine.Prioritize(ctx, res.Task, res.PrevDueDate, true)
	if !result.Recalculated {
		stats.Skipped++
		return nil
	}

	if result.Priority != res.Task.Priority {
		if err := s.repo.SetPriority(ctx, res.Task.ID, result.Priority); err != nil {
			return err
		}
	}

	stats.Prioritized++
	if result.AIUsed {
		stats.AIUsed++
	}
	return nil
}
