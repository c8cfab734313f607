package tests

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskflowhq/taskflow/internal/model"
	"github.com/taskflowhq/taskflow/internal/repo"
)

func TestConcurrent_UpsertSameNaturalKey(t *testing.T) {
	pool, cleanup := SetupTestDB(t)
	defer cleanup()

	TruncateTables(t, pool)

	taskRepo := repo.NewTaskRepo(pool)
	ctx := context.Background()

	const goroutines = 10
	due := time.Now().Add(48 * time.Hour)

	var wg sync.WaitGroup
	results := make([]repo.UpsertResult, goroutines)
	errors := make([]error, goroutines)

	// Race the same assignment from concurrent sync runs.
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx], errors[idx] = taskRepo.Upsert(ctx, model.CandidateTask{
				ExternalID: "9001",
				Source:     model.SourceCanvas,
				Title:      fmt.Sprintf("Essay (run %d)", idx),
				DueDate:    &due,
				Status:     model.StatusPending,
			})
		}(i)
	}

	wg.Wait()

	for i, err := range errors {
		require.NoError(t, err, "upsert %d should not error", i)
	}

	firstID := results[0].Task.ID
	createdCount := 0
	for i, res := range results {
		assert.Equal(t, firstID, res.Task.ID, "upsert %d should hit the same row", i)
		if res.Created {
			createdCount++
		}
	}
	assert.Equal(t, 1, createdCount, "exactly one upsert should insert")

	assert.Equal(t, 1, CountTasks(t, pool), "only one task row should exist")
}

func TestConcurrent_UpsertDistinctKeys(t *testing.T) {
	pool, cleanup := SetupTestDB(t)
	defer cleanup()

	TruncateTables(t, pool)

	taskRepo := repo.NewTaskRepo(pool)
	ctx := context.Background()

	const goroutines = 20

	var wg sync.WaitGroup
	errors := make([]error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, errors[idx] = taskRepo.Upsert(ctx, model.CandidateTask{
				ExternalID: fmt.Sprintf("%d", 9000+idx),
				Source:     model.SourceCanvas,
				Title:      fmt.Sprintf("Assignment %d", idx),
				Status:     model.StatusPending,
			})
		}(i)
	}

	wg.Wait()

	for i, err := range errors {
		require.NoError(t, err, "upsert %d should not error", i)
	}
	assert.Equal(t, goroutines, CountTasks(t, pool))
}

func TestConcurrent_PriorityWritesLastOneWins(t *testing.T) {
	pool, cleanup := SetupTestDB(t)
	defer cleanup()

	TruncateTables(t, pool)

	taskRepo := repo.NewTaskRepo(pool)
	ctx := context.Background()

	ids := SeedCanvasTasks(t, pool, 1)

	priorities := []model.Priority{model.PriorityHigh, model.PriorityMedium, model.PriorityLow}

	var wg sync.WaitGroup
	errors := make([]error, len(priorities))
	for i, p := range priorities {
		wg.Add(1)
		go func(idx int, p model.Priority) {
			defer wg.Done()
			errors[idx] = taskRepo.SetPriority(ctx, ids[0], p)
		}(i, p)
	}

	wg.Wait()

	for i, err := range errors {
		require.NoError(t, err, "write %d should not error", i)
	}

	task, err := taskRepo.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.Contains(t, priorities, task.Priority)
}
