package priority

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/taskflowhq/taskflow/internal/model"
)

type stubAnalyzer struct {
	priority model.Priority
	err      error
	called   bool
}

func (s *stubAnalyzer) AnalyzePriority(ctx context.Context, title string, description *string, baseline model.Priority, dueDate *time.Time) (model.Priority, error) {
	s.called = true
	return s.priority, s.err
}

func newTestEngine(analyzer Analyzer, now time.Time) *Engine {
	e := NewEngine(analyzer, zap.NewNop())
	e.now = func() time.Time { return now }
	return e
}

func days(now time.Time, n float64) *time.Time {
	t := now.Add(time.Duration(n * 24 * float64(time.Hour)))
	return &t
}

func TestEngine_Baseline(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	engine := newTestEngine(nil, now)

	tests := []struct {
		name    string
		dueDate *time.Time
		status  model.Status
		want    model.Priority
	}{
		{"due in 6 days", days(now, 6), model.StatusPending, model.PriorityHigh},
		{"due in exactly 7 days", days(now, 7), model.StatusPending, model.PriorityMedium},
		{"due in 10 days", days(now, 10), model.StatusPending, model.PriorityMedium},
		{"due in exactly 14 days", days(now, 14), model.StatusPending, model.PriorityMedium},
		{"due in 15 days", days(now, 15), model.StatusPending, model.PriorityLow},
		{"overdue", days(now, -2), model.StatusPending, model.PriorityHigh},
		{"no due date", nil, model.StatusPending, model.PriorityNone},
		{"completed", days(now, 3), model.StatusCompleted, model.PriorityNone},
		{"archived", days(now, 3), model.StatusArchived, model.PriorityNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.Baseline(tt.dueDate, tt.status))
		})
	}
}

func TestEngine_ShouldRecalculate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	engine := newTestEngine(nil, now)

	tests := []struct {
		name    string
		current model.Priority
		oldDue  *time.Time
		newDue  *time.Time
		want    bool
	}{
		{"priority none always recalculates", model.PriorityNone, days(now, 5), days(now, 5), true},
		{"priority none without due date", model.PriorityNone, nil, nil, true},
		{"no new due date", model.PriorityHigh, days(now, 5), nil, false},
		{"due date appears", model.PriorityHigh, nil, days(now, 5), true},
		{"shift of 2 days preserved", model.PriorityHigh, days(now, 5), days(now, 7), false},
		{"shift of exactly 3 days preserved", model.PriorityHigh, days(now, 5), days(now, 8), false},
		{"shift over 3 days recalculates", model.PriorityHigh, days(now, 5), days(now, 9), true},
		{"backwards shift over 3 days recalculates", model.PriorityHigh, days(now, 9), days(now, 5), true},
		{"unchanged due date preserved", model.PriorityMedium, days(now, 10), days(now, 10), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.ShouldRecalculate(tt.current, tt.oldDue, tt.newDue))
		})
	}
}

func TestEngine_Prioritize(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("baseline only without analyzer", func(t *testing.T) {
		engine := newTestEngine(nil, now)
		task := model.Task{Priority: model.PriorityNone, Status: model.StatusPending, DueDate: days(now, 3)}

		result := engine.Prioritize(ctx, task, nil, true)

		assert.True(t, result.Recalculated)
		assert.False(t, result.AIUsed)
		assert.Equal(t, model.PriorityHigh, result.Priority)
	})

	t.Run("analyzer refines baseline", func(t *testing.T) {
		analyzer := &stubAnalyzer{priority: model.PriorityLow}
		engine := newTestEngine(analyzer, now)
		task := model.Task{Priority: model.PriorityNone, Status: model.StatusPending, DueDate: days(now, 3)}

		result := engine.Prioritize(ctx, task, nil, true)

		assert.True(t, analyzer.called)
		assert.True(t, result.AIUsed)
		assert.Equal(t, model.PriorityLow, result.Priority)
	})

	t.Run("analyzer failure falls back to baseline", func(t *testing.T) {
		analyzer := &stubAnalyzer{err: errors.New("timeout")}
		engine := newTestEngine(analyzer, now)
		task := model.Task{Priority: model.PriorityNone, Status: model.StatusPending, DueDate: days(now, 3)}

		result := engine.Prioritize(ctx, task, nil, true)

		assert.True(t, result.Recalculated)
		assert.False(t, result.AIUsed)
		assert.Equal(t, model.PriorityHigh, result.Priority)
	})

	t.Run("useAI false skips analyzer", func(t *testing.T) {
		analyzer := &stubAnalyzer{priority: model.PriorityLow}
		engine := newTestEngine(analyzer, now)
		task := model.Task{Priority: model.PriorityNone, Status: model.StatusPending, DueDate: days(now, 3)}

		result := engine.Prioritize(ctx, task, nil, false)

		assert.False(t, analyzer.called)
		assert.Equal(t, model.PriorityHigh, result.Priority)
	})

	t.Run("user priority with stable deadline preserved", func(t *testing.T) {
		analyzer := &stubAnalyzer{priority: model.PriorityLow}
		engine := newTestEngine(analyzer, now)
		task := model.Task{Priority: model.PriorityMedium, Status: model.StatusPending, DueDate: days(now, 3)}

		result := engine.Prioritize(ctx, task, days(now, 4), true)

		assert.False(t, result.Recalculated)
		assert.False(t, analyzer.called)
		assert.Equal(t, model.PriorityMedium, result.Priority)
	})

	t.Run("completed task never prioritized", func(t *testing.T) {
		engine := newTestEngine(nil, now)
		task := model.Task{Priority: model.PriorityNone, Status: model.StatusCompleted, DueDate: days(now, 3)}

		result := engine.Prioritize(ctx, task, nil, true)

		assert.False(t, result.Recalculated)
		assert.Equal(t, model.PriorityNone, result.Priority)
	})
}
