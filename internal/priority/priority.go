// Package priority decides whether a task's priority needs recomputation and
// computes it from date rules, optionally refined by the reasoning service.
package priority

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/taskflowhq/taskflow/internal/model"
)

const (
	// Due in under 7 days is high; 7-14 days inclusive is medium; beyond is low.
	highThresholdDays   = 7
	mediumThresholdDays = 14

	// A deadline shift above this invalidates a user-set priority.
	significantShiftDays = 3
)

// Analyzer refines a baseline priority using task content. A nil Analyzer on
// the Engine disables the refinement path.
type Analyzer interface {
	AnalyzePriority(ctx context.Context, title string, description *string, baseline model.Priority, dueDate *time.Time) (model.Priority, error)
}

type Engine struct {
	analyzer Analyzer
	logger   *zap.Logger
	now      func() time.Time
}

func NewEngine(analyzer Analyzer, logger *zap.Logger) *Engine {
	return &Engine{
		analyzer: analyzer,
		logger:   logger,
		now:      time.Now,
	}
}

// Result reports what Prioritize did for one task.
type Result struct {
	Priority     model.Priority
	Recalculated bool
	AIUsed       bool
}

// ShouldRecalculate returns true when the current priority is none, when the
// task gains a due date it did not have, or when the deadline moved by more
// than three days. A user-set priority with a stable deadline is preserved.
func (e *Engine) ShouldRecalculate(current model.Priority, oldDue, newDue *time.Time) bool {
	if current == model.PriorityNone {
		return true
	}
	if newDue == nil {
		return false
	}
	if oldDue == nil {
		return true
	}

	shift := newDue.Sub(*oldDue)
	if shift < 0 {
		shift = -shift
	}
	return shift > significantShiftDays*24*time.Hour
}

// Baseline computes the date-rule priority. PriorityNone is the skip
// sentinel: completed or archived tasks and tasks without a due date are not
// prioritized.
func (e *Engine) Baseline(dueDate *time.Time, status model.Status) model.Priority {
	if status == model.StatusCompleted || status == model.StatusArchived {
		return model.PriorityNone
	}
	if dueDate == nil {
		return model.PriorityNone
	}

	days := dueDate.Sub(e.now()).Hours() / 24
	switch {
	case days < highThresholdDays:
		return model.PriorityHigh
	case days <= mediumThresholdDays:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}

// Prioritize runs the full decision for one task: recompute check, baseline,
// then the optional AI refinement. prevDue is the due date the row carried
// before the latest sync (equal to the task's due date outside of sync). A
// failed or unparseable AI call falls back to the baseline and never errors.
func (e *Engine) Prioritize(ctx context.Context, task model.Task, prevDue *time.Time, useAI bool) Result {
	if !e.ShouldRecalculate(task.Priority, prevDue, task.DueDate) {
		return Result{Priority: task.Priority}
	}

	baseline := e.Baseline(task.DueDate, task.Status)
	if baseline == model.PriorityNone {
		return Result{Priority: task.Priority}
	}

	if !useAI || e.analyzer == nil {
		return Result{Priority: baseline, Recalculated: true}
	}

	refined, err := e.analyzer.AnalyzePriority(ctx, task.Title, task.Description, baseline, task.DueDate)
	if err != nil {
		e.logger.Warn("ai priority analysis failed, using baseline",
			zap.String("task_id", task.ID.String()),
			zap.String("baseline", string(baseline)),
			zap.Error(err),
		)
		return Result{Priority: baseline, Recalculated: true}
	}

	return Result{Priority: refined, Recalculated: true, AIUsed: true}
}
