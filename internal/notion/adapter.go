package notion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskflowhq/taskflow/internal/integration"
	"github.com/taskflowhq/taskflow/internal/model"
)

// TaskStore is the slice of the repository the adapter needs.
type TaskStore interface {
	ListForNotionPush(ctx context.Context, ids []uuid.UUID, courseIDs []int64, limit int) ([]model.Task, error)
	ListCompletedWithNotionPage(ctx context.Context, ids []uuid.UUID) ([]model.Task, error)
	ListWithNotionPage(ctx context.Context, ids []uuid.UUID) ([]model.Task, error)
	SetNotionPageID(ctx context.Context, id uuid.UUID, pageID *string) error
	SetStatus(ctx context.Context, id uuid.UUID, s model.Status) error
}

// Property names expected in the user's Notion database.
const (
	propName        = "Name"
	propDescription = "Description"
	propDueDate     = "Due Date"
	propPriority    = "Priority"
	propStatus      = "Status"
	propCourse      = "Course"
	propSource      = "Source"
)

const (
	// Notion caps a rich text segment at 2000 characters.
	richTextLimit = 2000

	defaultPushLimit = 500
)

// PushStats reports one push batch.
type PushStats struct {
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Archived int `json:"archived"`
	Failed   int `json:"failed"`
	Total    int `json:"total"`
}

// PullStats reports one status pull batch.
type PullStats struct {
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
}

// Adapter pushes tasks into a Notion database and pulls status edits back.
type Adapter struct {
	client *Client
	repo   TaskStore
	logger *zap.Logger
}

func NewAdapter(token, databaseID string, taskRepo TaskStore, logger *zap.Logger) *Adapter {
	a := &Adapter{repo: taskRepo, logger: logger}
	if token != "" && databaseID != "" {
		a.client = NewClient(token, databaseID)
	}
	return a
}

// Authenticate verifies token and database access.
func (a *Adapter) Authenticate(ctx context.Context) error {
	if a.client == nil {
		return fmt.Errorf("notion credentials missing, set NOTION_API_TOKEN and NOTION_DATABASE_ID: %w", integration.ErrAuth)
	}
	return a.client.GetDatabase(ctx)
}

// Push mirrors tasks as Notion pages. Completed tasks are never kept in
// Notion: any page they still hold is archived and the local page id cleared.
// The remaining selector-resolved set (explicit ids win over course ids, then
// all non-completed up to limit) is created or updated, un-archiving pages
// Notion refuses to edit. Per-task failures are counted, not fatal.
func (a *Adapter) Push(ctx context.Context, ids []uuid.UUID, courseIDs []int64, limit int) (PushStats, error) {
	var stats PushStats
	if err := a.Authenticate(ctx); err != nil {
		return stats, err
	}
	if limit <= 0 || limit > defaultPushLimit {
		limit = defaultPushLimit
	}

	toArchive, err := a.repo.ListCompletedWithNotionPage(ctx, ids)
	if err != nil {
		return stats, err
	}
	for _, task := range toArchive {
		if err := a.archivePage(ctx, task); err != nil {
			if errors.Is(err, integration.ErrAuth) {
				return stats, err
			}
			a.logger.Warn("notion archive failed",
				zap.String("task_id", task.ID.String()), zap.Error(err))
			stats.Failed++
			continue
		}
		stats.Archived++
	}

	tasks, err := a.repo.ListForNotionPush(ctx, ids, courseIDs, limit)
	if err != nil {
		return stats, err
	}
	stats.Total = len(tasks)

	for _, task := range tasks {
		created, err := a.pushTask(ctx, task)
		if err != nil {
			if errors.Is(err, integration.ErrAuth) {
				return stats, err
			}
			a.logger.Warn("notion push failed",
				zap.String("task_id", task.ID.String()), zap.Error(err))
			stats.Failed++
			continue
		}
		if created {
			stats.Created++
		} else {
			stats.Updated++
		}
	}

	return stats, nil
}

func (a *Adapter) archivePage(ctx context.Context, task model.Task) error {
	err := a.client.ArchivePage(ctx, *task.NotionPageID)
	// Already archived in the Notion UI counts as done; just drop our ref.
	if err != nil && !isArchivedEdit(err) {
		return err
	}
	return a.repo.SetNotionPageID(ctx, task.ID, nil)
}

func (a *Adapter) pushTask(ctx context.Context, task model.Task) (created bool, err error) {
	props := taskProperties(task)

	if task.NotionPageID == nil {
		pageID, err := a.client.CreatePage(ctx, props)
		if err != nil {
			return false, err
		}
		return true, a.repo.SetNotionPageID(ctx, task.ID, &pageID)
	}

	err = a.client.UpdatePage(ctx, *task.NotionPageID, props)
	if isArchivedEdit(err) {
		if err = a.client.UnarchivePage(ctx, *task.NotionPageID); err != nil {
			return false, err
		}
		err = a.client.UpdatePage(ctx, *task.NotionPageID, props)
	}
	return false, err
}

// PullStatusUpdates reads the Status property of each linked page back onto
// the local record. Transient upstream failures are retried once.
func (a *Adapter) PullStatusUpdates(ctx context.Context, ids []uuid.UUID) (PullStats, error) {
	var stats PullStats
	if err := a.Authenticate(ctx); err != nil {
		return stats, err
	}

	tasks, err := a.repo.ListWithNotionPage(ctx, ids)
	if err != nil {
		return stats, err
	}
	stats.Total = len(tasks)

	for _, task := range tasks {
		page, err := a.getPageWithRetry(ctx, *task.NotionPageID)
		if err != nil {
			if errors.Is(err, integration.ErrAuth) {
				return stats, err
			}
			a.logger.Warn("notion status pull failed",
				zap.String("task_id", task.ID.String()), zap.Error(err))
			stats.Failed++
			continue
		}

		status, ok := pageStatus(page)
		if !ok || status == task.Status {
			stats.Skipped++
			continue
		}

		if err := a.repo.SetStatus(ctx, task.ID, status); err != nil {
			stats.Failed++
			continue
		}
		stats.Updated++
	}

	return stats, nil
}

func (a *Adapter) getPageWithRetry(ctx context.Context, pageID string) (Page, error) {
	page, err := a.client.GetPage(ctx, pageID)
	var apiErr *APIError
	if err == nil || !errors.As(err, &apiErr) || !apiErr.IsTransient() {
		return page, err
	}

	select {
	case <-time.After(time.Second):
	case <-ctx.Done():
		return Page{}, ctx.Err()
	}
	return a.client.GetPage(ctx, pageID)
}

func pageStatus(page Page) (model.Status, bool) {
	prop, ok := page.Properties[propStatus]
	if !ok || prop.Type != "select" || prop.Select == nil {
		return "", false
	}
	status := model.Status(strings.ToLower(prop.Select.Name))
	return status, status.IsValid()
}

// taskProperties maps a task onto the fixed Notion property names.
func taskProperties(task model.Task) map[string]any {
	description := ""
	if task.Description != nil {
		description = *task.Description
	}
	course := ""
	if task.CourseOrCategory != nil {
		course = *task.CourseOrCategory
	}

	var due any
	if task.DueDate != nil {
		due = map[string]any{"start": task.DueDate.Format(time.RFC3339)}
	}

	return map[string]any{
		propName:        map[string]any{"title": titleSegments(task.Title, task.Status == model.StatusCompleted)},
		propDescription: map[string]any{"rich_text": richText(description)},
		propDueDate:     map[string]any{"date": due},
		propPriority:    map[string]any{"select": map[string]any{"name": string(task.Priority)}},
		propStatus:      map[string]any{"select": map[string]any{"name": string(task.Status)}},
		propCourse:      map[string]any{"rich_text": richText(course)},
		propSource:      map[string]any{"rich_text": richText(string(task.Source))},
	}
}

func richText(content string) []map[string]any {
	cleaned := htmlToText(content)
	if cleaned == "" {
		return []map[string]any{}
	}
	return []map[string]any{
		{"type": "text", "text": map[string]any{"content": truncate(cleaned, richTextLimit)}},
	}
}

func titleSegments(title string, strikethrough bool) []map[string]any {
	if title == "" {
		title = "Untitled"
	}
	segment := map[string]any{
		"type": "text",
		"text": map[string]any{"content": truncate(title, richTextLimit)},
	}
	// The push selector excludes completed tasks, so this branch only fires
	// for callers mapping a completed task directly.
	if strikethrough {
		segment["annotations"] = map[string]any{"strikethrough": true}
	}
	return []map[string]any{segment}
}

// truncate caps s at limit characters; the Notion limit counts runes, not
// bytes.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
