package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskflowhq/taskflow/internal/model"
)

var (
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("conflict")
)

const taskColumns = `id, external_id, source, source_metadata, title, description, due_date,
		priority, status, course_or_category, notion_page_id, created_at, updated_at, synced_at`

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{
		pool: pool,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (model.Task, error) {
	var t model.Task
	err := row.Scan(
		&t.ID, &t.ExternalID, &t.Source, &t.SourceMetadata, &t.Title, &t.Description, &t.DueDate,
		&t.Priority, &t.Status, &t.CourseOrCategory, &t.NotionPageID, &t.CreatedAt, &t.UpdatedAt, &t.SyncedAt,
	)
	return t, err
}

func (r *TaskRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tasks (id, external_id, source, source_metadata, title, description, due_date,
			priority, status, course_or_category)
		VALUES ($1, $2, $3, COALESCE($4::jsonb, '{}'::jsonb), $5, $6, $7, $8, $9, $10)
		RETURNING `+taskColumns+`
	`, t.ID, t.ExternalID, t.Source, t.SourceMetadata, t.Title, t.Description, t.DueDate,
		t.Priority, t.Status, t.CourseOrCategory)

	created, err := scanTask(row)
	return created, r.mapError(err)
}

func (r *TaskRepo) Get(ctx context.Context, id uuid.UUID) (model.Task, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = $1
	`, id)

	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return t, ErrorNotFound
	}
	return t, err
}

func (r *TaskRepo) List(ctx context.Context, filter model.TaskFilter, limit, offset int) ([]model.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE ($1::text IS NULL OR source = $1)
		  AND ($2::text IS NULL OR status = $2)
		  AND ($3::timestamptz IS NULL OR (due_date IS NOT NULL AND due_date >= $3))
		  AND ($4::timestamptz IS NULL OR (due_date IS NOT NULL AND due_date <= $4))
		  AND ($5::bigint[] IS NULL OR (source_metadata->'course'->>'id')::bigint = ANY($5))
		ORDER BY due_date ASC NULLS LAST, created_at DESC
		LIMIT $6 OFFSET $7
	`

	rows, err := r.pool.Query(ctx, query,
		filter.Source, filter.Status, filter.DueFrom, filter.DueTo, filter.CourseIDs, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTasks(rows, limit)
}

func (r *TaskRepo) Update(ctx context.Context, id uuid.UUID, patch model.TaskUpdate) (model.Task, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET title = COALESCE($2::varchar, title),
			description = COALESCE($3::text, description),
			due_date = COALESCE($4::timestamptz, due_date),
			priority = COALESCE($5::varchar, priority),
			status = COALESCE($6::varchar, status),
			course_or_category = COALESCE($7::varchar, course_or_category),
			updated_at = now()
		WHERE id = $1
		RETURNING `+taskColumns+`
	`, id, patch.Title, patch.Description, patch.DueDate, patch.Priority, patch.Status, patch.CourseOrCategory)

	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return t, ErrorNotFound
	}
	return t, err
}

func (r *TaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	cmd, err := r.pool.Exec(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrorNotFound
	}
	return nil
}

// Upsert reconciles one candidate against the store by natural key. The insert
// branch gets a fresh id and priority 'none'; the update branch overwrites
// provider-owned columns only (priority stays whatever it was). The prev CTE
// snapshots the existing due date so callers can detect deadline shifts, and
// xmax = 0 distinguishes inserted rows from updated ones.
func (r *TaskRepo) Upsert(ctx context.Context, c model.CandidateTask) (UpsertResult, error) {
	var res UpsertResult
	row := r.pool.QueryRow(ctx, `
		WITH prev AS (
			SELECT due_date FROM tasks WHERE source = $3 AND external_id = $2
		)
		INSERT INTO tasks (id, external_id, source, source_metadata, title, description, due_date,
			priority, status, course_or_category, synced_at)
		VALUES ($1, $2, $3, COALESCE($4::jsonb, '{}'::jsonb), $5, $6, $7, 'none', $8, $9, now())
		ON CONFLICT ON CONSTRAINT uq_tasks_source_external_id DO UPDATE SET
			source_metadata = EXCLUDED.source_metadata,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			due_date = EXCLUDED.due_date,
			status = EXCLUDED.status,
			course_or_category = EXCLUDED.course_or_category,
			synced_at = EXCLUDED.synced_at,
			updated_at = now()
		RETURNING `+taskColumns+`, (xmax = 0) AS inserted, (SELECT due_date FROM prev)
	`, uuid.New(), c.ExternalID, c.Source, c.SourceMetadata, c.Title, c.Description, c.DueDate,
		c.Status, c.CourseOrCategory)

	t := &res.Task
	err := row.Scan(
		&t.ID, &t.ExternalID, &t.Source, &t.SourceMetadata, &t.Title, &t.Description, &t.DueDate,
		&t.Priority, &t.Status, &t.CourseOrCategory, &t.NotionPageID, &t.CreatedAt, &t.UpdatedAt, &t.SyncedAt,
		&res.Created, &res.PrevDueDate,
	)
	return res, r.mapError(err)
}

func (r *TaskRepo) SetPriority(ctx context.Context, id uuid.UUID, p model.Priority) error {
	cmd, err := r.pool.Exec(ctx, `
		UPDATE tasks SET priority = $2, updated_at = now() WHERE id = $1
	`, id, p)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrorNotFound
	}
	return nil
}

func (r *TaskRepo) SetStatus(ctx context.Context, id uuid.UUID, s model.Status) error {
	cmd, err := r.pool.Exec(ctx, `
		UPDATE tasks SET status = $2, updated_at = now() WHERE id = $1
	`, id, s)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrorNotFound
	}
	return nil
}

func (r *TaskRepo) SetNotionPageID(ctx context.Context, id uuid.UUID, pageID *string) error {
	cmd, err := r.pool.Exec(ctx, `
		UPDATE tasks SET notion_page_id = $2, updated_at = now() WHERE id = $1
	`, id, pageID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrorNotFound
	}
	return nil
}

// ListForNotionPush resolves the push selector: explicit ids win, then course
// ids, then all non-completed tasks up to limit. Completed tasks never appear
// in the result.
func (r *TaskRepo) ListForNotionPush(ctx context.Context, ids []uuid.UUID, courseIDs []int64, limit int) ([]model.Task, error) {
	switch {
	case len(ids) > 0:
		return r.queryTasks(ctx, `
			SELECT `+taskColumns+`
			FROM tasks
			WHERE id = ANY($1) AND status IN ('pending', 'archived')
			ORDER BY due_date ASC NULLS LAST, created_at DESC
		`, ids)
	case len(courseIDs) > 0:
		return r.queryTasks(ctx, `
			SELECT `+taskColumns+`
			FROM tasks
			WHERE source = 'canvas'
			  AND (source_metadata->'course'->>'id')::bigint = ANY($1)
			  AND status IN ('pending', 'archived')
			ORDER BY due_date ASC NULLS LAST, created_at DESC
			LIMIT $2
		`, courseIDs, limit)
	default:
		return r.queryTasks(ctx, `
			SELECT `+taskColumns+`
			FROM tasks
			WHERE status IN ('pending', 'archived')
			ORDER BY due_date ASC NULLS LAST, created_at DESC
			LIMIT $1
		`, limit)
	}
}

func (r *TaskRepo) ListCompletedWithNotionPage(ctx context.Context, ids []uuid.UUID) ([]model.Task, error) {
	return r.queryTasks(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE notion_page_id IS NOT NULL
		  AND status = 'completed'
		  AND ($1::uuid[] IS NULL OR id = ANY($1))
	`, ids)
}

func (r *TaskRepo) ListWithNotionPage(ctx context.Context, ids []uuid.UUID) ([]model.Task, error) {
	return r.queryTasks(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE notion_page_id IS NOT NULL
		  AND ($1::uuid[] IS NULL OR id = ANY($1))
	`, ids)
}

func (r *TaskRepo) ListPrioritizable(ctx context.Context, ids []uuid.UUID, courseIDs []int64) ([]model.Task, error) {
	return r.queryTasks(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE status = 'pending'
		  AND due_date IS NOT NULL
		  AND ($1::uuid[] IS NULL OR id = ANY($1))
		  AND ($2::bigint[] IS NULL OR (source_metadata->'course'->>'id')::bigint = ANY($2))
		ORDER BY due_date ASC
	`, ids, courseIDs)
}

func (r *TaskRepo) queryTasks(ctx context.Context, query string, args ...any) ([]model.Task, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTasks(rows, 0)
}

func collectTasks(rows pgx.Rows, sizeHint int) ([]model.Task, error) {
	tasks := make([]model.Task, 0, sizeHint)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepo) mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			return ErrorConflict
		}
	}
	return err
}
