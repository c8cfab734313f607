package canvas

import (
	"context"
	"fmt"
	"strconv"

	"github.com/taskflowhq/taskflow/internal/integration"
	"github.com/taskflowhq/taskflow/internal/model"
)

// Adapter implements integration.Source for Canvas.
type Adapter struct {
	client *Client
}

func NewAdapter(baseURL, token string) *Adapter {
	if baseURL == "" || token == "" {
		return &Adapter{}
	}
	return &Adapter{client: NewClient(baseURL, token)}
}

// Authenticate probes the token with a one-item course listing. Some tokens
// cannot read /users/self but can list courses, so the probe matches what the
// sync actually needs.
func (a *Adapter) Authenticate(ctx context.Context) error {
	if a.client == nil {
		return fmt.Errorf("canvas credentials missing, set CANVAS_API_URL and CANVAS_API_TOKEN: %w", integration.ErrAuth)
	}
	_, err := a.client.ListCourses(ctx, 1)
	return err
}

// ListCourses returns the active courses as deduplicated {id, name} pairs.
func (a *Adapter) ListCourses(ctx context.Context) ([]Course, error) {
	if err := a.Authenticate(ctx); err != nil {
		return nil, err
	}

	courses, err := a.client.ListCourses(ctx, defaultPerPage)
	if err != nil {
		return nil, err
	}
	return dedupe(courses), nil
}

func dedupe(courses []Course) []Course {
	seen := make(map[int64]bool, len(courses))
	out := make([]Course, 0, len(courses))
	for _, c := range courses {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}

// FetchTasks resolves the course working set and produces one candidate task
// per assignment. Explicitly requested course ids that fail to resolve are
// skipped; any other provider failure aborts the fetch.
func (a *Adapter) FetchTasks(ctx context.Context, courseIDs []int64) ([]model.CandidateTask, error) {
	if a.client == nil {
		return nil, fmt.Errorf("canvas credentials missing, set CANVAS_API_URL and CANVAS_API_TOKEN: %w", integration.ErrAuth)
	}

	var courses []Course
	if len(courseIDs) > 0 {
		for _, id := range courseIDs {
			course, err := a.client.GetCourse(ctx, id)
			if err != nil {
				return nil, err
			}
			if course != nil {
				courses = append(courses, *course)
			}
		}
	} else {
		all, err := a.client.ListCourses(ctx, defaultPerPage)
		if err != nil {
			return nil, err
		}
		courses = dedupe(all)
	}

	var tasks []model.CandidateTask
	for _, course := range courses {
		assignments, err := a.client.ListAssignments(ctx, course.ID)
		if err != nil {
			return nil, err
		}
		for _, assignment := range assignments {
			tasks = append(tasks, normalize(course, assignment))
		}
	}
	return tasks, nil
}

func normalize(course Course, a Assignment) model.CandidateTask {
	meta := make(map[string]any, len(a.Raw)+1)
	for k, v := range a.Raw {
		meta[k] = v
	}
	meta["course"] = map[string]any{"id": course.ID, "name": course.Name}

	status := model.StatusPending
	if a.Submission != nil && a.Submission.SubmittedAt != nil {
		status = model.StatusCompleted
	}

	courseName := course.Name
	return model.CandidateTask{
		ExternalID:       strconv.FormatInt(a.ID, 10),
		Source:           model.SourceCanvas,
		SourceMetadata:   meta,
		Title:            a.Name,
		Description:      a.Description,
		DueDate:          a.DueAt,
		Status:           status,
		CourseOrCategory: &courseName,
	}
}
