// Package canvas pulls courses and assignments from the Canvas LMS REST API
// and normalizes assignments into candidate task records.
package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/taskflowhq/taskflow/internal/integration"
)

const (
	defaultPerPage = 50
	requestTimeout = 30 * time.Second
)

type Course struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Submission struct {
	SubmittedAt *time.Time `json:"submitted_at"`
}

type Assignment struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Description *string     `json:"description"`
	DueAt       *time.Time  `json:"due_at"`
	Submission  *Submission `json:"submission"`

	// Raw keeps the full provider payload for source_metadata.
	Raw map[string]any `json:"-"`
}

// Client is a small Canvas REST API client (token auth).
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: normalizeBaseURL(baseURL),
		token:   token,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// Accept either https://school.instructure.com or
// https://school.instructure.com/api/v1.
func normalizeBaseURL(baseURL string) string {
	u := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	return strings.TrimSuffix(u, "/api/v1")
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + "/api/v1" + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("canvas: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("canvas request failed (network error): %w", integration.ErrRequest)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("canvas authentication failed: %w", integration.ErrAuth)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("canvas request failed (%d): %w", resp.StatusCode, integration.ErrRequest)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("canvas request failed (bad payload): %w", integration.ErrRequest)
	}
	return nil
}

// ListCourses lists the credential's courses in the given enrollment state
// ("active" for the sync working set).
func (c *Client) ListCourses(ctx context.Context, perPage int) ([]Course, error) {
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	params := url.Values{}
	params.Set("per_page", fmt.Sprint(perPage))
	params.Set("enrollment_state", "active")

	var courses []Course
	if err := c.get(ctx, "/courses", params, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

// GetCourse fetches one course by id. Inaccessible or missing courses return
// (nil, nil) so callers can skip them without aborting a batch.
func (c *Client) GetCourse(ctx context.Context, courseID int64) (*Course, error) {
	var course Course
	if err := c.get(ctx, fmt.Sprintf("/courses/%d", courseID), nil, &course); err != nil {
		return nil, nil
	}
	return &course, nil
}

// ListAssignments lists a course's assignments with the current user's
// submission embedded (submitted_at decides completion).
func (c *Client) ListAssignments(ctx context.Context, courseID int64) ([]Assignment, error) {
	params := url.Values{}
	params.Set("per_page", fmt.Sprint(defaultPerPage))
	params.Set("include[]", "submission")

	var raw []json.RawMessage
	if err := c.get(ctx, fmt.Sprintf("/courses/%d/assignments", courseID), params, &raw); err != nil {
		return nil, err
	}

	assignments := make([]Assignment, 0, len(raw))
	for _, item := range raw {
		var a Assignment
		if err := json.Unmarshal(item, &a); err != nil {
			return nil, fmt.Errorf("canvas request failed (bad assignment payload): %w", integration.ErrRequest)
		}
		if err := json.Unmarshal(item, &a.Raw); err != nil {
			return nil, fmt.Errorf("canvas request failed (bad assignment payload): %w", integration.ErrRequest)
		}
		assignments = append(assignments, a)
	}
	return assignments, nil
}
