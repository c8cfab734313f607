// Package notion mirrors non-completed tasks into a Notion database and reads
// externally-made status edits back.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/taskflowhq/taskflow/internal/integration"
)

const (
	defaultBaseURL = "https://api.notion.com"
	notionVersion  = "2022-06-28"
	requestTimeout = 30 * time.Second
)

// APIError carries the upstream status and Notion's error message, which is
// the only way to diagnose property-mapping 400s. It unwraps to the shared
// integration sentinels.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("notion request failed (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("notion request failed (%d)", e.StatusCode)
}

func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return integration.ErrAuth
	}
	return integration.ErrRequest
}

// IsTransient reports a retryable upstream failure.
func (e *APIError) IsTransient() bool {
	return e.StatusCode >= 500
}

// isArchivedEdit matches Notion's refusal to edit an archived page.
func isArchivedEdit(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	msg := strings.ToLower(apiErr.Message)
	return strings.Contains(msg, "archived") &&
		(strings.Contains(msg, "can't edit") || strings.Contains(msg, "cannot edit"))
}

type Page struct {
	ID         string              `json:"id"`
	Archived   bool                `json:"archived"`
	Properties map[string]Property `json:"properties"`
}

type Property struct {
	Type   string        `json:"type"`
	Select *SelectOption `json:"select"`
}

type SelectOption struct {
	Name string `json:"name"`
}

// Client is a small Notion REST API client bound to one database.
type Client struct {
	token      string
	databaseID string
	baseURL    string
	client     *http.Client
}

func NewClient(token, databaseID string) *Client {
	return &Client{
		token:      token,
		databaseID: strings.TrimSpace(databaseID),
		baseURL:    defaultBaseURL,
		client:     &http.Client{Timeout: requestTimeout},
	}
}

func (c *Client) request(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("notion: marshal payload: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("notion: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", notionVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("notion request failed (network error): %w", integration.ErrRequest)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("notion request failed (read error): %w", integration.ErrRequest)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var detail struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(respBody, &detail) == nil {
			apiErr.Message = detail.Message
		}
		return apiErr
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("notion request failed (bad payload): %w", integration.ErrRequest)
		}
	}
	return nil
}

// GetDatabase validates the token and database id in one call.
func (c *Client) GetDatabase(ctx context.Context) error {
	return c.request(ctx, http.MethodGet, "/v1/databases/"+c.databaseID, nil, nil)
}

func (c *Client) GetPage(ctx context.Context, pageID string) (Page, error) {
	var page Page
	err := c.request(ctx, http.MethodGet, "/v1/pages/"+strings.TrimSpace(pageID), nil, &page)
	return page, err
}

func (c *Client) CreatePage(ctx context.Context, properties map[string]any) (string, error) {
	payload := map[string]any{
		"parent":     map[string]any{"database_id": c.databaseID},
		"properties": properties,
	}
	var page Page
	if err := c.request(ctx, http.MethodPost, "/v1/pages", payload, &page); err != nil {
		return "", err
	}
	return page.ID, nil
}

func (c *Client) UpdatePage(ctx context.Context, pageID string, properties map[string]any) error {
	payload := map[string]any{"properties": properties}
	return c.request(ctx, http.MethodPatch, "/v1/pages/"+strings.TrimSpace(pageID), payload, nil)
}

func (c *Client) ArchivePage(ctx context.Context, pageID string) error {
	return c.request(ctx, http.MethodPatch, "/v1/pages/"+strings.TrimSpace(pageID),
		map[string]any{"archived": true}, nil)
}

func (c *Client) UnarchivePage(ctx context.Context, pageID string) error {
	return c.request(ctx, http.MethodPatch, "/v1/pages/"+strings.TrimSpace(pageID),
		map[string]any{"archived": false}, nil)
}
