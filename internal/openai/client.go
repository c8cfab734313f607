// Package openai calls the OpenAI chat completions API to refine a
// date-rule priority using the task's content.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/taskflowhq/taskflow/internal/model"
)

const (
	defaultBaseURL = "https://api.openai.com/v1/chat/completions"
	chatModel      = "gpt-4o-mini"
	maxTokens      = 10
	temperature    = 0.3
	requestTimeout = 10 * time.Second

	// Long Canvas descriptions carry no extra urgency signal past this point.
	descriptionLimit = 500
)

type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// AnalyzePriority asks the model for a one-word priority. Any failure,
// including an off-script reply, is returned as an error; callers fall back
// to the baseline.
func (c *Client) AnalyzePriority(ctx context.Context, title string, description *string, baseline model.Priority, dueDate *time.Time) (model.Priority, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY not set")
	}

	payload := chatRequest{
		Model: chatModel,
		Messages: []chatMessage{
			{
				Role:    "system",
				Content: "You are a task prioritization assistant. Return only one word: high, medium, or low.",
			},
			{
				Role:    "user",
				Content: buildPrompt(title, description, baseline, dueDate),
			},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("openai api error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return "", fmt.Errorf("openai api error (%d)", resp.StatusCode)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}

	answer := model.Priority(strings.ToLower(strings.TrimSpace(chatResp.Choices[0].Message.Content)))
	switch answer {
	case model.PriorityHigh, model.PriorityMedium, model.PriorityLow:
		return answer, nil
	}
	return "", fmt.Errorf("unexpected priority %q", answer)
}

func buildPrompt(title string, description *string, baseline model.Priority, dueDate *time.Time) string {
	desc := "No description"
	if description != nil && *description != "" {
		desc = *description
		if len(desc) > descriptionLimit {
			desc = desc[:descriptionLimit]
		}
	}

	daysText := "N/A"
	if dueDate != nil {
		days := time.Until(*dueDate).Hours() / 24
		if days >= 0 {
			daysText = fmt.Sprintf("%d days", int(days))
		} else {
			daysText = "overdue"
		}
	}

	return fmt.Sprintf(`You are a task prioritization assistant. Analyze this task and return ONLY one word: "high", "medium", or "low".

Task title: %s
Task description: %s
Baseline priority (based on deadline): %s
Days until deadline: %s

Consider:
- Urgency signals (e.g., "final exam", "required", "critical" -> higher priority)
- Low-urgency signals (e.g., "optional", "reading", "review" -> lower priority)
- The baseline is already date-based, so adjust only if content suggests different urgency

Return ONLY the priority word (high/medium/low), nothing else.`, title, desc, baseline, daysText)
}
