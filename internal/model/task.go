package model

import (
	"time"

	"github.com/google/uuid"
)

type Source string

const (
	SourceCanvas   Source = "canvas"
	SourceGmail    Source = "gmail"
	SourceCalendar Source = "calendar"
)

func (s Source) IsValid() bool {
	switch s {
	case SourceCanvas, SourceGmail, SourceCalendar:
		return true
	}
	return false
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
	PriorityNone   Priority = "none"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow, PriorityNone:
		return true
	}
	return false
}

// Task is the normalized record stored for every assignment-like item,
// regardless of which provider it came from. (Source, ExternalID) is the
// natural key; ID is the stable internal identity.
type Task struct {
	ID               uuid.UUID      `json:"id"`
	ExternalID       string         `json:"external_id"`
	Source           Source         `json:"source"`
	SourceMetadata   map[string]any `json:"source_metadata"`
	Title            string         `json:"title"`
	Description      *string        `json:"description"`
	DueDate          *time.Time     `json:"due_date"`
	Priority         Priority       `json:"priority"`
	Status           Status         `json:"status"`
	CourseOrCategory *string        `json:"course_or_category"`
	NotionPageID     *string        `json:"notion_page_id"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	SyncedAt         time.Time      `json:"synced_at"`
}

// CandidateTask is a provider-normalized task before it hits the store.
// It carries no identity or priority; both are decided during upsert.
type CandidateTask struct {
	ExternalID       string         `json:"external_id"`
	Source           Source         `json:"source"`
	SourceMetadata   map[string]any `json:"source_metadata"`
	Title            string         `json:"title"`
	Description      *string        `json:"description"`
	DueDate          *time.Time     `json:"due_date"`
	Status           Status         `json:"status"`
	CourseOrCategory *string        `json:"course_or_category"`
}

type TaskFilter struct {
	Source    *Source
	Status    *Status
	DueFrom   *time.Time
	DueTo     *time.Time
	CourseIDs []int64
}

// TaskUpdate is a partial update; nil fields are left untouched.
type TaskUpdate struct {
	Title            *string    `json:"title"`
	Description      *string    `json:"description"`
	DueDate          *time.Time `json:"due_date"`
	Priority         *Priority  `json:"priority"`
	Status           *Status    `json:"status"`
	CourseOrCategory *string    `json:"course_or_category"`
}
