package models

import (
	"encoding/json"
	"strings"
	"time"
)

type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

// Statuses lists the board columns in display order.
var Statuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusCompleted,
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// ParseStatus accepts the wire literal as well as the lenient
// spellings used on the command line ("in_progress", "inprogress").
func ParseStatus(s string) (Status, bool) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer("_", " ", "-", " ").Replace(normalized)
	switch normalized {
	case "pending":
		return StatusPending, true
	case "in progress", "inprogress":
		return StatusInProgress, true
	case "completed", "done":
		return StatusCompleted, true
	}
	return "", false
}

type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

func ParsePriority(s string) (Priority, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return PriorityHigh, true
	case "medium":
		return PriorityMedium, true
	case "low":
		return PriorityLow, true
	}
	return "", false
}

type Task struct {
	ID          string     `json:"_id"`
	UserID      string     `json:"userId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Priority    Priority   `json:"priority"`
	Status      Status     `json:"status"`
	Category    string     `json:"category"`
	Position    int        `json:"position"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TaskPatch carries the writable fields of a task. Nil fields are left untouched.
type TaskPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Priority    *Priority  `json:"priority,omitempty"`
	Status      *Status    `json:"status,omitempty"`
	Category    *string    `json:"category,omitempty"`

	// ClearDueDate removes the due date. It is sent as "dueDate": null.
	ClearDueDate bool `json:"-"`
}

func (p TaskPatch) MarshalJSON() ([]byte, error) {
	type plain TaskPatch
	if !p.ClearDueDate {
		return json.Marshal(plain(p))
	}
	return json.Marshal(struct {
		plain
		DueDate *time.Time `json:"dueDate"`
	}{plain: plain(p)})
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil &&
		p.Description == nil &&
		p.DueDate == nil &&
		!p.ClearDueDate &&
		p.Priority == nil &&
		p.Status == nil &&
		p.Category == nil
}

// Apply writes the non-nil fields of p onto t.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.DueDate != nil {
		due := *p.DueDate
		t.DueDate = &due
	} else if p.ClearDueDate {
		t.DueDate = nil
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
}

// ReorderEntry pairs a task id with its new position.
type ReorderEntry struct {
	ID       string `json:"_id"`
	Position int    `json:"position"`
}

// TaskFilter narrows a task listing. Zero values match everything.
type TaskFilter struct {
	Status   Status
	Priority Priority
	Query    string
}
