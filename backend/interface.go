// Package backend defines the task data model and the remote service
// surface shared by the cache engine and its implementations.
package backend

import (
	"context"
	"errors"
	"time"
)

// Status represents the completion state of a task.
type Status string

// Status values match the Google Tasks wire format.
const (
	StatusNeedsAction Status = "needsAction"
	StatusCompleted   Status = "completed"
)

// Toggle returns the opposite completion state.
func (s Status) Toggle() Status {
	if s == StatusCompleted {
		return StatusNeedsAction
	}
	return StatusCompleted
}

// TaskList represents a task list.
type TaskList struct {
	ID      ID     `json:"id"`
	Title   string `json:"title"`
	Deleted bool   `json:"deleted,omitempty"` // tombstone, pending remote delete
	Default bool   `json:"default,omitempty"` // informational only
}

// Task represents a todo item. A task belongs to exactly one list via
// the bucket key in the snapshot's tasks mapping.
type Task struct {
	ID      ID         `json:"id"`
	Title   string     `json:"title"`
	Status  Status     `json:"status"`
	Due     *time.Time `json:"due,omitempty"`
	Notes   string     `json:"notes,omitempty"`
	Deleted bool       `json:"deleted,omitempty"` // tombstone, pending remote delete
}

// FieldsEqual reports whether title, status, due and notes match.
// Sync uses this to decide whether a remote update is needed.
func (t *Task) FieldsEqual(o *Task) bool {
	if t.Title != o.Title || t.Status != o.Status || t.Notes != o.Notes {
		return false
	}
	if (t.Due == nil) != (o.Due == nil) {
		return false
	}
	return t.Due == nil || t.Due.Equal(*o.Due)
}

// ErrInvalidDue is returned when a due-date string cannot be parsed.
var ErrInvalidDue = errors.New("invalid due date")

// ParseDue parses a due-date string into a UTC timestamp. Accepts
// RFC3339 or a bare date (YYYY-MM-DD).
func ParseDue(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, ErrInvalidDue
}

// Remote is the capability surface of the remote task service. Every
// call is independently fallible; the cache engine swallows per-item
// failures during sync and retries them on a later pass.
type Remote interface {
	ListLists(ctx context.Context) ([]TaskList, error)
	ListTasks(ctx context.Context, listID ID) ([]Task, error)
	CreateList(ctx context.Context, title string) (*TaskList, error)
	DeleteList(ctx context.Context, listID ID) error
	GetTask(ctx context.Context, listID, taskID ID) (*Task, error)
	CreateTask(ctx context.Context, listID ID, task *Task) (*Task, error)
	UpdateTask(ctx context.Context, listID ID, task *Task) (*Task, error)
	DeleteTask(ctx context.Context, listID, taskID ID) error
}
