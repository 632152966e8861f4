// Package cache implements the offline cache engine: an in-memory
// snapshot of all lists and tasks, cache-only CRUD with write-through
// persistence, and best-effort reconciliation with the remote service.
package cache

import (
	"taskdeck/backend"
)

// Snapshot is the complete local state: every task list plus the tasks
// under each list, keyed by list ID. It is the unit of persistence and
// the only state the engine mutates. Tombstoned records stay in the
// snapshot until a sync reconciles them.
type Snapshot struct {
	TaskLists []backend.TaskList            `json:"task_lists"`
	Tasks     map[backend.ID][]backend.Task `json:"tasks"`
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{Tasks: make(map[backend.ID][]backend.Task)}
}

// findList returns a pointer into the list sequence, or nil.
func (s *Snapshot) findList(id backend.ID) *backend.TaskList {
	for i := range s.TaskLists {
		if s.TaskLists[i].ID == id {
			return &s.TaskLists[i]
		}
	}
	return nil
}

// findTask returns a pointer into the list's task bucket, or nil.
// Tombstoned tasks are still found; filtering is the caller's job.
func (s *Snapshot) findTask(listID, taskID backend.ID) *backend.Task {
	bucket := s.Tasks[listID]
	for i := range bucket {
		if bucket[i].ID == taskID {
			return &bucket[i]
		}
	}
	return nil
}
