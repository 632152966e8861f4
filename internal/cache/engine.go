package cache

import (
	"context"

	"github.com/rs/zerolog/log"

	"taskdeck/backend"
)

// Engine owns the snapshot, the active-list pointer and the dirty
// flag. All CRUD operations are synchronous and cache-only: they
// mutate the in-memory snapshot, persist it write-through, and never
// touch the network. The dirty flag tracks "differs from what has
// been pushed upstream" and is cleared only by a successful sync;
// disk persistence tracks "survives a crash".
//
// Not-found results are nil/false, never errors. The engine is not
// safe for concurrent use; one operation completes before the next
// begins.
type Engine struct {
	remote backend.Remote
	store  Store
	snap   *Snapshot
	active backend.ID
	dirty  bool
}

// New loads the snapshot from the store, bootstraps it with a full
// remote pull when it holds no lists, and selects the first list as
// active. A failed bootstrap pull is logged and the engine starts
// with an empty snapshot; the next explicit pull retries.
func New(ctx context.Context, remote backend.Remote, store Store) *Engine {
	e := &Engine{remote: remote, store: store}
	e.snap = store.Load()

	if len(e.snap.TaskLists) == 0 {
		if err := e.Pull(ctx); err != nil {
			log.Warn().Err(err).Msg("initial pull failed, starting offline with an empty snapshot")
		}
	}

	e.resetActive()
	return e
}

// resetActive points the active list at the first visible list, or
// clears it when none remain.
func (e *Engine) resetActive() {
	e.active = ""
	for _, list := range e.snap.TaskLists {
		if !list.Deleted {
			e.active = list.ID
			return
		}
	}
}

// persist writes the snapshot through to the durable store.
func (e *Engine) persist() {
	e.store.Save(e.snap)
}

// touch marks the snapshot as diverged from the remote and persists it.
func (e *Engine) touch() {
	e.dirty = true
	e.persist()
}

// Dirty reports whether local changes await reconciliation.
func (e *Engine) Dirty() bool { return e.dirty }

// ActiveList returns the ID of the list currently being viewed.
func (e *Engine) ActiveList() backend.ID { return e.active }

// SetActiveList changes the in-memory active-list pointer. No
// validation is performed and the snapshot is untouched.
func (e *Engine) SetActiveList(listID backend.ID) bool {
	e.active = listID
	return true
}

// Lists returns all task lists that are not tombstoned.
func (e *Engine) Lists() []backend.TaskList {
	var lists []backend.TaskList
	for _, list := range e.snap.TaskLists {
		if !list.Deleted {
			lists = append(lists, list)
		}
	}
	return lists
}

// Tasks returns the non-tombstoned tasks under the given list. An
// empty listID means the active list.
func (e *Engine) Tasks(listID backend.ID) []backend.Task {
	if listID == "" {
		listID = e.active
	}
	if listID == "" {
		return nil
	}

	var tasks []backend.Task
	for _, task := range e.snap.Tasks[listID] {
		if !task.Deleted {
			tasks = append(tasks, task)
		}
	}
	return tasks
}

// Task returns a copy of the task with the given ID, or nil.
func (e *Engine) Task(listID, taskID backend.ID) *backend.Task {
	if listID == "" {
		return nil
	}
	task := e.snap.findTask(listID, taskID)
	if task == nil {
		return nil
	}
	copied := *task
	return &copied
}

// AddTask creates a task with a fresh provisional ID and status
// needsAction, appended to the list's bucket. The bucket is created
// if the list has no tasks yet.
func (e *Engine) AddTask(listID backend.ID, title string) *backend.Task {
	if listID == "" {
		return nil
	}

	task := backend.Task{
		ID:     backend.NewTaskID(),
		Title:  title,
		Status: backend.StatusNeedsAction,
	}
	e.snap.Tasks[listID] = append(e.snap.Tasks[listID], task)
	e.touch()
	return &task
}

// ToggleTask flips a task between needsAction and completed.
func (e *Engine) ToggleTask(listID, taskID backend.ID) *backend.Task {
	task := e.snap.findTask(listID, taskID)
	if task == nil {
		return nil
	}
	task.Status = task.Status.Toggle()
	e.touch()
	copied := *task
	return &copied
}

// RenameTask sets a task's title.
func (e *Engine) RenameTask(listID, taskID backend.ID, title string) *backend.Task {
	task := e.snap.findTask(listID, taskID)
	if task == nil {
		return nil
	}
	task.Title = title
	e.touch()
	copied := *task
	return &copied
}

// SetTaskDue parses the due-date string and sets the task's due
// timestamp. Malformed input returns backend.ErrInvalidDue with no
// mutation; an unknown task returns nil, nil.
func (e *Engine) SetTaskDue(listID, taskID backend.ID, due string) (*backend.Task, error) {
	parsed, err := backend.ParseDue(due)
	if err != nil {
		return nil, err
	}

	task := e.snap.findTask(listID, taskID)
	if task == nil {
		return nil, nil
	}
	task.Due = &parsed
	e.touch()
	copied := *task
	return &copied, nil
}

// SetTaskNotes sets a task's notes.
func (e *Engine) SetTaskNotes(listID, taskID backend.ID, notes string) *backend.Task {
	task := e.snap.findTask(listID, taskID)
	if task == nil {
		return nil
	}
	task.Notes = notes
	e.touch()
	copied := *task
	return &copied
}

// DeleteTask tombstones a task. The record stays in the snapshot
// until a sync reconciles it with the remote side.
func (e *Engine) DeleteTask(listID, taskID backend.ID) bool {
	task := e.snap.findTask(listID, taskID)
	if task == nil {
		return false
	}
	task.Deleted = true
	e.touch()
	return true
}

// AddList creates a task list with a fresh provisional ID and an
// empty task bucket, appended to the list sequence.
func (e *Engine) AddList(title string) *backend.TaskList {
	list := backend.TaskList{
		ID:    backend.NewListID(),
		Title: title,
	}
	e.snap.TaskLists = append(e.snap.TaskLists, list)
	e.snap.Tasks[list.ID] = []backend.Task{}
	if e.active == "" {
		e.active = list.ID
	}
	e.touch()
	return &list
}

// RenameList sets a list's title.
func (e *Engine) RenameList(listID backend.ID, title string) bool {
	list := e.snap.findList(listID)
	if list == nil {
		return false
	}
	list.Title = title
	e.touch()
	return true
}

// DeleteList tombstones a task list. Its tasks stay in the snapshot;
// a sync that deletes the list remotely removes both.
func (e *Engine) DeleteList(listID backend.ID) bool {
	list := e.snap.findList(listID)
	if list == nil {
		return false
	}
	list.Deleted = true
	if e.active == listID {
		e.resetActive()
	}
	e.touch()
	return true
}
