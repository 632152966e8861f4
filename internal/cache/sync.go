package cache

import (
	"context"

	"github.com/rs/zerolog/log"

	"taskdeck/backend"
)

// SyncResult summarizes one reconciliation run.
type SyncResult struct {
	Created int // lists and tasks created remotely
	Updated int // tasks updated remotely
	Deleted int // lists and tasks deleted remotely
	Failed  int // items skipped after a remote failure, retried next sync
}

// Sync reconciles local changes with the remote service. It is a
// no-op while the snapshot is clean, and otherwise runs four ordered
// passes: list deletions, list creations (adopting server-assigned
// IDs), task-bucket key migration, then per-bucket task
// reconciliation. Later passes depend on the identifier rewrites of
// earlier ones: a task cannot be created under a list that has no
// remote ID yet.
//
// Every remote call is independently fallible. A failure leaves that
// item's local record unchanged and the pass continues; the item's
// state (provisional ID or tombstone) makes the next sync retry it.
// The snapshot is persisted after each pass so a crash between passes
// loses at most the current pass's adoptions.
func (e *Engine) Sync(ctx context.Context) SyncResult {
	var res SyncResult
	if !e.dirty {
		return res
	}

	remap := e.syncLists(ctx, &res)
	e.persist()

	// Move task buckets from provisional list keys to the adopted
	// remote keys. Buckets still keyed by a provisional list ID after
	// this (their list creation failed) are left for a later sync.
	for oldID, newID := range remap {
		if bucket, ok := e.snap.Tasks[oldID]; ok {
			e.snap.Tasks[newID] = bucket
			delete(e.snap.Tasks, oldID)
		}
	}
	e.persist()

	e.syncTasks(ctx, &res)
	e.persist()

	e.dirty = false
	log.Info().
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("deleted", res.Deleted).
		Int("failed", res.Failed).
		Msg("sync finished")
	return res
}

// syncLists runs the list-deletion and list-creation passes and
// returns the provisional-to-remote ID mapping for adopted lists.
func (e *Engine) syncLists(ctx context.Context, res *SyncResult) map[backend.ID]backend.ID {
	remap := make(map[backend.ID]backend.ID)
	lists := make([]backend.TaskList, 0, len(e.snap.TaskLists))

	for _, list := range e.snap.TaskLists {
		switch {
		case list.Deleted && list.ID.Provisional():
			// Never existed remotely; drop the tombstone and bucket.
			delete(e.snap.Tasks, list.ID)

		case list.Deleted:
			if err := e.remote.DeleteList(ctx, list.ID); err != nil {
				log.Warn().Str("list", string(list.ID)).Err(err).Msg("remote list delete failed, keeping tombstone")
				res.Failed++
				lists = append(lists, list)
				continue
			}
			delete(e.snap.Tasks, list.ID)
			res.Deleted++

		case list.ID.Provisional():
			created, err := e.remote.CreateList(ctx, list.Title)
			if err != nil {
				log.Warn().Str("title", list.Title).Err(err).Msg("remote list create failed, keeping provisional ID")
				res.Failed++
				lists = append(lists, list)
				continue
			}
			remap[list.ID] = created.ID
			lists = append(lists, *created)
			res.Created++

		default:
			lists = append(lists, list)
		}
	}

	e.snap.TaskLists = lists
	return remap
}

// syncTasks reconciles every task bucket keyed by a remote list ID.
func (e *Engine) syncTasks(ctx context.Context, res *SyncResult) {
	for listID, bucket := range e.snap.Tasks {
		if listID.Provisional() {
			// The list itself has not synced; its tasks wait.
			continue
		}

		tasks := make([]backend.Task, 0, len(bucket))
		for _, task := range bucket {
			switch {
			case task.Deleted && task.ID.Provisional():
				// Never existed remotely; drop the tombstone.

			case task.Deleted:
				if err := e.remote.DeleteTask(ctx, listID, task.ID); err != nil {
					log.Warn().Str("task", string(task.ID)).Err(err).Msg("remote task delete failed, keeping tombstone")
					res.Failed++
					tasks = append(tasks, task)
					continue
				}
				res.Deleted++

			case task.ID.Provisional():
				// Status defaults server-side on create.
				created, err := e.remote.CreateTask(ctx, listID, &backend.Task{
					Title: task.Title,
					Due:   task.Due,
					Notes: task.Notes,
				})
				if err != nil {
					log.Warn().Str("title", task.Title).Err(err).Msg("remote task create failed, keeping provisional ID")
					res.Failed++
					tasks = append(tasks, task)
					continue
				}
				tasks = append(tasks, *created)
				res.Created++

			default:
				pushed, err := e.pushTask(ctx, listID, task, res)
				if err != nil {
					res.Failed++
					tasks = append(tasks, task)
					continue
				}
				tasks = append(tasks, *pushed)
			}
		}
		e.snap.Tasks[listID] = tasks
	}
}

// pushTask compares a remote-identified task field-by-field against
// the server's record and updates it when they differ. The local
// record is returned unchanged when they match.
func (e *Engine) pushTask(ctx context.Context, listID backend.ID, task backend.Task, res *SyncResult) (*backend.Task, error) {
	current, err := e.remote.GetTask(ctx, listID, task.ID)
	if err != nil {
		log.Warn().Str("task", string(task.ID)).Err(err).Msg("remote task fetch failed, keeping local record")
		return nil, err
	}

	if task.FieldsEqual(current) {
		return &task, nil
	}

	updated, err := e.remote.UpdateTask(ctx, listID, &task)
	if err != nil {
		log.Warn().Str("task", string(task.ID)).Err(err).Msg("remote task update failed, keeping local record")
		return nil, err
	}
	res.Updated++
	return updated, nil
}

// Pull replaces the snapshot with the authoritative remote state and
// clears the dirty flag. Local changes that were never synced are
// discarded.
func (e *Engine) Pull(ctx context.Context) error {
	lists, err := e.remote.ListLists(ctx)
	if err != nil {
		return err
	}

	snap := NewSnapshot()
	snap.TaskLists = lists
	for _, list := range lists {
		tasks, err := e.remote.ListTasks(ctx, list.ID)
		if err != nil {
			return err
		}
		snap.Tasks[list.ID] = tasks
	}

	e.snap = snap
	e.dirty = false
	e.persist()

	if e.snap.findList(e.active) == nil {
		e.resetActive()
	}
	return nil
}
