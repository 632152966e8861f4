package cache

import (
	"context"
	"fmt"

	"taskdeck/backend"
)

// fakeRemote is an in-memory backend.Remote with per-operation error
// injection and a call log.
type fakeRemote struct {
	lists  []backend.TaskList
	tasks  map[backend.ID][]backend.Task
	nextID int
	fail   map[string]error // op name -> injected error
	calls  []string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		tasks: make(map[backend.ID][]backend.Task),
		fail:  make(map[string]error),
	}
}

func (f *fakeRemote) failOn(op string) {
	f.fail[op] = fmt.Errorf("injected %s failure", op)
}

func (f *fakeRemote) record(op string) error {
	f.calls = append(f.calls, op)
	return f.fail[op]
}

// mutations returns the count of logged create/update/delete calls.
func (f *fakeRemote) mutations() int {
	n := 0
	for _, c := range f.calls {
		switch c {
		case "CreateList", "DeleteList", "CreateTask", "UpdateTask", "DeleteTask":
			n++
		}
	}
	return n
}

func (f *fakeRemote) addList(id backend.ID, title string) {
	f.lists = append(f.lists, backend.TaskList{ID: id, Title: title})
	f.tasks[id] = []backend.Task{}
}

func (f *fakeRemote) addTask(listID backend.ID, task backend.Task) {
	f.tasks[listID] = append(f.tasks[listID], task)
}

func (f *fakeRemote) ListLists(ctx context.Context) ([]backend.TaskList, error) {
	if err := f.record("ListLists"); err != nil {
		return nil, err
	}
	return append([]backend.TaskList(nil), f.lists...), nil
}

func (f *fakeRemote) ListTasks(ctx context.Context, listID backend.ID) ([]backend.Task, error) {
	if err := f.record("ListTasks"); err != nil {
		return nil, err
	}
	return append([]backend.Task(nil), f.tasks[listID]...), nil
}

func (f *fakeRemote) CreateList(ctx context.Context, title string) (*backend.TaskList, error) {
	if err := f.record("CreateList"); err != nil {
		return nil, err
	}
	f.nextID++
	list := backend.TaskList{ID: backend.ID(fmt.Sprintf("list-%d", f.nextID)), Title: title}
	f.lists = append(f.lists, list)
	f.tasks[list.ID] = []backend.Task{}
	return &list, nil
}

func (f *fakeRemote) DeleteList(ctx context.Context, listID backend.ID) error {
	if err := f.record("DeleteList"); err != nil {
		return err
	}
	for i, list := range f.lists {
		if list.ID == listID {
			f.lists = append(f.lists[:i], f.lists[i+1:]...)
			delete(f.tasks, listID)
			return nil
		}
	}
	return fmt.Errorf("list not found: %s", listID)
}

func (f *fakeRemote) GetTask(ctx context.Context, listID, taskID backend.ID) (*backend.Task, error) {
	if err := f.record("GetTask"); err != nil {
		return nil, err
	}
	for _, task := range f.tasks[listID] {
		if task.ID == taskID {
			copied := task
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("task not found: %s", taskID)
}

func (f *fakeRemote) CreateTask(ctx context.Context, listID backend.ID, task *backend.Task) (*backend.Task, error) {
	if err := f.record("CreateTask"); err != nil {
		return nil, err
	}
	f.nextID++
	created := *task
	created.ID = backend.ID(fmt.Sprintf("task-%d", f.nextID))
	if created.Status == "" {
		created.Status = backend.StatusNeedsAction
	}
	f.tasks[listID] = append(f.tasks[listID], created)
	return &created, nil
}

func (f *fakeRemote) UpdateTask(ctx context.Context, listID backend.ID, task *backend.Task) (*backend.Task, error) {
	if err := f.record("UpdateTask"); err != nil {
		return nil, err
	}
	bucket := f.tasks[listID]
	for i := range bucket {
		if bucket[i].ID == task.ID {
			bucket[i] = *task
			copied := *task
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("task not found: %s", task.ID)
}

func (f *fakeRemote) DeleteTask(ctx context.Context, listID, taskID backend.ID) error {
	if err := f.record("DeleteTask"); err != nil {
		return err
	}
	bucket := f.tasks[listID]
	for i := range bucket {
		if bucket[i].ID == taskID {
			f.tasks[listID] = append(bucket[:i], bucket[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("task not found: %s", taskID)
}

var _ backend.Remote = (*fakeRemote)(nil)
