package tui_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"

	"taskdeck/backend"
	"taskdeck/internal/cache"
	"taskdeck/internal/tui"
)

// sendKeyAndWait sends a key message and waits briefly for processing.
// Uses a minimal sleep since teatest messages are processed asynchronously.
func sendKeyAndWait(tm *teatest.TestModel, key tea.KeyMsg) {
	tm.Send(key)
	time.Sleep(20 * time.Millisecond)
}

// sendRunesAndWait sends a rune key message and waits briefly for processing.
func sendRunesAndWait(tm *teatest.TestModel, runes []rune) {
	sendKeyAndWait(tm, tea.KeyMsg{Type: tea.KeyRunes, Runes: runes})
}

// stubRemote is a minimal in-memory remote for seeding the engine's
// bootstrap pull. Sync-path behavior is covered in the cache package;
// here it only needs to answer reads and accept writes.
type stubRemote struct {
	mu     sync.Mutex
	lists  []backend.TaskList
	tasks  map[backend.ID][]backend.Task
	nextID int
}

func newStubRemote() *stubRemote {
	return &stubRemote{
		lists: []backend.TaskList{
			{ID: "list-1", Title: "Work", Default: true},
			{ID: "list-2", Title: "Personal"},
		},
		tasks: map[backend.ID][]backend.Task{
			"list-1": {
				{ID: "task-1", Title: "Review proposal", Status: backend.StatusNeedsAction},
				{ID: "task-2", Title: "Write report", Status: backend.StatusNeedsAction},
			},
			"list-2": {
				{ID: "task-3", Title: "Buy groceries", Status: backend.StatusNeedsAction},
			},
		},
		nextID: 4,
	}
}

func (s *stubRemote) ListLists(_ context.Context) ([]backend.TaskList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lists := make([]backend.TaskList, len(s.lists))
	copy(lists, s.lists)
	return lists, nil
}

func (s *stubRemote) ListTasks(_ context.Context, listID backend.ID) ([]backend.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := make([]backend.Task, len(s.tasks[listID]))
	copy(tasks, s.tasks[listID])
	return tasks, nil
}

func (s *stubRemote) CreateList(_ context.Context, title string) (*backend.TaskList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := backend.TaskList{ID: backend.ID(fmt.Sprintf("list-%d", s.nextID)), Title: title}
	s.nextID++
	s.lists = append(s.lists, list)
	return &list, nil
}

func (s *stubRemote) DeleteList(_ context.Context, listID backend.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, l := range s.lists {
		if l.ID == listID {
			s.lists = append(s.lists[:i], s.lists[i+1:]...)
			break
		}
	}
	delete(s.tasks, listID)
	return nil
}

func (s *stubRemote) GetTask(_ context.Context, listID, taskID backend.ID) (*backend.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks[listID] {
		if t.ID == taskID {
			task := t
			return &task, nil
		}
	}
	return nil, fmt.Errorf("task %s not found", taskID)
}

func (s *stubRemote) CreateTask(_ context.Context, listID backend.ID, task *backend.Task) (*backend.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	created := *task
	created.ID = backend.ID(fmt.Sprintf("task-%d", s.nextID))
	s.nextID++
	if created.Status == "" {
		created.Status = backend.StatusNeedsAction
	}
	s.tasks[listID] = append(s.tasks[listID], created)
	return &created, nil
}

func (s *stubRemote) UpdateTask(_ context.Context, listID backend.ID, task *backend.Task) (*backend.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tasks[listID] {
		if t.ID == task.ID {
			s.tasks[listID][i] = *task
			updated := *task
			return &updated, nil
		}
	}
	return nil, fmt.Errorf("task %s not found", task.ID)
}

func (s *stubRemote) DeleteTask(_ context.Context, listID, taskID backend.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := s.tasks[listID]
	for i, t := range tasks {
		if t.ID == taskID {
			s.tasks[listID] = append(tasks[:i], tasks[i+1:]...)
			break
		}
	}
	return nil
}

// newTestModel builds a TUI over a real engine seeded from the stub
// remote via the bootstrap pull.
func newTestModel(t *testing.T) (*tui.Model, *stubRemote, *cache.Engine) {
	t.Helper()
	remote := newStubRemote()
	engine := cache.New(context.Background(), remote, &cache.MemStore{})
	return tui.New(engine), remote, engine
}

// readAll reads all output from a reader and returns as bytes
func readAll(t *testing.T, r io.Reader) []byte {
	t.Helper()
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	return out
}

// --- Launch Tests ---

func TestTUILaunch(t *testing.T) {
	model, _, _ := newTestModel(t)
	tm := teatest.NewTestModel(t, model, teatest.WithInitialTermSize(80, 24))

	time.Sleep(100 * time.Millisecond)
	sendRunesAndWait(tm, []rune{'q'})

	out := readAll(t, tm.FinalOutput(t, teatest.WithFinalTimeout(time.Second)))
	if len(out) == 0 {
		t.Error("expected TUI to render some output")
	}
	if !bytes.Contains(out, []byte("Work")) {
		t.Error("expected 'Work' list to be visible")
	}
}

// --- Navigation Tests ---

func TestTUIListNavigation(t *testing.T) {
	model, _, engine := newTestModel(t)
	tm := teatest.NewTestModel(t, model, teatest.WithInitialTermSize(80, 24))

	time.Sleep(100 * time.Millisecond)

	// Focus the list pane and move to the second list
	sendKeyAndWait(tm, tea.KeyMsg{Type: tea.KeyTab})
	sendKeyAndWait(tm, tea.KeyMsg{Type: tea.KeyDown})

	sendRunesAndWait(tm, []rune{'q'})
	tm.WaitFinished(t, teatest.WithFinalTimeout(time.Second))

	if got := engine.ActiveList(); got != "list-2" {
		t.Errorf("expected active list to follow navigation, got %q", got)
	}
}

func TestTUITaskNavigation(t *testing.T) {
	model, _, _ := newTestModel(t)
	tm := teatest.NewTestModel(t, model, teatest.WithInitialTermSize(80, 24))

	time.Sleep(100 * time.Millisecond)

	// Tasks pane has focus at startup
	sendRunesAndWait(tm, []rune{'j'})
	sendRunesAndWait(tm, []rune{'q'})

	out := readAll(t, tm.FinalOutput(t, teatest.WithFinalTimeout(time.Second)))
	if !bytes.Contains(out, []byte("Review proposal")) {
		t.Error("expected 'Review proposal' to be visible")
	}
	if !bytes.Contains(out, []byte("Write report")) {
		t.Error("expected 'Write report' to be visible after navigation")
	}
}

// --- Task CRUD Tests ---

func TestTUIAddTask(t *testing.T) {
	model, _, engine := newTestModel(t)
	tm := teatest.NewTestModel(t, model, teatest.WithInitialTermSize(80, 24))

	time.Sleep(100 * time.Millisecond)

	sendRunesAndWait(tm, []rune{'a'})
	for _, r := range "New test task" {
		tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	sendKeyAndWait(tm, tea.KeyMsg{Type: tea.KeyEnter})

	sendRunesAndWait(tm, []rune{'q'})
	tm.WaitFinished(t, teatest.WithFinalTimeout(time.Second))

	var found *backend.Task
	for _, task := range engine.Tasks("list-1") {
		if task.Title == "New test task" {
			task := task
			found = &task
		}
	}
	if found == nil {
		t.Fatal("expected new task in the cache")
	}
	if !found.ID.Provisional() {
		t.Errorf("expected provisional ID for unsynced task, got %q", found.ID)
	}
	if !engine.Dirty() {
		t.Error("expected dirty flag after adding a task")
	}
}

func TestTUIToggleTask(t *testing.T) {
	model, _, engine := newTestModel(t)
	tm := teatest.NewTestModel(t, model, teatest.WithInitialTermSize(80, 24))

	time.Sleep(100 * time.Millisecond)

	sendRunesAndWait(tm, []rune{'c'})
	sendRunesAndWait(tm, []rune{'q'})

	out := readAll(t, tm.FinalOutput(t, teatest.WithFinalTimeout(time.Second)))
	if !bytes.Contains(out, []byte("✓")) {
		t.Error("expected completion marker in output")
	}
	if got := engine.Task("list-1", "task-1"); got == nil || got.Status != backend.StatusCompleted {
		t.Error("expected first task to be completed in the cache")
	}
}

func TestTUIRenameTask(t *testing.T) {
	model, _, engine := newTestModel(t)
	tm := teatest.NewTestModel(t, model, teatest.WithInitialTermSize(80, 24))

	time.Sleep(100 * time.Millisecond)

	sendRunesAndWait(tm, []rune{'r'})
	// Clear the prefilled title, then type the new one
	for i := 0; i < len("Review proposal"); i++ {
		tm.Send(tea.KeyMsg{Type: tea.KeyBackspace})
	}
	for _, r := range "Review budget" {
		tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	sendKeyAndWait(tm, tea.KeyMsg{Type: tea.KeyEnter})

	sendRunesAndWait(tm, []rune{'q'})
	tm.WaitFinished(t, teatest.WithFinalTimeout(time.Second))

	if got := engine.Task("list-1", "task-1"); got == nil || got.Title != "Review budget" {
		t.Errorf("expected renamed task in the cache, got %+v", got)
	}
}

func TestTUISetDueDate(t *testing.T) {
	model, _, engine := newTestModel(t)
	tm := teatest.NewTestModel(t, model, teatest.WithInitialTermSize(80, 24))

	time.Sleep(100 * time.Millisecond)

	sendRunesAndWait(tm, []rune{'t'})
	for _, r := range "2026-09-01" {
		tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	sendKeyAndWait(tm, tea.KeyMsg{Type: tea.KeyEnter})

	sendRunesAndWait(tm, []rune{'q'})
	tm.WaitFinished(t, teatest.WithFinalTimeout(time.Second))

	got := engine.Task("list-1", "task-1")
	if got == nil || got.Due == nil {
		t.Fatal("expected due date to be set")
	}
	if got.Due.Format("2006-01-02") != "2026-09-01" {
		t.Errorf("expected due 2026-09-01, got %s", got.Due)
	}
}

func TestTUIInvalidDueDateShowsError(t *testing.T) {
	model, _, engine := newTestModel(t)
	tm := teatest.NewTestModel(t, model, teatest.WithInitialTermSize(80, 24))

	time.Sleep(100 * time.Millisecond)

	sendRunesAndWait(tm, []rune{'t'})
	for _, r := range "next tuesday" {
		tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	sendKeyAndWait(tm, tea.KeyMsg{Type: tea.KeyEnter})

	sendRunesAndWait(tm, []rune{'q'})

	out := readAll(t, tm.FinalOutput(t, teatest.WithFinalTimeout(time.Second)))
	if !bytes.Contains(out, []byte("invalid due date")) {
		t.Error("expected an invalid-due-date message in the status bar")
	}
	if got := engine.Task("list-1", "task-1"); got == nil || got.Due != nil {
		t.Error("expected task to keep no due date")
	}
}

func TestTUIEditNotes(t *testing.T) {
	model, _, engine := newTestModel(t)
	tm := teatest.NewTestModel(t, model, teatest.WithInitialTermSize(80, 24))

	time.Sleep(100 * time.Millisecond)

	sendRunesAndWait(tm, []rune{'n'})
	for _, r := range "bring the slides" {
		tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	sendKeyAndWait(tm, tea.KeyMsg{Type: tea.KeyEnter})

	sendRunesAndWait(tm, []rune{'q'})
	tm.WaitFinished(t, teatest.WithFinalTimeout(time.Second))

	if got := engine.Task("list-1", "task-1"); got == nil || got.Notes != "bring the slides" {
		t.Errorf("expected notes in the cache, got %+v", got)
	}
}

func TestTUIDeleteTask(t *testing.T) {
	model, _, engine := newTestModel(t)
	tm := teatest.NewTestModel(t, model, teatest.WithInitialTermSize(80, 24))

	time.Sleep(100 * time.Millisecond)

	sendRunesAndWait(tm, []rune{'d'})
	sendRunesAndWait(tm, []rune{'y'})
	sendRunesAndWait(tm, []rune{'q'})

	out := readAll(t, tm.FinalOutput(t, teatest.WithFinalTimeout(time.Second)))
	outStr := string(out)
	lastFrame := outStr
	if idx := strings.LastIndex(outStr, "[15A"); idx != -1 {
		lastFrame = outStr[idx:]
	}
	if strings.Contains(lastFrame, "Review proposal") {
		t.Errorf("expected task removed from final frame, got:\n%s", lastFrame)
	}

	for _, task := range engine.Tasks("list-1") {
		if task.ID == "task-1" {
			t.Error("expected tombstoned task hidden from reads")
		}
	}
}

func TestTUIDeleteCancelled(t *testing.T) {
	model, _, engine := newTestModel(t)
	tm := teatest.NewTestModel(t, model, teatest.WithInitialTermSize(80, 24))

	time.Sleep(100 * time.Millisecond)

	sendRunesAndWait(tm, []rune{'d'})
	sendRunesAndWait(tm, []rune{'n'})
	sendRunesAndWait(tm, []rune{'q'})
	tm.WaitFinished(t, teatest.WithFinalTimeout(time.Second))

	if got := engine.Task("list-1", "task-1"); got == nil {
		t.Error("expected task to survive a cancelled delete")
	}
	if engine.Dirty() {
		t.Error("expected no dirty flag after a cancelled delete")
	}
}

// --- List Tests ---

func TestTUIAddList(t *testing.T) {
	model, _, engine := newTestModel(t)
	tm := teatest.NewTestModel(t, model, teatest.WithInitialTermSize(80, 24))

	time.Sleep(100 * time.Millisecond)

	sendRunesAndWait(tm, []rune{'A'})
	for _, r := range "Errands" {
		tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	sendKeyAndWait(tm, tea.KeyMsg{Type: tea.KeyEnter})

	sendRunesAndWait(tm, []rune{'q'})
	tm.WaitFinished(t, teatest.WithFinalTimeout(time.Second))

	var found bool
	for _, list := range engine.Lists() {
		if list.Title == "Errands" {
			found = true
			if !list.ID.Provisional() {
				t.Errorf("expected provisional list ID, got %q", list.ID)
			}
		}
	}
	if !found {
		t.Error("expected new list in the cache")
	}
}

func TestTUIDeleteList(t *testing.T) {
	model, _, engine := newTestModel(t)
	tm := teatest.NewTestModel(t, model, teatest.WithInitialTermSize(80, 24))

	time.Sleep(100 * time.Millisecond)

	sendKeyAndWait(tm, tea.KeyMsg{Type: tea.KeyTab})
	sendRunesAndWait(tm, []rune{'d'})
	sendRunesAndWait(tm, []rune{'y'})
	sendRunesAndWait(tm, []rune{'q'})
	tm.WaitFinished(t, teatest.WithFinalTimeout(time.Second))

	for _, list := range engine.Lists() {
		if list.ID == "list-1" {
			t.Error("expected deleted list hidden from reads")
		}
	}
}

// --- Sync Tests ---

func TestTUISync(t *testing.T) {
	model, remote, engine := newTestModel(t)
	tm := teatest.NewTestModel(t, model, teatest.WithInitialTermSize(80, 24))

	time.Sleep(100 * time.Millisecond)

	sendRunesAndWait(tm, []rune{'a'})
	for _, r := range "Ship release" {
		tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	sendKeyAndWait(tm, tea.KeyMsg{Type: tea.KeyEnter})

	sendRunesAndWait(tm, []rune{'s'})
	time.Sleep(100 * time.Millisecond)

	sendRunesAndWait(tm, []rune{'q'})

	out := readAll(t, tm.FinalOutput(t, teatest.WithFinalTimeout(time.Second)))
	if !bytes.Contains(out, []byte("synced")) {
		t.Error("expected a sync summary in the status bar")
	}
	if engine.Dirty() {
		t.Error("expected dirty flag cleared after sync")
	}

	var found bool
	for _, task := range remote.tasks["list-1"] {
		if task.Title == "Ship release" {
			found = true
		}
	}
	if !found {
		t.Error("expected new task pushed to the remote")
	}
}

// --- Help and Quit Tests ---

func TestTUIKeyBindings(t *testing.T) {
	model, _, _ := newTestModel(t)
	tm := teatest.NewTestModel(t, model, teatest.WithInitialTermSize(80, 24))

	time.Sleep(100 * time.Millisecond)

	sendRunesAndWait(tm, []rune{'?'})
	sendKeyAndWait(tm, tea.KeyMsg{Type: tea.KeyEsc})
	sendRunesAndWait(tm, []rune{'q'})

	out := readAll(t, tm.FinalOutput(t, teatest.WithFinalTimeout(time.Second)))
	if !bytes.Contains(out, []byte("Key Bindings")) {
		t.Error("expected help panel to show key bindings")
	}
}

func TestTUIQuit(t *testing.T) {
	model, _, _ := newTestModel(t)
	tm := teatest.NewTestModel(t, model, teatest.WithInitialTermSize(80, 24))

	time.Sleep(100 * time.Millisecond)
	sendRunesAndWait(tm, []rune{'q'})
	tm.WaitFinished(t, teatest.WithFinalTimeout(time.Second))
}
