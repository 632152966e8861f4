// Package tui provides a terminal user interface over the cache engine.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"taskdeck/backend"
	"taskdeck/internal/cache"
)

// Engine is the cache-engine surface the TUI consumes. Every call is
// a synchronous cache-only operation except Sync, which talks to the
// remote service and runs as a tea.Cmd.
type Engine interface {
	Lists() []backend.TaskList
	Tasks(listID backend.ID) []backend.Task
	AddTask(listID backend.ID, title string) *backend.Task
	ToggleTask(listID, taskID backend.ID) *backend.Task
	RenameTask(listID, taskID backend.ID, title string) *backend.Task
	SetTaskDue(listID, taskID backend.ID, due string) (*backend.Task, error)
	SetTaskNotes(listID, taskID backend.ID, notes string) *backend.Task
	DeleteTask(listID, taskID backend.ID) bool
	AddList(title string) *backend.TaskList
	RenameList(listID backend.ID, title string) bool
	DeleteList(listID backend.ID) bool
	SetActiveList(listID backend.ID) bool
	Dirty() bool
	Sync(ctx context.Context) cache.SyncResult
}

// Focus indicates which pane has focus
type Focus int

const (
	FocusLists Focus = iota
	FocusTasks
)

// Mode indicates the current input mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeAddTask
	ModeRenameTask
	ModeDue
	ModeNotes
	ModeAddList
	ModeRenameList
	ModeConfirmDelete
	ModeHelp
)

// syncDoneMsg carries the result of a sync run back into the model.
type syncDoneMsg struct {
	res cache.SyncResult
}

// Model represents the TUI state
type Model struct {
	engine Engine
	ctx    context.Context

	// Data, re-read from the engine after every operation
	lists []backend.TaskList
	tasks []backend.Task

	// Selection
	listCursor int
	taskCursor int
	focus      Focus

	// Mode and input
	mode      Mode
	textInput textinput.Model
	status    string
	syncing   bool

	// UI dimensions
	width  int
	height int

	// Styles
	listPaneStyle  lipgloss.Style
	taskPaneStyle  lipgloss.Style
	selectedStyle  lipgloss.Style
	completedStyle lipgloss.Style
	dueStyle       lipgloss.Style
	helpStyle      lipgloss.Style
	dialogStyle    lipgloss.Style
	statusBarStyle lipgloss.Style
}

// New creates a new TUI model
func New(engine Engine) *Model {
	ti := textinput.New()
	ti.Placeholder = "Enter text..."
	ti.CharLimit = 256

	m := &Model{
		engine:    engine,
		ctx:       context.Background(),
		textInput: ti,
		focus:     FocusTasks,
		mode:      ModeNormal,
		listPaneStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		taskPaneStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		selectedStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		completedStyle: lipgloss.NewStyle().
			Strikethrough(true).
			Foreground(lipgloss.Color("240")),
		dueStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")),
		helpStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		dialogStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2),
		statusBarStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1),
	}
	m.reload()
	return m
}

// Init initializes the TUI
func (m *Model) Init() tea.Cmd {
	return nil
}

// reload re-reads lists and the selected list's tasks from the engine.
func (m *Model) reload() {
	m.lists = m.engine.Lists()
	if m.listCursor >= len(m.lists) {
		m.listCursor = 0
	}
	if len(m.lists) == 0 {
		m.tasks = nil
		return
	}
	m.engine.SetActiveList(m.lists[m.listCursor].ID)
	m.tasks = m.engine.Tasks(m.lists[m.listCursor].ID)
	if m.taskCursor >= len(m.tasks) {
		m.taskCursor = 0
	}
}

func (m *Model) selectedList() *backend.TaskList {
	if len(m.lists) == 0 || m.listCursor >= len(m.lists) {
		return nil
	}
	return &m.lists[m.listCursor]
}

func (m *Model) selectedTask() *backend.Task {
	if len(m.tasks) == 0 || m.taskCursor >= len(m.tasks) {
		return nil
	}
	return &m.tasks[m.taskCursor]
}

func (m *Model) runSync() tea.Cmd {
	m.syncing = true
	m.status = "syncing..."
	return func() tea.Msg {
		return syncDoneMsg{res: m.engine.Sync(m.ctx)}
	}
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case syncDoneMsg:
		m.syncing = false
		m.status = fmt.Sprintf("synced: %d created, %d updated, %d deleted",
			msg.res.Created, msg.res.Updated, msg.res.Deleted)
		if msg.res.Failed > 0 {
			m.status += fmt.Sprintf(", %d postponed", msg.res.Failed)
		}
		m.reload()
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case ModeNormal:
			return m.handleNormalMode(msg)
		case ModeConfirmDelete:
			return m.handleConfirmDeleteMode(msg)
		case ModeHelp:
			return m.handleHelpMode(msg)
		default:
			return m.handleInputMode(msg)
		}
	}

	return m, nil
}

func (m *Model) handleNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "tab":
		if m.focus == FocusLists {
			m.focus = FocusTasks
		} else {
			m.focus = FocusLists
		}
		return m, nil

	case "up", "k":
		if m.focus == FocusLists {
			if m.listCursor > 0 {
				m.listCursor--
				m.taskCursor = 0
				m.reload()
			}
		} else if m.taskCursor > 0 {
			m.taskCursor--
		}
		return m, nil

	case "down", "j":
		if m.focus == FocusLists {
			if m.listCursor < len(m.lists)-1 {
				m.listCursor++
				m.taskCursor = 0
				m.reload()
			}
		} else if m.taskCursor < len(m.tasks)-1 {
			m.taskCursor++
		}
		return m, nil

	case "a":
		if m.selectedList() == nil {
			m.status = "create a list first (A)"
			return m, nil
		}
		return m.enterInputMode(ModeAddTask, "New task title...", ""), nil

	case "A":
		return m.enterInputMode(ModeAddList, "New list title...", ""), nil

	case "r":
		if m.focus == FocusLists {
			if list := m.selectedList(); list != nil {
				return m.enterInputMode(ModeRenameList, "List title...", list.Title), nil
			}
			return m, nil
		}
		if task := m.selectedTask(); task != nil {
			return m.enterInputMode(ModeRenameTask, "Task title...", task.Title), nil
		}
		return m, nil

	case "t":
		if task := m.selectedTask(); task != nil {
			current := ""
			if task.Due != nil {
				current = task.Due.Format("2006-01-02")
			}
			return m.enterInputMode(ModeDue, "Due date (YYYY-MM-DD)...", current), nil
		}
		return m, nil

	case "n":
		if task := m.selectedTask(); task != nil {
			return m.enterInputMode(ModeNotes, "Notes...", task.Notes), nil
		}
		return m, nil

	case "c":
		if list, task := m.selectedList(), m.selectedTask(); list != nil && task != nil {
			m.engine.ToggleTask(list.ID, task.ID)
			m.reload()
		}
		return m, nil

	case "d":
		if m.focus == FocusLists && m.selectedList() != nil {
			m.mode = ModeConfirmDelete
		} else if m.focus == FocusTasks && m.selectedTask() != nil {
			m.mode = ModeConfirmDelete
		}
		return m, nil

	case "s":
		if m.syncing {
			return m, nil
		}
		return m, m.runSync()

	case "?":
		m.mode = ModeHelp
		return m, nil
	}

	return m, nil
}

func (m *Model) enterInputMode(mode Mode, placeholder, value string) *Model {
	m.mode = mode
	m.textInput.Reset()
	m.textInput.Placeholder = placeholder
	m.textInput.SetValue(value)
	m.textInput.Focus()
	return m
}

func (m *Model) handleInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		value := m.textInput.Value()
		mode := m.mode
		m.mode = ModeNormal
		if value != "" {
			m.applyInput(mode, value)
		}
		m.reload()
		return m, nil

	case tea.KeyEsc:
		m.mode = ModeNormal
		return m, nil
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m *Model) applyInput(mode Mode, value string) {
	list := m.selectedList()
	task := m.selectedTask()

	switch mode {
	case ModeAddTask:
		if list != nil {
			m.engine.AddTask(list.ID, value)
		}
	case ModeAddList:
		m.engine.AddList(value)
	case ModeRenameTask:
		if list != nil && task != nil {
			m.engine.RenameTask(list.ID, task.ID, value)
		}
	case ModeRenameList:
		if list != nil {
			m.engine.RenameList(list.ID, value)
		}
	case ModeDue:
		if list != nil && task != nil {
			if _, err := m.engine.SetTaskDue(list.ID, task.ID, value); errors.Is(err, backend.ErrInvalidDue) {
				m.status = fmt.Sprintf("invalid due date: %q", value)
			}
		}
	case ModeNotes:
		if list != nil && task != nil {
			m.engine.SetTaskNotes(list.ID, task.ID, value)
		}
	}
}

func (m *Model) handleConfirmDeleteMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		if m.focus == FocusLists {
			if list := m.selectedList(); list != nil {
				m.engine.DeleteList(list.ID)
			}
		} else if list, task := m.selectedList(), m.selectedTask(); list != nil && task != nil {
			m.engine.DeleteTask(list.ID, task.ID)
		}
		m.mode = ModeNormal
		m.reload()
		return m, nil

	case "n", "N", "esc":
		m.mode = ModeNormal
		return m, nil
	}

	if msg.Type == tea.KeyEsc {
		m.mode = ModeNormal
	}
	return m, nil
}

func (m *Model) handleHelpMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = ModeNormal
	return m, nil
}

// View renders the TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		m.width = 80
		m.height = 24
	}

	switch m.mode {
	case ModeAddTask, ModeRenameTask, ModeDue, ModeNotes, ModeAddList, ModeRenameList:
		return m.renderInputDialog()
	case ModeConfirmDelete:
		return m.renderConfirmDeleteDialog()
	case ModeHelp:
		return m.renderHelpDialog()
	}

	listWidth := m.width / 4
	taskWidth := m.width - listWidth - 4

	listPane := m.listPaneStyle.Width(listWidth).Height(m.height - 4).
		Render(m.renderListPane(listWidth - 4))
	taskPane := m.taskPaneStyle.Width(taskWidth).Height(m.height - 4).
		Render(m.renderTaskPane(taskWidth - 4))

	var b strings.Builder
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, listPane, taskPane))
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m *Model) renderListPane(width int) string {
	var b strings.Builder
	b.WriteString("Lists\n")
	b.WriteString(strings.Repeat("─", max(width, 1)))
	b.WriteString("\n")

	for i, list := range m.lists {
		cursor := " "
		title := list.Title
		if i == m.listCursor {
			if m.focus == FocusLists {
				cursor = ">"
			}
			title = m.selectedStyle.Render(title)
		}
		b.WriteString(cursor + " " + title + "\n")
	}
	if len(m.lists) == 0 {
		b.WriteString("No lists\n")
	}

	return b.String()
}

func (m *Model) renderTaskPane(width int) string {
	var b strings.Builder
	b.WriteString("Tasks\n")
	b.WriteString(strings.Repeat("─", max(width, 1)))
	b.WriteString("\n")

	if len(m.tasks) == 0 {
		b.WriteString("No tasks\n")
		return b.String()
	}

	for i, task := range m.tasks {
		cursor := " "
		if i == m.taskCursor && m.focus == FocusTasks {
			cursor = ">"
		}

		status := "[ ]"
		if task.Status == backend.StatusCompleted {
			status = "[✓]"
		}

		title := task.Title
		if task.Status == backend.StatusCompleted {
			title = m.completedStyle.Render(title)
		} else if i == m.taskCursor && m.focus == FocusTasks {
			title = m.selectedStyle.Render(title)
		}

		line := cursor + " " + status + " " + title
		if task.ID.Provisional() {
			line += " " + m.helpStyle.Render("*")
		}
		if task.Due != nil {
			line += " " + m.dueStyle.Render("("+task.Due.Format("Jan 02")+")")
		}
		b.WriteString(line + "\n")

		if task.Notes != "" && i == m.taskCursor && m.focus == FocusTasks {
			b.WriteString("      " + m.helpStyle.Render(task.Notes) + "\n")
		}
	}

	return b.String()
}

func (m *Model) renderStatusBar() string {
	left := ""
	if list := m.selectedList(); list != nil {
		left = list.Title
	}
	if m.engine.Dirty() {
		left += " ●"
	}
	if m.status != "" {
		left += "  " + m.status
	}

	right := "s:sync  q:quit  ?:help"

	padding := m.width - lipgloss.Width(left) - len(right) - 2
	if padding < 1 {
		padding = 1
	}
	return m.statusBarStyle.Width(m.width).Render(left + strings.Repeat(" ", padding) + right)
}

func (m *Model) renderInputDialog() string {
	titles := map[Mode]string{
		ModeAddTask:    "Add Task",
		ModeRenameTask: "Rename Task",
		ModeDue:        "Set Due Date",
		ModeNotes:      "Edit Notes",
		ModeAddList:    "Add List",
		ModeRenameList: "Rename List",
	}

	dialog := m.dialogStyle.Render(
		titles[m.mode] + "\n\n" +
			m.textInput.View() + "\n\n" +
			m.helpStyle.Render("Enter: confirm  Esc: cancel"),
	)
	return m.centerDialog(dialog)
}

func (m *Model) renderConfirmDeleteDialog() string {
	subject := "task"
	if m.focus == FocusLists {
		subject = "list and its tasks"
	}
	dialog := m.dialogStyle.Render(
		"Delete selected " + subject + "?\n\n" +
			m.helpStyle.Render("y: yes  n: no"),
	)
	return m.centerDialog(dialog)
}

func (m *Model) renderHelpDialog() string {
	help := `Help - Key Bindings

Navigation:
  j/↓    Move down
  k/↑    Move up
  Tab    Switch focus between lists/tasks

Tasks:
  a      Add task
  r      Rename task (or list)
  c      Toggle completion
  t      Set due date
  n      Edit notes
  d      Delete (with confirm)

Lists:
  A      Add list

Sync:
  s      Sync with the remote service
         (* marks records not yet synced)

General:
  ?      Show this help
  q      Quit

Press any key to close`

	return m.centerDialog(m.dialogStyle.Render(help))
}

func (m *Model) centerDialog(dialog string) string {
	lines := strings.Split(dialog, "\n")
	topPad := (m.height - len(lines)) / 2
	leftPad := (m.width - lipgloss.Width(dialog)) / 2
	if topPad < 0 {
		topPad = 0
	}
	if leftPad < 0 {
		leftPad = 0
	}

	var b strings.Builder
	b.WriteString(strings.Repeat("\n", topPad))
	for _, line := range lines {
		b.WriteString(strings.Repeat(" ", leftPad))
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
