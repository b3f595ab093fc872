// Package tui is the interactive to-do screen: an input for new items and
// two lists, active and done, mirrored from the backend.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/idilsaglam/simpletodo/internal/logger"
	"github.com/idilsaglam/simpletodo/internal/model"
	"github.com/idilsaglam/simpletodo/internal/ui"
)

// Service is what the screen needs from the query layer. *todos.Service implements it.
type Service interface {
	List(ctx context.Context) ([]model.Todo, error)
	Create(ctx context.Context, text string) (model.Todo, error)
	Toggle(ctx context.Context, t model.Todo) (model.Todo, error)
	Update(ctx context.Context, t model.Todo) (model.Todo, error)
	Delete(ctx context.Context, id int) error
	Invalidate(ctx context.Context) error
}

type state int

const (
	stateLoading state = iota
	stateError
	stateReady
)

type pane int

const (
	paneForm pane = iota
	paneActive
	paneDone
)

const (
	newPrompt  = "New To Do: "
	editPrompt = "Edit To Do: "
)

// messages produced by commands
type (
	loadedMsg     struct{ todos []model.Todo }
	loadFailedMsg struct{ err error }
	mutatedMsg    struct {
		action  string
		removed *model.Todo
	}
	mutationFailedMsg struct{ err error }
	// listMsg carries a message back to the list whose command produced it.
	listMsg struct {
		i   int
		msg tea.Msg
	}
)

type Model struct {
	svc  Service
	keys keyMap

	state state
	err   error
	todos []model.Todo

	focus   pane
	lists   [2]list.Model // active, done
	input   textinput.Model
	spinner spinner.Model
	help    help.Model

	// editing is the item the form is rewriting; nil while adding.
	editing  *model.Todo
	editFrom pane
	editErr  string
	// lastDeleted can be restored once with u.
	lastDeleted *model.Todo

	// alert blocks all input until dismissed
	alert    string
	inFlight int

	width, height int
}

func New(svc Service) Model {
	m := Model{
		svc:     svc,
		keys:    defaultKeys(),
		state:   stateLoading,
		focus:   paneForm,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(accentStyle)),
		help:    help.New(),
		width:   80,
		height:  24,
	}
	for i, title := range []string{"Active", "Done"} {
		l := list.New(nil, itemDelegate{}, 0, 0)
		l.Title = title
		l.Styles.Title = titleStyle
		l.Styles.PaginationStyle = helpStyle
		l.SetShowHelp(false)
		l.SetShowStatusBar(true)
		l.SetFilteringEnabled(true)
		l.SetStatusBarItemName("item", "items")
		l.FilterInput.Prompt = "/ "
		l.KeyMap.Quit.SetEnabled(false)
		l.KeyMap.ForceQuit.SetEnabled(false)
		m.lists[i] = l
	}
	m.input = textinput.New()
	m.input.Prompt = newPrompt
	m.input.Placeholder = "What needs doing?"
	m.input.CharLimit = 200
	m.input.Focus()
	m.resize()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.fetch())
}

// ---------------- commands ----------------

func (m Model) fetch() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		todos, err := svc.List(context.Background())
		if err != nil {
			return loadFailedMsg{err: err}
		}
		return loadedMsg{todos: todos}
	}
}

func (m Model) refetch() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx := context.Background()
		if err := svc.Invalidate(ctx); err != nil {
			logger.Warn("refresh: invalidate failed", logrus.Fields{"error": err})
		}
		todos, err := svc.List(ctx)
		if err != nil {
			return loadFailedMsg{err: err}
		}
		return loadedMsg{todos: todos}
	}
}

func (m Model) create(text string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		if _, err := svc.Create(context.Background(), text); err != nil {
			return mutationFailedMsg{err: err}
		}
		return mutatedMsg{action: "create"}
	}
}

func (m Model) toggle(t model.Todo) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		if _, err := svc.Toggle(context.Background(), t); err != nil {
			return mutationFailedMsg{err: err}
		}
		return mutatedMsg{action: "update"}
	}
}

func (m Model) update(t model.Todo) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		if _, err := svc.Update(context.Background(), t); err != nil {
			return mutationFailedMsg{err: err}
		}
		return mutatedMsg{action: "update"}
	}
}

func (m Model) remove(t model.Todo) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		if err := svc.Delete(context.Background(), t.ID); err != nil {
			return mutationFailedMsg{err: err}
		}
		return mutatedMsg{action: "delete", removed: &t}
	}
}

// restore re-creates a deleted item. The backend assigns it a new id.
func (m Model) restore(t model.Todo) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx := context.Background()
		created, err := svc.Create(ctx, t.Todo)
		if err != nil {
			return mutationFailedMsg{err: err}
		}
		if t.Done {
			created.Done = true
			if _, err := svc.Update(ctx, created); err != nil {
				return mutationFailedMsg{err: err}
			}
		}
		return mutatedMsg{action: "create"}
	}
}

// forList tags the result of a list command so it is routed back to that list.
func forList(i int, cmd tea.Cmd) tea.Cmd {
	if cmd == nil {
		return nil
	}
	return func() tea.Msg { return listMsg{i: i, msg: cmd()} }
}

// ---------------- update ----------------

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadedMsg:
		m.state = stateReady
		m.err = nil
		cmd := m.setTodos(msg.todos)
		return m, cmd

	case loadFailedMsg:
		logger.Warn("fetch failed", logrus.Fields{"error": msg.err})
		m.state = stateError
		m.err = msg.err
		return m, nil

	case mutatedMsg:
		m.inFlight--
		if msg.removed != nil {
			m.lastDeleted = msg.removed
		}
		logger.Debug("mutation done", logrus.Fields{"action": msg.action})
		return m, m.fetch()

	case mutationFailedMsg:
		m.inFlight--
		logger.Error("mutation failed", logrus.Fields{"error": msg.err})
		m.alert = msg.err.Error()
		return m, nil

	case listMsg:
		if batch, ok := msg.msg.(tea.BatchMsg); ok {
			cmds := make([]tea.Cmd, 0, len(batch))
			for _, c := range batch {
				cmds = append(cmds, forList(msg.i, c))
			}
			return m, tea.Batch(cmds...)
		}
		var cmd tea.Cmd
		m.lists[msg.i], cmd = m.lists[msg.i].Update(msg.msg)
		return m, forList(msg.i, cmd)

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Force) {
			return m, tea.Quit
		}
		if m.alert != "" {
			if key.Matches(msg, m.keys.Dismiss) {
				m.alert = ""
			}
			return m, nil
		}
		switch m.state {
		case stateLoading:
			if key.Matches(msg, m.keys.Quit) {
				return m, tea.Quit
			}
			return m, nil
		case stateError:
			switch {
			case key.Matches(msg, m.keys.Quit):
				return m, tea.Quit
			case key.Matches(msg, m.keys.Refresh):
				m.state = stateLoading
				return m, tea.Batch(m.spinner.Tick, m.refetch())
			}
			return m, nil
		}
		if m.focus == paneForm {
			return m.updateForm(msg)
		}
		return m.updateList(msg)
	}

	if m.focus == paneForm {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	i := int(m.focus - paneActive)
	m.lists[i], cmd = m.lists[i].Update(msg)
	return m, forList(i, cmd)
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit) && m.editing != nil:
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			m.editErr = "Text cannot be empty"
			return m, nil
		}
		t := *m.editing
		cmd := m.endEdit()
		if text == t.Todo {
			return m, cmd
		}
		t.Todo = text
		m.inFlight++
		return m, tea.Batch(cmd, m.update(t))
	case key.Matches(msg, m.keys.Submit):
		text := strings.TrimSpace(m.input.Value())
		m.input.Reset()
		if text == "" {
			return m, nil
		}
		m.inFlight++
		return m, m.create(text)
	case key.Matches(msg, m.keys.Switch, m.keys.Back):
		if m.editing != nil {
			cmd := m.endEdit()
			return m, cmd
		}
		cmd := m.setFocus(paneActive)
		return m, cmd
	}
	m.editErr = ""
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	i := int(m.focus - paneActive)
	l := &m.lists[i]
	if l.FilterState() == list.Filtering {
		var cmd tea.Cmd
		*l, cmd = l.Update(msg)
		return m, forList(i, cmd)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Switch):
		next := paneDone
		if m.focus == paneDone {
			next = paneForm
		}
		cmd := m.setFocus(next)
		return m, cmd
	case key.Matches(msg, m.keys.Add):
		cmd := m.setFocus(paneForm)
		return m, cmd
	case key.Matches(msg, m.keys.Refresh):
		return m, m.refetch()
	case key.Matches(msg, m.keys.Toggle):
		if it, ok := l.SelectedItem().(listItem); ok {
			m.inFlight++
			return m, m.toggle(it.todo)
		}
		return m, nil
	case key.Matches(msg, m.keys.Delete):
		if it, ok := l.SelectedItem().(listItem); ok {
			m.inFlight++
			return m, m.remove(it.todo)
		}
		return m, nil
	case key.Matches(msg, m.keys.Edit):
		if it, ok := l.SelectedItem().(listItem); ok {
			cmd := m.startEdit(it.todo)
			return m, cmd
		}
		return m, nil
	case key.Matches(msg, m.keys.Undo):
		if m.lastDeleted == nil {
			return m, nil
		}
		t := *m.lastDeleted
		m.lastDeleted = nil
		m.inFlight++
		return m, m.restore(t)
	}
	var cmd tea.Cmd
	*l, cmd = l.Update(msg)
	return m, forList(i, cmd)
}

// startEdit loads t into the form; submitting PUTs the new text.
func (m *Model) startEdit(t model.Todo) tea.Cmd {
	m.editing = &t
	m.editFrom = m.focus
	m.editErr = ""
	m.input.Prompt = editPrompt
	m.input.SetValue(t.Todo)
	m.input.CursorEnd()
	m.resize()
	return m.setFocus(paneForm)
}

// endEdit leaves edit mode and returns focus to the list it started from.
func (m *Model) endEdit() tea.Cmd {
	from := m.editFrom
	m.editing = nil
	m.editErr = ""
	m.input.Prompt = newPrompt
	m.input.Reset()
	m.resize()
	return m.setFocus(from)
}

func (m *Model) setFocus(p pane) tea.Cmd {
	m.focus = p
	m.lists[0].SetDelegate(itemDelegate{focused: p == paneActive})
	m.lists[1].SetDelegate(itemDelegate{focused: p == paneDone})
	if p == paneForm {
		return m.input.Focus()
	}
	m.input.Blur()
	return nil
}

// setTodos replaces both lists from one source list, keeping each cursor in range.
func (m *Model) setTodos(todos []model.Todo) tea.Cmd {
	m.todos = todos
	active, done := model.Partition(todos)
	var cmds []tea.Cmd
	for i, part := range [][]model.Todo{active, done} {
		idx := m.lists[i].Index()
		cmds = append(cmds, forList(i, m.lists[i].SetItems(toItems(part))))
		if n := len(part); n > 0 {
			if idx >= n {
				idx = n - 1
			}
			m.lists[i].Select(idx)
		}
	}
	return tea.Batch(cmds...)
}

func (m *Model) resize() {
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	// header (2) + form frame (3) + help (1) + list frames (4)
	h := (m.height - 10) / 2
	if h < 3 {
		h = 3
	}
	for i := range m.lists {
		m.lists[i].SetSize(w, h)
	}
	m.input.Width = w - lipgloss.Width(m.input.Prompt) - 4
	m.help.Width = m.width
}

// ---------------- view ----------------

func (m Model) View() string {
	switch m.state {
	case stateLoading:
		return frameStyle.Render(m.spinner.View() + " Loading to-dos...")
	case stateError:
		body := errorStyle.Render("Could not load to-dos") + "\n" +
			mutedStyle.Render(m.err.Error()) + "\n\n" +
			helpStyle.Render("r retry • q quit")
		return frameStyle.Render(body)
	}

	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")

	form := frameStyle
	if m.focus == paneForm {
		form = focusedFrameStyle
	}
	input := m.input.View()
	if m.editErr != "" {
		input += "  " + errorStyle.Render(m.editErr)
	}
	b.WriteString(form.Render(input))
	b.WriteString("\n")

	for i := range m.lists {
		frame := frameStyle
		if m.focus == paneActive+pane(i) {
			frame = focusedFrameStyle
		}
		b.WriteString(frame.Render(m.lists[i].View()))
		b.WriteString("\n")
	}

	if m.alert != "" {
		b.WriteString(alertStyle.Render(errorStyle.Render(m.alert) + "\n" + helpStyle.Render("enter to dismiss")))
		return b.String()
	}
	bindings := m.keys.listHelp()
	switch {
	case m.editing != nil:
		bindings = m.keys.editHelp()
	case m.focus == paneForm:
		bindings = m.keys.formHelp()
	}
	b.WriteString(m.help.ShortHelpView(bindings))
	return b.String()
}

func (m Model) header() string {
	d, a := model.Stats(m.todos)
	title := fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		titleStyle.Render("Simple To Do"),
		successStyle.Render("✔"), d,
		pendingStyle.Render("•"), a,
		accentStyle.Render("Total"), len(m.todos),
	)
	if m.inFlight > 0 {
		title += "  " + m.spinner.View()
	}
	return title + "\n" + mutedStyle.Render(ui.ProgressBar(d, d+a, 28))
}
