package tui

import (
	"net/http"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"github.com/idilsaglam/simpletodo/internal/api"
	"github.com/idilsaglam/simpletodo/internal/apitest"
	"github.com/idilsaglam/simpletodo/internal/cache"
	"github.com/idilsaglam/simpletodo/internal/model"
	"github.com/idilsaglam/simpletodo/internal/todos"
)

func newModel(t *testing.T, seed ...model.Todo) (Model, *apitest.Server) {
	t.Helper()
	srv := apitest.NewServer(t, seed...)
	c, err := api.New(srv.URL)
	if err != nil {
		t.Fatalf("Could not create client: %s", err)
	}
	return New(todos.NewService(c, cache.NewMemory(), time.Minute)), srv
}

// collect runs cmd and returns the messages this package produces.
// Timers (cursor blink, spinner) are dropped.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	var msg tea.Msg
	select {
	case msg = <-ch:
	case <-time.After(300 * time.Millisecond):
		return nil
	}
	switch msg := msg.(type) {
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, collect(c)...)
		}
		return out
	case loadedMsg, loadFailedMsg, mutatedMsg, mutationFailedMsg, listMsg:
		return []tea.Msg{msg}
	}
	return nil
}

// settle feeds the results of cmd back into the model until nothing is left.
func settle(m Model, cmd tea.Cmd) Model {
	for _, msg := range collect(cmd) {
		next, c := m.Update(msg)
		m = settle(next.(Model), c)
	}
	return m
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func press(m Model, k string) (Model, tea.Cmd) {
	next, cmd := m.Update(keyMsg(k))
	return next.(Model), cmd
}

func loaded(t *testing.T, seed ...model.Todo) (Model, *apitest.Server) {
	t.Helper()
	m, srv := newModel(t, seed...)
	m = settle(m, m.Init())
	if m.state != stateReady {
		t.Fatalf("Expected ready state after init, got %v (err=%v)", m.state, m.err)
	}
	return m, srv
}

func listTodos(m Model, i int) []model.Todo {
	var out []model.Todo
	for _, it := range m.lists[i].Items() {
		out = append(out, it.(listItem).todo)
	}
	return out
}

func TestInitSplitsSections(t *testing.T) {
	m, _ := loaded(t,
		model.Todo{ID: 1, Todo: "Buy milk"},
		model.Todo{ID: 2, Todo: "Walk the dog", Done: true},
		model.Todo{ID: 3, Todo: "Call mum"},
	)
	if diff := cmp.Diff([]model.Todo{{ID: 1, Todo: "Buy milk"}, {ID: 3, Todo: "Call mum"}}, listTodos(m, 0)); diff != "" {
		t.Errorf("Unexpected active list (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]model.Todo{{ID: 2, Todo: "Walk the dog", Done: true}}, listTodos(m, 1)); diff != "" {
		t.Errorf("Unexpected done list (-want +got):\n%s", diff)
	}
	if v := m.View(); !strings.Contains(v, "Simple To Do") {
		t.Errorf("Expected header in view, got:\n%s", v)
	}
}

func TestFetchFailureShowsErrorState(t *testing.T) {
	m, srv := newModel(t, model.Todo{ID: 1, Todo: "a"})
	srv.FailNext(http.MethodGet, http.StatusInternalServerError)
	m = settle(m, m.Init())

	if m.state != stateError {
		t.Fatalf("Expected error state, got %v", m.state)
	}
	if v := m.View(); !strings.Contains(v, "Could not load to-dos") || strings.Contains(v, "Active") {
		t.Errorf("Expected error view without lists, got:\n%s", v)
	}

	m, cmd := press(m, "r")
	if m.state != stateLoading {
		t.Fatalf("Expected loading state after retry, got %v", m.state)
	}
	m = settle(m, cmd)
	if m.state != stateReady || len(listTodos(m, 0)) != 1 {
		t.Errorf("Expected ready state with one item, got %v %+v", m.state, listTodos(m, 0))
	}
}

func TestCreate(t *testing.T) {
	m, srv := loaded(t, model.Todo{ID: 1, Todo: "a"})

	m, _ = press(m, "Buy milk")
	m, cmd := press(m, "enter")
	if m.input.Value() != "" {
		t.Errorf("Expected input cleared on submit, got %q", m.input.Value())
	}
	m = settle(m, cmd)

	found := 0
	for _, it := range listTodos(m, 0) {
		if it.Todo == "Buy milk" {
			found++
		}
	}
	if found != 1 {
		t.Errorf("Expected new item exactly once, found %d in %+v", found, listTodos(m, 0))
	}
	if n := srv.Calls(http.MethodPost); n != 1 {
		t.Errorf("Expected 1 POST, got %d", n)
	}
}

func TestCreateEmptyIsIgnored(t *testing.T) {
	m, srv := loaded(t)
	m, _ = press(m, "   ")
	_, cmd := press(m, "enter")
	if cmd != nil {
		t.Errorf("Expected no command for blank input")
	}
	if n := srv.Calls(http.MethodPost); n != 0 {
		t.Errorf("Expected no POST, got %d", n)
	}
}

func TestToggleMovesItem(t *testing.T) {
	m, _ := loaded(t, model.Todo{ID: 7, Todo: "Read"}, model.Todo{ID: 8, Todo: "Write"})

	m, _ = press(m, "tab")
	if m.focus != paneActive {
		t.Fatalf("Expected active list focus, got %v", m.focus)
	}
	m, cmd := press(m, " ")
	m = settle(m, cmd)

	if diff := cmp.Diff([]model.Todo{{ID: 8, Todo: "Write"}}, listTodos(m, 0)); diff != "" {
		t.Errorf("Unexpected active list (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]model.Todo{{ID: 7, Todo: "Read", Done: true}}, listTodos(m, 1)); diff != "" {
		t.Errorf("Unexpected done list (-want +got):\n%s", diff)
	}

	m, _ = press(m, "tab")
	if m.focus != paneDone {
		t.Fatalf("Expected done list focus, got %v", m.focus)
	}
	m, cmd = press(m, " ")
	m = settle(m, cmd)
	if len(listTodos(m, 1)) != 0 || len(listTodos(m, 0)) != 2 {
		t.Errorf("Expected item back in active, got active=%+v done=%+v", listTodos(m, 0), listTodos(m, 1))
	}
}

func TestDelete(t *testing.T) {
	m, srv := loaded(t, model.Todo{ID: 1, Todo: "a"}, model.Todo{ID: 2, Todo: "b"})
	m, _ = press(m, "tab")
	m, cmd := press(m, "d")
	m = settle(m, cmd)

	if diff := cmp.Diff([]model.Todo{{ID: 2, Todo: "b"}}, listTodos(m, 0)); diff != "" {
		t.Errorf("Unexpected active list (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]model.Todo{{ID: 2, Todo: "b"}}, srv.Todos()); diff != "" {
		t.Errorf("Unexpected backend state (-want +got):\n%s", diff)
	}
}

func TestFailedMutationShowsBlockingAlert(t *testing.T) {
	m, srv := loaded(t, model.Todo{ID: 1, Todo: "a"})
	srv.FailNext(http.MethodDelete, http.StatusInternalServerError)

	m, _ = press(m, "tab")
	m, cmd := press(m, "d")
	m = settle(m, cmd)

	const expected = "Something went wrong when trying to delete To Do"
	if m.alert != expected {
		t.Fatalf(`Expected alert "%s", got "%s"`, expected, m.alert)
	}
	if !strings.Contains(m.View(), expected) {
		t.Errorf("Alert not rendered")
	}

	m, cmd = press(m, "d")
	if cmd != nil || srv.Calls(http.MethodDelete) != 1 {
		t.Errorf("Expected keys to be swallowed while the alert is shown")
	}
	m, _ = press(m, "enter")
	if m.alert != "" {
		t.Errorf("Expected alert dismissed, got %q", m.alert)
	}
	if len(listTodos(m, 0)) != 1 {
		t.Errorf("Item should still be listed after a failed delete")
	}
}

func TestFormKeysDoNotTriggerListActions(t *testing.T) {
	m, srv := loaded(t, model.Todo{ID: 1, Todo: "a"})
	m, cmd := press(m, "d")
	settle(m, cmd)
	if n := srv.Calls(http.MethodDelete); n != 0 {
		t.Errorf("Typing in the form deleted an item")
	}
	if m.input.Value() != "d" {
		t.Errorf(`Expected "d" in input, got %q`, m.input.Value())
	}
}

func TestQuit(t *testing.T) {
	m, _ := loaded(t)
	m, _ = press(m, "tab")
	_, cmd := press(m, "q")
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("Expected tea.QuitMsg")
	}
}

func TestTabCyclesFocus(t *testing.T) {
	m, _ := loaded(t, model.Todo{ID: 1, Todo: "a"})
	for _, expected := range []pane{paneActive, paneDone, paneForm} {
		m, _ = press(m, "tab")
		if m.focus != expected {
			t.Fatalf("Expected focus %v, got %v", expected, m.focus)
		}
	}
	if !m.input.Focused() {
		t.Errorf("Expected the input focused after cycling back to the form")
	}
}

func TestFilteredSelection(t *testing.T) {
	seed := []model.Todo{
		{ID: 1, Todo: "Buy milk"},
		{ID: 2, Todo: "Walk dog"},
		{ID: 3, Todo: "Buy bread"},
	}
	tests := map[string]struct {
		filter          string
		key             string
		expectedBackend []model.Todo
	}{
		"toggle": {
			filter: "dog",
			key:    " ",
			expectedBackend: []model.Todo{
				{ID: 1, Todo: "Buy milk"},
				{ID: 2, Todo: "Walk dog", Done: true},
				{ID: 3, Todo: "Buy bread"},
			},
		},
		"delete": {
			filter: "bread",
			key:    "d",
			expectedBackend: []model.Todo{
				{ID: 1, Todo: "Buy milk"},
				{ID: 2, Todo: "Walk dog"},
			},
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			m, srv := loaded(t, seed...)
			m, _ = press(m, "tab")

			m, cmd := press(m, "/")
			m = settle(m, cmd)
			m, cmd = press(m, tt.filter)
			m = settle(m, cmd)
			m, cmd = press(m, "enter")
			m = settle(m, cmd)
			if got := m.lists[0].VisibleItems(); len(got) != 1 {
				t.Fatalf("Expected one visible item for %q, got %d", tt.filter, len(got))
			}

			m, cmd = press(m, tt.key)
			m = settle(m, cmd)
			if diff := cmp.Diff(tt.expectedBackend, srv.Todos()); diff != "" {
				t.Errorf("Unexpected backend state (-want +got):\n%s", diff)
			}
			if m.state != stateReady {
				t.Errorf("Expected ready state, got %v", m.state)
			}
		})
	}
}

func TestRefetchFailureAfterMutationShowsErrorState(t *testing.T) {
	m, srv := loaded(t, model.Todo{ID: 1, Todo: "a"})
	m, _ = press(m, "tab")
	srv.FailNext(http.MethodGet, http.StatusInternalServerError)

	m, cmd := press(m, "d")
	m = settle(m, cmd)

	if m.state != stateError {
		t.Fatalf("Expected error state after a failed refetch, got %v", m.state)
	}
	if m.alert != "" {
		t.Errorf("The delete itself succeeded, expected no alert, got %q", m.alert)
	}
	if len(srv.Todos()) != 0 {
		t.Errorf("Expected the item deleted on the backend, got %+v", srv.Todos())
	}
}

func TestEdit(t *testing.T) {
	m, srv := loaded(t, model.Todo{ID: 1, Todo: "Buy milk"}, model.Todo{ID: 2, Todo: "Walk"})
	m, _ = press(m, "tab")

	m, _ = press(m, "e")
	if m.focus != paneForm || m.editing == nil {
		t.Fatalf("Expected edit mode in the form, got focus %v", m.focus)
	}
	if m.input.Value() != "Buy milk" {
		t.Errorf(`Expected the item text in the input, got %q`, m.input.Value())
	}

	m.input.SetValue("Buy oat milk")
	m, cmd := press(m, "enter")
	m = settle(m, cmd)

	if diff := cmp.Diff([]model.Todo{{ID: 1, Todo: "Buy oat milk"}, {ID: 2, Todo: "Walk"}}, listTodos(m, 0)); diff != "" {
		t.Errorf("Unexpected active list (-want +got):\n%s", diff)
	}
	if n := srv.Calls(http.MethodPut); n != 1 {
		t.Errorf("Expected 1 PUT, got %d", n)
	}
	if m.editing != nil || m.focus != paneActive || m.input.Prompt != newPrompt {
		t.Errorf("Expected edit mode left and focus back on the list, got focus %v prompt %q", m.focus, m.input.Prompt)
	}
}

func TestEditRejectsEmptyText(t *testing.T) {
	m, srv := loaded(t, model.Todo{ID: 1, Todo: "Buy milk"})
	m, _ = press(m, "tab")
	m, _ = press(m, "e")

	m.input.SetValue("   ")
	m, cmd := press(m, "enter")
	if cmd != nil {
		t.Errorf("Expected no command for blank text")
	}
	if m.editErr == "" || !strings.Contains(m.View(), m.editErr) {
		t.Errorf("Expected the edit error rendered, got %q", m.editErr)
	}

	m, _ = press(m, "esc")
	if m.editing != nil || m.focus != paneActive {
		t.Errorf("Expected esc to cancel the edit, got focus %v", m.focus)
	}
	if n := srv.Calls(http.MethodPut); n != 0 {
		t.Errorf("Expected no PUT, got %d", n)
	}
	if diff := cmp.Diff([]model.Todo{{ID: 1, Todo: "Buy milk"}}, srv.Todos()); diff != "" {
		t.Errorf("Unexpected backend state (-want +got):\n%s", diff)
	}
}

func TestUndoRestoresDeletedItem(t *testing.T) {
	m, srv := loaded(t, model.Todo{ID: 1, Todo: "a"}, model.Todo{ID: 2, Todo: "b", Done: true})
	m, _ = press(m, "tab")
	m, _ = press(m, "tab")

	m, cmd := press(m, "d")
	m = settle(m, cmd)
	if len(listTodos(m, 1)) != 0 {
		t.Fatalf("Expected done list empty after delete, got %+v", listTodos(m, 1))
	}

	m, cmd = press(m, "u")
	m = settle(m, cmd)

	restored := listTodos(m, 1)
	if len(restored) != 1 || restored[0].Todo != "b" || !restored[0].Done {
		t.Errorf("Expected b restored as done, got %+v", restored)
	}
	if len(srv.Todos()) != 2 {
		t.Errorf("Expected 2 items on the backend, got %+v", srv.Todos())
	}

	_, cmd = press(m, "u")
	if cmd != nil {
		t.Errorf("Expected a single level of undo")
	}
}
