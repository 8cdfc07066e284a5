package poses

import (
	"os"
	"slices"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"github.com/mahlburgc/armterm/events"
)

func TestMain(m *testing.M) {
	zone.NewGlobal()
	os.Exit(m.Run())
}

func selected(t *testing.T, cmd tea.Cmd) string {
	t.Helper()
	if cmd == nil {
		t.Fatal("no command returned")
	}
	msg, ok := cmd().(events.PoseSelectedMsg)
	if !ok {
		t.Fatalf("command returned %T, want PoseSelectedMsg", cmd())
	}
	return string(msg)
}

func TestAdd_MovesDuplicateToEnd(t *testing.T) {
	m := New(10)
	m.Add("S1 10")
	m.Add("S1 20")
	m.Add("")
	m.Add("S1 10")

	if got, want := m.Poses(), []string{"S1 20", "S1 10"}; !slices.Equal(got, want) {
		t.Errorf("Poses() = %v, want %v", got, want)
	}
	if _, ok := m.Selected(); ok {
		t.Error("Add left a selection")
	}
}

func TestAdd_Limit(t *testing.T) {
	m := New(2)
	for _, p := range []string{"a", "b", "c"} {
		m.Add(p)
	}
	if got, want := m.Poses(), []string{"b", "c"}; !slices.Equal(got, want) {
		t.Errorf("Poses() = %v, want %v", got, want)
	}
}

func TestNavigation(t *testing.T) {
	m := New(10)
	m.SetSize(20, 10)
	m.Add("a")
	m.Add("b")

	var cmd tea.Cmd
	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	if got := selected(t, cmd); got != "b" {
		t.Errorf("first up selected %q, want b", got)
	}
	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	if got := selected(t, cmd); got != "a" {
		t.Errorf("second up selected %q, want a", got)
	}
	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	if got := selected(t, cmd); got != "a" {
		t.Errorf("up at top selected %q, want a", got)
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, cmd = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if got := selected(t, cmd); got != "" {
		t.Errorf("down past the end selected %q, want nothing", got)
	}
	if _, cmd = m.Update(tea.KeyMsg{Type: tea.KeyDown}); cmd != nil {
		t.Error("down with nothing selected returned a command")
	}
}

func TestDelete(t *testing.T) {
	m := New(10)
	m.Add("a")
	m.Add("b")

	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlD}); cmd != nil {
		t.Error("delete without selection returned a command")
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlD})
	if got := selected(t, cmd); got != "" {
		t.Errorf("delete selected %q, want nothing", got)
	}
	if got := m.Poses(); !slices.Equal(got, []string{"a"}) {
		t.Errorf("Poses() = %v after delete", got)
	}
}
