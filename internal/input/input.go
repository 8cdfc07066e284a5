package input

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mahlburgc/armterm/events"
	"github.com/mahlburgc/armterm/internal/keymap"
	"github.com/mahlburgc/armterm/internal/styles"
)

const (
	connectedPlaceholder    = "Angle, pose (S1 90,S2 45) or /filter, enter sends..."
	disconnectedPlaceholder = "Disconnected, angles are applied locally..."
	connectingPlaceholder   = "Connecting..."
)

type Model struct {
	Ta textarea.Model
}

// New creates the input line for angles, poses and log filters.
func New() (m Model) {
	m.Ta = textarea.New()
	m.Ta.SetWidth(30)
	m.Ta.SetHeight(1)
	m.Ta.Placeholder = disconnectedPlaceholder
	m.Ta.Focus()
	m.Ta.Prompt = "> "
	m.Ta.CharLimit = 256
	m.Ta.ShowLineNumbers = false
	m.Ta.KeyMap.InsertNewline.SetEnabled(false)
	m.Ta.Cursor.Style = styles.CursorStyle
	m.Ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	m.Ta.FocusedStyle.Placeholder = styles.FocusedPlaceholderStyle
	m.Ta.FocusedStyle.Prompt = styles.FocusedPromtStyle
	m.Ta.BlurredStyle.Prompt = styles.BlurredPromtStyle
	m.Ta.FocusedStyle.Base = styles.BorderStyle
	m.Ta.BlurredStyle.Base = styles.BorderStyle

	return m
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {

	case events.ConnectionStatusMsg:
		switch msg.Status {
		case events.Disconnected:
			m.Ta.Placeholder = disconnectedPlaceholder
		case events.Connected:
			m.Ta.Placeholder = connectedPlaceholder
		case events.Connecting:
			m.Ta.Placeholder = connectingPlaceholder
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keymap.Default.SendKey):
			value := m.Ta.Value()
			m.Ta.Reset()
			return m, func() tea.Msg {
				return events.InputSubmittedMsg(value)
			}

		case key.Matches(msg, keymap.Default.ResetKey):
			m.Ta.Reset()
			return m, nil
		}

	case events.PoseSelectedMsg:
		if string(msg) == "" {
			m.Ta.Reset()
		} else {
			m.SetValue(string(msg))
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.Ta, cmd = m.Ta.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	return m.Ta.View()
}

func (m *Model) SetValue(value string) {
	m.Ta.SetValue(value)
	m.Ta.CursorEnd()
}

func (m *Model) SetWidth(w int) {
	m.Ta.SetWidth(w)
}
