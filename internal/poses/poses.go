// Package poses keeps the command lines sent during this session so a
// previous arm pose can be recalled. Nothing is stored on disk.
package poses

import (
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/mahlburgc/armterm/events"
	"github.com/mahlburgc/armterm/internal/keymap"
	"github.com/mahlburgc/armterm/internal/styles"
)

const zonePrefix = "pose-"

type Model struct {
	Vp    viewport.Model
	poses []string
	index int // len(poses) means nothing selected
	limit int
}

// New creates an empty history holding at most limit poses.
func New(limit int) (m Model) {
	m.Vp = viewport.New(30, 5)
	m.limit = max(limit, 1)
	return m
}

func (m Model) Index() int { return m.index }

func (m Model) Len() int { return len(m.poses) }

func (m Model) Poses() []string { return slices.Clone(m.poses) }

func (m Model) Selected() (string, bool) {
	if m.index < len(m.poses) {
		return m.poses[m.index], true
	}
	return "", false
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keymap.Default.DeletePoseKey):
			return m, m.deletePose()

		case key.Matches(msg, keymap.Default.PoseUpKey):
			return m, m.scrollUp()

		case key.Matches(msg, keymap.Default.PoseDownKey):
			return m, m.scrollDown()
		}

	case tea.MouseMsg:
		hit := -1
		for i := range m.poses {
			if zone.Get(zonePrefix + strconv.Itoa(i)).InBounds(msg) {
				hit = i
			}
		}
		if hit < 0 {
			return m, nil
		}
		m.index = hit
		c := m.updateView()

		if msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionRelease {
			return m, sendPoseExecutedMsg(m.poses[hit])
		}
		return m, c
	}
	return m, nil
}

func sendPoseSelectedMsg(pose string) tea.Cmd {
	return func() tea.Msg {
		return events.PoseSelectedMsg(pose)
	}
}

func sendPoseExecutedMsg(pose string) tea.Cmd {
	return func() tea.Msg {
		return events.PoseExecutedMsg(pose)
	}
}

func (m Model) View() string {
	return styles.AddBorder(m.Vp, "Poses", "", false)
}

func (m *Model) SetSize(width, height int) {
	borderWidth, borderHeight := styles.BorderStyle.GetFrameSize()
	m.Vp.Width = width - borderWidth
	m.Vp.Height = height - borderHeight
	m.ResetVp()
}

func (m *Model) scrollUp() tea.Cmd {
	if len(m.poses) == 0 {
		return nil
	}
	if m.index > 0 {
		m.index--
	}
	if m.index < m.Vp.YOffset {
		m.Vp.ScrollUp(1)
	}
	return m.updateView()
}

func (m *Model) scrollDown() tea.Cmd {
	if m.index >= len(m.poses) {
		return nil
	}
	m.index++
	if m.index < len(m.poses) {
		// keep the selection inside the visible area
		bottomEdge := m.Vp.YOffset + m.Vp.Height - 1
		if m.index > bottomEdge {
			m.Vp.ScrollDown(1)
		}
	}
	return m.updateView()
}

// updateView redraws the list and reports the selection; leaving the end
// of the list reports an empty pose.
func (m *Model) updateView() tea.Cmd {
	m.render()
	if m.index < len(m.poses) {
		return sendPoseSelectedMsg(m.poses[m.index])
	}
	return sendPoseSelectedMsg("")
}

func (m *Model) render() {
	lines := make([]string, len(m.poses))
	for i, pose := range m.poses {
		if i == m.index {
			lines[i] = zone.Mark(zonePrefix+strconv.Itoa(i), styles.SelectedPoseStyle.Render("> "+pose))
		} else {
			lines[i] = zone.Mark(zonePrefix+strconv.Itoa(i), pose)
		}
	}
	m.Vp.SetContent(lipgloss.NewStyle().Render(strings.Join(lines, "\n")))
}

func (m *Model) deletePose() tea.Cmd {
	if m.index == len(m.poses) {
		return nil
	}
	m.poses = slices.Delete(m.poses, m.index, m.index+1)
	m.ResetVp()
	return sendPoseSelectedMsg("")
}

// ResetVp clears the selection and scrolls to the newest pose.
func (m *Model) ResetVp() {
	m.index = len(m.poses)
	m.render()
	m.Vp.GotoBottom()
}

// Add appends a pose. A pose already in the history is moved to the end.
func (m *Model) Add(pose string) {
	if pose == "" {
		return
	}
	if i := slices.Index(m.poses, pose); i >= 0 {
		m.poses = slices.Delete(m.poses, i, i+1)
	}
	m.poses = append(m.poses, pose)
	if len(m.poses) > m.limit {
		m.poses = m.poses[len(m.poses)-m.limit:]
	}
	m.ResetVp()
}
