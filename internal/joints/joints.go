// Package joints renders the joint list with one angle gauge per joint.
package joints

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/mahlburgc/armterm/events"
	"github.com/mahlburgc/armterm/internal/arm"
	"github.com/mahlburgc/armterm/internal/keymap"
	"github.com/mahlburgc/armterm/internal/styles"
)

const (
	zonePrefix = "joint-"
	fastStep   = 10
	minBar     = 5
)

type Model struct {
	labels   []string
	angles   []int
	selected int
	width    int
}

func New(labels []string, angles []int) Model {
	return Model{labels: labels, angles: angles, width: 40}
}

func (m Model) Selected() int { return m.selected }

func (m *Model) SetAngles(angles []int) {
	m.angles = angles
}

func (m *Model) SetWidth(w int) {
	m.width = w
}

// Height is the number of lines View renders, border included.
func (m Model) Height() int {
	return len(m.labels) + 2
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keymap.Default.JointNextKey):
			m.selected = (m.selected + 1) % len(m.labels)

		case key.Matches(msg, keymap.Default.JointPrevKey):
			m.selected = (m.selected + len(m.labels) - 1) % len(m.labels)

		case key.Matches(msg, keymap.Default.AngleUpKey):
			return m, m.step(m.selected, 1)

		case key.Matches(msg, keymap.Default.AngleDownKey):
			return m, m.step(m.selected, -1)

		case key.Matches(msg, keymap.Default.AngleUpFastKey):
			return m, m.step(m.selected, fastStep)

		case key.Matches(msg, keymap.Default.AngleDownFastKey):
			return m, m.step(m.selected, -fastStep)
		}

	case tea.MouseMsg:
		for i := range m.labels {
			if !zone.Get(zonePrefix + strconv.Itoa(i)).InBounds(msg) {
				continue
			}
			switch msg.Button {
			case tea.MouseButtonWheelUp:
				return m, m.step(i, 1)
			case tea.MouseButtonWheelDown:
				return m, m.step(i, -1)
			case tea.MouseButtonLeft:
				if msg.Action == tea.MouseActionRelease {
					m.selected = i
				}
			}
		}
	}
	return m, nil
}

// step requests joint + delta, clamped to the servo range. Nothing is
// requested when the joint already sits at the limit.
func (m Model) step(joint, delta int) tea.Cmd {
	if joint >= len(m.angles) {
		return nil
	}
	cur := m.angles[joint]
	target := min(max(cur+delta, arm.MinAngle), arm.MaxAngle)
	if target == cur {
		return nil
	}
	return func() tea.Msg {
		return events.AngleRequestMsg{Joint: joint, Value: target}
	}
}

func (m Model) View() string {
	labelWidth := 0
	for _, l := range m.labels {
		labelWidth = max(labelWidth, lipgloss.Width(l))
	}

	borderWidth, _ := styles.BorderStyle.GetFrameSize()
	// marker, label, gaps and the "180°" value
	barWidth := max(m.width-borderWidth-labelWidth-10, minBar)

	rows := make([]string, len(m.labels))
	for i, label := range m.labels {
		angle := arm.HomeAngle
		if i < len(m.angles) {
			angle = m.angles[i]
		}

		marker := "  "
		labelStyle := styles.JointLabelStyle
		if i == m.selected {
			marker = styles.SelectedJointStyle.Render("> ")
			labelStyle = styles.SelectedJointStyle
		}

		row := marker +
			labelStyle.Render(fmt.Sprintf("%-*s", labelWidth, label)) + " " +
			bar(angle, barWidth) + " " +
			fmt.Sprintf("%3d°", angle)
		rows[i] = zone.Mark(zonePrefix+strconv.Itoa(i), row)
	}

	return styles.BorderStyle.Width(max(m.width-borderWidth, 0)).Render(strings.Join(rows, "\n"))
}

func bar(angle, width int) string {
	filled := angle * width / arm.MaxAngle
	return styles.BarFilledStyle.Render(strings.Repeat("█", filled)) +
		styles.BarEmptyStyle.Render(strings.Repeat("░", width-filled))
}
