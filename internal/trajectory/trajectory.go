// Package trajectory charts the commanded joint angles over time.
package trajectory

import (
	"slices"
	"strings"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"
	"github.com/charmbracelet/lipgloss"
	"github.com/mahlburgc/armterm/internal/arm"
	"github.com/mahlburgc/armterm/internal/styles"
)

const (
	minWidth  = 20
	minHeight = 5
)

type Model struct {
	chart  *streamlinechart.Model
	labels []string
	last   []int
	width  int
	height int
}

func New(labels []string) Model {
	chart := streamlinechart.New(minWidth, minHeight,
		streamlinechart.WithYRange(arm.MinAngle, arm.MaxAngle),
	)

	for i, label := range labels {
		chart.SetDataSetStyles(label, runes.ThinLineStyle, jointStyle(i))
	}

	return Model{
		chart:  &chart,
		labels: labels,
	}
}

func jointStyle(i int) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(styles.JointColors[i%len(styles.JointColors)])
}

// Push adds one sample per joint. Repeated identical vectors are skipped
// so the chart freezes while the arm is idle.
func (m *Model) Push(angles []int) {
	if m.last != nil && slices.Equal(m.last, angles) {
		return
	}
	for i, a := range angles {
		if i < len(m.labels) {
			m.chart.PushDataSet(m.labels[i], float64(a))
		}
	}
	m.chart.DrawAll()
	m.last = slices.Clone(angles)
}

// SetSize resizes the chart to fit width x height including the border.
func (m *Model) SetSize(width, height int) {
	borderWidth, borderHeight := styles.BorderStyle.GetFrameSize()
	m.width = width
	m.height = height
	m.chart.Resize(max(width-borderWidth, minWidth), max(height-borderHeight-1, minHeight))
	m.chart.DrawAll()
}

func (m Model) View() string {
	body := lipgloss.JoinVertical(lipgloss.Left, m.chart.View(), m.legend())
	return styles.BorderStyle.Render(body)
}

func (m Model) legend() string {
	items := make([]string, len(m.labels))
	for i, label := range m.labels {
		items[i] = jointStyle(i).Bold(true).Render("━━") + " " + label
	}
	return strings.Join(items, "  ")
}
