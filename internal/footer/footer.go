package footer

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/mahlburgc/armterm/events"
	"github.com/mahlburgc/armterm/internal/styles"
)

// ConnectZone marks the connection symbol; clicking it toggles the session.
const ConnectZone = "consymbol"

type Model struct {
	width int
}

func New() Model {
	return Model{}
}

func (m *Model) SetWidth(w int) {
	m.width = w
}

func (m Model) View(portName string, conStatus events.ConnectionStatus, spinner spinner.Model, status string) string {
	helpText := portName + " | ctrl+o: help · tab: joint · shift+←/→: angle · ctrl+r: home"

	var connectionSymbol string

	switch conStatus {
	case events.Connected:
		connectionSymbol = fmt.Sprintf(" %s ", styles.ConnectSymbolStyle.Render("●"))
		helpText += " · ctrl+x: disconnect"

	case events.Disconnected:
		connectionSymbol = fmt.Sprintf(" %s ", styles.DisconnectedSymbolStyle.Render("●"))
		helpText += " · ctrl+x: connect"

	case events.Connecting:
		connectionSymbol = fmt.Sprintf(" %s", spinner.View())
	}

	connectionSymbol = zone.Mark(ConnectZone, connectionSymbol)

	line := connectionSymbol
	if status != "" {
		line += styles.StatusStyle.Render(status) + " "
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(line + styles.FooterStyle.Render(helpText))
}
