package tui

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mahlburgc/armterm/events"
	"github.com/mahlburgc/armterm/internal/controller"
)

type (
	summaryMsg    string
	connectionMsg bool
)

// bridge forwards controller callbacks into the running tea.Program.
// Program.Send blocks until the event loop reads the message, so the
// controller must never be driven from inside Update; the model only calls
// it from tea.Cmd goroutines.
type bridge struct {
	mu sync.Mutex
	p  *tea.Program
}

func (b *bridge) set(p *tea.Program) {
	b.mu.Lock()
	b.p = p
	b.mu.Unlock()
}

func (b *bridge) send(msg tea.Msg) {
	b.mu.Lock()
	p := b.p
	b.mu.Unlock()

	// dropped while the program restarts, the model refreshes on Init
	if p != nil {
		p.Send(msg)
	}
}

func (b *bridge) OnStateChanged(s controller.Snapshot) {
	b.send(events.StateChangedMsg(s))
}

func (b *bridge) OnSerialLine(ts time.Time, text string) {
	b.send(events.SerialRxMsg{Time: ts, Text: text})
}

func (b *bridge) OnConnectionStatus(connected bool) {
	b.send(connectionMsg(connected))
}

func (b *bridge) OnCommandSent(ts time.Time, line string) {
	b.send(events.SerialTxMsg{Time: ts, Data: line})
}

func (b *bridge) RenderSummary(s controller.Snapshot) {
	b.send(summaryMsg(summary(s)))
}

// summary is the terminal window title.
func summary(s controller.Snapshot) string {
	parts := []string{"armterm", s.ConnectionLabel}
	if s.LastCommand != "" {
		parts = append(parts, s.LastCommand)
	}
	return strings.Join(parts, " · ")
}
