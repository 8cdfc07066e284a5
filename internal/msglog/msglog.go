// Package msglog shows the serial traffic of the arm together with errors
// and status notes. It can be filtered, scrolled and exported to $EDITOR.
package msglog

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/icza/gox/stringsx"
	"github.com/mahlburgc/armterm/events"
	"github.com/mahlburgc/armterm/internal/keymap"
	"github.com/mahlburgc/armterm/internal/styles"
)

const (
	timeLayout = "15:04:05.000"
	fastScroll = 10
	sideScroll = 3
)

// kind is the origin of a log line.
type kind int

const (
	rxLine kind = iota
	txLine
	errLine
	infoLine
)

func (k kind) prefix() string {
	switch k {
	case txLine:
		return "> "
	case errLine:
		return "ERROR: "
	case infoLine:
		return "INFO: "
	default:
		return ""
	}
}

func (k kind) render(s string) string {
	switch k {
	case txLine:
		return styles.VpTxMsgStyle.Render(s)
	case errLine:
		return styles.ErrMsgStyle.Render(s)
	case infoLine:
		return styles.InfoMsgStyle.Render(s)
	default:
		return s
	}
}

// traffic reports whether the line counts as serial traffic.
func (k kind) traffic() bool {
	return k == rxLine || k == txLine
}

type Model struct {
	Vp viewport.Model

	log         []string // log[0] is always the start line
	logFiltered []string
	logLimit    int
	msgCnt      int // rx and tx lines since the last clear

	showTimestamp bool
	showEscapes   bool
	serialLog     *log.Logger

	filterString string
	// offset counts lines between the bottom of the log and the bottom
	// of the viewport, 0 follows new lines
	offset int
}

// This message is sent when the editor is closed.
type EditorFinishedMsg struct {
	Err error
}

// New creates an empty log. serialLog, when not nil, receives every line
// without styling.
func New(showTimestamp bool, showEscapes bool, serialLog *log.Logger, logLimit int) (m Model) {
	// The viewport has no border, the border is added manually
	// to inject a title into it.
	m.Vp = viewport.New(30, 5)
	m.Vp.SetContent(`Welcome to armterm!`)
	m.Vp.Style = lipgloss.NewStyle()
	// scrolling is done here, keys belong to the pose history
	m.Vp.KeyMap = viewport.KeyMap{}

	m.logLimit = max(logLimit, 2)
	m.log = []string{m.startMsg()}
	m.logFiltered = m.log

	m.showTimestamp = showTimestamp
	m.showEscapes = showEscapes
	m.serialLog = serialLog
	return m
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case events.SerialRxMsg:
		m.addMsg(msg.Time, msg.Text, rxLine)

	case events.SerialTxMsg:
		m.addMsg(msg.Time, msg.Data, txLine)

	case events.ErrMsg:
		if msg.Err != nil {
			m.addMsg(time.Now(), msg.Error(), errLine)
		}

	case events.InfoMsg:
		m.addMsg(time.Now(), string(msg), infoLine)

	case events.MsgLogFilterStringMsg:
		m.filterString = string(msg)
		m.offset = 0
		m.filterLog()

	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.scroll(1)
		case tea.MouseButtonWheelDown:
			m.scroll(-1)
		}

	case tea.KeyMsg:
		km := keymap.Default
		switch {
		case key.Matches(msg, km.LogLeftKey):
			m.Vp.ScrollLeft(sideScroll)
		case key.Matches(msg, km.LogRightKey):
			m.Vp.ScrollRight(sideScroll)
		case key.Matches(msg, km.LogUpKey):
			m.scroll(1)
		case key.Matches(msg, km.LogDownKey):
			m.scroll(-1)
		case key.Matches(msg, km.LogUpFastKey):
			m.scroll(fastScroll)
		case key.Matches(msg, km.LogDownFastKey):
			m.scroll(-fastScroll)
		case key.Matches(msg, km.LogTopKey):
			m.offset = m.maxOffset()
		case key.Matches(msg, km.LogBottomKey):
			m.offset = 0
		case key.Matches(msg, km.OpenEditorKey):
			return m, openEditorCmd(m.logFiltered)
		case key.Matches(msg, km.ClearLogKey):
			m.log = []string{m.startMsg()}
			m.msgCnt = 0
			m.offset = 0
			m.filterLog()
		}

	default:
		return m, nil
	}

	m.UpdateVp()
	return m, nil
}

func (m Model) View() string {
	borderStyle := lipgloss.NewStyle().Foreground(styles.AdaptiveBorderColor)

	// highlight the percentage while scrolled up
	percentStyle := borderStyle
	if !m.atBottom() {
		percentStyle = styles.PercentRenderStyle
	}
	percent := percentStyle.Render(fmt.Sprintf("%3d%%", int(m.GetScrollPercent())))

	title := "Messages"
	if m.filterString != "" {
		title += " /" + m.filterString
	}

	footer := borderStyle.Render(fmt.Sprintf("%d ", m.msgCnt)) + percent
	return styles.AddBorder(m.Vp, title, footer, true)
}

func (m *Model) SetSize(width, height int) {
	borderWidth, borderHeight := styles.BorderStyle.GetFrameSize()

	m.Vp.Width = width - borderWidth
	m.Vp.Height = height - borderHeight
	m.offset = 0
	m.UpdateVp()
}

// GetLen returns the number of lines kept, start line included.
func (m Model) GetLen() int {
	return len(m.log)
}

// GetScrollPercent is 100 at the newest line and 0 at the oldest.
func (m Model) GetScrollPercent() float64 {
	if m.atBottom() {
		return 100
	}
	return 100 - float64(m.offset)*100/float64(m.maxOffset())
}

// UpdateVp renders the visible window of the filtered log.
func (m *Model) UpdateVp() {
	if m.Vp.Height <= 0 {
		return
	}
	end := len(m.logFiltered) - m.offset
	start := max(end-m.Vp.Height, 0)
	m.Vp.SetContent(strings.Join(m.logFiltered[start:end], "\n"))
}

// scroll moves the window n lines towards older (n > 0) or newer lines.
func (m *Model) scroll(n int) {
	m.offset = min(max(m.offset+n, 0), m.maxOffset())
}

func (m Model) maxOffset() int {
	return max(len(m.logFiltered)-m.Vp.Height, 0)
}

func (m Model) atTop() bool {
	return m.offset == m.maxOffset()
}

func (m Model) atBottom() bool {
	return m.offset == 0
}

func (m *Model) addMsg(ts time.Time, text string, k kind) {
	var line strings.Builder
	if m.showTimestamp {
		line.WriteString("[" + ts.Format(timeLayout) + "] ")
	}
	line.WriteString(k.prefix())
	if m.showEscapes {
		line.WriteString(fmt.Sprintf("%q", text))
	} else {
		// drop control characters the board may print
		line.WriteString(stringsx.Clean(text))
	}

	if k.traffic() {
		m.msgCnt++
	}
	if m.serialLog != nil {
		m.serialLog.Println(line.String())
	}

	followed := m.atBottom()

	m.log = append(m.log, k.render(line.String()))
	if len(m.log) > m.logLimit {
		m.log = m.log[len(m.log)-m.logLimit:]
		m.log[0] = m.startMsg()
	}
	m.filterLog()

	switch {
	case k != rxLine:
		// own commands and notes always jump back to the newest line
		m.offset = 0
	case !followed:
		// keep the scrolled window where it is
		m.scroll(1)
	}
}

func (m *Model) startMsg() string {
	return styles.MsgLogStartRenderStyle.Render(
		fmt.Sprintf("Message log start (limit: %d lines)", m.logLimit))
}

// filterLog rebuilds logFiltered. Every word of the filter must appear
// in a line, matches are highlighted. The start line is always kept.
func (m *Model) filterLog() {
	words := strings.Fields(strings.ToLower(m.filterString))
	if len(words) == 0 {
		m.logFiltered = m.log
		return
	}

	res := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		res[i] = regexp.MustCompile("(?i)" + regexp.QuoteMeta(w))
	}

	filtered := []string{m.log[0]}
	for _, line := range m.log[1:] {
		if highlighted, ok := highlight(line, words, res); ok {
			filtered = append(filtered, highlighted)
		}
	}
	m.logFiltered = filtered
	m.offset = min(m.offset, m.maxOffset())
}

func highlight(line string, words []string, res []*regexp.Regexp) (string, bool) {
	plain := stripansi.Strip(line)
	lower := strings.ToLower(plain)
	for _, w := range words {
		if !strings.Contains(lower, w) {
			return "", false
		}
	}
	for _, re := range res {
		plain = re.ReplaceAllStringFunc(plain, func(s string) string {
			return styles.SearchHighlightStyle.Render(s)
		})
	}
	return plain, true
}

// openEditorCmd writes the log without styling to a temp file and opens
// it in $EDITOR.
func openEditorCmd(content []string) tea.Cmd {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	fail := func(err error) tea.Cmd {
		return func() tea.Msg {
			return EditorFinishedMsg{Err: err}
		}
	}

	tmpFile, err := os.CreateTemp("", "armterm-log-*.txt")
	if err != nil {
		return fail(err)
	}
	for _, line := range content {
		if _, err := tmpFile.WriteString(stripansi.Strip(line) + "\n"); err != nil {
			tmpFile.Close()
			return fail(err)
		}
	}
	if err := tmpFile.Close(); err != nil {
		return fail(err)
	}

	// tea.ExecProcess suspends the program while the editor runs.
	return tea.ExecProcess(exec.Command(editor, tmpFile.Name()), func(err error) tea.Msg {
		if err != nil {
			return EditorFinishedMsg{Err: err}
		}
		return EditorFinishedMsg{Err: os.Remove(tmpFile.Name())}
	})
}
