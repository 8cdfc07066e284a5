// Package tui is the terminal front end: joint gauges, a trajectory chart,
// the serial message log and the pose history around one input line.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/mahlburgc/armterm/events"
	"github.com/mahlburgc/armterm/internal/arm"
	"github.com/mahlburgc/armterm/internal/controller"
	"github.com/mahlburgc/armterm/internal/footer"
	help "github.com/mahlburgc/armterm/internal/help-overlay"
	"github.com/mahlburgc/armterm/internal/input"
	"github.com/mahlburgc/armterm/internal/joints"
	"github.com/mahlburgc/armterm/internal/keymap"
	"github.com/mahlburgc/armterm/internal/msglog"
	"github.com/mahlburgc/armterm/internal/poses"
	"github.com/mahlburgc/armterm/internal/session"
	"github.com/mahlburgc/armterm/internal/styles"
	"github.com/mahlburgc/armterm/internal/trajectory"
	overlay "github.com/rmhubbert/bubbletea-overlay"
)

const (
	logZone    = "msglog"
	poseLimit  = 100
	minTopRows = 8 // chart plus legend plus border
)

type model struct {
	ctx    context.Context
	ctrl   *controller.Controller
	logger *slog.Logger

	snap      controller.Snapshot
	conStatus events.ConnectionStatus

	joints  joints.Model
	chart   trajectory.Model
	msglog  msglog.Model
	poses   poses.Model
	input   input.Model
	footer  footer.Model
	help    help.Model
	spinner spinner.Model

	showHelp       bool
	connectOnStart bool
	restartApp     bool
	width          int
	height         int
}

func newModel(ctx context.Context, ctrl *controller.Controller, opts Options) model {
	snap := ctrl.Snapshot()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.SpinnerStyle

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	m := model{
		ctx:            ctx,
		ctrl:           ctrl,
		logger:         logger,
		snap:           snap,
		conStatus:      events.StatusOf(snap.State),
		joints:         joints.New(snap.Labels, snap.Positions),
		chart:          trajectory.New(snap.Labels),
		msglog:         msglog.New(opts.Timestamp, opts.Escapes, opts.SerialLog, opts.LogLines),
		poses:          poses.New(poseLimit),
		input:          input.New(),
		footer:         footer.New(),
		help:           help.New(),
		spinner:        sp,
		connectOnStart: opts.Connect,
	}
	m.chart.Push(snap.Positions)
	return m
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink, m.refresh()}
	if m.connectOnStart {
		cmds = append(cmds, m.do(controller.Connect{}))
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.logMsgType(msg)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help, _ = m.help.Update(msg)
		m.layout()

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case tea.MouseMsg:
		return m, m.handleMouse(msg)

	case events.StateChangedMsg:
		cmds = append(cmds, m.applySnapshot(controller.Snapshot(msg)))

	case connectionMsg:
		info := "Disconnected from " + m.snap.PortName
		if msg {
			info = "Connected to " + m.snap.PortName
		}
		m.msglog, cmd = m.msglog.Update(events.InfoMsg(info))
		cmds = append(cmds, cmd)

	case summaryMsg:
		return m, tea.SetWindowTitle(string(msg))

	case events.SerialTxMsg:
		m.poses.Add(msg.Data)
		m.msglog, cmd = m.msglog.Update(msg)
		cmds = append(cmds, cmd)

	case events.SerialRxMsg, events.ErrMsg, events.InfoMsg, events.MsgLogFilterStringMsg:
		m.msglog, cmd = m.msglog.Update(msg)
		cmds = append(cmds, cmd)

	case events.AngleRequestMsg:
		return m, m.do(controller.SetAngle{Joint: msg.Joint, Value: msg.Value})

	case events.InputSubmittedMsg:
		return m, m.submit(string(msg))

	case events.PoseExecutedMsg:
		return m, m.submit(string(msg))

	case events.PoseSelectedMsg:
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)

	case spinner.TickMsg:
		if m.conStatus == events.Connecting {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case msglog.EditorFinishedMsg:
		if msg.Err != nil {
			m.msglog, _ = m.msglog.Update(events.ErrMsg{Err: msg.Err})
		}
		// workaround bubbletea v1 bug: after executing external command,
		// mouse support is not restored correctly. Therefore we restart bubbletea.
		m.restartApp = true
		return m, tea.Quit

	default:
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *model) handleKey(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	km := keymap.Default

	if m.showHelp {
		switch {
		case key.Matches(msg, km.QuitKey):
			return tea.Quit
		case key.Matches(msg, km.CloseKey, km.HelpKey):
			m.showHelp = false
		}
		return nil
	}

	switch {
	case key.Matches(msg, km.QuitKey):
		return tea.Quit

	case key.Matches(msg, km.HelpKey):
		m.showHelp = true

	case key.Matches(msg, km.ToggleSessionKey):
		return m.toggleSession()

	case key.Matches(msg, km.HomeAllKey):
		return m.do(controller.ResetAll{})

	case key.Matches(msg, km.NextPortKey):
		return m.nextPort()

	case key.Matches(msg, km.JointNextKey, km.JointPrevKey,
		km.AngleUpKey, km.AngleDownKey, km.AngleUpFastKey, km.AngleDownFastKey):
		m.joints, cmd = m.joints.Update(msg)

	case key.Matches(msg, km.PoseUpKey, km.PoseDownKey, km.DeletePoseKey):
		m.poses, cmd = m.poses.Update(msg)

	case key.Matches(msg, km.LogUpKey, km.LogDownKey, km.LogLeftKey, km.LogRightKey,
		km.LogUpFastKey, km.LogDownFastKey, km.LogTopKey, km.LogBottomKey,
		km.OpenEditorKey, km.ClearLogKey):
		m.msglog, cmd = m.msglog.Update(msg)

	default:
		m.input, cmd = m.input.Update(msg)
	}
	return cmd
}

func (m *model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionRelease &&
		zone.Get(footer.ConnectZone).InBounds(msg) {
		return m.toggleSession()
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.joints, cmd = m.joints.Update(msg)
	cmds = append(cmds, cmd)
	m.poses, cmd = m.poses.Update(msg)
	cmds = append(cmds, cmd)
	if zone.Get(logZone).InBounds(msg) {
		m.msglog, cmd = m.msglog.Update(msg)
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

// applySnapshot redraws from a controller snapshot and follows connection
// changes with the input placeholder and the connecting spinner.
func (m *model) applySnapshot(snap controller.Snapshot) tea.Cmd {
	m.snap = snap
	m.joints.SetAngles(snap.Positions)
	m.chart.Push(snap.Positions)

	status := events.StatusOf(snap.State)
	if status == m.conStatus {
		return nil
	}
	m.conStatus = status

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(events.ConnectionStatusMsg{Status: status})
	if status == events.Connecting {
		return tea.Batch(cmd, m.spinner.Tick)
	}
	return cmd
}

func (m *model) layout() {
	topHeight := max(m.joints.Height(), minTopRows)
	jointsWidth := m.width / 2

	m.joints.SetWidth(jointsWidth)
	m.chart.SetSize(m.width-jointsWidth, topHeight)

	m.input.SetWidth(m.width)
	m.footer.SetWidth(m.width)

	const footerHeight = 1
	middleHeight := m.height - topHeight - lipgloss.Height(m.input.View()) - footerHeight

	logWidth := m.width / 4 * 3
	m.msglog.SetSize(logWidth, middleHeight)
	m.poses.SetSize(m.width-logWidth, middleHeight)
}

func (m model) View() string {
	top := lipgloss.JoinHorizontal(lipgloss.Top, m.joints.View(), m.chart.View())
	middle := lipgloss.JoinHorizontal(lipgloss.Top, zone.Mark(logZone, m.msglog.View()), m.poses.View())

	screen := lipgloss.JoinVertical(
		lipgloss.Left,
		top,
		middle,
		m.input.View(),
		m.footer.View(m.snap.PortName, m.conStatus, m.spinner, m.snap.Status),
	)

	if m.showHelp {
		screen = overlay.Composite(m.help.View(), screen, overlay.Center, overlay.Center, 0, 0)
	}

	return zone.Scan(lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		screen))
}

// do runs msg against the controller outside the event loop.
func (m model) do(msg controller.Msg) tea.Cmd {
	ctrl, ctx, logger := m.ctrl, m.ctx, m.logger
	return func() tea.Msg {
		err := ctrl.Update(ctx, msg)
		if err != nil {
			logger.Debug("controller update", "msg", fmt.Sprintf("%T", msg), "error", err)
		}
		return errorMsg(err)
	}
}

func (m model) refresh() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		return events.StateChangedMsg(ctrl.Snapshot())
	}
}

func (m model) toggleSession() tea.Cmd {
	if m.conStatus == events.Disconnected {
		return m.do(controller.Connect{})
	}
	return m.do(controller.Disconnect{})
}

// nextPort selects the enumerated port after the current one.
func (m model) nextPort() tea.Cmd {
	if m.conStatus != events.Disconnected {
		return func() tea.Msg {
			return events.InfoMsg("Disconnect before selecting another port")
		}
	}

	current := m.snap.PortName
	do := m.do
	return func() tea.Msg {
		ports, err := session.ListPorts()
		if err != nil {
			return events.ErrMsg{Err: err}
		}
		name, ok := nextPortName(ports, current)
		if !ok {
			return events.InfoMsg("No serial ports found")
		}
		return do(controller.SelectPort{Name: name})()
	}
}

// nextPortName cycles through ports starting after current. An unknown
// current port picks the first Pico, or the first port.
func nextPortName(ports []session.PortInfo, current string) (string, bool) {
	if len(ports) == 0 {
		return "", false
	}
	i := slices.IndexFunc(ports, func(p session.PortInfo) bool { return p.Name == current })
	if i < 0 {
		if p, ok := session.FindPico(ports); ok {
			return p.Name, true
		}
		return ports[0].Name, true
	}
	return ports[(i+1)%len(ports)].Name, true
}

// submit handles a line from the input or the pose history:
//
//	""          re-send the current angles
//	"/words"    filter the message log
//	"120"       move the selected joint
//	"S1 90,..." apply a whole pose
func (m model) submit(line string) tea.Cmd {
	line = strings.TrimSpace(line)

	switch {
	case line == "":
		return m.do(controller.Send{})

	case strings.HasPrefix(line, "/"):
		filter := strings.TrimPrefix(line, "/")
		return func() tea.Msg {
			return events.MsgLogFilterStringMsg(filter)
		}
	}

	msg, err := parseCommand(line, m.joints.Selected())
	if err != nil {
		return func() tea.Msg {
			return events.ErrMsg{Err: err}
		}
	}
	return m.do(msg)
}

// parseCommand turns typed input into a controller message. A bare number
// targets the selected joint; anything else must be a complete pose.
func parseCommand(line string, selected int) (controller.Msg, error) {
	if v, err := strconv.Atoi(line); err == nil {
		return controller.SetAngle{Joint: selected, Value: v}, nil
	}

	decoded, err := arm.Decode(line)
	if err != nil {
		return nil, err
	}
	if len(decoded) == 0 {
		return nil, fmt.Errorf("%q: %w", line, arm.ErrMalformedCommand)
	}

	angles := make(map[int]int, len(decoded))
	for joint, angle := range decoded {
		angles[joint-1] = angle
	}
	return controller.SetPose{Angles: angles}, nil
}

// errorMsg keeps invalid angles and throttled sends out of the UI.
func errorMsg(err error) tea.Msg {
	if err == nil || errors.Is(err, arm.ErrInvalidAngle) || errors.Is(err, session.ErrBusy) {
		return nil
	}
	return events.ErrMsg{Err: err}
}

func (m model) logMsgType(msg tea.Msg) {
	switch msg.(type) {
	case spinner.TickMsg, tea.MouseMsg:
		return
	}
	m.logger.Debug("tui update", "type", fmt.Sprintf("%T", msg))
}
