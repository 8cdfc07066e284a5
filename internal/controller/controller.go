// Package controller ties the arm state to the serial session and reports
// every change to the attached user interfaces.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mahlburgc/armterm/internal/arm"
	"github.com/mahlburgc/armterm/internal/session"
)

// Msg is a command for Controller.Update.
type Msg interface{ isMsg() }

type (
	// SetAngle moves one joint (zero-based) and sends the new vector when connected.
	SetAngle   struct{ Joint, Value int }
	Connect    struct{}
	Disconnect struct{}
	// Send re-sends the current angle vector.
	Send     struct{}
	ResetAll struct{}
	// SelectPort chooses the device for the next Connect.
	SelectPort struct{ Name string }
	// SetPose moves several joints (zero-based keys) at once and sends a
	// single command. Nothing changes unless every entry is valid.
	SetPose struct{ Angles map[int]int }
)

func (SetAngle) isMsg()   {}
func (Connect) isMsg()    {}
func (Disconnect) isMsg() {}
func (Send) isMsg()       {}
func (ResetAll) isMsg()   {}
func (SelectPort) isMsg() {}
func (SetPose) isMsg()    {}

// Snapshot is everything a user interface needs to draw the arm.
type Snapshot struct {
	Status          string
	Positions       []int
	Labels          []string
	LastCommand     string
	ConnectionLabel string
	State           session.State
	PortName        string
}

func (s Snapshot) Connected() bool { return s.State == session.Connected }

// UI is implemented by the presentation layers. Calls may arrive from any
// goroutine, including the serial read loop.
type UI interface {
	OnStateChanged(Snapshot)
	OnSerialLine(ts time.Time, text string)
	OnConnectionStatus(connected bool)
}

// SummaryRenderer is an optional UI capability for a one-line summary.
type SummaryRenderer interface {
	RenderSummary(Snapshot)
}

// CommandObserver is an optional UI capability notified after every
// command line that reached the device.
type CommandObserver interface {
	OnCommandSent(ts time.Time, line string)
}

type Config struct {
	Joints   int
	Labels   []string
	PortName string
	Opener   session.Opener
	Cooldown time.Duration
	Logger   *slog.Logger
}

type Controller struct {
	arm    *arm.State
	mgr    *session.Manager
	labels []string
	logger *slog.Logger

	mu     sync.Mutex
	status string
	uis    []UI
}

func New(cfg Config) *Controller {
	if cfg.Joints < 1 {
		cfg.Joints = arm.DefaultJoints
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	c := &Controller{
		arm:    arm.New(cfg.Joints),
		labels: jointLabels(cfg.Labels, cfg.Joints),
		logger: cfg.Logger,
		status: "Ready",
	}
	c.mgr = session.New(session.Config{
		PortName: cfg.PortName,
		Opener:   cfg.Opener,
		Cooldown: cfg.Cooldown,
		Logger:   cfg.Logger.With("component", "session"),
		OnLine:   c.handleLine,
		OnState:  c.handleState,
	})
	return c
}

// jointLabels pads or trims the configured labels to the joint count.
func jointLabels(labels []string, n int) []string {
	if len(labels) == 0 && n == arm.DefaultJoints {
		labels = arm.DefaultLabels()
	}
	out := make([]string, n)
	for i := range out {
		if i < len(labels) && labels[i] != "" {
			out[i] = labels[i]
		} else {
			out[i] = fmt.Sprintf("Joint %d", i+1)
		}
	}
	return out
}

// Attach registers a user interface and returns a function removing it.
func (c *Controller) Attach(ui UI) (detach func()) {
	c.mu.Lock()
	c.uis = append(c.uis, ui)
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if i := slices.Index(c.uis, ui); i >= 0 {
			c.uis = slices.Delete(c.uis, i, i+1)
		}
	}
}

// Update applies one message. Invalid angles and busy sends leave the state
// unchanged and are reported as errors only to the caller; open and write
// failures are also shown to every attached UI.
func (c *Controller) Update(ctx context.Context, msg Msg) error {
	switch msg := msg.(type) {
	case SetAngle:
		if err := c.arm.SetAngle(msg.Joint, msg.Value); err != nil {
			return err
		}
		c.notifyState()
		if c.mgr.Connected() {
			return c.send(ctx)
		}
		return nil

	case Connect:
		err := c.mgr.Connect(ctx)
		if errors.Is(err, session.ErrBusy) {
			c.logger.Debug("connect ignored", "error", err)
			return nil
		}
		if err != nil {
			c.setStatus("Connection failed: " + err.Error())
			return err
		}
		return nil

	case Disconnect:
		c.mgr.Disconnect()
		return nil

	case Send:
		return c.send(ctx)

	case ResetAll:
		c.arm.ResetAll()
		c.setStatus("Reset to home position")
		if c.mgr.Connected() {
			// reported through the UI, never to the resetter
			_ = c.send(ctx)
		}
		return nil

	case SetPose:
		if err := c.setPose(msg.Angles); err != nil {
			return err
		}
		c.notifyState()
		if c.mgr.Connected() {
			return c.send(ctx)
		}
		return nil

	case SelectPort:
		if err := c.mgr.SetPortName(msg.Name); err != nil {
			return err
		}
		c.setStatus("Selected " + msg.Name)
		return nil

	default:
		return fmt.Errorf("unknown message %T", msg)
	}
}

// send encodes the current angles and writes them. Busy rejections are
// dropped silently.
func (c *Controller) send(ctx context.Context) error {
	line := arm.Encode(c.arm.Angles())

	err := c.mgr.Send(ctx, line)
	switch {
	case err == nil:
		cmd := strings.TrimSpace(line)
		c.arm.SetLastCommand(cmd)
		c.setStatus("Sent: " + cmd)
		c.notifySent(cmd)
		return nil
	case errors.Is(err, session.ErrBusy):
		c.logger.Debug("send dropped", "error", err)
		return nil
	default:
		c.setStatus("Send failed: " + err.Error())
		return err
	}
}

func (c *Controller) setPose(angles map[int]int) error {
	return c.arm.SetAngles(angles)
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	status := c.status
	c.mu.Unlock()

	state := c.mgr.State()
	port := c.mgr.PortName()
	return Snapshot{
		Status:          status,
		Positions:       c.arm.Angles(),
		Labels:          slices.Clone(c.labels),
		LastCommand:     c.arm.LastCommand(),
		ConnectionLabel: connectionLabel(state, port),
		State:           state,
		PortName:        port,
	}
}

func connectionLabel(state session.State, port string) string {
	switch state {
	case session.Connected:
		return "Connected to " + port
	case session.Connecting:
		return "Connecting to " + port + "..."
	case session.Disconnecting:
		return "Disconnecting..."
	default:
		return "Disconnected"
	}
}

// Close ends the serial session, if any.
func (c *Controller) Close() {
	c.mgr.Disconnect()
}

func (c *Controller) handleLine(l session.Line) {
	for _, ui := range c.attached() {
		ui.OnSerialLine(l.Timestamp, l.Text)
	}
}

func (c *Controller) handleState(s session.State) {
	switch s {
	case session.Connected:
		c.setStatusQuiet("Connected")
	case session.Disconnected:
		c.setStatusQuiet("Disconnected")
	}

	if s == session.Connected || s == session.Disconnected {
		for _, ui := range c.attached() {
			ui.OnConnectionStatus(s == session.Connected)
		}
	}
	c.notifyState()
}

func (c *Controller) setStatus(status string) {
	c.setStatusQuiet(status)
	c.notifyState()
}

func (c *Controller) setStatusQuiet(status string) {
	c.mu.Lock()
	c.status = status
	c.mu.Unlock()
}

func (c *Controller) attached() []UI {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.uis)
}

func (c *Controller) notifySent(line string) {
	now := time.Now()
	for _, ui := range c.attached() {
		if o, ok := ui.(CommandObserver); ok {
			o.OnCommandSent(now, line)
		}
	}
}

func (c *Controller) notifyState() {
	snap := c.Snapshot()
	for _, ui := range c.attached() {
		ui.OnStateChanged(snap)
		if r, ok := ui.(SummaryRenderer); ok {
			r.RenderSummary(snap)
		}
	}
}
