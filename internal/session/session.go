// Package session owns the serial link to the arm: the connect/disconnect
// state machine, the background read loop and the send discipline.
package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const (
	BaudRate = 9600

	// DefaultCooldown is the pause after each send during which further
	// sends are rejected, so the device is not flooded.
	DefaultCooldown = 300 * time.Millisecond

	// readLoopGrace bounds how long Disconnect waits for the read loop.
	readLoopGrace = time.Second
)

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Disconnecting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnecting:
		return "disconnecting"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Line is one text line received from the device.
type Line struct {
	Timestamp time.Time
	Text      string
}

type Config struct {
	PortName string
	Opener   Opener
	Cooldown time.Duration
	Logger   *slog.Logger

	// OnLine is called from the read loop for every non-empty line.
	OnLine func(Line)
	// OnState is called after every state transition.
	OnState func(State)
}

// Manager drives one serial session at a time.
type Manager struct {
	opener   Opener
	cooldown time.Duration
	logger   *slog.Logger
	onLine   func(Line)
	onState  func(State)

	mu        sync.Mutex
	portName  string
	state     State
	port      Port
	cancel    context.CancelFunc
	done      chan struct{}
	token     uint64 // changes on every connect and disconnect
	sending   bool
	cooling   bool
	coolTimer *time.Timer
}

func New(cfg Config) *Manager {
	if cfg.Opener == nil {
		cfg.Opener = SerialOpener{}
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		opener:   cfg.Opener,
		cooldown: cfg.Cooldown,
		logger:   cfg.Logger,
		onLine:   cfg.OnLine,
		onState:  cfg.OnState,
		portName: cfg.PortName,
		state:    Disconnected,
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Connected() bool {
	return m.State() == Connected
}

func (m *Manager) PortName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.portName
}

// SetPortName selects the device used by the next Connect.
func (m *Manager) SetPortName(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Disconnected {
		return &ConnectionError{Reason: Busy, Err: fmt.Errorf("cannot change port while %s", m.state)}
	}
	m.portName = name
	return nil
}

// Connect opens the port and starts the read loop. It is rejected with a
// Busy error unless the manager is disconnected.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state != Disconnected {
		state := m.state
		m.mu.Unlock()
		return &ConnectionError{Reason: Busy, Err: fmt.Errorf("connect while %s", state)}
	}
	m.state = Connecting
	name := m.portName
	m.mu.Unlock()
	m.notifyState(Connecting)

	m.logger.Info("opening serial port", "port", name, "baud", BaudRate)
	port, err := m.opener.Open(ctx, name, Mode())
	if err != nil {
		m.logger.Warn("open serial port failed", "port", name, "error", err)
		m.setState(Disconnected)
		return &ConnectionError{Reason: OpenFailed, Err: err}
	}

	readCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	m.mu.Lock()
	m.token++
	token := m.token
	m.port = port
	m.cancel = cancel
	m.done = done
	m.state = Connected
	m.mu.Unlock()

	go m.readLoop(readCtx, token, port, done)

	m.logger.Info("serial port connected", "port", name)
	m.notifyState(Connected)
	return nil
}

// Disconnect tears the session down. Teardown errors are logged and
// swallowed; the manager always ends up disconnected. Calling it in any
// state other than Connected does nothing.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.state != Connected {
		m.mu.Unlock()
		return
	}
	m.state = Disconnecting
	port, cancel, done := m.port, m.cancel, m.done
	m.token++
	m.sending = false
	m.cooling = false
	if m.coolTimer != nil {
		m.coolTimer.Stop()
		m.coolTimer = nil
	}
	m.mu.Unlock()
	m.notifyState(Disconnecting)

	cancel()
	if err := port.Close(); err != nil {
		m.logger.Debug("close serial port", "error", err)
	}
	select {
	case <-done:
	case <-time.After(readLoopGrace):
		m.logger.Warn("read loop did not stop in time")
	}

	m.mu.Lock()
	m.port = nil
	m.cancel = nil
	m.done = nil
	m.state = Disconnected
	m.mu.Unlock()

	m.logger.Info("serial port disconnected")
	m.notifyState(Disconnected)
}

// Send writes one encoded command line. A send is rejected with a Busy
// error when not connected, while another send is outstanding, or during
// the cool-down that follows every send.
func (m *Manager) Send(ctx context.Context, line string) error {
	m.mu.Lock()
	switch {
	case m.state != Connected:
		state := m.state
		m.mu.Unlock()
		return &ConnectionError{Reason: Busy, Err: fmt.Errorf("send while %s", state)}
	case m.sending:
		m.mu.Unlock()
		return &ConnectionError{Reason: Busy, Err: fmt.Errorf("send in progress")}
	case m.cooling:
		m.mu.Unlock()
		return &ConnectionError{Reason: Busy, Err: fmt.Errorf("cooling down")}
	}
	if err := ctx.Err(); err != nil {
		m.mu.Unlock()
		return &ConnectionError{Reason: WriteFailed, Err: err}
	}
	m.sending = true
	port, token := m.port, m.token
	m.mu.Unlock()

	_, err := io.WriteString(port, line)

	m.mu.Lock()
	// a disconnect in between has already released the flag
	if m.token == token {
		m.sending = false
		m.cooling = true
		m.coolTimer = time.AfterFunc(m.cooldown, func() { m.endCooldown(token) })
	}
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn("serial write failed", "error", err)
		return &ConnectionError{Reason: WriteFailed, Err: err}
	}
	m.logger.Debug("serial write", "data", strings.TrimSpace(line))
	return nil
}

func (m *Manager) endCooldown(token uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == token {
		m.cooling = false
		m.coolTimer = nil
	}
}

// readLoop scans newline-delimited text until the stream ends, fails or
// the session is torn down. It never changes the connection state.
func (m *Manager) readLoop(ctx context.Context, token uint64, port Port, done chan struct{}) {
	defer close(done)

	scanner := bufio.NewScanner(port)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		m.deliver(token, Line{Timestamp: time.Now(), Text: text})
	}

	if ctx.Err() != nil {
		return
	}
	if err := scanner.Err(); err != nil {
		m.logger.Error("serial read loop stopped", "error", &ConnectionError{Reason: ReadError, Err: err})
		return
	}
	m.logger.Info("serial stream ended")
}

func (m *Manager) deliver(token uint64, line Line) {
	m.mu.Lock()
	current := m.token == token
	m.mu.Unlock()

	if current && m.onLine != nil {
		m.onLine(line)
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
	m.notifyState(s)
}

func (m *Manager) notifyState(s State) {
	if m.onState != nil {
		m.onState(s)
	}
}
