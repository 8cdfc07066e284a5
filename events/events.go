package events

import (
	"time"

	"github.com/mahlburgc/armterm/internal/controller"
	"github.com/mahlburgc/armterm/internal/session"
)

// defines all shared event messages

// Carries the controller state after every change.
type StateChangedMsg controller.Snapshot

// Indicates a line was received from the serial port.
type SerialRxMsg struct {
	Time time.Time
	Text string
}

// Indicates a command line reached the device.
type SerialTxMsg struct {
	Time time.Time
	Data string
}

type ConnectionStatus int

const (
	Disconnected ConnectionStatus = iota
	Connecting
	Connected
)

// StatusOf maps a session state onto the three states the UI draws.
func StatusOf(s session.State) ConnectionStatus {
	switch s {
	case session.Connected:
		return Connected
	case session.Connecting:
		return Connecting
	default:
		return Disconnected
	}
}

type ConnectionStatusMsg struct {
	Status ConnectionStatus
}

// Indicates the user submitted the input line.
type InputSubmittedMsg string

// Asks for one joint (zero-based) to move to Value.
type AngleRequestMsg struct {
	Joint int
	Value int
}

// Indicates a pose from the pose history was selected.
type PoseSelectedMsg string

// Indicates a pose from the pose history should be applied.
type PoseExecutedMsg string

// Sets the message log filter. An empty string shows everything.
type MsgLogFilterStringMsg string

type ErrMsg struct{ Err error }

// For messages that contain errors it's often handy to also implement the interface.
func (e ErrMsg) Error() string { return e.Err.Error() }

type InfoMsg string
