// Package arm holds the target joint angles of the robot arm and the
// text codec used to command it.
package arm

import (
	"errors"
	"fmt"
	"sync"
)

const (
	MinAngle  = 0
	MaxAngle  = 180
	HomeAngle = 90

	// DefaultJoints is the joint count of the stock arm (base, three joints, gripper).
	DefaultJoints = 5

	// NoCommand is the last command shown before anything was sent.
	NoCommand = "None"
)

var (
	ErrInvalidAngle = errors.New("angle out of range")
	ErrInvalidJoint = errors.New("no such joint")
)

// DefaultLabels returns the display names of the default joints.
func DefaultLabels() []string {
	return []string{"Base", "Joint 1", "Joint 2", "Joint 3", "Gripper"}
}

// State is the single source of truth for the arm's target angles and the
// last command sent to it. It is safe for concurrent use.
type State struct {
	mu          sync.RWMutex
	angles      []int
	lastCommand string
}

// New creates a state with n joints, all at the home angle.
func New(n int) *State {
	if n < 1 {
		n = DefaultJoints
	}
	s := &State{
		angles:      make([]int, n),
		lastCommand: NoCommand,
	}
	for i := range s.angles {
		s.angles[i] = HomeAngle
	}
	return s
}

// ValidAngle reports whether v is a legal servo angle.
func ValidAngle(v int) bool {
	return v >= MinAngle && v <= MaxAngle
}

// Joints returns the number of joints.
func (s *State) Joints() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.angles)
}

// SetAngle sets the target angle of the joint at the zero-based index.
// Out-of-range values leave the state untouched.
func (s *State) SetAngle(joint, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(joint, value); err != nil {
		return err
	}
	s.angles[joint] = value
	return nil
}

// SetAngles sets several joints at once, keyed by zero-based index. Either
// every angle is applied or, on the first invalid entry, none.
func (s *State) SetAngles(angles map[int]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for joint, value := range angles {
		if err := s.check(joint, value); err != nil {
			return err
		}
	}
	for joint, value := range angles {
		s.angles[joint] = value
	}
	return nil
}

// check validates one assignment. The caller holds s.mu.
func (s *State) check(joint, value int) error {
	if joint < 0 || joint >= len(s.angles) {
		return fmt.Errorf("joint %d: %w", joint, ErrInvalidJoint)
	}
	if !ValidAngle(value) {
		return fmt.Errorf("joint %d angle %d: %w", joint, value, ErrInvalidAngle)
	}
	return nil
}

// Angle returns the target angle of one joint.
func (s *State) Angle(joint int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if joint < 0 || joint >= len(s.angles) {
		return 0, fmt.Errorf("joint %d: %w", joint, ErrInvalidJoint)
	}
	return s.angles[joint], nil
}

// Angles returns a copy of the angle vector.
func (s *State) Angles() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]int, len(s.angles))
	copy(out, s.angles)
	return out
}

// ResetAll moves every joint back to the home angle.
func (s *State) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.angles {
		s.angles[i] = HomeAngle
	}
}

func (s *State) LastCommand() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastCommand
}

func (s *State) SetLastCommand(cmd string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCommand = cmd
}
