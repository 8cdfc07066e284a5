package tui

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"github.com/mahlburgc/armterm/events"
	"github.com/mahlburgc/armterm/internal/arm"
	"github.com/mahlburgc/armterm/internal/controller"
	"github.com/mahlburgc/armterm/internal/mockport"
	"github.com/mahlburgc/armterm/internal/msglog"
	"github.com/mahlburgc/armterm/internal/session"
)

func TestMain(m *testing.M) {
	zone.NewGlobal()
	os.Exit(m.Run())
}

func newTestModel(t *testing.T) (model, *controller.Controller) {
	t.Helper()
	ctrl := controller.New(controller.Config{
		PortName: "mock",
		Opener:   &mockport.Opener{Joints: arm.DefaultJoints},
	})
	t.Cleanup(ctrl.Close)

	m := newModel(context.Background(), ctrl, Options{LogLines: 100})
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, ctrl
}

func update(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	nm, ok := next.(model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return nm
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line     string
		selected int
		want     controller.Msg
		wantErr  bool
	}{
		{line: "120", selected: 2, want: controller.SetAngle{Joint: 2, Value: 120}},
		{line: "-5", selected: 0, want: controller.SetAngle{Joint: 0, Value: -5}},
		{line: "S1 10,S3 20", want: controller.SetPose{Angles: map[int]int{0: 10, 2: 20}}},
		{line: "S2 200", want: controller.SetPose{Angles: map[int]int{1: 180}}},
		{line: "hello", wantErr: true},
		{line: "S1 10,S2 x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := parseCommand(tt.line, tt.selected)
			if tt.wantErr {
				if !errors.Is(err, arm.ErrMalformedCommand) {
					t.Fatalf("err = %v, want ErrMalformedCommand", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if pose, ok := tt.want.(controller.SetPose); ok {
				gotPose, ok := got.(controller.SetPose)
				if !ok || !maps.Equal(gotPose.Angles, pose.Angles) {
					t.Errorf("got %#v, want %#v", got, tt.want)
				}
				return
			}
			if got != tt.want {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestNextPortName(t *testing.T) {
	ports := []session.PortInfo{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyACM0", IsUSB: true, VID: "2E8A", PID: "0005"},
		{Name: "/dev/ttyUSB0", IsUSB: true},
	}

	tests := []struct {
		current string
		want    string
	}{
		{current: "/dev/ttyS0", want: "/dev/ttyACM0"},
		{current: "/dev/ttyUSB0", want: "/dev/ttyS0"},
		{current: "", want: "/dev/ttyACM0"},
	}
	for _, tt := range tests {
		got, ok := nextPortName(ports, tt.current)
		if !ok || got != tt.want {
			t.Errorf("nextPortName(%q) = %q, %v; want %q", tt.current, got, ok, tt.want)
		}
	}

	if _, ok := nextPortName(nil, "x"); ok {
		t.Error("nextPortName found a port in an empty list")
	}
}

func TestErrorMsg(t *testing.T) {
	silent := []error{
		nil,
		fmt.Errorf("joint 0 angle 200: %w", arm.ErrInvalidAngle),
		&session.ConnectionError{Reason: session.Busy, Err: errors.New("cool-down")},
	}
	for _, err := range silent {
		if msg := errorMsg(err); msg != nil {
			t.Errorf("errorMsg(%v) = %#v, want nil", err, msg)
		}
	}

	openErr := &session.ConnectionError{Reason: session.OpenFailed, Err: errors.New("no such device")}
	msg, ok := errorMsg(openErr).(events.ErrMsg)
	if !ok || !errors.Is(msg.Err, session.ErrOpenFailed) {
		t.Errorf("errorMsg(open failed) = %#v", errorMsg(openErr))
	}
}

func TestSummary(t *testing.T) {
	s := controller.Snapshot{ConnectionLabel: "Connected to mock", LastCommand: "S1 90"}
	if got, want := summary(s), "armterm · Connected to mock · S1 90"; got != want {
		t.Errorf("summary = %q, want %q", got, want)
	}
}

func TestSubmit_Pose(t *testing.T) {
	m, ctrl := newTestModel(t)

	cmd := m.submit("S1 10,S2 20")
	if msg := cmd(); msg != nil {
		t.Fatalf("submit returned %#v", msg)
	}
	pos := ctrl.Snapshot().Positions
	if pos[0] != 10 || pos[1] != 20 || pos[2] != arm.HomeAngle {
		t.Errorf("positions = %v", pos)
	}
}

func TestSubmit_AngleTargetsSelectedJoint(t *testing.T) {
	m, ctrl := newTestModel(t)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.joints.Selected() != 1 {
		t.Fatalf("selected = %d, want 1", m.joints.Selected())
	}

	if msg := m.submit("45")(); msg != nil {
		t.Fatalf("submit returned %#v", msg)
	}
	if got := ctrl.Snapshot().Positions[1]; got != 45 {
		t.Errorf("joint 1 = %d, want 45", got)
	}
}

func TestSubmit_InvalidAngleIsSilent(t *testing.T) {
	m, ctrl := newTestModel(t)

	if msg := m.submit("500")(); msg != nil {
		t.Errorf("submit returned %#v", msg)
	}
	if got := ctrl.Snapshot().Positions[0]; got != arm.HomeAngle {
		t.Errorf("joint 0 = %d, want %d", got, arm.HomeAngle)
	}
}

func TestSubmit_MalformedPose(t *testing.T) {
	m, ctrl := newTestModel(t)

	msg, ok := m.submit("S1 10,S2 x")().(events.ErrMsg)
	if !ok || !errors.Is(msg.Err, arm.ErrMalformedCommand) {
		t.Fatalf("submit returned %#v", msg)
	}
	if got := ctrl.Snapshot().Positions[0]; got != arm.HomeAngle {
		t.Error("malformed pose changed the arm")
	}
}

func TestSubmit_Filter(t *testing.T) {
	m, _ := newTestModel(t)

	if got := m.submit("/PONG")(); got != events.MsgLogFilterStringMsg("PONG") {
		t.Errorf("submit returned %#v", got)
	}
}

func TestSerialTxAddsPose(t *testing.T) {
	m, _ := newTestModel(t)

	m = update(t, m, events.SerialTxMsg{Time: time.Now(), Data: "S1 90,S2 90"})
	m = update(t, m, events.SerialTxMsg{Time: time.Now(), Data: "S1 90,S2 90"})
	if m.poses.Len() != 1 {
		t.Errorf("poses = %v", m.poses.Poses())
	}
	if m.msglog.GetLen() != 3 { // start line plus both sends
		t.Errorf("msglog lines = %d, want 3", m.msglog.GetLen())
	}
}

func TestStateChanged_FollowsConnection(t *testing.T) {
	m, ctrl := newTestModel(t)

	snap := ctrl.Snapshot()
	snap.State = session.Connecting
	snap.Positions = []int{1, 2, 3, 4, 5}

	next, cmd := m.Update(events.StateChangedMsg(snap))
	m = next.(model)
	if m.conStatus != events.Connecting {
		t.Errorf("conStatus = %v, want Connecting", m.conStatus)
	}
	if cmd == nil {
		t.Error("no spinner tick while connecting")
	}
	if m.chart.View() == "" {
		t.Error("chart not rendered")
	}

	snap.State = session.Connected
	m = update(t, m, events.StateChangedMsg(snap))
	if m.conStatus != events.Connected {
		t.Errorf("conStatus = %v, want Connected", m.conStatus)
	}
}

func TestKeysReachInput(t *testing.T) {
	m, _ := newTestModel(t)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("42")})
	if got := m.input.Ta.Value(); got != "42" {
		t.Errorf("input = %q", got)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	if !m.showHelp {
		t.Fatal("help not shown")
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if got := m.input.Ta.Value(); got != "42" {
		t.Errorf("keys leaked through the help overlay: %q", got)
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.showHelp {
		t.Error("help still shown after esc")
	}
}

func TestEditorFinishedRestarts(t *testing.T) {
	m, _ := newTestModel(t)

	m = update(t, m, msglog.EditorFinishedMsg{})
	if !m.restartApp {
		t.Error("restartApp not set")
	}
}
