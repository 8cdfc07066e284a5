package session

import (
	"context"
	"errors"
	"testing"
)

func TestPing_Pong(t *testing.T) {
	p := newFakePort()
	go func() {
		p.w.Write([]byte("booting\r\nPONG\r\n"))
	}()

	if err := Ping(context.Background(), p); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if got := p.output(); got != "PING\n" {
		t.Errorf("written = %q, want %q", got, "PING\n")
	}
}

func TestPing_StreamEndsWithoutPong(t *testing.T) {
	p := newFakePort()
	go func() {
		p.w.Write([]byte("You entered: PING\n"))
		p.w.Close()
	}()

	err := Ping(context.Background(), p)
	if !errors.Is(err, ErrNoPong) {
		t.Errorf("Ping error = %v, want ErrNoPong", err)
	}
}

func TestPing_Timeout(t *testing.T) {
	p := newFakePort()
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Ping(ctx, p)
	if !errors.Is(err, ErrNoPong) || !errors.Is(err, context.Canceled) {
		t.Errorf("Ping error = %v, want ErrNoPong wrapping context.Canceled", err)
	}
}

func TestPortInfo_IsPico(t *testing.T) {
	tests := []struct {
		info     PortInfo
		expected bool
	}{
		{PortInfo{Name: "/dev/ttyACM0", IsUSB: true, VID: "2e8a", PID: "0005"}, true},
		{PortInfo{Name: "COM3", Product: "Board in FS mode (RP2040)"}, true},
		{PortInfo{Name: "COM4", Product: "Raspberry Pi Pico"}, true},
		{PortInfo{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0403", PID: "6001", Product: "FT232R"}, false},
		{PortInfo{Name: "/dev/ttyS0"}, false},
	}

	for _, tt := range tests {
		if got := tt.info.IsPico(); got != tt.expected {
			t.Errorf("IsPico(%+v) = %v, want %v", tt.info, got, tt.expected)
		}
	}
}

func TestFindPico(t *testing.T) {
	ports := []PortInfo{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyACM0", VID: "2E8A"},
		{Name: "/dev/ttyACM1", VID: "2E8A"},
	}

	p, ok := FindPico(ports)
	if !ok || p.Name != "/dev/ttyACM0" {
		t.Errorf("FindPico = %+v, %v; want /dev/ttyACM0", p, ok)
	}

	if _, ok := FindPico(ports[:1]); ok {
		t.Error("FindPico found a Pico among non-Pico ports")
	}
}
