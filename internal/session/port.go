package session

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Port is an interface that matches io.ReadWriteCloser.
// This interface is used to utilize either a real serial port
// or a simulated device for development and tests.
type Port io.ReadWriteCloser

// Opener opens the transport for a session.
type Opener interface {
	Open(ctx context.Context, name string, mode *serial.Mode) (Port, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context, name string, mode *serial.Mode) (Port, error)

func (f OpenerFunc) Open(ctx context.Context, name string, mode *serial.Mode) (Port, error) {
	return f(ctx, name, mode)
}

// SerialOpener opens real serial devices.
type SerialOpener struct{}

func (SerialOpener) Open(ctx context.Context, name string, mode *serial.Mode) (Port, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, ErrNoPortSelected
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return port, nil
}

// Mode returns the serial mode every session is opened with.
func Mode() *serial.Mode {
	return &serial.Mode{
		BaudRate: BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// picoVID is the USB vendor id of Raspberry Pi boards.
const picoVID = "2E8A"

// PortInfo describes one enumerated serial port.
type PortInfo struct {
	Name         string
	IsUSB        bool
	VID          string
	PID          string
	SerialNumber string
	Product      string
}

// IsPico reports whether the port looks like a Raspberry Pi Pico.
func (p PortInfo) IsPico() bool {
	if strings.EqualFold(p.VID, picoVID) {
		return true
	}
	return strings.Contains(p.Product, "Pico") || strings.Contains(p.Product, "RP2")
}

// ListPorts enumerates the serial ports of the host.
func ListPorts() ([]PortInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate ports: %w", err)
	}

	infos := make([]PortInfo, 0, len(ports))
	for _, port := range ports {
		infos = append(infos, PortInfo{
			Name:         port.Name,
			IsUSB:        port.IsUSB,
			VID:          port.VID,
			PID:          port.PID,
			SerialNumber: port.SerialNumber,
			Product:      port.Product,
		})
	}
	return infos, nil
}

// FindPico returns the first port that looks like a Pico.
func FindPico(ports []PortInfo) (PortInfo, bool) {
	for _, p := range ports {
		if p.IsPico() {
			return p, true
		}
	}
	return PortInfo{}, false
}
