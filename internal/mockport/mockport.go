// Package mockport simulates the arm controller board for development and tests.
package mockport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/mahlburgc/armterm/internal/arm"
	"github.com/mahlburgc/armterm/internal/session"
	"go.bug.st/serial"
)

var ErrClosed = errors.New("mock port closed")

// Device behaves like the arm firmware: every received line is echoed back
// as "You entered: <line>" followed by the parsed joint positions, and PING
// is answered with PONG.
type Device struct {
	// Channel to send data to the reading process
	rxChan chan []byte
	// Context to handle closing the port
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu       sync.Mutex
	leftover []byte
	partial  []byte
	angles   []int
	received []string
	writeErr error
}

// New creates a simulated device with n joints at the home angle.
func New(n int) *Device {
	if n < 1 {
		n = arm.DefaultJoints
	}
	ctx, cancel := context.WithCancel(context.Background())

	d := &Device{
		rxChan: make(chan []byte, 64),
		ctx:    ctx,
		cancel: cancel,
		angles: make([]int, n),
	}
	for i := range d.angles {
		d.angles[i] = arm.HomeAngle
	}
	return d
}

// Read blocks until the device has output or the port is closed.
func (d *Device) Read(p []byte) (int, error) {
	d.mu.Lock()
	if len(d.leftover) > 0 {
		n := copy(p, d.leftover)
		d.leftover = d.leftover[n:]
		d.mu.Unlock()
		return n, nil
	}
	d.mu.Unlock()

	select {
	case data := <-d.rxChan:
		n := copy(p, data)
		if n < len(data) {
			d.mu.Lock()
			d.leftover = append(d.leftover, data[n:]...)
			d.mu.Unlock()
		}
		return n, nil
	case <-d.ctx.Done():
		// The port was closed, return EOF.
		return 0, io.EOF
	}
}

// Write feeds bytes to the simulated firmware.
func (d *Device) Write(p []byte) (int, error) {
	if d.ctx.Err() != nil {
		return 0, ErrClosed
	}

	d.mu.Lock()
	if d.writeErr != nil {
		err := d.writeErr
		d.mu.Unlock()
		return 0, err
	}
	d.partial = append(d.partial, p...)
	var lines []string
	for {
		idx := bytes.IndexByte(d.partial, '\n')
		if idx < 0 {
			break
		}
		line := strings.TrimSpace(string(d.partial[:idx]))
		d.partial = d.partial[idx+1:]
		if line != "" {
			lines = append(lines, line)
		}
	}
	d.mu.Unlock()

	for _, line := range lines {
		d.handle(line)
	}
	return len(p), nil
}

// Close stops the device. Pending reads return io.EOF.
func (d *Device) Close() error {
	d.closeOnce.Do(d.cancel)
	return nil
}

func (d *Device) handle(line string) {
	d.mu.Lock()
	d.received = append(d.received, line)
	d.mu.Unlock()

	if line == "PING" {
		d.Emit("PONG\r\n")
		return
	}

	d.Emit(fmt.Sprintf("You entered: %s\r\n", line))

	// unparsable parts keep their previous value
	decoded, _ := arm.Decode(line)

	d.mu.Lock()
	for joint, angle := range decoded {
		if joint >= 1 && joint <= len(d.angles) {
			d.angles[joint-1] = angle
		}
	}
	parts := make([]string, len(d.angles))
	for i, a := range d.angles {
		parts[i] = fmt.Sprintf("S%d: %d", i+1, a)
	}
	d.mu.Unlock()

	d.Emit("Parsed " + strings.Join(parts, ", ") + "\r\n")
}

// Emit queues raw device output for the host. Output is dropped when the
// host does not keep up or the port is closed.
func (d *Device) Emit(data string) {
	if d.ctx.Err() != nil {
		return
	}
	select {
	case d.rxChan <- []byte(data):
	default:
	}
}

// FailWrites makes every following write fail with err; nil restores writes.
func (d *Device) FailWrites(err error) {
	d.mu.Lock()
	d.writeErr = err
	d.mu.Unlock()
}

// Angles returns the joint positions the firmware has applied.
func (d *Device) Angles() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]int, len(d.angles))
	copy(out, d.angles)
	return out
}

// Received returns the command lines the device got so far.
func (d *Device) Received() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.received))
	copy(out, d.received)
	return out
}

// Opener hands out a fresh Device on every Open, so sessions can be
// reopened after a disconnect like a real board.
type Opener struct {
	Joints int

	mu   sync.Mutex
	last *Device
	fail error
}

func (o *Opener) Open(ctx context.Context, name string, mode *serial.Mode) (session.Port, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.fail != nil {
		return nil, o.fail
	}
	o.last = New(o.Joints)
	return o.last, nil
}

// Fail makes following opens fail with err; nil restores opening.
func (o *Opener) Fail(err error) {
	o.mu.Lock()
	o.fail = err
	o.mu.Unlock()
}

// Last returns the device handed out by the most recent successful Open.
func (o *Opener) Last() *Device {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}
