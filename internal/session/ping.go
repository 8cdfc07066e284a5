package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

const PingTimeout = 2 * time.Second

var ErrNoPong = errors.New("device did not answer PING")

// Ping checks a freshly opened port by writing PING and waiting for a PONG
// line. Other lines are skipped. The caller owns the port and should close it
// when Ping fails, which also stops the pending read.
func Ping(ctx context.Context, port Port) error {
	ctx, cancel := context.WithTimeout(ctx, PingTimeout)
	defer cancel()

	if _, err := io.WriteString(port, "PING\n"); err != nil {
		return &ConnectionError{Reason: WriteFailed, Err: err}
	}

	result := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(port)
		var last string
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "PONG" {
				result <- nil
				return
			}
			if line != "" {
				last = line
			}
		}
		if err := scanner.Err(); err != nil {
			result <- &ConnectionError{Reason: ReadError, Err: err}
			return
		}
		result <- fmt.Errorf("%w: stream ended after %q", ErrNoPong, last)
	}()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrNoPong, ctx.Err())
	}
}
