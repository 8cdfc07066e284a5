package session

import "errors"

// Reason classifies a ConnectionError.
type Reason int

const (
	OpenFailed Reason = iota + 1
	WriteFailed
	ReadError
	Busy
)

func (r Reason) String() string {
	switch r {
	case OpenFailed:
		return "open failed"
	case WriteFailed:
		return "write failed"
	case ReadError:
		return "read error"
	case Busy:
		return "busy"
	default:
		return "connection error"
	}
}

// ConnectionError is returned by every failing Manager operation.
type ConnectionError struct {
	Reason Reason
	Err    error
}

// Sentinels for errors.Is; they match any ConnectionError with the same reason.
var (
	ErrOpenFailed  = &ConnectionError{Reason: OpenFailed}
	ErrWriteFailed = &ConnectionError{Reason: WriteFailed}
	ErrReadError   = &ConnectionError{Reason: ReadError}
	ErrBusy        = &ConnectionError{Reason: Busy}
)

var ErrNoPortSelected = errors.New("no serial port selected")

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return e.Reason.String()
	}
	return e.Reason.String() + ": " + e.Err.Error()
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func (e *ConnectionError) Is(target error) bool {
	t, ok := target.(*ConnectionError)
	return ok && t.Err == nil && t.Reason == e.Reason
}

// ReasonOf returns the reason of the first ConnectionError in err's chain, or 0.
func ReasonOf(err error) Reason {
	var ce *ConnectionError
	if errors.As(err, &ce) {
		return ce.Reason
	}
	return 0
}
