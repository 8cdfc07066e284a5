package arm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrMalformedCommand = errors.New("malformed command")

// Encode renders an angle vector as one command line:
//
//	S1 <a1>,S2 <a2>,...,SN <aN>\n
//
// Joints are numbered from 1 on the wire.
func Encode(angles []int) string {
	var b strings.Builder
	for i, a := range angles {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('S')
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteByte(' ')
		b.WriteString(strconv.Itoa(a))
	}
	b.WriteByte('\n')
	return b.String()
}

// Decode parses a command line the way the arm firmware does and returns the
// angles keyed by 1-based joint number. Spaces around parts and a literal
// "/n" are tolerated, angles are clamped to the servo range. Parts that do
// not parse are skipped; the error reports the first of them so the caller
// can keep its previous values for those joints.
func Decode(line string) (map[int]int, error) {
	line = strings.ReplaceAll(line, "/n", "")
	line = strings.TrimSpace(line)

	out := make(map[int]int)
	var firstErr error
	for _, part := range strings.Split(line, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		joint, angle, err := decodePart(part)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		out[joint] = angle
	}
	return out, firstErr
}

func decodePart(part string) (int, int, error) {
	fields := strings.Fields(part)
	if len(fields) != 2 || len(fields[0]) < 2 || fields[0][0] != 'S' {
		return 0, 0, fmt.Errorf("%q: %w", part, ErrMalformedCommand)
	}
	joint, err := strconv.Atoi(fields[0][1:])
	if err != nil || joint < 1 {
		return 0, 0, fmt.Errorf("%q: %w", part, ErrMalformedCommand)
	}
	angle, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%q: %w", part, ErrMalformedCommand)
	}
	// the servo driver clamps, so does the decoder
	return joint, min(max(angle, MinAngle), MaxAngle), nil
}
