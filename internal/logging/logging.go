// Package logging builds the application logger.
//
// The terminal UI owns stdout, so debug output only goes to a file, and only
// when ARMTERM_LOG is set. Headless commands log to the console. Under
// systemd every record is also sent to the journal.
package logging

import (
	"context"
	"io"
	"log"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"
)

const (
	EnvVar    = "ARMTERM_LOG"
	DebugFile = "armterm_debug.log"
)

// Level is shared by every handler created here.
var Level = new(slog.LevelVar)

// Options selects the local log destination.
type Options struct {
	// Console receives text logs. When nil, logs go to DebugFile if
	// ARMTERM_LOG is set and are dropped otherwise.
	Console io.Writer
	Debug   bool
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Start returns the application logger. The closer releases the debug file.
func Start(opts Options) (*slog.Logger, io.Closer, error) {
	var handlers []slog.Handler
	var closer io.Closer = nopCloser{}

	if opts.Debug {
		Level.Set(slog.LevelDebug)
	}

	isService := isSystemdService()

	var local slog.Handler
	switch {
	case opts.Console != nil && !isService:
		local = slog.NewTextHandler(opts.Console, &slog.HandlerOptions{Level: Level})

	case opts.Console == nil && os.Getenv(EnvVar) != "":
		// also captures bubbletea's own log output
		f, err := tea.LogToFile(DebugFile, "debug")
		if err != nil {
			return nil, nil, err
		}
		closer = f
		Level.Set(slog.LevelDebug)
		local = slog.NewTextHandler(f, &slog.HandlerOptions{Level: Level})

	case opts.Console == nil:
		log.SetOutput(io.Discard)
	}
	if local != nil {
		handlers = append(handlers, local)
	}

	if isService {
		journal, err := slogjournal.NewHandler(&slogjournal.Options{
			Level: Level,
			ReplaceGroup: func(key string) string {
				return toJournalKey(key)
			},
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				a.Key = toJournalKey(a.Key)
				return a
			},
		})
		if err != nil {
			if local != nil {
				record := slog.NewRecord(time.Now(), slog.LevelWarn, "new systemd journal handler", 0)
				record.Add("error", err)
				_ = local.Handle(context.Background(), record)
			}
		} else {
			handlers = append(handlers, journal)
		}
	}

	if len(handlers) == 0 {
		return slog.New(slog.DiscardHandler), closer, nil
	}
	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}

// OpenTraffic opens (or creates) a plain log of all serial traffic shown in
// the message log. An empty path disables it.
func OpenTraffic(path string) (*log.Logger, io.Closer, error) {
	if path == "" {
		return nil, nopCloser{}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return log.New(f, "", log.LstdFlags|log.Lmicroseconds), f, nil
}

func toJournalKey(str string) string {
	str = strings.ToUpper(str)
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' ||
			r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, str)
}

func isSystemdService() bool {
	content, err := os.ReadFile("/proc/self/cgroup")
	if err != nil {
		return false
	}
	return cgroupIsService(string(content))
}

// cgroupIsService reports whether the first /proc/self/cgroup entry lies in
// a systemd service unit, directly or in a sub-group of it.
func cgroupIsService(content string) bool {
	line, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	parts := strings.SplitN(line, ":", 3)
	if len(parts) < 3 {
		return false
	}
	p := parts[2]
	return strings.HasSuffix(p, ".service") || strings.HasSuffix(path.Dir(p), ".service")
}
