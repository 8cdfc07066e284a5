package msglog

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/acarl005/stripansi"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mahlburgc/armterm/events"
)

func plain(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = stripansi.Strip(l)
	}
	return out
}

func TestAddMsg_PrefixesAndCount(t *testing.T) {
	m := New(false, false, nil, 100)
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	m, _ = m.Update(events.SerialTxMsg{Time: ts, Data: "S1 90"})
	m, _ = m.Update(events.SerialRxMsg{Time: ts, Text: "You entered: S1 90"})
	m, _ = m.Update(events.ErrMsg{Err: errors.New("write failed")})
	m, _ = m.Update(events.InfoMsg("connected"))

	got := plain(m.log[1:])
	want := []string{"> S1 90", "You entered: S1 90", "ERROR: write failed", "INFO: connected"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("log = %q, want %q", got, want)
	}
	if m.msgCnt != 2 {
		t.Errorf("msgCnt = %d, want 2 (rx and tx only)", m.msgCnt)
	}
}

func TestAddMsg_Timestamp(t *testing.T) {
	m := New(true, false, nil, 100)
	ts := time.Date(2026, 1, 2, 3, 4, 5, 6_000_000, time.UTC)

	m, _ = m.Update(events.SerialRxMsg{Time: ts, Text: "PONG"})

	if got := stripansi.Strip(m.log[1]); got != "[03:04:05.006] PONG" {
		t.Errorf("line = %q", got)
	}
}

func TestAddMsg_Escapes(t *testing.T) {
	raw := New(false, true, nil, 100)
	raw, _ = raw.Update(events.SerialRxMsg{Text: "a\tb"})
	if got := stripansi.Strip(raw.log[1]); got != `"a\tb"` {
		t.Errorf("escaped line = %q", got)
	}

	clean := New(false, false, nil, 100)
	clean, _ = clean.Update(events.SerialRxMsg{Text: "a\x07b"})
	if got := stripansi.Strip(clean.log[1]); strings.ContainsRune(got, '\x07') {
		t.Errorf("control character kept: %q", got)
	}
}

func TestAddMsg_SerialLog(t *testing.T) {
	var buf bytes.Buffer
	m := New(false, false, log.New(&buf, "", 0), 100)

	m.Update(events.SerialTxMsg{Data: "S1 45"})

	if buf.String() != "> S1 45\n" {
		t.Errorf("serial log = %q", buf.String())
	}
}

func TestLogLimit(t *testing.T) {
	m := New(false, false, nil, 3)

	for _, line := range []string{"a", "b", "c", "d"} {
		m, _ = m.Update(events.SerialRxMsg{Text: line})
	}

	if len(m.log) != 3 {
		t.Fatalf("log has %d lines, want 3", len(m.log))
	}
	if !strings.HasPrefix(stripansi.Strip(m.log[0]), "Message log start") {
		t.Errorf("first line = %q, want start message", m.log[0])
	}
	if got := plain(m.log[1:]); got[0] != "c" || got[1] != "d" {
		t.Errorf("kept %q, want newest lines", got)
	}
}

func TestFilter(t *testing.T) {
	m := New(false, false, nil, 100)
	for _, line := range []string{"You entered: S1 10", "Parsed S1: 10", "PONG"} {
		m, _ = m.Update(events.SerialRxMsg{Text: line})
	}

	m, _ = m.Update(events.MsgLogFilterStringMsg("parsed"))
	got := plain(m.logFiltered)
	if len(got) != 2 || got[1] != "Parsed S1: 10" {
		t.Errorf("filtered = %q", got)
	}

	// all words must match
	m, _ = m.Update(events.MsgLogFilterStringMsg("s1 pong"))
	if len(m.logFiltered) != 1 {
		t.Errorf("filtered = %q, want start message only", plain(m.logFiltered))
	}

	m, _ = m.Update(events.MsgLogFilterStringMsg(""))
	if len(m.logFiltered) != 4 {
		t.Errorf("filter reset shows %d lines, want 4", len(m.logFiltered))
	}
}

func TestScroll(t *testing.T) {
	m := New(false, false, nil, 100)
	m.SetSize(20, 5) // three content lines inside the border
	for i := 0; i < 10; i++ {
		m, _ = m.Update(events.SerialRxMsg{Text: "line"})
	}
	if !m.atBottom() || m.GetScrollPercent() != 100 {
		t.Fatal("new log not at bottom")
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyHome})
	if !m.atTop() {
		t.Error("home did not scroll to top")
	}

	// received lines keep the scrolled position
	m, _ = m.Update(events.SerialRxMsg{Text: "line"})
	if m.atBottom() {
		t.Error("rx line jumped to bottom while scrolled up")
	}

	// sent lines jump back
	m, _ = m.Update(events.SerialTxMsg{Data: "S1 1"})
	if !m.atBottom() {
		t.Error("tx line did not jump to bottom")
	}
}

func TestClearLog(t *testing.T) {
	m := New(false, false, nil, 100)
	m, _ = m.Update(events.SerialRxMsg{Text: "x"})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	if m.GetLen() != 1 || m.msgCnt != 0 {
		t.Errorf("after clear: len %d, count %d", m.GetLen(), m.msgCnt)
	}
}
