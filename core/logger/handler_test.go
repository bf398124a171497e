package logger

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newTestHandler(buf *bytes.Buffer, format logFormat) (*slog.Logger, *asyncWriter) {
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	h := newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	return slog.New(h), aw
}

func flushLine(t *testing.T, aw *asyncWriter, buf *bytes.Buffer) string {
	t.Helper()
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return strings.TrimSpace(buf.String())
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	log, aw := newTestHandler(buf, formatKV)
	ctx := WithRID(context.Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	LogEvent(ctx, log.With("component", "conversation"), slog.LevelInfo, "state.changed",
		slog.String("status", "ok"),
		slog.String("to_state", "entering_phone"),
	)

	line := flushLine(t, aw, buf)
	tokens := strings.Split(line, " ")
	expected := []string{"ts=", "level=INFO", "component=conversation", "event=state.changed", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9"}
	if len(tokens) < len(expected) {
		t.Fatalf("unexpected token count: %d (%s)", len(tokens), line)
	}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	log, aw := newTestHandler(buf, formatJSON)
	ctx := WithRID(context.Background(), "rid-json")

	LogEvent(ctx, log.With("component", "payment"), slog.LevelError, "charge.failed",
		slog.String("status", "fail"),
		slog.String("reference", "BINGWA-1"),
		slog.Any("err", errors.New("boom")),
	)

	line := flushLine(t, aw, buf)
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"payment"`, `"event":"charge.failed"`, `"status":"fail"`, `"rid":"rid-json"`, `"reference":"BINGWA-1"`, `"err":"boom"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		if idx == -1 || idx < pos {
			t.Fatalf("prefix %s not found in order within %s", pref, line)
		}
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	buf := &bytes.Buffer{}
	log, aw := newTestHandler(buf, formatKV)
	raw := "123:456:789"
	LogEvent(WithRID(context.Background(), raw), log, slog.LevelInfo, "rid.test")

	line := flushLine(t, aw, buf)
	if !strings.Contains(line, "rid="+CompactRID(raw)) {
		t.Fatalf("expected compact rid, got %s", line)
	}
	if strings.Contains(line, "rid_full=") {
		t.Fatalf("rid_full should be omitted in KV output, got %s", line)
	}
	if !strings.Contains(line, "component=app") {
		t.Fatalf("expected default component, got %s", line)
	}
}

func TestStructuredHandlerCompactRIDJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	log, aw := newTestHandler(buf, formatJSON)
	raw := "12:34:56"
	LogEvent(WithRID(context.Background(), raw), log, slog.LevelInfo, "rid.test")

	line := flushLine(t, aw, buf)
	if !strings.Contains(line, `"rid":"`+CompactRID(raw)+`"`) {
		t.Fatalf("expected compact rid in JSON, got %s", line)
	}
	if !strings.Contains(line, `"rid_full":"`+raw+`"`) {
		t.Fatalf("expected rid_full in JSON output, got %s", line)
	}
	if !strings.Contains(line, `"ts_unix_nano"`) {
		t.Fatalf("expected ts_unix_nano in JSON output, got %s", line)
	}
}

func TestStructuredHandlerDurationAndOutcome(t *testing.T) {
	buf := &bytes.Buffer{}
	log, aw := newTestHandler(buf, formatKV)
	LogEvent(context.Background(), log, slog.LevelInfo, "charge.done",
		slog.Duration("duration", 1500*time.Microsecond),
		slog.String("outcome", "Pending"),
		slog.String("cache", ""),
	)

	line := flushLine(t, aw, buf)
	if !strings.Contains(line, "duration_ms=2") {
		t.Fatalf("expected rounded duration_ms, got %s", line)
	}
	if !strings.Contains(line, "outcome=pending") {
		t.Fatalf("expected normalized outcome, got %s", line)
	}
	if strings.Contains(line, "cache=") {
		t.Fatalf("empty attrs must be pruned, got %s", line)
	}
}

func TestStructuredHandlerSkipsBelowLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	log, aw := newTestHandler(buf, formatKV)
	LogEvent(context.Background(), log, slog.LevelDebug, "noise")
	if line := flushLine(t, aw, buf); line != "" {
		t.Fatalf("expected no output, got %s", line)
	}
}

func TestMask(t *testing.T) {
	if got := Mask("254712345678", 4); got != "********5678" {
		t.Fatalf("Mask = %s", got)
	}
	if got := Mask("123", 4); got != "123" {
		t.Fatalf("Mask short = %s", got)
	}
}

func TestParseRatioSpec(t *testing.T) {
	cases := map[string][2]int{
		"1/50": {1, 50},
		"10":   {1, 10},
		"0":    {0, 0},
		"x/y":  {0, 0},
	}
	for in, want := range cases {
		n, d := parseRatioSpec(in)
		if n != want[0] || d != want[1] {
			t.Fatalf("parseRatioSpec(%q) = %d/%d, want %d/%d", in, n, d, want[0], want[1])
		}
	}
}
