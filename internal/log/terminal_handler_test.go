package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestTerminalHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	h := newTerminalHandler(&buf, slog.LevelDebug)

	ts := time.Date(2026, 1, 15, 10, 30, 45, 123000000, time.UTC)
	r := slog.NewRecord(ts, slog.LevelInfo, "server started", 0)
	r.AddAttrs(slog.String("addr", "0.0.0.0:8000"))

	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"10:30:45.123", "INF", "server started", "addr=", "0.0.0.0:8000"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestTerminalHandler_LevelLabels(t *testing.T) {
	cases := map[slog.Level]string{
		slog.LevelDebug: "DBG",
		slog.LevelInfo:  "INF",
		slog.LevelWarn:  "WRN",
		slog.LevelError: "ERR",
	}

	for level, label := range cases {
		var buf bytes.Buffer
		h := newTerminalHandler(&buf, slog.LevelDebug)

		r := slog.NewRecord(time.Now(), level, "msg", 0)
		if err := h.Handle(context.Background(), r); err != nil {
			t.Fatalf("Handle() error: %v", err)
		}
		if !strings.Contains(buf.String(), label) {
			t.Errorf("level %v: expected label %q, got: %s", level, label, buf.String())
		}
	}
}

func TestTerminalHandler_WithAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	h := newTerminalHandler(&buf, slog.LevelInfo)

	logger := slog.New(h).With("component", "api").WithGroup("req")
	logger.Info("handled", "path", "/api/v1/quote")

	output := buf.String()
	if !strings.Contains(output, "component=") {
		t.Errorf("expected inherited attr, got: %s", output)
	}
	if !strings.Contains(output, "req.path=") {
		t.Errorf("expected group-prefixed attr, got: %s", output)
	}
}

func TestTerminalHandler_QuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	h := newTerminalHandler(&buf, slog.LevelInfo)

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "msg", 0)
	r.AddAttrs(slog.String("error", "endpoint down"))
	if err := h.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error: %v", err)
	}
	if !strings.Contains(buf.String(), `"endpoint down"`) {
		t.Errorf("expected quoted value, got: %s", buf.String())
	}
}

func TestTerminalHandler_Enabled(t *testing.T) {
	h := newTerminalHandler(&bytes.Buffer{}, slog.LevelWarn)

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("INFO should be disabled at WARN level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("ERROR should be enabled at WARN level")
	}
}
