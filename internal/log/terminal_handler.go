package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const (
	ansiReset = "\033[0m"
	ansiDim   = "\033[2m"
	ansiBold  = "\033[1m"
)

// levelPaint maps a record level to its three-letter label and colour.
func levelPaint(level slog.Level) (label, color string) {
	switch {
	case level < slog.LevelInfo:
		return "DBG", "\033[36m"
	case level < slog.LevelWarn:
		return "INF", "\033[32m"
	case level < slog.LevelError:
		return "WRN", "\033[33m"
	default:
		return "ERR", "\033[31m"
	}
}

// terminalHandler formats log records as coloured terminal output:
//
//	15:04:05.000 INF quote served total=9530
type terminalHandler struct {
	writer io.Writer
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string
	mu     *sync.Mutex
}

func newTerminalHandler(w io.Writer, level slog.Leveler) *terminalHandler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &terminalHandler{
		writer: w,
		level:  level,
		mu:     &sync.Mutex{},
	}
}

func (h *terminalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *terminalHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	buf.Grow(256)

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	paint(&buf, ansiDim, ts.Format("15:04:05.000"))
	buf.WriteByte(' ')

	label, color := levelPaint(r.Level)
	paint(&buf, color, label)
	buf.WriteByte(' ')

	paint(&buf, ansiBold, r.Message)

	for _, a := range h.attrs {
		writeAttr(&buf, a, h.prefix)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&buf, a, h.prefix)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(buf.Bytes())
	return err
}

func (h *terminalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *terminalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

func paint(buf *bytes.Buffer, color, text string) {
	buf.WriteString(color)
	buf.WriteString(text)
	buf.WriteString(ansiReset)
}

// writeAttr appends one " key=value" pair, recursing through groups by
// extending the dotted key prefix.
func writeAttr(buf *bytes.Buffer, a slog.Attr, prefix string) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		inner := prefix
		if a.Key != "" {
			inner += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			writeAttr(buf, ga, inner)
		}
		return
	}

	buf.WriteByte(' ')
	paint(buf, ansiDim, prefix+a.Key+"=")
	buf.WriteString(attrValue(a.Value))
}

func attrValue(v slog.Value) string {
	if v.Kind() == slog.KindString {
		s := v.String()
		if strings.ContainsAny(s, " \t\n\"\\") {
			return fmt.Sprintf("%q", s)
		}
		return s
	}
	return v.String()
}
