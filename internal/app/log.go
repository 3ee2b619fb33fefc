package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// rosterHandler is a custom slog.Handler that formats log records as:
//
//	<timestamp>\t<level>\t<opID>\t<message>\t<key=value ...>
//
// Values containing whitespace are quoted so a line always splits
// cleanly on tabs.
type rosterHandler struct {
	w     io.Writer
	opID  string
	attrs []slog.Attr
}

func (h *rosterHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *rosterHandler) Handle(_ context.Context, r slog.Record) error {
	var line strings.Builder
	line.WriteString(r.Time.UTC().Format("2006-01-02 15:04:05.000"))
	line.WriteByte('\t')
	line.WriteString(r.Level.String())
	line.WriteByte('\t')
	line.WriteString(h.opID)
	line.WriteByte('\t')
	line.WriteString(r.Message)

	for _, a := range h.attrs {
		writeAttr(&line, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&line, a)
		return true
	})
	line.WriteByte('\n')

	_, err := io.WriteString(h.w, line.String())
	return err
}

func writeAttr(line *strings.Builder, a slog.Attr) {
	value := fmt.Sprintf("%v", a.Value)
	if strings.ContainsAny(value, " \t\n") {
		value = strconv.Quote(value)
	}
	line.WriteByte('\t')
	line.WriteString(a.Key)
	line.WriteByte('=')
	line.WriteString(value)
}

func (h *rosterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &rosterHandler{
		w:     h.w,
		opID:  h.opID,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *rosterHandler) WithGroup(string) slog.Handler { return h }

// newLogger creates a structured logger that writes to both
// logDir/roster.log and stderr. It returns the slog.Logger, the open log
// file (for cleanup), and any error.
func newLogger(logDir string, opID string) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	logPath := filepath.Join(logDir, "roster.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	w := io.MultiWriter(f, os.Stderr)
	handler := &rosterHandler{w: w, opID: opID}
	return slog.New(handler), f, nil
}

// slogAdapter wraps *slog.Logger to satisfy the roster.Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
