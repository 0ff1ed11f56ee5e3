// Package logger builds the slog.Logger used by the crashkit command and the
// example application: tinted console output plus an optional rotated JSON
// file, with credential-bearing attributes redacted before they reach either
// destination.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options defines parameters for logger creation.
type Options struct {
	Env          string
	ConsoleLevel string // level for console output (default: info)
	FileLevel    string // level for file output (default: debug)
	File         string // JSON log file path; empty disables file output
	App          string
	NoColor      bool
}

// sensitiveKeys lists attribute names whose values never reach a log line.
// DSNs carry credentials in the URL userinfo, so they count as secrets.
var sensitiveKeys = []string{"dsn", "token", "secret", "api_key", "authorization"}

var closers sync.Map

// New creates a configured slog.Logger instance.
func New(o Options) *slog.Logger {
	consoleLevel := o.ConsoleLevel
	if consoleLevel == "" {
		consoleLevel = "info"
	}
	fileLevel := o.FileLevel
	if fileLevel == "" {
		fileLevel = "debug"
	}

	consoleLvl := levelFromString(consoleLevel)
	fileLvl := levelFromString(fileLevel)

	var handlers []slog.Handler

	var consoleHandler slog.Handler
	if o.Env == "dev" || o.Env == "development" {
		consoleHandler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      consoleLvl,
			TimeFormat: time.Kitchen,
			NoColor:    o.NoColor,
		})
	} else {
		consoleHandler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      consoleLvl,
			TimeFormat: time.RFC3339,
			NoColor:    o.NoColor,
		})
	}
	handlers = append(handlers, newRedactingHandler(consoleHandler, sensitiveKeys))

	var closer func() error

	if o.File != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    5,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
		closer = fileWriter.Close
		fileHandler := slog.NewJSONHandler(fileWriter, &slog.HandlerOptions{Level: fileLvl})
		handlers = append(handlers, newRedactingHandler(fileHandler, sensitiveKeys))
	}

	var h slog.Handler
	if len(handlers) == 1 {
		h = handlers[0]
	} else {
		h = newFanoutHandler(handlers...)
	}

	l := slog.New(h)
	var attrs []any
	if o.App != "" {
		attrs = append(attrs, slog.String("app", o.App))
	}
	if o.Env != "" {
		attrs = append(attrs, slog.String("env", o.Env))
	}
	if len(attrs) > 0 {
		l = l.With(attrs...)
	}

	if closer != nil {
		closers.Store(l, closer)
	}

	return l
}

// Close closes the file handler behind a logger returned by New to release
// resources. Should be called when shutting down the application.
func Close(logger *slog.Logger) error {
	if c, ok := closers.Load(logger); ok {
		closers.Delete(logger)
		return c.(func() error)()
	}
	return nil
}

func levelFromString(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// redactingHandler masks sensitive log attributes before the wrapped handler
// sees them.
type redactingHandler struct {
	inner slog.Handler
	keys  map[string]struct{}
}

func newRedactingHandler(inner slog.Handler, sensitive []string) *redactingHandler {
	m := make(map[string]struct{}, len(sensitive))
	for _, k := range sensitive {
		m[strings.ToLower(k)] = struct{}{}
	}
	return &redactingHandler{inner: inner, keys: m}
}

// Enabled implements slog.Handler.
func (h *redactingHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.inner.Enabled(ctx, l)
}

// Handle implements slog.Handler.
func (h *redactingHandler) Handle(ctx context.Context, r slog.Record) error {
	nr := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	var attrs []slog.Attr
	r.Attrs(func(a slog.Attr) bool { attrs = append(attrs, a); return true })
	nr.AddAttrs(h.sanitize(attrs...)...)
	return h.inner.Handle(ctx, nr)
}

// WithAttrs implements slog.Handler.
func (h *redactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &redactingHandler{inner: h.inner.WithAttrs(h.sanitize(attrs...)), keys: h.keys}
}

// WithGroup implements slog.Handler.
func (h *redactingHandler) WithGroup(name string) slog.Handler {
	return &redactingHandler{inner: h.inner.WithGroup(name), keys: h.keys}
}

func (h *redactingHandler) sanitize(attrs ...slog.Attr) []slog.Attr {
	out := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		if _, ok := h.keys[strings.ToLower(a.Key)]; ok {
			out = append(out, slog.String(a.Key, "[REDACTED]"))
			continue
		}
		if s, ok := a.Value.Any().(string); ok && looksSecret(s) {
			out = append(out, slog.String(a.Key, "[REDACTED]"))
			continue
		}
		out = append(out, a)
	}
	return out
}

// looksSecret catches credential-shaped values logged under innocuous keys:
// URLs carrying userinfo, which is how DSNs embed their key, and long
// token-like strings.
func looksSecret(s string) bool {
	if strings.Contains(s, "://") && strings.Contains(s, "@") {
		return true
	}
	return len(s) > 12 && (strings.Contains(s, "sk-") || strings.Contains(strings.ToLower(s), "token"))
}

// fanoutHandler sends each record to every handler whose level admits it.
type fanoutHandler struct {
	handlers []slog.Handler
}

func newFanoutHandler(handlers ...slog.Handler) *fanoutHandler {
	return &fanoutHandler{handlers: handlers}
}

// Enabled implements slog.Handler.
func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle implements slog.Handler.
func (h *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: handlers}
}

// WithGroup implements slog.Handler.
func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &fanoutHandler{handlers: handlers}
}
