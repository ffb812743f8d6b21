package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

type Config struct {
	Level  string
	Format string // "text", "json", "console"
	Output io.Writer
	// File, when set, takes the place of Output. It is opened for append.
	File string
}

var (
	once sync.Once
	lg   *slog.Logger
)

// Init installs the process-wide logger once. The returned closer releases
// the log file, if any.
func Init(cfg Config) (io.Closer, error) {
	var (
		closer io.Closer = nopCloser{}
		err    error
	)
	once.Do(func() {
		if cfg.File != "" {
			var f *os.File
			f, err = os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				err = fmt.Errorf("open log file: %w", err)
			} else {
				cfg.Output = f
				closer = f
			}
		}
		lg = slog.New(NewHandler(cfg))
		slog.SetDefault(lg)
	})
	return closer, err
}

// NewHandler builds the handler Init would install, without installing it.
func NewHandler(cfg Config) slog.Handler {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	level := parseLevel(cfg.Level)
	switch strings.ToLower(cfg.Format) {
	case "json":
		return slog.NewJSONHandler(cfg.Output, &slog.HandlerOptions{Level: level})
	case "text":
		return slog.NewTextHandler(cfg.Output, &slog.HandlerOptions{Level: level})
	default:
		return newConsoleHandler(cfg.Output, level)
	}
}

func L() *slog.Logger {
	if lg == nil {
		_, _ = Init(Config{Level: "debug", Format: "console"})
	}
	return lg
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func parseLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// consoleHandler outputs human-friendly log lines:
//
//	12:00:00 INFO  Speed  tick=1000 ups=512 max_ups=530
//
// Floats print with six significant digits and vectors as (x, y, z), so
// float32 simulation values read the way they were set.
type consoleHandler struct {
	w     io.Writer
	mu    *sync.Mutex
	level slog.Level
	attrs []slog.Attr
	group string
}

func newConsoleHandler(w io.Writer, level slog.Level) *consoleHandler {
	return &consoleHandler{w: w, mu: &sync.Mutex{}, level: level}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Time.Format(time.TimeOnly)) // "15:04:05"
	b.WriteByte(' ')
	b.WriteString(levelTag(r.Level))
	b.WriteByte(' ')
	b.WriteString(r.Message)

	// pre-attached attrs (from WithAttrs)
	for _, a := range h.attrs {
		b.WriteString(formatAttr(h.group, a))
	}
	// per-record attrs
	r.Attrs(func(a slog.Attr) bool {
		b.WriteString(formatAttr(h.group, a))
		return true
	})
	b.WriteByte('\n')

	if h.mu != nil {
		h.mu.Lock()
		defer h.mu.Unlock()
	}
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &consoleHandler{
		w:     h.w,
		mu:    h.mu,
		level: h.level,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
		group: h.group,
	}
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &consoleHandler{
		w:     h.w,
		mu:    h.mu,
		level: h.level,
		attrs: append([]slog.Attr{}, h.attrs...),
		group: joinKey(h.group, name),
	}
}

func levelTag(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERROR"
	case l >= slog.LevelWarn:
		return "WARN "
	case l >= slog.LevelInfo:
		return "INFO "
	default:
		return "DEBUG"
	}
}

// formatAttr renders one attribute with its leading separator. Group values
// expand into one entry per member; empty attributes render as nothing.
func formatAttr(group string, a slog.Attr) string {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return ""
	}
	key := joinKey(group, a.Key)
	if a.Value.Kind() == slog.KindGroup {
		var b strings.Builder
		for _, ga := range a.Value.Group() {
			b.WriteString(formatAttr(key, ga))
		}
		return b.String()
	}
	return "  " + key + "=" + formatValue(a.Value)
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindFloat64:
		return formatFloat(v.Float64())
	case slog.KindAny:
		switch x := v.Any().(type) {
		case mgl32.Vec3:
			return "(" + formatFloat(float64(x[0])) + ", " + formatFloat(float64(x[1])) + ", " + formatFloat(float64(x[2])) + ")"
		case mgl32.Vec2:
			return "(" + formatFloat(float64(x[0])) + ", " + formatFloat(float64(x[1])) + ")"
		case float32:
			return formatFloat(float64(x))
		}
	}
	return v.String()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}

func joinKey(group, key string) string {
	if group == "" {
		return key
	}
	return group + "." + key
}
