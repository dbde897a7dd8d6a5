package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/gookit/color"
)

// Options configures a Handler.
type Options struct {
	Level slog.Leveler
	Color bool
}

// Handler is a compact, optionally colored slog handler. The component
// attribute is rendered as a [bracketed] prefix instead of key=value.
type Handler struct {
	w     io.Writer
	mu    *sync.Mutex
	level slog.Leveler
	color bool
	attrs []slog.Attr
}

func NewHandler(w io.Writer, opts *Options) *Handler {
	if opts == nil {
		opts = &Options{}
	}
	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}
	return &Handler{
		w:     w,
		mu:    &sync.Mutex{},
		level: level,
		color: opts.Color,
	}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var component string
	var inline []string

	collect := func(a slog.Attr) {
		if a.Key == "component" {
			component = a.Value.String()
			return
		}
		inline = append(inline, h.fmtAttr(a))
	}
	for _, a := range h.attrs {
		collect(a)
	}
	var recAttrs []slog.Attr
	r.Attrs(func(a slog.Attr) bool {
		recAttrs = append(recAttrs, a)
		return true
	})
	// Fields arrive from a map; sort for stable output.
	sort.SliceStable(recAttrs, func(i, j int) bool { return recAttrs[i].Key < recAttrs[j].Key })
	for _, a := range recAttrs {
		collect(a)
	}

	var sb strings.Builder
	sb.WriteString(r.Time.Format("2006-01-02 15:04:05"))
	sb.WriteByte(' ')
	sb.WriteString(h.levelLabel(r.Level))
	if component != "" {
		sb.WriteString(" [")
		sb.WriteString(component)
		sb.WriteByte(']')
	}
	sb.WriteByte(' ')
	sb.WriteString(r.Message)
	for _, s := range inline {
		sb.WriteString(s)
	}
	sb.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, sb.String())
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	combined := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(combined, h.attrs)
	copy(combined[len(h.attrs):], attrs)
	return &Handler{w: h.w, mu: h.mu, level: h.level, color: h.color, attrs: combined}
}

func (h *Handler) WithGroup(string) slog.Handler {
	return h
}

func (h *Handler) fmtAttr(a slog.Attr) string {
	if h.color {
		return fmt.Sprintf(" %s=%s", color.FgGray.Render(a.Key), a.Value.String())
	}
	return fmt.Sprintf(" %s=%s", a.Key, a.Value.String())
}

func (h *Handler) levelLabel(level slog.Level) string {
	var label string
	var style color.Color
	switch {
	case level >= slog.LevelError:
		label, style = "ERR", color.FgRed
	case level >= slog.LevelWarn:
		label, style = "WRN", color.FgYellow
	case level >= slog.LevelInfo:
		label, style = "INF", color.FgCyan
	default:
		label, style = "DBG", color.FgGray
	}
	if !h.color {
		return label
	}
	return style.Render(label)
}
