// Package logger provides component-scoped structured logging for efbridge.
//
// Every call names the component it comes from ("bus", "manager", a channel
// id, ...) so that interleaved output from many channels stays readable.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[LogLevel]string{
	DEBUG: "debug",
	INFO:  "info",
	WARN:  "warn",
	ERROR: "error",
}

func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "unknown"
}

// ParseLevel maps a config string to a LogLevel. Unknown values fall back to INFO.
func ParseLevel(s string) LogLevel {
	lvl, _ := LookupLevel(s)
	return lvl
}

// LookupLevel is ParseLevel that also reports whether s named a level.
func LookupLevel(s string) (LogLevel, bool) {
	for lvl, name := range levelNames {
		if name == s {
			return lvl, true
		}
	}
	return INFO, false
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case DEBUG:
		return slog.LevelDebug
	case WARN:
		return slog.LevelWarn
	case ERROR:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var (
	mu       sync.RWMutex
	levelVar = new(slog.LevelVar)
	base     = slog.New(NewHandler(os.Stderr, &Options{Level: levelVar, Color: true}))
)

// SetLevel changes the minimum level for all components.
func SetLevel(level LogLevel) {
	levelVar.Set(level.slogLevel())
}

// GetLevel returns the current minimum level.
func GetLevel() LogLevel {
	switch l := levelVar.Level(); {
	case l <= slog.LevelDebug:
		return DEBUG
	case l <= slog.LevelInfo:
		return INFO
	case l <= slog.LevelWarn:
		return WARN
	default:
		return ERROR
	}
}

// SetOutput redirects log output. Color is only worth enabling on a terminal.
func SetOutput(w io.Writer, color bool) {
	mu.Lock()
	defer mu.Unlock()
	base = slog.New(NewHandler(w, &Options{Level: levelVar, Color: color}))
}

func logC(level LogLevel, component, msg string, fields map[string]any) {
	mu.RLock()
	l := base
	mu.RUnlock()

	if !l.Enabled(context.Background(), level.slogLevel()) {
		return
	}

	attrs := make([]slog.Attr, 0, len(fields)+1)
	if component != "" {
		attrs = append(attrs, slog.String("component", component))
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	l.LogAttrs(context.Background(), level.slogLevel(), msg, attrs...)
}

func DebugC(component, msg string) { logC(DEBUG, component, msg, nil) }

func DebugCF(component, msg string, fields map[string]any) { logC(DEBUG, component, msg, fields) }

func InfoC(component, msg string) { logC(INFO, component, msg, nil) }

func InfoCF(component, msg string, fields map[string]any) { logC(INFO, component, msg, fields) }

func WarnC(component, msg string) { logC(WARN, component, msg, nil) }

func WarnCF(component, msg string, fields map[string]any) { logC(WARN, component, msg, fields) }

func ErrorC(component, msg string) { logC(ERROR, component, msg, nil) }

func ErrorCF(component, msg string, fields map[string]any) { logC(ERROR, component, msg, fields) }
