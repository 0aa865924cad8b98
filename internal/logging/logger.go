package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Logger writes human-oriented status lines to stderr. Benchmark reports go
// to stdout; everything the harness says about itself goes through here so
// report output stays machine-consumable.
type Logger struct {
	mu      sync.Mutex
	out     io.Writer
	debug   bool
	noColor bool
}

// New creates a logger. Debug lines are dropped unless debug is true.
func New(debug, noColor bool) *Logger {
	return &Logger{
		out:     os.Stderr,
		debug:   debug,
		noColor: noColor,
	}
}

// SetOutput redirects log lines, primarily for tests.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
}

const (
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorCyan   = "\033[36m"
	colorReset  = "\033[0m"
)

func (l *Logger) emit(color, prefix, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.noColor {
		fmt.Fprintf(l.out, "%s %s\n", prefix, msg)
		return
	}
	fmt.Fprintf(l.out, "%s%s%s %s\n", color, prefix, colorReset, msg)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.emit(colorGreen, "✓", format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.emit(colorYellow, "⚠", format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.emit(colorRed, "✗", format, args...)
}

// Debug logs a debug message if debug mode is enabled
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.emit(colorCyan, "[DEBUG]", format, args...)
}

// Secret is a credential value that must never appear in log output.
// Both %s and %#v render it as [REDACTED]; handing the value to a driver or
// header requires an explicit string() conversion at the call site.
type Secret string

func (s Secret) String() string {
	return "[REDACTED]"
}

func (s Secret) GoString() string {
	return "[REDACTED]"
}

// Redact replaces occurrences of the given secret values in s with
// [REDACTED]. Values of three characters or fewer are left alone: too likely
// to collide with ordinary text such as ports or sslmode values.
func Redact(s string, secrets []string) string {
	result := s
	for _, secret := range secrets {
		if secret != "" && len(secret) > 3 {
			result = strings.ReplaceAll(result, secret, "[REDACTED]")
		}
	}
	return result
}
