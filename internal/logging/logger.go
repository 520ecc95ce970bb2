// Package logging provides the structured logger of the solver service and the
// CLI, plus a zap bridge so the search engine can log through it.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity level of a log entry.
type LogLevel string

const (
	// DebugLevel carries per-improvement search traces.
	DebugLevel LogLevel = "DEBUG"
	// InfoLevel is the default logging priority.
	InfoLevel LogLevel = "INFO"
	// WarnLevel logs are more important than Info, but don't need individual
	// human review.
	WarnLevel LogLevel = "WARN"
	// ErrorLevel logs are high-priority.
	ErrorLevel LogLevel = "ERROR"
	// FatalLevel logs a message, then calls os.Exit(1).
	FatalLevel LogLevel = "FATAL"
)

var levelRank = map[LogLevel]int{
	DebugLevel: 0,
	InfoLevel:  1,
	WarnLevel:  2,
	ErrorLevel: 3,
	FatalLevel: 4,
}

// Format selects how entries are rendered.
type Format string

const (
	FormatJSON Format = "json"
	// FormatText renders "time LEVEL message key=value ..." lines.
	FormatText Format = "text"
)

// sink is shared by a logger and every logger derived from it so that
// concurrent runs never interleave partial lines.
type sink struct {
	mu  sync.Mutex
	out io.Writer
}

func (s *sink) write(p []byte) {
	s.mu.Lock()
	_, _ = s.out.Write(p)
	s.mu.Unlock()
}

// Logger represents an active logging object.
type Logger struct {
	level  LogLevel
	format Format
	sink   *sink
	fields map[string]interface{}
}

// New creates a JSON Logger with the specified log level and output.
func New(level LogLevel, output io.Writer) *Logger {
	return NewWithFormat(level, FormatJSON, output)
}

// NewWithFormat creates a Logger rendering entries in format.
func NewWithFormat(level LogLevel, format Format, output io.Writer) *Logger {
	if format != FormatText {
		format = FormatJSON
	}
	return &Logger{
		level:  level,
		format: format,
		sink:   &sink{out: output},
		fields: make(map[string]interface{}),
	}
}

// WithFields returns a new Logger with the specified fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	newFields := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}

	return &Logger{
		level:  l.level,
		format: l.format,
		sink:   l.sink,
		fields: newFields,
	}
}

// WithField returns a new Logger with the specified key-value pair.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithError returns a new Logger with the error field set.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

// log writes a log entry with the given level and message.
func (l *Logger) log(level LogLevel, msg string, fields map[string]interface{}) {
	if !l.shouldLog(level) {
		return
	}

	entry := make(map[string]interface{}, len(l.fields)+len(fields)+4)
	for k, v := range l.fields {
		entry[k] = v
	}
	for k, v := range fields {
		entry[k] = v
	}
	if _, ok := entry["caller"]; !ok {
		entry["caller"] = caller(3)
	}
	now := time.Now().UTC()

	var line []byte
	switch l.format {
	case FormatText:
		line = renderText(now, level, msg, entry)
	default:
		entry["timestamp"] = now.Format(time.RFC3339Nano)
		entry["level"] = level
		entry["message"] = msg
		data, err := json.Marshal(entry)
		if err != nil {
			line = []byte(fmt.Sprintf("%s [%s] %s: %+v\n", now.Format(time.RFC3339), level, msg, fields))
		} else {
			line = append(data, '\n')
		}
	}
	l.sink.write(line)

	if level == FatalLevel {
		os.Exit(1)
	}
}

func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "???:0"
	}
	parts := strings.Split(file, "/")
	if len(parts) > 2 {
		file = strings.Join(parts[len(parts)-2:], "/")
	}
	return fmt.Sprintf("%s:%d", file, line)
}

func renderText(ts time.Time, level LogLevel, msg string, fields map[string]interface{}) []byte {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(ts.Format(time.RFC3339))
	b.WriteByte(' ')
	fmt.Fprintf(&b, "%-5s", level)
	b.WriteByte(' ')
	b.WriteString(msg)
	for _, k := range keys {
		v := fmt.Sprint(fields[k])
		if strings.ContainsAny(v, " \t\n\"=") {
			v = fmt.Sprintf("%q", v)
		}
		fmt.Fprintf(&b, " %s=%s", k, v)
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

// shouldLog returns true if the given level should be logged.
func (l *Logger) shouldLog(level LogLevel) bool {
	want, ok := levelRank[level]
	if !ok {
		return false
	}
	current, ok := levelRank[l.level]
	if !ok {
		return false
	}
	return want >= current
}

// Debug logs a message at DebugLevel.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(DebugLevel, msg, first(fields))
}

// Info logs a message at InfoLevel.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(InfoLevel, msg, first(fields))
}

// Warn logs a message at WarnLevel.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(WarnLevel, msg, first(fields))
}

// Error logs a message at ErrorLevel.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(ErrorLevel, msg, first(fields))
}

// Fatal logs a message at FatalLevel then calls os.Exit(1).
func (l *Logger) Fatal(msg string, fields ...map[string]interface{}) {
	l.log(FatalLevel, msg, first(fields))
}

func first(fields []map[string]interface{}) map[string]interface{} {
	if len(fields) > 0 {
		return fields[0]
	}
	return nil
}

// CtxLogger is a logger that can be used with context.
type CtxLogger struct {
	*Logger
}

// FromContext returns a logger from the context or a new one if none exists.
func FromContext(ctx context.Context) *CtxLogger {
	if logger, ok := ctx.Value(ctxLoggerKey{}).(*CtxLogger); ok {
		return logger
	}
	return &CtxLogger{New(InfoLevel, os.Stderr)}
}

// WithContext returns a new context with the logger.
func (l *CtxLogger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxLoggerKey{}, l)
}

type ctxLoggerKey struct{}
