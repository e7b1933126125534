package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
)

// LogLevel defines the severity of the log
type LogLevel int

const (
	LogLevelSilent LogLevel = iota
	LogLevelError
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// ParseLevel maps silent, error, warn, info and debug to a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(s) {
	case "silent":
		return LogLevelSilent, nil
	case "error":
		return LogLevelError, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "", "info":
		return LogLevelInfo, nil
	case "debug":
		return LogLevelDebug, nil
	}
	return LogLevelInfo, fmt.Errorf("unknown log level %q", s)
}

// LogFormat defines the output format of the log
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// Logger is the interface for logging SQL and internal messages
type Logger interface {
	WithFields(fields map[string]any) Logger
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	SQL(sql string, duration time.Duration, args ...any)
}

// StdLogger writes text or JSON lines to an io.Writer.
type StdLogger struct {
	mu     *sync.Mutex
	level  LogLevel
	format LogFormat
	writer io.Writer
	fields map[string]any
}

// NewStdLogger creates a new standard logger
func NewStdLogger() *StdLogger {
	return &StdLogger{
		mu:     &sync.Mutex{},
		level:  LogLevelInfo,
		format: LogFormatText,
		writer: os.Stdout,
		fields: make(map[string]any),
	}
}

func (l *StdLogger) SetLevel(level LogLevel) {
	l.level = level
}

func (l *StdLogger) SetFormat(format LogFormat) {
	l.format = format
}

func (l *StdLogger) SetOutput(w io.Writer) {
	l.writer = w
}

// WithFields returns a logger sharing the output with fields added.
func (l *StdLogger) WithFields(fields map[string]any) Logger {
	n := *l
	n.fields = maps.Clone(l.fields)
	if n.fields == nil {
		n.fields = make(map[string]any, len(fields))
	}
	maps.Copy(n.fields, fields)
	return &n
}

func (l *StdLogger) Debug(format string, args ...any) {
	if l.level >= LogLevelDebug {
		l.log("DEBUG", format, args...)
	}
}

func (l *StdLogger) Info(format string, args ...any) {
	if l.level >= LogLevelInfo {
		l.log("INFO", format, args...)
	}
}

func (l *StdLogger) Warn(format string, args ...any) {
	if l.level >= LogLevelWarn {
		l.log("WARN", format, args...)
	}
}

func (l *StdLogger) Error(format string, args ...any) {
	if l.level >= LogLevelError {
		l.log("ERROR", format, args...)
	}
}

func (l *StdLogger) SQL(sql string, duration time.Duration, args ...any) {
	if l.level < LogLevelInfo {
		return
	}
	if l.format == LogFormatJSON {
		l.write(map[string]any{"level": "SQL", "sql": sql, "duration": duration.String(), "args": args})
		return
	}
	msg := fmt.Sprintf("%s[%v] %s | args: %v%s", sqlColor(sql), duration, sql, args, ansiReset)
	l.line("SQL", msg)
}

func (l *StdLogger) log(level string, format string, args ...any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	if l.format == LogFormatJSON {
		l.write(map[string]any{"level": level, "msg": msg})
		return
	}
	l.line(level, msg)
}

func (l *StdLogger) write(data map[string]any) {
	for k, v := range l.fields {
		if _, taken := data[k]; !taken {
			data[k] = v
		}
	}
	data["time"] = time.Now().Format(time.RFC3339)
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = json.NewEncoder(l.writer).Encode(data)
}

func (l *StdLogger) line(level, msg string) {
	fieldStr := ""
	if len(l.fields) > 0 {
		fieldStr = fmt.Sprintf(" fields: %v", l.fields)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.writer, "[SQLCHAIN] %s %s: %s%s\n", time.Now().Format("2006-01-02 15:04:05"), level, msg, fieldStr)
}

func sqlColor(sqlStr string) string {
	s := strings.TrimSpace(strings.ToUpper(sqlStr))
	switch {
	case strings.HasPrefix(s, "SELECT"):
		return ansiYellow
	case strings.HasPrefix(s, "INSERT"), strings.HasPrefix(s, "UPDATE"):
		return ansiGreen
	case strings.HasPrefix(s, "DELETE"):
		return ansiRed
	default:
		return ansiCyan
	}
}

// Nop discards everything.
var Nop Logger = nopLogger{}

type nopLogger struct{}

func (n nopLogger) WithFields(map[string]any) Logger { return n }
func (nopLogger) Debug(string, ...any)               {}
func (nopLogger) Info(string, ...any)                {}
func (nopLogger) Warn(string, ...any)                {}
func (nopLogger) Error(string, ...any)               {}
func (nopLogger) SQL(string, time.Duration, ...any)  {}
