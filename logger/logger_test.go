package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newBuffered(format LogFormat) (*StdLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	l := NewStdLogger()
	l.SetOutput(buf)
	l.SetFormat(format)
	return l, buf
}

func TestStdLogger(t *testing.T) {
	t.Run("TextFormat", func(t *testing.T) {
		l, buf := newBuffered(LogFormatText)
		l.Info("hello %s", "world")
		assert.Contains(t, buf.String(), "INFO")
		assert.Contains(t, buf.String(), "hello world")
	})

	t.Run("JSONFormat", func(t *testing.T) {
		l, buf := newBuffered(LogFormatJSON)
		l.Info("hello %s", "world")

		var data map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
		assert.Equal(t, "INFO", data["level"])
		assert.Equal(t, "hello world", data["msg"])
		assert.Contains(t, data, "time")
	})

	t.Run("WithFields", func(t *testing.T) {
		l, buf := newBuffered(LogFormatJSON)
		l.WithFields(map[string]any{"request_id": "123"}).Info("processed")
		l.Info("plain")

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		var first, second map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
		require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
		assert.Equal(t, "123", first["request_id"])
		assert.NotContains(t, second, "request_id", "parent logger must not see child fields")
	})

	t.Run("SQLJSON", func(t *testing.T) {
		l, buf := newBuffered(LogFormatJSON)
		l.SQL("SELECT * FROM users", 10*time.Millisecond, "arg1", 1)

		var data map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
		assert.Equal(t, "SQL", data["level"])
		assert.Equal(t, "SELECT * FROM users", data["sql"])
		assert.Equal(t, "10ms", data["duration"])
	})

	t.Run("SQLTextIsColoured", func(t *testing.T) {
		l, buf := newBuffered(LogFormatText)
		l.SQL("DELETE FROM users", time.Millisecond)
		assert.Contains(t, buf.String(), ansiRed)
	})

	t.Run("Levels", func(t *testing.T) {
		l, buf := newBuffered(LogFormatText)
		l.SetLevel(LogLevelWarn)
		l.Info("hidden")
		l.Debug("hidden")
		l.SQL("SELECT 1", time.Millisecond)
		assert.Empty(t, buf.String())
		l.Warn("shown")
		assert.Contains(t, buf.String(), "WARN: shown")

		l.SetLevel(LogLevelDebug)
		l.Debug("trace %d", 1)
		assert.Contains(t, buf.String(), "DEBUG: trace 1")
	})
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, LogLevelWarn, level)
	level, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, LogLevelInfo, level)
	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewZapLogger(zap.New(core))

	l.WithFields(map[string]any{"session": "s1"}).Warn("slow %s", "query")
	l.SQL("SELECT 1", 5*time.Millisecond, 7)
	l.Debug("plain")

	require.Equal(t, 3, logs.Len())
	warn := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, warn.Level)
	assert.Equal(t, "slow query", warn.Message)
	assert.Equal(t, "s1", warn.ContextMap()["session"])

	sql := logs.All()[1]
	assert.Equal(t, "sql", sql.Message)
	assert.Equal(t, "SELECT 1", sql.ContextMap()["sql"])
	assert.Equal(t, 5*time.Millisecond, sql.ContextMap()["duration"])

	assert.Equal(t, "plain", logs.All()[2].Message)
}

func TestNop(t *testing.T) {
	Nop.WithFields(map[string]any{"a": 1}).Info("nothing")
	Nop.SQL("SELECT 1", time.Second)
}
