package logger

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

type zapLogger struct {
	l *zap.Logger
}

// NewZapLogger adapts a zap logger. Fields become zap fields and SQL
// statements are logged at info level with sql, duration and args fields.
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &zapLogger{l: l}
}

func (z *zapLogger) WithFields(fields map[string]any) Logger {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	zf := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		zf = append(zf, zap.Any(k, fields[k]))
	}
	return &zapLogger{l: z.l.With(zf...)}
}

func (z *zapLogger) Debug(format string, args ...any) { z.l.Debug(sprintf(format, args)) }
func (z *zapLogger) Info(format string, args ...any)  { z.l.Info(sprintf(format, args)) }
func (z *zapLogger) Warn(format string, args ...any)  { z.l.Warn(sprintf(format, args)) }
func (z *zapLogger) Error(format string, args ...any) { z.l.Error(sprintf(format, args)) }

func (z *zapLogger) SQL(sql string, duration time.Duration, args ...any) {
	z.l.Info("sql",
		zap.String("sql", sql),
		zap.Duration("duration", duration),
		zap.Any("args", args),
	)
}

func sprintf(format string, args []any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
