package middleware

import (
	"fmt"
	"os"
	"time"

	"github.com/shrek82/sqlchain/executor"
	"github.com/shrek82/sqlchain/logger"
	"github.com/shrek82/sqlchain/plugin"
)

// SlowLog logs statements that take longer than Threshold. It wraps the
// statement handler, so the logged time covers the database round trip only.
//
// Properties: threshold (duration), log_path (append to this file instead of
// the configured logger).
type SlowLog struct {
	Threshold time.Duration
	LogPath   string
	logger    logger.Logger
	file      *os.File
}

// NewSlowLog creates a SlowLog writing to standard output.
func NewSlowLog(threshold time.Duration) *SlowLog {
	return &SlowLog{
		Threshold: threshold,
		logger:    logger.NewStdLogger(),
	}
}

func (m *SlowLog) Name() string { return "SlowLog" }

func (m *SlowLog) SetLogger(l logger.Logger) { m.logger = orNop(l) }

func (m *SlowLog) Signatures() []plugin.Signature { return statementSignatures }

func (m *SlowLog) SetProperties(props plugin.Properties) error {
	threshold, err := durationProp(props, "threshold", m.Threshold)
	if err != nil {
		return err
	}
	m.Threshold = threshold
	if path := props.Get("log_path", ""); path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open slow log file: %w", err)
		}
		l := logger.NewStdLogger()
		l.SetOutput(f)
		l.SetLevel(logger.LogLevelWarn)
		m.LogPath, m.file, m.logger = path, f, l
	}
	return nil
}

// Close closes the log file, if any.
func (m *SlowLog) Close() error {
	if m.file == nil {
		return nil
	}
	err := m.file.Close()
	m.file = nil
	return err
}

func (m *SlowLog) Intercept(inv *plugin.Invocation) (any, error) {
	start := time.Now()
	res, err := inv.Proceed()
	duration := time.Since(start)
	if duration <= m.Threshold {
		return res, err
	}

	var sql string
	if h, ok := inv.Target().(executor.StatementHandler); ok {
		if b, bErr := h.BoundSQL(); bErr == nil {
			sql = b.SQL()
		}
	}
	args := plugin.Arg[[]any](inv.Args(), 2)
	m.logger.WithFields(map[string]any{
		"duration_ms": duration.Milliseconds(),
		"method":      inv.Method().Name,
	}).Warn("slow sql: %s | args=%v | err=%v", sql, args, err)
	return res, err
}
