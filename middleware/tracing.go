package middleware

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/shrek82/sqlchain/logger"
	"github.com/shrek82/sqlchain/plugin"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	traceIDKey   contextKey = "trace_id"
	userIPKey    contextKey = "user_ip"
)

// WithRequestID returns a context carrying a request id for Tracing.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// WithTraceID returns a context carrying a trace id for Tracing.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey, id)
}

// WithUserIP returns a context carrying the caller's address for Tracing.
func WithUserIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, userIPKey, ip)
}

// TraceID returns the trace id stored in ctx, or "".
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}

// Tracing logs every executed statement with the request id, trace id and
// user IP found in the context. Calls without a trace id get a new one, and
// the context passed on carries it.
type Tracing struct {
	logger logger.Logger
}

func NewTracing() *Tracing {
	return &Tracing{logger: logger.Nop}
}

func (m *Tracing) Name() string { return "Tracing" }

func (m *Tracing) SetLogger(l logger.Logger) { m.logger = orNop(l) }

func (m *Tracing) Signatures() []plugin.Signature { return executorSignatures }

func (m *Tracing) Intercept(inv *plugin.Invocation) (any, error) {
	ctx, ms, _ := executorCall(inv)

	traceID := TraceID(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
		ctx = WithTraceID(ctx, traceID)
		if err := inv.SetArg(0, ctx); err != nil {
			return nil, err
		}
	}
	fields := map[string]any{"trace_id": traceID}
	if reqID := ctx.Value(requestIDKey); reqID != nil {
		fields["request_id"] = reqID
	}
	if userIP := ctx.Value(userIPKey); userIP != nil {
		fields["user_ip"] = userIP
	}
	if ms != nil {
		fields["statement"] = ms.ID
	}

	start := time.Now()
	res, err := inv.Proceed()
	fields["duration_ms"] = time.Since(start).Milliseconds()
	l := m.logger.WithFields(fields)
	if err != nil {
		l.Error("%s failed: %v", inv.Method().Name, err)
	} else {
		l.Info("%s done", inv.Method().Name)
	}
	return res, err
}
