package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shrek82/sqlchain/executor"
	"github.com/shrek82/sqlchain/logger"
	"github.com/shrek82/sqlchain/plugin"
)

// AuditEvent describes one successful update.
type AuditEvent struct {
	ID        string    `json:"id"`
	Statement string    `json:"statement"`
	Command   string    `json:"command"`
	Affected  int64     `json:"affected"`
	TraceID   string    `json:"trace_id,omitempty"`
	Duration  int64     `json:"duration_ms"`
	Timestamp time.Time `json:"timestamp"`
}

// AuditPublisher delivers audit events.
type AuditPublisher interface {
	Publish(ctx context.Context, event AuditEvent) error
}

// Audit publishes an AuditEvent for every update that succeeds. Publishing
// failures are logged and never fail the update.
type Audit struct {
	publisher AuditPublisher
	logger    logger.Logger
}

func NewAudit(p AuditPublisher) *Audit {
	return &Audit{publisher: p, logger: logger.Nop}
}

func (m *Audit) Name() string { return "Audit" }

func (m *Audit) SetLogger(l logger.Logger) { m.logger = orNop(l) }

func (m *Audit) Signatures() []plugin.Signature {
	return []plugin.Signature{executor.ExecutorUpdate.Signature()}
}

func (m *Audit) Intercept(inv *plugin.Invocation) (any, error) {
	ctx, ms, _ := executorCall(inv)
	start := time.Now()
	res, err := inv.Proceed()
	if err != nil || ms == nil {
		return res, err
	}
	affected, _ := res.(int64)
	event := AuditEvent{
		ID:        uuid.NewString(),
		Statement: ms.ID,
		Command:   ms.Command.String(),
		Affected:  affected,
		TraceID:   TraceID(ctx),
		Duration:  time.Since(start).Milliseconds(),
		Timestamp: start.UTC(),
	}
	if pErr := m.publisher.Publish(ctx, event); pErr != nil {
		m.logger.Warn("audit %s: %v", ms.ID, pErr)
	}
	return res, nil
}

// AMQPPublisher publishes audit events as persistent JSON messages to a
// RabbitMQ exchange.
type AMQPPublisher struct {
	Exchange   string
	RoutingKey string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher dials url and declares a durable topic exchange.
func NewAMQPPublisher(url, exchange, routingKey string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return &AMQPPublisher{Exchange: exchange, RoutingKey: routingKey, conn: conn, ch: ch}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event AuditEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Timestamp:    event.Timestamp,
		Type:         "sqlchain.audit",
		Body:         body,
	}
	if event.TraceID != "" {
		msg.CorrelationId = event.TraceID
	}
	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx, p.Exchange, p.RoutingKey, false, false, msg)
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
