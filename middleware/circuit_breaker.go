package middleware

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shrek82/sqlchain/plugin"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "closed"
}

// CircuitBreaker stops statements from reaching the database after
// Threshold consecutive failures. While open, calls fail with ErrCircuitOpen
// without proceeding. After ResetTimeout one trial call is let through; its
// outcome closes or reopens the circuit.
//
// Properties: threshold (int), reset_timeout (duration).
type CircuitBreaker struct {
	Threshold    int
	ResetTimeout time.Duration

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
	trial       bool
	now         func() time.Time
}

func NewCircuitBreaker(threshold int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		Threshold:    threshold,
		ResetTimeout: resetTimeout,
		state:        StateClosed,
		now:          time.Now,
	}
}

func (m *CircuitBreaker) Name() string { return "CircuitBreaker" }

func (m *CircuitBreaker) Signatures() []plugin.Signature { return executorSignatures }

func (m *CircuitBreaker) SetProperties(props plugin.Properties) error {
	threshold, err := intProp(props, "threshold", m.Threshold)
	if err != nil {
		return err
	}
	timeout, err := durationProp(props, "reset_timeout", m.ResetTimeout)
	if err != nil {
		return err
	}
	m.Threshold, m.ResetTimeout = threshold, timeout
	return nil
}

// State returns the current state.
func (m *CircuitBreaker) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *CircuitBreaker) Intercept(inv *plugin.Invocation) (any, error) {
	ok, trial := m.allow()
	if !ok {
		return nil, ErrCircuitOpen
	}
	res, err := inv.Proceed()
	m.record(err, trial)
	return res, err
}

// allow reports whether the call may proceed and whether it is the
// half-open trial.
func (m *CircuitBreaker) allow() (ok, trial bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case StateOpen:
		if m.now().Sub(m.lastFailure) <= m.ResetTimeout {
			return false, false
		}
		m.state = StateHalfOpen
		m.trial = true
		return true, true
	case StateHalfOpen:
		// One trial at a time.
		if m.trial {
			return false, false
		}
		m.trial = true
		return true, true
	}
	return true, false
}

func (m *CircuitBreaker) record(err error, trial bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if trial {
		m.trial = false
	} else if m.state != StateClosed {
		// Started before the circuit opened; only the trial decides now.
		return
	}
	if errors.Is(err, context.Canceled) {
		// Says nothing about the database; retry the trial later.
		if trial {
			m.state = StateOpen
		}
		return
	}
	if err != nil {
		m.failures++
		m.lastFailure = m.now()
		if trial || m.failures >= m.Threshold {
			m.state = StateOpen
		}
		return
	}
	m.state = StateClosed
	m.failures = 0
}
