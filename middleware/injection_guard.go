package middleware

import (
	"errors"
	"fmt"

	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/shrek82/sqlchain/executor"
	"github.com/shrek82/sqlchain/logger"
	"github.com/shrek82/sqlchain/plugin"
)

var ErrInjectionDetected = errors.New("possible sql injection in parameter")

// InjectionGuard checks the string arguments of every statement with
// libinjection before it runs. In reject mode a flagged statement fails
// with ErrInjectionDetected; in log mode it only logs a warning.
//
// Properties: mode (reject or log).
type InjectionGuard struct {
	LogOnly bool
	logger  logger.Logger
}

func NewInjectionGuard() *InjectionGuard {
	return &InjectionGuard{logger: logger.Nop}
}

func (m *InjectionGuard) Name() string { return "InjectionGuard" }

func (m *InjectionGuard) SetLogger(l logger.Logger) { m.logger = orNop(l) }

func (m *InjectionGuard) Signatures() []plugin.Signature {
	return []plugin.Signature{executor.StatementParameterize.Signature()}
}

func (m *InjectionGuard) SetProperties(props plugin.Properties) error {
	current := "reject"
	if m.LogOnly {
		current = "log"
	}
	switch mode := props.Get("mode", current); mode {
	case "reject":
		m.LogOnly = false
	case "log":
		m.LogOnly = true
	default:
		return fmt.Errorf("injectionguard: unknown mode %q", mode)
	}
	if m.logger == nil {
		m.logger = logger.Nop
	}
	return nil
}

func (m *InjectionGuard) Intercept(inv *plugin.Invocation) (any, error) {
	res, err := inv.Proceed()
	if err != nil {
		return res, err
	}
	args, _ := res.([]any)
	for i, arg := range args {
		s, ok := arg.(string)
		if !ok {
			continue
		}
		isSQLi, fingerprint := libinjection.IsSQLi(s)
		if !isSQLi {
			continue
		}
		if m.LogOnly {
			m.logger.Warn("argument %d looks like sql injection (fingerprint %s)", i+1, string(fingerprint))
			continue
		}
		return nil, fmt.Errorf("%w: argument %d (fingerprint %s)", ErrInjectionDetected, i+1, string(fingerprint))
	}
	return res, nil
}
