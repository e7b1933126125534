package core

import (
	"errors"
)

var (
	// ErrRecordNotFound is returned when a query expects at least one record but none were found.
	ErrRecordNotFound = errors.New("record not found")
	// ErrTooManyResults is returned by SelectOne when more than one row matches.
	ErrTooManyResults = errors.New("too many results")
	// ErrStatementNotFound is returned when no statement is registered under an id.
	ErrStatementNotFound = errors.New("statement not found")
	// ErrDuplicateStatement is returned when a statement id is registered twice.
	ErrDuplicateStatement = errors.New("duplicate statement")
	// ErrInvalidDest is returned when a result destination has an unsupported type.
	ErrInvalidDest = errors.New("invalid destination")
	// ErrSessionClosed is returned by every call on a closed session.
	ErrSessionClosed = errors.New("session closed")
	// ErrUnknownDialect is returned when no dialect is registered for a driver.
	ErrUnknownDialect = errors.New("unknown dialect")
)
