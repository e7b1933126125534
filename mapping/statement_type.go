package mapping

import (
	"fmt"
	"strings"
)

// StatementType selects how a statement handler runs its SQL.
type StatementType int

const (
	// Prepared runs the statement through PrepareContext.
	Prepared StatementType = iota
	// Statement runs the SQL text directly on the connection.
	Statement
	// Callable prepares a stored procedure call with OUT parameters.
	Callable
)

func (t StatementType) String() string {
	switch t {
	case Statement:
		return "STATEMENT"
	case Prepared:
		return "PREPARED"
	case Callable:
		return "CALLABLE"
	}
	return fmt.Sprintf("StatementType(%d)", int(t))
}

// ParseStatementType is case-insensitive; empty means Prepared.
func ParseStatementType(s string) (StatementType, error) {
	switch strings.ToUpper(s) {
	case "", "PREPARED":
		return Prepared, nil
	case "STATEMENT":
		return Statement, nil
	case "CALLABLE":
		return Callable, nil
	}
	return Prepared, fmt.Errorf("unknown statement type %q", s)
}

// CommandType is the kind of SQL command a statement runs.
type CommandType int

const (
	Unknown CommandType = iota
	Select
	Insert
	Update
	Delete
)

func (c CommandType) String() string {
	switch c {
	case Select:
		return "SELECT"
	case Insert:
		return "INSERT"
	case Update:
		return "UPDATE"
	case Delete:
		return "DELETE"
	}
	return "UNKNOWN"
}

// ParseCommandType is case-insensitive.
func ParseCommandType(s string) (CommandType, error) {
	switch strings.ToUpper(s) {
	case "SELECT":
		return Select, nil
	case "INSERT":
		return Insert, nil
	case "UPDATE":
		return Update, nil
	case "DELETE":
		return Delete, nil
	}
	return Unknown, fmt.Errorf("unknown command type %q", s)
}
