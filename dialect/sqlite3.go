package dialect

import (
	"fmt"
)

// SQLite dialect implementation
type sqlite3 struct{}

func init() {
	Register("sqlite3", &sqlite3{})
}

func (d *sqlite3) Name() string { return "sqlite3" }

func (d *sqlite3) Quote(name string) string {
	return fmt.Sprintf("`%s`", name)
}

func (d *sqlite3) Placeholder(index int) string {
	return "?"
}

func (d *sqlite3) Rebind(query string) string {
	return query
}

func (d *sqlite3) LimitSQL(query string) string {
	return trimStatement(query) + " LIMIT ?, ?"
}
