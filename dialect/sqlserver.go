package dialect

import (
	"fmt"
)

type sqlserver struct{}

func init() {
	Register("sqlserver", &sqlserver{})
}

func (d *sqlserver) Name() string { return "sqlserver" }

func (d *sqlserver) Quote(name string) string {
	return fmt.Sprintf("[%s]", name)
}

func (d *sqlserver) Placeholder(index int) string {
	return fmt.Sprintf("@p%d", index)
}

func (d *sqlserver) Rebind(query string) string {
	return rebind(query, d.Placeholder)
}

// LimitSQL needs an ORDER BY in query; SQL Server rejects OFFSET without one.
func (d *sqlserver) LimitSQL(query string) string {
	return trimStatement(query) + " OFFSET ? ROWS FETCH NEXT ? ROWS ONLY"
}
