package dialect

import (
	"fmt"
)

type mysql struct{}

func init() {
	Register("mysql", &mysql{})
}

func (d *mysql) Name() string { return "mysql" }

func (d *mysql) Quote(name string) string {
	return fmt.Sprintf("`%s`", name)
}

func (d *mysql) Placeholder(index int) string {
	return "?"
}

func (d *mysql) Rebind(query string) string {
	return query
}

func (d *mysql) LimitSQL(query string) string {
	return trimStatement(query) + " LIMIT ?, ?"
}
