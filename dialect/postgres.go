package dialect

import (
	"fmt"
	"strings"
)

type postgres struct{}

func init() {
	Register("postgres", &postgres{})
}

func (d *postgres) Name() string { return "postgres" }

func (d *postgres) Quote(name string) string {
	return fmt.Sprintf(`"%s"`, strings.ReplaceAll(name, `"`, `""`))
}

func (d *postgres) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

func (d *postgres) Rebind(query string) string {
	return rebind(query, d.Placeholder)
}

func (d *postgres) LimitSQL(query string) string {
	return trimStatement(query) + " OFFSET ? LIMIT ?"
}
