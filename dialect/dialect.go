package dialect

import (
	"sort"
	"strings"
	"sync"
)

// Dialect covers the driver-specific SQL the module emits: placeholder
// syntax, identifier quoting and the paging suffix.
type Dialect interface {
	// Name returns the database/sql driver name
	Name() string
	// Quote wraps a name (table or column) in database-specific quotes
	Quote(name string) string
	// Placeholder returns the bind marker for the 1-based index
	Placeholder(index int) string
	// Rebind converts '?' markers outside quoted text to the dialect's syntax
	Rebind(query string) string
	// LimitSQL appends a paging clause taking two bind values: offset, then limit
	LimitSQL(query string) string
}

var (
	mu       sync.RWMutex
	dialects = make(map[string]Dialect)
)

// Register registers a new dialect for a given driver name
func Register(name string, d Dialect) {
	mu.Lock()
	defer mu.Unlock()
	dialects[name] = d
}

// Get retrieves a registered dialect by driver name
func Get(name string) (Dialect, bool) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := dialects[name]
	return d, ok
}

// Names lists the registered driver names.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// rebind rewrites every '?' outside single quotes, double quotes and
// backticks using placeholder.
func rebind(query string, placeholder func(int) string) string {
	if !strings.Contains(query, "?") {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	var quote byte
	n := 0
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '?':
			n++
			sb.WriteString(placeholder(n))
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

func trimStatement(query string) string {
	return strings.TrimRight(strings.TrimSpace(query), ";")
}
