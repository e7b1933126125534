package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrek82/sqlchain/mapping"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sqlchain.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const sample = `
database:
  driver: sqlite3
  dsn: "file::memory:"
  max_open_conns: 4
  conn_max_lifetime: 5m
log:
  level: debug
  format: json
plugins:
  - name: slowlog
    properties:
      threshold: 200ms
  - name: memorycache
statements:
  - id: users.byID
    command: select
    sql: SELECT * FROM users WHERE id = ?
    params:
      - property: id
    use_cache: true
  - id: users.total
    command: select
    type: callable
    sql: CALL user_total(?)
    timeout: 2s
    params:
      - property: total
        mode: out
        go_type: int64
`

func TestLoad(t *testing.T) {
	os.Unsetenv("SQLCHAIN_DSN")
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "file::memory:", cfg.Database.DSN)
	assert.Equal(t, 4, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, "json", cfg.Log.Format)
	require.Len(t, cfg.Plugins, 2)
	assert.Equal(t, "slowlog", cfg.Plugins[0].Name)
	assert.Equal(t, "200ms", cfg.Plugins[0].Properties["threshold"])
	require.Len(t, cfg.Statements, 2)

	ms, err := cfg.Statements[0].MappedStatement()
	require.NoError(t, err)
	assert.Equal(t, mapping.Select, ms.Command)
	assert.Equal(t, mapping.Prepared, ms.StatementType)
	assert.True(t, ms.UseCache)

	ms, err = cfg.Statements[1].MappedStatement()
	require.NoError(t, err)
	assert.Equal(t, mapping.Callable, ms.StatementType)
	assert.Equal(t, 2*time.Second, ms.Timeout)
	b, err := ms.BoundSQL(nil)
	require.NoError(t, err)
	pm := b.ParameterMappings()[0]
	assert.Equal(t, mapping.ModeOut, pm.Mode)
	assert.Equal(t, reflect.TypeFor[int64](), pm.GoType)
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	t.Setenv("SQLCHAIN_DSN", "file:override.db")
	t.Setenv("SQLCHAIN_LOG_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)
	assert.Equal(t, "file:override.db", cfg.Database.DSN)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("SQLCHAIN_DRIVER", "postgres")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"unknown command": `
statements:
  - id: a
    command: merge
    sql: MERGE
`,
		"duplicate id": `
statements:
  - {id: a, command: select, sql: SELECT 1}
  - {id: a, command: select, sql: SELECT 2}
`,
		"out without type": `
statements:
  - id: a
    command: select
    sql: CALL p(?)
    params:
      - {property: x, mode: out}
`,
		"plugin without name": `
plugins:
  - properties: {a: b}
`,
		"bad log format": `
log:
  format: xml
`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
