package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/shrek82/sqlchain/mapping"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds everything needed to open a database, register interceptors
// and define statements. Values come from a YAML file; environment variables
// override the fields that declare one.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`

	// Plugins are registered in order, so the last one is the outermost.
	Plugins []PluginConfig `yaml:"plugins"`

	Statements []StatementConfig `yaml:"statements"`
}

// DatabaseConfig holds the driver, DSN and pool settings.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver" env:"SQLCHAIN_DRIVER" env-default:"sqlite3"`
	DSN             string        `yaml:"dsn" env:"SQLCHAIN_DSN" env-default:""`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"SQLCHAIN_MAX_OPEN_CONNS" env-default:"0"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"SQLCHAIN_MAX_IDLE_CONNS" env-default:"0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"SQLCHAIN_CONN_MAX_LIFETIME" env-default:"0s"`
}

// LogConfig selects the logger. Format is text, json or zap.
type LogConfig struct {
	Level  string `yaml:"level" env:"SQLCHAIN_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"SQLCHAIN_LOG_FORMAT" env-default:"text"`
}

// PluginConfig names a registered interceptor factory and its properties.
type PluginConfig struct {
	Name       string            `yaml:"name"`
	Properties map[string]string `yaml:"properties"`
}

// StatementConfig defines one mapped statement.
type StatementConfig struct {
	ID         string        `yaml:"id"`
	Command    string        `yaml:"command"`
	Type       string        `yaml:"type"` // statement, prepared (default) or callable
	SQL        string        `yaml:"sql"`
	Params     []ParamConfig `yaml:"params"`
	Timeout    time.Duration `yaml:"timeout"`
	UseCache   bool          `yaml:"use_cache"`
	FlushCache bool          `yaml:"flush_cache"`
}

// ParamConfig defines one parameter mapping.
type ParamConfig struct {
	Property string `yaml:"property"`
	Mode     string `yaml:"mode"`
	GoType   string `yaml:"go_type"` // required for OUT: int64, float64, string, bool, time, bytes
	SQLType  string `yaml:"sql_type"`
	Scale    int    `yaml:"scale"`
}

// Load reads path with environment variable overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a config from environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and that every statement converts.
func (c *Config) Validate() error {
	if c.Database.Driver == "" {
		return fmt.Errorf("%w: database.driver is required", ErrInvalidConfig)
	}
	switch c.Log.Format {
	case "", "text", "json", "zap":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Log.Format)
	}
	for i, p := range c.Plugins {
		if p.Name == "" {
			return fmt.Errorf("%w: plugins[%d] has no name", ErrInvalidConfig, i)
		}
	}
	seen := make(map[string]bool, len(c.Statements))
	for _, s := range c.Statements {
		if seen[s.ID] {
			return fmt.Errorf("%w: duplicate statement %q", ErrInvalidConfig, s.ID)
		}
		seen[s.ID] = true
		if _, err := s.MappedStatement(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// MappedStatement converts the definition.
func (s StatementConfig) MappedStatement() (*mapping.MappedStatement, error) {
	cmd, err := mapping.ParseCommandType(s.Command)
	if err != nil {
		return nil, fmt.Errorf("statement %q: %w", s.ID, err)
	}
	st, err := mapping.ParseStatementType(s.Type)
	if err != nil {
		return nil, fmt.Errorf("statement %q: %w", s.ID, err)
	}
	mappings := make([]mapping.ParameterMapping, len(s.Params))
	for i, p := range s.Params {
		pm, err := p.ParameterMapping()
		if err != nil {
			return nil, fmt.Errorf("statement %q: %w", s.ID, err)
		}
		mappings[i] = pm
	}
	src, err := mapping.NewStaticSQLSource(s.SQL, mappings...)
	if err != nil {
		return nil, fmt.Errorf("statement %q: %w", s.ID, err)
	}
	ms := &mapping.MappedStatement{
		ID:            s.ID,
		Command:       cmd,
		StatementType: st,
		Source:        src,
		Timeout:       s.Timeout,
		UseCache:      s.UseCache,
		FlushCache:    s.FlushCache,
	}
	if err := ms.Validate(); err != nil {
		return nil, err
	}
	return ms, nil
}

var goTypes = map[string]reflect.Type{
	"int64":   reflect.TypeFor[int64](),
	"int":     reflect.TypeFor[int](),
	"float64": reflect.TypeFor[float64](),
	"string":  reflect.TypeFor[string](),
	"bool":    reflect.TypeFor[bool](),
	"time":    reflect.TypeFor[time.Time](),
	"bytes":   reflect.TypeFor[[]byte](),
}

// ParameterMapping converts the definition.
func (p ParamConfig) ParameterMapping() (mapping.ParameterMapping, error) {
	mode, err := mapping.ParseParameterMode(p.Mode)
	if err != nil {
		return mapping.ParameterMapping{}, err
	}
	pm := mapping.ParameterMapping{
		Property:     p.Property,
		Mode:         mode,
		SQLType:      p.SQLType,
		NumericScale: p.Scale,
	}
	if p.GoType != "" {
		typ, ok := goTypes[strings.ToLower(p.GoType)]
		if !ok {
			return mapping.ParameterMapping{}, fmt.Errorf("%w: unknown go_type %q", mapping.ErrInvalidMapping, p.GoType)
		}
		pm.GoType = typ
	}
	return pm, pm.Validate()
}
