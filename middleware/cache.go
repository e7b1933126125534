package middleware

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/gob"
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/shrek82/sqlchain/executor"
	"github.com/shrek82/sqlchain/logger"
	"github.com/shrek82/sqlchain/mapping"
	"github.com/shrek82/sqlchain/plugin"
)

func init() {
	gob.Register(time.Time{})
}

// CacheKeyPrefix starts every key a Cache writes.
const CacheKeyPrefix = "sqlchain:cache:"

// Store holds encoded query results for Cache.
type Store interface {
	// Get returns the value stored under key; found is false for missing or
	// expired entries.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Set stores value under key. A non-positive ttl never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Flush removes every entry written by Cache.
	Flush(ctx context.Context) error
	Close() error
}

type cacheTTLKey struct{}

// WithCacheTTL overrides the cache lifetime for the queries run with ctx. A
// zero ttl bypasses the cache and a negative one never expires.
func WithCacheTTL(ctx context.Context, ttl time.Duration) context.Context {
	return context.WithValue(ctx, cacheTTLKey{}, ttl)
}

// Cache serves the rows of statements marked UseCache from a Store, without
// proceeding on a hit. Successful updates, and any statement marked
// FlushCache, empty the store.
//
// Properties: ttl (duration); filecache adds dir, rediscache adds addr,
// password and db.
type Cache struct {
	DefaultTTL time.Duration

	store  Store
	open   func(props plugin.Properties) (Store, error)
	logger logger.Logger
}

// NewCache creates a cache over store.
func NewCache(store Store, defaultTTL time.Duration) *Cache {
	return &Cache{store: store, DefaultTTL: defaultTTL, logger: logger.Nop}
}

func (m *Cache) Name() string { return "Cache" }

func (m *Cache) SetLogger(l logger.Logger) { m.logger = orNop(l) }

func (m *Cache) Signatures() []plugin.Signature { return executorSignatures }

func (m *Cache) SetProperties(props plugin.Properties) error {
	ttl, err := durationProp(props, "ttl", m.DefaultTTL)
	if err != nil {
		return err
	}
	m.DefaultTTL = ttl
	if m.store == nil && m.open != nil {
		store, err := m.open(props)
		if err != nil {
			return err
		}
		m.store = store
	}
	if m.logger == nil {
		m.logger = logger.Nop
	}
	return nil
}

// Store returns the backing store.
func (m *Cache) Store() Store { return m.store }

// Close closes the backing store.
func (m *Cache) Close() error {
	if m.store == nil {
		return nil
	}
	return m.store.Close()
}

func (m *Cache) Intercept(inv *plugin.Invocation) (any, error) {
	if m.store == nil {
		return inv.Proceed()
	}
	ctx, ms, param := executorCall(inv)
	if ms == nil {
		return inv.Proceed()
	}
	if inv.Method().Name == executor.ExecutorUpdate.Name {
		res, err := inv.Proceed()
		if err == nil {
			m.flush(ctx, ms)
		}
		return res, err
	}

	if ms.FlushCache {
		m.flush(ctx, ms)
	}
	ttl, ok := m.ttl(ctx, ms)
	if !ok {
		return inv.Proceed()
	}
	key, err := cacheKey(ms, param, plugin.Arg[executor.RowBounds](inv.Args(), 3))
	if err != nil {
		// Let the real call report it.
		return inv.Proceed()
	}

	if data, found, err := m.store.Get(ctx, key); err != nil {
		m.logger.Warn("cache get %s: %v", ms.ID, err)
	} else if found {
		rows, err := decodeRows(data)
		if err == nil {
			return rows, nil
		}
		m.logger.Warn("cache decode %s: %v", ms.ID, err)
	}

	res, err := inv.Proceed()
	if err != nil {
		return res, err
	}
	if rows, ok := res.([]executor.Row); ok {
		data, err := encodeRows(rows)
		if err == nil {
			err = m.store.Set(ctx, key, data, ttl)
		}
		if err != nil {
			m.logger.Warn("cache set %s: %v", ms.ID, err)
		}
	}
	return res, nil
}

// ttl reports the lifetime for ms and whether it is cached at all.
func (m *Cache) ttl(ctx context.Context, ms *mapping.MappedStatement) (time.Duration, bool) {
	if t, ok := ctx.Value(cacheTTLKey{}).(time.Duration); ok {
		return t, t != 0
	}
	return m.DefaultTTL, ms.UseCache
}

func (m *Cache) flush(ctx context.Context, ms *mapping.MappedStatement) {
	if err := m.store.Flush(ctx); err != nil {
		m.logger.Warn("cache flush after %s: %v", ms.ID, err)
	}
}

// cacheKey identifies one execution by what reaches the database: the bound
// SQL text, the typed values of its bind variables and the row bounds. It
// reflects rewrites made by interceptors outside the cache.
func cacheKey(ms *mapping.MappedStatement, param any, bounds executor.RowBounds) (string, error) {
	boundSQL, err := ms.BoundSQL(param)
	if err != nil {
		return "", err
	}
	args, err := executor.NewDefaultParameterHandler(boundSQL).Parameters()
	if err != nil {
		return "", err
	}
	h := xxhash.New()
	fmt.Fprintf(h, "%q;%d;%d;", boundSQL.SQL(), bounds.Offset, bounds.Limit)
	for _, arg := range args {
		writeKeyValue(h, arg)
	}
	return fmt.Sprintf("%s%s:%016x", CacheKeyPrefix, ms.ID, h.Sum64()), nil
}

// writeKeyValue writes v with its type, following pointers so equal values
// behind different pointers give the same key.
func writeKeyValue(w io.Writer, v any) {
	if out, ok := v.(sql.Out); ok {
		if !out.In {
			fmt.Fprintf(w, "out(%T);", out.Dest)
			return
		}
		io.WriteString(w, "inout:")
		v = out.Dest
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr && !rv.IsNil() {
		rv = rv.Elem()
	}
	switch {
	case !rv.IsValid():
		io.WriteString(w, "nil;")
	case rv.Kind() == reflect.Ptr:
		fmt.Fprintf(w, "%s(nil);", rv.Type())
	default:
		fmt.Fprintf(w, "%s(%#v);", rv.Type(), rv.Interface())
	}
}

func encodeRows(rows []executor.Row) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRows(data []byte) ([]executor.Row, error) {
	var rows []executor.Row
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}
