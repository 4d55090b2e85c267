// Package sqlstore implements the dialect-agnostic core of the SQL connector:
// batch enumeration over record identifiers, per-row materialization to CSV
// files, schema fitting, and idempotent delete-then-insert uploads.
//
// Concrete dialects (sqlite, postgres, mysql, mssql) live in subpackages and
// register themselves with the factory at init time, mirroring the pattern
// used for storage backends elsewhere in this codebase: callers import
// sqlstore/all for side effects and open providers by kind.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
)

// Dialect captures the two things the core cannot express portably: the
// positional placeholder style and identifier quoting.
type Dialect interface {
	// Name returns the dialect's registered kind, e.g. "postgres".
	Name() string
	// Placeholder returns the 1-based positional parameter marker, e.g.
	// "?" or "$3" or "@p3".
	Placeholder(n int) string
	// QuoteIdent quotes a single identifier segment.
	QuoteIdent(ident string) string
}

// Provider hands out scoped access to a live store. Every component that
// touches the store goes through WithConn, which guarantees the connection
// is released on all exit paths; no connection is ever held across batch
// boundaries.
type Provider interface {
	// WithConn acquires a dedicated connection, invokes fn with it, and
	// releases it unconditionally when fn returns or panics.
	WithConn(ctx context.Context, fn func(*sql.Conn) error) error
	// Dialect returns the provider's SQL dialect.
	Dialect() Dialect
	// Close releases the underlying pool.
	Close() error
}

// Config selects and parameterizes a provider.
type Config struct {
	// Kind selects the registered dialect, e.g. "sqlite" or "postgres".
	Kind string
	// DSN is passed through to the driver.
	DSN string
}

// Factory constructs a Provider from a Config.
type Factory func(ctx context.Context, cfg Config) (Provider, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{}
)

// Register installs a provider factory under the given kind. Dialect
// subpackages call this from init; registering the same kind twice panics.
func Register(kind string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if _, dup := factories[kind]; dup {
		panic(fmt.Sprintf("sqlstore: Register called twice for kind %q", kind))
	}
	factories[kind] = f
}

// Open constructs a Provider for cfg.Kind. Unknown kinds report the set of
// registered ones to make wiring mistakes obvious.
func Open(ctx context.Context, cfg Config) (Provider, error) {
	factoriesMu.RLock()
	f, ok := factories[cfg.Kind]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("sqlstore: unknown kind %q (registered: %v)", cfg.Kind, registeredKinds())
	}
	return f(ctx, cfg)
}

func registeredKinds() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// DBProvider adapts a database/sql pool plus a Dialect into a Provider.
// Dialect subpackages construct one of these after opening their driver.
type DBProvider struct {
	db      *sql.DB
	dialect Dialect
}

// NewDBProvider wraps an open pool. The provider takes ownership of db and
// closes it in Close.
func NewDBProvider(db *sql.DB, dialect Dialect) *DBProvider {
	return &DBProvider{db: db, dialect: dialect}
}

// WithConn implements Provider.WithConn.
func (p *DBProvider) WithConn(ctx context.Context, fn func(*sql.Conn) error) error {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn)
}

// Dialect implements Provider.Dialect.
func (p *DBProvider) Dialect() Dialect { return p.dialect }

// Close implements Provider.Close.
func (p *DBProvider) Close() error { return p.db.Close() }

// precheck runs the trivial connectivity probe shared by source and
// destination prechecks. Any failure is returned raw; callers wrap it with
// the right phase.
func precheck(ctx context.Context, p Provider) error {
	return p.WithConn(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, "SELECT 1;")
		return err
	})
}
