// Package sqlite wires a SQLite-backed provider into the sqlstore factory.
// Registration happens in init; callers normally reach it through
// sqlstore.Open with kind "sqlite".
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // alternative: github.com/mattn/go-sqlite3

	"github.com/SygmaHQ/unstructured-ingest/internal/sqlstore"
)

type dialect struct{}

func (dialect) Name() string             { return "sqlite" }
func (dialect) Placeholder(n int) string { return "?" }
func (dialect) QuoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// Open opens a SQLite provider for the given DSN, e.g.
//
//	"file:ingest.db?cache=shared"
//	"ingest.db"
//
// A short ping fails fast on invalid DSNs. In-memory databases are pinned to
// a single pooled connection; otherwise every acquisition would see its own
// empty database.
func Open(ctx context.Context, dsn string) (sqlstore.Provider, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return sqlstore.NewDBProvider(db, dialect{}), nil
}

func init() {
	sqlstore.Register("sqlite", func(ctx context.Context, cfg sqlstore.Config) (sqlstore.Provider, error) {
		return Open(ctx, cfg.DSN)
	})
}
