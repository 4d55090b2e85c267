// Package mysql wires a MySQL-backed provider into the sqlstore factory.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql" // registers the "mysql" driver

	"github.com/SygmaHQ/unstructured-ingest/internal/sqlstore"
)

type dialect struct{}

func (dialect) Name() string             { return "mysql" }
func (dialect) Placeholder(n int) string { return "?" }
func (dialect) QuoteIdent(id string) string {
	return "`" + strings.ReplaceAll(id, "`", "``") + "`"
}

// Open opens a MySQL provider for the given DSN, e.g.
// "user:pass@tcp(host:3306)/db?parseTime=true". parseTime is recommended so
// date columns scan as time.Time on the download path.
func Open(ctx context.Context, dsn string) (sqlstore.Provider, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}
	return sqlstore.NewDBProvider(db, dialect{}), nil
}

func init() {
	sqlstore.Register("mysql", func(ctx context.Context, cfg sqlstore.Config) (sqlstore.Provider, error) {
		return Open(ctx, cfg.DSN)
	})
}
