package sqlstore_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/SygmaHQ/unstructured-ingest/internal/sqlstore"
	"github.com/SygmaHQ/unstructured-ingest/internal/sqlstore/sqlite"
)

// newProvider opens a throwaway on-disk SQLite store under the test's temp
// dir. A file (rather than :memory:) keeps the schema visible across the
// provider's pooled connections.
func newProvider(tb testing.TB) sqlstore.Provider {
	tb.Helper()
	p, err := sqlite.Open(context.Background(), filepath.Join(tb.TempDir(), "store.db"))
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	tb.Cleanup(func() { _ = p.Close() })
	return p
}

func mustExec(tb testing.TB, p sqlstore.Provider, stmt string, args ...any) {
	tb.Helper()
	err := p.WithConn(context.Background(), func(conn *sql.Conn) error {
		_, err := conn.ExecContext(context.Background(), stmt, args...)
		return err
	})
	if err != nil {
		tb.Fatalf("exec %q: %v", stmt, err)
	}
}

// queryPairs fetches all rows of a two-column query as string pairs.
func queryPairs(tb testing.TB, p sqlstore.Provider, query string) [][2]string {
	tb.Helper()
	var out [][2]string
	err := p.WithConn(context.Background(), func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(context.Background(), query)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var a, b sql.NullString
			if err := rows.Scan(&a, &b); err != nil {
				return err
			}
			out = append(out, [2]string{a.String, b.String})
		}
		return rows.Err()
	})
	if err != nil {
		tb.Fatalf("query %q: %v", query, err)
	}
	return out
}

func countRows(tb testing.TB, p sqlstore.Provider, query string, args ...any) int {
	tb.Helper()
	var n int
	err := p.WithConn(context.Background(), func(conn *sql.Conn) error {
		return conn.QueryRowContext(context.Background(), query, args...).Scan(&n)
	})
	if err != nil {
		tb.Fatalf("count %q: %v", query, err)
	}
	return n
}
