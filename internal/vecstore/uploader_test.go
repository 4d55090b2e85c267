package vecstore_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/SygmaHQ/unstructured-ingest/internal/sqlstore"
	"github.com/SygmaHQ/unstructured-ingest/internal/sqlstore/sqlite"
	"github.com/SygmaHQ/unstructured-ingest/internal/vecstore"
)

func newVectorTable(tb testing.TB) sqlstore.Provider {
	tb.Helper()
	p, err := sqlite.Open(context.Background(), filepath.Join(tb.TempDir(), "vec.db"))
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	tb.Cleanup(func() { _ = p.Close() })

	err = p.WithConn(context.Background(), func(conn *sql.Conn) error {
		_, err := conn.ExecContext(context.Background(),
			`CREATE TABLE vectors (id TEXT, document TEXT, embeddings TEXT)`)
		return err
	})
	if err != nil {
		tb.Fatalf("create table: %v", err)
	}
	return p
}

func countVectors(tb testing.TB, p sqlstore.Provider) int {
	tb.Helper()
	var n int
	err := p.WithConn(context.Background(), func(conn *sql.Conn) error {
		return conn.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM vectors`).Scan(&n)
	})
	if err != nil {
		tb.Fatalf("count: %v", err)
	}
	return n
}

func TestWriteAppendsInChunks(t *testing.T) {
	t.Parallel()

	p := newVectorTable(t)
	u := vecstore.NewUploader(p, vecstore.UploaderConfig{TableName: "vectors", BatchSize: 4})

	var rows [][]any
	for i := 0; i < 10; i++ {
		rows = append(rows, []any{"id", "doc", "[1,2]"})
	}
	if err := u.Write(context.Background(), []string{"id", "document", "embeddings"}, rows); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n := countVectors(t, p); n != 10 {
		t.Fatalf("rows = %d, want 10", n)
	}
}

func TestWriteNeverReconciles(t *testing.T) {
	t.Parallel()

	p := newVectorTable(t)
	u := vecstore.NewUploader(p, vecstore.UploaderConfig{TableName: "vectors"})
	ctx := context.Background()

	row := [][]any{{"same-id", "doc", nil}}
	cols := []string{"id", "document", "embeddings"}
	if err := u.Write(ctx, cols, row); err != nil {
		t.Fatalf("first write: %v", err)
	}
	// Same id again: this path appends, it does not delete-then-insert.
	if err := u.Write(ctx, cols, row); err != nil {
		t.Fatalf("second write: %v", err)
	}
	if n := countVectors(t, p); n != 2 {
		t.Fatalf("rows = %d, want 2 appended rows", n)
	}
}

func TestWriteRecordsUnionColumns(t *testing.T) {
	t.Parallel()

	p := newVectorTable(t)
	u := vecstore.NewUploader(p, vecstore.UploaderConfig{TableName: "vectors"})

	records := []map[string]any{
		{"id": "a", "document": "one"},
		{"id": "b", "embeddings": "[0.5]"},
	}
	if err := u.WriteRecords(context.Background(), records); err != nil {
		t.Fatalf("WriteRecords: %v", err)
	}
	if n := countVectors(t, p); n != 2 {
		t.Fatalf("rows = %d, want 2", n)
	}
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	p := newVectorTable(t)
	u := vecstore.NewUploader(p, vecstore.UploaderConfig{TableName: "vectors"})

	path := filepath.Join(t.TempDir(), "batch.csv")
	csv := "id,document,embeddings\na,one,\nb,two,\"[1,2]\"\n"
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := u.WriteCSV(context.Background(), []string{path}); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	if n := countVectors(t, p); n != 2 {
		t.Fatalf("rows = %d, want 2", n)
	}
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	p := newVectorTable(t)
	u := vecstore.NewUploader(p, vecstore.UploaderConfig{TableName: "vectors"})

	path := filepath.Join(t.TempDir(), "batch.json")
	data := `[{"id":"a","document":"one"},{"id":"b","document":"two","embeddings":"[1]"}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := u.WriteJSON(context.Background(), []string{path}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if n := countVectors(t, p); n != 2 {
		t.Fatalf("rows = %d, want 2", n)
	}
}
