// Package vecstore implements the vector-table sibling of the reconciling
// SQL uploader. It is deliberately simpler: batches are partitioned into
// fixed-size chunks by row position (not content) and each chunk is inserted
// independently. There is no delete-before-insert step and no schema
// fitting; writes are strictly appends.
package vecstore

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/SygmaHQ/unstructured-ingest/internal/elements"
	"github.com/SygmaHQ/unstructured-ingest/internal/sqlstore"
)

// UploaderConfig parameterizes the append-only vector uploader.
type UploaderConfig struct {
	// TableName is the destination vector table.
	TableName string
	// BatchSize caps rows per insert chunk. Defaults to 100.
	BatchSize int
}

// DefaultBatchSize is used when UploaderConfig.BatchSize is zero.
const DefaultBatchSize = 100

// Uploader appends tabular batches to a vector table.
type Uploader struct {
	provider sqlstore.Provider
	cfg      UploaderConfig
}

// NewUploader returns an Uploader bound to the given provider.
func NewUploader(p sqlstore.Provider, cfg UploaderConfig) *Uploader {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Uploader{provider: p, cfg: cfg}
}

// Precheck validates destination connectivity once at connector setup.
func (u *Uploader) Precheck(ctx context.Context) error {
	err := u.provider.WithConn(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, "SELECT 1;")
		return err
	})
	if err != nil {
		log.Printf("vecstore: failed to validate connection: %v", err)
		return &sqlstore.StoreError{
			Phase: sqlstore.PhaseValidateDestination,
			Err:   fmt.Errorf("failed to validate connection: %w", err),
		}
	}
	return nil
}

// Write splits rows into position-based chunks of at most BatchSize and
// inserts each chunk with one multi-row statement. Chunks are independent:
// a failure aborts the remaining chunks but already-inserted ones stay.
func (u *Uploader) Write(ctx context.Context, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	log.Printf("vecstore: uploading %d entries to table %s with batch size %d",
		len(rows), u.cfg.TableName, u.cfg.BatchSize)
	for start := 0; start < len(rows); start += u.cfg.BatchSize {
		end := min(start+u.cfg.BatchSize, len(rows))
		if err := u.insertChunk(ctx, columns, rows[start:end]); err != nil {
			return &sqlstore.StoreError{
				Phase: sqlstore.PhaseWrite,
				Err:   fmt.Errorf("insert into %s: %w", u.cfg.TableName, err),
			}
		}
	}
	return nil
}

// WriteRecords is a convenience over Write for map-shaped rows: the column
// list is the sorted union of keys across all records, and absent cells
// bind as nulls. This mirrors loading a heterogeneous record list into one
// table frame; it is not schema fitting, which this path never performs.
func (u *Uploader) WriteRecords(ctx context.Context, records []map[string]any) error {
	if len(records) == 0 {
		return nil
	}
	columns := unionColumns(records)
	rows := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(columns))
		for j, c := range columns {
			row[j] = rec[c]
		}
		rows[i] = row
	}
	return u.Write(ctx, columns, rows)
}

// WriteCSV appends the contents of one or more CSV files. All files must
// share the first file's header.
func (u *Uploader) WriteCSV(ctx context.Context, paths []string) error {
	log.Printf("vecstore: uploading content from %d csv files", len(paths))
	var (
		columns []string
		rows    [][]any
	)
	for _, path := range paths {
		cols, recs, err := elements.ReadCSV(path)
		if err != nil {
			return err
		}
		if columns == nil {
			columns = cols
		} else if !equalColumns(columns, cols) {
			return fmt.Errorf("vecstore: %s header %v does not match %v", path, cols, columns)
		}
		for _, rec := range recs {
			row := make([]any, len(rec))
			for i, cell := range rec {
				row[i] = cell
			}
			rows = append(rows, row)
		}
	}
	return u.Write(ctx, columns, rows)
}

// WriteJSON appends all records from one or more JSON element files.
func (u *Uploader) WriteJSON(ctx context.Context, paths []string) error {
	log.Printf("vecstore: uploading content from %d json files", len(paths))
	var records []map[string]any
	for _, path := range paths {
		recs, err := elements.ReadJSON(path)
		if err != nil {
			return err
		}
		records = append(records, recs...)
	}
	return u.WriteRecords(ctx, records)
}

func (u *Uploader) insertChunk(ctx context.Context, columns []string, chunk [][]any) error {
	dialect := u.provider.Dialect()

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = dialect.QuoteIdent(c)
	}
	tuples := make([]string, len(chunk))
	args := make([]any, 0, len(chunk)*len(columns))
	n := 1
	for i, row := range chunk {
		if len(row) != len(columns) {
			return fmt.Errorf("row %d has %d cells for %d columns", i, len(row), len(columns))
		}
		placeholders := make([]string, len(columns))
		for j := range columns {
			placeholders[j] = dialect.Placeholder(n)
			args = append(args, row[j])
			n++
		}
		tuples[i] = "(" + strings.Join(placeholders, ", ") + ")"
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		dialect.QuoteIdent(u.cfg.TableName),
		strings.Join(quoted, ", "),
		strings.Join(tuples, ", "),
	)
	return u.provider.WithConn(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, stmt, args...)
		return err
	})
}

func unionColumns(records []map[string]any) []string {
	set := map[string]struct{}{}
	var out []string
	for _, rec := range records {
		for k := range rec {
			if _, ok := set[k]; !ok {
				set[k] = struct{}{}
				out = append(out, k)
			}
		}
	}
	// Deterministic statement shape regardless of map iteration order.
	sort.Strings(out)
	return out
}

func equalColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
