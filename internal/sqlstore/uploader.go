package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/SygmaHQ/unstructured-ingest/internal/stage"
)

// UploaderConfig parameterizes the reconciling writer.
type UploaderConfig struct {
	// TableName is the destination element table.
	TableName string
	// RecordIDKey is the record-linkage column searched to find entries for
	// the same record on previous runs. Defaults to stage.RecordIDLabel.
	RecordIDKey string
	// BatchSize caps rows per INSERT statement. Defaults to 50.
	BatchSize int
}

// DefaultUploadBatchSize is used when UploaderConfig.BatchSize is zero.
const DefaultUploadBatchSize = 50

// Uploader writes staged rows with delete-then-insert reconciliation: rows
// sharing the incoming file's record identifier are removed before the new
// batch is inserted, which makes repeated uploads of the same record
// replace rather than duplicate.
//
// The delete and the inserts are not wrapped in one transaction: a failure
// mid-upload can leave the record's old rows deleted and the new rows only
// partially written. Retry policy belongs to the caller.
type Uploader struct {
	provider Provider
	cfg      UploaderConfig
}

// NewUploader returns an Uploader bound to the given provider.
func NewUploader(p Provider, cfg UploaderConfig) *Uploader {
	if cfg.RecordIDKey == "" {
		cfg.RecordIDKey = stage.RecordIDLabel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultUploadBatchSize
	}
	return &Uploader{provider: p, cfg: cfg}
}

// Precheck validates destination connectivity with a trivial probe, once at
// connector setup, independent from per-file writes.
func (u *Uploader) Precheck(ctx context.Context) error {
	if err := precheck(ctx, u.provider); err != nil {
		log.Printf("uploader: failed to validate connection: %v", err)
		return destinationConnectionError(err)
	}
	return nil
}

// TableColumns probes the live table's column set. The result is fetched
// fresh on every call and must not be cached: schema drift between uploads
// has to be observed, at the cost of one extra round trip per call.
func (u *Uploader) TableColumns(ctx context.Context) ([]string, error) {
	dialect := u.provider.Dialect()
	var columns []string
	err := u.provider.WithConn(ctx, func(conn *sql.Conn) error {
		// Zero-row probe: only the column descriptors are read.
		rows, err := conn.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s", dialect.QuoteIdent(u.cfg.TableName)))
		if err != nil {
			return err
		}
		defer rows.Close()
		columns, err = rows.Columns()
		return err
	})
	if err != nil {
		return nil, readError(fmt.Errorf("probe columns of %s: %w", u.cfg.TableName, err))
	}
	return columns, nil
}

// Write reconciles one file's staged rows into the destination table.
//
// Order of operations: probe the live columns, delete prior rows for
// recordID (skipped with a warning when the table lacks the record-linkage
// column — inserts then degrade to pure appends), normalize date cells, fit
// the batch to the live schema, then insert in chunks of at most BatchSize
// rows, one multi-row statement per chunk. Delete and insert failures
// propagate unhandled; see the type comment for the atomicity caveat.
func (u *Uploader) Write(ctx context.Context, recordID string, rows []map[string]any) error {
	if len(rows) == 0 {
		return nil
	}

	liveColumns, err := u.TableColumns(ctx)
	if err != nil {
		return err
	}

	if contains(liveColumns, u.cfg.RecordIDKey) {
		if err := u.deleteByRecordID(ctx, recordID); err != nil {
			return err
		}
	} else {
		log.Printf("uploader: table %s doesn't contain expected record id column %s, skipping delete",
			u.cfg.TableName, u.cfg.RecordIDKey)
	}

	for i, row := range rows {
		if err := prepareRow(row); err != nil {
			return fmt.Errorf("prepare row %d of record %s: %w", i, recordID, err)
		}
	}
	rows = FitToSchema(rows, liveColumns)

	log.Printf("uploader: writing a total of %d elements via document batches to destination table %s with batch size %d",
		len(rows), u.cfg.TableName, u.cfg.BatchSize)

	for start := 0; start < len(rows); start += u.cfg.BatchSize {
		end := min(start+u.cfg.BatchSize, len(rows))
		if err := u.insertChunk(ctx, liveColumns, rows[start:end]); err != nil {
			return writeError(fmt.Errorf("insert into %s: %w", u.cfg.TableName, err))
		}
	}
	return nil
}

// deleteByRecordID removes every existing row whose record-linkage value
// equals recordID, as one statement before any insert for that file.
func (u *Uploader) deleteByRecordID(ctx context.Context, recordID string) error {
	dialect := u.provider.Dialect()
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		dialect.QuoteIdent(u.cfg.TableName),
		dialect.QuoteIdent(u.cfg.RecordIDKey),
		dialect.Placeholder(1),
	)
	log.Printf("uploader: deleting any content with %s=%s from table %s", u.cfg.RecordIDKey, recordID, u.cfg.TableName)
	err := u.provider.WithConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, stmt, recordID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil {
			log.Printf("uploader: deleted %d rows from table %s", n, u.cfg.TableName)
		}
		return nil
	})
	if err != nil {
		return writeError(fmt.Errorf("delete from %s: %w", u.cfg.TableName, err))
	}
	return nil
}

// insertChunk executes one parameterized INSERT naming every surviving
// column, with every row of the chunk bound into a single statement. Round
// trips per file are bounded by ceil(n/BatchSize).
func (u *Uploader) insertChunk(ctx context.Context, columns []string, chunk []map[string]any) error {
	dialect := u.provider.Dialect()

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = dialect.QuoteIdent(c)
	}

	tuples := make([]string, len(chunk))
	args := make([]any, 0, len(chunk)*len(columns))
	n := 1
	for i, row := range chunk {
		placeholders := make([]string, len(columns))
		for j, c := range columns {
			placeholders[j] = dialect.Placeholder(n)
			args = append(args, row[c])
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

// prepareRow re-parses date cells at bind time. Staged files round-trip
// dates as text, so values in date columns are parsed back into time.Time
// before binding; nil passes through untouched.
func prepareRow(row map[string]any) error {
	for column, v := range row {
		if !stage.IsDateColumn(column) || v == nil {
			continue
		}
		parsed, err := stage.ParseDate(v)
		if err != nil {
			return err
		}
		row[column] = parsed
	}
	return nil
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
