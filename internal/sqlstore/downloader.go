package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/SygmaHQ/unstructured-ingest/internal/elements"
	"github.com/SygmaHQ/unstructured-ingest/internal/identity"
)

// DownloaderConfig parameterizes batch materialization.
type DownloaderConfig struct {
	// DownloadDir is the root under which per-row CSV files are written.
	DownloadDir string
	// Fields optionally restricts the SELECT list. An empty slice fetches
	// every column. Two different field subsets for the same row produce
	// different filenames.
	Fields []string
}

// DownloadedRow is one materialized table row persisted as a single-row CSV
// file. Identifier is the filename identifier used downstream as the
// record-linkage value; the file at Path is immutable once written.
type DownloadedRow struct {
	// Identifier is "{table}-{record}[-{hash8}]".
	Identifier string
	// RecordID is the row's identifier-column value.
	RecordID string
	// Path is where the row landed on disk.
	Path string
}

// Downloader materializes the rows named by a batch descriptor, one CSV file
// per source row. The 1:1 row-to-file mapping lets downstream stages process,
// retry, and re-identify records independently.
type Downloader struct {
	provider Provider
	cfg      DownloaderConfig
}

// NewDownloader returns a Downloader bound to the given provider.
func NewDownloader(p Provider, cfg DownloaderConfig) *Downloader {
	return &Downloader{provider: p, cfg: cfg}
}

// Identifier derives the deterministic filename identifier for one logical
// row. When a field projection is configured an 8-hex digest of the field
// list is appended so distinct projections of the same row never collide.
func (d *Downloader) Identifier(tableName, recordID string) string {
	id := fmt.Sprintf("%s-%s", tableName, recordID)
	if len(d.cfg.Fields) > 0 {
		id = fmt.Sprintf("%s-%s", id, identity.FieldsHash(d.cfg.Fields))
	}
	return id
}

// Materialize fetches every row named by the descriptor and writes each one
// to its own CSV file under the download directory, overwriting any previous
// download of the same logical row.
func (d *Downloader) Materialize(ctx context.Context, desc BatchDescriptor) ([]DownloadedRow, error) {
	columns, rows, err := d.query(ctx, desc)
	if err != nil {
		return nil, readError(fmt.Errorf("materialize batch %s: %w", desc.ID(), err))
	}

	idIdx := -1
	for i, c := range columns {
		if c == desc.IDColumn {
			idIdx = i
			break
		}
	}
	if idIdx < 0 {
		return nil, readError(fmt.Errorf("materialize batch %s: id column %q not in result columns %v",
			desc.ID(), desc.IDColumn, columns))
	}

	out := make([]DownloadedRow, 0, len(rows))
	for _, row := range rows {
		recordID := valueToString(row[idIdx])
		id := d.Identifier(desc.TableName, recordID)
		path := filepath.Join(d.cfg.DownloadDir, id+".csv")
		log.Printf("downloader: table=%s record=%s path=%s", desc.TableName, recordID, path)
		if err := elements.WriteRowCSV(path, columns, row); err != nil {
			return nil, err
		}
		out = append(out, DownloadedRow{Identifier: id, RecordID: recordID, Path: path})
	}
	return out, nil
}

// query fetches the descriptor's rows in one statement, with the optional
// field projection applied. Result ordering is whatever the store returns;
// each row is self-identifying via the id column.
func (d *Downloader) query(ctx context.Context, desc BatchDescriptor) ([]string, [][]any, error) {
	dialect := d.provider.Dialect()

	selectList := "*"
	if len(d.cfg.Fields) > 0 {
		quoted := make([]string, len(d.cfg.Fields))
		for i, f := range d.cfg.Fields {
			quoted[i] = dialect.QuoteIdent(f)
		}
		selectList = strings.Join(quoted, ", ")
	}

	placeholders := make([]string, len(desc.Identifiers))
	args := make([]any, len(desc.Identifiers))
	for i, id := range desc.Identifiers {
		placeholders[i] = dialect.Placeholder(i + 1)
		args[i] = id
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s IN (%s)",
		selectList,
		dialect.QuoteIdent(desc.TableName),
		dialect.QuoteIdent(desc.IDColumn),
		strings.Join(placeholders, ", "),
	)

	var (
		columns []string
		out     [][]any
	)
	err := d.provider.WithConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		columns, err = rows.Columns()
		if err != nil {
			return err
		}
		for rows.Next() {
			values := make([]any, len(columns))
			ptrs := make([]any, len(columns))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return err
			}
			out = append(out, values)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, nil, err
	}
	return columns, out, nil
}
