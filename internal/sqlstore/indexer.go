package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"slices"
	"time"
)

// IndexerConfig parameterizes batch enumeration.
type IndexerConfig struct {
	// TableName is the source table holding one row per record.
	TableName string
	// IDColumn is the column whose values identify records.
	IDColumn string
	// BatchSize caps the identifier count per descriptor. Defaults to 100.
	BatchSize int
}

// DefaultIndexBatchSize is used when IndexerConfig.BatchSize is zero.
const DefaultIndexBatchSize = 100

// Indexer enumerates record identifiers and partitions them into fixed-size
// deterministic batches.
type Indexer struct {
	provider Provider
	cfg      IndexerConfig
}

// NewIndexer returns an Indexer bound to the given provider.
func NewIndexer(p Provider, cfg IndexerConfig) *Indexer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultIndexBatchSize
	}
	return &Indexer{provider: p, cfg: cfg}
}

// Precheck validates source connectivity with a trivial probe. It is a
// fail-fast gate run once per connector lifecycle, not per batch; a failure
// is fatal to connector startup and never retried here.
func (ix *Indexer) Precheck(ctx context.Context) error {
	if err := precheck(ctx, ix.provider); err != nil {
		log.Printf("indexer: failed to validate connection: %v", err)
		return sourceConnectionError(err)
	}
	return nil
}

// Batches enumerates all record identifiers and slices them into contiguous
// chunks of the configured batch size (the last chunk may be smaller).
//
// Identifiers are sorted lexicographically before slicing so that batch
// assignment is stable across repeated enumerations of an unchanged table;
// under retries this bounds duplicate work to whole batches. Duplicates are
// removed during enumeration, making descriptor identifier sets disjoint by
// construction.
func (ix *Indexer) Batches(ctx context.Context) ([]BatchDescriptor, error) {
	ids, err := ix.recordIDs(ctx)
	if err != nil {
		return nil, readError(fmt.Errorf("enumerate %s.%s: %w", ix.cfg.TableName, ix.cfg.IDColumn, err))
	}

	snapshot := time.Now().UTC()
	n := len(ids)
	size := ix.cfg.BatchSize
	batches := make([]BatchDescriptor, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		batches = append(batches, BatchDescriptor{
			TableName:     ix.cfg.TableName,
			IDColumn:      ix.cfg.IDColumn,
			Identifiers:   slices.Clone(ids[start:end]),
			DateProcessed: snapshot,
		})
	}
	log.Printf("indexer: table=%s ids=%d batch_size=%d batches=%d", ix.cfg.TableName, n, size, len(batches))
	return batches, nil
}

// recordIDs fetches every identifier value as text. Ordering from the store
// is not trusted; the result is re-sorted here.
func (ix *Indexer) recordIDs(ctx context.Context) ([]string, error) {
	d := ix.provider.Dialect()
	query := fmt.Sprintf("SELECT %s FROM %s", d.QuoteIdent(ix.cfg.IDColumn), d.QuoteIdent(ix.cfg.TableName))

	var ids []string
	err := ix.provider.WithConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var v any
			if err := rows.Scan(&v); err != nil {
				return err
			}
			ids = append(ids, valueToString(v))
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// valueToString renders a scanned identifier as text. Drivers return
// []byte or typed values depending on dialect; the textual form is the
// canonical record identifier everywhere downstream.
func valueToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
