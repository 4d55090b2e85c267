// This file contains the pipeline execution logic. It wires the indexer,
// downloader, stager, and uploader together for each CLI mode. The CLI layer
// stays thin: it depends only on the dialect-agnostic store interfaces and
// never imports database drivers directly.
package main

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SygmaHQ/unstructured-ingest/internal/config"
	"github.com/SygmaHQ/unstructured-ingest/internal/elements"
	"github.com/SygmaHQ/unstructured-ingest/internal/metrics"
	"github.com/SygmaHQ/unstructured-ingest/internal/sqlstore"
	"github.com/SygmaHQ/unstructured-ingest/internal/stage"
	"github.com/SygmaHQ/unstructured-ingest/internal/vecstore"
)

// pipeline holds the wired components for one run. Source and destination
// providers may be the same instance when the config points both at the same
// store.
type pipeline struct {
	cfg config.Pipeline

	source sqlstore.Provider
	dest   sqlstore.Provider
	vector sqlstore.Provider

	indexer    *sqlstore.Indexer
	downloader *sqlstore.Downloader
	uploader   *sqlstore.Uploader

	stager    stage.Stager
	vecStager vecstore.Stager
	vecUpload *vecstore.Uploader
}

// newPipeline opens the configured providers and constructs the pipeline
// components. Upload kind/DSN fall back to the source's so that same-store
// round trips need no duplicate config.
func newPipeline(ctx context.Context, p config.Pipeline) (*pipeline, error) {
	srcCfg := sqlstore.Config{Kind: p.Source.Kind, DSN: p.Source.DSN}
	source, err := sqlstore.Open(ctx, srcCfg)
	if err != nil {
		return nil, fmt.Errorf("open source store: %w", err)
	}

	destCfg := sqlstore.Config{Kind: p.Upload.Kind, DSN: p.Upload.DSN}
	if destCfg.Kind == "" {
		destCfg.Kind = srcCfg.Kind
	}
	if destCfg.DSN == "" {
		destCfg.DSN = srcCfg.DSN
	}

	dest := source
	if destCfg != srcCfg {
		dest, err = sqlstore.Open(ctx, destCfg)
		if err != nil {
			source.Close()
			return nil, fmt.Errorf("open destination store: %w", err)
		}
	}

	pl := &pipeline{
		cfg:    p,
		source: source,
		dest:   dest,
		indexer: sqlstore.NewIndexer(source, sqlstore.IndexerConfig{
			TableName: p.Source.Table,
			IDColumn:  p.Source.IDColumn,
			BatchSize: p.Source.BatchSize,
		}),
		downloader: sqlstore.NewDownloader(source, sqlstore.DownloaderConfig{
			DownloadDir: p.Download.Dir,
			Fields:      p.Download.Fields,
		}),
		uploader: sqlstore.NewUploader(dest, sqlstore.UploaderConfig{
			TableName:   p.Upload.Table,
			RecordIDKey: p.Upload.RecordIDKey,
			BatchSize:   p.Upload.BatchSize,
		}),
	}

	if p.Vector != nil {
		vecCfg := sqlstore.Config{Kind: p.Vector.Kind, DSN: p.Vector.DSN}
		vector, err := sqlstore.Open(ctx, vecCfg)
		if err != nil {
			pl.Close()
			return nil, fmt.Errorf("open vector store: %w", err)
		}
		pl.vector = vector
		pl.vecUpload = vecstore.NewUploader(vector, vecstore.UploaderConfig{
			TableName: p.Vector.Table,
			BatchSize: p.Vector.BatchSize,
		})
	}

	return pl, nil
}

// Close releases all providers.
func (pl *pipeline) Close() {
	if pl.vector != nil {
		pl.vector.Close()
	}
	if pl.dest != pl.source {
		pl.dest.Close()
	}
	pl.source.Close()
}

// Run dispatches one CLI mode. File-oriented modes (stage, upload) consume
// the positional arguments as element file paths.
func (pl *pipeline) Run(ctx context.Context, mode string, args []string) error {
	switch mode {
	case "index":
		return pl.runIndex(ctx)
	case "download":
		_, err := pl.runDownload(ctx)
		return err
	case "stage":
		return pl.runStage(args)
	case "upload":
		return pl.runUpload(ctx, args)
	case "sync":
		return pl.runSync(ctx)
	default:
		return fmt.Errorf("unsupported mode %q", mode)
	}
}

// runIndex enumerates batches and prints their descriptors without touching
// any data.
func (pl *pipeline) runIndex(ctx context.Context) error {
	start := time.Now()
	batches, err := pl.indexBatches(ctx)
	metrics.RecordStep(pl.cfg.Job, "index", err, time.Since(start))
	if err != nil {
		return err
	}
	for _, desc := range batches {
		log.Printf("batch id=%s table=%s ids=%d", desc.ID(), desc.TableName, len(desc.Identifiers))
	}
	return nil
}

func (pl *pipeline) indexBatches(ctx context.Context) ([]sqlstore.BatchDescriptor, error) {
	if err := pl.indexer.Precheck(ctx); err != nil {
		return nil, err
	}
	batches, err := pl.indexer.Batches(ctx)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, desc := range batches {
		total += len(desc.Identifiers)
	}
	metrics.RecordRow(pl.cfg.Job, "indexed", int64(total))
	return batches, nil
}

// runDownload enumerates batches and materializes them concurrently, bounded
// by runtime.download_workers. Batches are independent so ordering between
// them does not matter; a failing batch cancels the remaining ones.
func (pl *pipeline) runDownload(ctx context.Context) ([]sqlstore.DownloadedRow, error) {
	batches, err := pl.indexBatches(ctx)
	if err != nil {
		return nil, err
	}

	workers := pl.cfg.Runtime.DownloadWorkers
	if workers <= 0 {
		workers = 1
	}

	var (
		mu         sync.Mutex
		downloaded []sqlstore.DownloadedRow
	)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, desc := range batches {
		g.Go(func() error {
			rows, err := pl.downloader.Materialize(gctx, desc)
			if err != nil {
				return err
			}
			mu.Lock()
			downloaded = append(downloaded, rows...)
			mu.Unlock()
			metrics.RecordRow(pl.cfg.Job, "downloaded", int64(len(rows)))
			metrics.RecordBatches(pl.cfg.Job, 1)
			return nil
		})
	}
	err = g.Wait()
	metrics.RecordStep(pl.cfg.Job, "download", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	log.Printf("download: workers=%d batches=%d rows=%d", workers, len(batches), len(downloaded))
	return downloaded, nil
}

// runStage conforms raw element files into destination-shaped rows, writing
// each result next to its input with a .staged.json suffix.
func (pl *pipeline) runStage(paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("stage mode requires element file paths as arguments")
	}
	start := time.Now()
	err := func() error {
		for _, path := range paths {
			raw, err := elements.ReadJSON(path)
			if err != nil {
				return err
			}
			recordID := identifierFromPath(path)
			rows, err := pl.stager.ConformAll(raw, recordID)
			if err != nil {
				return fmt.Errorf("stage %s: %w", path, err)
			}
			out := strings.TrimSuffix(path, filepath.Ext(path)) + ".staged.json"
			if err := elements.WriteJSON(out, rows); err != nil {
				return err
			}
			metrics.RecordRow(pl.cfg.Job, "staged", int64(len(rows)))
			log.Printf("stage: in=%s out=%s rows=%d", path, out, len(rows))
		}
		return nil
	}()
	metrics.RecordStep(pl.cfg.Job, "stage", err, time.Since(start))
	return err
}

// runUpload writes staged element files into the destination table, one
// reconciled record per file.
func (pl *pipeline) runUpload(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("upload mode requires staged file paths as arguments")
	}
	if err := pl.uploader.Precheck(ctx); err != nil {
		return err
	}
	start := time.Now()
	err := func() error {
		for _, path := range paths {
			rows, err := elements.ReadJSON(path)
			if err != nil {
				return err
			}
			recordID := identifierFromPath(path)
			if err := pl.uploader.Write(ctx, recordID, rows); err != nil {
				return err
			}
			metrics.RecordRow(pl.cfg.Job, "uploaded", int64(len(rows)))
			metrics.RecordBatches(pl.cfg.Job, 1)
		}
		return nil
	}()
	metrics.RecordStep(pl.cfg.Job, "upload", err, time.Since(start))
	return err
}

// runSync executes the full round trip: enumerate, download, stage each
// downloaded row, and reconcile it into the destination. Downloads run
// concurrently; writes stay sequential since one writer per table is usually
// best.
func (pl *pipeline) runSync(ctx context.Context) error {
	downloaded, err := pl.runDownload(ctx)
	if err != nil {
		return err
	}

	if err := pl.uploader.Precheck(ctx); err != nil {
		return err
	}
	if pl.vecUpload != nil {
		if err := pl.vecUpload.Precheck(ctx); err != nil {
			return err
		}
	}

	start := time.Now()
	err = func() error {
		for _, dr := range downloaded {
			raw, err := rowElements(dr.Path)
			if err != nil {
				return err
			}

			rows, err := pl.stager.ConformAll(raw, dr.Identifier)
			if err != nil {
				return fmt.Errorf("stage %s: %w", dr.Path, err)
			}
			metrics.RecordRow(pl.cfg.Job, "staged", int64(len(rows)))

			if err := pl.uploader.Write(ctx, dr.Identifier, rows); err != nil {
				return err
			}
			metrics.RecordRow(pl.cfg.Job, "uploaded", int64(len(rows)))
			metrics.RecordBatches(pl.cfg.Job, 1)

			if pl.vecUpload != nil {
				records := pl.vecStager.ConformAll(raw, dr.Identifier)
				if err := pl.vecUpload.WriteRecords(ctx, records); err != nil {
					return err
				}
			}
		}
		return nil
	}()
	metrics.RecordStep(pl.cfg.Job, "upload", err, time.Since(start))
	if err != nil {
		return err
	}
	log.Printf("sync: records=%d", len(downloaded))
	return nil
}

// rowElements loads one downloaded single-row CSV back into element-shaped
// mappings, one per data row.
func rowElements(path string) ([]map[string]any, error) {
	columns, records, err := elements.ReadCSV(path)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		element := make(map[string]any, len(columns))
		for i, c := range columns {
			if i < len(rec) {
				element[c] = rec[i]
			}
		}
		out = append(out, element)
	}
	return out, nil
}

// identifierFromPath derives the record identifier from a file path: the base
// name with the extension and any ".staged" suffix stripped. This matches the
// identifiers the downloader assigns to materialized rows.
func identifierFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.TrimSuffix(base, ".staged")
}
