// Package config defines the canonical, JSON-serializable configuration
// model for the ingest connector. It is intentionally small and explicit so
// that pipelines can be loaded from disk and passed through the program
// without additional glue code; decoding is performed by the standard
// library.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Pipeline describes one full synchronization pipeline in JSON. It is the
// top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job names the pipeline for logging and metrics.
	Job string `json:"job"`

	// Source describes the table records are indexed and downloaded from.
	Source Source `json:"source"`

	// Download configures batch materialization to local CSV files.
	Download Download `json:"download"`

	// Upload describes the reconciling destination table.
	Upload Upload `json:"upload"`

	// Vector optionally describes the append-only vector destination.
	Vector *Vector `json:"vector,omitempty"`

	// Metrics selects an optional metrics backend.
	Metrics Metrics `json:"metrics"`

	// Runtime controls orchestration concurrency.
	Runtime Runtime `json:"runtime"`
}

// Source identifies the table to enumerate and download from.
type Source struct {
	// Kind selects the registered dialect: "sqlite", "postgres", "mysql",
	// "mssql".
	Kind string `json:"kind"`

	// DSN is the driver connection string.
	DSN string `json:"dsn"`

	// Table is the source table name.
	Table string `json:"table"`

	// IDColumn is the record identifier column within Table.
	IDColumn string `json:"id_column"`

	// BatchSize caps identifiers per enumeration batch (default 100).
	BatchSize int `json:"batch_size"`
}

// Download configures the materialization stage.
type Download struct {
	// Dir is the root directory for per-row CSV files.
	Dir string `json:"dir"`

	// Fields optionally restricts the downloaded column projection.
	Fields []string `json:"fields,omitempty"`
}

// Upload describes the reconciling destination.
type Upload struct {
	// Kind and DSN select and parameterize the destination store. When
	// empty they default to the source's, for same-store round trips.
	Kind string `json:"kind"`
	DSN  string `json:"dsn"`

	// Table is the destination element table (default "elements").
	Table string `json:"table"`

	// RecordIDKey is the record-linkage column searched to find entries
	// for the same record on previous runs (default "record_id").
	RecordIDKey string `json:"record_id_key"`

	// BatchSize caps rows per INSERT statement (default 50).
	BatchSize int `json:"batch_size"`
}

// Vector describes the append-only vector destination.
type Vector struct {
	Kind  string `json:"kind"`
	DSN   string `json:"dsn"`
	Table string `json:"table"`

	// BatchSize caps rows per insert chunk (default 100).
	BatchSize int `json:"batch_size"`
}

// Metrics selects the metrics backend. An empty Backend leaves the no-op
// backend installed.
type Metrics struct {
	// Backend is "", "datadog", or "prompush".
	Backend string `json:"backend"`

	// Addr is the DogStatsD address for the datadog backend.
	Addr string `json:"addr,omitempty"`

	// Namespace is an optional prefix for datadog metric names.
	Namespace string `json:"namespace,omitempty"`

	// GatewayURL is the Pushgateway base URL for the prompush backend.
	GatewayURL string `json:"gateway_url,omitempty"`
}

// Runtime controls orchestration concurrency. The connector core stays
// synchronous per file; workers apply to whole batches.
type Runtime struct {
	// DownloadWorkers bounds concurrent batch downloads (default 1).
	DownloadWorkers int `json:"download_workers"`
}

// Load reads and decodes a pipeline file.
func Load(path string) (Pipeline, error) {
	var p Pipeline
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read pipeline %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("decode pipeline %s: %w", path, err)
	}
	return p, nil
}
