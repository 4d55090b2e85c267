// This file adds a lightweight linter/validator for Pipeline values. It
// performs static checks over a decoded Pipeline and returns a list of
// issues (errors and warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be
	// surfaced to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding for a Pipeline. Path is a
// dotted path into the config (e.g. "source.id_column").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a
// single error in contexts that expect one.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

var knownKinds = map[string]bool{
	"sqlite":   true,
	"postgres": true,
	"mysql":    true,
	"mssql":    true,
}

// Validate performs static validation of a Pipeline. It does not mutate the
// pipeline; callers decide whether warnings block execution.
func Validate(p Pipeline) []Issue {
	var issues []Issue

	addErr := func(path, msg string) {
		issues = append(issues, Issue{Severity: SeverityError, Path: path, Message: msg})
	}
	addWarn := func(path, msg string) {
		issues = append(issues, Issue{Severity: SeverityWarning, Path: path, Message: msg})
	}

	if strings.TrimSpace(p.Job) == "" {
		addWarn("job", "job name is empty; logs and metrics will be unlabeled")
	}

	checkStore := func(prefix, kind, dsn string, required bool) {
		if kind == "" && dsn == "" && !required {
			return
		}
		if kind == "" {
			addErr(prefix+".kind", "store kind is required")
		} else if !knownKinds[kind] {
			addErr(prefix+".kind", fmt.Sprintf("unknown store kind %q", kind))
		}
		if strings.TrimSpace(dsn) == "" {
			addErr(prefix+".dsn", "DSN is required")
		}
	}

	checkStore("source", p.Source.Kind, p.Source.DSN, true)
	if strings.TrimSpace(p.Source.Table) == "" {
		addErr("source.table", "table name is required")
	}
	if strings.TrimSpace(p.Source.IDColumn) == "" {
		addErr("source.id_column", "identifier column is required")
	}
	if p.Source.BatchSize < 0 {
		addErr("source.batch_size", "batch size must not be negative")
	}

	// Upload kind/DSN may fall back to the source's.
	checkStore("upload", p.Upload.Kind, p.Upload.DSN, false)
	if p.Upload.BatchSize < 0 {
		addErr("upload.batch_size", "batch size must not be negative")
	}

	if p.Vector != nil {
		checkStore("vector", p.Vector.Kind, p.Vector.DSN, true)
		if strings.TrimSpace(p.Vector.Table) == "" {
			addErr("vector.table", "table name is required")
		}
	}

	switch p.Metrics.Backend {
	case "", "datadog", "prompush":
	default:
		addErr("metrics.backend", fmt.Sprintf("unknown metrics backend %q", p.Metrics.Backend))
	}
	if p.Metrics.Backend == "datadog" && p.Metrics.Addr == "" {
		addErr("metrics.addr", "datadog backend requires a DogStatsD address")
	}
	if p.Metrics.Backend == "prompush" && p.Metrics.GatewayURL == "" {
		addErr("metrics.gateway_url", "prompush backend requires a gateway URL")
	}

	if p.Runtime.DownloadWorkers < 0 {
		addErr("runtime.download_workers", "worker count must not be negative")
	}

	return issues
}

// HasErrors reports whether any issue carries SeverityError.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}
