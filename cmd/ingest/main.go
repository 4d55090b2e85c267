// Package main is the CLI entry point for the ingest connector. It loads the
// pipeline config, optionally initializes a metrics backend, and runs the
// requested pipeline mode.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/SygmaHQ/unstructured-ingest/internal/config"
	"github.com/SygmaHQ/unstructured-ingest/internal/metrics"
	"github.com/SygmaHQ/unstructured-ingest/internal/metrics/datadog"
	"github.com/SygmaHQ/unstructured-ingest/internal/metrics/prompush"

	// register all dialects with the store factory.
	// config specifies which to use but we need to build in support for all of them.
	_ "github.com/SygmaHQ/unstructured-ingest/internal/sqlstore/all"
)

func main() {
	var (
		cfgPath  string
		mode     string
		validate bool
	)

	flag.StringVar(&cfgPath, "config", "configs/pipelines/sample.json", "pipeline config JSON path")
	flag.StringVar(&mode, "mode", "sync", "pipeline mode: index, download, stage, upload, or sync")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	p, err := config.Load(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}

	// Validate pipeline config.
	issues := config.Validate(p)
	hasError := false
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		if iss.Severity == config.SeverityError {
			hasError = true
		}
	}
	if hasError {
		log.Printf("Configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}

	// If validate flag is set, only validate the configuration and exit
	if validate {
		log.Printf("Configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	initMetrics(p, *verbose)
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}()

	ctx := context.Background()
	start := time.Now()

	if *verbose {
		log.Printf("pipeline: job=%s source=%s table=%s id_column=%s mode=%s",
			p.Job, p.Source.Kind, p.Source.Table, p.Source.IDColumn, mode)
	}

	pl, err := newPipeline(ctx, p)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer pl.Close()

	if err := pl.Run(ctx, mode, flag.Args()); err != nil {
		log.Fatalf("%v", err)
	}

	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

// initMetrics installs the configured metrics backend. The nop backend stays
// installed when none is configured or initialization fails.
func initMetrics(p config.Pipeline, verbose bool) {
	switch p.Metrics.Backend {
	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:      p.Metrics.Addr,
			Namespace: p.Metrics.Namespace,
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=datadog addr=%v", p.Metrics.Addr)
		metrics.SetBackend(b)

	case "prompush":
		jobName := p.Job
		if jobName == "" {
			jobName = "ingest_job"
		}
		b, err := prompush.NewBackend(jobName, p.Metrics.GatewayURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=prompush url=%v job_name=%v", p.Metrics.GatewayURL, jobName)
		metrics.SetBackend(b)

	case "":
		// metrics disabled; nop backend remains
		if verbose {
			log.Printf("metrics: disabled")
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", p.Metrics.Backend)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
