package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"datafuse/internal/config"
	"datafuse/internal/export"
	"datafuse/internal/metrics"
	"datafuse/internal/metrics/datadog"
	"datafuse/internal/pipeline"
	"datafuse/internal/report"

	// register all loader and export backends; the config selects which to
	// use but the binary supports them all.
	_ "datafuse/internal/export/all"
	_ "datafuse/internal/loader/all"
)

// main loads the run config, optionally initializes a metrics backend, and
// executes the pipeline: load, merge, insights, exports, report.
func main() {
	var (
		cfgPath           string
		metricsBackendFlg string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "configs/sample.json", "run config JSON path")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "none", "metrics backend to use (datadog, none)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	run, err := config.Load(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}

	issues := config.Validate(run)
	hasError := false
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		if iss.Severity == config.SeverityError {
			hasError = true
		}
	}
	if hasError {
		log.Printf("configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}
	if validate {
		log.Printf("configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	// Metrics backend: flag then env then disabled.
	backendName := metricsBackendFlg
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	switch backendName {
	case "datadog":
		jobName := run.Job
		if jobName == "" {
			jobName = "datafuse_job"
		}
		extraTags := datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS"))

		b, err := datadog.New(context.Background(), datadog.Options{
			JobName: jobName,
			Tags:    extraTags,
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
		} else {
			log.Printf("metrics: backend=%v job_name=%v tags=%v", backendName, jobName, extraTags)
			metrics.SetBackend(b)
			// Close stops the flush loop and submits the tail.
			defer func() {
				if err := b.Close(); err != nil {
					log.Printf("metrics: datadog close/flush error: %v", err)
				}
			}()
		}

	case "", "none":
		if *verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}

	ctx := context.Background()
	start := time.Now()

	if *verbose {
		names := make([]string, len(run.Sources))
		for i, s := range run.Sources {
			names[i] = s.EffectiveName()
		}
		log.Printf("run: job=%s sources=%s exports=%d", run.Job, strings.Join(names, ","), len(run.Export))
	}

	res, err := pipeline.Run(ctx, run)
	if err != nil {
		res.Diag.Render(os.Stderr)
		log.Fatalf("%v", err)
	}

	for _, f := range res.Failed {
		log.Printf("source %s dropped: %v", f.Name, f.Err)
	}
	if *verbose {
		res.Diag.Render(os.Stderr)
	}

	log.Printf("merged: %d rows, %d columns (%d insights, %d skipped)",
		len(res.Merged.Rows), len(res.Merged.Columns),
		len(res.Insights.Values), len(res.Insights.Skipped))

	for _, target := range run.Export {
		if target.Table == "" {
			target.Table = run.Job
		}
		if err := exportTo(ctx, target, res); err != nil {
			log.Fatalf("export %s: %v", target.Kind, err)
		}
		if *verbose {
			log.Printf("export: kind=%s done", target.Kind)
		}
	}

	if run.Report != "" {
		if err := writeReport(run.Report, res); err != nil {
			log.Fatalf("report: %v", err)
		}
		log.Printf("report written to %s", run.Report)
	}

	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

func exportTo(ctx context.Context, target config.ExportTarget, res pipeline.Result) error {
	e, err := export.New(ctx, target)
	if err != nil {
		return err
	}
	defer e.Close()
	return e.Export(ctx, res.Merged)
}

func writeReport(path string, res pipeline.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return report.Write(f, res.Merged, res.Insights)
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
