package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"medqc-hq/medqc/pkg/audit"
	"medqc-hq/medqc/pkg/cli"
	"medqc-hq/medqc/pkg/config"
	"medqc-hq/medqc/pkg/precheck"
	"medqc-hq/medqc/pkg/report"
	"medqc-hq/medqc/pkg/report/export"
	"medqc-hq/medqc/pkg/rules"
	"medqc-hq/medqc/pkg/telemetry/metrics"
)

var auditFlags struct {
	document      string
	docName       string
	precheck      string
	format        string
	output        string
	pretty        bool
	mode          string
	chunkSize     int
	concurrency   int
	timeout       string
	skipInference bool
	metricsFile   string
	progress      bool
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit one document against the rule catalog",
	Long: `Audit one clinical document against every rule of the catalog.

The report lists each rule exactly once, as a violation or a pass. Backend
failures never abort the audit: rules that could not be confirmed are failed
with the evidence "not confirmed by inference" and counted in diagnostics.

Examples:
  # JSON report on stdout
  medqc audit --document case.txt

  # CSV report to a file, four chunks in flight
  medqc audit --document case.txt --format csv --output report.csv --concurrency 4

  # Merge deterministic pre-check results and skip mode probing
  medqc audit --document case.txt --precheck checks.json --mode plain_json

  # Write a node_exporter textfile snapshot after the audit
  medqc audit --document case.txt --metrics-file /var/lib/node_exporter/medqc.prom`,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	f := auditCmd.Flags()
	f.StringVarP(&auditFlags.document, "document", "d", "", "document text file to audit (required)")
	f.StringVar(&auditFlags.docName, "doc-name", "", "document name in the report (default: file name)")
	f.StringVar(&auditFlags.precheck, "precheck", "", "JSON file with deterministic pre-check results")
	f.StringVarP(&auditFlags.format, "format", "f", "json", "report format: json, csv")
	f.StringVarP(&auditFlags.output, "output", "o", "", "report file (default: stdout)")
	f.BoolVar(&auditFlags.pretty, "pretty", true, "indent JSON reports")
	f.StringVar(&auditFlags.mode, "mode", "", "force the output mode: schema, grammar, plain_json")
	f.IntVar(&auditFlags.chunkSize, "chunk-size", 0, "override audit.chunk_size")
	f.IntVar(&auditFlags.concurrency, "concurrency", 0, "override audit.concurrency")
	f.StringVar(&auditFlags.timeout, "timeout", "", "override audit.timeout (e.g. 5m)")
	f.BoolVar(&auditFlags.skipInference, "skip-inference", false, "resolve rules without calling the backend")
	f.StringVar(&auditFlags.metricsFile, "metrics-file", "", "write a Prometheus textfile snapshot here")
	f.BoolVar(&auditFlags.progress, "progress", false, "show chunk progress on stderr")

	_ = auditCmd.MarkFlagRequired("document")
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyAuditFlags(cmd, cfg); err != nil {
		return err
	}

	exporter, err := export.New(auditFlags.format, auditFlags.pretty)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	text, err := os.ReadFile(auditFlags.document)
	if err != nil {
		return cli.NewCommandError("audit", fmt.Errorf("failed to read document: %w", err))
	}
	docName := auditFlags.docName
	if docName == "" {
		docName = filepath.Base(auditFlags.document)
	}

	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	tracer, shutdown, err := newTracer(cfg, logger)
	if err != nil {
		return err
	}
	defer shutdown()
	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	catalog, err := rules.Load(cfg.Catalog.Path)
	if err != nil {
		return cli.NewConfigError("catalog.path", err.Error())
	}

	be, err := newBackend(cfg, catalog, logger, collector, tracer)
	if err != nil {
		return err
	}
	defer be.Close()

	opts := []audit.Option{
		audit.WithLogger(logger),
		audit.WithMetrics(collector),
		audit.WithTracer(tracer),
	}
	var bar *progressBar
	if auditFlags.progress {
		bar = &progressBar{reporter: cli.NewProgressReporter(cmd.ErrOrStderr(), "chunks")}
		opts = append(opts, audit.WithProgress(bar.update))
	}

	orch, err := audit.New(cfg, catalog, be.gateway, be.negotiator, opts...)
	if err != nil {
		return cli.NewConfigError("", err.Error())
	}

	ctx, stop := cli.SignalContext(commandContext(cmd))
	defer stop()

	req := audit.Request{DocName: docName, Text: string(text)}
	if auditFlags.precheck != "" {
		req.Checker = precheck.NewFileChecker(auditFlags.precheck)
	}

	res, err := orch.Audit(ctx, req)
	if bar != nil {
		bar.finish(err)
	}
	if err != nil {
		return cli.NewCommandError("audit", err)
	}

	if h := be.provider.GetHealth(); !be.provider.IsHealthy() {
		logger.Warn("backend marked unhealthy",
			"backend", be.provider.GetName(),
			"consecutive_failures", h.ConsecutiveFailures,
			"failed_requests", h.FailedRequests,
		)
	}

	rep := report.FromResult(res, catalog)
	if err := writeReport(commandContext(cmd), exporter, rep, cmd.OutOrStdout()); err != nil {
		return cli.NewCommandError("audit", err)
	}

	metricsFile := auditFlags.metricsFile
	if metricsFile == "" {
		metricsFile = cfg.Telemetry.Metrics.TextfilePath
	}
	if metricsFile != "" {
		if err := collector.WriteToTextfile(metricsFile); err != nil {
			logger.Warn("metrics snapshot not written", "path", metricsFile, "error", err)
		}
	}

	logger.Info("audit report written",
		"audit_id", res.AuditID,
		"violations", len(rep.Violations),
		"passes", len(rep.Passes),
		"forced_fail", res.Diagnostics.ForcedFail,
	)
	return nil
}

// applyAuditFlags copies explicitly set flags over the file configuration
// and re-validates it.
func applyAuditFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("mode") {
		cfg.Backend.OutputMode = auditFlags.mode
	}
	if flags.Changed("chunk-size") {
		cfg.Audit.ChunkSize = auditFlags.chunkSize
	}
	if flags.Changed("concurrency") {
		cfg.Audit.Concurrency = auditFlags.concurrency
	}
	if flags.Changed("timeout") {
		d, err := time.ParseDuration(auditFlags.timeout)
		if err != nil {
			return cli.NewConfigError("timeout", err.Error())
		}
		cfg.Audit.Timeout = d
	}
	if flags.Changed("skip-inference") {
		cfg.Audit.SkipInference = auditFlags.skipInference
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("", err.Error())
	}
	return nil
}

// writeReport exports rep to --output or, when unset, to stdout.
func writeReport(ctx context.Context, exporter export.Exporter, rep *report.Report, stdout io.Writer) (err error) {
	if auditFlags.output == "" {
		return exporter.Export(ctx, rep, stdout)
	}

	f, err := os.Create(auditFlags.output)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close report file: %w", cerr)
		}
	}()
	return exporter.Export(ctx, rep, f)
}

// progressBar adapts audit progress callbacks to a cli.ProgressReporter.
type progressBar struct {
	reporter cli.ProgressReporter
	once     sync.Once
	started  bool
}

func (p *progressBar) update(done, total int) {
	p.once.Do(func() {
		p.reporter.Start(int64(total))
		p.started = true
	})
	p.reporter.Update(int64(done))
}

func (p *progressBar) finish(err error) {
	if !p.started {
		return
	}
	if err != nil {
		p.reporter.Error(err)
		return
	}
	p.reporter.Finish()
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
