package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"medqc-hq/medqc/pkg/cli"
	"medqc-hq/medqc/pkg/outputmode"
)

var probeFlags struct {
	format string
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Detect the structured-output mode of the backend",
	Long: `Send the negotiation smoke tests to the configured backend and print the
structured-output mode audits would use: schema, grammar or plain_json.

The backend is first checked for reachability. A configured
backend.output_mode is reported as an override without contacting the backend.

Examples:
  medqc probe
  medqc probe --format json`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)

	probeCmd.Flags().StringVar(&probeFlags.format, "format", "text", "output format: text, json")
}

// probeResult is the printable form of an outputmode.ProbeReport.
type probeResult struct {
	Backend      string `json:"backend"`
	Model        string `json:"model"`
	Reachable    bool   `json:"reachable"`
	HealthError  string `json:"health_error,omitempty"`
	Mode         string `json:"mode"`
	Override     bool   `json:"override"`
	SchemaError  string `json:"schema_error,omitempty"`
	GrammarError string `json:"grammar_error,omitempty"`
	ElapsedMS    int64  `json:"elapsed_ms"`
}

func newProbeResult(backend, model string, rep outputmode.ProbeReport) probeResult {
	r := probeResult{
		Backend:   backend,
		Model:     model,
		Mode:      rep.Selected.String(),
		Override:  rep.Override,
		ElapsedMS: rep.Elapsed.Milliseconds(),
	}
	if rep.SchemaErr != nil {
		r.SchemaError = rep.SchemaErr.Error()
	}
	if rep.GrammarErr != nil {
		r.GrammarError = rep.GrammarErr.Error()
	}
	return r
}

func (r probeResult) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Backend: %s (%s)\n", r.Backend, r.Model)
	if r.HealthError != "" {
		fmt.Fprintf(&b, "✗ Backend unreachable: %s\n", r.HealthError)
		return b.String()
	}
	if r.Override {
		fmt.Fprintf(&b, "✓ Mode: %s (configured override)\n", r.Mode)
		return b.String()
	}
	fmt.Fprintf(&b, "✓ Mode: %s\n", r.Mode)
	if r.SchemaError != "" {
		fmt.Fprintf(&b, "  schema: %s\n", r.SchemaError)
	}
	if r.GrammarError != "" {
		fmt.Fprintf(&b, "  grammar: %s\n", r.GrammarError)
	}
	fmt.Fprintf(&b, "  elapsed: %dms\n", r.ElapsedMS)
	return b.String()
}

func runProbe(cmd *cobra.Command, args []string) error {
	formatter, err := cli.NewFormatter(cli.OutputFormat(probeFlags.format))
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
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

	be, err := newBackend(cfg, nil, logger, nil, tracer)
	if err != nil {
		return err
	}
	defer be.Close()

	ctx, stop := cli.SignalContext(commandContext(cmd))
	defer stop()

	name := be.provider.GetName()
	if override, _ := outputmode.ParseMode(cfg.Backend.OutputMode); override == outputmode.ModeUnprobed {
		if err := healthCheck(ctx, be, cfg.Backend.ProbeTimeout); err != nil {
			res := probeResult{Backend: name, Model: cfg.Backend.Model, HealthError: err.Error()}
			if ferr := formatter.FormatTo(cmd.OutOrStdout(), res); ferr != nil {
				return ferr
			}
			return cli.NewCommandError("probe", err)
		}
	}

	rep := be.negotiator.Probe(ctx)
	if err := ctx.Err(); err != nil {
		return cli.NewCommandError("probe", err)
	}
	res := newProbeResult(name, cfg.Backend.Model, rep)
	res.Reachable = !rep.Override
	return formatter.FormatTo(cmd.OutOrStdout(), res)
}

func healthCheck(ctx context.Context, be *backend, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return be.provider.HealthCheck(ctx)
}
