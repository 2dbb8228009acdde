package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"medqc-hq/medqc/pkg/cli"
	"medqc-hq/medqc/pkg/rules"
	"medqc-hq/medqc/pkg/telemetry/logging"
)

var catalogFlags struct {
	path   string
	format string
	watch  bool
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the rule catalog",
	Long: `Validate and list the rule catalog.

The catalog path comes from --path, or from catalog.path of the configuration.`,
}

var catalogLintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate the rule catalog",
	Long: `Load the rule catalog and report the first error found: unreadable
files, malformed YAML, missing or duplicate ids, unknown severities.

With --watch the catalog is re-validated after every change until interrupted.

Examples:
  medqc catalog lint --path rules/
  medqc catalog lint --watch`,
	RunE: runCatalogLint,
}

var catalogIDsCmd = &cobra.Command{
	Use:   "ids",
	Short: "List the rules of the catalog",
	Long: `Print every rule id in catalog order with its default severity and title.

Examples:
  medqc catalog ids
  medqc catalog ids --format json`,
	RunE: runCatalogIDs,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogLintCmd, catalogIDsCmd)

	catalogCmd.PersistentFlags().StringVar(&catalogFlags.path, "path", "", "catalog file or directory (default: catalog.path)")
	catalogCmd.PersistentFlags().StringVar(&catalogFlags.format, "format", "text", "output format: text, json")
	catalogLintCmd.Flags().BoolVar(&catalogFlags.watch, "watch", false, "re-validate on every change")
}

// catalogPath resolves --path, falling back to the configuration.
func catalogPath() (string, error) {
	if catalogFlags.path != "" {
		return catalogFlags.path, nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	return cfg.Catalog.Path, nil
}

// lintResult is the outcome of one catalog validation.
type lintResult struct {
	Path  string `json:"path"`
	Valid bool   `json:"valid"`
	Rules int    `json:"rules"`
	Error string `json:"error,omitempty"`
}

func newLintResult(path string, c *rules.Catalog, err error) lintResult {
	if err != nil {
		return lintResult{Path: path, Error: err.Error()}
	}
	return lintResult{Path: path, Valid: true, Rules: c.Len()}
}

func (r lintResult) Text() string {
	if !r.Valid {
		return fmt.Sprintf("✗ %s: %s", r.Path, r.Error)
	}
	return fmt.Sprintf("✓ %s: %d rules valid", r.Path, r.Rules)
}

func runCatalogLint(cmd *cobra.Command, args []string) error {
	formatter, err := cli.NewFormatter(cli.OutputFormat(catalogFlags.format))
	if err != nil {
		return err
	}
	path, err := catalogPath()
	if err != nil {
		return err
	}

	c, loadErr := rules.Load(path)
	result := newLintResult(path, c, loadErr)
	if err := formatter.FormatTo(cmd.OutOrStdout(), result); err != nil {
		return err
	}
	if !catalogFlags.watch {
		if !result.Valid {
			return cli.NewCommandError("catalog lint", loadErr)
		}
		return nil
	}
	return watchCatalog(cmd, path, formatter)
}

// watchCatalog re-lints path after every settled burst of changes until
// the process is interrupted.
func watchCatalog(cmd *cobra.Command, path string, formatter cli.Formatter) error {
	logger, err := logging.New(logging.Config{Level: "info", Format: "text", Writer: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	w, err := rules.NewWatcher(path, rules.DefaultDebounce, logger)
	if err != nil {
		return cli.NewCommandError("catalog lint", err)
	}

	ctx, stop := cli.SignalContext(commandContext(cmd))
	defer stop()

	out := cmd.OutOrStdout()
	err = w.Watch(ctx, func(c *rules.Catalog, err error) {
		if ferr := formatter.FormatTo(out, newLintResult(path, c, err)); ferr != nil {
			logger.Error("failed to print lint result", "error", ferr)
		}
	})
	if err != nil {
		return cli.NewCommandError("catalog lint", err)
	}
	return nil
}

// ruleLine is one row of `catalog ids`.
type ruleLine struct {
	ID       string `json:"id"`
	Severity string `json:"severity"`
	Title    string `json:"title,omitempty"`
}

type ruleList []ruleLine

func (l ruleList) Text() string {
	var b strings.Builder
	for _, r := range l {
		fmt.Fprintf(&b, "%s\t%s\t%s\n", r.ID, r.Severity, r.Title)
	}
	return b.String()
}

func runCatalogIDs(cmd *cobra.Command, args []string) error {
	formatter, err := cli.NewFormatter(cli.OutputFormat(catalogFlags.format))
	if err != nil {
		return err
	}
	path, err := catalogPath()
	if err != nil {
		return err
	}
	c, err := rules.Load(path)
	if err != nil {
		return cli.NewCommandError("catalog ids", err)
	}
	return printRules(cmd.OutOrStdout(), formatter, c)
}

func printRules(w io.Writer, formatter cli.Formatter, c *rules.Catalog) error {
	list := make(ruleList, 0, c.Len())
	for _, id := range c.IDs() {
		spec, _ := c.Spec(id)
		list = append(list, ruleLine{ID: id, Severity: string(spec.DefaultSeverity), Title: spec.Title})
	}
	return formatter.FormatTo(w, list)
}
