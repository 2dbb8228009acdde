package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"medqc-hq/medqc/pkg/cli"
)

var (
	// Global flags
	cfgFile  string
	logLevel string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "medqc",
	Short: "medqc - clinical document audit against a rule catalog",
	Long: `medqc checks a clinical document against a closed catalog of compliance
rules using a local LLM backend (Ollama or any OpenAI-compatible server).

Every rule in the catalog receives exactly one PASS or FAIL verdict per audit.
Rules the backend never confirms are failed explicitly instead of silently
passing, and malformed or truncated backend output is repaired where possible.

Configuration is read from the file given by --config and from MEDQC_*
environment variables (for example MEDQC_BACKEND_MODEL).`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return cli.ExitCode(err)
	}
	return cli.ExitOK
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults and MEDQC_* variables when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
