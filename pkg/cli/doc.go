/*
Package cli provides command-line helpers used by the medqc command.

Output Formatting:

Short command results (probe reports, catalog listings) render as text or
JSON; audit reports go through pkg/report/export instead:

	formatter, err := cli.NewFormatter(cli.FormatJSON)
	if err != nil {
		return err
	}
	return formatter.FormatTo(os.Stdout, result)

Progress Reporting:

	progress := cli.NewProgressReporter(os.Stderr, "chunks")
	progress.Start(total)
	progress.Update(done)
	progress.Finish()

Signal Handling:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

Errors returned by commands map to exit codes through ExitCode: a
ConfigError exits with 2, anything else with 1.
*/
package cli
