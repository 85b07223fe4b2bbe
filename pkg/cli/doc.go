/*
Package cli provides command-line helpers for the anarchy command.

Output Formatting:

Command results are rendered as text, JSON, YAML or CSV:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, report); err != nil {
		return err
	}

Values implementing Table render as aligned columns in text mode and as rows
in CSV mode.

Progress Reporting:

The simulate command reports frame progress:

	progress := cli.NewProgressReporter(os.Stderr)
	progress.Start(int64(len(frames)))
	for i := range frames {
		progress.Update(int64(i + 1))
	}
	progress.Finish()

Signal Handling:

	ctx, stop := cli.SetupSignalHandler()
	defer stop()
*/
package cli
