/*
Package cli provides command-line utilities shared by the triton command.

Output Formatting:

Commands that print structured results (rule listings, validation reports)
support text and JSON output:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, result); err != nil {
		return err
	}

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, signals, stop := cli.ShutdownContext(context.Background())
	defer stop()
	...
	sig := <-signals
*/
package cli
