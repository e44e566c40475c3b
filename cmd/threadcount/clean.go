package main

import (
	"fmt"

	"github.com/nao1215/threadcount/internal/report"
	"github.com/spf13/cobra"
)

// NewCleanCmd creates the clean command.
func NewCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean <input>",
		Short: "Remove everything but valid rows from a CSV file",
		Long: `Clean copies the rows of a threadcount CSV file that look like
"name|http(s)://..." to a new file, trimmed. Blank lines, error messages and
other stray output are dropped.

Examples:
  # Write output-clean.csv
  threadcount clean sv-output-2024-03-01-12-00-00.csv

  # Overwrite an existing file
  threadcount clean sv.csv -o sv-clean.csv -f`,
		Args: cobra.ExactArgs(1),
		RunE: runCleanCmd,
	}

	cmd.Flags().StringP("output", "o", report.DefaultCleanOutput,
		"Output file path")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite the output file if it exists")

	return cmd
}

// runCleanCmd executes the clean command.
func runCleanCmd(cmd *cobra.Command, args []string) error {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	stats, err := report.CleanupFile(args[0], output, force)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s: kept %d row(s), dropped %d line(s)\n", output, stats.Kept, stats.Dropped)
	return nil
}
