package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nao1215/threadcount/internal/config"
	"github.com/nao1215/threadcount/internal/database"
	"github.com/nao1215/threadcount/internal/model"
	"github.com/nao1215/threadcount/internal/report"
	"github.com/spf13/cobra"
)

// Export formats.
const (
	formatCSV      = "csv"
	formatJSON     = "json"
	formatMarkdown = "markdown"
	formatTable    = "table"
)

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a stored run",
		Long: `Export writes a run from the run database in one of several formats.
Without --run the latest run of --site is exported.

Formats: csv (default), json, markdown, table.

Examples:
  # Re-create the CSV of the latest Sufficient Velocity run
  threadcount export --site sv -o sv.csv

  # Export a run as JSON
  threadcount export --run 3f0c2d9e-... --format json`,
		Args: cobra.NoArgs,
		RunE: runExportCmd,
	}

	cmd.Flags().String("site", "", "Export the latest run of this site")
	cmd.Flags().String("run", "", "Export the run with this ID")
	cmd.Flags().String("format", formatCSV, "Output format: csv, json, markdown or table")
	cmd.Flags().StringP("output", "o", "", "Write to this file instead of standard output")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory of the run database")
	cmd.MarkFlagsMutuallyExclusive("site", "run")
	cmd.MarkFlagsOneRequired("site", "run")

	return cmd
}

// runExportCmd executes the export command.
func runExportCmd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	site, err := flags.GetString("site")
	if err != nil {
		return err
	}
	runID, err := flags.GetString("run")
	if err != nil {
		return err
	}
	format, err := flags.GetString("format")
	if err != nil {
		return err
	}
	output, err := flags.GetString("output")
	if err != nil {
		return err
	}
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}

	if _, err := newRunWriter(format, io.Discard); err != nil {
		return err
	}

	db, err := openExistingDB(dbDir)
	if err != nil {
		return err
	}
	defer db.Close()

	var run *model.Run
	if runID != "" {
		run, err = db.GetRun(cmd.Context(), runID)
	} else {
		run, err = db.LatestRun(cmd.Context(), site)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if output != "" {
		if dir := filepath.Dir(output); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		f, err := os.Create(output) //nolint:gosec // user-provided output path is intentional
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	w, err := newRunWriter(format, out)
	if err != nil {
		return err
	}
	if _, err := w.Write(run); err != nil {
		return fmt.Errorf("failed to export run: %w", err)
	}
	return nil
}

// newRunWriter returns the report writer for format.
func newRunWriter(format string, out io.Writer) (report.Writer, error) {
	switch format {
	case formatCSV:
		return report.NewCSVWriter(out), nil
	case formatJSON:
		return report.NewJSONWriter(out, report.WithPrettyPrint()), nil
	case formatMarkdown:
		return report.NewMarkdownWriter(out), nil
	case formatTable:
		return report.NewTableWriter(out, 20), nil
	default:
		return nil, fmt.Errorf("unknown format %q (use csv, json, markdown or table)", format)
	}
}

// openExistingDB opens the run database without creating it.
func openExistingDB(dir string) (*database.RunDB, error) {
	db, err := database.Open(dir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return nil, errors.Join(errors.New("no runs stored yet (run threadcount scrape first)"), err)
	}
	return db, nil
}
