package main

import (
	"fmt"

	"github.com/nao1215/threadcount/internal/config"
	"github.com/nao1215/threadcount/internal/report"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored runs",
		Long: `History lists the runs stored in the run database, newest first.

Examples:
  # All runs
  threadcount history

  # Runs of one site
  threadcount history --site qq

  # Delete a run
  threadcount history --delete 3f0c2d9e-...`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().String("site", "", "Only list runs of this site")
	cmd.Flags().String("delete", "", "Delete the run with this ID")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "Directory of the run database")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	site, err := cmd.Flags().GetString("site")
	if err != nil {
		return err
	}
	deleteID, err := cmd.Flags().GetString("delete")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	db, err := openExistingDB(dbDir)
	if err != nil {
		return err
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	if deleteID != "" {
		if err := db.DeleteRun(cmd.Context(), deleteID); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted run %s\n", deleteID)
		return nil
	}

	runs, err := db.ListRuns(cmd.Context(), site)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs stored.")
		return nil
	}
	_, err = report.WriteHistory(out, runs)
	return err
}
