package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/nao1215/threadcount/internal/log"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for threadcount.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "threadcount",
		Short: "Collect word counts of forum story threads",
		Long: `threadcount reads the index threads of fan fiction forums, visits the
threadmarks page of every listed story and writes the word counts to a
pipe-separated CSV file.

Built-in sites: sv (Sufficient Velocity), qq (Questionable Questing),
sb (SpaceBattles) and ao3 (Archive of Our Own, via an external scraper).
More sites can be defined in a .threadcount configuration file.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON lines")

	cmd.AddCommand(NewScrapeCmd())
	cmd.AddCommand(NewCleanCmd())
	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewSitesCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getBoolFlag retrieves a bool flag from the command or the root command.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// newLogger creates the logger selected by the global flags.
func newLogger(cmd *cobra.Command) *slog.Logger {
	return log.NewLogger(cmd.ErrOrStderr(), getBoolFlag(cmd, "verbose"), getBoolFlag(cmd, "log-json"))
}
