package main

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewSitesCmd creates the sites command.
func NewSitesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sites",
		Short: "List the configured sites",
		Long: `Sites lists the built-in sites and the sites defined in the configuration
file, with the settings that apply after merging both.`,
		Args: cobra.NoArgs,
		RunE: runSitesCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .threadcount in current or home directory)")

	return cmd
}

// runSitesCmd executes the sites command.
func runSitesCmd(cmd *cobra.Command, _ []string) error {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	file, err := loadSiteConfigs(path)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Site", "Title", "Index Pages", "Extractor", "Threadmarks"})
	for _, name := range file.SiteNames() {
		site := file.GetSiteConfig(name)
		extractor := site.Extractor
		pages := strconv.Itoa(len(site.IndexPages))
		if site.IsExternal() {
			extractor = "external: " + site.Command[0]
			pages = "-"
		}
		t.AppendRow(table.Row{name, site.Title, pages, extractor, site.ThreadmarksSuffix})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}
