package commands

import (
	"os"

	"uefadata-backend/lib/rawcache"
	"uefadata-backend/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	cacheCmd.AddCommand(cacheListCmd)
	rootCmd.AddCommand(cacheCmd)
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspects the raw cache.",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists every cached entry with its provenance.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		entries, err := rawcache.NewFS(cfg.CacheDir).List(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to list cache", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Source", "Year", "Stamp", "URL", "Status", "Fetched At"})
		for _, entry := range entries {
			t.AppendRow(table.Row{
				entry.Source,
				entry.Year,
				entry.Stamp,
				entry.Provenance.URL,
				entry.Provenance.Status,
				entry.Provenance.FetchedAt.Format("2006-01-02 15:04:05"),
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
