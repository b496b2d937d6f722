package commands

import (
	"uefadata-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

var fetchRefreshLatest *bool

func init() {
	fetchRefreshLatest = fetchCmd.Flags().Bool("refresh-latest", false,
		"Refetch the newest configured year even when it is cached.")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [--refresh-latest]",
	Short: "Populates the raw cache without building any output.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		p := newPipeline(cfg, *fetchRefreshLatest)
		renderStatuses(p.Fetch(cmd.Context()))
	},
}
