package commands

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"uefadata-backend/lib/rawcache"
	"uefadata-backend/lib/scrapers/kassiesa"
	"uefadata-backend/lib/scrapers/uefaapi"
	"uefadata-backend/lib/serviceutil"
	"uefadata-backend/services/pipeline"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var runRefreshLatest *bool

func init() {
	runRefreshLatest = runCmd.Flags().Bool("refresh-latest", false,
		"Refetch the newest configured year even when it is cached.")
	rootCmd.AddCommand(runCmd)
}

func newPipeline(cfg Config, refreshLatest bool) *pipeline.Pipeline {
	return pipeline.New(pipeline.Options{
		Cache:         rawcache.NewFS(cfg.CacheDir),
		Kassiesa:      kassiesa.NewClient(kassiesa.ClientOptions{BaseURL: cfg.KassiesaBaseURL}),
		UefaAPI:       uefaapi.NewClient(uefaapi.ClientOptions{BaseURL: cfg.UefaAPIBaseURL}),
		Aliases:       cfg.Aliases,
		FromYear:      cfg.FromYear,
		ToYear:        cfg.ToYear,
		RefreshLatest: refreshLatest,
	})
}

func renderStatuses(statuses []pipeline.SourceStatus) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Source", "Year", "Result"})

	for _, status := range statuses {
		result := "fetched"
		switch {
		case status.Err != nil:
			result = fmt.Sprintf("failed: %v", status.Err)
		case status.FromCache:
			result = "cached"
		}
		t.AppendRow(table.Row{status.Source, status.Year, result})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}

var runCmd = &cobra.Command{
	Use:   "run [--refresh-latest]",
	Short: "Runs the full pipeline: fetch, normalize, build, write parquet.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		p := newPipeline(cfg, *runRefreshLatest)

		t1 := time.Now()
		summary, err := p.Run(cmd.Context(), cfg.OutputDir)
		if summary != nil {
			renderStatuses(summary.Statuses)
		}
		if err != nil {
			serviceutil.Fatal("pipeline run failed", err)
		}

		slog.Info("run complete",
			"seconds", time.Since(t1).Seconds(),
			"matches", summary.Matches,
			"country_ranks", summary.CountryRanks,
			"club_seasons", summary.ClubSeasons,
			"club_coefficients", summary.ClubCoeffs,
			"country_coefficients", summary.CountryCoefs,
		)
		for _, file := range summary.Files {
			fmt.Println(file)
		}
	},
}
