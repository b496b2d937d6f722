package commands

import (
	"context"
	"fmt"
	"os"

	"uefadata-backend/lib/configutil"
	"uefadata-backend/services/normalize"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "uefa-pipeline",
	Short: "uefa-pipeline scrapes UEFA club and country data into parquet files for the dashboard.",
}

var configFile *string

func init() {
	configFile = rootCmd.PersistentFlags().String("config", "config.json5", "The pipeline config file.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Config drives a run: the year range, where the cache and the output
// live, and the alias table. Base urls are overridable for testing
// against a local server.
type Config struct {
	OutputDir       string            `json:"output_dir"`
	CacheDir        string            `json:"cache_dir"`
	FromYear        int               `json:"from_year"`
	ToYear          int               `json:"to_year"`
	KassiesaBaseURL string            `json:"kassiesa_base_url"`
	UefaAPIBaseURL  string            `json:"uefa_api_base_url"`
	Aliases         normalize.Aliases `json:"aliases"`
}

func loadConfig() (Config, error) {
	cfg, err := configutil.Load[Config](*configFile)
	if err != nil {
		return Config{}, err
	}
	err = configutil.ApplyDefaults(&cfg, Config{
		OutputDir: "output",
		CacheDir:  "cache",
	})
	if err != nil {
		return Config{}, err
	}
	if cfg.FromYear == 0 || cfg.ToYear == 0 || cfg.FromYear > cfg.ToYear {
		return Config{}, fmt.Errorf("invalid year range %d..%d", cfg.FromYear, cfg.ToYear)
	}
	return cfg, nil
}
