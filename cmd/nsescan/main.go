package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/rakaar/agent-cli-stock/internal/common"
)

var (
	// Command-line flags
	configFiles     []string
	flagWatchlist   string
	flagIndex       string
	flagEngine      string
	flagHeadless    bool
	flagConcurrency int
	flagTimeout     string

	// Global state
	config *common.Config
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:   "nsescan",
	Short: "Intraday NSE watchlist scanner",
	Long: `nsescan screens an NSE watchlist during the trading session. It
acquires live quote data through a rendered browser session with direct
API fallbacks, scores each symbol 0-7 on intraday signals and classifies
it BUY, WATCH or AVOID relative to the benchmark index.`,
	PersistentPreRunE: initApp,
	SilenceUsage:      true,
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&configFiles, "config", "c", nil,
		"Configuration file path (can be specified multiple times, later files override earlier ones)")
	rootCmd.PersistentFlags().StringVar(&flagWatchlist, "watchlist", "", "Path to watchlist.json (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagIndex, "index", "", "Benchmark index name (overrides watchlist)")
	rootCmd.PersistentFlags().StringVar(&flagEngine, "engine", "", "Browser engine: chrome, chromium or edge (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flagHeadless, "headless", true, "Run the browser headless")
	rootCmd.PersistentFlags().IntVar(&flagConcurrency, "concurrency", 0, "Max concurrent scrapes (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagTimeout, "timeout", "", "Per-symbol extra wait, e.g. 8s (overrides config)")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

// initApp runs the startup sequence shared by every command:
// 1. Load config (defaults -> files -> env)
// 2. Apply CLI overrides (highest priority)
// 3. Initialize logger
// 4. Print banner
func initApp(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("nsescan.toml"); err == nil {
			configFiles = append(configFiles, "nsescan.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		arbor.NewLogger().Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		return err
	}

	applyFlagOverrides(cmd)

	logger = common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	logger.Info().
		Strs("config_files", configFiles).
		Str("watchlist", config.Scan.WatchlistPath).
		Str("engine", config.Scraper.Engine).
		Int("concurrency", config.Scan.Concurrency).
		Msg("Application configuration loaded")

	return nil
}

// applyFlagOverrides applies command-line flag overrides to config.
// Flags have the highest priority.
func applyFlagOverrides(cmd *cobra.Command) {
	if flagWatchlist != "" {
		config.Scan.WatchlistPath = flagWatchlist
	}
	if flagIndex != "" {
		config.Scan.Index = flagIndex
	}
	if flagEngine != "" {
		config.Scraper.Engine = flagEngine
	}
	if cmd.Flags().Changed("headless") {
		config.Scraper.Headless = flagHeadless
	}
	if flagConcurrency > 0 {
		config.Scan.Concurrency = flagConcurrency
	}
	if flagTimeout != "" {
		config.Scraper.SymbolTimeout = flagTimeout
	}
}

func main() {
	defer common.RecoverWithCrashFile()
	common.InstallCrashHandler("")
	common.LoadVersionFromFile()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
