package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rakaar/agent-cli-stock/internal/models"
	"github.com/rakaar/agent-cli-stock/internal/nse"
	"github.com/rakaar/agent-cli-stock/internal/report"
	"github.com/rakaar/agent-cli-stock/internal/scan"
)

var (
	flagStdout    bool
	flagNoFiles   bool
	flagTopN      int
	flagOnlyViews []string
	flagJSONOut   string
	flagMDOut     string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the watchlist once and compute intraday views",
	Long: `Runs one full watchlist scan: fetches the benchmark index, scrapes
every symbol concurrently, scores them and writes the JSON and Markdown
artifacts. With --stdout a short digest is printed between markers.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&flagStdout, "stdout", false, "Print a concise message to STDOUT between markers")
	scanCmd.Flags().BoolVar(&flagNoFiles, "no-files", false, "Do not write JSON/MD artifacts")
	scanCmd.Flags().IntVar(&flagTopN, "topn", 0, "Top-N per group in the STDOUT message (overrides config)")
	scanCmd.Flags().StringSliceVar(&flagOnlyViews, "only-views", nil, "Views to include in the STDOUT message (overrides config)")
	scanCmd.Flags().StringVar(&flagJSONOut, "out", "", "JSON output path (overrides config)")
	scanCmd.Flags().StringVar(&flagMDOut, "md-out", "", "Markdown output path (overrides config)")
}

func runScan(cmd *cobra.Command, args []string) error {
	applyScanFlagOverrides(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := runScanOnce(ctx)
	if err != nil {
		return err
	}
	return emitReport(rep)
}

func applyScanFlagOverrides(cmd *cobra.Command) {
	if cmd.Flags().Changed("stdout") {
		config.Output.Stdout = flagStdout
	}
	if cmd.Flags().Changed("no-files") {
		config.Output.NoFiles = flagNoFiles
	}
	if flagTopN > 0 {
		config.Scan.TopN = flagTopN
	}
	if len(flagOnlyViews) > 0 {
		config.Scan.OnlyViews = flagOnlyViews
	}
	if flagJSONOut != "" {
		config.Output.JSONPath = flagJSONOut
	}
	if flagMDOut != "" {
		config.Output.MarkdownPath = flagMDOut
	}
}

// runScanOnce wires the acquisition stack and executes one full run.
func runScanOnce(ctx context.Context) (*models.ScanReport, error) {
	watchlist, err := models.LoadWatchlist(config.Scan.WatchlistPath)
	if err != nil {
		return nil, err
	}
	if config.Scan.Index != "" {
		watchlist.Index = config.Scan.Index
	}

	client := nse.NewClient(
		nse.WithLogger(logger),
		nse.WithUserAgent(config.Scraper.UserAgent),
		nse.WithRateLimit(config.Scraper.RateLimit),
	)

	scraperConfig := buildScraperConfig()
	scraper := nse.NewScraper(scraperConfig, client, logger)
	indexFetcher := nse.NewIndexFetcher(client, scraperConfig, logger)

	orchestrator := scan.NewOrchestrator(scraper, indexFetcher, logger, config.Scan.Concurrency)
	return orchestrator.Run(ctx, watchlist)
}

func buildScraperConfig() nse.ScraperConfig {
	cfg := nse.DefaultScraperConfig()
	cfg.Engine = nse.Engine(config.Scraper.Engine)
	cfg.Headless = config.Scraper.Headless
	if config.Scraper.UserAgent != "" {
		cfg.UserAgent = config.Scraper.UserAgent
	}
	if timeout, err := time.ParseDuration(config.Scraper.SymbolTimeout); err == nil && timeout > 0 {
		cfg.SymbolTimeout = timeout
	}
	return cfg
}

// emitReport writes the run's artifacts and optional STDOUT digest.
func emitReport(rep *models.ScanReport) error {
	if !config.Output.NoFiles {
		data, err := report.SlimJSON(rep)
		if err != nil {
			return fmt.Errorf("failed to render JSON artifact: %w", err)
		}
		if err := os.WriteFile(config.Output.JSONPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", config.Output.JSONPath, err)
		}

		md := report.Markdown(rep)
		if err := os.WriteFile(config.Output.MarkdownPath, []byte(md), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", config.Output.MarkdownPath, err)
		}

		fmt.Printf("Wrote %d items to %s and %s\n", len(rep.Results), config.Output.JSONPath, config.Output.MarkdownPath)
	}

	if config.Output.Stdout {
		msg := report.Message(rep, config.Scan.TopN, config.Scan.OnlyViews)
		fmt.Println("\n--- BEGIN AGENT MESSAGE ---")
		fmt.Println(msg)
		fmt.Println("--- END AGENT MESSAGE ---")
	}

	return nil
}
