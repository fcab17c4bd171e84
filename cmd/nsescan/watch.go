package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/rakaar/agent-cli-stock/internal/common"
	"github.com/rakaar/agent-cli-stock/internal/scan"
)

var flagSchedule string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-scan the watchlist on a cron schedule during the session",
	Long: `Runs scans on a cron schedule. Ticks that fall outside the trading
window are skipped; artifacts are rewritten on every completed run.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&flagSchedule, "schedule", "", "Cron schedule, e.g. '*/15 9-15 * * 1-5' (overrides config)")
	watchCmd.Flags().BoolVar(&flagStdout, "stdout", false, "Print a concise message to STDOUT after each run")
	watchCmd.Flags().BoolVar(&flagNoFiles, "no-files", false, "Do not write JSON/MD artifacts")
}

func runWatch(cmd *cobra.Command, args []string) error {
	applyScanFlagOverrides(cmd)

	schedule := config.Watch.Schedule
	if flagSchedule != "" {
		schedule = flagSchedule
	}
	if err := common.ValidateWatchSchedule(schedule); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := cron.New()
	_, err := runner.AddFunc(schedule, func() {
		if !scan.SessionLive() {
			logger.Info().Msg("Trading session closed, skipping scheduled scan")
			return
		}

		rep, err := runScanOnce(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Scheduled scan failed")
			return
		}
		if err := emitReport(rep); err != nil {
			logger.Error().Err(err).Msg("Failed to emit scan report")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule scans: %w", err)
	}

	runner.Start()
	logger.Info().Str("schedule", schedule).Msg("Watch mode started - Press Ctrl+C to stop")
	fmt.Printf("Watching on schedule %q. Press Ctrl+C to stop.\n", schedule)

	<-ctx.Done()

	logger.Info().Msg("Stopping watch mode")
	<-runner.Stop().Done()
	return nil
}
