package scan

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/rakaar/agent-cli-stock/internal/common"
	"github.com/rakaar/agent-cli-stock/internal/models"
	"github.com/rakaar/agent-cli-stock/internal/nse"
)

// Acquirer obtains the raw merged quote fragments for one symbol.
type Acquirer interface {
	Fetch(ctx context.Context, symbol string) (map[string]any, error)
}

// IndexSource obtains the benchmark index quote.
type IndexSource interface {
	Fetch(ctx context.Context, indexName string) (*models.IndexQuote, error)
}

// Orchestrator runs a full watchlist scan: one index fetch, then a
// bounded pool of per-symbol workers, then deterministic ordering of
// the results.
type Orchestrator struct {
	acquirer    Acquirer
	index       IndexSource
	logger      arbor.ILogger
	concurrency int
	now         func() time.Time
}

// NewOrchestrator creates an orchestrator. Concurrency below one is
// raised to one.
func NewOrchestrator(acquirer Acquirer, index IndexSource, logger arbor.ILogger, concurrency int) *Orchestrator {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = arbor.NewLogger()
	}
	return &Orchestrator{
		acquirer:    acquirer,
		index:       index,
		logger:      logger,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// Run scans the watchlist and returns the aggregated report. An index
// fetch failure is fatal: every result would carry a wrong
// relative-strength baseline. A single symbol failure is not: that
// symbol degrades to an empty snapshot with a fetch_error flag.
func (o *Orchestrator) Run(ctx context.Context, watchlist *models.Watchlist) (*models.ScanReport, error) {
	symbols := models.DedupSymbols(watchlist.Symbols)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("watchlist has no symbols")
	}

	indexName := watchlist.Index
	if indexName == "" {
		indexName = models.DefaultIndex
	}

	startedAt := o.now()
	runID := common.NewScanID()

	o.logger.Info().
		Str("run_id", runID).
		Str("index", indexName).
		Int("symbols", len(symbols)).
		Int("concurrency", o.concurrency).
		Msg("Starting watchlist scan")

	indexQuote, err := o.index.Fetch(ctx, indexName)
	if err != nil {
		return nil, fmt.Errorf("index fetch failed for %s: %w", indexName, err)
	}
	indexPct := indexQuote.PChange

	// Liveness is sampled once so every result in the run agrees.
	sessionLive := SessionLiveAt(o.now())

	results := make([]models.ScanResult, len(symbols))
	jobs := make(chan int)

	workers := o.concurrency
	if workers > len(symbols) {
		workers = len(symbols)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for i := range jobs {
				results[i] = o.scanSymbol(ctx, workerID, symbols[i], indexPct, sessionLive)
			}
		}(w)
	}

	for i := range symbols {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	sortResults(results)

	finishedAt := o.now()
	o.logger.Info().
		Str("run_id", runID).
		Str("duration", finishedAt.Sub(startedAt).Round(time.Millisecond).String()).
		Msg("Watchlist scan complete")

	return &models.ScanReport{
		RunID:          runID,
		IndexName:      indexQuote.Index,
		IndexPctChange: indexPct,
		SessionLive:    sessionLive,
		StartedAt:      startedAt,
		FinishedAt:     finishedAt,
		Results:        results,
	}, nil
}

// scanSymbol runs the acquire-normalize-score-classify pipeline for one
// symbol. It never lets a failure escape: errors and panics both
// degrade to a reportable result for the symbol that failed.
func (o *Orchestrator) scanSymbol(ctx context.Context, workerID int, symbol string, indexPct float64, sessionLive bool) (result models.ScanResult) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().
				Int("worker_id", workerID).
				Str("symbol", symbol).
				Msg(fmt.Sprintf("Symbol pipeline panicked: %v", r))
			result = o.degradedResult(symbol, indexPct, sessionLive, fmt.Sprintf("panic: %v", r))
		}
	}()

	o.logger.Debug().
		Int("worker_id", workerID).
		Str("symbol", symbol).
		Msg("Scanning symbol")

	fragments, err := o.acquirer.Fetch(ctx, symbol)
	if err != nil {
		o.logger.Warn().
			Err(err).
			Str("symbol", symbol).
			Msg("Quote acquisition failed")
		return o.degradedResult(symbol, indexPct, sessionLive, err.Error())
	}

	snap := nse.Normalize(symbol, fragments)
	score, components, riskFlags := Score(snap, &indexPct)
	view := Classify(score, riskFlags, sessionLive)

	return models.ScanResult{
		Symbol:         symbol,
		Snapshot:       snap,
		IndexPctChange: indexPct,
		Score:          score,
		RS:             components.RS,
		Components:     components,
		View:           view,
		Rationale:      BuildRationale(score, components),
		RiskFlags:      riskFlags,
		SessionLive:    sessionLive,
	}
}

// degradedResult stands in for a symbol whose acquisition failed. Off
// session the symbol is merely unobserved, so it parks at WATCH; during
// the session a symbol that cannot be read is not tradeable.
func (o *Orchestrator) degradedResult(symbol string, indexPct float64, sessionLive bool, reason string) models.ScanResult {
	view := models.ViewWatch
	if sessionLive {
		view = models.ViewAvoid
	}

	return models.ScanResult{
		Symbol:         symbol,
		Snapshot:       models.EmptySnapshot(symbol, common.NowIST().Format(time.RFC3339)),
		IndexPctChange: indexPct,
		Score:          0,
		Components: models.ScoreComponents{
			LiquidityNote: liquidityNote,
		},
		View:        view,
		Rationale:   "fetch failed: " + reason,
		RiskFlags:   []string{models.RiskFetchError},
		SessionLive: sessionLive,
	}
}

// sortResults orders a run's results for presentation: BUY before
// WATCH before AVOID, higher scores first within a view, symbols
// alphabetical within a score.
func sortResults(results []models.ScanResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := &results[i], &results[j]
		if models.ViewOrder[a.View] != models.ViewOrder[b.View] {
			return models.ViewOrder[a.View] < models.ViewOrder[b.View]
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Symbol < b.Symbol
	})
}
