package scan

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/rakaar/agent-cli-stock/internal/common"
	"github.com/rakaar/agent-cli-stock/internal/models"
)

type fakeAcquirer struct {
	fragments map[string]map[string]any
	fail      map[string]bool
	panics    map[string]bool
}

func (f *fakeAcquirer) Fetch(_ context.Context, symbol string) (map[string]any, error) {
	if f.panics[symbol] {
		panic("normalizer blew up")
	}
	if f.fail[symbol] {
		return nil, fmt.Errorf("blocked by source")
	}
	if frags, ok := f.fragments[symbol]; ok {
		return frags, nil
	}
	return map[string]any{
		"priceInfo": map[string]any{
			"lastPrice":     1000.0,
			"previousClose": 990.0,
			"pChange":       1.01,
			"vwap":          995.0,
		},
	}, nil
}

type fakeIndexSource struct {
	quote *models.IndexQuote
	err   error
}

func (f *fakeIndexSource) Fetch(_ context.Context, indexName string) (*models.IndexQuote, error) {
	if f.err != nil {
		return nil, f.err
	}
	q := *f.quote
	if q.Index == "" {
		q.Index = indexName
	}
	return &q, nil
}

func testOrchestrator(acq Acquirer, idx IndexSource, concurrency int) *Orchestrator {
	o := NewOrchestrator(acq, idx, arbor.NewLogger(), concurrency)
	// Pin the clock inside the trading window so liveness is stable.
	o.now = func() time.Time {
		return time.Date(2025, 1, 15, 11, 0, 0, 0, common.ISTLocation())
	}
	return o
}

func niftyUp() *fakeIndexSource {
	return &fakeIndexSource{quote: &models.IndexQuote{Index: "NIFTY 50", Last: 24500.0, PChange: 0.8}}
}

func TestOrchestrator_AllSymbolsSucceed(t *testing.T) {
	o := testOrchestrator(&fakeAcquirer{}, niftyUp(), 4)

	report, err := o.Run(context.Background(), &models.Watchlist{
		Symbols: []string{"TCS", "INFY", "RELIANCE"},
	})
	require.NoError(t, err)

	assert.Equal(t, "NIFTY 50", report.IndexName)
	assert.Equal(t, 0.8, report.IndexPctChange)
	assert.True(t, report.SessionLive)
	assert.NotEmpty(t, report.RunID)
	require.Len(t, report.Results, 3)
	for _, r := range report.Results {
		assert.False(t, r.HasRiskFlag(models.RiskFetchError))
		assert.NotNil(t, r.Snapshot)
		assert.Equal(t, 0.8, r.IndexPctChange)
	}
}

func TestOrchestrator_OneFailureDegradesOnlyThatSymbol(t *testing.T) {
	acq := &fakeAcquirer{fail: map[string]bool{"INFY": true}}
	o := testOrchestrator(acq, niftyUp(), 2)

	report, err := o.Run(context.Background(), &models.Watchlist{
		Symbols: []string{"TCS", "INFY", "RELIANCE"},
	})
	require.NoError(t, err)
	require.Len(t, report.Results, 3)

	var degraded []models.ScanResult
	for _, r := range report.Results {
		if r.HasRiskFlag(models.RiskFetchError) {
			degraded = append(degraded, r)
		}
	}
	require.Len(t, degraded, 1)
	assert.Equal(t, "INFY", degraded[0].Symbol)
	assert.Equal(t, models.ViewAvoid, degraded[0].View)
	assert.Equal(t, 0, degraded[0].Score)
	assert.Contains(t, degraded[0].Rationale, "blocked by source")
	require.NotNil(t, degraded[0].Snapshot)
	assert.Len(t, degraded[0].Snapshot.Orderbook.Bids, models.DepthLevels)
}

func TestOrchestrator_PanicIsContained(t *testing.T) {
	acq := &fakeAcquirer{panics: map[string]bool{"TCS": true}}
	o := testOrchestrator(acq, niftyUp(), 1)

	report, err := o.Run(context.Background(), &models.Watchlist{
		Symbols: []string{"TCS", "INFY"},
	})
	require.NoError(t, err)
	require.Len(t, report.Results, 2)

	for _, r := range report.Results {
		if r.Symbol == "TCS" {
			assert.True(t, r.HasRiskFlag(models.RiskFetchError))
			assert.Contains(t, r.Rationale, "panic")
		} else {
			assert.False(t, r.HasRiskFlag(models.RiskFetchError))
		}
	}
}

func TestOrchestrator_IndexFailureIsFatal(t *testing.T) {
	o := testOrchestrator(&fakeAcquirer{}, &fakeIndexSource{err: fmt.Errorf("upstream 403")}, 2)

	_, err := o.Run(context.Background(), &models.Watchlist{Symbols: []string{"TCS"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index fetch failed")
}

func TestOrchestrator_EmptyWatchlistIsAnError(t *testing.T) {
	o := testOrchestrator(&fakeAcquirer{}, niftyUp(), 2)

	_, err := o.Run(context.Background(), &models.Watchlist{Symbols: nil})
	require.Error(t, err)
}

func TestOrchestrator_DedupsSymbols(t *testing.T) {
	o := testOrchestrator(&fakeAcquirer{}, niftyUp(), 2)

	report, err := o.Run(context.Background(), &models.Watchlist{
		Symbols: []string{"tcs", "TCS", "Infy", "INFY"},
	})
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
}

func TestOrchestrator_DefaultIndexApplied(t *testing.T) {
	idx := &fakeIndexSource{quote: &models.IndexQuote{PChange: 0.2}}
	o := testOrchestrator(&fakeAcquirer{}, idx, 1)

	report, err := o.Run(context.Background(), &models.Watchlist{Symbols: []string{"TCS"}})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultIndex, report.IndexName)
}

func TestOrchestrator_OffSessionEverythingWatches(t *testing.T) {
	acq := &fakeAcquirer{fail: map[string]bool{"INFY": true}}
	o := testOrchestrator(acq, niftyUp(), 2)
	o.now = func() time.Time {
		return time.Date(2025, 1, 15, 20, 0, 0, 0, common.ISTLocation())
	}

	report, err := o.Run(context.Background(), &models.Watchlist{
		Symbols: []string{"TCS", "INFY"},
	})
	require.NoError(t, err)
	assert.False(t, report.SessionLive)
	for _, r := range report.Results {
		assert.Equal(t, models.ViewWatch, r.View)
	}
}

// strongCandidateFragments describe a symbol trading well above VWAP
// with momentum, relative strength, a buy-heavy book and a print at the
// day high, far from its upper circuit.
func strongCandidateFragments() map[string]any {
	return map[string]any{
		"priceInfo": map[string]any{
			"lastPrice":       2530.0,
			"change":          52.0,
			"pChange":         2.1,
			"open":            2480.0,
			"previousClose":   2478.0,
			"vwap":            2514.9,
			"intraDayHighLow": map[string]any{"max": 2532.0, "min": 2476.0},
			"upperCP":         "2725.80",
			"lowerCP":         "2230.20",
		},
		"marketDeptOrderBook": map[string]any{
			"totalBuyQuantity":  180000.0,
			"totalSellQuantity": 100000.0,
			"bid":               []any{map[string]any{"price": 2529.9, "quantity": 50.0}},
			"ask":               []any{map[string]any{"price": 2530.1, "quantity": 40.0}},
		},
	}
}

func TestOrchestrator_EndToEndStrongCandidateIsBuy(t *testing.T) {
	acq := &fakeAcquirer{fragments: map[string]map[string]any{
		"RELIANCE": strongCandidateFragments(),
	}}
	o := testOrchestrator(acq, niftyUp(), 2)

	report, err := o.Run(context.Background(), &models.Watchlist{
		Symbols: []string{"RELIANCE", "TCS"},
	})
	require.NoError(t, err)
	require.Len(t, report.Results, 2)

	// BUY sorts first, so the strong candidate leads the report.
	r := report.Results[0]
	assert.Equal(t, "RELIANCE", r.Symbol)
	assert.Equal(t, 6, r.Score)
	assert.Equal(t, models.ViewBuy, r.View)
	assert.Empty(t, r.RiskFlags)

	assert.InDelta(t, 0.600, r.Components.VWAPBias, 1e-9)
	assert.InDelta(t, 2.1, r.Components.MomentumPct, 1e-9)
	require.NotNil(t, r.RS)
	assert.InDelta(t, 1.3, *r.RS, 1e-9)
	require.NotNil(t, r.Components.OIR)
	assert.InDelta(t, 1.8, *r.Components.OIR, 1e-9)
	assert.True(t, r.Components.NearHigh)
	assert.False(t, r.Components.LiquidityPoint)
	assert.True(t, r.Components.RiskOK)

	assert.Contains(t, r.Rationale, "Score 6/7")

	assert.Equal(t, "TCS", report.Results[1].Symbol)
}

func TestSortResults_ViewThenScoreThenSymbol(t *testing.T) {
	results := []models.ScanResult{
		{Symbol: "CCC", View: models.ViewAvoid, Score: 1},
		{Symbol: "BBB", View: models.ViewBuy, Score: 6},
		{Symbol: "AAA", View: models.ViewWatch, Score: 4},
		{Symbol: "DDD", View: models.ViewWatch, Score: 5},
		{Symbol: "EEE", View: models.ViewWatch, Score: 4},
	}

	sortResults(results)

	got := make([]string, len(results))
	for i, r := range results {
		got[i] = r.Symbol
	}
	assert.Equal(t, []string{"BBB", "DDD", "AAA", "EEE", "CCC"}, got)
}
