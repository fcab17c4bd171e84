package report

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rakaar/agent-cli-stock/internal/common"
	"github.com/rakaar/agent-cli-stock/internal/models"
)

func ptr(v float64) *float64 { return &v }

func sampleReport() *models.ScanReport {
	buy := models.EmptySnapshot("RELIANCE", "2025-01-15T11:00:00+05:30")
	buy.Quote = models.Quote{LTP: 2500.0, AvgPrice: 2480.0, ChangePct: 2.5}
	buy.Activity.VolumeShares = 4250000
	buy.Derived.NearDayExtremes.NearHigh = true
	buy.Derived.CircuitProximityPct.Upper = ptr(9.2)

	watch := models.EmptySnapshot("TCS", "2025-01-15T11:00:00+05:30")
	watch.Quote = models.Quote{LTP: 3500.0, AvgPrice: 3510.0, ChangePct: -0.4}

	avoid := models.EmptySnapshot("GHOST", "2025-01-15T11:00:00+05:30")

	return &models.ScanReport{
		RunID:          "scan_test",
		IndexName:      "NIFTY 50",
		IndexPctChange: 0.8,
		SessionLive:    true,
		StartedAt:      time.Date(2025, 1, 15, 11, 0, 0, 0, common.ISTLocation()),
		FinishedAt:     time.Date(2025, 1, 15, 11, 2, 0, 0, common.ISTLocation()),
		Results: []models.ScanResult{
			{
				Symbol:         "RELIANCE",
				Snapshot:       buy,
				IndexPctChange: 0.8,
				Score:          6,
				RS:             ptr(1.7),
				Components: models.ScoreComponents{
					VWAPBias: 0.81,
					RS:       ptr(1.7),
					OIR:      ptr(2.0),
					NearHigh: true,
					RiskOK:   true,
				},
				View:        models.ViewBuy,
				Rationale:   "Score 6/7, ΔVWAP=+0.81%, RS=+1.70%, OIR=2.00",
				SessionLive: true,
			},
			{
				Symbol:         "TCS",
				Snapshot:       watch,
				IndexPctChange: 0.8,
				Score:          3,
				RS:             ptr(-1.2),
				Components: models.ScoreComponents{
					VWAPBias: -0.28,
					RS:       ptr(-1.2),
					RiskOK:   true,
				},
				View:        models.ViewWatch,
				Rationale:   "Score 3/7, ΔVWAP=-0.28%, RS=-1.20%",
				SessionLive: true,
			},
			{
				Symbol:         "GHOST",
				Snapshot:       avoid,
				IndexPctChange: 0.8,
				Score:          0,
				View:           models.ViewAvoid,
				Rationale:      "fetch failed: blocked by source",
				RiskFlags:      []string{models.RiskFetchError},
				SessionLive:    true,
			},
		},
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleReport())

	assert.Contains(t, md, "# Top-down Intraday Scan — 2025-01-15 11:00 IST")
	assert.Contains(t, md, "**BUY — RELIANCE** | Score 6/7")
	assert.Contains(t, md, "LTP=₹2500.00")
	assert.Contains(t, md, "ΔVWAP=+0.81%")
	assert.Contains(t, md, "OIR=2.00")
	assert.Contains(t, md, "Vol=4,250,000")
	assert.Contains(t, md, "near_high/low=true/false")
	assert.Contains(t, md, "circuit_prox=9.20%")
	assert.Contains(t, md, "**WATCH — TCS**")
	// Unknown ratios and proximities print NA, never zero.
	assert.Contains(t, md, "OIR=NA")
	assert.Contains(t, md, "circuit_prox=NA")
	assert.Contains(t, md, "**AVOID — GHOST**")
	assert.Contains(t, md, "fetch failed: blocked by source")
}

func TestMessage_GroupsAndCaps(t *testing.T) {
	msg := Message(sampleReport(), DefaultTopN, nil)

	assert.Contains(t, msg, "Top-down scan — 2025-01-15 11:00 IST | NIFTY 50 +0.80%")
	assert.Contains(t, msg, "BUY candidates (top 1):")
	assert.Contains(t, msg, "- RELIANCE: LTP=₹2500.00, chg%=+2.50 | Score 6/7")
	assert.Contains(t, msg, "RS=+1.70%")
	assert.Contains(t, msg, "near_high")
	assert.Contains(t, msg, "circuit_prox=9.20%")
	assert.Contains(t, msg, "WATCH candidates (top 1):")
	assert.Contains(t, msg, "AVOID candidates (top 1):")
}

func TestMessage_OnlyViewsFilter(t *testing.T) {
	msg := Message(sampleReport(), DefaultTopN, []string{"buy"})

	assert.Contains(t, msg, "BUY candidates")
	assert.NotContains(t, msg, "WATCH candidates")
	assert.NotContains(t, msg, "AVOID candidates")
}

func TestMessage_TopNCapsGroups(t *testing.T) {
	rep := sampleReport()
	extra := *rep.Results[1].Snapshot
	extra.Symbol = "INFY"
	second := rep.Results[1]
	second.Symbol = "INFY"
	second.Snapshot = &extra
	rep.Results = append(rep.Results[:2], second, rep.Results[2])

	msg := Message(rep, 1, []string{"WATCH"})

	assert.Contains(t, msg, "WATCH candidates (top 1):")
	assert.Contains(t, msg, "- TCS:")
	assert.NotContains(t, msg, "- INFY:")
}

func TestSlimJSON(t *testing.T) {
	data, err := SlimJSON(sampleReport())
	require.NoError(t, err)

	var items []map[string]any
	require.NoError(t, json.Unmarshal(data, &items))
	require.Len(t, items, 3)

	assert.Equal(t, "RELIANCE", items[0]["symbol"])
	assert.Equal(t, "BUY", items[0]["view"])
	assert.Equal(t, 6.0, items[0]["score"])

	quote, ok := items[0]["quote"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 2500.0, quote["ltp"])
	assert.Equal(t, 2480.0, quote["avg_price"])

	// Absent relative strength survives as null, not zero.
	assert.Nil(t, items[2]["rs"])
	flags, ok := items[2]["risk_flags"].([]any)
	require.True(t, ok)
	assert.Contains(t, flags, "fetch_error")
}
