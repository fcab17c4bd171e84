package report

import (
	"encoding/json"

	"github.com/rakaar/agent-cli-stock/internal/models"
)

// slimItem is the compact per-symbol record persisted as the run's JSON
// artifact. Full snapshots are deliberately omitted; the markdown and
// message renderers carry the human-facing detail.
type slimItem struct {
	Symbol         string                 `json:"symbol"`
	View           models.View            `json:"view"`
	Score          int                    `json:"score"`
	IndexPctChange float64                `json:"index_pct_change"`
	RS             *float64               `json:"rs"`
	Components     models.ScoreComponents `json:"components"`
	RiskFlags      []string               `json:"risk_flags"`
	SessionLive    bool                   `json:"session_live"`
	Quote          slimQuote              `json:"quote"`
}

type slimQuote struct {
	LTP       float64 `json:"ltp"`
	AvgPrice  float64 `json:"avg_price"`
	ChangePct float64 `json:"chg_pct"`
}

// SlimJSON renders the run's results as an indented JSON array, one
// compact record per symbol.
func SlimJSON(rep *models.ScanReport) ([]byte, error) {
	items := make([]slimItem, len(rep.Results))
	for i := range rep.Results {
		r := &rep.Results[i]
		items[i] = slimItem{
			Symbol:         r.Symbol,
			View:           r.View,
			Score:          r.Score,
			IndexPctChange: r.IndexPctChange,
			RS:             r.RS,
			Components:     r.Components,
			RiskFlags:      r.RiskFlags,
			SessionLive:    r.SessionLive,
			Quote: slimQuote{
				LTP:       r.Snapshot.Quote.LTP,
				AvgPrice:  r.Snapshot.Quote.AvgPrice,
				ChangePct: r.Snapshot.Quote.ChangePct,
			},
		}
	}
	return json.MarshalIndent(items, "", "  ")
}
