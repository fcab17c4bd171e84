package models

import "time"

// View is the actionable classification for a scanned symbol.
type View string

const (
	ViewBuy   View = "BUY"
	ViewWatch View = "WATCH"
	ViewAvoid View = "AVOID"
)

// ViewOrder is the fixed presentation priority for report grouping.
var ViewOrder = map[View]int{
	ViewBuy:   0,
	ViewWatch: 1,
	ViewAvoid: 2,
}

// Risk flag values recorded by the scoring engine and orchestrator.
const (
	RiskNearUpperCircuit = "near_upper_circuit"
	RiskElevatedMargin   = "elevated_margin"
	RiskFetchError       = "fetch_error"
)

// ScoreComponents is the named breakdown behind an intraday score.
// Pointer fields distinguish "absent" from zero: an unknown OIR must not
// be read as poor buy pressure.
type ScoreComponents struct {
	VWAPBias                 float64  `json:"vwap_bias"`
	RS                       *float64 `json:"rs"`
	MomentumPct              float64  `json:"momentum_pct"`
	OIR                      *float64 `json:"oir"`
	NearHigh                 bool     `json:"near_high"`
	Near52W                  bool     `json:"near_52w"`
	SpreadPct                float64  `json:"spread_pct"`
	LiquidityPoint           bool     `json:"liquidity_point"`
	LiquidityNote            string   `json:"liquidity_note"`
	CircuitProximityUpperPct *float64 `json:"circuit_proximity_upper_pct"`
	RiskOK                   bool     `json:"risk_ok"`
	ApplicableMarginRate     float64  `json:"applicable_margin_rate"`
	VolumeShares             int64    `json:"volume_shares"`
}

// ScanResult is the scored, classified outcome for one symbol in one
// run. Created once, immutable thereafter.
type ScanResult struct {
	Symbol         string          `json:"symbol"`
	Snapshot       *QuoteSnapshot  `json:"snapshot"`
	IndexPctChange float64         `json:"index_pct_change"`
	Score          int             `json:"score"`
	RS             *float64        `json:"rs"`
	Components     ScoreComponents `json:"components"`
	View           View            `json:"view"`
	Rationale      string          `json:"rationale"`
	RiskFlags      []string        `json:"risk_flags"`
	SessionLive    bool            `json:"session_live"`
}

// HasRiskFlag reports whether the result carries the given flag.
func (r *ScanResult) HasRiskFlag(flag string) bool {
	for _, f := range r.RiskFlags {
		if f == flag {
			return true
		}
	}
	return false
}

// ScanReport aggregates one full watchlist run.
type ScanReport struct {
	RunID          string       `json:"run_id"`
	IndexName      string       `json:"index_name"`
	IndexPctChange float64      `json:"index_pct_change"`
	SessionLive    bool         `json:"session_live"`
	StartedAt      time.Time    `json:"started_at"`
	FinishedAt     time.Time    `json:"finished_at"`
	Results        []ScanResult `json:"results"`
}

// IndexQuote is the reduced benchmark index record used as the
// relative-strength baseline.
type IndexQuote struct {
	Index         string  `json:"index"`
	Last          float64 `json:"last"`
	Change        float64 `json:"change"`
	PChange       float64 `json:"pChange"`
	Open          float64 `json:"open"`
	DayHigh       float64 `json:"dayHigh"`
	DayLow        float64 `json:"dayLow"`
	PreviousClose float64 `json:"previousClose"`
}
