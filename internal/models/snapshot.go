package models

// QuoteSnapshot is the canonical, normalized per-symbol market data
// record. Every numeric field is a finite number; values the source did
// not supply resolve to zero, except the explicitly optional circuit
// proximity pointers.
type QuoteSnapshot struct {
	Symbol       string       `json:"symbol"`
	Timestamp    string       `json:"ts"`
	Quote        Quote        `json:"quote"`
	Orderbook    Orderbook    `json:"orderbook"`
	Activity     Activity     `json:"activity"`
	BandsVol     BandsVol     `json:"bands_vol"`
	VarMargins   VarMargins   `json:"var_margins"`
	Ranges       Ranges       `json:"ranges"`
	Deliverables Deliverables `json:"deliverables"`
	Meta         Meta         `json:"meta"`
	NewsFlags    NewsFlags    `json:"news_flags"`
	Corporate    Corporate    `json:"corporate"`
	Derived      Derived      `json:"derived"`
}

// Quote holds the core intraday price fields.
type Quote struct {
	LTP       float64 `json:"ltp"`
	Change    float64 `json:"chg"`
	ChangePct float64 `json:"chg_pct"`
	Open      float64 `json:"open"`
	DayHigh   float64 `json:"day_high"`
	DayLow    float64 `json:"day_low"`
	PrevClose float64 `json:"prev_close"`
	AvgPrice  float64 `json:"avg_price"` // VWAP
}

// OrderbookLevel is one price level of the depth. Padded entries are
// zero-valued.
type OrderbookLevel struct {
	Price float64 `json:"p"`
	Qty   int64   `json:"q"`
}

// Orderbook carries the best five levels per side plus aggregates.
// Bids and Asks always have exactly DepthLevels entries.
type Orderbook struct {
	SpreadAbs    float64          `json:"spread_abs"`
	SpreadPct    float64          `json:"spread_pct"`
	Bids         []OrderbookLevel `json:"bids"`
	Asks         []OrderbookLevel `json:"asks"`
	TotalBuyQty  int64            `json:"total_buy_qty"`
	TotalSellQty int64            `json:"total_sell_qty"`
	ImpactCost   float64          `json:"impact_cost"`
}

// DepthLevels is the fixed orderbook depth per side.
const DepthLevels = 5

// Activity summarizes traded volume and value.
type Activity struct {
	VolumeShares int64   `json:"volume_shares"`
	ValueCr      float64 `json:"value_cr"` // traded value / 1e7
}

// BandsVol holds circuit bands, volatility and tick size.
type BandsVol struct {
	UpperBand float64 `json:"upper_band"`
	LowerBand float64 `json:"lower_band"`
	BandPct   float64 `json:"band_pct"`
	DailyVol  float64 `json:"daily_vol"`
	AnnualVol float64 `json:"annual_vol"`
	TickSize  float64 `json:"tick_size"`
}

// VarMargins holds the exchange margin fields.
type VarMargins struct {
	SecurityVar          float64 `json:"security_var"`
	IndexVar             float64 `json:"index_var"`
	VarMargin            float64 `json:"var_margin"`
	ExtremeLossRate      float64 `json:"extreme_loss_rate"`
	ApplicableMarginRate float64 `json:"applicable_margin_rate"`
}

// Ranges holds the 52-week extremes.
type Ranges struct {
	Wk52High float64 `json:"wk52_high"`
	Wk52Low  float64 `json:"wk52_low"`
}

// Deliverables holds the delivery percentage of traded quantity.
type Deliverables struct {
	PctDeliverable float64 `json:"pct_deliverable"`
}

// Meta carries the security's identity and listing attributes.
type Meta struct {
	FaceValue              float64  `json:"face_value"`
	MarketLot              int64    `json:"market_lot"`
	McapCr                 float64  `json:"mcap_cr"`
	FreeFloatMcapCr        float64  `json:"free_float_mcap_cr"`
	Industry               string   `json:"industry"`
	Indices                []string `json:"indices"`
	SurveillanceIndicator  string   `json:"surveillance_indicator"`
	Series                 string   `json:"series"`
	ISIN                   string   `json:"isin"`
	Instrument             string   `json:"instrument"`
	Status                 string   `json:"status"`
	BoardName              string   `json:"board_name"`
	IsFnO                  bool     `json:"is_fno"`
}

// NewsFlags signals recent corporate announcement activity.
type NewsFlags struct {
	HasFreshAnnouncement   bool   `json:"has_fresh_announcement"`
	LatestAnnouncementTime string `json:"latest_announcement_time,omitempty"`
}

// Announcement is one corporate announcement, slimmed to what the report
// needs. PDF documents are linked, never downloaded.
type Announcement struct {
	Time     string `json:"time"`
	Headline string `json:"headline"`
	Desc     string `json:"desc"`
	Type     string `json:"type"`
	PDF      string `json:"pdf"`
}

// Corporate carries up to the 10 most recent announcements.
type Corporate struct {
	Announcements []Announcement `json:"announcements"`
}

// CircuitProximity is the distance to the circuit bands relative to LTP.
// Nil when the corresponding band is unknown.
type CircuitProximity struct {
	Upper *float64 `json:"upper"`
	Lower *float64 `json:"lower"`
}

// NearDayExtremes flags prices within 0.2% of the day's high or low.
type NearDayExtremes struct {
	NearHigh bool `json:"near_high"`
	NearLow  bool `json:"near_low"`
}

// Derived holds metrics computed from the canonical fields above, never
// from raw source fragments.
type Derived struct {
	OrderImbalanceRatio float64          `json:"order_imbalance_ratio"`
	VWAPDeviationPct    float64          `json:"vwap_deviation_pct"`
	CircuitProximityPct CircuitProximity `json:"circuit_proximity_pct"`
	NearDayExtremes     NearDayExtremes  `json:"near_day_extremes"`
	LTPVsPrevClosePct   float64          `json:"ltp_vs_prev_close_pct"`
}

// EmptySnapshot returns a zero-valued snapshot for a symbol, used when a
// symbol's pipeline fails and a degraded result must still be reported.
func EmptySnapshot(symbol string, ts string) *QuoteSnapshot {
	return &QuoteSnapshot{
		Symbol:    symbol,
		Timestamp: ts,
		Orderbook: Orderbook{
			Bids: make([]OrderbookLevel, DepthLevels),
			Asks: make([]OrderbookLevel, DepthLevels),
		},
		Meta: Meta{
			MarketLot:             1,
			Industry:              "—",
			Indices:               []string{},
			SurveillanceIndicator: "—",
			Series:                "—",
			ISIN:                  "—",
			Instrument:            "—",
			Status:                "—",
			BoardName:             "—",
		},
		Corporate: Corporate{Announcements: []Announcement{}},
	}
}
