package scan

import (
	"fmt"
	"strings"

	"github.com/rakaar/agent-cli-stock/internal/models"
)

// Scoring thresholds for the 0-7 intraday score.
const (
	vwapPositiveThr   = 0.5  // % above VWAP counted as bullish bias
	rsStrongThr       = 1.0  // % stronger than index
	momentumThr       = 2.0  // % day change considered momentum
	oirBuyThr         = 1.5  // buy/sell quantity ratio showing buy pressure
	spreadGoodThr     = 0.25 // % spread considered liquid
	circuitNearThr    = 1.0  // % distance to upper circuit considered risky
	wk52NearThr       = 0.5  // % within 52W high considered breakout vicinity
	marginElevatedThr = 75.0 // applicable margin rate above this is elevated
)

// liquidityNote records why the liquidity point is never awarded: the
// check needs a 20-day median volume and this pipeline carries no
// volume history.
const liquidityNote = "liquidity check skipped (no 20d median)"

// Score converts a snapshot plus the index baseline into a 0-7 integer
// score with a named component breakdown and recorded risk flags. It is
// a pure function: identical inputs always yield identical outputs.
func Score(snap *models.QuoteSnapshot, indexPctChange *float64) (int, models.ScoreComponents, []string) {
	q := snap.Quote
	ob := snap.Orderbook
	der := snap.Derived

	chgPct := q.ChangePct
	if chgPct == 0 {
		chgPct = der.LTPVsPrevClosePct
	}
	vwapDev := der.VWAPDeviationPct

	var rs *float64
	if indexPctChange != nil {
		v := chgPct - *indexPctChange
		rs = &v
	}

	// The buy/sell ratio is meaningful only when both sides are
	// populated; an absent ratio must not read as poor buy pressure.
	var oir *float64
	if ob.TotalBuyQty > 0 && ob.TotalSellQty > 0 {
		v := float64(ob.TotalBuyQty) / float64(ob.TotalSellQty)
		oir = &v
	}

	near52w := snap.Ranges.Wk52High != 0 && q.LTP != 0 &&
		q.LTP >= snap.Ranges.Wk52High*(1-wk52NearThr/100.0)

	proxUp := der.CircuitProximityPct.Upper
	margin := snap.VarMargins.ApplicableMarginRate

	// A margin rate of exactly zero means the source never supplied
	// one, not that margin requirements are absent.
	riskOK := (proxUp == nil || *proxUp > circuitNearThr) &&
		(margin <= marginElevatedThr || margin == 0)

	components := models.ScoreComponents{
		VWAPBias:                 vwapDev,
		RS:                       rs,
		MomentumPct:              chgPct,
		OIR:                      oir,
		NearHigh:                 der.NearDayExtremes.NearHigh,
		Near52W:                  near52w,
		SpreadPct:                ob.SpreadPct,
		LiquidityPoint:           false,
		LiquidityNote:            liquidityNote,
		CircuitProximityUpperPct: proxUp,
		RiskOK:                   riskOK,
		ApplicableMarginRate:     margin,
		VolumeShares:             snap.Activity.VolumeShares,
	}

	score := 0
	if vwapDev >= vwapPositiveThr {
		score++
	}
	if rs != nil && *rs >= rsStrongThr {
		score++
	}
	if chgPct >= momentumThr {
		score++
	}
	if oir != nil && *oir >= oirBuyThr {
		score++
	}
	if components.NearHigh || near52w {
		score++
	}
	if components.LiquidityPoint {
		score++
	}
	if riskOK {
		score++
	}

	var riskFlags []string
	if proxUp != nil && *proxUp <= circuitNearThr {
		riskFlags = append(riskFlags, models.RiskNearUpperCircuit)
	}
	if margin > marginElevatedThr {
		riskFlags = append(riskFlags, models.RiskElevatedMargin)
	}

	return score, components, riskFlags
}

// BuildRationale summarizes the leading signals behind a score in one
// short line for the report.
func BuildRationale(score int, comps models.ScoreComponents) string {
	parts := []string{
		fmt.Sprintf("Score %d/7", score),
		fmt.Sprintf("ΔVWAP=%+.2f%%", comps.VWAPBias),
	}
	if comps.RS != nil {
		parts = append(parts, fmt.Sprintf("RS=%+.2f%%", *comps.RS))
	}
	if comps.OIR != nil && *comps.OIR >= oirBuyThr {
		parts = append(parts, fmt.Sprintf("OIR=%.2f", *comps.OIR))
	} else if comps.NearHigh || comps.Near52W {
		parts = append(parts, "near_high/52W")
	}
	return strings.Join(parts, ", ")
}
