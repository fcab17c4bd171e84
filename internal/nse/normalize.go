package nse

import (
	"math"
	"strings"
	"time"

	"github.com/rakaar/agent-cli-stock/internal/coerce"
	"github.com/rakaar/agent-cli-stock/internal/common"
	"github.com/rakaar/agent-cli-stock/internal/models"
)

// Timestamp layouts NSE uses, e.g. "30-Sep-2025 15:30:00".
var nseTimeLayouts = []string{
	"02-Jan-2006 15:04:05",
	"02-Jan-06 15:04:05",
}

// Normalize builds the canonical snapshot from merged payload fragments.
// It never fails: absent or malformed fields resolve to their documented
// defaults, and derived metrics are computed only from the canonical
// fields so their correctness does not depend on source shape.
func Normalize(symbol string, merged map[string]any) *models.QuoteSnapshot {
	return NormalizeAt(symbol, merged, common.NowIST())
}

// NormalizeAt is Normalize with an explicit acquisition time, used as
// the timestamp fallback when the source supplies none.
func NormalizeAt(symbol string, merged map[string]any, acquiredAt time.Time) *models.QuoteSnapshot {
	priceInfo := section(merged, "priceInfo")
	securityInfo := section(merged, "securityInfo")
	tradeInfo := section(merged, "tradeInfo")
	info := section(merged, "info")
	orderbook := section(merged, "marketDeptOrderBook")
	corp := section(merged, "corporate")

	snap := models.EmptySnapshot(strings.ToUpper(symbol), "")

	ltp := coerce.NumberOr(priceInfo["lastPrice"], 0)
	prevClose := coerce.NumberOr(priceInfo["previousClose"], 0)

	snap.Timestamp = parseTimestamp(priceInfo["lastUpdateTime"], acquiredAt)

	snap.Quote = models.Quote{
		LTP:       ltp,
		Change:    coerce.NumberOr(priceInfo["change"], 0),
		ChangePct: coerce.NumberOr(priceInfo["pChange"], 0),
		Open:      coerce.NumberOr(priceInfo["open"], 0),
		DayHigh:   firstNumber(0, coerce.LookupOr(priceInfo, "intraDayHighLow.max", nil), priceInfo["dayHigh"]),
		DayLow:    firstNumber(0, coerce.LookupOr(priceInfo, "intraDayHighLow.min", nil), priceInfo["dayLow"]),
		PrevClose: prevClose,
		AvgPrice:  coerce.NumberOr(priceInfo["vwap"], 0),
	}

	snap.Orderbook = normalizeOrderbook(orderbook, tradeInfo, ltp)

	volume := firstInt(0, priceInfo["totalTradedVolume"], tradeInfo["tradedVolume"])
	value := firstNumber(0, priceInfo["totalTradedValue"], tradeInfo["tradedValue"])
	snap.Activity = models.Activity{
		VolumeShares: volume,
		ValueCr:      safeDiv(value, 1e7),
	}

	upperBand := firstNumber(0, priceInfo["upperCP"], coerce.LookupOr(priceInfo, "priceBand.upper", nil))
	lowerBand := firstNumber(0, priceInfo["lowerCP"], coerce.LookupOr(priceInfo, "priceBand.lower", nil))
	bandPct := 0.0
	if prevClose != 0 {
		bandPct = (upperBand - prevClose) / prevClose * 100.0
	}
	snap.BandsVol = models.BandsVol{
		UpperBand: upperBand,
		LowerBand: lowerBand,
		BandPct:   bandPct,
		DailyVol:  coerce.NumberOr(tradeInfo["dailyVolatility"], 0),
		AnnualVol: coerce.NumberOr(tradeInfo["annualisedVolatility"], 0),
		TickSize:  coerce.NumberOr(securityInfo["tickSize"], 0.05),
	}

	snap.VarMargins = models.VarMargins{
		SecurityVar:          coerce.NumberOr(tradeInfo["securityVar"], 0),
		IndexVar:             coerce.NumberOr(tradeInfo["indexVar"], 0),
		VarMargin:            coerce.NumberOr(tradeInfo["varMargin"], 0),
		ExtremeLossRate:      coerce.NumberOr(tradeInfo["extremeLossRate"], 0),
		ApplicableMarginRate: coerce.NumberOr(tradeInfo["applicableMarginRate"], 0),
	}

	snap.Ranges = models.Ranges{
		Wk52High: firstNumber(0, coerce.LookupOr(priceInfo, "weekHighLow.max", nil)),
		Wk52Low:  firstNumber(0, coerce.LookupOr(priceInfo, "weekHighLow.min", nil)),
	}

	snap.Deliverables = models.Deliverables{
		PctDeliverable: firstNumber(0, tradeInfo["deliveryToTradedQuantity"], tradeInfo["deliveryPositionPercent"]),
	}

	snap.Meta = normalizeMeta(priceInfo, securityInfo, tradeInfo, info)
	snap.Corporate, snap.NewsFlags = normalizeCorporate(corp)
	snap.Derived = deriveMetrics(snap)

	return snap
}

// normalizeOrderbook builds the fixed-depth order book. Side arrays are
// truncated or zero-padded to exactly DepthLevels entries.
func normalizeOrderbook(orderbook, tradeInfo map[string]any, ltp float64) models.Orderbook {
	bids := normalizeSide(orderbook["bid"], orderbook["buy"])
	asks := normalizeSide(orderbook["ask"], orderbook["sell"])

	bestBid := bids[0].Price
	bestAsk := asks[0].Price
	spreadAbs := 0.0
	if bestBid != 0 && bestAsk != 0 {
		spreadAbs = bestAsk - bestBid
	}
	spreadPct := 0.0
	if ltp != 0 {
		spreadPct = spreadAbs / ltp * 100.0
	}

	return models.Orderbook{
		SpreadAbs:    spreadAbs,
		SpreadPct:    spreadPct,
		Bids:         bids,
		Asks:         asks,
		TotalBuyQty:  coerce.IntOr(orderbook["totalBuyQuantity"], 0),
		TotalSellQty: coerce.IntOr(orderbook["totalSellQuantity"], 0),
		ImpactCost:   coerce.NumberOr(tradeInfo["impactCost"], 0),
	}
}

// normalizeSide accepts alternate key payloads in priority order and
// returns exactly DepthLevels entries.
func normalizeSide(alternatives ...any) []models.OrderbookLevel {
	out := make([]models.OrderbookLevel, 0, models.DepthLevels)

	var rows []any
	for _, alt := range alternatives {
		if arr, ok := alt.([]any); ok && len(arr) > 0 {
			rows = arr
			break
		}
	}

	for i := 0; i < len(rows) && i < models.DepthLevels; i++ {
		row, _ := rows[i].(map[string]any)
		out = append(out, models.OrderbookLevel{
			Price: coerce.NumberOr(row["price"], 0),
			Qty:   coerce.IntOr(row["quantity"], 0),
		})
	}
	for len(out) < models.DepthLevels {
		out = append(out, models.OrderbookLevel{})
	}
	return out
}

func normalizeMeta(priceInfo, securityInfo, tradeInfo, info map[string]any) models.Meta {
	indices := []string{}
	switch v := info["indices"].(type) {
	case string:
		indices = []string{v}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				indices = append(indices, s)
			}
		}
	}

	mcap := coerce.NumberOr(priceInfo["totalMarketCap"], 0)
	ffmc := firstNumber(0, priceInfo["ffmc"], tradeInfo["freeFloatMarketCap"])

	return models.Meta{
		FaceValue:             coerce.NumberOr(securityInfo["faceValue"], 0),
		MarketLot:             coerce.IntOr(securityInfo["marketLot"], 1),
		McapCr:                safeDiv(mcap, 1e7),
		FreeFloatMcapCr:       safeDiv(ffmc, 1e7),
		Industry:              firstString("—", info["industry"], info["industryInfo"]),
		Indices:               indices,
		SurveillanceIndicator: firstString("—", securityInfo["surveillance"], securityInfo["surveillanceIndicator"]),
		Series:                firstString("—", info["series"], securityInfo["series"]),
		ISIN:                  firstString("—", securityInfo["isin"], info["isin"]),
		Instrument:            firstString("—", securityInfo["instrument"], info["instrument"]),
		Status:                firstString("—", info["status"], securityInfo["tradingStatus"]),
		BoardName:             firstString("—", securityInfo["boardName"]),
		IsFnO:                 truthy(info["isFNOSec"]) || truthy(securityInfo["isFnO"]),
	}
}

// normalizeCorporate slims announcements to the 10 most recent and
// derives the fresh-announcement flags.
func normalizeCorporate(corp map[string]any) (models.Corporate, models.NewsFlags) {
	raw, _ := corp["announcements"].([]any)

	slim := make([]models.Announcement, 0, 10)
	for _, item := range raw {
		if len(slim) >= 10 {
			break
		}
		a, ok := item.(map[string]any)
		if !ok {
			continue
		}
		slim = append(slim, models.Announcement{
			Time:     firstString("", a["dt"], a["date"], a["time"], a["announcementTime"]),
			Headline: firstString("", a["headline"], a["subject"], a["title"]),
			Desc:     firstString("", a["desc"], a["details"]),
			Type:     firstString("", a["type"], a["category"]),
			PDF:      firstString("", a["pdfLink"], a["attachment"]),
		})
	}

	flags := models.NewsFlags{HasFreshAnnouncement: len(raw) > 0}
	for _, item := range raw {
		a, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if ts := firstString("", a["dt"], a["date"], a["time"], a["announcementTime"]); ts != "" {
			flags.LatestAnnouncementTime = ts
			break
		}
	}

	return models.Corporate{Announcements: slim}, flags
}

// deriveMetrics computes the derived block from already-normalized
// canonical fields only. Every division is guarded.
func deriveMetrics(snap *models.QuoteSnapshot) models.Derived {
	ob := snap.Orderbook
	q := snap.Quote

	totalBuy := float64(ob.TotalBuyQty)
	totalSell := float64(ob.TotalSellQty)
	denom := totalBuy + totalSell
	if denom == 0 {
		denom = 1
	}
	imbalance := (totalBuy - totalSell) / denom

	vwapDev := 0.0
	if q.AvgPrice != 0 {
		vwapDev = (q.LTP - q.AvgPrice) / q.AvgPrice * 100.0
	}

	var proxUp, proxLo *float64
	if q.LTP != 0 && snap.BandsVol.UpperBand != 0 {
		v := round((snap.BandsVol.UpperBand-q.LTP)/q.LTP*100.0, 3)
		proxUp = &v
	}
	if q.LTP != 0 && snap.BandsVol.LowerBand != 0 {
		v := round((q.LTP-snap.BandsVol.LowerBand)/q.LTP*100.0, 3)
		proxLo = &v
	}

	nearHigh := q.LTP != 0 && q.DayHigh != 0 && (q.DayHigh-q.LTP)/q.LTP*100.0 <= 0.2
	nearLow := q.LTP != 0 && q.DayLow != 0 && (q.LTP-q.DayLow)/q.LTP*100.0 <= 0.2

	ltpVsPrev := 0.0
	if q.PrevClose != 0 {
		ltpVsPrev = round((q.LTP-q.PrevClose)/q.PrevClose*100.0, 3)
	}

	return models.Derived{
		OrderImbalanceRatio: round(imbalance, 4),
		VWAPDeviationPct:    round(vwapDev, 3),
		CircuitProximityPct: models.CircuitProximity{Upper: proxUp, Lower: proxLo},
		NearDayExtremes:     models.NearDayExtremes{NearHigh: nearHigh, NearLow: nearLow},
		LTPVsPrevClosePct:   ltpVsPrev,
	}
}

// parseTimestamp converts the source's IST timestamp to ISO-8601,
// falling back to the acquisition time.
func parseTimestamp(raw any, acquiredAt time.Time) string {
	if s, ok := raw.(string); ok && s != "" {
		for _, layout := range nseTimeLayouts {
			if t, err := time.ParseInLocation(layout, s, common.ISTLocation()); err == nil {
				return t.Format(time.RFC3339)
			}
		}
	}
	return acquiredAt.In(common.ISTLocation()).Format(time.RFC3339)
}

func section(merged map[string]any, key string) map[string]any {
	if sub, ok := merged[key].(map[string]any); ok {
		return sub
	}
	return map[string]any{}
}

// firstNumber returns the first alternative that coerces to a non-zero
// number, mirroring the source's fallback-key priority semantics.
func firstNumber(def float64, alternatives ...any) float64 {
	for _, alt := range alternatives {
		if f, ok := coerce.Number(alt); ok && f != 0 {
			return f
		}
	}
	return def
}

func firstInt(def int64, alternatives ...any) int64 {
	for _, alt := range alternatives {
		if i, ok := coerce.Int(alt); ok && i != 0 {
			return i
		}
	}
	return def
}

func firstString(def string, alternatives ...any) string {
	for _, alt := range alternatives {
		if s, ok := alt.(string); ok && s != "" {
			return s
		}
	}
	return def
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true" || t == "Yes" || t == "yes" || t == "Y"
	case float64:
		return t != 0
	default:
		return false
	}
}

func safeDiv(num, den float64) float64 {
	if num == 0 || den == 0 {
		return 0
	}
	return num / den
}

func round(x float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(x*pow) / pow
}

