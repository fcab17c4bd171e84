// Package report renders a scan run for its three consumers: a full
// markdown summary, a short forwardable message and a slim JSON
// artifact.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/rakaar/agent-cli-stock/internal/common"
	"github.com/rakaar/agent-cli-stock/internal/models"
)

const timestampLayout = "2006-01-02 15:04 IST"

// Markdown renders the full report, one bullet per symbol grouped by
// view. Results are assumed already ordered by the orchestrator.
func Markdown(rep *models.ScanReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Top-down Intraday Scan — %s\n\n", istStamp(rep.StartedAt))
	b.WriteString("Sorted by score (desc). Views follow the risk gates and session awareness.\n\n")

	for i := range rep.Results {
		r := &rep.Results[i]
		q := r.Snapshot.Quote
		der := r.Snapshot.Derived

		fmt.Fprintf(&b,
			"- **%s — %s** | Score %d/7 | LTP=₹%.2f, VWAP=₹%.2f, ΔVWAP=%+.2f%%, chg%%=%+.2f, RS=%s, OIR=%s, Vol=%s, near_high/low=%t/%t, circuit_prox=%s\n  %s\n",
			r.View, r.Symbol, r.Score,
			q.LTP, q.AvgPrice,
			r.Components.VWAPBias, q.ChangePct,
			signedOrZero(r.RS), ratioOrNA(r.Components.OIR),
			humanize.Comma(r.Snapshot.Activity.VolumeShares),
			der.NearDayExtremes.NearHigh, der.NearDayExtremes.NearLow,
			pctOrNA(der.CircuitProximityPct.Upper),
			r.Rationale,
		)
	}

	b.WriteString("\n")
	return b.String()
}

func istStamp(t time.Time) string {
	return t.In(common.ISTLocation()).Format(timestampLayout)
}

func signedOrZero(v *float64) string {
	if v == nil {
		return "+0.00"
	}
	return fmt.Sprintf("%+.2f", *v)
}

func ratioOrNA(v *float64) string {
	if v == nil {
		return "NA"
	}
	return fmt.Sprintf("%.2f", *v)
}

func pctOrNA(v *float64) string {
	if v == nil {
		return "NA"
	}
	return fmt.Sprintf("%.2f%%", *v)
}
