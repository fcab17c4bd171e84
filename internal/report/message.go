package report

import (
	"fmt"
	"strings"

	"github.com/rakaar/agent-cli-stock/internal/models"
)

// DefaultTopN is the per-view cap for the short message.
const DefaultTopN = 5

// Message renders a short, human-ready digest of the run: grouped by
// view, capped at topN symbols per group, single-line bullets. An empty
// onlyViews includes every view.
func Message(rep *models.ScanReport, topN int, onlyViews []string) string {
	if topN < 0 {
		topN = 0
	}

	include := map[models.View]bool{}
	if len(onlyViews) == 0 {
		include[models.ViewBuy] = true
		include[models.ViewWatch] = true
		include[models.ViewAvoid] = true
	} else {
		for _, v := range onlyViews {
			include[models.View(strings.ToUpper(strings.TrimSpace(v)))] = true
		}
	}

	groups := map[models.View][]*models.ScanResult{}
	for i := range rep.Results {
		r := &rep.Results[i]
		groups[r.View] = append(groups[r.View], r)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Top-down scan — %s | %s %+.2f%%\n",
		istStamp(rep.StartedAt), rep.IndexName, rep.IndexPctChange)
	b.WriteString("Heuristic intraday views (research screening, not trading advice).\n\n")

	for _, view := range []models.View{models.ViewBuy, models.ViewWatch, models.ViewAvoid} {
		if !include[view] {
			continue
		}
		items := groups[view]
		if len(items) > topN {
			items = items[:topN]
		}
		if len(items) == 0 {
			continue
		}

		fmt.Fprintf(&b, "%s candidates (top %d):\n", view, len(items))
		for _, r := range items {
			b.WriteString(messageLine(r))
		}
		b.WriteString("\n")
	}

	return strings.TrimSpace(b.String())
}

func messageLine(r *models.ScanResult) string {
	q := r.Snapshot.Quote
	der := r.Snapshot.Derived

	sigs := []string{
		fmt.Sprintf("Score %d/7", r.Score),
		fmt.Sprintf("ΔVWAP=%+.2f%%", r.Components.VWAPBias),
		fmt.Sprintf("RS=%s%%", signedOrZero(r.RS)),
	}
	if r.Components.OIR != nil {
		sigs = append(sigs, fmt.Sprintf("OIR=%.2f", *r.Components.OIR))
	}
	if der.NearDayExtremes.NearHigh {
		sigs = append(sigs, "near_high")
	}
	if cp := der.CircuitProximityPct.Upper; cp != nil {
		sigs = append(sigs, fmt.Sprintf("circuit_prox=%.2f%%", *cp))
	}

	return fmt.Sprintf("- %s: LTP=₹%.2f, chg%%=%+.2f | %s\n",
		r.Symbol, q.LTP, q.ChangePct, strings.Join(sigs, ", "))
}
