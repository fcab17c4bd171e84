package scan

import "github.com/rakaar/agent-cli-stock/internal/models"

// classifyRule is one step of the ordered decision table. Rules are
// evaluated top to bottom; the first match wins.
type classifyRule struct {
	name    string
	matches func(score int, riskFlags []string, sessionLive bool) bool
	view    models.View
}

var classifyRules = []classifyRule{
	{
		// Off-session data is stale; nothing is actionable.
		name: "session_closed",
		matches: func(_ int, _ []string, sessionLive bool) bool {
			return !sessionLive
		},
		view: models.ViewWatch,
	},
	{
		// Circuit proximity caps upside regardless of score.
		name: "near_upper_circuit",
		matches: func(_ int, riskFlags []string, _ bool) bool {
			return hasFlag(riskFlags, models.RiskNearUpperCircuit)
		},
		view: models.ViewWatch,
	},
	{
		name: "strong_score",
		matches: func(score int, _ []string, _ bool) bool {
			return score >= 6
		},
		view: models.ViewBuy,
	},
	{
		name: "moderate_score",
		matches: func(score int, _ []string, _ bool) bool {
			return score >= 4
		},
		view: models.ViewWatch,
	},
	{
		name: "weak_score",
		matches: func(score int, _ []string, _ bool) bool {
			return score <= 1
		},
		view: models.ViewAvoid,
	},
}

// Classify maps a score plus its risk context onto an actionable view
// through the ordered rule table. Unmatched scores land on WATCH.
func Classify(score int, riskFlags []string, sessionLive bool) models.View {
	for _, rule := range classifyRules {
		if rule.matches(score, riskFlags, sessionLive) {
			return rule.view
		}
	}
	return models.ViewWatch
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}
