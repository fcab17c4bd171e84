// Package nse acquires and normalizes equity quote data from the NSE
// web interface. The source exposes the same data inconsistently across
// a JSON API, a script-rendered page, and partial asynchronous
// responses; this package reconciles all of them into one canonical
// snapshot.
package nse

// Sections of the quote payload the acquisition engine recognizes and
// merges opportunistically from intercepted responses.
var fragmentKeys = []string{
	"priceInfo",
	"tradeInfo",
	"securityInfo",
	"marketDeptOrderBook",
	"info",
	"corporate",
}

// MergeFragment folds an incoming payload fragment into an existing
// accumulator and returns the merged copy. Map-valued keys are merged
// shallowly so a later partial response augments a section without
// destroying fields an earlier response already supplied; scalar and
// array values are replaced. Neither input is mutated.
func MergeFragment(existing, incoming map[string]any) map[string]any {
	merged := make(map[string]any, len(existing)+len(incoming))
	for k, v := range existing {
		merged[k] = v
	}

	for k, v := range incoming {
		sub, okNew := v.(map[string]any)
		prev, okOld := merged[k].(map[string]any)
		if okNew && okOld {
			section := make(map[string]any, len(prev)+len(sub))
			for pk, pv := range prev {
				section[pk] = pv
			}
			for sk, sv := range sub {
				section[sk] = sv
			}
			merged[k] = section
			continue
		}
		merged[k] = v
	}

	return merged
}

// hasSection reports whether the accumulator holds a non-empty object
// for the given top-level key.
func hasSection(merged map[string]any, key string) bool {
	sub, ok := merged[key].(map[string]any)
	return ok && len(sub) > 0
}
