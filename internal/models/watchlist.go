package models

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Watchlist is the scan input: the symbols to screen and the benchmark
// index used as the relative-strength baseline.
type Watchlist struct {
	Symbols []string `json:"symbols"`
	Index   string   `json:"index"`
}

// DefaultIndex is used when the watchlist does not name a benchmark.
const DefaultIndex = "NIFTY 50"

// LoadWatchlist reads a watchlist JSON file.
func LoadWatchlist(path string) (*Watchlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read watchlist: %w", err)
	}

	var wl Watchlist
	if err := json.Unmarshal(data, &wl); err != nil {
		return nil, fmt.Errorf("failed to parse watchlist %s: %w", path, err)
	}

	if wl.Index == "" {
		wl.Index = DefaultIndex
	}
	wl.Symbols = DedupSymbols(wl.Symbols)

	if len(wl.Symbols) == 0 {
		return nil, fmt.Errorf("watchlist %s contains no symbols", path)
	}

	return &wl, nil
}

// DedupSymbols uppercases and de-duplicates symbols preserving first
// occurrence order.
func DedupSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		sym := strings.ToUpper(strings.TrimSpace(s))
		if sym == "" {
			continue
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out
}
