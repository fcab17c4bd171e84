package nse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexFetcher_DirectAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			w.Write([]byte("ok"))
			return
		}
		require.Equal(t, "/api/quote-index", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"info": {"index": "NIFTY 50"},
			"priceInfo": {
				"lastPrice": 24512.35,
				"change": 195.2,
				"pChange": 0.8,
				"open": 24350.0,
				"intraDayHighLow": {"max": 24550.0, "min": 24300.0},
				"previousClose": 24317.15
			}
		}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithRateLimit(100))
	fetcher := NewIndexFetcher(client, DefaultScraperConfig(), nil)

	q, err := fetcher.Fetch(context.Background(), "NIFTY 50")
	require.NoError(t, err)
	assert.Equal(t, "NIFTY 50", q.Index)
	assert.Equal(t, 24512.35, q.Last)
	assert.Equal(t, 0.8, q.PChange)
	assert.Equal(t, 24550.0, q.DayHigh)
	assert.Equal(t, 24317.15, q.PreviousClose)
}

func TestExtractIndexFields_AlternateKeys(t *testing.T) {
	q := extractIndexFields(map[string]any{
		"priceInfo": map[string]any{
			"last":    "24,512.35",
			"pChange": "-0.45",
			"dayHigh": 24600.0,
		},
	}, "NIFTY BANK")

	assert.Equal(t, "NIFTY BANK", q.Index)
	assert.Equal(t, 24512.35, q.Last)
	assert.Equal(t, -0.45, q.PChange)
	assert.Equal(t, 24600.0, q.DayHigh)
}

func TestExtractIndexFields_Empty(t *testing.T) {
	q := extractIndexFields(map[string]any{}, "NIFTY 50")
	assert.Equal(t, "NIFTY 50", q.Index)
	assert.Equal(t, 0.0, q.PChange)
}
