package nse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_WarmSessionForwardsCookies(t *testing.T) {
	var apiCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			http.SetCookie(w, &http.Cookie{Name: "nsit", Value: "session-token", Path: "/"})
			w.Write([]byte("<html></html>"))
		case "/api/quote-equity":
			if c, err := r.Cookie("nsit"); err == nil {
				apiCookie = c.Value
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"priceInfo":{"lastPrice":100.5}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(100))
	require.NoError(t, c.WarmSession(context.Background()))

	obj, err := c.QuoteEquity(context.Background(), "RELIANCE", "")
	require.NoError(t, err)
	assert.Equal(t, "session-token", apiCookie)
	assert.Contains(t, obj, "priceInfo")
}

func TestClient_QuoteEquityAllMergesSections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			w.Write([]byte("ok"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("section") {
		case "":
			w.Write([]byte(`{"priceInfo":{"lastPrice":250.0}}`))
		case "trade_info":
			w.Write([]byte(`{"tradeInfo":{"impactCost":0.03}}`))
		default:
			// partial responses augment priceInfo rather than replacing it
			w.Write([]byte(`{"priceInfo":{"previousClose":245.0}}`))
		}
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(100))
	merged := c.QuoteEquityAll(context.Background(), "TCS")

	pi, ok := merged["priceInfo"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, pi, "lastPrice")
	assert.Contains(t, pi, "previousClose")
	assert.Contains(t, merged, "tradeInfo")
}

func TestClient_QuoteEquityAllToleratesFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			w.Write([]byte("ok"))
			return
		}
		if r.URL.Query().Get("section") == "trade_info" {
			http.Error(w, "throttled", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"priceInfo":{"lastPrice":99.0}}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(100))
	merged := c.QuoteEquityAll(context.Background(), "INFY")
	assert.Contains(t, merged, "priceInfo")
}

func TestClient_ConcurrentCallsWarmOnce(t *testing.T) {
	var warmHits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			warmHits.Add(1)
			w.Write([]byte("ok"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"priceInfo":{"lastPrice":100.0}}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(1000))

	// Every pool worker shares one client; concurrent fallbacks must
	// not race on the session warm-up.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			merged := c.QuoteEquityAll(context.Background(), "TCS")
			assert.Contains(t, merged, "priceInfo")
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), warmHits.Load())
}

func TestClient_QuoteIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			w.Write([]byte("ok"))
			return
		}
		assert.Equal(t, "NIFTY 50", r.URL.Query().Get("index"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"priceInfo":{"pChange":0.8,"lastPrice":24500.1}}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(100))
	obj, err := c.QuoteIndex(context.Background(), "NIFTY 50")
	require.NoError(t, err)
	assert.Contains(t, obj, "priceInfo")
}
