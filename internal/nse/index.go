package nse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/rakaar/agent-cli-stock/internal/coerce"
	"github.com/rakaar/agent-cli-stock/internal/common"
	"github.com/rakaar/agent-cli-stock/internal/models"
)

// indexCaptureTimeout bounds the rendered-page fallback wait for the
// index API response.
const indexCaptureTimeout = 45 * time.Second

// IndexFetcher obtains the benchmark index quote that anchors
// relative-strength scoring. Direct API first; rendered-page capture of
// the same API response as fallback. Both failing is fatal for a scan.
type IndexFetcher struct {
	client *Client
	config ScraperConfig
	logger arbor.ILogger
}

// NewIndexFetcher creates an index fetcher sharing the scraper's
// browser configuration for its fallback strategy.
func NewIndexFetcher(client *Client, config ScraperConfig, logger arbor.ILogger) *IndexFetcher {
	return &IndexFetcher{client: client, config: config, logger: logger}
}

// Fetch returns the index quote, trying the direct API before the
// rendered page.
func (f *IndexFetcher) Fetch(ctx context.Context, indexName string) (*models.IndexQuote, error) {
	if f.client != nil {
		obj, err := f.client.QuoteIndex(ctx, indexName)
		if err == nil {
			return extractIndexFields(obj, indexName), nil
		}
		if f.logger != nil {
			f.logger.Warn().Err(err).Str("index", indexName).Msg("Direct index fetch failed, falling back to page capture")
		}
	}

	obj, err := f.captureFromPage(ctx, indexName)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch index %s: %w", indexName, err)
	}
	return extractIndexFields(obj, indexName), nil
}

// captureFromPage navigates to the live market page for the index and
// captures the quote-index API response the page itself issues.
func (f *IndexFetcher) captureFromPage(ctx context.Context, indexName string) (map[string]any, error) {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.config.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(f.config.UserAgent),
	)
	if path := execPathFor(f.config.Engine); path != "" {
		opts = append(opts, chromedp.ExecPath(path))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var mu sync.Mutex
	pending := make(map[network.RequestID]bool)
	var captured map[string]any

	chromedp.ListenTarget(browserCtx, func(ev any) {
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			if strings.Contains(e.Response.URL, "/api/quote-index?index=") && e.Response.Status == 200 {
				mu.Lock()
				pending[e.RequestID] = true
				mu.Unlock()
			}
		case *network.EventLoadingFinished:
			mu.Lock()
			ok := pending[e.RequestID]
			delete(pending, e.RequestID)
			mu.Unlock()
			if !ok {
				return
			}
			id := e.RequestID
			common.SafeGo(f.logger, "fetchIndexBody", func() {
				c := chromedp.FromContext(browserCtx)
				if c == nil || c.Target == nil {
					return
				}
				body, err := network.GetResponseBody(id).Do(cdp.WithExecutor(browserCtx, c.Target))
				if err != nil {
					return
				}
				var obj map[string]any
				if json.Unmarshal(body, &obj) != nil {
					return
				}
				mu.Lock()
				if captured == nil {
					captured = obj
				}
				mu.Unlock()
			})
		}
	})

	navCtx, navCancel := context.WithTimeout(browserCtx, indexCaptureTimeout)
	defer navCancel()

	pageURL := DefaultBaseURL + "/market-data/live-equity-market?symbol=" + url.QueryEscape(indexName)
	if err := chromedp.Run(navCtx, network.Enable(), chromedp.Navigate(pageURL)); err != nil {
		return nil, fmt.Errorf("navigation failed: %w", err)
	}

	for {
		mu.Lock()
		got := captured
		mu.Unlock()
		if got != nil {
			return got, nil
		}
		select {
		case <-navCtx.Done():
			return nil, fmt.Errorf("index API response not observed within %s", indexCaptureTimeout)
		case <-time.After(400 * time.Millisecond):
		}
	}
}

// extractIndexFields reduces the index payload to the fields the scan
// needs, tolerating the source's alternate key names.
func extractIndexFields(data map[string]any, indexName string) *models.IndexQuote {
	pi, _ := data["priceInfo"].(map[string]any)

	name := indexName
	if v, ok := coerce.Lookup(data, "info.index"); ok {
		if s, ok := v.(string); ok && s != "" {
			name = s
		}
	}

	return &models.IndexQuote{
		Index:         name,
		Last:          firstNumber(0, pi["last"], pi["lastPrice"]),
		Change:        coerce.NumberOr(pi["change"], 0),
		PChange:       coerce.NumberOr(pi["pChange"], 0),
		Open:          coerce.NumberOr(pi["open"], 0),
		DayHigh:       firstNumber(0, coerce.LookupOr(pi, "intraDayHighLow.max", nil), pi["dayHigh"]),
		DayLow:        firstNumber(0, coerce.LookupOr(pi, "intraDayHighLow.min", nil), pi["dayLow"]),
		PreviousClose: coerce.NumberOr(pi["previousClose"], 0),
	}
}
