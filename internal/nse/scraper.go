package nse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/tidwall/gjson"

	"github.com/rakaar/agent-cli-stock/internal/coerce"
	"github.com/rakaar/agent-cli-stock/internal/common"
)

// Engine selects the Chromium-family browser backing the scraper. The
// three engines render identically for this source; the selector exists
// so whichever is installed can be used.
type Engine string

const (
	EngineChrome   Engine = "chrome"
	EngineChromium Engine = "chromium"
	EngineEdge     Engine = "edge"
)

// execPathFor maps an engine to an executable. Empty means chromedp's
// default Chrome discovery.
func execPathFor(engine Engine) string {
	switch engine {
	case EngineChromium:
		return "chromium"
	case EngineEdge:
		return "microsoft-edge"
	default:
		return ""
	}
}

// ScraperConfig holds the acquisition engine configuration.
type ScraperConfig struct {
	Engine        Engine        `json:"engine"`
	Headless      bool          `json:"headless"`
	UserAgent     string        `json:"user_agent"`
	SymbolTimeout time.Duration `json:"symbol_timeout"` // bounded-wait budget per symbol
	NavigateWait  time.Duration `json:"navigate_wait"`  // settle time after navigation
	TabWait       time.Duration `json:"tab_wait"`       // settle time after each tab activation
}

// DefaultScraperConfig returns sensible defaults.
func DefaultScraperConfig() ScraperConfig {
	return ScraperConfig{
		Engine:        EngineChrome,
		Headless:      true,
		UserAgent:     DefaultUserAgent,
		SymbolTimeout: 8 * time.Second,
		NavigateWait:  1500 * time.Millisecond,
		TabWait:       600 * time.Millisecond,
	}
}

// Scraper acquires raw quote payload fragments for one symbol at a time
// through an ordered fallback chain: rendered navigation with response
// interception, tab-triggered completion, a bounded wait, a DOM text
// fallback, and finally direct API calls with forwarded cookies. Each
// Fetch owns an isolated browser session.
type Scraper struct {
	config ScraperConfig
	client *Client
	logger arbor.ILogger
}

// NewScraper creates an acquisition engine backed by the given direct
// API client for the final fallback strategy.
func NewScraper(config ScraperConfig, client *Client, logger arbor.ILogger) *Scraper {
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	return &Scraper{config: config, client: client, logger: logger}
}

// QuoteURL returns the rendered quote page for a symbol.
func QuoteURL(symbol string) string {
	return DefaultBaseURL + "/get-quotes/equity?symbol=" + url.QueryEscape(strings.ToUpper(symbol))
}

// Fetch returns the richest available fragment set for a symbol. Every
// strategy failure is absorbed and the accumulated fragments are always
// returned; an error is reported only when no strategy yielded anything.
func (s *Scraper) Fetch(ctx context.Context, symbol string) (map[string]any, error) {
	sym := strings.ToUpper(symbol)
	acc := newAccumulator(s.logger)

	browserErr := s.runBrowserSession(ctx, sym, acc)
	if browserErr != nil && s.logger != nil {
		s.logger.Warn().Err(browserErr).Str("symbol", sym).Msg("Browser acquisition failed, relying on direct endpoints")
	}

	// Strategy 5: direct endpoint fallback with forwarded cookies.
	if !acc.hasPrice() && s.client != nil {
		acc.merge(s.client.QuoteEquityAll(ctx, sym))
	}

	merged := acc.snapshot()
	if len(merged) == 0 && browserErr != nil {
		return merged, fmt.Errorf("all acquisition strategies failed for %s: %w", sym, browserErr)
	}
	return merged, nil
}

// runBrowserSession executes strategies 1-4 inside one browser session.
// Browser and allocator contexts are cancelled on every exit path.
func (s *Scraper) runBrowserSession(ctx context.Context, symbol string, acc *accumulator) error {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.config.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("lang", "en-IN"),
		chromedp.UserAgent(s.config.UserAgent),
		chromedp.WindowSize(1366, 900),
	)
	if path := execPathFor(s.config.Engine); path != "" {
		opts = append(opts, chromedp.ExecPath(path))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	s.interceptResponses(browserCtx, acc)

	// Strategy 1: rendered navigation. Intercepted responses populate
	// the accumulator as the page's own scripts fetch quote sections.
	navCtx, navCancel := context.WithTimeout(browserCtx, s.config.SymbolTimeout+15*time.Second)
	defer navCancel()

	err := chromedp.Run(navCtx,
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return emulation.SetTimezoneOverride("Asia/Kolkata").Do(ctx)
		}),
		chromedp.Navigate(QuoteURL(symbol)),
		chromedp.Sleep(s.config.NavigateWait),
	)
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}

	// Strategy 2: activate tabs to trigger the section XHRs the initial
	// load skipped.
	if !acc.hasCore() {
		s.activateTabs(navCtx)
	}

	// Strategy 3: bounded wait for pending responses.
	s.waitForCore(navCtx, acc)

	// Strategy 4: DOM text fallback for at least a last price.
	if !acc.hasPrice() {
		s.scrapeLastPriceFromDOM(navCtx, acc)
	}

	return nil
}

// interceptResponses passively captures every JSON response body the
// page receives and feeds it to the accumulator. Body retrieval must
// wait for EventLoadingFinished; fetching on EventResponseReceived races
// the browser's own buffering.
func (s *Scraper) interceptResponses(browserCtx context.Context, acc *accumulator) {
	var mu sync.Mutex
	pending := make(map[network.RequestID]string)

	chromedp.ListenTarget(browserCtx, func(ev any) {
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			if !strings.Contains(strings.ToLower(e.Response.MimeType), "json") {
				return
			}
			mu.Lock()
			pending[e.RequestID] = e.Response.URL
			mu.Unlock()

		case *network.EventLoadingFinished:
			mu.Lock()
			respURL, ok := pending[e.RequestID]
			delete(pending, e.RequestID)
			mu.Unlock()
			if !ok {
				return
			}

			id := e.RequestID
			common.SafeGo(s.logger, "fetchResponseBody", func() {
				c := chromedp.FromContext(browserCtx)
				if c == nil || c.Target == nil {
					return
				}
				body, err := network.GetResponseBody(id).Do(cdp.WithExecutor(browserCtx, c.Target))
				if err != nil {
					if s.logger != nil {
						s.logger.Trace().Err(err).Str("url", respURL).Msg("Failed to read response body")
					}
					return
				}
				acc.ingest(respURL, body)
			})
		}
	})
}

// Tab labels vary across page versions; matched fuzzily and
// case-insensitively.
var tabPatterns = []string{
	"price information|price info",
	"trade information|trade info",
	"securities information|security information",
	"order book",
	"corporate actions|announcements|corporate",
}

const clickTabJS = `(() => {
	const re = new RegExp(%q, "i");
	const candidates = document.querySelectorAll('[role="tab"], .nav-link, a, button');
	for (const el of candidates) {
		const label = (el.textContent || "").trim();
		if (label && label.length < 64 && re.test(label)) {
			el.click();
			return true;
		}
	}
	return false;
})()`

// activateTabs clicks through the known quote-page tabs so each
// triggers its section's XHR. Unmatched or slow tabs are non-fatal.
func (s *Scraper) activateTabs(taskCtx context.Context) {
	for _, pattern := range tabPatterns {
		tabCtx, cancel := context.WithTimeout(taskCtx, 1500*time.Millisecond)

		var clicked bool
		err := chromedp.Run(tabCtx, chromedp.Evaluate(fmt.Sprintf(clickTabJS, pattern), &clicked))
		cancel()

		if err != nil || !clicked {
			if s.logger != nil {
				s.logger.Trace().Str("tab", pattern).Bool("clicked", clicked).Msg("Tab activation skipped")
			}
			continue
		}

		settleCtx, cancelSettle := context.WithTimeout(taskCtx, s.config.TabWait+time.Second)
		_ = chromedp.Run(settleCtx, chromedp.Sleep(s.config.TabWait))
		cancelSettle()
	}
}

// waitForCore polls in fixed steps until both the price and order-book
// sections are populated or the per-symbol budget elapses. This is the
// only wall-clock suspension point per symbol.
func (s *Scraper) waitForCore(taskCtx context.Context, acc *accumulator) {
	const step = 400 * time.Millisecond

	budget := s.config.SymbolTimeout
	if budget < time.Second {
		budget = time.Second
	}
	deadline := time.Now().Add(budget)

	for time.Now().Before(deadline) {
		if acc.hasCore() {
			return
		}
		select {
		case <-taskCtx.Done():
			return
		case <-time.After(step):
		}
	}
}

var ltpLabelRe = regexp.MustCompile(`(?i)\b(LTP|Last Traded Price)\b`)

// scrapeLastPriceFromDOM best-effort extracts a visible last price from
// the rendered page when no JSON response supplied one.
func (s *Scraper) scrapeLastPriceFromDOM(taskCtx context.Context, acc *accumulator) {
	domCtx, cancel := context.WithTimeout(taskCtx, 5*time.Second)
	defer cancel()

	var html string
	if err := chromedp.Run(domCtx, chromedp.OuterHTML("html", &html)); err != nil {
		if s.logger != nil {
			s.logger.Debug().Err(err).Msg("DOM fallback failed to capture page")
		}
		return
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return
	}

	if ltp, ok := extractLastPrice(doc); ok {
		acc.merge(map[string]any{"priceInfo": map[string]any{"lastPrice": ltp}})
		if s.logger != nil {
			s.logger.Debug().Float64("ltp", ltp).Msg("Last price recovered from DOM text")
		}
	}
}

// extractLastPrice tries the quote page's known price element first,
// then any element whose label mentions LTP with an adjacent value.
func extractLastPrice(doc *goquery.Document) (float64, bool) {
	for _, sel := range []string{"#quoteLtp", ".quote-ltp", "[data-field='lastPrice']"} {
		if v, ok := coerce.Number(strings.TrimSpace(doc.Find(sel).First().Text())); ok && v != 0 {
			return v, true
		}
	}

	var found float64
	doc.Find("span, td, div, strong, label").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if !ltpLabelRe.MatchString(sel.Text()) || sel.Children().Length() > 0 {
			return true
		}
		if v, ok := coerce.Number(strings.TrimSpace(sel.Next().Text())); ok && v != 0 {
			found = v
			return false
		}
		return true
	})
	return found, found != 0
}

// accumulator is the thread-safe fragment store fed by the response
// interceptor. Merging is delegated to MergeFragment so the growth of
// the payload stays a pure fold over received fragments.
type accumulator struct {
	mu     sync.Mutex
	merged map[string]any
	logger arbor.ILogger
}

func newAccumulator(logger arbor.ILogger) *accumulator {
	return &accumulator{merged: map[string]any{}, logger: logger}
}

// ingest merges a response body when it is a JSON object that either
// came from the quote endpoint or carries a recognized section key.
func (a *accumulator) ingest(respURL string, body []byte) {
	if !gjson.ValidBytes(body) {
		return
	}
	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() {
		return
	}

	relevant := strings.Contains(respURL, "/api/quote-equity")
	if !relevant {
		for _, key := range fragmentKeys {
			if parsed.Get(key).Exists() {
				relevant = true
				break
			}
		}
	}
	if !relevant {
		return
	}

	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return
	}

	a.merge(obj)
	if a.logger != nil {
		a.logger.Trace().Str("url", respURL).Int("keys", len(obj)).Msg("Merged response fragment")
	}
}

func (a *accumulator) merge(obj map[string]any) {
	if len(obj) == 0 {
		return
	}
	a.mu.Lock()
	a.merged = MergeFragment(a.merged, obj)
	a.mu.Unlock()
}

func (a *accumulator) hasPrice() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return hasSection(a.merged, "priceInfo")
}

func (a *accumulator) hasCore() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return hasSection(a.merged, "priceInfo") && hasSection(a.merged, "marketDeptOrderBook")
}

// snapshot returns the accumulated fragments.
func (a *accumulator) snapshot() map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.merged
}
