package nse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the NSE web origin. The JSON API lives under
	// /api and refuses requests without the cookies the home page sets.
	DefaultBaseURL = "https://www.nseindia.com"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default request rate (requests per second).
	// NSE throttles aggressively; stay polite.
	DefaultRateLimit = 2

	// DefaultUserAgent is sent on direct API calls. The API rejects
	// requests with non-browser user agents.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"
)

// Sub-sections of the quote endpoint fetched individually when the base
// call leaves sections empty.
var quoteSections = []string{"", "trade_info", "price_info", "security_info"}

// Client is a direct NSE JSON API client. It keeps a cookie jar so the
// session cookies obtained by warming the home page are forwarded to
// subsequent API calls. One Client is shared by every pool worker, so
// all of its state is safe for concurrent use.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
	warmOnce   sync.Once
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL (used by tests).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client. A cookie jar is attached if
// the client has none.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithUserAgent overrides the user agent on all requests.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewClient creates a new NSE API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		userAgent: DefaultUserAgent,
		limiter:   rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err == nil {
			c.httpClient.Jar = jar
		}
	}

	return c
}

// WarmSession fetches the NSE home page so the server-set cookies land
// in the jar. The API endpoints reject cookie-less requests. Only the
// first caller performs the request; concurrent and repeat calls are
// no-ops.
func (c *Client) WarmSession(ctx context.Context) error {
	var err error
	c.warmOnce.Do(func() {
		err = c.warmSession(ctx)
	})
	return err
}

func (c *Client) warmSession(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("failed to create warm-up request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-IN,en;q=0.9")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("session warm-up failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	if c.logger != nil {
		c.logger.Debug().
			Int("status", resp.StatusCode).
			Int("cookies", len(c.httpClient.Jar.Cookies(req.URL))).
			Msg("NSE session warmed")
	}
	return nil
}

// getJSON performs a GET against an API path and decodes an object
// response. Numbers are kept as json.Number so field coercion decides
// their final representation.
func (c *Client) getJSON(ctx context.Context, path string) (map[string]any, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-IN,en;q=0.9")
	req.Header.Set("Referer", c.baseURL+"/")

	if c.logger != nil {
		c.logger.Debug().Str("path", path).Msg("NSE API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, path)
	}

	var obj map[string]any
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return obj, nil
}

// QuoteEquity fetches the quote payload for a symbol, optionally scoped
// to one section (trade_info, price_info, security_info).
func (c *Client) QuoteEquity(ctx context.Context, symbol, sectionName string) (map[string]any, error) {
	path := "/api/quote-equity?symbol=" + url.QueryEscape(symbol)
	if sectionName != "" {
		path += "&section=" + url.QueryEscape(sectionName)
	}
	return c.getJSON(ctx, path)
}

// QuoteEquityAll warms the session if needed and merges the base quote
// payload with every known sub-section. Individual endpoint failures are
// logged and skipped; the merged accumulator is always returned.
func (c *Client) QuoteEquityAll(ctx context.Context, symbol string) map[string]any {
	c.ensureWarm(ctx)

	merged := map[string]any{}
	for _, sec := range quoteSections {
		obj, err := c.QuoteEquity(ctx, symbol, sec)
		if err != nil {
			if c.logger != nil {
				c.logger.Debug().Err(err).Str("symbol", symbol).Str("section", sec).Msg("Quote endpoint failed")
			}
			continue
		}
		merged = MergeFragment(merged, obj)
	}
	return merged
}

// QuoteIndex fetches the benchmark index quote payload.
func (c *Client) QuoteIndex(ctx context.Context, indexName string) (map[string]any, error) {
	c.ensureWarm(ctx)
	return c.getJSON(ctx, "/api/quote-index?index="+url.QueryEscape(indexName))
}

// ensureWarm lazily warms the session before an API call. Warm-up
// failure is not fatal; the call proceeds without cookies.
func (c *Client) ensureWarm(ctx context.Context) {
	if err := c.WarmSession(ctx); err != nil && c.logger != nil {
		c.logger.Warn().Err(err).Msg("NSE session warm-up failed, continuing without cookies")
	}
}
