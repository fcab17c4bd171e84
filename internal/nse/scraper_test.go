package nse

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulator_IngestQuoteEndpoint(t *testing.T) {
	acc := newAccumulator(nil)
	acc.ingest("https://www.nseindia.com/api/quote-equity?symbol=TCS",
		[]byte(`{"priceInfo":{"lastPrice":3500.0}}`))

	assert.True(t, acc.hasPrice())
	assert.False(t, acc.hasCore())
}

func TestAccumulator_IngestByRecognizedKey(t *testing.T) {
	acc := newAccumulator(nil)
	acc.ingest("https://www.nseindia.com/api/something-else",
		[]byte(`{"marketDeptOrderBook":{"totalBuyQuantity":100}}`))
	acc.ingest("https://www.nseindia.com/api/quote-equity?symbol=TCS&section=price_info",
		[]byte(`{"priceInfo":{"lastPrice":3500.0}}`))

	assert.True(t, acc.hasCore())
}

func TestAccumulator_IgnoresIrrelevantAndInvalid(t *testing.T) {
	acc := newAccumulator(nil)
	acc.ingest("https://cdn.example.com/analytics", []byte(`{"clicks":10}`))
	acc.ingest("https://www.nseindia.com/api/quote-equity", []byte(`not-json`))
	acc.ingest("https://www.nseindia.com/api/quote-equity", []byte(`[1,2,3]`))

	assert.Empty(t, acc.snapshot())
}

func TestAccumulator_LaterResponsesAugment(t *testing.T) {
	acc := newAccumulator(nil)
	acc.ingest("https://www.nseindia.com/api/quote-equity",
		[]byte(`{"priceInfo":{"lastPrice":100.0}}`))
	acc.ingest("https://www.nseindia.com/api/quote-equity?section=price_info",
		[]byte(`{"priceInfo":{"previousClose":98.0}}`))

	pi, ok := acc.snapshot()["priceInfo"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, pi, "lastPrice")
	assert.Contains(t, pi, "previousClose")
}

func TestExtractLastPrice_KnownElement(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<html><body><span id="quoteLtp">2,500.50</span></body></html>`))
	require.NoError(t, err)

	v, ok := extractLastPrice(doc)
	require.True(t, ok)
	assert.Equal(t, 2500.5, v)
}

func TestExtractLastPrice_LabelSibling(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<html><body><table><tr><td>LTP</td><td>₹ 1,234.50</td></tr></table></body></html>`))
	require.NoError(t, err)

	v, ok := extractLastPrice(doc)
	require.True(t, ok)
	assert.Equal(t, 1234.5, v)
}

func TestExtractLastPrice_Missing(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<html><body><p>no prices here</p></body></html>`))
	require.NoError(t, err)

	_, ok := extractLastPrice(doc)
	assert.False(t, ok)
}

func TestQuoteURL_EncodesSymbol(t *testing.T) {
	assert.Equal(t,
		"https://www.nseindia.com/get-quotes/equity?symbol=M%26MFIN",
		QuoteURL("m&mfin"))
}

func TestExecPathFor(t *testing.T) {
	assert.Equal(t, "", execPathFor(EngineChrome))
	assert.Equal(t, "chromium", execPathFor(EngineChromium))
	assert.Equal(t, "microsoft-edge", execPathFor(EngineEdge))
}
