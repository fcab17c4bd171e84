package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWatchlist(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "watchlist.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadWatchlist(t *testing.T) {
	path := writeWatchlist(t, `{"symbols": ["reliance", "TCS", "reliance"], "index": "NIFTY BANK"}`)

	wl, err := LoadWatchlist(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"RELIANCE", "TCS"}, wl.Symbols)
	assert.Equal(t, "NIFTY BANK", wl.Index)
}

func TestLoadWatchlist_DefaultIndex(t *testing.T) {
	path := writeWatchlist(t, `{"symbols": ["INFY"]}`)

	wl, err := LoadWatchlist(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultIndex, wl.Index)
}

func TestLoadWatchlist_EmptyIsAnError(t *testing.T) {
	path := writeWatchlist(t, `{"symbols": []}`)

	_, err := LoadWatchlist(path)
	assert.Error(t, err)
}

func TestLoadWatchlist_MissingFile(t *testing.T) {
	_, err := LoadWatchlist(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestDedupSymbols(t *testing.T) {
	got := DedupSymbols([]string{" tcs ", "TCS", "", "m&mfin", "INFY", "infy"})
	assert.Equal(t, []string{"TCS", "M&MFIN", "INFY"}, got)
}
