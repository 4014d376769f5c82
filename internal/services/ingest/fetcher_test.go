package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/common"
	"github.com/ternarybob/quanta/internal/models"
)

func testFetcher(t *testing.T, cacheTTL string) *Fetcher {
	t.Helper()

	fetcher, err := NewFetcher(&common.IngestConfig{
		CacheDir:  t.TempDir(),
		CacheTTL:  cacheTTL,
		UserAgent: "holdings-test/1.0",
		Timeout:   "5s",
	}, arbor.NewLogger())
	require.NoError(t, err)
	return fetcher
}

func csvSource(url string) models.HoldingsSource {
	return models.HoldingsSource{
		Ticker: "SPY",
		Name:   "SPDR S&P 500 ETF",
		URL:    url,
		Format: models.SourceFormatCSV,
	}
}

func TestFetchDownloadsAndCaches(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, "holdings-test/1.0", r.Header.Get("User-Agent"))
		w.Write([]byte("Ticker,Name\nAAPL,Apple\n"))
	}))
	defer server.Close()

	fetcher := testFetcher(t, "24h")
	source := csvSource(server.URL)

	path, fromCache, err := fetcher.Fetch(context.Background(), source, false)
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, 1, requests)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "AAPL")

	// Second fetch inside the TTL window reuses the cached file
	_, fromCache, err = fetcher.Fetch(context.Background(), source, false)
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Equal(t, 1, requests)
}

func TestFetchForceBypassesCache(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte("data"))
	}))
	defer server.Close()

	fetcher := testFetcher(t, "24h")
	source := csvSource(server.URL)

	_, _, err := fetcher.Fetch(context.Background(), source, false)
	require.NoError(t, err)
	_, fromCache, err := fetcher.Fetch(context.Background(), source, true)
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, 2, requests)
}

func TestFetchFallsBackToStaleCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "provider down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	fetcher := testFetcher(t, "1h")
	source := csvSource(server.URL)

	// Seed a cached file and age it past the TTL
	stale := fetcher.cachePath(source)
	require.NoError(t, os.WriteFile(stale, []byte("old data"), 0644))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	path, fromCache, err := fetcher.Fetch(context.Background(), source, false)
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Equal(t, stale, path)
}

func TestFetchFailsWithoutAnyData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := testFetcher(t, "1h")

	_, _, err := fetcher.Fetch(context.Background(), csvSource(server.URL), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no cached file available")
}

func TestFailedDownloadKeepsCacheDirClean(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	fetcher := testFetcher(t, "1h")
	_, _, err := fetcher.Fetch(context.Background(), csvSource(server.URL), false)
	require.Error(t, err)

	entries, err := filepath.Glob(filepath.Join(fetcher.cacheDir, "*"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}
