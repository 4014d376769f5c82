package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/common"
	"github.com/ternarybob/quanta/internal/models"
)

// Fetcher downloads provider holdings files with a TTL-based disk cache.
// A stale cached file is still used when the provider is unreachable.
type Fetcher struct {
	client    *http.Client
	cacheDir  string
	cacheTTL  time.Duration
	userAgent string
	logger    arbor.ILogger
}

// NewFetcher creates a fetcher and ensures the cache directory exists
func NewFetcher(cfg *common.IngestConfig, logger arbor.ILogger) (*Fetcher, error) {
	if err := os.MkdirAll(cfg.CacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download cache directory: %w", err)
	}

	return &Fetcher{
		client:    &http.Client{Timeout: common.Duration(cfg.Timeout, 60*time.Second)},
		cacheDir:  cfg.CacheDir,
		cacheTTL:  common.Duration(cfg.CacheTTL, 24*time.Hour),
		userAgent: cfg.UserAgent,
		logger:    logger,
	}, nil
}

// Fetch returns the local path of the holdings file for a source. The cached
// copy is reused while younger than the cache TTL unless force is set.
func (f *Fetcher) Fetch(ctx context.Context, source models.HoldingsSource, force bool) (string, bool, error) {
	path := f.cachePath(source)

	if !force && f.cacheFresh(path) {
		f.logger.Debug().Str("ticker", source.Ticker).Str("path", path).Msg("Using cached holdings file")
		return path, true, nil
	}

	if err := f.download(ctx, source, path); err != nil {
		// Stale cache beats no data when the provider is down
		if _, statErr := os.Stat(path); statErr == nil {
			f.logger.Warn().Err(err).Str("ticker", source.Ticker).Msg("Download failed, falling back to stale cached file")
			return path, true, nil
		}
		return "", false, fmt.Errorf("download failed for %s and no cached file available: %w", source.Ticker, err)
	}

	return path, false, nil
}

func (f *Fetcher) cachePath(source models.HoldingsSource) string {
	return filepath.Join(f.cacheDir, fmt.Sprintf("%s_holdings.%s", source.Ticker, source.Format))
}

func (f *Fetcher) cacheFresh(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) < f.cacheTTL
}

func (f *Fetcher) download(ctx context.Context, source models.HoldingsSource, path string) error {
	f.logger.Info().Str("ticker", source.Ticker).Str("url", source.URL).Msg("Downloading holdings file")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	// Write to a temp file first so a failed download never clobbers a
	// usable cached copy.
	tmp, err := os.CreateTemp(f.cacheDir, source.Ticker+"-*.download")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	written, err := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write holdings file: %w", err)
	}
	if closeErr != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close holdings file: %w", closeErr)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to move holdings file into cache: %w", err)
	}

	f.logger.Info().Str("ticker", source.Ticker).Int64("bytes", written).Str("path", path).Msg("Holdings file downloaded")
	return nil
}
