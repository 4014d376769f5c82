package ingest

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/common"
	"github.com/ternarybob/quanta/internal/interfaces"
	"github.com/ternarybob/quanta/internal/models"
)

// Run triggers recorded on snapshots.
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
	TriggerStartup   = "startup"
)

// Service orchestrates fetch, parse, and load for the provider catalogue.
type Service struct {
	catalogue *Catalogue
	fetcher   *Fetcher
	loader    *Loader
	snapshots interfaces.SnapshotStorage
	logger    arbor.ILogger
}

var _ interfaces.IngestService = (*Service)(nil)

// NewService creates the ingest service from config
func NewService(cfg *common.IngestConfig, graph interfaces.GraphService, snapshots interfaces.SnapshotStorage, logger arbor.ILogger) (*Service, error) {
	catalogue, err := LoadCatalogue(cfg.SourcesFile, logger)
	if err != nil {
		return nil, err
	}

	fetcher, err := NewFetcher(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Service{
		catalogue: catalogue,
		fetcher:   fetcher,
		loader:    NewLoader(graph, logger),
		snapshots: snapshots,
		logger:    logger,
	}, nil
}

// Refresh downloads and loads holdings for the given tickers, or the whole
// catalogue when tickers is empty. A run with at least one successful ETF is
// reported as partial rather than failed.
func (s *Service) Refresh(ctx context.Context, tickers []string, force bool, trigger string) (*models.IngestSnapshot, error) {
	if len(tickers) == 0 {
		tickers = s.catalogue.Tickers()
	}

	runID := common.NewRunID()
	snapshot := &models.IngestSnapshot{
		ID:        runID,
		RunID:     runID,
		Trigger:   trigger,
		StartedAt: time.Now().UTC(),
	}

	s.logger.Info().
		Str("run_id", runID).
		Str("trigger", trigger).
		Int("tickers", len(tickers)).
		Bool("force", force).
		Msg("Starting holdings refresh")

	if err := s.loader.EnsureConstraints(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Constraint bootstrap failed, continuing with load")
	}

	succeeded := 0
	for _, ticker := range tickers {
		stats := s.refreshOne(ctx, ticker, force)
		snapshot.ETFs = append(snapshot.ETFs, stats)
		if stats.Error == "" {
			succeeded++
		}
	}

	snapshot.CompletedAt = time.Now().UTC()
	snapshot.DurationMs = snapshot.CompletedAt.Sub(snapshot.StartedAt).Milliseconds()

	switch {
	case succeeded == len(tickers):
		snapshot.Status = "success"
	case succeeded > 0:
		snapshot.Status = "partial"
	default:
		snapshot.Status = "failed"
		snapshot.Error = "no ETFs were loaded"
	}

	if s.snapshots != nil {
		if err := s.snapshots.SaveSnapshot(snapshot); err != nil {
			s.logger.Warn().Err(err).Str("run_id", runID).Msg("Failed to persist ingest snapshot")
		}
	}

	s.logger.Info().
		Str("run_id", runID).
		Str("status", snapshot.Status).
		Int("succeeded", succeeded).
		Int("failed", len(tickers)-succeeded).
		Dur("duration", snapshot.CompletedAt.Sub(snapshot.StartedAt)).
		Msg("Holdings refresh completed")

	if snapshot.Status == "failed" {
		return snapshot, fmt.Errorf("holdings refresh failed for all %d tickers", len(tickers))
	}
	return snapshot, nil
}

// LastSnapshot returns the most recent refresh run, or nil when none exists
func (s *Service) LastSnapshot() (*models.IngestSnapshot, error) {
	if s.snapshots == nil {
		return nil, nil
	}
	return s.snapshots.LatestSnapshot()
}

func (s *Service) refreshOne(ctx context.Context, ticker string, force bool) models.ETFLoadStats {
	source, ok := s.catalogue.Source(ticker)
	if !ok {
		return models.ETFLoadStats{Ticker: ticker, Error: fmt.Sprintf("ticker %s is not in the source catalogue", ticker)}
	}

	path, fromCache, err := s.fetcher.Fetch(ctx, source, force)
	if err != nil {
		s.logger.Error().Err(err).Str("ticker", source.Ticker).Msg("Holdings fetch failed")
		return models.ETFLoadStats{Ticker: source.Ticker, Error: err.Error()}
	}

	file, err := os.Open(path)
	if err != nil {
		return models.ETFLoadStats{Ticker: source.Ticker, Error: fmt.Sprintf("failed to open holdings file: %v", err)}
	}
	defer file.Close()

	holdings, skipped, err := ParseHoldingsCSV(file, source)
	if err != nil {
		s.logger.Error().Err(err).Str("ticker", source.Ticker).Msg("Holdings parse failed")
		return models.ETFLoadStats{Ticker: source.Ticker, Error: err.Error()}
	}
	if len(holdings) == 0 {
		return models.ETFLoadStats{Ticker: source.Ticker, Skipped: skipped, Error: "no holdings rows parsed"}
	}

	stats, err := s.loader.LoadHoldings(ctx, source, holdings)
	stats.Skipped = skipped
	if err != nil {
		s.logger.Error().Err(err).Str("ticker", source.Ticker).Msg("Holdings load failed")
		stats.Error = err.Error()
		return stats
	}

	s.logger.Debug().
		Str("ticker", source.Ticker).
		Bool("from_cache", fromCache).
		Int("holdings", stats.Holdings).
		Int("skipped", skipped).
		Msg("ETF refresh finished")

	return stats
}
