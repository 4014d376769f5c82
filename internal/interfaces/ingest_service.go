package interfaces

import (
	"context"

	"github.com/ternarybob/quanta/internal/models"
)

// IngestService loads ETF holdings from the provider catalogue into the graph.
type IngestService interface {
	// Refresh downloads and loads holdings for the given tickers, or for the
	// whole catalogue when tickers is empty. Force bypasses the download
	// cache window.
	Refresh(ctx context.Context, tickers []string, force bool, trigger string) (*models.IngestSnapshot, error)

	// LastSnapshot returns the most recent refresh run, or nil when no run
	// has completed yet.
	LastSnapshot() (*models.IngestSnapshot, error)
}
