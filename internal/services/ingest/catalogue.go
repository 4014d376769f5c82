package ingest

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quanta/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed sources.yaml
var embeddedSources []byte

type catalogueFile struct {
	Sources []models.HoldingsSource `yaml:"sources"`
}

// Catalogue is the validated provider list, keyed by ticker.
type Catalogue struct {
	sources map[string]models.HoldingsSource
	order   []string
}

// LoadCatalogue parses the embedded catalogue, or the file at path when set.
func LoadCatalogue(path string, logger arbor.ILogger) (*Catalogue, error) {
	data := embeddedSources
	origin := "embedded"

	if path != "" {
		fileData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read sources file: %w", err)
		}
		data = fileData
		origin = path
	}

	var file catalogueFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sources catalogue: %w", err)
	}
	if len(file.Sources) == 0 {
		return nil, fmt.Errorf("sources catalogue is empty")
	}

	catalogue := &Catalogue{sources: make(map[string]models.HoldingsSource, len(file.Sources))}
	for i := range file.Sources {
		source := file.Sources[i]
		source.Ticker = strings.ToUpper(strings.TrimSpace(source.Ticker))
		if err := source.Validate(); err != nil {
			return nil, fmt.Errorf("invalid catalogue entry %d: %w", i, err)
		}
		if _, exists := catalogue.sources[source.Ticker]; exists {
			return nil, fmt.Errorf("duplicate catalogue entry for %s", source.Ticker)
		}
		catalogue.sources[source.Ticker] = source
		catalogue.order = append(catalogue.order, source.Ticker)
	}

	logger.Debug().Str("origin", origin).Int("sources", len(catalogue.order)).Msg("Holdings source catalogue loaded")

	return catalogue, nil
}

// Source returns the catalogue entry for a ticker
func (c *Catalogue) Source(ticker string) (models.HoldingsSource, bool) {
	source, ok := c.sources[strings.ToUpper(strings.TrimSpace(ticker))]
	return source, ok
}

// Tickers returns all catalogue tickers in file order
func (c *Catalogue) Tickers() []string {
	tickers := make([]string, len(c.order))
	copy(tickers, c.order)
	return tickers
}
