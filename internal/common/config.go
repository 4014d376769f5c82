package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Logging     LoggingConfig   `toml:"logging"`
	Graph       GraphConfig     `toml:"graph"`
	LLM         LLMConfig       `toml:"llm"`
	Pipeline    PipelineConfig  `toml:"pipeline"`
	Storage     StorageConfig   `toml:"storage"`
	Ingest      IngestConfig    `toml:"ingest"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

// GraphConfig holds the Neo4j connection settings.
type GraphConfig struct {
	URI        string `toml:"uri"`
	Username   string `toml:"username"`
	Password   string `toml:"password"`
	Database   string `toml:"database"`
	Timeout    string `toml:"timeout"`     // per-query timeout, e.g. "30s"
	MaxRetries int    `toml:"max_retries"` // connection retry attempts on transient failure
}

// LLMProvider identifies which completion backend is active.
type LLMProvider string

const (
	ProviderOllama LLMProvider = "ollama"
	ProviderGemini LLMProvider = "gemini"
	ProviderClaude LLMProvider = "claude"
)

type LLMConfig struct {
	Provider  LLMProvider  `toml:"provider"`   // "ollama", "gemini" or "claude"
	RateLimit float64      `toml:"rate_limit"` // provider calls per second
	RateBurst int          `toml:"rate_burst"`
	Ollama    OllamaConfig `toml:"ollama"`
	Gemini    GeminiConfig `toml:"gemini"`
	Claude    ClaudeConfig `toml:"claude"`
}

type OllamaConfig struct {
	Host    string `toml:"host"`
	Model   string `toml:"model"`
	Timeout string `toml:"timeout"`
}

type GeminiConfig struct {
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	Timeout string `toml:"timeout"`
}

type ClaudeConfig struct {
	APIKey    string `toml:"api_key"`
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
	Timeout   string `toml:"timeout"`
}

// PipelineConfig tunes the query pipeline. Defaults mirror the behaviour the
// rest of the system is calibrated against; change with care.
type PipelineConfig struct {
	ConfidenceThreshold float64 `toml:"confidence_threshold"` // below this, fall back to comprehensive data
	DefaultTopN         int     `toml:"default_top_n"`
	MaxTopN             int     `toml:"max_top_n"`
	DefaultThreshold    float64 `toml:"default_threshold"` // sector weight threshold when none given
	SynthesisMode       string  `toml:"synthesis_mode"`    // "standard" or "analyst"

	ClassificationCacheTTL  string `toml:"classification_cache_ttl"`
	ClassificationCacheSize int    `toml:"classification_cache_size"`
	ComprehensiveCacheTTL   string `toml:"comprehensive_cache_ttl"`
	ResponseCacheTTL        string `toml:"response_cache_ttl"`
	ResponseCacheSize       int    `toml:"response_cache_size"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// IngestConfig controls the holdings download and load path.
type IngestConfig struct {
	SourcesFile string `toml:"sources_file"` // optional override for the embedded provider catalogue
	CacheDir    string `toml:"cache_dir"`    // downloaded files land here
	CacheTTL    string `toml:"cache_ttl"`    // reuse downloads younger than this
	UserAgent   string `toml:"user_agent"`
	Timeout     string `toml:"timeout"`
	OnStartup   bool   `toml:"on_startup"` // run a refresh when the server starts
}

type SchedulerConfig struct {
	Enabled         bool   `toml:"enabled"`
	RefreshSchedule string `toml:"refresh_schedule"` // cron format
	GCSchedule      string `toml:"gc_schedule"`      // cron format
}

func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Graph: GraphConfig{
			URI:        "bolt://localhost:7687",
			Username:   "neo4j",
			Password:   "password",
			Database:   "neo4j",
			Timeout:    "30s",
			MaxRetries: 3,
		},
		LLM: LLMConfig{
			Provider:  ProviderOllama,
			RateLimit: 2, // two provider calls per second is plenty for a single pipeline
			RateBurst: 4,
			Ollama: OllamaConfig{
				Host:    "http://localhost:11434",
				Model:   "qwen2.5:3b",
				Timeout: "30s",
			},
			Gemini: GeminiConfig{
				Model:   "gemini-2.0-flash",
				Timeout: "30s",
			},
			Claude: ClaudeConfig{
				Model:     "claude-3-5-haiku-latest",
				MaxTokens: 1024,
				Timeout:   "30s",
			},
		},
		Pipeline: PipelineConfig{
			ConfidenceThreshold:     0.6,
			DefaultTopN:             10,
			MaxTopN:                 50,
			DefaultThreshold:        0.05,
			SynthesisMode:           "standard",
			ClassificationCacheTTL:  "1h",
			ClassificationCacheSize: 100,
			ComprehensiveCacheTTL:   "10h",
			ResponseCacheTTL:        "5h",
			ResponseCacheSize:       100,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Ingest: IngestConfig{
			CacheDir:  "./data/downloads",
			CacheTTL:  "24h",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Timeout:   "60s",
			OnStartup: false,
		},
		Scheduler: SchedulerConfig{
			Enabled:         false,
			RefreshSchedule: "30 5 * * *", // daily, after providers publish updated holdings
			GCSchedule:      "15 * * * *",
		},
	}
}

// LoadFromFile loads configuration from a single file, or defaults when path is empty.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env -> CLI.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("QUANTA_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("QUANTA_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("QUANTA_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Logging configuration
	if level := os.Getenv("QUANTA_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("QUANTA_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Graph configuration
	if uri := os.Getenv("QUANTA_GRAPH_URI"); uri != "" {
		config.Graph.URI = uri
	}
	if user := os.Getenv("QUANTA_GRAPH_USERNAME"); user != "" {
		config.Graph.Username = user
	}
	if pass := os.Getenv("QUANTA_GRAPH_PASSWORD"); pass != "" {
		config.Graph.Password = pass
	}
	if db := os.Getenv("QUANTA_GRAPH_DATABASE"); db != "" {
		config.Graph.Database = db
	}

	// LLM configuration
	if provider := os.Getenv("QUANTA_LLM_PROVIDER"); provider != "" {
		config.LLM.Provider = LLMProvider(provider)
	}
	if host := os.Getenv("QUANTA_OLLAMA_HOST"); host != "" {
		config.LLM.Ollama.Host = host
	}
	if model := os.Getenv("QUANTA_OLLAMA_MODEL"); model != "" {
		config.LLM.Ollama.Model = model
	}
	if key := os.Getenv("QUANTA_GEMINI_API_KEY"); key != "" {
		config.LLM.Gemini.APIKey = key
	}
	if key := os.Getenv("QUANTA_CLAUDE_API_KEY"); key != "" {
		config.LLM.Claude.APIKey = key
	}

	// Storage configuration
	if badgerPath := os.Getenv("QUANTA_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Ingest and scheduler
	if dir := os.Getenv("QUANTA_INGEST_CACHE_DIR"); dir != "" {
		config.Ingest.CacheDir = dir
	}
	if enabled := os.Getenv("QUANTA_SCHEDULER_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.Scheduler.Enabled = b
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks settings that would otherwise fail at first use.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderOllama, ProviderGemini, ProviderClaude:
	default:
		return fmt.Errorf("unknown llm provider %q (expected ollama, gemini or claude)", c.LLM.Provider)
	}

	if c.Pipeline.ConfidenceThreshold < 0 || c.Pipeline.ConfidenceThreshold > 1 {
		return fmt.Errorf("pipeline.confidence_threshold must be in [0,1], got %v", c.Pipeline.ConfidenceThreshold)
	}
	if c.Pipeline.MaxTopN < 1 {
		return fmt.Errorf("pipeline.max_top_n must be at least 1, got %d", c.Pipeline.MaxTopN)
	}

	for _, d := range []struct {
		name  string
		value string
	}{
		{"graph.timeout", c.Graph.Timeout},
		{"ingest.cache_ttl", c.Ingest.CacheTTL},
		{"pipeline.classification_cache_ttl", c.Pipeline.ClassificationCacheTTL},
		{"pipeline.comprehensive_cache_ttl", c.Pipeline.ComprehensiveCacheTTL},
		{"pipeline.response_cache_ttl", c.Pipeline.ResponseCacheTTL},
	} {
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("%s: invalid duration %q: %w", d.name, d.value, err)
		}
	}

	if c.Scheduler.Enabled {
		for _, s := range []struct {
			name  string
			value string
		}{
			{"scheduler.refresh_schedule", c.Scheduler.RefreshSchedule},
			{"scheduler.gc_schedule", c.Scheduler.GCSchedule},
		} {
			if err := ValidateSchedule(s.value); err != nil {
				return fmt.Errorf("%s: %w", s.name, err)
			}
		}
	}

	return nil
}

// ValidateSchedule validates a cron schedule expression.
func ValidateSchedule(schedule string) error {
	if strings.TrimSpace(schedule) == "" {
		return fmt.Errorf("schedule cannot be empty")
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}

// Duration parses a config duration string, returning fallback on error.
// Config validation catches bad values at load time, so the fallback only
// covers structs built by hand in tests.
func Duration(value string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return fallback
}

// IsProduction returns true when running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}
