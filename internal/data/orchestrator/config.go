// File path: internal/data/orchestrator/config.go
package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nicodishanthj/ecomqa/internal/sqlite"
)

// Config controls where the store lives, which CSV files feed it and how
// questions are answered.
type Config struct {
	StorePath      string          `yaml:"store_path"`
	DataDir        string          `yaml:"data_dir"`
	Sources        []sqlite.Source `yaml:"sources"`
	QueryOnly      bool            `yaml:"query_only"`
	AskTimeout     time.Duration   `yaml:"ask_timeout"`
	ChartCacheSize int             `yaml:"chart_cache_size"`
	Provider       string          `yaml:"provider"`
	HistoryPath    string          `yaml:"history_path"`
}

// DefaultSources maps the three relations onto their CSV file names.
func DefaultSources() []sqlite.Source {
	return []sqlite.Source{
		{Table: "ad_sales", Path: "plasm.csv"},
		{Table: "total_sales", Path: "pltsm.csv"},
		{Table: "eligibility", Path: "plet.csv"},
	}
}

// DefaultConfig returns the baseline configuration used when no overrides are
// supplied.
func DefaultConfig() Config {
	return Config{
		StorePath:      "ecommerce_data.db",
		DataDir:        ".",
		ChartCacheSize: 128,
	}
}

// LoadConfig builds a Config from defaults, the optional ECOMQA_CONFIG_FILE
// and environment variables, in that order.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if path := strings.TrimSpace(os.Getenv("ECOMQA_CONFIG_FILE")); path != "" {
		fileCfg, err := loadConfigFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = cfg.Merge(fileCfg)
	}
	if value := strings.TrimSpace(os.Getenv("ECOMQA_STORE_PATH")); value != "" {
		cfg.StorePath = value
	}
	if value := strings.TrimSpace(os.Getenv("ECOMQA_DATA_DIR")); value != "" {
		cfg.DataDir = value
	}
	if value := strings.TrimSpace(os.Getenv("ECOMQA_SOURCES")); value != "" {
		sources, err := ParseSources(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse ECOMQA_SOURCES: %w", err)
		}
		cfg.Sources = sources
	}
	if value := strings.TrimSpace(os.Getenv("ECOMQA_QUERY_ONLY")); value != "" {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse ECOMQA_QUERY_ONLY: %w", err)
		}
		cfg.QueryOnly = enabled
	}
	if value := strings.TrimSpace(os.Getenv("ECOMQA_ASK_TIMEOUT")); value != "" {
		dur, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse ECOMQA_ASK_TIMEOUT: %w", err)
		}
		cfg.AskTimeout = dur
	}
	if value := strings.TrimSpace(os.Getenv("ECOMQA_CHART_CACHE")); value != "" {
		size, err := strconv.Atoi(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse ECOMQA_CHART_CACHE: %w", err)
		}
		cfg.ChartCacheSize = size
	}
	if value := strings.TrimSpace(os.Getenv("ECOMQA_LLM_PROVIDER")); value != "" {
		cfg.Provider = value
	}
	if value := strings.TrimSpace(os.Getenv("ECOMQA_HISTORY_PATH")); value != "" {
		cfg.HistoryPath = value
	}
	return applyDefaults(cfg), nil
}

// ParseSources parses "table=path,table=path".
func ParseSources(raw string) ([]sqlite.Source, error) {
	var sources []sqlite.Source
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		table, path, ok := strings.Cut(item, "=")
		table, path = strings.TrimSpace(table), strings.TrimSpace(path)
		if !ok || table == "" || path == "" {
			return nil, fmt.Errorf("invalid source %q, want table=path", item)
		}
		sources = append(sources, sqlite.Source{Table: table, Path: path})
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no sources in %q", raw)
	}
	return sources, nil
}

// Merge overlays the non-zero fields of override onto c.
func (c Config) Merge(override Config) Config {
	result := c
	if strings.TrimSpace(override.StorePath) != "" {
		result.StorePath = strings.TrimSpace(override.StorePath)
	}
	if strings.TrimSpace(override.DataDir) != "" {
		result.DataDir = strings.TrimSpace(override.DataDir)
	}
	if len(override.Sources) > 0 {
		result.Sources = append([]sqlite.Source(nil), override.Sources...)
	}
	if override.QueryOnly {
		result.QueryOnly = true
	}
	if override.AskTimeout > 0 {
		result.AskTimeout = override.AskTimeout
	}
	if override.ChartCacheSize > 0 {
		result.ChartCacheSize = override.ChartCacheSize
	}
	if strings.TrimSpace(override.Provider) != "" {
		result.Provider = strings.TrimSpace(override.Provider)
	}
	if strings.TrimSpace(override.HistoryPath) != "" {
		result.HistoryPath = strings.TrimSpace(override.HistoryPath)
	}
	return result
}

// ResolvedSources returns the configured sources, or the defaults, with
// relative paths joined onto DataDir.
func (c Config) ResolvedSources() []sqlite.Source {
	sources := c.Sources
	if len(sources) == 0 {
		sources = DefaultSources()
	}
	out := make([]sqlite.Source, len(sources))
	for i, src := range sources {
		path := src.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(c.DataDir, path)
		}
		out[i] = sqlite.Source{Table: src.Table, Path: path}
	}
	return out
}

func loadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func applyDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if strings.TrimSpace(cfg.StorePath) == "" {
		cfg.StorePath = defaults.StorePath
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = defaults.DataDir
	}
	if cfg.ChartCacheSize <= 0 {
		cfg.ChartCacheSize = defaults.ChartCacheSize
	}
	if cfg.AskTimeout < 0 {
		cfg.AskTimeout = 0
	}
	return cfg
}

func (c Config) validate() error {
	if strings.TrimSpace(c.StorePath) == "" {
		return fmt.Errorf("store path required")
	}
	seen := make(map[string]bool)
	for _, src := range c.ResolvedSources() {
		key := strings.ToLower(strings.TrimSpace(src.Table))
		if key == "" {
			return fmt.Errorf("source %q has no table name", src.Path)
		}
		if seen[key] {
			return fmt.Errorf("table %q listed twice", src.Table)
		}
		seen[key] = true
	}
	return nil
}
