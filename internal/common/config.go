package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string        `toml:"environment"` // "development" or "production"
	Scan        ScanConfig    `toml:"scan"`
	Scraper     ScraperConfig `toml:"scraper"`
	Output      OutputConfig  `toml:"output"`
	Watch       WatchConfig   `toml:"watch"`
	Logging     LoggingConfig `toml:"logging"`
}

// ScanConfig controls a watchlist run.
type ScanConfig struct {
	WatchlistPath string   `toml:"watchlist_path" validate:"required"`
	Index         string   `toml:"index"`                                // Overrides the watchlist's index when set
	Concurrency   int      `toml:"concurrency" validate:"min=1,max=16"`  // Concurrent symbol scrapes
	TopN          int      `toml:"topn" validate:"min=0"`                // Per-view cap in the short message
	OnlyViews     []string `toml:"only_views"`                           // Views to include in the short message
}

// ScraperConfig controls the browser-based acquisition.
type ScraperConfig struct {
	Engine        string `toml:"engine" validate:"oneof=chrome chromium edge"`
	Headless      bool   `toml:"headless"`
	UserAgent     string `toml:"user_agent"`
	SymbolTimeout string `toml:"symbol_timeout"` // e.g., "8s" - per-symbol extra wait
	RateLimit     int    `toml:"rate_limit"`     // Direct API requests per second
}

// OutputConfig controls run artifacts.
type OutputConfig struct {
	JSONPath     string `toml:"json_path"`
	MarkdownPath string `toml:"markdown_path"`
	NoFiles      bool   `toml:"no_files"` // Skip writing artifacts
	Stdout       bool   `toml:"stdout"`   // Print the short message between markers
}

// WatchConfig controls scheduled re-scans.
type WatchConfig struct {
	Schedule string `toml:"schedule"` // Cron schedule format
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05.000")
}

// NewDefaultConfig creates a configuration with default values
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in nsescan.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Scan: ScanConfig{
			WatchlistPath: "watchlist.json",
			Concurrency:   3,
			TopN:          5,
			OnlyViews:     []string{"BUY", "WATCH", "AVOID"},
		},
		Scraper: ScraperConfig{
			Engine:        "chrome",
			Headless:      true,
			UserAgent:     "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
			SymbolTimeout: "8s",
			RateLimit:     2,
		},
		Output: OutputConfig{
			JSONPath:     "topdown_scan.json",
			MarkdownPath: "topdown_scan.md",
		},
		Watch: WatchConfig{
			Schedule: "*/15 9-15 * * 1-5", // Every 15 minutes across the trading day, weekdays
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
// Priority system: CLI flags > Environment variables > Config file > Defaults
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files. Later files
// override earlier files; environment variables override all files.
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

// Validate checks the structural constraints on the loaded config.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("NSESCAN_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Scan configuration
	if path := os.Getenv("NSESCAN_WATCHLIST"); path != "" {
		config.Scan.WatchlistPath = path
	}
	if index := os.Getenv("NSESCAN_INDEX"); index != "" {
		config.Scan.Index = index
	}
	if concurrency := os.Getenv("NSESCAN_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Scan.Concurrency = c
		}
	}
	if topn := os.Getenv("NSESCAN_TOPN"); topn != "" {
		if n, err := strconv.Atoi(topn); err == nil {
			config.Scan.TopN = n
		}
	}
	if views := os.Getenv("NSESCAN_ONLY_VIEWS"); views != "" {
		parsed := []string{}
		for _, v := range strings.Split(views, ",") {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				parsed = append(parsed, trimmed)
			}
		}
		if len(parsed) > 0 {
			config.Scan.OnlyViews = parsed
		}
	}

	// Scraper configuration
	if engine := os.Getenv("NSESCAN_ENGINE"); engine != "" {
		config.Scraper.Engine = engine
	}
	if headless := os.Getenv("NSESCAN_HEADLESS"); headless != "" {
		if h, err := strconv.ParseBool(headless); err == nil {
			config.Scraper.Headless = h
		}
	}
	if userAgent := os.Getenv("NSESCAN_USER_AGENT"); userAgent != "" {
		config.Scraper.UserAgent = userAgent
	}
	if timeout := os.Getenv("NSESCAN_SYMBOL_TIMEOUT"); timeout != "" {
		config.Scraper.SymbolTimeout = timeout
	}
	if rateLimit := os.Getenv("NSESCAN_RATE_LIMIT"); rateLimit != "" {
		if r, err := strconv.Atoi(rateLimit); err == nil {
			config.Scraper.RateLimit = r
		}
	}

	// Output configuration
	if path := os.Getenv("NSESCAN_JSON_OUT"); path != "" {
		config.Output.JSONPath = path
	}
	if path := os.Getenv("NSESCAN_MD_OUT"); path != "" {
		config.Output.MarkdownPath = path
	}
	if noFiles := os.Getenv("NSESCAN_NO_FILES"); noFiles != "" {
		if nf, err := strconv.ParseBool(noFiles); err == nil {
			config.Output.NoFiles = nf
		}
	}

	// Watch configuration
	if schedule := os.Getenv("NSESCAN_WATCH_SCHEDULE"); schedule != "" {
		config.Watch.Schedule = schedule
	}

	// Logging configuration
	if level := os.Getenv("NSESCAN_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("NSESCAN_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("NSESCAN_LOG_OUTPUT"); output != "" {
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
}

// ValidateWatchSchedule validates a cron schedule expression and ensures minimum 5-minute interval
func ValidateWatchSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	parts := strings.Fields(schedule)
	if len(parts) < 5 {
		return fmt.Errorf("invalid cron format: expected 5 fields")
	}

	minuteField := parts[0]

	if minuteField == "*" {
		return fmt.Errorf("schedule must have minimum 5-minute interval (every minute is not allowed)")
	}

	if strings.HasPrefix(minuteField, "*/") {
		intervalStr := strings.TrimPrefix(minuteField, "*/")
		interval, err := strconv.Atoi(intervalStr)
		if err == nil && interval < 5 {
			return fmt.Errorf("schedule interval must be at least 5 minutes, got %d", interval)
		}
	}

	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
