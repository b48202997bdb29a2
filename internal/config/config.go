// Package config loads jimbo's YAML configuration and environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/phobologic/jimbo/internal/insertion"
	"github.com/phobologic/jimbo/internal/outline"
	"github.com/phobologic/jimbo/internal/session"
	"github.com/phobologic/jimbo/internal/snippet"
)

// DefaultPath is the config file read when none is given.
const DefaultPath = ".jimbo.yaml"

// ErrInvalid wraps validation failures.
var ErrInvalid = errors.New("invalid config")

// Config holds all jimbo configuration.
type Config struct {
	// Quotes is a JSON or YAML quote catalog; empty uses the built-in quotes.
	Quotes string `yaml:"quotes"`

	Watch     WatchConfig     `yaml:"watch"`
	Insertion InsertionConfig `yaml:"insertion"`
	Session   SessionConfig   `yaml:"session"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Outline   OutlineConfig   `yaml:"outline"`
	Rules     RulesConfig     `yaml:"rules"`
}

// WatchConfig configures the filesystem event source.
type WatchConfig struct {
	Languages   []string      `yaml:"languages,omitempty"`
	Ignore      []string      `yaml:"ignore,omitempty"`
	Debounce    time.Duration `yaml:"debounce"`
	MaxFileSize int64         `yaml:"max_file_size"`
}

// InsertionConfig holds the significant-insertion thresholds.
type InsertionConfig struct {
	MinChars         int `yaml:"min_chars"`
	SignificantChars int `yaml:"significant_chars"`
}

// SessionConfig holds the reaction timings.
type SessionConfig struct {
	Settle    time.Duration `yaml:"settle"`
	ClickHold time.Duration `yaml:"click_hold"`
}

// ServerConfig configures the HTTP adapter.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// OutlineConfig configures the tree-sitter outline cache.
type OutlineConfig struct {
	CacheSize int `yaml:"cache_size"`
}

// RulesConfig extends the classifier catalogs.
type RulesConfig struct {
	Actions []RuleConfig `yaml:"actions,omitempty"`
}

// RuleConfig is one extra action rule; Pattern is a case-insensitive regexp.
type RuleConfig struct {
	Label   string `yaml:"label"`
	Pattern string `yaml:"pattern"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Watch: WatchConfig{
			Debounce:    150 * time.Millisecond,
			MaxFileSize: 1_000_000,
		},
		Insertion: InsertionConfig{
			MinChars:         insertion.DefaultMinChars,
			SignificantChars: insertion.DefaultSignificantChars,
		},
		Session: SessionConfig{
			Settle:    session.DefaultSettle,
			ClickHold: session.DefaultClickHold,
		},
		Server: ServerConfig{
			Addr: ":7377",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Outline: OutlineConfig{
			CacheSize: outline.DefaultCacheSize,
		},
	}
}

// Load reads path over Default, then applies .env and JIMBO_* environment
// overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}

	_ = godotenv.Load()
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := strings.TrimSpace(os.Getenv("JIMBO_QUOTES")); v != "" {
		c.Quotes = v
	}
	if v := strings.TrimSpace(os.Getenv("JIMBO_ADDR")); v != "" {
		if !strings.Contains(v, ":") {
			v = ":" + v
		}
		c.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("JIMBO_LOG_LEVEL")); v != "" {
		c.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("JIMBO_SETTLE")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: JIMBO_SETTLE: %v", ErrInvalid, err)
		}
		c.Session.Settle = d
	}
	return nil
}

// Validate checks value ranges and compiles extra rules.
func (c *Config) Validate() error {
	if c.Insertion.MinChars < 0 || c.Insertion.SignificantChars < 0 {
		return fmt.Errorf("%w: insertion thresholds must not be negative", ErrInvalid)
	}
	if c.Session.Settle < 0 || c.Session.ClickHold < 0 || c.Watch.Debounce < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalid)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalid, c.Logging.Level)
	}
	if _, err := c.ActionRules(); err != nil {
		return err
	}
	return nil
}

// ActionRules compiles the configured extra action rules.
func (c *Config) ActionRules() ([]snippet.Rule, error) {
	rules := make([]snippet.Rule, 0, len(c.Rules.Actions))
	for _, rc := range c.Rules.Actions {
		r, err := snippet.CompileRule(rc.Label, rc.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// Detector returns the insertion detector for c.
func (c *Config) Detector() insertion.Detector {
	return insertion.Detector{
		MinChars:         c.Insertion.MinChars,
		SignificantChars: c.Insertion.SignificantChars,
	}
}

// Marshal renders c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
