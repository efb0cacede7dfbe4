package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/neilberkman/docchat/internal/core/models"
)

const DefaultExportTemplate = `# {{title}}

Exported {{exported_at}}{{#created}} (started {{created}}, {{time_since}}){{/created}}. {{message_count}} messages.
{{#messages}}

## {{#is_user}}You{{/is_user}}{{#is_assistant}}Assistant{{/is_assistant}}{{#created}} ({{created}}){{/created}}

{{{content}}}
{{#has_sources}}

Sources:
{{#sources}}
- {{filename}}{{#score}} ({{score}}){{/score}}
{{/sources}}
{{/has_sources}}
{{/messages}}
`

const (
	DefaultAPIURL            = "http://localhost:8000"
	DefaultTimeout           = 60 * time.Second
	DefaultPageSize          = 100
	DefaultModelPollInterval = 2 * time.Second
	DefaultStatsCacheTTL     = 30 * time.Second
	DefaultLogLevel          = "info"

	// EnvAPIURL overrides api_url from the config file.
	EnvAPIURL = "DOCCHAT_API_URL"
)

type Config struct {
	Dir               string
	APIURL            string
	Timeout           time.Duration
	DefaultMode       models.ChatMode
	PageSize          int
	ModelPollInterval time.Duration
	StatsCacheTTL     time.Duration
	LogLevel          string
	ExportTemplate    string
}

type tomlConfig struct {
	APIURL            string `toml:"api_url"`
	Timeout           string `toml:"timeout"`
	DefaultMode       string `toml:"default_mode"`
	PageSize          int    `toml:"page_size"`
	ModelPollInterval string `toml:"model_poll_interval"`
	StatsCacheTTL     string `toml:"stats_cache_ttl"`
	LogLevel          string `toml:"log_level"`
}

// DefaultDir returns ~/.config/docchat.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".docchat")
	}
	return filepath.Join(home, ".config", "docchat")
}

// Default returns the built-in settings for dir.
func Default(dir string) *Config {
	return &Config{
		Dir:               dir,
		APIURL:            DefaultAPIURL,
		Timeout:           DefaultTimeout,
		DefaultMode:       models.ModeGeneral,
		PageSize:          DefaultPageSize,
		ModelPollInterval: DefaultModelPollInterval,
		StatsCacheTTL:     DefaultStatsCacheTTL,
		LogLevel:          DefaultLogLevel,
		ExportTemplate:    DefaultExportTemplate,
	}
}

// Load reads config from dir. A missing dir or file yields defaults;
// a malformed file is an error.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = DefaultDir()
	}
	cfg := Default(dir)

	tomlPath := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(tomlPath); err == nil {
		var tc tomlConfig
		if _, err := toml.DecodeFile(tomlPath, &tc); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", tomlPath, err)
		}
		if err := cfg.apply(tc); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", tomlPath, err)
		}
	}

	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		cfg.APIURL = v
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	// If custom template exists, use it
	if data, err := os.ReadFile(filepath.Join(dir, "export_template.md")); err == nil {
		cfg.ExportTemplate = string(data)
	}

	return cfg, nil
}

func (c *Config) apply(tc tomlConfig) error {
	if tc.APIURL != "" {
		c.APIURL = tc.APIURL
	}
	if tc.PageSize < 0 {
		return fmt.Errorf("page_size must be positive, got %d", tc.PageSize)
	}
	if tc.PageSize > 0 {
		c.PageSize = tc.PageSize
	}
	if tc.DefaultMode != "" {
		mode := models.ChatMode(strings.ToLower(tc.DefaultMode))
		if !mode.Valid() {
			return fmt.Errorf("default_mode must be %q or %q, got %q", models.ModeGeneral, models.ModeRAG, tc.DefaultMode)
		}
		c.DefaultMode = mode
	}
	if tc.LogLevel != "" {
		c.LogLevel = strings.ToLower(tc.LogLevel)
	}

	durations := []struct {
		key      string
		raw      string
		dst      *time.Duration
		positive bool
	}{
		{"timeout", tc.Timeout, &c.Timeout, false},
		{"model_poll_interval", tc.ModelPollInterval, &c.ModelPollInterval, true},
		{"stats_cache_ttl", tc.StatsCacheTTL, &c.StatsCacheTTL, false},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		if v < 0 {
			return fmt.Errorf("%s must not be negative", d.key)
		}
		if d.positive && v == 0 {
			return fmt.Errorf("%s must be greater than zero", d.key)
		}
		*d.dst = v
	}
	return nil
}

// DBPath is where session credentials are kept.
func (c *Config) DBPath() string {
	return filepath.Join(c.Dir, "docchat.db")
}

// LogPath is the rotated log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Dir, "logs", "docchat.log")
}
