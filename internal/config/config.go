package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override. Nested keys use a double
// underscore: FOLIO_DECK__STICKY_OFFSET -> deck.sticky_offset.
const EnvPrefix = "FOLIO_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (FOLIO_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validLogLevels = map[LogLevel]bool{
	LogDebug: true,
	LogInfo:  true,
	LogWarn:  true,
	LogError: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.SiteDir == "" && c.BaseURL == "" {
		return fmt.Errorf("one of site_dir or base_url is required")
	}
	if c.BaseURL != "" && !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("invalid base_url %q: must be http or https", c.BaseURL)
	}
	if c.Page == "" {
		return fmt.Errorf("page is required")
	}
	if c.Log.Level != "" && !validLogLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.Log.Level)
	}
	if c.Fragment.Attr == "" {
		return fmt.Errorf("fragment.attr is required")
	}
	if c.Fragment.TimeoutSeconds < 0 {
		return fmt.Errorf("fragment.timeout_seconds must be non-negative")
	}
	if c.Cache.Prefix == "" {
		return fmt.Errorf("cache.prefix is required")
	}
	if c.Cache.MaxPersistBytes <= 0 {
		return fmt.Errorf("cache.max_persist_bytes must be positive")
	}
	if c.Deck.ArrivalWindow <= 0 || c.Deck.ArrivalWindow > 1 {
		return fmt.Errorf("deck.arrival_window must be in (0, 1]")
	}
	if c.Deck.FrameRate <= 0 {
		return fmt.Errorf("deck.frame_rate must be positive")
	}
	if c.Deck.TrackSelector == "" || c.Deck.CardSelector == "" {
		return fmt.Errorf("deck.track_selector and deck.card_selector are required")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	return nil
}
