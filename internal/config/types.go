package config

// LogLevel names a slog level in config files.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// Config is the top-level folio configuration, corresponding to .folio.yml.
type Config struct {
	// SiteDir is the local static site root. Ignored when BaseURL is set.
	SiteDir string `yaml:"site_dir" koanf:"site_dir"`
	// BaseURL fetches the site over HTTP instead of from SiteDir.
	BaseURL  string         `yaml:"base_url" koanf:"base_url"`
	Page     string         `yaml:"page" koanf:"page"`
	DBPath   string         `yaml:"db_path" koanf:"db_path"`
	Log      LogConfig      `yaml:"log" koanf:"log"`
	Fragment FragmentConfig `yaml:"fragment" koanf:"fragment"`
	Cache    CacheConfig    `yaml:"cache" koanf:"cache"`
	Deck     DeckConfig     `yaml:"deck" koanf:"deck"`
	Contact  ContactConfig  `yaml:"contact" koanf:"contact"`
	Server   ServerConfig   `yaml:"server" koanf:"server"`
}

// LogConfig controls the slog handlers built by the logging package.
type LogConfig struct {
	Level LogLevel `yaml:"level" koanf:"level"`
	File  string   `yaml:"file" koanf:"file"`
}

// FragmentConfig controls fragment fetching and injection.
type FragmentConfig struct {
	Attr           string `yaml:"attr" koanf:"attr"`
	TimeoutSeconds int    `yaml:"timeout_seconds" koanf:"timeout_seconds"`
	MaxBytes       int64  `yaml:"max_bytes" koanf:"max_bytes"`
	Sanitize       bool   `yaml:"sanitize" koanf:"sanitize"`
}

// CacheConfig controls the two-tier image cache.
type CacheConfig struct {
	Prefix          string   `yaml:"prefix" koanf:"prefix"`
	MaxPersistBytes int      `yaml:"max_persist_bytes" koanf:"max_persist_bytes"`
	StoreQuotaBytes int64    `yaml:"store_quota_bytes" koanf:"store_quota_bytes"`
	Include         []string `yaml:"include" koanf:"include"`
	Exclude         []string `yaml:"exclude" koanf:"exclude"`
}

// DeckConfig controls the stacking deck transform engine.
type DeckConfig struct {
	StickyOffset  float64 `yaml:"sticky_offset" koanf:"sticky_offset"`
	ArrivalWindow float64 `yaml:"arrival_window" koanf:"arrival_window"`
	TrackSelector string  `yaml:"track_selector" koanf:"track_selector"`
	CardSelector  string  `yaml:"card_selector" koanf:"card_selector"`
	FrameRate     int     `yaml:"frame_rate" koanf:"frame_rate"`
}

// ContactConfig points the contact form at its submission endpoint.
type ContactConfig struct {
	Endpoint string `yaml:"endpoint" koanf:"endpoint"`
}

// ServerConfig holds `folio serve` settings.
type ServerConfig struct {
	Port     int  `yaml:"port" koanf:"port"`
	AllowAll bool `yaml:"allow_all" koanf:"allow_all"`
}
