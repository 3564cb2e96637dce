package config

// DefaultImageIncludes are the asset globs preloaded by `folio cache warm`.
var DefaultImageIncludes = []string{
	"**/*.png",
	"**/*.jpg",
	"**/*.jpeg",
	"**/*.gif",
	"**/*.webp",
}

// DefaultImageExcludes are glob patterns never preloaded.
var DefaultImageExcludes = []string{
	"node_modules/**",
	".git/**",
	"**/*.min.*",
	"favicon*",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		SiteDir: ".",
		Page:    "index.html",
		DBPath:  ".folio/folio.db",
		Log: LogConfig{
			Level: LogInfo,
		},
		Fragment: FragmentConfig{
			Attr:           "data-include",
			TimeoutSeconds: 15,
			MaxBytes:       5 << 20,
		},
		Cache: CacheConfig{
			Prefix:          "img_cache_",
			MaxPersistBytes: 1 << 20,
			StoreQuotaBytes: 5 << 20,
			Include:         DefaultImageIncludes,
			Exclude:         DefaultImageExcludes,
		},
		Deck: DeckConfig{
			StickyOffset:  96,
			ArrivalWindow: 0.18,
			TrackSelector: "#stack-track",
			CardSelector:  ".stack-card",
			FrameRate:     60,
		},
		Contact: ContactConfig{
			Endpoint: "/api/contact",
		},
		Server: ServerConfig{
			Port: 8080,
		},
	}
}
