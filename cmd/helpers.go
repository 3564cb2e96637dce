package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/ziadkadry99/folio/internal/config"
	"github.com/ziadkadry99/folio/internal/db"
	"github.com/ziadkadry99/folio/internal/fetch"
	"github.com/ziadkadry99/folio/internal/imagecache"
	"github.com/ziadkadry99/folio/internal/kvstore"
	"github.com/ziadkadry99/folio/internal/logging"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `folio init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// setupLogger builds the process logger and installs it as the default.
// --verbose forces debug level.
func setupLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	logger, closer, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		logging.SetLevel(slog.LevelDebug)
	}
	slog.SetDefault(logger)
	return logger, closer, nil
}

// newFetcher reads the site over HTTP when a base URL is configured, else
// from the site directory.
func newFetcher(cfg *config.Config) (fetch.Fetcher, error) {
	if cfg.BaseURL == "" {
		if _, err := os.Stat(cfg.SiteDir); err != nil {
			return nil, fmt.Errorf("site directory: %w", err)
		}
		return fetch.NewDir(os.DirFS(cfg.SiteDir)), nil
	}
	return fetch.NewHTTP(fetch.HTTPConfig{
		BaseURL:  cfg.BaseURL,
		Timeout:  time.Duration(cfg.Fragment.TimeoutSeconds) * time.Second,
		MaxBytes: cfg.Fragment.MaxBytes,
	})
}

// storage is the persistent side of a command: the database, when one is
// open, and the key-value store the image cache persists into.
type storage struct {
	DB    *db.DB
	Store kvstore.Store
}

func (s *storage) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// openStorage opens the sqlite database, or an in-memory store when
// ephemeral is set.
func openStorage(cfg *config.Config, ephemeral bool) (*storage, error) {
	if ephemeral {
		return &storage{Store: kvstore.NewMemStore(cfg.Cache.StoreQuotaBytes)}, nil
	}
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return &storage{DB: database, Store: kvstore.NewSQLStore(database, cfg.Cache.StoreQuotaBytes)}, nil
}

func newCache(cfg *config.Config, store kvstore.Store, f fetch.Fetcher, logger *slog.Logger) *imagecache.Cache {
	return imagecache.New(store, f, imagecache.Options{
		Prefix:          cfg.Cache.Prefix,
		MaxPersistBytes: cfg.Cache.MaxPersistBytes,
		Logger:          logger,
	})
}
