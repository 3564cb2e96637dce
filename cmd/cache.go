package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/folio/internal/kvstore"
	"github.com/ziadkadry99/folio/internal/progress"
	"github.com/ziadkadry99/folio/internal/walker"
)

var (
	cacheEphemeral   bool
	cacheConcurrency int
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Operate the image cache",
}

var cacheWarmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Preload every image in the site directory",
	Long: `Walks the site directory for images matching cache.include and not
matching cache.exclude, and loads each through the cache so it is persisted
for later sessions.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, closer, err := setupLogger(cfg)
		if err != nil {
			return err
		}
		defer closer.Close()

		assets, err := walker.Walk(walker.Config{
			RootDir: cfg.SiteDir,
			Include: cfg.Cache.Include,
			Exclude: cfg.Cache.Exclude,
			Kinds:   []walker.Kind{walker.KindImage},
		})
		if err != nil {
			return err
		}
		if len(assets) == 0 {
			fmt.Fprintf(os.Stderr, "No images found under %s\n", cfg.SiteDir)
			return nil
		}

		fetcher, err := newFetcher(cfg)
		if err != nil {
			return err
		}
		st, err := openStorage(cfg, cacheEphemeral)
		if err != nil {
			return err
		}
		defer st.Close()
		cache := newCache(cfg, st.Store, fetcher, logger)

		ids := make([]string, len(assets))
		for i, a := range assets {
			ids[i] = a.RelPath
		}
		res := cache.Warm(cmd.Context(), ids, cacheConcurrency, progress.NewReporter("Warming image cache"))
		stats := cache.Stats()

		fmt.Fprintf(os.Stderr, "Loaded %d images (%d persisted, %d too large to persist, %d write failures)\n",
			res.Loaded, stats.Persisted, stats.SkippedSize, stats.PersistFailed)
		for _, id := range res.Degraded {
			fmt.Fprintf(os.Stderr, "  unavailable: %s\n", id)
		}
		return nil
	},
}

var cacheGetCmd = &cobra.Command{
	Use:   "get <image>",
	Short: "Look an image up and print its handle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, closer, err := setupLogger(cfg)
		if err != nil {
			return err
		}
		defer closer.Close()

		fetcher, err := newFetcher(cfg)
		if err != nil {
			return err
		}
		st, err := openStorage(cfg, cacheEphemeral)
		if err != nil {
			return err
		}
		defer st.Close()
		cache := newCache(cfg, st.Store, fetcher, logger)
		defer cache.Flush()

		id := args[0]
		source := "cache"
		h, ok := cache.Get(cmd.Context(), id)
		if !ok {
			source = "fetched"
			h = cache.Populate(cmd.Context(), id)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"id":           h.ID,
			"key":          cache.Key(id),
			"source":       source,
			"content_type": h.ContentType,
			"width":        h.Width,
			"height":       h.Height,
			"size":         h.Size(),
			"degraded":     h.Degraded,
		})
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show what the persistent cache holds",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStorage(cfg, false)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := cmd.Context()
		keys, err := st.Store.Keys(ctx, cfg.Cache.Prefix)
		if err != nil {
			return err
		}
		out := map[string]any{
			"database": cfg.DBPath,
			"entries":  len(keys),
			"quota":    cfg.Cache.StoreQuotaBytes,
		}
		if sq, ok := st.Store.(*kvstore.SQLStore); ok {
			_, used, err := sq.Usage(ctx)
			if err != nil {
				return err
			}
			out["bytes"] = used
		}
		if verbose {
			out["keys"] = keys
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every persisted image",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, closer, err := setupLogger(cfg)
		if err != nil {
			return err
		}
		defer closer.Close()

		st, err := openStorage(cfg, false)
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := newCache(cfg, st.Store, nil, logger).Clear(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Removed %d cached images\n", n)
		return nil
	},
}

func init() {
	cacheCmd.PersistentFlags().BoolVar(&cacheEphemeral, "ephemeral", false, "use an in-memory store instead of the database")
	cacheWarmCmd.Flags().IntVar(&cacheConcurrency, "concurrency", 4, "images loaded at once")
	cacheCmd.AddCommand(cacheWarmCmd, cacheGetCmd, cacheStatsCmd, cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
