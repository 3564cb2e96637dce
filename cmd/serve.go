package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/folio/internal/page"
	"github.com/ziadkadry99/folio/internal/server"
	"github.com/ziadkadry99/folio/internal/stackfx"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the site with the deck, image and contact APIs",
	Long: `Serves the static site directory as-is (fragments are still fetched by
the browser) alongside the runtime APIs: /api/deck, /ws/deck,
/api/images/*, /api/cache/stats, /api/contact, /metrics and /healthz.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.BaseURL != "" {
			return fmt.Errorf("serve needs a local site_dir; base_url %s is set", cfg.BaseURL)
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
		st, err := openStorage(cfg, false)
		if err != nil {
			return err
		}
		defer st.Close()
		cache := newCache(cfg, st.Store, fetcher, logger)
		defer cache.Flush()

		// Count the deck once so /api/deck and /ws/deck work without a
		// cards parameter. The assembled document itself is discarded.
		cards := 0
		if pc, err := assemblePage(cmd.Context(), cfg, fetcher, nil, page.Options{Logger: logger, SkipPreload: true}); err != nil {
			logger.Warn("could not assemble page; deck requests must name a card count", "page", cfg.Page, "error", err)
		} else {
			cards = len(pc.Cards)
		}

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}
		srv := server.New(server.Config{
			Port:      port,
			SiteDir:   cfg.SiteDir,
			AllowAll:  cfg.Server.AllowAll,
			Deck:      stackfx.Params{StickyOffset: cfg.Deck.StickyOffset, ArrivalWindow: cfg.Deck.ArrivalWindow},
			Cards:     cards,
			FrameRate: cfg.Deck.FrameRate,
		}, st.DB, cache, logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		fmt.Fprintf(os.Stderr, "folio %s serving %s on port %d\n", Version, cfg.SiteDir, port)
		fmt.Fprintf(os.Stderr, "  Database: %s\n", cfg.DBPath)
		fmt.Fprintf(os.Stderr, "  Deck cards: %d\n", cards)

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "port to listen on (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}
