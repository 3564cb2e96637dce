package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/folio/internal/config"
	"github.com/ziadkadry99/folio/internal/dom"
	"github.com/ziadkadry99/folio/internal/fetch"
	"github.com/ziadkadry99/folio/internal/fragment"
	"github.com/ziadkadry99/folio/internal/imagecache"
	"github.com/ziadkadry99/folio/internal/page"
	"github.com/ziadkadry99/folio/internal/stackfx"
)

var (
	assembleOut       string
	assembleEphemeral bool
	assembleNoImages  bool
	assembleReport    bool
	assembleScroll    float64
	assembleLayout    stackfx.Layout
)

var assembleCmd = &cobra.Command{
	Use:   "assemble [page]",
	Short: "Assemble a page headlessly and print the hydrated HTML",
	Long: `Loads the page and every fragment it references, then runs the full
activation: reveal targets, contact form, overlay, card image preloading and
the deck pose. The resulting document is printed, or written to --out.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if len(args) == 1 {
			cfg.Page = args[0]
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

		var cache *imagecache.Cache
		if !assembleNoImages {
			st, err := openStorage(cfg, assembleEphemeral)
			if err != nil {
				return err
			}
			defer st.Close()
			cache = newCache(cfg, st.Store, fetcher, logger)
			defer cache.Flush()
		}

		frames := &stackfx.ManualFrames{}
		ctx := cmd.Context()
		pc, err := assemblePage(ctx, cfg, fetcher, cache, page.Options{
			Layout: assembleLayout,
			Frames: frames,
			Logger: logger,
		})
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("scroll") {
			pc.OnScroll(assembleScroll)
			frames.Flush()
		}

		html := pc.Doc.String()
		if assembleOut != "" {
			if err := os.WriteFile(assembleOut, []byte(html), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", assembleOut, err)
			}
			fmt.Fprintf(os.Stderr, "Wrote %s (%d fragments, %d errors, %d cards)\n",
				assembleOut, pc.Fragments.Loaded, pc.Fragments.Failed, len(pc.Cards))
		} else {
			fmt.Println(html)
		}

		if assembleReport {
			enc := json.NewEncoder(os.Stderr)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Fragments fragment.Report     `json:"fragments"`
				Cards     []page.CardConfig   `json:"cards"`
				Preloaded int                 `json:"preloaded"`
				Cache     *imagecache.Stats   `json:"cache,omitempty"`
				Pose      []stackfx.Transform `json:"pose,omitempty"`
			}{
				Fragments: pc.Fragments,
				Cards:     pc.Cards,
				Preloaded: pc.Preloaded,
				Cache:     statsOf(cache),
				Pose:      poseOf(pc),
			})
		}
		return nil
	},
}

// assemblePage fetches cfg.Page and activates it.
func assemblePage(ctx context.Context, cfg *config.Config, f fetch.Fetcher, cache *imagecache.Cache, opts page.Options) (*page.Context, error) {
	resp, err := f.Fetch(ctx, cfg.Page)
	if err != nil {
		return nil, fmt.Errorf("fetching page %s: %w", cfg.Page, err)
	}
	if !resp.OK {
		return nil, fmt.Errorf("fetching page %s: %d %s", cfg.Page, resp.Status, resp.StatusText)
	}
	doc, err := dom.Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("parsing page %s: %w", cfg.Page, err)
	}

	opts.Fragment = fragment.Options{
		Attr:     cfg.Fragment.Attr,
		Sanitize: cfg.Fragment.Sanitize,
		Logger:   opts.Logger,
	}
	opts.Deck = stackfx.Params{StickyOffset: cfg.Deck.StickyOffset, ArrivalWindow: cfg.Deck.ArrivalWindow}
	opts.TrackSelector = cfg.Deck.TrackSelector
	opts.CardSelector = cfg.Deck.CardSelector
	opts.ContactEndpoint = cfg.Contact.Endpoint
	opts.SkipPreload = opts.SkipPreload || cache == nil
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return page.NewController(f, cache, opts).Activate(ctx, doc)
}

func statsOf(c *imagecache.Cache) *imagecache.Stats {
	if c == nil {
		return nil
	}
	s := c.Stats()
	return &s
}

func poseOf(pc *page.Context) []stackfx.Transform {
	if pc.Engine == nil {
		return nil
	}
	pose, _ := pc.Engine.Last()
	return pose
}

func init() {
	assembleCmd.Flags().StringVarP(&assembleOut, "out", "o", "", "write the assembled HTML to this file")
	assembleCmd.Flags().BoolVar(&assembleEphemeral, "ephemeral", false, "keep the image cache in memory only")
	assembleCmd.Flags().BoolVar(&assembleNoImages, "no-images", false, "skip card image preloading")
	assembleCmd.Flags().BoolVar(&assembleReport, "report", false, "print a JSON activation report to stderr")
	assembleCmd.Flags().Float64Var(&assembleScroll, "scroll", 0, "pose the deck at this scroll offset")
	assembleCmd.Flags().Float64Var(&assembleLayout.TrackOffset, "track-offset", 0, "track top in page coordinates")
	assembleCmd.Flags().Float64Var(&assembleLayout.TrackHeight, "track-height", 0, "track height in pixels")
	assembleCmd.Flags().Float64Var(&assembleLayout.ViewportHeight, "viewport", 0, "viewport height in pixels")
	rootCmd.AddCommand(assembleCmd)
}
