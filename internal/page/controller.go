// Package page activates a fragment-assembled page: it settles every
// fragment, then wires the features that depend on the final document.
package page

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/folio/internal/contact"
	"github.com/ziadkadry99/folio/internal/dom"
	"github.com/ziadkadry99/folio/internal/fetch"
	"github.com/ziadkadry99/folio/internal/fragment"
	"github.com/ziadkadry99/folio/internal/imagecache"
	"github.com/ziadkadry99/folio/internal/modal"
	"github.com/ziadkadry99/folio/internal/reveal"
	"github.com/ziadkadry99/folio/internal/stackfx"
)

const (
	DefaultTrackSelector = "#stack-track"
	DefaultCardSelector  = ".stack-card"

	preloadConcurrency = 4
)

var (
	// ErrNoCard is returned for an out-of-range card index.
	ErrNoCard = errors.New("no such card")
	// ErrNoForm is returned when submitting on a page without a form.
	ErrNoForm = errors.New("page has no contact form")
	// ErrNoEndpoint is returned when submitting without a sender or a
	// contact endpoint.
	ErrNoEndpoint = errors.New("no contact endpoint configured")
)

// Options configures a Controller.
type Options struct {
	Fragment      fragment.Options
	Reveal        reveal.Options
	Deck          stackfx.Params
	TrackSelector string
	CardSelector  string
	// Layout is the initial track measurement. Headless runs keep the
	// zero layout, which poses the deck at progress 0.
	Layout stackfx.Layout
	// Frames schedules deck recomputations. Nil gets a ManualFrames.
	Frames          stackfx.FrameScheduler
	FormSelector    string
	ContactEndpoint string
	// SkipPreload leaves card images to be loaded on demand.
	SkipPreload bool
	Logger      *slog.Logger
}

// Controller runs page activation.
type Controller struct {
	fetcher fetch.Fetcher
	cache   *imagecache.Cache
	opts    Options
}

// NewController creates a Controller. cache may be nil, in which case card
// images are neither preloaded nor shown in the overlay.
func NewController(fetcher fetch.Fetcher, cache *imagecache.Cache, opts Options) *Controller {
	if opts.TrackSelector == "" {
		opts.TrackSelector = DefaultTrackSelector
	}
	if opts.CardSelector == "" {
		opts.CardSelector = DefaultCardSelector
	}
	if opts.Deck.StickyOffset == 0 && opts.Deck.ArrivalWindow == 0 {
		opts.Deck = stackfx.DefaultParams()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Fragment.Logger == nil {
		opts.Fragment.Logger = opts.Logger
	}
	if opts.Reveal == (reveal.Options{}) {
		opts.Reveal = reveal.DefaultOptions()
	}
	if opts.Reveal.Logger == nil {
		opts.Reveal.Logger = opts.Logger
	}
	return &Controller{fetcher: fetcher, cache: cache, opts: opts}
}

// Activate settles every fragment in doc, then wires reveal, the contact
// form, the overlay, card images and the deck, in that order.
func (c *Controller) Activate(ctx context.Context, doc *dom.Document) (*Context, error) {
	log := c.opts.Logger
	pc := &Context{Doc: doc, Cache: c.cache}

	pc.Fragments = fragment.New(doc, c.fetcher, c.opts.Fragment).ResolveAll(ctx)

	pc.Reveal = reveal.Observe(doc, c.opts.Reveal)

	pc.Form = contact.Bind(doc, c.opts.FormSelector, log)
	if pc.Form != nil {
		pc.ContactEndpoint = pc.Form.Action(c.opts.ContactEndpoint)
	}

	pc.Modal = modal.Bind(doc, log)

	doc.View(func(root *html.Node) {
		pc.Track = dom.QuerySelector(root, c.opts.TrackSelector)
		scope := root
		if pc.Track != nil {
			scope = pc.Track
		}
		pc.Cards = parseCards(scope, c.opts.CardSelector)
	})

	if c.cache != nil && !c.opts.SkipPreload {
		pc.Preloaded = c.preload(ctx, pc)
	}

	if len(pc.Cards) > 0 {
		frames := c.opts.Frames
		if frames == nil {
			frames = &stackfx.ManualFrames{}
		}
		els := make([]*html.Node, len(pc.Cards))
		for i, card := range pc.Cards {
			els[i] = card.el
		}
		engine, err := stackfx.NewEngine(c.opts.Deck, c.opts.Layout, len(pc.Cards), frames, stackfx.NewDOMSink(doc, els))
		if err != nil {
			return nil, fmt.Errorf("starting deck: %w", err)
		}
		engine.Activate(0)
		pc.Engine = engine
		pc.Frames = frames
	}

	log.Info("page active",
		"fragments", pc.Fragments.Loaded,
		"fragment_errors", pc.Fragments.Failed,
		"reveal", pc.Reveal.Len(),
		"cards", len(pc.Cards),
		"form", pc.Form != nil,
		"modal", pc.Modal.Bound(),
	)
	return pc, nil
}

// preload loads every card image and points the card's img at the handle.
func (c *Controller) preload(ctx context.Context, pc *Context) int {
	var g errgroup.Group
	g.SetLimit(preloadConcurrency)
	handles := make([]*imagecache.Handle, len(pc.Cards))
	for i, card := range pc.Cards {
		if card.ImageID == "" {
			continue
		}
		g.Go(func() error {
			handles[i] = c.cache.Load(ctx, card.ImageID)
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	pc.Doc.Update(func(*html.Node) {
		for i, h := range handles {
			if h == nil {
				continue
			}
			n++
			if img := dom.QuerySelector(pc.Cards[i].el, "img"); img != nil {
				dom.SetAttr(img, "src", h.Src())
			}
		}
	})
	c.opts.Logger.Debug("card images preloaded", "count", n)
	return n
}
