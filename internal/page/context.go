package page

import (
	"context"
	"fmt"

	"golang.org/x/net/html"

	"github.com/ziadkadry99/folio/internal/contact"
	"github.com/ziadkadry99/folio/internal/dom"
	"github.com/ziadkadry99/folio/internal/fragment"
	"github.com/ziadkadry99/folio/internal/imagecache"
	"github.com/ziadkadry99/folio/internal/modal"
	"github.com/ziadkadry99/folio/internal/reveal"
	"github.com/ziadkadry99/folio/internal/stackfx"
)

// Context is an activated page. It owns every reference later interaction
// needs, so nothing is looked up from global state.
type Context struct {
	Doc       *dom.Document
	Track     *html.Node
	Cards     []CardConfig
	Cache     *imagecache.Cache
	Form      *contact.Form
	Modal     *modal.Modal
	Reveal    *reveal.Observer
	Engine    *stackfx.Engine
	Frames    stackfx.FrameScheduler
	Fragments fragment.Report
	Preloaded int

	ContactEndpoint string
}

// OnScroll feeds a scroll position to the deck.
func (pc *Context) OnScroll(scrollY float64) {
	if pc.Engine != nil {
		pc.Engine.OnScroll(scrollY)
	}
}

// CheckReveal activates reveal targets now in view and returns how many
// were newly revealed.
func (pc *Context) CheckReveal(layout reveal.Layout, viewportHeight float64) int {
	return pc.Reveal.Check(layout, viewportHeight)
}

// OpenCard shows card i in the overlay, loading its image through the
// cache.
func (pc *Context) OpenCard(ctx context.Context, i int) (modal.State, error) {
	if i < 0 || i >= len(pc.Cards) {
		return modal.State{}, fmt.Errorf("card %d: %w", i, ErrNoCard)
	}
	card := pc.Cards[i]
	content := modal.Content{Title: card.Title, ExternalLink: card.ExternalLink}
	if pc.Cache != nil && card.ImageID != "" {
		content.Image = pc.Cache.Load(ctx, card.ImageID)
	}
	return pc.Modal.Open(content), nil
}

// HandleKey reacts to a key press. Escape closes the overlay.
func (pc *Context) HandleKey(key string) {
	if key == "Escape" {
		pc.Modal.Close()
	}
}

// Submit sends the contact form through sender. A nil sender posts to
// ContactEndpoint.
func (pc *Context) Submit(ctx context.Context, sender contact.Sender) (*contact.Receipt, error) {
	if pc.Form == nil {
		return nil, ErrNoForm
	}
	if sender == nil {
		if pc.ContactEndpoint == "" {
			return nil, ErrNoEndpoint
		}
		sender = contact.NewSubmitter(pc.ContactEndpoint, nil)
	}
	return pc.Form.Submit(ctx, sender)
}
