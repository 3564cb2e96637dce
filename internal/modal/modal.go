// Package modal drives the project detail overlay opened from a deck card.
package modal

import (
	"log/slog"
	"sync"

	"golang.org/x/net/html"

	"github.com/ziadkadry99/folio/internal/dom"
	"github.com/ziadkadry99/folio/internal/imagecache"
)

// Selectors for the overlay's parts.
const (
	RootSelector  = "#project-modal"
	TitleSelector = "#modal-title"
	ImageSelector = "#modal-image"
	LinkSelector  = "#modal-link"
	HiddenClass   = "hidden"
)

// Content is what an open overlay shows.
type Content struct {
	Title        string
	ExternalLink string
	Image        *imagecache.Handle
}

// State is a snapshot of the overlay.
type State struct {
	Open            bool   `json:"open"`
	Title           string `json:"title,omitempty"`
	ImageSrc        string `json:"image_src,omitempty"`
	ExternalLink    string `json:"external_link,omitempty"`
	ShowStoreButton bool   `json:"show_store_button"`
}

// Modal is the overlay. A page without overlay markup still gets a working
// Modal whose state is tracked without touching the document.
type Modal struct {
	doc    *dom.Document
	logger *slog.Logger

	root, title, image, link *html.Node

	mu    sync.Mutex
	state State
}

// Bind locates the overlay markup in doc.
func Bind(doc *dom.Document, logger *slog.Logger) *Modal {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Modal{doc: doc, logger: logger}
	doc.View(func(root *html.Node) {
		m.root = dom.QuerySelector(root, RootSelector)
		if m.root == nil {
			return
		}
		m.title = dom.QuerySelector(m.root, TitleSelector)
		m.image = dom.QuerySelector(m.root, ImageSelector)
		m.link = dom.QuerySelector(m.root, LinkSelector)
	})
	return m
}

// Bound reports whether the document has overlay markup.
func (m *Modal) Bound() bool { return m.root != nil }

// Open shows c. The store button is shown only when c has an external link.
func (m *Modal) Open(c Content) State {
	s := State{
		Open:            true,
		Title:           c.Title,
		ExternalLink:    c.ExternalLink,
		ShowStoreButton: c.ExternalLink != "",
	}
	if c.Image != nil {
		s.ImageSrc = c.Image.Src()
	}

	m.mu.Lock()
	m.state = s
	m.mu.Unlock()

	if m.root != nil {
		m.doc.Update(func(*html.Node) {
			if m.title != nil {
				dom.SetText(m.title, s.Title)
			}
			if m.image != nil {
				dom.SetAttr(m.image, "src", s.ImageSrc)
				dom.SetAttr(m.image, "alt", s.Title)
			}
			if m.link != nil {
				if s.ShowStoreButton {
					dom.SetAttr(m.link, "href", s.ExternalLink)
				} else {
					dom.RemoveAttr(m.link, "href")
				}
				dom.ToggleClass(m.link, HiddenClass, !s.ShowStoreButton)
			}
			dom.RemoveClass(m.root, HiddenClass)
		})
	}
	m.logger.Debug("modal opened", "title", s.Title, "store_button", s.ShowStoreButton)
	return s
}

// Close hides the overlay. Closing a closed overlay is a no-op.
func (m *Modal) Close() {
	m.mu.Lock()
	wasOpen := m.state.Open
	m.state = State{}
	m.mu.Unlock()
	if !wasOpen {
		return
	}
	if m.root != nil {
		m.doc.Update(func(*html.Node) { dom.AddClass(m.root, HiddenClass) })
	}
	m.logger.Debug("modal closed")
}

// State returns the current overlay state.
func (m *Modal) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
