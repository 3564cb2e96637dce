// Package reveal marks scroll-reveal elements active once enough of them
// enters the viewport.
package reveal

import (
	"log/slog"
	"sync"

	"golang.org/x/net/html"

	"github.com/ziadkadry99/folio/internal/dom"
)

const (
	DefaultSelector     = ".reveal"
	DefaultActiveClass  = "active"
	DefaultThreshold    = 0.1
	DefaultMarginBottom = -50
)

// Rect is an element's box in viewport coordinates.
type Rect struct {
	Top    float64
	Height float64
}

// Bottom returns the lower edge of r.
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// Layout reports where an element currently sits. ok is false for
// elements that are not laid out.
type Layout interface {
	Rect(el *html.Node) (r Rect, ok bool)
}

// LayoutFunc adapts a function to Layout.
type LayoutFunc func(el *html.Node) (Rect, bool)

func (f LayoutFunc) Rect(el *html.Node) (Rect, bool) { return f(el) }

// Options configures an Observer.
type Options struct {
	Selector    string
	ActiveClass string
	Threshold   float64
	// MarginBottom grows (positive) or shrinks (negative) the bottom of the
	// viewport before intersecting.
	MarginBottom float64
	Logger       *slog.Logger
}

// DefaultOptions returns the page's reveal settings.
func DefaultOptions() Options {
	return Options{
		Selector:     DefaultSelector,
		ActiveClass:  DefaultActiveClass,
		Threshold:    DefaultThreshold,
		MarginBottom: DefaultMarginBottom,
	}
}

// Observer tracks reveal targets. Revealed elements keep their active
// class for the life of the page.
type Observer struct {
	doc  *dom.Document
	opts Options

	mu       sync.Mutex
	targets  []*html.Node
	revealed map[*html.Node]bool
}

// Observe collects every matching element in doc.
func Observe(doc *dom.Document, opts Options) *Observer {
	def := DefaultOptions()
	if opts.Selector == "" {
		opts.Selector = def.Selector
	}
	if opts.ActiveClass == "" {
		opts.ActiveClass = def.ActiveClass
	}
	if opts.Threshold <= 0 {
		opts.Threshold = def.Threshold
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	o := &Observer{doc: doc, opts: opts, revealed: make(map[*html.Node]bool)}
	doc.View(func(root *html.Node) {
		o.targets = dom.QuerySelectorAll(root, opts.Selector)
	})
	opts.Logger.Debug("reveal observing", "targets", len(o.targets))
	return o
}

// Len returns the number of observed elements.
func (o *Observer) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.targets)
}

// Revealed returns how many elements have been marked active.
func (o *Observer) Revealed() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.revealed)
}

// Ratio returns the visible fraction of r inside a viewport of the given
// height after applying marginBottom.
func Ratio(r Rect, viewportHeight, marginBottom float64) float64 {
	bottom := viewportHeight + marginBottom
	if bottom <= 0 {
		return 0
	}
	top := max(r.Top, 0)
	end := min(r.Bottom(), bottom)
	if r.Height <= 0 {
		if r.Top >= 0 && r.Top <= bottom {
			return 1
		}
		return 0
	}
	if end <= top {
		return 0
	}
	return (end - top) / r.Height
}

// Check intersects every target with the viewport and activates the ones
// at or past the threshold. It returns the number newly revealed.
func (o *Observer) Check(layout Layout, viewportHeight float64) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	var fresh []*html.Node
	for _, el := range o.targets {
		if o.revealed[el] {
			continue
		}
		r, ok := layout.Rect(el)
		if !ok {
			continue
		}
		if Ratio(r, viewportHeight, o.opts.MarginBottom) >= o.opts.Threshold {
			fresh = append(fresh, el)
		}
	}
	if len(fresh) == 0 {
		return 0
	}
	o.doc.Update(func(*html.Node) {
		for _, el := range fresh {
			dom.AddClass(el, o.opts.ActiveClass)
			o.revealed[el] = true
		}
	})
	o.opts.Logger.Debug("revealed", "count", len(fresh), "total", len(o.revealed))
	return len(fresh)
}
