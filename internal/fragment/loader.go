// Package fragment resolves fragment references: elements whose reference
// attribute names HTML to fetch and inject in place of their content.
//
// Top-level references resolve concurrently. Inside one fragment, nested
// references resolve one after another, depth first, so a nested fragment
// always sees its parent and earlier siblings fully settled. Failures are
// rendered inline and never abort other resolutions.
package fragment

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	nethtml "golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/folio/internal/dom"
	"github.com/ziadkadry99/folio/internal/fetch"
)

const (
	// DefaultAttr carries the fragment reference.
	DefaultAttr = "data-include"
	// DefaultYearSelector finds the current-year placeholder.
	DefaultYearSelector = "#current-year"
)

// ErrCycle reports a fragment that (transitively) includes itself.
var ErrCycle = errors.New("fragment includes itself")

// ErrorMarkup is the inline placeholder rendered for a failed reference.
func ErrorMarkup(ref string) string {
	return `<div class="p-4 text-red-500">Error loading component: ` + html.EscapeString(ref) + `</div>`
}

// Options configures a Loader.
type Options struct {
	Attr         string
	YearSelector string
	// MaxConcurrency caps concurrent top-level resolutions. 0 means no cap.
	MaxConcurrency int
	// Sanitize runs injected markup through a bluemonday UGC policy.
	Sanitize bool
	Now      func() time.Time
	Logger   *slog.Logger
}

// Outcome records one settled resolution.
type Outcome struct {
	Ref   string `json:"ref"`
	Depth int    `json:"depth"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Report summarises a ResolveAll run.
type Report struct {
	Outcomes []Outcome     `json:"outcomes"`
	Loaded   int           `json:"loaded"`
	Failed   int           `json:"failed"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Loader resolves fragment references inside one document.
type Loader struct {
	doc      *dom.Document
	fetcher  fetch.Fetcher
	opts     Options
	policy   *bluemonday.Policy
	renderer *markdown
	selector string

	mu       sync.Mutex
	claimed  map[*nethtml.Node]bool
	outcomes []Outcome
}

// New creates a Loader for doc.
func New(doc *dom.Document, fetcher fetch.Fetcher, opts Options) *Loader {
	if opts.Attr == "" {
		opts.Attr = DefaultAttr
	}
	if opts.YearSelector == "" {
		opts.YearSelector = DefaultYearSelector
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	l := &Loader{
		doc:      doc,
		fetcher:  fetcher,
		opts:     opts,
		renderer: newMarkdown(),
		selector: "[" + opts.Attr + "]",
		claimed:  make(map[*nethtml.Node]bool),
	}
	if opts.Sanitize {
		l.policy = newPolicy()
	}
	return l
}

// Selector returns the selector matching unresolved reference elements.
func (l *Loader) Selector() string { return l.selector }

// ResolveAll resolves every top-level reference in the document
// concurrently and returns once the whole task tree, nested resolutions
// included, has settled.
func (l *Loader) ResolveAll(ctx context.Context) Report {
	start := time.Now()

	var tops []*nethtml.Node
	l.doc.View(func(root *nethtml.Node) {
		tops = dom.QuerySelectorAll(root, l.selector)
	})

	var g errgroup.Group
	if l.opts.MaxConcurrency > 0 {
		g.SetLimit(l.opts.MaxConcurrency)
	}
	for _, el := range tops {
		g.Go(func() error {
			l.resolve(ctx, el, nil)
			return nil
		})
	}
	_ = g.Wait()

	l.mu.Lock()
	defer l.mu.Unlock()
	r := Report{Outcomes: append([]Outcome(nil), l.outcomes...), Elapsed: time.Since(start)}
	for _, o := range r.Outcomes {
		if o.OK {
			r.Loaded++
		} else {
			r.Failed++
		}
	}
	l.opts.Logger.Info("fragments ready", "loaded", r.Loaded, "failed", r.Failed, "elapsed", r.Elapsed)
	return r
}

// Resolve loads the fragment el refers to, then its nested fragments in
// order. It returns once that subtree has settled.
func (l *Loader) Resolve(ctx context.Context, el *nethtml.Node) {
	l.resolve(ctx, el, nil)
}

// claim returns el's reference the first time el is seen.
func (l *Loader) claim(el *nethtml.Node) (string, bool) {
	var (
		ref string
		ok  bool
	)
	l.doc.View(func(*nethtml.Node) { ref, ok = dom.Attr(el, l.opts.Attr) })
	if !ok {
		return "", false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.claimed[el] {
		return "", false
	}
	l.claimed[el] = true
	return ref, true
}

func (l *Loader) record(o Outcome) {
	l.mu.Lock()
	l.outcomes = append(l.outcomes, o)
	l.mu.Unlock()
}

// resolve settles el. chain holds the refs of the enclosing fragments.
func (l *Loader) resolve(ctx context.Context, el *nethtml.Node, chain []string) {
	ref, ok := l.claim(el)
	if !ok {
		return
	}
	depth := len(chain)

	var (
		markup string
		err    error
	)
	if slices.Contains(chain, ref) {
		err = fmt.Errorf("%s: %w", ref, ErrCycle)
	} else {
		markup, err = l.load(ctx, ref)
	}
	if err != nil {
		l.opts.Logger.Error("fragment load failed", "ref", ref, "depth", depth, "error", err)
		l.doc.Update(func(*nethtml.Node) {
			_ = dom.SetInnerHTML(el, ErrorMarkup(ref))
		})
		l.record(Outcome{Ref: ref, Depth: depth, Error: err.Error()})
		return
	}

	var nested []*nethtml.Node
	l.doc.Update(func(*nethtml.Node) {
		if err = dom.SetInnerHTML(el, markup); err != nil {
			_ = dom.SetInnerHTML(el, ErrorMarkup(ref))
			return
		}
		if year := dom.QuerySelector(el, l.opts.YearSelector); year != nil {
			dom.SetText(year, strconv.Itoa(l.opts.Now().Year()))
		}
		nested = dom.QuerySelectorAll(el, l.selector)
	})
	if err != nil {
		l.opts.Logger.Error("fragment inject failed", "ref", ref, "error", err)
		l.record(Outcome{Ref: ref, Depth: depth, Error: err.Error()})
		return
	}
	l.opts.Logger.Debug("fragment loaded", "ref", ref, "depth", depth, "nested", len(nested))
	l.record(Outcome{Ref: ref, Depth: depth, OK: true})

	chain = append(slices.Clip(chain), ref)
	for _, n := range nested {
		l.resolve(ctx, n, chain)
	}
}

// load fetches ref and turns the body into injectable markup.
func (l *Loader) load(ctx context.Context, ref string) (string, error) {
	resp, err := l.fetcher.Fetch(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", ref, err)
	}
	if !resp.OK {
		return "", fmt.Errorf("fetching %s: %d %s", ref, resp.Status, resp.StatusText)
	}

	markup := resp.Text()
	if isMarkdown(ref, resp.ContentType) {
		if markup, err = l.renderer.render(resp.Body); err != nil {
			return "", fmt.Errorf("rendering %s: %w", ref, err)
		}
	}
	if l.policy != nil {
		markup = l.policy.Sanitize(markup)
	}
	return markup, nil
}
