// Package fetch is the network fetch capability used for fragment text and
// image bytes. Like the browser fetch it models, a non-2xx status is not an
// error: it comes back as a Response with OK unset. Errors are reserved for
// transport failures.
package fetch

import (
	"context"
	"errors"
	"sync"
)

// ErrTooLarge is returned when a body exceeds the fetcher's size limit. A
// truncated body is never reported as a successful response.
var ErrTooLarge = errors.New("fetch: body exceeds size limit")

// Response is the outcome of a completed request.
type Response struct {
	OK          bool
	Status      int
	StatusText  string
	ContentType string
	Body        []byte
}

// Text returns the body as a string.
func (r *Response) Text() string { return string(r.Body) }

// Fetcher retrieves the resource a reference names.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (*Response, error)
}

// Func adapts a function to the Fetcher interface.
type Func func(ctx context.Context, ref string) (*Response, error)

func (f Func) Fetch(ctx context.Context, ref string) (*Response, error) { return f(ctx, ref) }

// Counting wraps a Fetcher and records how often each reference is fetched.
type Counting struct {
	Fetcher

	mu     sync.Mutex
	counts map[string]int
}

// NewCounting wraps f.
func NewCounting(f Fetcher) *Counting {
	return &Counting{Fetcher: f, counts: make(map[string]int)}
}

func (c *Counting) Fetch(ctx context.Context, ref string) (*Response, error) {
	c.mu.Lock()
	c.counts[ref]++
	c.mu.Unlock()
	return c.Fetcher.Fetch(ctx, ref)
}

// Count returns the number of fetches issued for ref.
func (c *Counting) Count(ref string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[ref]
}

// Total returns the number of fetches issued for all references.
func (c *Counting) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.counts {
		n += v
	}
	return n
}
