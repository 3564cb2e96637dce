// Package imagecache is a two-tier image store: an in-memory handle tier
// valid for the life of the process, over a persistent tier of encoded
// payloads that survives restarts.
//
// Lookups go memory -> persistent -> miss. Population fetches the bytes once,
// returns the handle immediately and persists in the background when the
// image is under the size ceiling.
package imagecache

import (
	"context"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ziadkadry99/folio/internal/fetch"
	"github.com/ziadkadry99/folio/internal/kvstore"
)

const (
	// DefaultPrefix namespaces persistent cache keys.
	DefaultPrefix = "img_cache_"
	// DefaultMaxPersistBytes is the persistence ceiling. Images at or above
	// it are only held in memory.
	DefaultMaxPersistBytes = 1 << 20
)

// Options configures a Cache.
type Options struct {
	Prefix          string
	MaxPersistBytes int
	Logger          *slog.Logger
}

// Cache maps image identifiers to handles.
type Cache struct {
	store      kvstore.Store
	fetcher    fetch.Fetcher
	prefix     string
	maxPersist int
	logger     *slog.Logger

	mu      sync.RWMutex
	handles map[string]*Handle

	flight   singleflight.Group
	persists sync.WaitGroup
	stats    counters
}

// New creates a Cache over a persistent store and a fetcher.
func New(store kvstore.Store, fetcher fetch.Fetcher, opts Options) *Cache {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.MaxPersistBytes <= 0 {
		opts.MaxPersistBytes = DefaultMaxPersistBytes
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Cache{
		store:      store,
		fetcher:    fetcher,
		prefix:     opts.Prefix,
		maxPersist: opts.MaxPersistBytes,
		logger:     opts.Logger,
		handles:    make(map[string]*Handle),
	}
}

// Key derives the persistent key for an identifier: the prefix plus the
// final path segment.
func (c *Cache) Key(id string) string {
	p := id
	if u, err := url.Parse(id); err == nil {
		p = u.Path
	}
	base := path.Base(strings.TrimRight(p, "/"))
	if base == "." || base == "/" || base == "" {
		base = id
	}
	return c.prefix + base
}

func (c *Cache) memory(id string) (*Handle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.handles[id]
	return h, ok
}

// remember stores h unless a handle for id already exists, and returns the
// handle that ended up in memory.
func (c *Cache) remember(id string, h *Handle) *Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.handles[id]; ok {
		return existing
	}
	c.handles[id] = h
	return h
}

// Get looks id up in memory, then in the persistent store. ok is false on a
// miss; the caller is expected to Populate.
func (c *Cache) Get(ctx context.Context, id string) (*Handle, bool) {
	if h, ok := c.memory(id); ok {
		c.stats.memoryHits.Add(1)
		lookupsTotal.WithLabelValues("memory").Inc()
		return h, true
	}

	key := c.Key(id)
	payload, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Debug("imagecache: persistent read failed", "key", key, "error", err)
		ok = false
	}
	if ok {
		h, err := restoreHandle(id, payload)
		if err == nil {
			c.stats.persistentHits.Add(1)
			lookupsTotal.WithLabelValues("persistent").Inc()
			return c.remember(id, h), true
		}
		c.stats.decodeFailures.Add(1)
		c.logger.Debug("imagecache: ignoring unreadable entry", "key", key, "error", err)
	}

	c.stats.misses.Add(1)
	lookupsTotal.WithLabelValues("miss").Inc()
	return nil, false
}

// Populate fetches id and caches the result. The handle is returned as soon
// as it is built; persistence happens in the background. On fetch failure a
// degraded handle whose Src is id itself is returned. Degraded handles are
// not cached, so a later call fetches again.
//
// Concurrent calls for the same id share one fetch. The shared fetch is not
// tied to any one caller: a caller whose ctx ends stops waiting and gets a
// degraded handle while the fetch completes for the others.
func (c *Cache) Populate(ctx context.Context, id string) *Handle {
	if h, ok := c.memory(id); ok {
		return h
	}
	ch := c.flight.DoChan(id, func() (any, error) {
		if h, ok := c.memory(id); ok {
			return h, nil
		}
		return c.populate(context.WithoutCancel(ctx), id), nil
	})
	select {
	case res := <-ch:
		return res.Val.(*Handle)
	case <-ctx.Done():
		c.logger.Debug("imagecache: caller gave up waiting", "id", id, "error", ctx.Err())
		return degradedHandle(id)
	}
}

func (c *Cache) populate(ctx context.Context, id string) *Handle {
	c.stats.populates.Add(1)

	resp, err := c.fetcher.Fetch(ctx, id)
	if err != nil || !resp.OK {
		attrs := []any{"id", id}
		if err != nil {
			attrs = append(attrs, "error", err)
		} else {
			attrs = append(attrs, "status", resp.Status, "status_text", resp.StatusText)
		}
		c.logger.Warn("imagecache: fetch failed, using source url", attrs...)
		c.stats.degraded.Add(1)
		populatesTotal.WithLabelValues("degraded").Inc()
		return degradedHandle(id)
	}

	fetchBytes.Observe(float64(len(resp.Body)))
	populatesTotal.WithLabelValues("ok").Inc()
	h := c.remember(id, newHandle(id, resp.ContentType, resp.Body))

	if h.Size() >= c.maxPersist {
		c.stats.skippedSize.Add(1)
		persistTotal.WithLabelValues("skipped_size").Inc()
		c.logger.Debug("imagecache: too large to persist", "id", id, "bytes", h.Size())
		return h
	}

	c.persists.Add(1)
	go c.persist(ctx, c.Key(id), h.Src())
	return h
}

// persist writes one entry. Failures are counted and otherwise ignored.
func (c *Cache) persist(ctx context.Context, key, payload string) {
	defer c.persists.Done()
	if err := c.store.Set(ctx, key, payload); err != nil {
		c.stats.persistFailed.Add(1)
		persistTotal.WithLabelValues("failed").Inc()
		c.logger.Debug("imagecache: persistent write failed", "key", key, "error", err)
		return
	}
	c.stats.persisted.Add(1)
	persistTotal.WithLabelValues("written").Inc()
}

// Load returns the cached handle for id, populating on a miss.
func (c *Cache) Load(ctx context.Context, id string) *Handle {
	if h, ok := c.Get(ctx, id); ok {
		return h
	}
	return c.Populate(ctx, id)
}

// Flush blocks until every background write started so far has finished.
func (c *Cache) Flush() {
	c.persists.Wait()
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	entries := len(c.handles)
	c.mu.RUnlock()
	return Stats{
		MemoryHits:     c.stats.memoryHits.Load(),
		PersistentHits: c.stats.persistentHits.Load(),
		Misses:         c.stats.misses.Load(),
		DecodeFailures: c.stats.decodeFailures.Load(),
		Populates:      c.stats.populates.Load(),
		Degraded:       c.stats.degraded.Load(),
		Persisted:      c.stats.persisted.Load(),
		SkippedSize:    c.stats.skippedSize.Load(),
		PersistFailed:  c.stats.persistFailed.Load(),
		Entries:        entries,
	}
}
