package imagecache

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/folio/internal/progress"
)

// WarmResult summarises a Warm run.
type WarmResult struct {
	Loaded   int      `json:"loaded"`
	Degraded []string `json:"degraded,omitempty"`
}

// Warm loads every id through the cache, at most concurrency at a time,
// then waits for background writes. rep may be nil.
func (c *Cache) Warm(ctx context.Context, ids []string, concurrency int, rep progress.Reporter) WarmResult {
	if rep == nil {
		rep = progress.Nop{}
	}
	if concurrency <= 0 {
		concurrency = 4
	}

	handles := make([]*Handle, len(ids))
	done := make(chan string)
	var g errgroup.Group
	g.SetLimit(concurrency)

	rep.Start(len(ids))
	go func() {
		for i, id := range ids {
			g.Go(func() error {
				handles[i] = c.Load(ctx, id)
				done <- id
				return nil
			})
		}
		_ = g.Wait()
		close(done)
	}()
	n := 0
	for id := range done {
		n++
		rep.Update(n, id)
	}
	rep.Finish()
	c.Flush()

	var res WarmResult
	for i, h := range handles {
		if h.Degraded {
			res.Degraded = append(res.Degraded, ids[i])
			continue
		}
		res.Loaded++
	}
	return res
}

// Clear drops the memory tier and every persisted entry under the cache's
// prefix. It returns the number of persisted entries removed.
func (c *Cache) Clear(ctx context.Context) (int, error) {
	c.Flush()
	c.mu.Lock()
	c.handles = make(map[string]*Handle)
	c.mu.Unlock()

	keys, err := c.store.Keys(ctx, c.prefix)
	if err != nil {
		return 0, fmt.Errorf("listing cache keys: %w", err)
	}
	for i, k := range keys {
		if err := c.store.Delete(ctx, k); err != nil {
			return i, fmt.Errorf("deleting %s: %w", k, err)
		}
	}
	return len(keys), nil
}

// Keys lists the persisted cache keys.
func (c *Cache) Keys(ctx context.Context) ([]string, error) {
	return c.store.Keys(ctx, c.prefix)
}
