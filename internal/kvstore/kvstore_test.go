package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ziadkadry99/folio/internal/db"
)

func setupSQLStore(t *testing.T, quota int64) *SQLStore {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewSQLStore(database, quota)
}

// stores returns one of each implementation so behaviour is checked on both.
func stores(t *testing.T, quota int64) map[string]Store {
	return map[string]Store{
		"mem": NewMemStore(quota),
		"sql": setupSQLStore(t, quota),
	}
}

func TestGetMissing(t *testing.T) {
	for name, s := range stores(t, 0) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get(context.Background(), "nope")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if ok {
				t.Error("expected missing key")
			}
		})
	}
}

func TestSetGetUpsert(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t, 0) {
		t.Run(name, func(t *testing.T) {
			if err := s.Set(ctx, "img_cache_a.png", "one"); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if err := s.Set(ctx, "img_cache_a.png", "two"); err != nil {
				t.Fatalf("Set: %v", err)
			}
			v, ok, err := s.Get(ctx, "img_cache_a.png")
			if err != nil || !ok {
				t.Fatalf("Get: ok=%v err=%v", ok, err)
			}
			if v != "two" {
				t.Errorf("value = %q, want %q", v, "two")
			}
		})
	}
}

func TestKeysAndDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t, 0) {
		t.Run(name, func(t *testing.T) {
			for _, k := range []string{"img_cache_b", "img_cache_a", "other"} {
				if err := s.Set(ctx, k, "x"); err != nil {
					t.Fatalf("Set: %v", err)
				}
			}
			keys, err := s.Keys(ctx, "img_cache_")
			if err != nil {
				t.Fatalf("Keys: %v", err)
			}
			if len(keys) != 2 || keys[0] != "img_cache_a" || keys[1] != "img_cache_b" {
				t.Errorf("Keys = %v, want [img_cache_a img_cache_b]", keys)
			}

			if err := s.Delete(ctx, "img_cache_a"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if err := s.Delete(ctx, "never-set"); err != nil {
				t.Fatalf("Delete absent: %v", err)
			}
			if _, ok, _ := s.Get(ctx, "img_cache_a"); ok {
				t.Error("expected key to be deleted")
			}
		})
	}
}

func TestQuota(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t, 10) {
		t.Run(name, func(t *testing.T) {
			if err := s.Set(ctx, "a", strings.Repeat("x", 6)); err != nil {
				t.Fatalf("Set within quota: %v", err)
			}
			err := s.Set(ctx, "b", strings.Repeat("x", 6))
			if !errors.Is(err, ErrQuotaExceeded) {
				t.Fatalf("Set over quota: err = %v, want ErrQuotaExceeded", err)
			}
			// Replacing an existing key only counts the new size.
			if err := s.Set(ctx, "a", strings.Repeat("y", 10)); err != nil {
				t.Errorf("replace within quota: %v", err)
			}
		})
	}
}

func TestSQLUsage(t *testing.T) {
	s := setupSQLStore(t, 0)
	ctx := context.Background()
	s.Set(ctx, "a", "123")
	s.Set(ctx, "b", "4567")

	n, size, err := s.Usage(ctx)
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if n != 2 || size != 7 {
		t.Errorf("Usage = (%d, %d), want (2, 7)", n, size)
	}
}

func TestSQLQuotaUnderConcurrentWrites(t *testing.T) {
	s := setupSQLStore(t, 100)
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
	)
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := s.Set(ctx, fmt.Sprintf("img_cache_%d", i), strings.Repeat("x", 10)); err == nil {
				accepted.Add(1)
			}
		}(i)
	}
	wg.Wait()

	_, used, err := s.Usage(ctx)
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if used > 100 {
		t.Errorf("stored %d bytes, quota is 100", used)
	}
	if accepted.Load() != 10 {
		t.Errorf("accepted %d writes, want 10", accepted.Load())
	}
}
