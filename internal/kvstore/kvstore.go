// Package kvstore is the persistent key to string store behind the image
// cache. It plays the part localStorage plays in a browser: string values,
// upsert by key, and an optional total-size quota.
package kvstore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

// ErrQuotaExceeded is returned by Set when the write would push the store
// past its configured capacity.
var ErrQuotaExceeded = errors.New("kvstore: quota exceeded")

// Store is a persistent string store.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set upserts value under key.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists keys starting with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// MemStore is an in-process Store. Useful for tests and ephemeral runs.
type MemStore struct {
	mu    sync.RWMutex
	data  map[string]string
	used  int64
	quota int64
}

// NewMemStore returns an empty MemStore. A quota of 0 means unbounded.
func NewMemStore(quota int64) *MemStore {
	return &MemStore{data: make(map[string]string), quota: quota}
}

func (m *MemStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	used := m.used - int64(len(m.data[key])) + int64(len(value))
	if m.quota > 0 && used > m.quota {
		return ErrQuotaExceeded
	}
	m.data[key] = value
	m.used = used
	return nil
}

func (m *MemStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.used -= int64(len(m.data[key]))
	delete(m.data, key)
	return nil
}

func (m *MemStore) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len returns the number of stored keys.
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
