package imagecache

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_imagecache_lookups_total",
		Help: "Image cache lookups by outcome (memory, persistent, miss).",
	}, []string{"outcome"})

	populatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_imagecache_populates_total",
		Help: "Image cache populations by outcome (ok, degraded).",
	}, []string{"outcome"})

	persistTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "folio_imagecache_persist_total",
		Help: "Persistent writes by outcome (written, skipped_size, failed).",
	}, []string{"outcome"})

	fetchBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "folio_imagecache_fetch_bytes",
		Help:    "Size of fetched images in bytes.",
		Buckets: prometheus.ExponentialBuckets(1<<10, 4, 8),
	})
)

// Stats is a snapshot of one cache's counters.
type Stats struct {
	MemoryHits     int64 `json:"memory_hits"`
	PersistentHits int64 `json:"persistent_hits"`
	Misses         int64 `json:"misses"`
	DecodeFailures int64 `json:"decode_failures"`
	Populates      int64 `json:"populates"`
	Degraded       int64 `json:"degraded"`
	Persisted      int64 `json:"persisted"`
	SkippedSize    int64 `json:"skipped_size"`
	PersistFailed  int64 `json:"persist_failed"`
	Entries        int   `json:"entries"`
}

type counters struct {
	memoryHits     atomic.Int64
	persistentHits atomic.Int64
	misses         atomic.Int64
	decodeFailures atomic.Int64
	populates      atomic.Int64
	degraded       atomic.Int64
	persisted      atomic.Int64
	skippedSize    atomic.Int64
	persistFailed  atomic.Int64
}
