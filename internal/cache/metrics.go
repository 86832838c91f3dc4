package cache

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HitsTotal counts lookups that found a live entry, per cache group.
	HitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits.",
		},
		[]string{"cache"},
	)

	MissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses.",
		},
		[]string{"cache"},
	)

	EvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of entries evicted from the cache.",
		},
		[]string{"cache"},
	)

	// StoredBytesTotal counts payload bytes written, which for subtitle
	// bodies approximates how much upstream traffic the cache can save.
	StoredBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_stored_bytes_total",
			Help: "Total number of value bytes written to the cache.",
		},
		[]string{"cache"},
	)

	ServedBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_served_bytes_total",
			Help: "Total number of value bytes returned by cache hits.",
		},
		[]string{"cache"},
	)
)

func init() {
	prometheus.MustRegister(HitsTotal, MissesTotal, EvictionsTotal, StoredBytesTotal, ServedBytesTotal)
}

// sizeGauges holds one cache_entries gauge per group. The value is read at
// scrape time because Redis expires entries on its own.
var (
	sizeGaugesMu sync.Mutex
	sizeGauges   = map[string]prometheus.GaugeFunc{}
	// sizeRegistry is replaced by an isolated registry in tests
	sizeRegistry prometheus.Registerer = prometheus.DefaultRegisterer
)

func trackSize(group string, size func() int) {
	gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "cache_entries",
		Help:        "Current number of entries in the cache.",
		ConstLabels: prometheus.Labels{"cache": group},
	}, func() float64 { return float64(size()) })

	sizeGaugesMu.Lock()
	defer sizeGaugesMu.Unlock()

	if previous, ok := sizeGauges[group]; ok {
		sizeRegistry.Unregister(previous)
	}
	sizeGauges[group] = gauge
	_ = sizeRegistry.Register(gauge)
}

func untrackSize(group string) {
	sizeGaugesMu.Lock()
	defer sizeGaugesMu.Unlock()

	if gauge, ok := sizeGauges[group]; ok {
		sizeRegistry.Unregister(gauge)
		delete(sizeGauges, group)
	}
}
