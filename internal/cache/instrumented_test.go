package cache

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func getCounterVecValue(cv *prometheus.CounterVec, label string) float64 {
	c, err := cv.GetMetricWithLabelValues(label)
	if err != nil {
		return 0
	}
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

// useIsolatedRegistry points the size gauges at a fresh registry
func useIsolatedRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	reg := prometheus.NewRegistry()
	orig := sizeRegistry
	sizeRegistry = reg
	t.Cleanup(func() { sizeRegistry = orig })
	return reg
}

func TestInstrumentedCache_HitsAndMisses(t *testing.T) {
	useIsolatedRegistry(t)
	ctx := context.Background()

	c, err := New("memory", ProviderConfig{Size: 10, TTL: time.Hour, Group: "test-hits"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	hits := getCounterVecValue(HitsTotal, "test-hits")
	misses := getCounterVecValue(MissesTotal, "test-hits")

	c.Set(ctx, "k", []byte("v"))
	_, _ = c.Get(ctx, "k")
	_, _ = c.Get(ctx, "absent")
	_, _ = c.Get(ctx, "absent")

	if diff := getCounterVecValue(HitsTotal, "test-hits") - hits; diff != 1 {
		t.Errorf("Expected 1 hit, got %.0f", diff)
	}
	if diff := getCounterVecValue(MissesTotal, "test-hits") - misses; diff != 2 {
		t.Errorf("Expected 2 misses, got %.0f", diff)
	}
}

func TestInstrumentedCache_Evictions(t *testing.T) {
	useIsolatedRegistry(t)
	ctx := context.Background()
	var evicted []string

	c, err := New("memory", ProviderConfig{Size: 1, TTL: time.Hour, Group: "test-evict", OnEvict: func(key string, _ []byte) {
		evicted = append(evicted, key)
	}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	before := getCounterVecValue(EvictionsTotal, "test-evict")
	c.Set(ctx, "a", []byte("1"))
	c.Set(ctx, "b", []byte("2"))

	if diff := getCounterVecValue(EvictionsTotal, "test-evict") - before; diff != 1 {
		t.Errorf("Expected 1 eviction, got %.0f", diff)
	}
	if len(evicted) != 1 || evicted[0] != "a" {
		t.Errorf("Expected caller OnEvict to fire for 'a', got %v", evicted)
	}
}

func TestInstrumentedCache_Entries(t *testing.T) {
	reg := useIsolatedRegistry(t)
	ctx := context.Background()

	c, err := New("memory", ProviderConfig{Size: 10, TTL: time.Hour, Group: "test-entries"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	gatherEntries := func() float64 {
		mfs, _ := reg.Gather()
		for _, mf := range mfs {
			if mf.GetName() != "cache_entries" {
				continue
			}
			for _, m := range mf.GetMetric() {
				return m.GetGauge().GetValue()
			}
		}
		return -1
	}

	c.Set(ctx, "x", []byte("1"))
	c.Set(ctx, "y", []byte("2"))
	if v := gatherEntries(); v != 2 {
		t.Errorf("Expected 2 entries, got %.0f", v)
	}

	_ = c.Close()
	if v := gatherEntries(); v != -1 {
		t.Errorf("Expected entries gauge to be gone after Close, got %.0f", v)
	}
}

func TestInstrumentedCache_Bytes(t *testing.T) {
	useIsolatedRegistry(t)
	ctx := context.Background()

	c, err := New("memory", ProviderConfig{Size: 10, TTL: time.Hour, Group: "test-bytes"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	stored := getCounterVecValue(StoredBytesTotal, "test-bytes")
	served := getCounterVecValue(ServedBytesTotal, "test-bytes")

	body := []byte("WEBVTT\n\n")
	c.Set(ctx, "https://subs.example/en.vtt", body)
	_, _ = c.Get(ctx, "https://subs.example/en.vtt")
	_, _ = c.Get(ctx, "https://subs.example/en.vtt")
	_, _ = c.Get(ctx, "https://subs.example/fr.vtt")

	if diff := getCounterVecValue(StoredBytesTotal, "test-bytes") - stored; diff != float64(len(body)) {
		t.Errorf("Expected %d stored bytes, got %.0f", len(body), diff)
	}
	if diff := getCounterVecValue(ServedBytesTotal, "test-bytes") - served; diff != float64(2*len(body)) {
		t.Errorf("Expected %d served bytes, got %.0f", 2*len(body), diff)
	}
}
