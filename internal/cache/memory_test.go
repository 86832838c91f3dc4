package cache

import (
	"context"
	"testing"
	"time"
)

func newMemoryTestCache(t *testing.T, size int, onEvict EvictCallback) Cache {
	t.Helper()
	c, err := New("memory", ProviderConfig{Size: size, TTL: time.Hour, OnEvict: onEvict})
	if err != nil {
		t.Fatalf("New memory cache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := newMemoryTestCache(t, 10, nil)

	val, ok := c.Get(ctx, "https://subs.example/en.vtt")
	if ok || val != nil {
		t.Fatalf("Expected miss, got %v", val)
	}

	c.Set(ctx, "https://subs.example/en.vtt", []byte("WEBVTT"))
	val, ok = c.Get(ctx, "https://subs.example/en.vtt")
	if !ok {
		t.Fatal("Expected hit after Set")
	}
	if string(val) != "WEBVTT" {
		t.Fatalf("Expected WEBVTT, got %s", string(val))
	}
}

func TestMemoryCache_Len(t *testing.T) {
	ctx := context.Background()
	c := newMemoryTestCache(t, 10, nil)

	if c.Len() != 0 {
		t.Fatalf("Expected Len 0, got %d", c.Len())
	}
	c.Set(ctx, "a", []byte("1"))
	c.Set(ctx, "b", []byte("2"))
	c.Set(ctx, "b", []byte("3"))
	if c.Len() != 2 {
		t.Fatalf("Expected Len 2, got %d", c.Len())
	}
}

func TestMemoryCache_Eviction(t *testing.T) {
	ctx := context.Background()
	var evicted []string
	c := newMemoryTestCache(t, 2, func(key string, _ []byte) {
		evicted = append(evicted, key)
	})

	c.Set(ctx, "a", []byte("1"))
	c.Set(ctx, "b", []byte("2"))
	_, _ = c.Get(ctx, "a")
	c.Set(ctx, "c", []byte("3")) // evicts "b", "a" was touched

	if len(evicted) != 1 || evicted[0] != "b" {
		t.Fatalf("Expected eviction of 'b', got %v", evicted)
	}
	if _, ok := c.Get(ctx, "b"); ok {
		t.Fatal("Evicted key 'b' should not be present")
	}
	if _, ok := c.Get(ctx, "a"); !ok {
		t.Fatal("Key 'a' should still be present")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c, err := New("memory", ProviderConfig{Size: 10, TTL: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	c.Set(ctx, "short", []byte("lived"))
	time.Sleep(60 * time.Millisecond)
	if _, ok := c.Get(ctx, "short"); ok {
		t.Fatal("Expected entry to expire")
	}
}

func TestMemoryCache_CopiesValueOnSet(t *testing.T) {
	ctx := context.Background()
	c := newMemoryTestCache(t, 10, nil)

	buf := []byte("WEBVTT\n\n00:00.000 --> 00:01.000\nHi")
	c.Set(ctx, "track", buf)
	copy(buf, "XXXXXX")

	val, ok := c.Get(ctx, "track")
	if !ok {
		t.Fatal("Expected hit after Set")
	}
	if string(val[:6]) != "WEBVTT" {
		t.Fatalf("Expected stored value to be unaffected by caller writes, got %q", val[:6])
	}
}
