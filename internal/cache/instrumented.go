package cache

import "context"

// meteredCache counts lookups and payload bytes of inner under a group label.
type meteredCache struct {
	inner Cache
	group string
}

func withMetrics(inner Cache, group string) *meteredCache {
	trackSize(group, inner.Len)
	return &meteredCache{inner: inner, group: group}
}

func (c *meteredCache) Get(ctx context.Context, key string) ([]byte, bool) {
	value, found := c.inner.Get(ctx, key)
	if !found {
		MissesTotal.WithLabelValues(c.group).Inc()
		return nil, false
	}
	HitsTotal.WithLabelValues(c.group).Inc()
	ServedBytesTotal.WithLabelValues(c.group).Add(float64(len(value)))
	return value, true
}

func (c *meteredCache) Set(ctx context.Context, key string, value []byte) {
	StoredBytesTotal.WithLabelValues(c.group).Add(float64(len(value)))
	c.inner.Set(ctx, key, value)
}

func (c *meteredCache) Len() int { return c.inner.Len() }

// Close drops the group's size gauge before closing inner.
func (c *meteredCache) Close() error {
	untrackSize(c.group)
	return c.inner.Close()
}
