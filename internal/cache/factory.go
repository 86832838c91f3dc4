package cache

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/streamrelay/streamrelay/internal/config"
)

// ProviderConfig is what a backend needs to build one cache group.
type ProviderConfig struct {
	Size int
	// TTL counts from the last write; zero lets the backend pick a default.
	TTL     time.Duration
	OnEvict EvictCallback
	// Logger may be nil, in which case backend errors are dropped.
	Logger Logger

	RedisAddress  string
	RedisPassword string
	RedisDB       int

	// Group namespaces Redis keys. A non-empty group also gets cache_*
	// metrics labelled with it.
	Group string
}

// Provider builds a Cache backend.
type Provider func(cfg ProviderConfig) (Cache, error)

var registry = struct {
	sync.RWMutex
	providers map[string]Provider
}{providers: map[string]Provider{}}

// Register makes a backend available to New under name. Registering a nil
// provider or a name twice panics.
func Register(name string, p Provider) {
	if p == nil {
		panic("cache: nil provider for " + name)
	}

	registry.Lock()
	defer registry.Unlock()
	if _, dup := registry.providers[name]; dup {
		panic(fmt.Sprintf("cache: provider %q registered twice", name))
	}
	registry.providers[name] = p
}

// RegisteredProviders lists backend names in lexical order.
func RegisteredProviders() []string {
	registry.RLock()
	defer registry.RUnlock()
	return slices.Sorted(maps.Keys(registry.providers))
}

// New builds a cache with the named backend.
func New(name string, cfg ProviderConfig) (Cache, error) {
	registry.RLock()
	build, ok := registry.providers[name]
	registry.RUnlock()

	if !ok {
		return nil, fmt.Errorf("cache: unknown provider %q, expected one of %v", name, RegisteredProviders())
	}
	if cfg.Size <= 0 {
		return nil, fmt.Errorf("cache: size must be positive, got %d", cfg.Size)
	}
	if cfg.Group == "" {
		return build(cfg)
	}

	group, onEvict := cfg.Group, cfg.OnEvict
	cfg.OnEvict = func(key string, value []byte) {
		EvictionsTotal.WithLabelValues(group).Inc()
		if onEvict != nil {
			onEvict(key, value)
		}
	}
	backend, err := build(cfg)
	if err != nil {
		return nil, err
	}
	return withMetrics(backend, group), nil
}

// FromConfig builds the cache group from the cache section of cfg.
func FromConfig(cfg *config.Config, group string) (Cache, error) {
	section := cfg.Cache
	return New(section.Provider, ProviderConfig{
		Size:          section.Size,
		TTL:           config.Duration(section.TTL, time.Hour),
		Logger:        NewZerologLogger(config.GetLogger()),
		RedisAddress:  section.Redis.Address,
		RedisPassword: section.Redis.Password,
		RedisDB:       section.Redis.DB,
		Group:         group,
	})
}

type zerologLogger zerolog.Logger

// NewZerologLogger reports backend errors at error level on logger.
func NewZerologLogger(logger zerolog.Logger) Logger {
	return zerologLogger(logger)
}

func (l zerologLogger) Error(msg string, err error) {
	logger := zerolog.Logger(l)
	logger.Error().Err(err).Msg(msg)
}
