package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"slices"
	"sync/atomic"

	"github.com/streamrelay/streamrelay/internal/config"
	"github.com/streamrelay/streamrelay/internal/models"
)

// ProxyProvider owns the outbound proxy value for the process. Request handlers
// read it once per request and pass the value down explicitly; a supervisor
// (startup discovery, config reload) replaces it with Set.
type ProxyProvider struct {
	current atomic.Pointer[models.ProxyConfig]
}

// NewProxyProvider creates a provider holding initial.
func NewProxyProvider(initial models.ProxyConfig) *ProxyProvider {
	p := &ProxyProvider{}
	p.Set(initial)
	return p
}

// Current returns the proxy to use for a new request.
func (p *ProxyProvider) Current() models.ProxyConfig {
	if cfg := p.current.Load(); cfg != nil {
		return *cfg
	}
	return models.ProxyConfig{}
}

// Set replaces the proxy used by subsequent requests. In-flight requests keep
// the value they started with.
func (p *ProxyProvider) Set(cfg models.ProxyConfig) {
	p.current.Store(&cfg)
}

// Rotate applies static when it names a proxy or no list is configured.
// Otherwise it discovers a fresh proxy from listURL; on failure the current
// proxy is kept and the error is returned.
func (p *ProxyProvider) Rotate(ctx context.Context, client *http.Client, static models.ProxyConfig, listURL string) (models.ProxyConfig, error) {
	if !static.IsDirect() || listURL == "" {
		p.Set(static)
		return static, nil
	}

	discovered, err := FetchFreeProxy(ctx, client, listURL)
	if err != nil {
		return p.Current(), err
	}
	p.Set(discovered)
	return discovered, nil
}

// freeProxy is one entry of a geonode style proxy list
type freeProxy struct {
	IP        string   `json:"ip"`
	Port      string   `json:"port"`
	Protocols []string `json:"protocols"`
}

// FetchFreeProxy downloads a public proxy list and picks a random plain HTTP
// proxy from it.
func FetchFreeProxy(ctx context.Context, client *http.Client, listURL string) (models.ProxyConfig, error) {
	logger := config.GetLogger()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return models.ProxyConfig{}, fmt.Errorf("failed to create proxy list request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return models.ProxyConfig{}, fmt.Errorf("failed to fetch proxy list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.ProxyConfig{}, fmt.Errorf("proxy list returned status %d", resp.StatusCode)
	}

	var payload struct {
		Data []freeProxy `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.ProxyConfig{}, fmt.Errorf("failed to decode proxy list: %w", err)
	}

	candidates := slices.DeleteFunc(payload.Data, func(p freeProxy) bool {
		return p.IP == "" || p.Port == "" || !slices.Equal(p.Protocols, []string{"http"})
	})
	if len(candidates) == 0 {
		return models.ProxyConfig{}, fmt.Errorf("proxy list %s has no http proxies", listURL)
	}

	chosen := candidates[rand.IntN(len(candidates))]
	logger.Info().
		Int("candidates", len(candidates)).
		Str("proxy", chosen.IP+":"+chosen.Port).
		Msg("Selected free proxy")

	return models.ProxyConfig{URL: fmt.Sprintf("http://%s:%s", chosen.IP, chosen.Port)}, nil
}
