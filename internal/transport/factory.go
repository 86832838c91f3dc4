// Package transport builds the outbound HTTP clients used to talk to upstream
// mirrors and media hosts.
package transport

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/streamrelay/streamrelay/internal/config"
	"github.com/streamrelay/streamrelay/internal/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Options configures the clients produced by a Factory.
type Options struct {
	// Timeout bounds a whole scraping request, and the time to response
	// headers for media requests.
	Timeout time.Duration
	// UserAgent is sent with the browser header set.
	UserAgent string
	// BrowserTLS enables a Chrome-like TLS fingerprint on direct scraping connections.
	BrowserTLS bool
}

// OptionsFromConfig reads client settings from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Timeout:    config.Duration(cfg.ClientTimeout, 30*time.Second),
		UserAgent:  cfg.UserAgent,
		BrowserTLS: cfg.BrowserTLS,
	}
}

type clientKind int

const (
	kindScrape clientKind = iota
	kindStream
)

type clientKey struct {
	proxy string
	kind  clientKind
}

// Factory hands out one *http.Client per proxy and purpose so connection pools
// are reused across requests.
type Factory struct {
	opts Options

	mu      sync.Mutex
	clients map[clientKey]*http.Client
}

// NewFactory creates a client factory.
func NewFactory(opts Options) *Factory {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = config.DefaultUserAgent
	}
	return &Factory{
		opts:    opts,
		clients: make(map[clientKey]*http.Client),
	}
}

// UserAgent returns the User-Agent presented upstream.
func (f *Factory) UserAgent() string {
	return f.opts.UserAgent
}

// Client returns the client used for HTML and JSON scraping through proxy.
// Responses are transparently decompressed.
func (f *Factory) Client(proxy models.ProxyConfig) *http.Client {
	return f.get(clientKey{proxy: proxy.URL, kind: kindScrape})
}

// StreamClient returns the client used for media probes and bodies through
// proxy. It has no overall deadline and never decompresses.
func (f *Factory) StreamClient(proxy models.ProxyConfig) *http.Client {
	return f.get(clientKey{proxy: proxy.URL, kind: kindStream})
}

// CloseIdleConnections releases pooled connections of every client.
func (f *Factory) CloseIdleConnections() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.clients {
		c.CloseIdleConnections()
	}
}

func (f *Factory) get(key clientKey) *http.Client {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.clients[key]; ok {
		return c
	}
	c := f.build(key)
	f.clients[key] = c
	return c
}

func (f *Factory) build(key clientKey) *http.Client {
	// Clone DefaultTransport to preserve its pooling, HTTP/2 and dial timeouts
	base := http.DefaultTransport.(*http.Transport).Clone()

	proxied := false
	if key.proxy != "" {
		proxyURL, err := url.Parse(key.proxy)
		if err != nil || proxyURL.Host == "" {
			logger := config.GetLogger()
			logger.Warn().Err(err).Str("proxy", models.ProxyConfig{URL: key.proxy}.Redacted()).Msg("Invalid proxy URL, continuing without proxy")
		} else {
			base.Proxy = http.ProxyURL(proxyURL)
			proxied = true
		}
	}

	if key.kind == kindStream {
		base.DisableCompression = true
		base.ResponseHeaderTimeout = f.opts.Timeout
		return &http.Client{
			Transport: otelhttp.NewTransport(base),
		}
	}

	// The custom dialer bypasses the transport's proxy handling
	if f.opts.BrowserTLS && !proxied {
		base.DialTLSContext = dialBrowserTLS
		base.ForceAttemptHTTP2 = false
	}

	return &http.Client{
		Timeout:   f.opts.Timeout,
		Transport: otelhttp.NewTransport(newCompressionTransport(base)),
	}
}
