package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/streamrelay/streamrelay/internal/config"
	"github.com/streamrelay/streamrelay/internal/models"
	"github.com/streamrelay/streamrelay/internal/transport"
	"golang.org/x/time/rate"
)

// Client defines the interface for querying HdRezka mirrors
type Client interface {
	// Search queries one mirror. With findAll the paginated full search is
	// used, otherwise the single-page quick search.
	Search(ctx context.Context, baseURL, query string, findAll bool, proxy models.ProxyConfig) (models.SearchPages, error)
	// Resolve loads a title's detail page.
	Resolve(ctx context.Context, detailURL string, proxy models.ProxyConfig) (Title, error)
	// Download fetches a small asset such as a subtitle file.
	Download(ctx context.Context, link string, proxy models.ProxyConfig) ([]byte, error)
}

// Title is a resolved title bound to the mirror and proxy it was loaded through
type Title interface {
	Info() models.TitleInfo
	// Stream fetches the stream list of a translation. Season and episode are
	// used for series only.
	Stream(ctx context.Context, translation string, season, episode int) (models.StreamDescriptor, error)
	// Series fetches the season and episode listing of a translation.
	Series(ctx context.Context, translation string) (models.SeriesInfo, error)
}

// Options configures upstream throttling and pagination
type Options struct {
	RequestsPerSecond float64
	Burst             int
	MaxSearchPages    int
}

// OptionsFromConfig reads the upstream settings from the application config
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		RequestsPerSecond: cfg.Upstream.RequestsPerSecond,
		Burst:             cfg.Upstream.Burst,
		MaxSearchPages:    cfg.Upstream.MaxSearchPages,
	}
}

// client implements the Client interface
type client struct {
	transports *transport.Factory
	limiter    *rate.Limiter
	maxPages   int
}

// NewClient creates a new client sending every request through the factory's
// clients and a shared rate limiter
func NewClient(transports *transport.Factory, opts Options) Client {
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	maxPages := opts.MaxSearchPages
	if maxPages <= 0 {
		maxPages = 5
	}

	return &client{
		transports: transports,
		limiter:    rate.NewLimiter(limit, burst),
		maxPages:   maxPages,
	}
}

// do throttles, decorates and sends an upstream request
func (c *client) do(req *http.Request, proxy models.ProxyConfig) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	transport.ApplyBrowserHeaders(req, c.transports.UserAgent())
	// Skips the mirror's "choose your region" interstitial
	req.AddCookie(&http.Cookie{Name: "hdmbbs", Value: "1"})

	return c.transports.Client(proxy).Do(req)
}
