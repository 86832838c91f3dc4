// Package proxy relays remote media to clients with HTTP range semantics
// without holding whole bodies in memory.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/streamrelay/streamrelay/internal/apperrors"
	"github.com/streamrelay/streamrelay/internal/config"
	"github.com/streamrelay/streamrelay/internal/models"
	"github.com/streamrelay/streamrelay/internal/transport"
)

const defaultContentType = "video/mp4"

// Options configures the range proxy
type Options struct {
	ChunkSize    int
	ProbeTimeout time.Duration
	// IdleTimeout bounds each upstream read while streaming
	IdleTimeout time.Duration
}

// OptionsFromConfig reads the proxy settings from the application config
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ChunkSize:    cfg.Proxy.ChunkSize,
		ProbeTimeout: config.Duration(cfg.Proxy.ProbeTimeout, 15*time.Second),
		IdleTimeout:  config.Duration(cfg.Proxy.IdleTimeout, 30*time.Second),
	}
}

// RangeProxy probes and fetches remote media for one client request at a time
type RangeProxy struct {
	transports *transport.Factory
	opts       Options
}

// NewRangeProxy creates a range proxy using the factory's stream clients
func NewRangeProxy(transports *transport.Factory, opts Options) *RangeProxy {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 8 << 10
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 15 * time.Second
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Second
	}
	return &RangeProxy{transports: transports, opts: opts}
}

// Probe issues the upstream HEAD and validates rangeHeader against the
// reported length. The returned response carries the status and headers to
// send but no body.
func (p *RangeProxy) Probe(ctx context.Context, mediaURL, rangeHeader string, proxy models.ProxyConfig) (*Response, error) {
	logger := config.GetLogger()

	if err := validateMediaURL(mediaURL); err != nil {
		return nil, err
	}

	total, contentType, err := p.head(ctx, mediaURL, proxy)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		StatusCode:  http.StatusOK,
		Header:      make(http.Header),
		URL:         mediaURL,
		Total:       total,
		chunkSize:   p.opts.ChunkSize,
		idleTimeout: p.opts.IdleTimeout,
	}
	resp.Header.Set("Content-Type", contentType)
	resp.Header.Set("Accept-Ranges", "bytes")

	if total < 0 {
		// Without a length there is nothing to validate a range against
		if rangeHeader != "" {
			logger.Debug().Str("url", mediaURL).Str("range", rangeHeader).Msg("Upstream length unknown, ignoring range")
		}
		return resp, nil
	}

	byteRange, partial, err := ParseRange(rangeHeader, total)
	if err != nil {
		return nil, err
	}
	if partial {
		resp.StatusCode = http.StatusPartialContent
		resp.Range = byteRange
		resp.Partial = true
		resp.Header.Set("Content-Range", byteRange.ContentRange(total))
		resp.Header.Set("Content-Length", strconv.FormatInt(byteRange.Length(), 10))
	} else {
		resp.Header.Set("Content-Length", strconv.FormatInt(total, 10))
	}
	return resp, nil
}

// Open probes the media and opens the upstream body for the validated range.
// The caller must Close the response.
func (p *RangeProxy) Open(ctx context.Context, mediaURL, rangeHeader string, proxy models.ProxyConfig) (*Response, error) {
	resp, err := p.Probe(ctx, mediaURL, rangeHeader, proxy)
	if err != nil {
		return nil, err
	}
	if err := p.fetch(ctx, resp, proxy); err != nil {
		return nil, err
	}
	return resp, nil
}

// head returns the upstream length, or -1 when unknown, and content type
func (p *RangeProxy) head(ctx context.Context, mediaURL string, proxy models.ProxyConfig) (int64, string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, mediaURL, nil)
	if err != nil {
		return 0, "", &apperrors.ErrUpstreamUnavailable{URL: mediaURL, Cause: err}
	}
	transport.ApplyBrowserHeaders(req, p.transports.UserAgent())

	resp, err := p.transports.StreamClient(proxy).Do(req)
	if err != nil {
		return 0, "", &apperrors.ErrUpstreamUnavailable{URL: mediaURL, Cause: err}
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, "", &apperrors.ErrUpstreamUnavailable{URL: mediaURL, StatusCode: resp.StatusCode}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultContentType
	}
	return resp.ContentLength, contentType, nil
}

// fetch issues the body GET, mirroring the validated range upstream
func (p *RangeProxy) fetch(ctx context.Context, resp *Response, proxy models.ProxyConfig) error {
	logger := config.GetLogger()

	bodyCtx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(bodyCtx, http.MethodGet, resp.URL, nil)
	if err != nil {
		cancel()
		return &apperrors.ErrUpstreamUnavailable{URL: resp.URL, Cause: err}
	}
	transport.ApplyBrowserHeaders(req, p.transports.UserAgent())
	if resp.Partial {
		req.Header.Set("Range", resp.Range.Header())
	}

	upstream, err := p.transports.StreamClient(proxy).Do(req)
	if err != nil {
		cancel()
		return &apperrors.ErrUpstreamUnavailable{URL: resp.URL, Cause: err}
	}

	switch {
	case upstream.StatusCode == http.StatusPartialContent:
	case upstream.StatusCode == http.StatusOK:
		if resp.Partial {
			// Range ignored upstream; skip to the start while streaming
			resp.skip = resp.Range.Start
			logger.Debug().Str("url", resp.URL).Int64("skip", resp.skip).Msg("Upstream ignored range")
		}
	default:
		upstream.Body.Close()
		cancel()
		return &apperrors.ErrUpstreamUnavailable{URL: resp.URL, StatusCode: upstream.StatusCode}
	}

	resp.body = upstream.Body
	resp.cancel = cancel
	resp.remaining = resp.expected()
	return nil
}

func validateMediaURL(mediaURL string) error {
	if mediaURL == "" {
		return &apperrors.ErrInvalidParameter{Name: "url", Reason: "required"}
	}
	u, err := url.Parse(mediaURL)
	if err != nil {
		return &apperrors.ErrInvalidParameter{Name: "url", Reason: err.Error()}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &apperrors.ErrInvalidParameter{Name: "url", Reason: fmt.Sprintf("unsupported url %q", mediaURL)}
	}
	return nil
}

// IsUnsatisfiable reports whether err is a range outside the resource
func IsUnsatisfiable(err error) (*apperrors.ErrInvalidRange, bool) {
	var rangeErr *apperrors.ErrInvalidRange
	if errors.As(err, &rangeErr) && rangeErr.Unsatisfiable {
		return rangeErr, true
	}
	return nil, false
}
