// Package api exposes the resolver and the range proxy over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/streamrelay/streamrelay/internal/models"
	"github.com/streamrelay/streamrelay/internal/proxy"
	"github.com/streamrelay/streamrelay/internal/services"
)

// MediaProxy opens remote media for relaying
type MediaProxy interface {
	Probe(ctx context.Context, mediaURL, rangeHeader string, via models.ProxyConfig) (*proxy.Response, error)
	Open(ctx context.Context, mediaURL, rangeHeader string, via models.ProxyConfig) (*proxy.Response, error)
}

// ProxySource returns the outbound proxy for a new request
type ProxySource interface {
	Current() models.ProxyConfig
}

// Dependencies are the collaborators served by the router
type Dependencies struct {
	Media     services.MediaService
	Proxy     MediaProxy
	Subtitles services.SubtitleFetcher
	Proxies   ProxySource
}

// Handler holds the route handlers
type Handler struct {
	deps Dependencies
}

// NewRouter builds the gin engine with middleware and every route
func NewRouter(deps Dependencies) *gin.Engine {
	h := &Handler{deps: deps}

	r := gin.New()
	r.Use(Recovery(), Logger(), Metrics(), Sentry(), CORS())

	r.GET("/healthz", h.Health)
	r.POST("/search", h.Search)
	r.GET("/episodes", h.Episodes)
	r.GET("/stream", h.Stream)
	r.GET("/proxy-stream", h.ProxyStream)
	r.HEAD("/proxy-stream", h.ProxyStream)
	r.GET("/static/subtitles/*filename", h.Subtitle)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Resource not found"})
	})
	return r
}
