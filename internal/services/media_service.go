package services

import (
	"context"

	"github.com/streamrelay/streamrelay/internal/models"
)

// MediaService defines the request flows of the HTTP API
type MediaService interface {
	// Search resolves query to its first candidate matching filter. Movies come
	// with a stream, series with their season listing.
	Search(ctx context.Context, query string, filter models.Filter, proxy models.ProxyConfig) (*models.SearchResult, error)
	// Episodes lists the episode numbers of a season of the first series
	// matching query.
	Episodes(ctx context.Context, query string, season int, translation string, proxy models.ProxyConfig) ([]int, error)
	// Stream resolves the stream of a movie or of one episode of a series.
	Stream(ctx context.Context, query string, filter models.Filter, season, episode int, proxy models.ProxyConfig) (*models.StreamInfo, error)
}
