package models

import (
	"net/url"

	"github.com/samber/mo"
)

// ProxyConfig is the outbound proxy used for upstream requests.
// The zero value means a direct connection.
type ProxyConfig struct {
	URL string `json:"url,omitempty"`
}

// IsDirect reports whether no proxy is configured
func (p ProxyConfig) IsDirect() bool {
	return p.URL == ""
}

// Redacted returns the proxy URL with its password masked, for logging
func (p ProxyConfig) Redacted() string {
	if p.IsDirect() {
		return ""
	}
	u, err := url.Parse(p.URL)
	if err != nil {
		return "invalid proxy url"
	}
	return u.Redacted()
}

// QualityVariant is one encoding of a stream with its mirror links
type QualityVariant struct {
	Quality string   `json:"quality"`
	Links   []string `json:"links"`
}

// SubtitleTrack maps a language code (e.g. "en") to a remote subtitle link
type SubtitleTrack map[string]string

// StreamDescriptor is what the upstream returns for one translation and episode
type StreamDescriptor struct {
	Variants  []QualityVariant
	Subtitles mo.Option[SubtitleTrack]
}

// StreamRequest selects a stream of a resolved title
type StreamRequest struct {
	Query       string
	Quality     string
	Translation string
	Season      int
	Episode     int
}

// StreamInfo is the per-request result of stream resolution. Season listings
// belong to SearchResult.
type StreamInfo struct {
	StreamURL        string                   `json:"stream_url"`
	StreamURLs       []string                 `json:"stream_urls,omitempty"`
	Quality          Quality                  `json:"quality"`
	Type             ContentType              `json:"type"`
	Title            string                   `json:"title"`
	Rating           *float64                 `json:"rating"`
	Thumbnail        string                   `json:"thumbnail"`
	SubtitleTrack    mo.Option[SubtitleTrack] `json:"subtitle_track"`
	SubtitleFilename string                   `json:"subtitle_filename,omitempty"`
}
