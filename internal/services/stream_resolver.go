package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/streamrelay/streamrelay/internal/apperrors"
	"github.com/streamrelay/streamrelay/internal/client"
	"github.com/streamrelay/streamrelay/internal/config"
	"github.com/streamrelay/streamrelay/internal/metrics"
	"github.com/streamrelay/streamrelay/internal/models"
)

// StreamResolver turns a resolved title into a playable stream and stores its
// subtitle, when one exists in the configured language
type StreamResolver struct {
	subtitles SubtitleFetcher
	language  string
}

// NewStreamResolver creates a stream resolver. A nil fetcher disables subtitle
// extraction.
func NewStreamResolver(subtitles SubtitleFetcher, language string) *StreamResolver {
	if language == "" {
		language = "en"
	}
	return &StreamResolver{subtitles: subtitles, language: language}
}

// ResolveStream fetches the stream list of req's translation and episode and
// picks the variant matching req.Quality. Upstream failures are returned as
// ErrStreamResolutionFailed without retry.
func (r *StreamResolver) ResolveStream(ctx context.Context, title client.Title, req models.StreamRequest, proxy models.ProxyConfig) (*models.StreamInfo, error) {
	logger := config.GetLogger()
	info := title.Info()

	if info.Type == models.ContentTypeTVSeries {
		if req.Season <= 0 {
			return nil, &apperrors.ErrInvalidParameter{Name: "season", Reason: "required for series"}
		}
		if req.Episode <= 0 {
			return nil, &apperrors.ErrInvalidParameter{Name: "episode", Reason: "required for series"}
		}
	} else {
		req.Season, req.Episode = 0, 0
	}

	descriptor, err := title.Stream(ctx, req.Translation, req.Season, req.Episode)
	if err != nil {
		metrics.StreamResolutionsTotal.WithLabelValues("error").Inc()
		return nil, &apperrors.ErrStreamResolutionFailed{Cause: err}
	}

	variant, ok := selectVariant(descriptor.Variants, req.Quality)
	if !ok {
		metrics.StreamResolutionsTotal.WithLabelValues("error").Inc()
		available := lo.Map(descriptor.Variants, func(v models.QualityVariant, _ int) string { return v.Quality })
		logger.Warn().Str("quality", req.Quality).Strs("available", available).Str("title", info.Name).Msg("Requested quality is not offered")
		return nil, &apperrors.ErrStreamResolutionFailed{Cause: fmt.Errorf("quality %q is not available", req.Quality)}
	}

	result := &models.StreamInfo{
		StreamURL:     variant.Links[0],
		StreamURLs:    variant.Links,
		Quality:       models.ParseQuality(variant.Quality),
		Type:          info.Type,
		Title:         info.Name,
		Rating:        info.Rating,
		Thumbnail:     info.Thumbnail,
		SubtitleTrack: descriptor.Subtitles,
	}

	if link, ok := r.subtitleLink(descriptor); ok {
		filename := SubtitleFilename(req.Query, req.Season, req.Episode)
		if err := r.subtitles.Fetch(ctx, link, filename, proxy); err != nil {
			logger.Warn().Err(err).Str("filename", filename).Msg("Failed to fetch subtitle, continuing without it")
		} else {
			result.SubtitleFilename = filename
		}
	}

	metrics.StreamResolutionsTotal.WithLabelValues("ok").Inc()
	logger.Info().Str("title", info.Name).Str("quality", variant.Quality).Int("season", req.Season).Int("episode", req.Episode).Bool("subtitles", result.SubtitleFilename != "").Msg("Resolved stream")
	return result, nil
}

func (r *StreamResolver) subtitleLink(descriptor models.StreamDescriptor) (string, bool) {
	if r.subtitles == nil {
		return "", false
	}
	track, ok := descriptor.Subtitles.Get()
	if !ok {
		return "", false
	}
	link, ok := track[r.language]
	return link, ok && link != ""
}

// selectVariant returns the first variant, in upstream order, whose label
// contains quality
func selectVariant(variants []models.QualityVariant, quality string) (models.QualityVariant, bool) {
	quality = strings.ToLower(strings.TrimSpace(quality))
	return lo.Find(variants, func(v models.QualityVariant) bool {
		return len(v.Links) > 0 && strings.Contains(strings.ToLower(v.Quality), quality)
	})
}
