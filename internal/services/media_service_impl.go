package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/streamrelay/streamrelay/internal/apperrors"
	"github.com/streamrelay/streamrelay/internal/client"
	"github.com/streamrelay/streamrelay/internal/config"
	"github.com/streamrelay/streamrelay/internal/models"
)

// TitleResolver loads the detail page of a candidate
type TitleResolver interface {
	Resolve(ctx context.Context, detailURL string, proxy models.ProxyConfig) (client.Title, error)
}

// MediaOptions holds the defaults applied to every request
type MediaOptions struct {
	// TranslationID is requested for movies and series whenever the title
	// offers it. "238" is the original audio with subtitles.
	TranslationID string
	// Quality is the variant label picked for streams
	Quality string
}

// MediaOptionsFromConfig reads the request defaults from the application config
func MediaOptionsFromConfig(cfg *config.Config) MediaOptions {
	return MediaOptions{
		TranslationID: cfg.TranslationID,
		Quality:       cfg.Quality,
	}
}

// MediaServiceImpl implements the MediaService interface
type MediaServiceImpl struct {
	mirrors *MirrorResolver
	titles  TitleResolver
	streams *StreamResolver
	opts    MediaOptions
}

// NewMediaService creates a new media service
func NewMediaService(mirrors *MirrorResolver, titles TitleResolver, streams *StreamResolver, opts MediaOptions) MediaService {
	if opts.TranslationID == "" {
		opts.TranslationID = "238"
	}
	if opts.Quality == "" {
		opts.Quality = "1080p"
	}
	return &MediaServiceImpl{
		mirrors: mirrors,
		titles:  titles,
		streams: streams,
		opts:    opts,
	}
}

// Search implements MediaService
func (s *MediaServiceImpl) Search(ctx context.Context, query string, filter models.Filter, proxy models.ProxyConfig) (*models.SearchResult, error) {
	logger := config.GetLogger()
	query = strings.TrimSpace(query)

	title, err := s.find(ctx, query, filter, true, proxy)
	if err != nil {
		return nil, err
	}
	info := title.Info()

	result := &models.SearchResult{
		Type:      info.Type,
		MovieName: query,
		Title:     info.Name,
		Thumbnail: info.Thumbnail,
		Rating:    info.Rating,
	}

	translation := s.translationFor(info)
	if info.Type == models.ContentTypeTVSeries {
		series, err := title.Series(ctx, translation)
		if err != nil {
			return nil, &apperrors.ErrStreamResolutionFailed{Cause: err}
		}
		result.TranslationID = translation
		result.NumSeasons = series.SeasonCount()
		result.EpisodesPerSeason = series.EpisodesPerSeason()
		logger.Info().Str("query", query).Int("seasons", result.NumSeasons).Msg("Found series")
		return result, nil
	}

	stream, err := s.streams.ResolveStream(ctx, title, models.StreamRequest{
		Query:       query,
		Quality:     s.opts.Quality,
		Translation: translation,
	}, proxy)
	if err != nil {
		return nil, err
	}
	result.StreamURL = stream.StreamURL
	result.SubtitleFilename = stream.SubtitleFilename
	logger.Info().Str("query", query).Msg("Found movie")
	return result, nil
}

// Episodes implements MediaService
func (s *MediaServiceImpl) Episodes(ctx context.Context, query string, season int, translation string, proxy models.ProxyConfig) ([]int, error) {
	if season <= 0 {
		return nil, &apperrors.ErrInvalidParameter{Name: "season", Reason: "must be a positive integer"}
	}
	if translation == "" {
		translation = s.opts.TranslationID
	}

	title, err := s.find(ctx, query, models.FilterTVSeries, false, proxy)
	if err != nil {
		return nil, err
	}

	series, err := title.Series(ctx, translation)
	if err != nil {
		return nil, &apperrors.ErrStreamResolutionFailed{Cause: err}
	}

	episodes, ok := series.EpisodeNumbers(season)
	if !ok {
		return nil, &apperrors.ErrSeasonNotFound{Season: season}
	}
	return episodes, nil
}

// Stream implements MediaService
func (s *MediaServiceImpl) Stream(ctx context.Context, query string, filter models.Filter, season, episode int, proxy models.ProxyConfig) (*models.StreamInfo, error) {
	query = strings.TrimSpace(query)

	title, err := s.find(ctx, query, filter, true, proxy)
	if err != nil {
		return nil, err
	}

	return s.streams.ResolveStream(ctx, title, models.StreamRequest{
		Query:       query,
		Quality:     s.opts.Quality,
		Translation: s.translationFor(title.Info()),
		Season:      season,
		Episode:     episode,
	}, proxy)
}

// translationFor picks the configured translation unless the title lists its
// translators without it, in which case the title's default is used. An empty
// result lets the client fall back to the default as well.
func (s *MediaServiceImpl) translationFor(info models.TitleInfo) string {
	if len(info.Translators) == 0 {
		return s.opts.TranslationID
	}
	if lo.ContainsBy(info.Translators, func(t models.Translator) bool { return t.ID == s.opts.TranslationID }) {
		return s.opts.TranslationID
	}
	return info.DefaultTranslation
}

// find runs mirror resolution and selection, then loads the chosen title
func (s *MediaServiceImpl) find(ctx context.Context, query string, filter models.Filter, findAll bool, proxy models.ProxyConfig) (client.Title, error) {
	logger := config.GetLogger()

	pages, err := s.mirrors.Resolve(ctx, query, findAll, proxy)
	if err != nil {
		return nil, err
	}

	candidate, ok := SelectCandidate(pages, filter)
	if !ok {
		return nil, &apperrors.ErrNoMatchFound{Query: query, ContentType: string(filter)}
	}
	logger.Debug().Str("query", query).Str("url", candidate.URL).Str("type", string(candidate.Type)).Msg("Selected candidate")

	title, err := s.titles.Resolve(ctx, candidate.URL, proxy)
	if err != nil {
		return nil, &apperrors.ErrStreamResolutionFailed{Cause: fmt.Errorf("failed to resolve %s: %w", candidate.URL, err)}
	}
	return title, nil
}
