package services

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/streamrelay/streamrelay/internal/apperrors"
	"github.com/streamrelay/streamrelay/internal/models"
	"github.com/streamrelay/streamrelay/internal/testutil"
)

const mirror = "https://m1.example"

func newTestMediaService(results models.SearchPages, titles map[string]*fakeTitle) (MediaService, *fakeSearcher, *fakeTitles) {
	searcher := &fakeSearcher{results: map[string]models.SearchPages{mirror: results}}
	resolver := &fakeTitles{titles: titles}
	svc := NewMediaService(
		NewMirrorResolver(searcher, []string{mirror}, time.Second),
		resolver,
		NewStreamResolver(nil, "en"),
		MediaOptions{},
	)
	return svc, searcher, resolver
}

func breakingBad() *fakeTitle {
	return &fakeTitle{
		info: models.TitleInfo{ID: "7", Type: models.ContentTypeTVSeries, Name: "Breaking Bad", Rating: testutil.Float64Ptr(9.5)},
		series: models.SeriesInfo{
			Seasons: map[int]string{1: "Season 1", 2: "Season 2"},
			Episodes: map[int]map[int]string{
				1: {1: "e1", 2: "e2", 3: "e3", 4: "e4", 5: "e5", 6: "e6", 7: "e7", 8: "e8", 9: "e9", 10: "e10"},
				2: {8: "e8", 3: "e3", 1: "e1", 2: "e2", 5: "e5", 4: "e4", 7: "e7", 6: "e6"},
			},
		},
		descriptor: models.StreamDescriptor{
			Variants: []models.QualityVariant{{Quality: "1080p", Links: []string{"https://cdn.example/bb.mp4"}}},
		},
	}
}

func TestMediaService_Episodes(t *testing.T) {
	results := models.SearchPages{page(movie("/films/bb-movie.html"), series("/series/bb.html"))}
	title := breakingBad()
	svc, searcher, resolver := newTestMediaService(results, map[string]*fakeTitle{"/series/bb.html": title})

	episodes, err := svc.Episodes(context.Background(), "Breaking Bad", 2, "", models.ProxyConfig{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !slices.Equal(episodes, []int{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Errorf("Expected episodes 1..8, got %v", episodes)
	}
	if searcher.findAll[0] {
		t.Error("Expected a first-page search")
	}
	if !slices.Equal(resolver.resolved, []string{"/series/bb.html"}) {
		t.Errorf("Expected the series candidate to be resolved, got %v", resolver.resolved)
	}
	if !slices.Equal(title.seriesCalls, []string{"238"}) {
		t.Errorf("Expected default translation 238, got %v", title.seriesCalls)
	}

	_, err = svc.Episodes(context.Background(), "Breaking Bad", 3, "", models.ProxyConfig{})
	if !errors.Is(err, &apperrors.ErrSeasonNotFound{}) {
		t.Fatalf("Expected ErrSeasonNotFound, got %v", err)
	}
}

func TestMediaService_EpisodesInvalidSeason(t *testing.T) {
	svc, searcher, _ := newTestMediaService(nil, nil)

	_, err := svc.Episodes(context.Background(), "Breaking Bad", 0, "", models.ProxyConfig{})
	if !errors.Is(err, &apperrors.ErrInvalidParameter{}) {
		t.Fatalf("Expected ErrInvalidParameter, got %v", err)
	}
	if len(searcher.calls) != 0 {
		t.Error("Expected no search")
	}
}

func TestMediaService_SearchSeries(t *testing.T) {
	results := models.SearchPages{page(series("/series/bb.html"))}
	svc, searcher, _ := newTestMediaService(results, map[string]*fakeTitle{"/series/bb.html": breakingBad()})

	result, err := svc.Search(context.Background(), " Breaking Bad ", models.FilterAll, models.ProxyConfig{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !searcher.findAll[0] {
		t.Error("Expected a full search")
	}
	if result.Type != models.ContentTypeTVSeries || result.MovieName != "Breaking Bad" {
		t.Errorf("Unexpected result header: %+v", result)
	}
	if result.TranslationID != "238" || result.NumSeasons != 2 {
		t.Errorf("Expected translation 238 and 2 seasons, got %q and %d", result.TranslationID, result.NumSeasons)
	}
	if result.EpisodesPerSeason[1] != 10 || result.EpisodesPerSeason[2] != 8 {
		t.Errorf("Unexpected episode counts: %v", result.EpisodesPerSeason)
	}
	if result.StreamURL != "" {
		t.Errorf("Expected no stream for series, got %s", result.StreamURL)
	}
}

func TestMediaService_SearchMovie(t *testing.T) {
	dune := movieTitle(mo.None[models.SubtitleTrack]())
	results := models.SearchPages{page(series("/series/dune.html")), page(movie("/films/dune.html"))}
	svc, _, _ := newTestMediaService(results, map[string]*fakeTitle{"/films/dune.html": dune})

	result, err := svc.Search(context.Background(), "Dune", models.FilterMovie, models.ProxyConfig{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.Type != models.ContentTypeMovie {
		t.Errorf("Expected movie, got %s", result.Type)
	}
	if result.StreamURL != "https://cdn.example/1080.mp4" {
		t.Errorf("Expected default quality stream, got %s", result.StreamURL)
	}
	if !slices.Equal(dune.streamCalls, []string{"238"}) {
		t.Errorf("Expected translation 238 for movies, got %v", dune.streamCalls)
	}
}

func TestMediaService_MovieTranslation(t *testing.T) {
	tests := []struct {
		name        string
		translators []models.Translator
		want        string
	}{
		{
			name:        "translators unknown",
			translators: nil,
			want:        "238",
		},
		{
			name:        "original with subtitles offered",
			translators: []models.Translator{{ID: "56", Name: "Дубляж"}, {ID: "238", Name: "Оригинал (+субтитры)"}},
			want:        "238",
		},
		{
			name:        "original with subtitles missing",
			translators: []models.Translator{{ID: "56", Name: "Дубляж"}, {ID: "110", Name: "Многоголосый"}},
			want:        "56",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dune := movieTitle(mo.None[models.SubtitleTrack]())
			dune.info.Translators = tt.translators
			dune.info.DefaultTranslation = "56"
			results := models.SearchPages{page(movie("/films/dune.html"))}
			svc, _, _ := newTestMediaService(results, map[string]*fakeTitle{"/films/dune.html": dune})

			if _, err := svc.Stream(context.Background(), "Dune", models.FilterMovie, 0, 0, models.ProxyConfig{}); err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if !slices.Equal(dune.streamCalls, []string{tt.want}) {
				t.Errorf("Expected translation %q, got %v", tt.want, dune.streamCalls)
			}
		})
	}
}

func TestMediaService_NoMatch(t *testing.T) {
	results := models.SearchPages{page(series("/series/dune.html"))}
	svc, _, resolver := newTestMediaService(results, nil)

	_, err := svc.Search(context.Background(), "Dune", models.FilterMovie, models.ProxyConfig{})
	if !errors.Is(err, &apperrors.ErrNoMatchFound{}) {
		t.Fatalf("Expected ErrNoMatchFound, got %v", err)
	}
	if len(resolver.resolved) != 0 {
		t.Error("Expected no detail page to be loaded")
	}
}

func TestMediaService_Stream(t *testing.T) {
	title := breakingBad()
	results := models.SearchPages{page(series("/series/bb.html"))}
	svc, _, _ := newTestMediaService(results, map[string]*fakeTitle{"/series/bb.html": title})

	info, err := svc.Stream(context.Background(), "Breaking Bad", models.FilterTVSeries, 1, 2, models.ProxyConfig{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if info.StreamURL != "https://cdn.example/bb.mp4" {
		t.Errorf("Expected episode stream, got %s", info.StreamURL)
	}
	if !slices.Equal(title.streamCalls, []string{"238"}) {
		t.Errorf("Expected translation 238, got %v", title.streamCalls)
	}
}

func TestMediaService_ResolveFailure(t *testing.T) {
	results := models.SearchPages{page(movie("/films/gone.html"))}
	svc, _, _ := newTestMediaService(results, map[string]*fakeTitle{})

	_, err := svc.Stream(context.Background(), "Gone", models.FilterAll, 0, 0, models.ProxyConfig{})
	if !errors.Is(err, &apperrors.ErrStreamResolutionFailed{}) {
		t.Fatalf("Expected ErrStreamResolutionFailed, got %v", err)
	}
}
