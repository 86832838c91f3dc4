package services

import (
	"context"
	"errors"
	"sync"

	"github.com/streamrelay/streamrelay/internal/client"
	"github.com/streamrelay/streamrelay/internal/models"
)

// fakeSearcher answers per mirror and records the call order
type fakeSearcher struct {
	mu      sync.Mutex
	results map[string]models.SearchPages
	errs    map[string]error
	block   map[string]bool
	calls   []string
	findAll []bool
}

func (f *fakeSearcher) Search(ctx context.Context, baseURL, query string, findAll bool, proxy models.ProxyConfig) (models.SearchPages, error) {
	f.mu.Lock()
	f.calls = append(f.calls, baseURL)
	f.findAll = append(f.findAll, findAll)
	f.mu.Unlock()

	if f.block[baseURL] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := f.errs[baseURL]; err != nil {
		return nil, err
	}
	return f.results[baseURL], nil
}

// fakeTitle is a resolved title with canned answers
type fakeTitle struct {
	info       models.TitleInfo
	descriptor models.StreamDescriptor
	streamErr  error
	series     models.SeriesInfo
	seriesErr  error

	streamCalls []string
	seriesCalls []string
}

func (t *fakeTitle) Info() models.TitleInfo { return t.info }

func (t *fakeTitle) Stream(ctx context.Context, translation string, season, episode int) (models.StreamDescriptor, error) {
	t.streamCalls = append(t.streamCalls, translation)
	if t.streamErr != nil {
		return models.StreamDescriptor{}, t.streamErr
	}
	return t.descriptor, nil
}

func (t *fakeTitle) Series(ctx context.Context, translation string) (models.SeriesInfo, error) {
	t.seriesCalls = append(t.seriesCalls, translation)
	if t.seriesErr != nil {
		return models.SeriesInfo{}, t.seriesErr
	}
	return t.series, nil
}

// fakeTitles resolves detail URLs to fake titles
type fakeTitles struct {
	titles   map[string]*fakeTitle
	resolved []string
}

func (f *fakeTitles) Resolve(ctx context.Context, detailURL string, proxy models.ProxyConfig) (client.Title, error) {
	f.resolved = append(f.resolved, detailURL)
	title, ok := f.titles[detailURL]
	if !ok {
		return nil, errors.New("detail page not found")
	}
	return title, nil
}

// fakeDownloader serves fixed bodies and counts downloads
type fakeDownloader struct {
	mu     sync.Mutex
	bodies map[string][]byte
	count  int
	gate   chan struct{}
}

func (f *fakeDownloader) Download(ctx context.Context, link string, proxy models.ProxyConfig) ([]byte, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	body, ok := f.bodies[link]
	if !ok {
		return nil, errors.New("not found")
	}
	return body, nil
}

func (f *fakeDownloader) downloads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

func page(candidates ...models.Candidate) models.SearchPage {
	return models.SearchPage(candidates)
}

func movie(url string) models.Candidate {
	return models.Candidate{URL: url, Type: models.ContentTypeMovie, Title: url}
}

func series(url string) models.Candidate {
	return models.Candidate{URL: url, Type: models.ContentTypeTVSeries, Title: url}
}
