package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/streamrelay/streamrelay/internal/config"
	"github.com/streamrelay/streamrelay/internal/models"
	"github.com/streamrelay/streamrelay/internal/parser"
)

// Search queries one mirror for query
func (c *client) Search(ctx context.Context, baseURL, query string, findAll bool, proxy models.ProxyConfig) (models.SearchPages, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	if findAll {
		return c.fullSearch(ctx, baseURL, query, proxy)
	}

	page, err := c.quickSearch(ctx, baseURL, query, proxy)
	if err != nil {
		return nil, err
	}
	if len(page) == 0 {
		return nil, nil
	}
	return models.SearchPages{page}, nil
}

// fullSearch walks the paginated search until an empty page, the last page,
// or the page limit
func (c *client) fullSearch(ctx context.Context, baseURL, query string, proxy models.ProxyConfig) (models.SearchPages, error) {
	logger := config.GetLogger()
	searchParser := parser.NewSearchParser(baseURL)

	var pages models.SearchPages
	for page := 1; page <= c.maxPages; page++ {
		items, hasNext, err := c.fetchSearchPage(ctx, searchParser, baseURL, query, page, proxy)
		if err != nil {
			// Later pages failing still leaves a usable answer
			if len(pages) > 0 {
				logger.Warn().Err(err).Str("mirror", baseURL).Int("page", page).Msg("Stopping pagination after page error")
				break
			}
			return nil, err
		}
		if len(items) == 0 {
			break
		}
		pages = append(pages, items)
		if !hasNext {
			break
		}
	}

	logger.Debug().Str("mirror", baseURL).Str("query", query).Int("pages", len(pages)).Int("candidates", pages.Len()).Msg("Search finished")
	return pages, nil
}

func (c *client) fetchSearchPage(ctx context.Context, p parser.PagedParser[models.Candidate], baseURL, query string, page int, proxy models.ProxyConfig) ([]models.Candidate, bool, error) {
	params := url.Values{}
	params.Set("do", "search")
	params.Set("subaction", "search")
	params.Set("q", query)
	params.Set("page", strconv.Itoa(page))
	endpoint := baseURL + "/search/?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create search request: %w", err)
	}

	resp, err := c.do(req, proxy)
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch search page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, &ErrUnexpectedStatus{URL: endpoint, StatusCode: resp.StatusCode}
	}

	items, hasNext, err := p.ParseHtmlPage(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse search page %d: %w", page, err)
	}
	return items, hasNext, nil
}

func (c *client) quickSearch(ctx context.Context, baseURL, query string, proxy models.ProxyConfig) (models.SearchPage, error) {
	endpoint := baseURL + "/engine/ajax/search.php"
	form := url.Values{}
	form.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create quick search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := c.do(req, proxy)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quick search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ErrUnexpectedStatus{URL: endpoint, StatusCode: resp.StatusCode}
	}

	items, err := parser.NewQuickSearchParser(baseURL).ParseHtml(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse quick search: %w", err)
	}
	return items, nil
}
