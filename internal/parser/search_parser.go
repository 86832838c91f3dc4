package parser

import (
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/streamrelay/streamrelay/internal/config"
	"github.com/streamrelay/streamrelay/internal/models"
)

// SearchParser parses the full search result pages of a mirror
// (/search/?do=search&subaction=search&q=...&page=N)
type SearchParser struct {
	baseURL string
}

// NewSearchParser creates a parser resolving relative links against baseURL
func NewSearchParser(baseURL string) *SearchParser {
	return &SearchParser{baseURL: baseURL}
}

// ParseHtml extracts the candidates of one result page
func (p *SearchParser) ParseHtml(body io.Reader) ([]models.Candidate, error) {
	items, _, err := p.ParseHtmlPage(body)
	return items, err
}

// ParseHtmlPage extracts the candidates of one result page and whether the
// pagination links to a following page
func (p *SearchParser) ParseHtmlPage(body io.Reader) ([]models.Candidate, bool, error) {
	logger := config.GetLogger()

	doc, err := newDocument(body)
	if err != nil {
		return nil, false, err
	}
	if err := checkChallenge(doc); err != nil {
		return nil, false, err
	}

	var candidates []models.Candidate
	doc.Find(".b-content__inline_item").Each(func(i int, item *goquery.Selection) {
		link := item.Find(".b-content__inline_item-link a").First()
		href, ok := link.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			logger.Debug().Int("index", i).Msg("Skipping search item without link")
			return
		}
		href = resolveURL(p.baseURL, href)

		contentType := categoryFromClasses(item.Find(".cat").First())
		if contentType == "" {
			contentType = ContentTypeFromURL(href)
		}

		thumbnail, _ := item.Find(".b-content__inline_item-cover img").First().Attr("src")

		candidates = append(candidates, models.Candidate{
			URL:       href,
			Type:      contentType,
			Title:     strings.TrimSpace(link.Text()),
			Thumbnail: resolveURL(p.baseURL, thumbnail),
		})
	})

	hasNext := doc.Find(".b-navigation a .b-navigation__next").Length() > 0

	logger.Debug().Int("candidates", len(candidates)).Bool("has_next", hasNext).Msg("Parsed search page")
	return candidates, hasNext, nil
}

// QuickSearchParser parses the AJAX quick search answer
// (/engine/ajax/search.php), which is a single short list of links
type QuickSearchParser struct {
	baseURL string
}

// NewQuickSearchParser creates a parser resolving relative links against baseURL
func NewQuickSearchParser(baseURL string) *QuickSearchParser {
	return &QuickSearchParser{baseURL: baseURL}
}

// ParseHtml extracts the quick search candidates
func (p *QuickSearchParser) ParseHtml(body io.Reader) ([]models.Candidate, error) {
	doc, err := newDocument(body)
	if err != nil {
		return nil, err
	}
	if err := checkChallenge(doc); err != nil {
		return nil, err
	}

	var candidates []models.Candidate
	doc.Find(".b-search__section_list li").Each(func(_ int, item *goquery.Selection) {
		href, ok := item.Find("a").First().Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		href = resolveURL(p.baseURL, href)

		candidates = append(candidates, models.Candidate{
			URL:   href,
			Type:  ContentTypeFromURL(href),
			Title: strings.TrimSpace(item.Find("span.enty").First().Text()),
		})
	})

	return candidates, nil
}

// categoryFromClasses maps the ".cat films" style marker of a result tile
func categoryFromClasses(sel *goquery.Selection) models.ContentType {
	class, _ := sel.Attr("class")
	for _, c := range strings.Fields(class) {
		if c == "cat" {
			continue
		}
		return categoryToContentType(c)
	}
	return ""
}

// ContentTypeFromURL derives the content type from the first path segment of
// a title URL, e.g. /films/... or /series/...
func ContentTypeFromURL(rawURL string) models.ContentType {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	segment, _, _ := strings.Cut(strings.Trim(u.Path, "/"), "/")
	return categoryToContentType(segment)
}

func categoryToContentType(category string) models.ContentType {
	switch category {
	case "films":
		return models.ContentTypeMovie
	case "series":
		return models.ContentTypeTVSeries
	default:
		return models.ContentType(category)
	}
}

func resolveURL(baseURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || baseURL == "" {
		return href
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
