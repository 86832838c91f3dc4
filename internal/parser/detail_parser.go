package parser

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/streamrelay/streamrelay/internal/config"
	"github.com/streamrelay/streamrelay/internal/models"
)

var (
	// sof.tv.initCDNMoviesEvents(<post id>, <translator id>, ...)
	initCDNPattern = regexp.MustCompile(`initCDN(?:Series|Movies)Events\(\s*\d+\s*,\s*(\d+)`)
	urlIDPattern   = regexp.MustCompile(`/(\d+)-[^/]*$`)
)

// DetailParser parses a title detail page
type DetailParser struct {
	pageURL string
}

// NewDetailParser creates a parser for the detail page located at pageURL
func NewDetailParser(pageURL string) *DetailParser {
	return &DetailParser{pageURL: pageURL}
}

// ParseHtmlSingle extracts the title details
func (p *DetailParser) ParseHtmlSingle(body io.Reader) (models.TitleInfo, error) {
	logger := config.GetLogger()

	doc, err := newDocument(body)
	if err != nil {
		return models.TitleInfo{}, err
	}
	if err := checkChallenge(doc); err != nil {
		return models.TitleInfo{}, err
	}

	id := p.extractID(doc)
	if id == "" {
		return models.TitleInfo{}, fmt.Errorf("no post id found on %s", p.pageURL)
	}

	info := models.TitleInfo{
		ID:   id,
		URL:  p.pageURL,
		Name: strings.TrimSpace(doc.Find(".b-post__title h1").First().Text()),
	}

	ogType, _ := doc.Find(`meta[property="og:type"]`).Attr("content")
	switch ogType {
	case "video.tv_series":
		info.Type = models.ContentTypeTVSeries
	case "video.movie":
		info.Type = models.ContentTypeMovie
	default:
		info.Type = ContentTypeFromURL(p.pageURL)
	}

	if src, ok := doc.Find(".b-sidecover img").First().Attr("src"); ok {
		info.Thumbnail = resolveURL(p.pageURL, src)
	}

	if value, err := strconv.ParseFloat(strings.TrimSpace(doc.Find(".b-post__rating .num").First().Text()), 64); err == nil {
		info.Rating = &value
	}

	doc.Find("#translators-list [data-translator_id]").Each(func(_ int, s *goquery.Selection) {
		trID, _ := s.Attr("data-translator_id")
		info.Translators = append(info.Translators, models.Translator{
			ID:   trID,
			Name: strings.TrimSpace(s.Text()),
		})
		if s.HasClass("active") {
			info.DefaultTranslation = trID
		}
	})

	if info.DefaultTranslation == "" {
		if html, err := doc.Html(); err == nil {
			if m := initCDNPattern.FindStringSubmatch(html); m != nil {
				info.DefaultTranslation = m[1]
			}
		}
	}
	if info.DefaultTranslation == "" && len(info.Translators) > 0 {
		info.DefaultTranslation = info.Translators[0].ID
	}

	logger.Debug().
		Str("id", info.ID).
		Str("type", string(info.Type)).
		Int("translators", len(info.Translators)).
		Msg("Parsed title detail page")

	return info, nil
}

func (p *DetailParser) extractID(doc *goquery.Document) string {
	candidates := []struct {
		selector string
		attr     string
	}{
		{"#post_id", "value"},
		{"#send-video-issue", "data-id"},
		{"#user-favorites-holder", "data-post_id"},
	}
	for _, c := range candidates {
		if v, ok := doc.Find(c.selector).First().Attr(c.attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}

	// /films/fiction/12345-title-2021.html
	if m := urlIDPattern.FindStringSubmatch(p.pageURL); m != nil {
		return m[1]
	}
	return ""
}
