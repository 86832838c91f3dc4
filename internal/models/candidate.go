package models

import "strings"

// ContentType is the upstream category of a title
type ContentType string

const (
	ContentTypeMovie    ContentType = "movie"
	ContentTypeTVSeries ContentType = "tv_series"
)

// Filter restricts candidate selection to one content type, or none with FilterAll
type Filter string

const (
	FilterMovie    Filter = "movie"
	FilterTVSeries Filter = "tv_series"
	FilterAll      Filter = "all"
)

// ParseFilter maps a request value to a Filter. Empty selects FilterAll.
func ParseFilter(value string) (Filter, bool) {
	switch Filter(strings.ToLower(strings.TrimSpace(value))) {
	case "", FilterAll:
		return FilterAll, true
	case FilterMovie:
		return FilterMovie, true
	case FilterTVSeries:
		return FilterTVSeries, true
	default:
		return "", false
	}
}

// Matches reports whether a candidate of type t passes the filter
func (f Filter) Matches(t ContentType) bool {
	return f == FilterAll || ContentType(f) == t
}

// Candidate is one search result entry
type Candidate struct {
	URL       string      `json:"url"`
	Type      ContentType `json:"type"`
	Title     string      `json:"title"`
	Thumbnail string      `json:"thumbnail,omitempty"`
}

// SearchPage is one page of search results in upstream order
type SearchPage []Candidate

// SearchPages is the ordered page sequence returned by one mirror
type SearchPages []SearchPage

// Len returns the number of candidates across all pages
func (p SearchPages) Len() int {
	n := 0
	for _, page := range p {
		n += len(page)
	}
	return n
}
