package services

import (
	"testing"

	"github.com/streamrelay/streamrelay/internal/models"
)

func TestSelectCandidate(t *testing.T) {
	pages := models.SearchPages{
		page(series("s1"), series("s2")),
		page(series("s3"), movie("m1"), movie("m2")),
		page(movie("m3")),
	}

	tests := []struct {
		name   string
		pages  models.SearchPages
		filter models.Filter
		want   string
		found  bool
	}{
		{name: "movie after series", pages: pages, filter: models.FilterMovie, want: "m1", found: true},
		{name: "first series", pages: pages, filter: models.FilterTVSeries, want: "s1", found: true},
		{name: "all takes first entry", pages: pages, filter: models.FilterAll, want: "s1", found: true},
		{name: "no match", pages: models.SearchPages{page(series("s1"))}, filter: models.FilterMovie},
		{name: "empty pages", pages: nil, filter: models.FilterAll},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectCandidate(tt.pages, tt.filter)
			if ok != tt.found {
				t.Fatalf("Expected found=%v, got %v", tt.found, ok)
			}
			if got.URL != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got.URL)
			}
		})
	}
}
