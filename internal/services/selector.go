package services

import (
	"github.com/samber/lo"
	"github.com/streamrelay/streamrelay/internal/models"
)

// SelectCandidate returns the first candidate matching filter, scanning pages
// and entries in upstream order. false means nothing matched.
func SelectCandidate(pages models.SearchPages, filter models.Filter) (models.Candidate, bool) {
	for _, page := range pages {
		if candidate, ok := lo.Find(page, func(c models.Candidate) bool {
			return filter.Matches(c.Type)
		}); ok {
			return candidate, true
		}
	}
	return models.Candidate{}, false
}
