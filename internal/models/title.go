package models

import (
	"sort"

	"github.com/samber/lo"
)

// Translator is one voice-over or subtitle track offered for a title
type Translator struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TitleInfo holds the details parsed from a title's detail page
type TitleInfo struct {
	ID                 string       `json:"id"`
	URL                string       `json:"url"`
	Type               ContentType  `json:"type"`
	Name               string       `json:"name"`
	Thumbnail          string       `json:"thumbnail"`
	Rating             *float64     `json:"rating"`
	Translators        []Translator `json:"translators,omitempty"`
	DefaultTranslation string       `json:"default_translation,omitempty"`
}

// SeriesInfo holds the season and episode listing of a series for one translation
type SeriesInfo struct {
	Seasons  map[int]string         `json:"seasons"`
	Episodes map[int]map[int]string `json:"episodes"`
}

// SeasonCount returns the number of seasons
func (s SeriesInfo) SeasonCount() int {
	return len(s.Seasons)
}

// EpisodesPerSeason returns the episode count for each season
func (s SeriesInfo) EpisodesPerSeason() map[int]int {
	return lo.MapValues(s.Episodes, func(episodes map[int]string, _ int) int {
		return len(episodes)
	})
}

// EpisodeNumbers returns the ascending episode numbers of a season, and false
// when the season does not exist
func (s SeriesInfo) EpisodeNumbers(season int) ([]int, bool) {
	episodes, ok := s.Episodes[season]
	if !ok {
		return nil, false
	}
	numbers := lo.Keys(episodes)
	sort.Ints(numbers)
	return numbers, true
}
