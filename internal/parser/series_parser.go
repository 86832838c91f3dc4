package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/streamrelay/streamrelay/internal/models"
)

// ParseSeries builds the season and episode listing from the two HTML fragments
// returned by the get_episodes action.
func ParseSeries(seasonsHTML, episodesHTML string) (models.SeriesInfo, error) {
	seasonsDoc, err := goquery.NewDocumentFromReader(strings.NewReader(seasonsHTML))
	if err != nil {
		return models.SeriesInfo{}, fmt.Errorf("failed to parse seasons: %w", err)
	}
	episodesDoc, err := goquery.NewDocumentFromReader(strings.NewReader(episodesHTML))
	if err != nil {
		return models.SeriesInfo{}, fmt.Errorf("failed to parse episodes: %w", err)
	}

	info := models.SeriesInfo{
		Seasons:  make(map[int]string),
		Episodes: make(map[int]map[int]string),
	}

	seasonsDoc.Find(".b-simple_season__item[data-tab_id]").Each(func(_ int, s *goquery.Selection) {
		id, err := intAttr(s, "data-tab_id")
		if err != nil {
			return
		}
		info.Seasons[id] = strings.TrimSpace(s.Text())
	})

	episodesDoc.Find(".b-simple_episode__item").Each(func(_ int, s *goquery.Selection) {
		season, err := intAttr(s, "data-season_id")
		if err != nil {
			return
		}
		episode, err := intAttr(s, "data-episode_id")
		if err != nil {
			return
		}
		if info.Episodes[season] == nil {
			info.Episodes[season] = make(map[int]string)
		}
		info.Episodes[season][episode] = strings.TrimSpace(s.Text())
	})

	// Some mirrors omit the season tabs for single-season shows
	for season := range info.Episodes {
		if _, ok := info.Seasons[season]; !ok {
			info.Seasons[season] = fmt.Sprintf("Season %d", season)
		}
	}

	return info, nil
}

func intAttr(s *goquery.Selection, name string) (int, error) {
	value, ok := s.Attr(name)
	if !ok {
		return 0, fmt.Errorf("missing %s", name)
	}
	return strconv.Atoi(strings.TrimSpace(value))
}
