package models

// SearchResult is the outcome of a title search: series carry their season
// layout, movies a resolved stream
type SearchResult struct {
	Type      ContentType `json:"type"`
	MovieName string      `json:"movie_name"`
	Title     string      `json:"title"`
	Thumbnail string      `json:"thumbnail"`
	Rating    *float64    `json:"rating"`

	// Series only
	TranslationID     string      `json:"translation_id,omitempty"`
	NumSeasons        int         `json:"num_seasons,omitempty"`
	EpisodesPerSeason map[int]int `json:"episodes_per_season,omitempty"`

	// Movies only
	StreamURL        string `json:"stream_url,omitempty"`
	SubtitleFilename string `json:"subtitle_filename,omitempty"`
}
