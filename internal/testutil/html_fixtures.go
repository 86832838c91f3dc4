package testutil

import (
	"encoding/base64"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Float64Ptr is a helper for creating *float64 values in tests
func Float64Ptr(v float64) *float64 {
	return &v
}

// SearchItemOptions contains options for generating one search result tile
type SearchItemOptions struct {
	URL      string // absolute or relative title link
	Title    string
	Category string // "films", "series", "cartoons", "animation"; empty omits the .cat marker
	Cover    string
}

// GenerateSearchPageHTML generates a full search result page the way mirrors
// render /search/?do=search&subaction=search. hasNext adds an active "next"
// pagination link.
func GenerateSearchPageHTML(items []SearchItemOptions, hasNext bool) string {
	var sb strings.Builder

	sb.WriteString(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Search results</title></head>
<body>
<div class="b-content__inline_items">
`)
	for _, item := range items {
		cat := ""
		if item.Category != "" {
			cat = fmt.Sprintf(`<i class="entity">%s</i><span class="cat %s"><i class="icon"></i></span>`, item.Category, item.Category)
		}
		cover := item.Cover
		if cover == "" {
			cover = "/i/cover.jpg"
		}
		fmt.Fprintf(&sb, `	<div class="b-content__inline_item" data-id="1" data-url="%[1]s">
		<div class="b-content__inline_item-cover">
			<a href="%[1]s"><img src="%[2]s" height="250" width="166" alt="%[3]s" />%[4]s</a>
		</div>
		<div class="b-content__inline_item-link">
			<a href="%[1]s">%[3]s</a>
			<div>2021, USA, Sci-Fi</div>
		</div>
	</div>
`, item.URL, cover, item.Title, cat)
	}
	sb.WriteString("</div>\n<div class=\"b-navigation\">\n")
	sb.WriteString(`	<span class="b-navigation__prev i-sprt">&nbsp;</span>`)
	if hasNext {
		sb.WriteString(`	<a href="/search/?page=2"><span class="b-navigation__next i-sprt">&nbsp;</span></a>`)
	} else {
		sb.WriteString(`	<span class="b-navigation__next i-sprt">&nbsp;</span>`)
	}
	sb.WriteString("\n</div>\n</body>\n</html>")

	return sb.String()
}

// GenerateQuickSearchHTML generates the fragment returned by /engine/ajax/search.php
func GenerateQuickSearchHTML(items []SearchItemOptions) string {
	var sb strings.Builder
	sb.WriteString(`<div class="b-search__section"><ul class="b-search__section_list">`)
	for _, item := range items {
		fmt.Fprintf(&sb, `<li><a href="%s"><span class="enty">%s</span> (Dune, 2021) <span class="rating"><i class="hd-tooltip">8.1</i></span></a></li>`, item.URL, item.Title)
	}
	sb.WriteString(`</ul></div>`)
	return sb.String()
}

// DetailPageOptions contains options for generating a title detail page
type DetailPageOptions struct {
	PostID      string
	Name        string
	OGType      string // "video.movie" or "video.tv_series"
	Thumbnail   string
	Rating      string // empty omits the rating block
	Translators map[string]string
	Active      string // translator id marked active
	InitCDN     string // translator id passed to the initCDN script; empty omits it
}

// GenerateDetailPageHTML generates a title detail page
func GenerateDetailPageHTML(opts DetailPageOptions) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, `<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>%s</title>
	<meta property="og:type" content="%s" />
</head>
<body>
<div class="b-post">
	<input type="hidden" id="post_id" name="post_id" value="%s">
	<div class="b-post__title"><h1 itemprop="name">%s</h1></div>
	<div class="b-sidecover"><a href="%s"><img src="%s" alt="" /></a></div>
`, opts.Name, opts.OGType, opts.PostID, opts.Name, opts.Thumbnail, opts.Thumbnail)

	if opts.Rating != "" {
		fmt.Fprintf(&sb, `	<div class="b-post__rating"><span class="num">%s</span>/<span>10</span> (<span class="votes">1234</span>)</div>
`, opts.Rating)
	}

	if len(opts.Translators) > 0 {
		sb.WriteString(`	<ul id="translators-list" class="b-translators__list">` + "\n")
		for _, id := range slices.Sorted(maps.Keys(opts.Translators)) {
			class := "b-translator__item"
			if id == opts.Active {
				class += " active"
			}
			fmt.Fprintf(&sb, `		<li title="%[2]s" class="%[3]s" data-translator_id="%[1]s">%[2]s</li>
`, id, opts.Translators[id], class)
		}
		sb.WriteString("	</ul>\n")
	}

	if opts.InitCDN != "" {
		fmt.Fprintf(&sb, `	<script>$(function () { sof.tv.initCDNMoviesEvents(%s, %s, 0, 0, false, '', false, {"id":"cdnplayer"}); });</script>
`, opts.PostID, opts.InitCDN)
	}

	sb.WriteString("</div>\n</body>\n</html>")
	return sb.String()
}

// GenerateSeasonsHTML generates the "seasons" fragment of a get_episodes answer
func GenerateSeasonsHTML(seasons []int) string {
	var sb strings.Builder
	sb.WriteString(`<ul id="simple-seasons-tabs" class="b-simple_seasons__list">`)
	for _, s := range seasons {
		fmt.Fprintf(&sb, `<li class="b-simple_season__item" data-tab_id="%d">Season %d</li>`, s, s)
	}
	sb.WriteString(`</ul>`)
	return sb.String()
}

// GenerateEpisodesHTML generates the "episodes" fragment of a get_episodes
// answer for the given episode count per season
func GenerateEpisodesHTML(episodesPerSeason map[int]int) string {
	var sb strings.Builder
	for _, season := range slices.Sorted(maps.Keys(episodesPerSeason)) {
		fmt.Fprintf(&sb, `<ul id="simple-episodes-list-%d" class="b-simple_episodes__list">`, season)
		// Emit in reverse to make sure consumers sort
		for e := episodesPerSeason[season]; e >= 1; e-- {
			fmt.Fprintf(&sb, `<li class="b-simple_episode__item" data-id="1" data-season_id="%d" data-episode_id="%d">Episode %d</li>`, season, e, e)
		}
		sb.WriteString(`</ul>`)
	}
	return sb.String()
}

// ObfuscateStreamURL encodes a plain stream list the way mirrors send it:
// base64 with "//_//" separated filler blocks, prefixed with "#h"
func ObfuscateStreamURL(plain string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(plain))
	filler := []string{
		base64.StdEncoding.EncodeToString([]byte("$$!")),
		base64.StdEncoding.EncodeToString([]byte("@#")),
	}

	var sb strings.Builder
	sb.WriteString("#h")
	for i := 0; i < len(encoded); i += 12 {
		end := min(i+12, len(encoded))
		sb.WriteString(encoded[i:end])
		if end < len(encoded) {
			sb.WriteString("//_//")
			sb.WriteString(filler[(i/12)%len(filler)])
		}
	}
	return sb.String()
}

// StreamList builds a decoded stream list, e.g.
// "[720p]https://cdn/720.mp4:hls:manifest.m3u8 or https://cdn/720.mp4"
func StreamList(baseURL string, qualities ...string) string {
	parts := make([]string, 0, len(qualities))
	for _, q := range qualities {
		file := strings.ReplaceAll(q, " ", "_")
		parts = append(parts, fmt.Sprintf("[%s]%s/%s.mp4:hls:manifest.m3u8 or %s/%s.mp4", q, baseURL, file, baseURL, file))
	}
	return strings.Join(parts, ",")
}
