package parser

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/streamrelay/streamrelay/internal/models"
)

// labelledLinkPattern matches one "[label]payload" entry of a comma separated list
var labelledLinkPattern = regexp.MustCompile(`^\s*\[([^\]]+)\]([^\[]+)$`)

// trashCodes are the base64 encodings of every 2 and 3 character combination
// of the filler characters injected into obfuscated stream URLs.
var trashCodes = func() []string {
	filler := []string{"@", "#", "!", "^", "$"}
	var combos []string
	for _, a := range filler {
		for _, b := range filler {
			combos = append(combos, a+b)
		}
	}
	for _, a := range filler {
		for _, b := range filler {
			for _, c := range filler {
				combos = append(combos, a+b+c)
			}
		}
	}
	return lo.Map(combos, func(combo string, _ int) string {
		return base64.StdEncoding.EncodeToString([]byte(combo))
	})
}()

// DecodeStreamURL reverses the obfuscation applied to the "url" field of a
// stream answer. Plain answers are returned unchanged.
func DecodeStreamURL(data string) (string, error) {
	if !strings.HasPrefix(data, "#h") {
		return data, nil
	}

	payload := strings.Join(strings.Split(strings.TrimPrefix(data, "#h"), "//_//"), "")
	for _, code := range trashCodes {
		payload = strings.ReplaceAll(payload, code, "")
	}

	decoded, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
	if err != nil {
		return "", fmt.Errorf("failed to decode stream url: %w", err)
	}
	return string(decoded), nil
}

// ParseVariants splits a decoded stream URL list such as
// "[720p]a.m3u8 or a.mp4,[1080p]b.m3u8 or b.mp4" into quality variants,
// keeping only direct .mp4 links and the upstream order.
func ParseVariants(decoded string) []models.QualityVariant {
	var variants []models.QualityVariant
	index := make(map[string]int)

	for _, part := range strings.Split(decoded, ",") {
		m := labelledLinkPattern.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		quality := strings.TrimSpace(m[1])
		links := lo.FilterMap(strings.Split(m[2], " or "), func(link string, _ int) (string, bool) {
			link = strings.TrimSpace(link)
			return link, strings.HasSuffix(link, ".mp4")
		})
		if len(links) == 0 {
			continue
		}

		if i, ok := index[quality]; ok {
			variants[i].Links = append(variants[i].Links, links...)
			continue
		}
		index[quality] = len(variants)
		variants = append(variants, models.QualityVariant{Quality: quality, Links: links})
	}

	return variants
}

// ParseSubtitles maps a "[English]link,[Русский]link" list through the
// language-name to code table. Absent or empty lists yield None.
func ParseSubtitles(list string, languageCodes map[string]string) mo.Option[models.SubtitleTrack] {
	track := make(models.SubtitleTrack)
	for _, part := range strings.Split(list, ",") {
		m := labelledLinkPattern.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		code, ok := languageCodes[strings.TrimSpace(m[1])]
		if !ok {
			continue
		}
		track[code] = strings.TrimSpace(m[2])
	}

	if len(track) == 0 {
		return mo.None[models.SubtitleTrack]()
	}
	return mo.Some(track)
}
