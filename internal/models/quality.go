package models

import "strings"

// Quality ranks the resolution labels offered for a stream variant.
type Quality int

const (
	QualityUnknown Quality = iota
	Quality360p
	Quality480p
	Quality720p
	Quality1080p
	Quality1080pUltra
	Quality1440p // 2K
	Quality2160p // 4K
)

// qualityLabels holds the label the upstream player shows, indexed by Quality
var qualityLabels = [...]string{
	QualityUnknown:    "unknown",
	Quality360p:       "360p",
	Quality480p:       "480p",
	Quality720p:       "720p",
	Quality1080p:      "1080p",
	Quality1080pUltra: "1080p Ultra",
	Quality1440p:      "2K",
	Quality2160p:      "4K",
}

// qualityByLabel maps lowercased labels, including pixel-height aliases
var qualityByLabel = func() map[string]Quality {
	m := map[string]Quality{"1440p": Quality1440p, "2160p": Quality2160p}
	for q := Quality360p; int(q) < len(qualityLabels); q++ {
		m[strings.ToLower(qualityLabels[q])] = q
	}
	return m
}()

func (q Quality) String() string {
	if q < 0 || int(q) >= len(qualityLabels) {
		return qualityLabels[QualityUnknown]
	}
	return qualityLabels[q]
}

// ParseQuality reads a variant label such as "1080p Ultra". Case and inner
// whitespace are ignored; unrecognised labels give QualityUnknown.
func ParseQuality(label string) Quality {
	return qualityByLabel[strings.ToLower(strings.Join(strings.Fields(label), " "))]
}

// MarshalJSON encodes the quality as its label.
func (q Quality) MarshalJSON() ([]byte, error) {
	return []byte(`"` + q.String() + `"`), nil
}

// UnmarshalJSON accepts any label ParseQuality understands.
func (q *Quality) UnmarshalJSON(data []byte) error {
	*q = ParseQuality(strings.Trim(string(data), `"`))
	return nil
}
