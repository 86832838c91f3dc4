package services

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/spf13/afero"
	"github.com/streamrelay/streamrelay/internal/apperrors"
	"github.com/streamrelay/streamrelay/internal/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SubtitleFetcher downloads subtitle files into the shared subtitle directory
type SubtitleFetcher interface {
	// Fetch stores the subtitle at link under filename
	Fetch(ctx context.Context, link, filename string, proxy models.ProxyConfig) error
	// Open opens a previously stored subtitle. The filename is validated
	// before the filesystem is touched.
	Open(filename string) (afero.File, error)
}

// Downloader fetches a remote asset into memory
type Downloader interface {
	Download(ctx context.Context, link string, proxy models.ProxyConfig) ([]byte, error)
}

// SubtitleFilename derives the stored filename of a subtitle from the query and,
// for series, the episode. The result is stable for the same input.
func SubtitleFilename(query string, season, episode int) string {
	slug := slugify(query)
	if season > 0 && episode > 0 {
		return fmt.Sprintf("%s_s%de%d_subtitles.vtt", slug, season, episode)
	}
	return slug + "_subtitles.vtt"
}

// ValidateSubtitleFilename rejects names that could leave the subtitle directory
func ValidateSubtitleFilename(filename string) error {
	switch {
	case filename == "",
		strings.Contains(filename, ".."),
		strings.HasPrefix(filename, "/"),
		strings.HasPrefix(filename, `\`),
		strings.ContainsAny(filename, "/\\\x00"):
		return &apperrors.ErrInvalidFilename{Filename: filename}
	}
	return nil
}

func slugify(query string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.TrimSpace(query))
	if err != nil {
		folded = query
	}

	slug := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '.' || r == '_' {
			return r
		}
		return '_'
	}, folded)
	for strings.Contains(slug, "..") {
		slug = strings.ReplaceAll(slug, "..", ".")
	}
	slug = strings.TrimLeft(slug, ".")
	if slug == "" {
		return "untitled"
	}
	return slug
}
