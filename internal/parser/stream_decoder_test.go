package parser

import (
	"slices"
	"testing"

	"github.com/streamrelay/streamrelay/internal/testutil"
)

func TestDecodeStreamURL(t *testing.T) {
	plain := testutil.StreamList("https://cdn.example/v", "360p", "720p", "1080p", "1080p Ultra")

	decoded, err := DecodeStreamURL(testutil.ObfuscateStreamURL(plain))
	if err != nil {
		t.Fatalf("DecodeStreamURL failed: %v", err)
	}
	if decoded != plain {
		t.Errorf("Expected %q, got %q", plain, decoded)
	}
}

func TestDecodeStreamURL_PlainPassthrough(t *testing.T) {
	plain := "[720p]https://cdn.example/v/720p.mp4"
	decoded, err := DecodeStreamURL(plain)
	if err != nil {
		t.Fatalf("DecodeStreamURL failed: %v", err)
	}
	if decoded != plain {
		t.Errorf("Expected plain input unchanged, got %q", decoded)
	}
}

func TestDecodeStreamURL_Invalid(t *testing.T) {
	if _, err := DecodeStreamURL("#h!!!not-base64"); err == nil {
		t.Fatal("Expected an error for an undecodable payload")
	}
}

func TestParseVariants(t *testing.T) {
	variants := ParseVariants(testutil.StreamList("https://cdn.example/v", "360p", "720p", "1080p", "1080p Ultra"))

	expectedQualities := []string{"360p", "720p", "1080p", "1080p Ultra"}
	if len(variants) != len(expectedQualities) {
		t.Fatalf("Expected %d variants, got %d", len(expectedQualities), len(variants))
	}
	for i, q := range expectedQualities {
		if variants[i].Quality != q {
			t.Errorf("Variant %d: expected quality %q, got %q", i, q, variants[i].Quality)
		}
	}
	if !slices.Equal(variants[3].Links, []string{"https://cdn.example/v/1080p_Ultra.mp4"}) {
		t.Errorf("Expected only the direct mp4 link, got %v", variants[3].Links)
	}
}

func TestParseVariants_MergesAndFilters(t *testing.T) {
	variants := ParseVariants("[720p]https://a/720.mp4,[480p]https://a/480.m3u8,garbage,[720p]https://b/720.m3u8 or https://b/720.mp4")

	if len(variants) != 1 {
		t.Fatalf("Expected 1 variant, got %d: %+v", len(variants), variants)
	}
	if !slices.Equal(variants[0].Links, []string{"https://a/720.mp4", "https://b/720.mp4"}) {
		t.Errorf("Expected merged links, got %v", variants[0].Links)
	}
}

func TestParseSubtitles(t *testing.T) {
	codes := map[string]string{"English": "en", "Русский": "ru"}

	track, ok := ParseSubtitles("[English]https://s.example/en.vtt,[Русский]https://s.example/ru.vtt,[Klingon]https://s.example/tlh.vtt", codes).Get()
	if !ok {
		t.Fatal("Expected a subtitle track")
	}
	if len(track) != 2 {
		t.Errorf("Expected 2 languages, got %d", len(track))
	}
	if track["en"] != "https://s.example/en.vtt" {
		t.Errorf("Unexpected English link %q", track["en"])
	}

	if ParseSubtitles("", codes).IsPresent() {
		t.Error("Expected no track for an empty list")
	}
	if ParseSubtitles("[English]https://s.example/en.vtt", nil).IsPresent() {
		t.Error("Expected no track without language codes")
	}
}
