package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/streamrelay/streamrelay/internal/config"
	"github.com/streamrelay/streamrelay/internal/models"
	"github.com/streamrelay/streamrelay/internal/parser"
)

// cdnResponse is the answer of /ajax/get_cdn_series/. Several fields are sent
// as the literal false when absent, hence the raw messages.
type cdnResponse struct {
	Success     bool            `json:"success"`
	Message     string          `json:"message"`
	URL         json.RawMessage `json:"url"`
	Subtitle    json.RawMessage `json:"subtitle"`
	SubtitleLns json.RawMessage `json:"subtitle_lns"`
	Seasons     string          `json:"seasons"`
	Episodes    string          `json:"episodes"`
}

// title implements the Title interface
type title struct {
	client *client
	proxy  models.ProxyConfig
	origin string
	info   models.TitleInfo
}

// Resolve loads and parses a title's detail page
func (c *client) Resolve(ctx context.Context, detailURL string, proxy models.ProxyConfig) (Title, error) {
	logger := config.GetLogger()

	u, err := url.Parse(detailURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid detail url %q", detailURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, detailURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create detail request: %w", err)
	}

	resp, err := c.do(req, proxy)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch detail page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ErrUnexpectedStatus{URL: detailURL, StatusCode: resp.StatusCode}
	}

	var detailParser parser.SingleResultParser[models.TitleInfo] = parser.NewDetailParser(detailURL)
	info, err := detailParser.ParseHtmlSingle(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse detail page: %w", err)
	}

	logger.Info().Str("id", info.ID).Str("name", info.Name).Str("type", string(info.Type)).Msg("Resolved title")

	return &title{
		client: c,
		proxy:  proxy,
		origin: u.Scheme + "://" + u.Host,
		info:   info,
	}, nil
}

// Info returns the parsed detail page
func (t *title) Info() models.TitleInfo {
	return t.info
}

// Stream fetches the stream list of a translation
func (t *title) Stream(ctx context.Context, translation string, season, episode int) (models.StreamDescriptor, error) {
	form := url.Values{}
	form.Set("id", t.info.ID)
	form.Set("translator_id", t.translation(translation))

	if t.info.Type == models.ContentTypeTVSeries {
		if season <= 0 || episode <= 0 {
			return models.StreamDescriptor{}, fmt.Errorf("season and episode are required for series, got s%d e%d", season, episode)
		}
		form.Set("season", strconv.Itoa(season))
		form.Set("episode", strconv.Itoa(episode))
		form.Set("action", "get_stream")
	} else {
		form.Set("action", "get_movie")
	}

	answer, err := t.post(ctx, form)
	if err != nil {
		return models.StreamDescriptor{}, err
	}

	encoded := rawString(answer.URL)
	if encoded == "" {
		return models.StreamDescriptor{}, fmt.Errorf("%s returned no stream url", form.Get("action"))
	}
	decoded, err := parser.DecodeStreamURL(encoded)
	if err != nil {
		return models.StreamDescriptor{}, err
	}

	variants := parser.ParseVariants(decoded)
	if len(variants) == 0 {
		return models.StreamDescriptor{}, fmt.Errorf("%s returned no playable variants", form.Get("action"))
	}

	return models.StreamDescriptor{
		Variants:  variants,
		Subtitles: parser.ParseSubtitles(rawString(answer.Subtitle), rawMap(answer.SubtitleLns)),
	}, nil
}

// Series fetches the season and episode listing of a translation
func (t *title) Series(ctx context.Context, translation string) (models.SeriesInfo, error) {
	if t.info.Type != models.ContentTypeTVSeries {
		return models.SeriesInfo{}, fmt.Errorf("%s is not a series", t.info.URL)
	}

	form := url.Values{}
	form.Set("id", t.info.ID)
	form.Set("translator_id", t.translation(translation))
	form.Set("action", "get_episodes")

	answer, err := t.post(ctx, form)
	if err != nil {
		return models.SeriesInfo{}, err
	}
	return parser.ParseSeries(answer.Seasons, answer.Episodes)
}

func (t *title) translation(requested string) string {
	if requested != "" {
		return requested
	}
	return t.info.DefaultTranslation
}

// post calls the CDN endpoint of the title's mirror
func (t *title) post(ctx context.Context, form url.Values) (*cdnResponse, error) {
	logger := config.GetLogger()
	action := form.Get("action")
	endpoint := t.origin + "/ajax/get_cdn_series/"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Referer", t.info.URL)

	resp, err := t.client.do(req, t.proxy)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ErrUnexpectedStatus{URL: endpoint, StatusCode: resp.StatusCode}
	}

	var answer cdnResponse
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return nil, fmt.Errorf("failed to decode %s answer: %w", action, err)
	}
	if !answer.Success {
		return nil, &ErrRequestRejected{Action: action, Message: answer.Message}
	}

	logger.Debug().Str("action", action).Str("id", t.info.ID).Str("translator_id", form.Get("translator_id")).Msg("CDN request succeeded")
	return &answer, nil
}

// rawString returns a JSON string value, or "" for false, null or other kinds
func rawString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// rawMap returns a JSON object of strings, or nil for false, null or other kinds
func rawMap(raw json.RawMessage) map[string]string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}
