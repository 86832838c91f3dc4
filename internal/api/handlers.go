package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/streamrelay/streamrelay/internal/apperrors"
	"github.com/streamrelay/streamrelay/internal/config"
	"github.com/streamrelay/streamrelay/internal/metrics"
	"github.com/streamrelay/streamrelay/internal/models"
)

type searchResponse struct {
	Success bool `json:"success"`
	*models.SearchResult
}

// Health answers liveness probes
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Search handles POST /search
func (h *Handler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.PostForm("query"))
	if query == "" {
		writeError(c, &apperrors.ErrNoQueryProvided{})
		return
	}
	filter, err := parseFilter(c.DefaultPostForm("content_type", string(models.FilterAll)))
	if err != nil {
		writeError(c, err)
		return
	}

	result, err := h.deps.Media.Search(c.Request.Context(), query, filter, h.deps.Proxies.Current())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, searchResponse{Success: true, SearchResult: result})
}

// Episodes handles GET /episodes
func (h *Handler) Episodes(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		writeError(c, &apperrors.ErrNoQueryProvided{})
		return
	}
	season, err := intParam(c, "season", true)
	if err != nil {
		writeError(c, err)
		return
	}

	episodes, err := h.deps.Media.Episodes(c.Request.Context(), query, season, c.Query("translation_id"), h.deps.Proxies.Current())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "episodes": episodes})
}

// Stream handles GET /stream
func (h *Handler) Stream(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		writeError(c, &apperrors.ErrNoQueryProvided{})
		return
	}
	season, err := intParam(c, "season", false)
	if err != nil {
		writeError(c, err)
		return
	}
	episode, err := intParam(c, "episode", false)
	if err != nil {
		writeError(c, err)
		return
	}
	filter, err := parseFilter(c.DefaultQuery("content_type", string(models.FilterAll)))
	if err != nil {
		writeError(c, err)
		return
	}

	info, err := h.deps.Media.Stream(c.Request.Context(), query, filter, season, episode, h.deps.Proxies.Current())
	if err != nil {
		writeError(c, err)
		return
	}

	var subtitle *string
	if info.SubtitleFilename != "" {
		subtitle = &info.SubtitleFilename
	}
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"stream_url":        info.StreamURL,
		"subtitle_filename": subtitle,
	})
}

// ProxyStream handles GET and HEAD /proxy-stream
func (h *Handler) ProxyStream(c *gin.Context) {
	logger := config.GetLogger()
	ctx := c.Request.Context()
	mediaURL := c.Query("url")
	rangeHeader := c.GetHeader("Range")
	proxy := h.deps.Proxies.Current()

	if c.Request.Method == http.MethodHead {
		resp, err := h.deps.Proxy.Probe(ctx, mediaURL, rangeHeader, proxy)
		if err != nil {
			metrics.ProxyRequestsTotal.WithLabelValues(strconv.Itoa(statusFor(err))).Inc()
			writeError(c, err)
			return
		}
		metrics.ProxyRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
		resp.WriteHeader(c.Writer)
		return
	}

	resp, err := h.deps.Proxy.Open(ctx, mediaURL, rangeHeader, proxy)
	if err != nil {
		metrics.ProxyRequestsTotal.WithLabelValues(strconv.Itoa(statusFor(err))).Inc()
		writeError(c, err)
		return
	}
	defer resp.Close()

	metrics.ProxyRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	resp.WriteHeader(c.Writer)

	if _, err := resp.Stream(ctx, c.Writer); err != nil {
		_ = c.Error(err)
		logger.Debug().Err(err).Str("url", mediaURL).Msg("Aborting client connection")
		// Headers are gone; dropping the connection is the only signal left
		panic(http.ErrAbortHandler)
	}
}

// Subtitle handles GET /static/subtitles/*filename
func (h *Handler) Subtitle(c *gin.Context) {
	// The wildcard value keeps the separator before the name
	filename := strings.TrimPrefix(c.Param("filename"), "/")

	f, err := h.deps.Subtitles.Open(filename)
	if err != nil {
		writeError(c, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Type", "text/vtt; charset=utf-8")
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
}

func parseFilter(value string) (models.Filter, error) {
	filter, ok := models.ParseFilter(value)
	if !ok {
		return "", &apperrors.ErrInvalidParameter{Name: "content_type", Reason: "must be movie, tv_series or all"}
	}
	return filter, nil
}

// intParam reads a positive integer query parameter; 0 means absent when optional
func intParam(c *gin.Context, name string, required bool) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		if required {
			return 0, &apperrors.ErrInvalidParameter{Name: name, Reason: "required"}
		}
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, &apperrors.ErrInvalidParameter{Name: name, Reason: "must be a positive integer"}
	}
	return value, nil
}
