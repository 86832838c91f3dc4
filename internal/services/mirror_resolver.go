package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/timeout"
	"github.com/samber/mo"
	"github.com/streamrelay/streamrelay/internal/apperrors"
	"github.com/streamrelay/streamrelay/internal/config"
	"github.com/streamrelay/streamrelay/internal/metrics"
	"github.com/streamrelay/streamrelay/internal/models"
)

// Searcher is the search capability of the upstream client
type Searcher interface {
	Search(ctx context.Context, baseURL, query string, findAll bool, proxy models.ProxyConfig) (models.SearchPages, error)
}

// errEmptyResult marks a mirror that answered without candidates
var errEmptyResult = errors.New("no results")

// MirrorResolver searches the configured mirrors in order and returns the
// first non-empty result
type MirrorResolver struct {
	searcher Searcher
	mirrors  []string
	timeout  time.Duration
}

// NewMirrorResolver creates a resolver over mirrors, bounding each attempt by perMirror
func NewMirrorResolver(searcher Searcher, mirrors []string, perMirror time.Duration) *MirrorResolver {
	if perMirror <= 0 {
		perMirror = 10 * time.Second
	}
	return &MirrorResolver{
		searcher: searcher,
		mirrors:  append([]string(nil), mirrors...),
		timeout:  perMirror,
	}
}

// Resolve tries every mirror in order. A failing or empty mirror is logged and
// skipped; when none yields candidates the joined causes are returned as
// ErrResolutionExhausted.
func (r *MirrorResolver) Resolve(ctx context.Context, query string, findAll bool, proxy models.ProxyConfig) (models.SearchPages, error) {
	logger := config.GetLogger()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &apperrors.ErrNoQueryProvided{}
	}

	causes := make([]error, 0, len(r.mirrors))
	for _, mirror := range r.mirrors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pages, err := r.attempt(ctx, mirror, query, findAll, proxy).Get()
		switch {
		case errors.Is(err, errEmptyResult):
			logger.Info().Str("mirror", mirror).Str("query", query).Msg("Mirror returned no results")
			metrics.MirrorAttemptsTotal.WithLabelValues(mirror, "empty").Inc()
		case err != nil:
			logger.Warn().Err(err).Str("mirror", mirror).Str("query", query).Msg("Mirror search failed")
			metrics.MirrorAttemptsTotal.WithLabelValues(mirror, "error").Inc()
		default:
			metrics.MirrorAttemptsTotal.WithLabelValues(mirror, "ok").Inc()
			logger.Info().Str("mirror", mirror).Str("query", query).Int("candidates", pages.Len()).Msg("Mirror search succeeded")
			return pages, nil
		}
		causes = append(causes, fmt.Errorf("%s: %w", mirror, err))
	}

	return nil, apperrors.NewResolutionExhaustedError(query, causes)
}

// attempt runs one bounded search against mirror
func (r *MirrorResolver) attempt(ctx context.Context, mirror, query string, findAll bool, proxy models.ProxyConfig) mo.Result[models.SearchPages] {
	pages, err := failsafe.With[models.SearchPages](timeout.New[models.SearchPages](r.timeout)).
		WithContext(ctx).
		GetWithExecution(func(exec failsafe.Execution[models.SearchPages]) (models.SearchPages, error) {
			return r.searcher.Search(exec.Context(), mirror, query, findAll, proxy)
		})
	if err != nil {
		return mo.Err[models.SearchPages](err)
	}
	if pages.Len() == 0 {
		return mo.Err[models.SearchPages](errEmptyResult)
	}
	return mo.Ok(pages)
}
