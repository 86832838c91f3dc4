package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/streamrelay/streamrelay/internal/cache"
	"github.com/streamrelay/streamrelay/internal/config"
	"github.com/streamrelay/streamrelay/internal/metrics"
	"github.com/streamrelay/streamrelay/internal/models"
	"golang.org/x/sync/singleflight"
)

// SubtitleFetcherImpl implements the SubtitleFetcher interface
type SubtitleFetcherImpl struct {
	downloader Downloader
	fs         afero.Fs
	dir        string
	bodies     cache.Cache
	inflight   singleflight.Group
}

// NewSubtitleFetcher creates a fetcher writing into dir on fs. bodies may be
// nil to disable the download cache.
func NewSubtitleFetcher(downloader Downloader, fs afero.Fs, dir string, bodies cache.Cache) *SubtitleFetcherImpl {
	return &SubtitleFetcherImpl{
		downloader: downloader,
		fs:         fs,
		dir:        dir,
		bodies:     bodies,
	}
}

// Fetch downloads link, or reuses a cached body, and writes it to filename.
// Concurrent fetches of the same filename share one download and write.
func (s *SubtitleFetcherImpl) Fetch(ctx context.Context, link, filename string, proxy models.ProxyConfig) error {
	if err := ValidateSubtitleFilename(filename); err != nil {
		return err
	}

	_, err, shared := s.inflight.Do(filename, func() (interface{}, error) {
		return nil, s.fetch(ctx, link, filename, proxy)
	})
	if shared {
		logger := config.GetLogger()
		logger.Debug().Str("filename", filename).Msg("Joined in-flight subtitle fetch")
	}
	return err
}

func (s *SubtitleFetcherImpl) fetch(ctx context.Context, link, filename string, proxy models.ProxyConfig) error {
	logger := config.GetLogger()

	data, cached := s.cached(ctx, link)
	if !cached {
		var err error
		data, err = s.downloader.Download(ctx, link, proxy)
		if err != nil {
			metrics.SubtitleFetchesTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("failed to download subtitle: %w", err)
		}
		if s.bodies != nil {
			s.bodies.Set(ctx, link, data)
		}
	}

	if err := s.write(filename, data); err != nil {
		metrics.SubtitleFetchesTotal.WithLabelValues("error").Inc()
		return err
	}

	status := "downloaded"
	if cached {
		status = "cached"
	}
	metrics.SubtitleFetchesTotal.WithLabelValues(status).Inc()
	logger.Info().Str("filename", filename).Int("size", len(data)).Bool("cached", cached).Msg("Stored subtitle")
	return nil
}

func (s *SubtitleFetcherImpl) cached(ctx context.Context, link string) ([]byte, bool) {
	if s.bodies == nil {
		return nil, false
	}
	return s.bodies.Get(ctx, link)
}

// write replaces filename atomically so readers never see a partial file
func (s *SubtitleFetcherImpl) write(filename string, data []byte) error {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create subtitle directory: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, s.dir, ".subtitle-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("failed to write subtitle: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("failed to close subtitle: %w", err)
	}

	if err := s.fs.Rename(tmpName, filepath.Join(s.dir, filename)); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("failed to move subtitle into place: %w", err)
	}
	return nil
}

// Open opens a stored subtitle for reading
func (s *SubtitleFetcherImpl) Open(filename string) (afero.File, error) {
	if err := ValidateSubtitleFilename(filename); err != nil {
		return nil, err
	}

	f, err := s.fs.Open(filepath.Join(s.dir, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("subtitle %s: %w", filename, os.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to open subtitle: %w", err)
	}
	return f, nil
}
