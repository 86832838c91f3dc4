package client

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/streamrelay/streamrelay/internal/config"
	"github.com/streamrelay/streamrelay/internal/models"
)

// maxDownloadSize bounds assets fetched into memory
const maxDownloadSize = 10 << 20

// Download fetches a small asset such as a subtitle file
func (c *client) Download(ctx context.Context, link string, proxy models.ProxyConfig) ([]byte, error) {
	logger := config.GetLogger()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := c.do(req, proxy)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", link, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ErrUnexpectedStatus{URL: link, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read download body: %w", err)
	}
	if len(data) > maxDownloadSize {
		return nil, fmt.Errorf("download of %s exceeds %d bytes", link, maxDownloadSize)
	}

	logger.Debug().Str("url", link).Int("size", len(data)).Msg("Downloaded asset")
	return data, nil
}
