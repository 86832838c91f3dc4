package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/streamrelay/streamrelay/internal/config"
	"github.com/streamrelay/streamrelay/internal/metrics"
)

// ErrStreamInterrupted is returned by Stream when the relay ended before the
// announced length
var ErrStreamInterrupted = errors.New("stream interrupted")

// Response is the client-facing side of one proxied request
type Response struct {
	StatusCode int
	Header     http.Header
	URL        string
	// Total is the upstream length, -1 when unknown
	Total   int64
	Range   ByteRange
	Partial bool

	chunkSize   int
	idleTimeout time.Duration

	body      io.ReadCloser
	cancel    context.CancelFunc
	skip      int64
	remaining int64
}

// WriteHeader copies the status and headers to w
func (r *Response) WriteHeader(w http.ResponseWriter) {
	for key, values := range r.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(r.StatusCode)
}

// expected returns the number of body bytes announced to the client, or -1
func (r *Response) expected() int64 {
	switch {
	case r.Partial:
		return r.Range.Length()
	case r.Total >= 0:
		return r.Total
	default:
		return -1
	}
}

// Stream copies the upstream body to w in fixed-size chunks, flushing after
// each one. It returns the number of bytes written. An upstream drop, an idle
// upstream or a gone client ends the stream with ErrStreamInterrupted.
func (r *Response) Stream(ctx context.Context, w io.Writer) (int64, error) {
	logger := config.GetLogger()
	if r.body == nil {
		return 0, errors.New("response has no body")
	}

	metrics.ProxyActiveStreams.Inc()
	defer metrics.ProxyActiveStreams.Dec()

	var idle atomic.Bool
	timer := time.AfterFunc(r.idleTimeout, func() {
		idle.Store(true)
		r.cancel()
	})
	defer timer.Stop()

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, r.chunkSize)
	var written int64

	interrupted := func(reason string, cause error) (int64, error) {
		metrics.ProxyStreamInterruptionsTotal.WithLabelValues(reason).Inc()
		logger.Warn().Err(cause).Str("url", r.URL).Str("reason", reason).Int64("written", written).Msg("Stream interrupted")
		return written, fmt.Errorf("%w (%s): %v", ErrStreamInterrupted, reason, cause)
	}

	for r.remaining != 0 {
		want := len(buf)
		if r.skip > 0 && r.skip < int64(want) {
			want = int(r.skip)
		} else if r.skip == 0 && r.remaining > 0 && r.remaining < int64(want) {
			want = int(r.remaining)
		}

		timer.Reset(r.idleTimeout)
		n, readErr := r.body.Read(buf[:want])
		timer.Stop()

		if n > 0 {
			chunk := buf[:n]
			if r.skip > 0 {
				r.skip -= int64(n)
				n = 0
			}
			if n > 0 {
				if _, err := w.Write(chunk); err != nil {
					return interrupted("client", err)
				}
				if flusher != nil {
					flusher.Flush()
				}
				written += int64(n)
				metrics.ProxyBytesStreamedTotal.Add(float64(n))
				if r.remaining > 0 {
					r.remaining -= int64(n)
				}
			}
		}

		if readErr == nil {
			continue
		}
		switch {
		case errors.Is(readErr, io.EOF) && r.remaining <= 0:
			// -1 means unknown length, so EOF is the natural end
			r.remaining = 0
		case ctx.Err() != nil:
			return interrupted("client", ctx.Err())
		case idle.Load():
			return interrupted("idle", readErr)
		case errors.Is(readErr, io.EOF):
			return interrupted("upstream", io.ErrUnexpectedEOF)
		default:
			return interrupted("upstream", readErr)
		}
	}

	logger.Debug().Str("url", r.URL).Int64("bytes", written).Int("status", r.StatusCode).Msg("Stream finished")
	return written, nil
}

// Close releases the upstream body
func (r *Response) Close() error {
	if r.cancel != nil {
		r.cancel()
	}
	if r.body != nil {
		return r.body.Close()
	}
	return nil
}
