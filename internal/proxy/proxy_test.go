package proxy

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/streamrelay/streamrelay/internal/apperrors"
	"github.com/streamrelay/streamrelay/internal/metrics"
	"github.com/streamrelay/streamrelay/internal/models"
	"github.com/streamrelay/streamrelay/internal/transport"
)

// mediaServer serves data with ServeContent and counts requests per method
type mediaServer struct {
	*httptest.Server
	data      []byte
	heads     atomic.Int32
	gets      atomic.Int32
	lastRange atomic.Value
}

func newMediaServer(t *testing.T, data []byte, handler http.HandlerFunc) *mediaServer {
	t.Helper()
	m := &mediaServer{data: data}
	m.lastRange.Store("")
	if handler == nil {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "video/mp4")
			http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(m.data))
		}
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			m.heads.Add(1)
		case http.MethodGet:
			m.gets.Add(1)
			m.lastRange.Store(r.Header.Get("Range"))
		}
		handler(w, r)
	}))
	t.Cleanup(m.Close)
	return m
}

func payload(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func newTestProxy() *RangeProxy {
	return NewRangeProxy(transport.NewFactory(transport.Options{Timeout: 5 * time.Second}), Options{
		ChunkSize:    64,
		ProbeTimeout: 2 * time.Second,
		IdleTimeout:  2 * time.Second,
	})
}

func TestRangeProxy_PartialContent(t *testing.T) {
	data := payload(1000)
	server := newMediaServer(t, data, nil)
	p := newTestProxy()

	resp, err := p.Open(context.Background(), server.URL+"/movie.mp4", "bytes=100-199", models.ProxyConfig{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer resp.Close()

	if resp.StatusCode != http.StatusPartialContent {
		t.Errorf("Expected 206, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Range"); got != "bytes 100-199/1000" {
		t.Errorf("Expected Content-Range bytes 100-199/1000, got %q", got)
	}
	if got := resp.Header.Get("Content-Length"); got != "100" {
		t.Errorf("Expected Content-Length 100, got %q", got)
	}
	if got := resp.Header.Get("Accept-Ranges"); got != "bytes" {
		t.Errorf("Expected Accept-Ranges bytes, got %q", got)
	}
	if got := server.lastRange.Load().(string); got != "bytes=100-199" {
		t.Errorf("Expected mirrored range upstream, got %q", got)
	}

	var body bytes.Buffer
	n, err := resp.Stream(context.Background(), &body)
	if err != nil {
		t.Fatalf("Expected no stream error, got %v", err)
	}
	if n != 100 || !bytes.Equal(body.Bytes(), data[100:200]) {
		t.Errorf("Expected exactly bytes 100-199, got %d bytes", body.Len())
	}
}

func TestRangeProxy_FullContent(t *testing.T) {
	data := payload(500)
	server := newMediaServer(t, data, nil)
	p := newTestProxy()

	resp, err := p.Open(context.Background(), server.URL+"/movie.mp4", "", models.ProxyConfig{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer resp.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Length"); got != "500" {
		t.Errorf("Expected Content-Length 500, got %q", got)
	}
	if resp.Header.Get("Content-Range") != "" {
		t.Error("Expected no Content-Range")
	}
	if got := resp.Header.Get("Content-Type"); got != "video/mp4" {
		t.Errorf("Expected upstream content type, got %q", got)
	}

	var body bytes.Buffer
	if _, err := resp.Stream(context.Background(), &body); err != nil {
		t.Fatalf("Expected no stream error, got %v", err)
	}
	if !bytes.Equal(body.Bytes(), data) {
		t.Errorf("Expected full body, got %d bytes", body.Len())
	}
}

func TestRangeProxy_InvalidRangeSkipsBodyRequest(t *testing.T) {
	server := newMediaServer(t, payload(1000), nil)
	p := newTestProxy()

	for _, header := range []string{"bytes=200-100", "bytes=0-1000", "bytes=5000-", "bytes=abc", "bytes=-10"} {
		t.Run(header, func(t *testing.T) {
			_, err := p.Open(context.Background(), server.URL+"/movie.mp4", header, models.ProxyConfig{})
			if !errors.Is(err, &apperrors.ErrInvalidRange{}) {
				t.Fatalf("Expected ErrInvalidRange, got %v", err)
			}
		})
	}
	if server.gets.Load() != 0 {
		t.Errorf("Expected no body request, got %d", server.gets.Load())
	}
	if server.heads.Load() == 0 {
		t.Error("Expected the length to be probed")
	}
}

func TestRangeProxy_UnsatisfiableRange(t *testing.T) {
	server := newMediaServer(t, payload(1000), nil)
	p := newTestProxy()

	_, err := p.Open(context.Background(), server.URL+"/movie.mp4", "bytes=0-1000", models.ProxyConfig{})
	rangeErr, ok := IsUnsatisfiable(err)
	if !ok {
		t.Fatalf("Expected an unsatisfiable range, got %v", err)
	}
	if rangeErr.Total != 1000 {
		t.Errorf("Expected total 1000, got %d", rangeErr.Total)
	}

	_, err = p.Open(context.Background(), server.URL+"/movie.mp4", "bytes=x-", models.ProxyConfig{})
	if _, ok := IsUnsatisfiable(err); ok {
		t.Error("Expected a malformed range not to be reported as unsatisfiable")
	}
}

func TestRangeProxy_ProbeFailure(t *testing.T) {
	failing := newMediaServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	p := newTestProxy()

	_, err := p.Open(context.Background(), failing.URL+"/movie.mp4", "", models.ProxyConfig{})
	var unavailable *apperrors.ErrUpstreamUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("Expected ErrUpstreamUnavailable, got %v", err)
	}
	if unavailable.StatusCode != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", unavailable.StatusCode)
	}
	if failing.gets.Load() != 0 {
		t.Error("Expected no body request after a failed probe")
	}

	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()
	_, err = p.Open(context.Background(), closed.URL+"/movie.mp4", "", models.ProxyConfig{})
	if !errors.Is(err, &apperrors.ErrUpstreamUnavailable{}) {
		t.Fatalf("Expected ErrUpstreamUnavailable for a dead host, got %v", err)
	}
}

func TestRangeProxy_UpstreamIgnoresRange(t *testing.T) {
	data := payload(1000)
	server := newMediaServer(t, data, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		if r.Method == http.MethodGet {
			w.Write(data)
		}
	})
	p := newTestProxy()

	resp, err := p.Open(context.Background(), server.URL+"/movie.mp4", "bytes=300-399", models.ProxyConfig{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer resp.Close()

	var body bytes.Buffer
	if _, err := resp.Stream(context.Background(), &body); err != nil {
		t.Fatalf("Expected no stream error, got %v", err)
	}
	if !bytes.Equal(body.Bytes(), data[300:400]) {
		t.Errorf("Expected bytes 300-399 after skipping, got %d bytes", body.Len())
	}
}

func TestRangeProxy_UpstreamDropsMidStream(t *testing.T) {
	data := payload(1000)
	server := newMediaServer(t, data, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		if r.Method == http.MethodGet {
			w.Write(data[:400])
		}
	})
	p := newTestProxy()

	resp, err := p.Open(context.Background(), server.URL+"/movie.mp4", "", models.ProxyConfig{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer resp.Close()

	var body bytes.Buffer
	n, err := resp.Stream(context.Background(), &body)
	if !errors.Is(err, ErrStreamInterrupted) {
		t.Fatalf("Expected ErrStreamInterrupted, got %v", err)
	}
	if n >= int64(len(data)) {
		t.Errorf("Expected a short body, got %d bytes", n)
	}
}

func TestRangeProxy_StalledUpstream(t *testing.T) {
	data := payload(1000)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	server := newMediaServer(t, data, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		if r.Method != http.MethodGet {
			return
		}
		w.Write(data[:100])
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})

	idleTimeout := 300 * time.Millisecond
	p := NewRangeProxy(transport.NewFactory(transport.Options{Timeout: 5 * time.Second}), Options{
		ChunkSize:    64,
		ProbeTimeout: 2 * time.Second,
		IdleTimeout:  idleTimeout,
	})

	resp, err := p.Open(context.Background(), server.URL+"/movie.mp4", "", models.ProxyConfig{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer resp.Close()

	idleBefore := testutil.ToFloat64(metrics.ProxyStreamInterruptionsTotal.WithLabelValues("idle"))
	started := time.Now()
	var body bytes.Buffer
	n, err := resp.Stream(context.Background(), &body)
	elapsed := time.Since(started)

	if !errors.Is(err, ErrStreamInterrupted) {
		t.Fatalf("Expected ErrStreamInterrupted, got %v", err)
	}
	if !strings.Contains(err.Error(), "(idle)") {
		t.Errorf("Expected an idle interruption, got %v", err)
	}
	if n != 100 || !bytes.Equal(body.Bytes(), data[:100]) {
		t.Errorf("Expected the 100 bytes sent before the stall, got %d", n)
	}
	if elapsed < idleTimeout || elapsed > idleTimeout+time.Second {
		t.Errorf("Expected the stream to end about %v after the stall, took %v", idleTimeout, elapsed)
	}
	if diff := testutil.ToFloat64(metrics.ProxyStreamInterruptionsTotal.WithLabelValues("idle")) - idleBefore; diff != 1 {
		t.Errorf("Expected 1 idle interruption to be counted, got %.0f", diff)
	}
}

func TestRangeProxy_BodyRequestRejected(t *testing.T) {
	server := newMediaServer(t, nil, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusGone)
			return
		}
		w.Header().Set("Content-Length", "10")
	})
	p := newTestProxy()

	_, err := p.Open(context.Background(), server.URL+"/movie.mp4", "", models.ProxyConfig{})
	if !errors.Is(err, &apperrors.ErrUpstreamUnavailable{}) {
		t.Fatalf("Expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestRangeProxy_RejectsNonHTTPURL(t *testing.T) {
	p := newTestProxy()

	for _, u := range []string{"", "file:///etc/passwd", "ftp://example.com/a.mp4", "not a url"} {
		_, err := p.Probe(context.Background(), u, "", models.ProxyConfig{})
		if !errors.Is(err, &apperrors.ErrInvalidParameter{}) {
			t.Errorf("Expected ErrInvalidParameter for %q, got %v", u, err)
		}
	}
}

func TestRangeProxy_ClientGone(t *testing.T) {
	server := newMediaServer(t, payload(4096), nil)
	p := newTestProxy()

	ctx, cancel := context.WithCancel(context.Background())
	resp, err := p.Open(ctx, server.URL+"/movie.mp4", "", models.ProxyConfig{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer resp.Close()

	n, err := resp.Stream(ctx, &failingWriter{after: 2, cancel: cancel})
	if !errors.Is(err, ErrStreamInterrupted) {
		t.Fatalf("Expected ErrStreamInterrupted, got %v", err)
	}
	if n <= 0 || n > 128 {
		t.Errorf("Expected at most two chunks before the client left, got %d bytes", n)
	}
}

// failingWriter accepts a number of writes, then fails like a closed connection
type failingWriter struct {
	after  int
	writes int
	cancel context.CancelFunc
}

func (f *failingWriter) Write(p []byte) (int, error) {
	if f.writes >= f.after {
		f.cancel()
		return 0, errors.New("broken pipe")
	}
	f.writes++
	return len(p), nil
}
