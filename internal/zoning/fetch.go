package zoning

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = hc }
}

// WithRateLimit sets the requests-per-second limit for dataset downloads.
func WithRateLimit(rps float64) FetcherOption {
	return func(f *Fetcher) { f.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

// Fetcher downloads remote zoning reference datasets to temporary files.
// Download is a scoped acquisition: the returned cleanup always releases the
// temporary file, and callers must invoke it on every path.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:  &http.Client{Timeout: 2 * time.Minute},
		limiter: rate.NewLimiter(1, 1),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// IsRemote reports whether the dataset path is an HTTP(S) URL.
func IsRemote(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

// Download fetches a dataset URL into a temporary file, preserving the URL's
// file extension so the loader can dispatch on it. Any failure removes the
// partial file before returning.
func (f *Fetcher) Download(ctx context.Context, rawURL string) (string, func(), error) {
	noop := func() {}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", noop, eris.Wrapf(err, "zoning: parse dataset URL %s", rawURL)
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return "", noop, eris.Wrap(err, "zoning: rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", noop, eris.Wrap(err, "zoning: build dataset request")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", noop, eris.Wrap(err, "zoning: download dataset")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", noop, eris.Errorf("zoning: dataset download returned status %d", resp.StatusCode)
	}

	ext := filepath.Ext(path.Base(u.Path))
	if ext == "" {
		ext = ".geojson"
	}
	tmp, err := os.CreateTemp("", "dealscout-zoning-*"+ext)
	if err != nil {
		return "", noop, eris.Wrap(err, "zoning: create temp file")
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", noop, eris.Wrap(err, "zoning: write dataset")
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", noop, eris.Wrap(err, "zoning: close dataset file")
	}

	zap.L().Info("zoning dataset downloaded",
		zap.String("url", rawURL),
		zap.String("path", tmp.Name()),
	)
	return tmp.Name(), cleanup, nil
}
