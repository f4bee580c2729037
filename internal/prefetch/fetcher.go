package prefetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/launchpath/flowkit/internal/models"
)

// Fetcher is the asset-loading capability the coordinator fans out over.
// Implementations should cache fetched bytes; the coordinator only calls
// it and reacts to success or failure.
type Fetcher interface {
	FetchImage(ctx context.Context, url string) ([]byte, error)
	FetchVideo(ctx context.Context, url string) ([]byte, error)
}

// Constants for HTTP fetcher configuration.
const (
	// DefaultFetchTimeout bounds a single asset download.
	DefaultFetchTimeout = 30 * time.Second
	// DefaultDirPermissions defines the default permissions for cache directories.
	DefaultDirPermissions = 0755
)

// HTTPFetcher fetches assets over HTTP(S) with a content-addressed
// on-disk cache. Cache entries are keyed by the SHA-256 of the URL and
// written via temp file plus rename, so a partial download never becomes
// a cache entry.
type HTTPFetcher struct {
	client   *http.Client
	cacheDir string
}

// HTTPFetcherOption configures an HTTPFetcher.
type HTTPFetcherOption func(*HTTPFetcher)

// WithClient sets the HTTP client used for downloads.
func WithClient(c *http.Client) HTTPFetcherOption {
	return func(f *HTTPFetcher) { f.client = c }
}

// NewHTTPFetcher creates an HTTP fetcher caching under cacheDir. The
// directory is created if it does not exist.
func NewHTTPFetcher(cacheDir string, opts ...HTTPFetcherOption) (*HTTPFetcher, error) {
	if cacheDir == "" {
		return nil, fmt.Errorf("asset cache directory not set")
	}
	if err := os.MkdirAll(cacheDir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create asset cache directory", "error", err, "dir", cacheDir)
		return nil, fmt.Errorf("failed to create asset cache directory: %w", err)
	}
	f := &HTTPFetcher{
		client:   &http.Client{Timeout: DefaultFetchTimeout},
		cacheDir: cacheDir,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// FetchImage downloads or serves a cached image.
func (f *HTTPFetcher) FetchImage(ctx context.Context, rawURL string) ([]byte, error) {
	return f.fetch(ctx, rawURL)
}

// FetchVideo downloads or serves a cached video.
func (f *HTTPFetcher) FetchVideo(ctx context.Context, rawURL string) ([]byte, error) {
	return f.fetch(ctx, rawURL)
}

func (f *HTTPFetcher) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		slog.Error("HTTPFetcher rejected asset URL", "url", rawURL)
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidAssetURL, rawURL)
	}

	cachePath := filepath.Join(f.cacheDir, cacheKey(rawURL))
	if data, err := os.ReadFile(cachePath); err == nil && len(data) > 0 {
		slog.Debug("HTTPFetcher cache hit", "url", rawURL)
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidAssetURL, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		slog.Error("HTTPFetcher download failed", "error", err, "url", rawURL)
		return nil, fmt.Errorf("%w: %v", models.ErrFailedToLoadAsset, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Error("HTTPFetcher unexpected status", "status", resp.StatusCode, "url", rawURL)
		return nil, fmt.Errorf("%w: status %d", models.ErrFailedToLoadAsset, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrFailedToLoadAsset, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty response for %q", models.ErrInvalidAssetData, rawURL)
	}

	if err := writeCacheEntry(cachePath, data); err != nil {
		// Cache write failures degrade to uncached fetches.
		slog.Warn("HTTPFetcher failed to cache asset", "error", err, "url", rawURL)
	}
	slog.Debug("HTTPFetcher download succeeded", "url", rawURL, "bytes", len(data))
	return data, nil
}

func cacheKey(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:])
}

func writeCacheEntry(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".asset-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
