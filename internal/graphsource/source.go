// Package graphsource supplies the immutable screen graph from bundled
// JSON or a remote endpoint, with optional store-backed caching.
package graphsource

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/launchpath/flowkit/internal/models"
	"github.com/launchpath/flowkit/internal/store"
)

// DefaultFetchTimeout bounds a remote graph download.
const DefaultFetchTimeout = 15 * time.Second

// Source supplies a decoded, validated screen graph.
type Source interface {
	Load(ctx context.Context) (*models.ScreenGraph, error)
}

// FromJSON decodes and validates a screen graph from raw JSON. Screen
// ids are filled in from the map keys when the blocks omit them.
func FromJSON(data []byte) (*models.ScreenGraph, error) {
	var graph models.ScreenGraph
	if err := json.Unmarshal(data, &graph); err != nil {
		return nil, fmt.Errorf("failed to decode screen graph: %w", err)
	}
	for id, screen := range graph.Screens {
		if screen.ID == "" {
			screen.ID = id
		}
	}
	if err := graph.Validate(); err != nil {
		return nil, err
	}
	return &graph, nil
}

// BundleSource serves a graph shipped inside the host application.
type BundleSource struct {
	data []byte
}

// NewBundleSource creates a source over embedded JSON bytes.
func NewBundleSource(data []byte) *BundleSource {
	return &BundleSource{data: data}
}

// Load decodes the bundled graph.
func (s *BundleSource) Load(ctx context.Context) (*models.ScreenGraph, error) {
	return FromJSON(s.data)
}

// RemoteSource fetches the graph over HTTP, caching the raw blob in a
// store and falling back to the cached copy when the network fails.
type RemoteSource struct {
	url      string
	client   *http.Client
	cache    store.Store
	cacheKey string
}

// RemoteOption configures a RemoteSource.
type RemoteOption func(*RemoteSource)

// WithHTTPClient sets the HTTP client used for graph downloads.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(s *RemoteSource) { s.client = c }
}

// WithCache stores fetched blobs under the given key and serves them
// when the endpoint is unreachable.
func WithCache(st store.Store, key string) RemoteOption {
	return func(s *RemoteSource) {
		s.cache = st
		s.cacheKey = key
	}
}

// NewRemoteSource creates a source over an HTTP endpoint.
func NewRemoteSource(url string, opts ...RemoteOption) *RemoteSource {
	s := &RemoteSource{
		url:    url,
		client: &http.Client{Timeout: DefaultFetchTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load fetches, decodes, and caches the graph. A fetch or decode
// failure falls back to the most recent cached blob, if any.
func (s *RemoteSource) Load(ctx context.Context) (*models.ScreenGraph, error) {
	raw, err := s.fetch(ctx)
	if err == nil {
		graph, decodeErr := FromJSON(raw)
		if decodeErr == nil {
			s.cacheBlob(raw)
			return graph, nil
		}
		err = decodeErr
	}

	slog.Warn("RemoteSource falling back to cached graph", "error", err, "url", s.url)
	if cached := s.cachedBlob(); cached != nil {
		return FromJSON(cached)
	}
	return nil, err
}

func (s *RemoteSource) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrNetwork, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrNetwork, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", models.ErrNetwork, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrNetwork, err)
	}
	if len(data) == 0 {
		return nil, models.ErrNoRemoteData
	}
	slog.Debug("RemoteSource fetched graph", "url", s.url, "bytes", len(data))
	return data, nil
}

func (s *RemoteSource) cacheBlob(raw []byte) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SaveScreenGraph(s.cacheKey, raw); err != nil {
		slog.Warn("RemoteSource failed to cache graph", "error", err, "key", s.cacheKey)
	}
}

func (s *RemoteSource) cachedBlob() []byte {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.GetScreenGraph(s.cacheKey)
	if err != nil {
		slog.Warn("RemoteSource cache read failed", "error", err, "key", s.cacheKey)
		return nil
	}
	return raw
}
