package flowkit

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/launchpath/flowkit/internal/prefetch"
	"github.com/launchpath/flowkit/internal/store"
	"github.com/launchpath/flowkit/internal/util"
)

// Default configuration constants.
const (
	// DefaultScreenTimeout bounds each wait on a screen's assets under
	// the waitForScreenToLoad strategy.
	DefaultScreenTimeout = 5 * time.Second
	// DefaultStrategy is used when none is configured.
	DefaultStrategy = StrategyWaitForScreenToLoad
)

// Config holds environment configuration for the SDK.
type Config struct {
	// AssetCacheDir is where the default HTTP fetcher caches assets.
	AssetCacheDir string
	// StoreDriver selects the persistence backend: "sqlite3",
	// "postgres", or empty for in-memory.
	StoreDriver string
	// StoreDSN is the backend DSN (file path or connection string).
	StoreDSN string
	// Strategy selects the prefetch scheduling strategy.
	Strategy Strategy
	// ScreenTimeout bounds each per-screen wait; zero waits forever.
	ScreenTimeout time.Duration
	// SharedSecret is the App Store shared secret for receipt
	// validation.
	SharedSecret string
	// GraphURL, when set, loads the screen graph remotely.
	GraphURL string
}

// LoadConfig loads configuration from environment variables and an
// optional .env file.
func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	cfg := Config{
		AssetCacheDir: os.Getenv("FLOWKIT_ASSET_CACHE_DIR"),
		StoreDriver:   os.Getenv("FLOWKIT_STORE_DRIVER"),
		StoreDSN:      os.Getenv("FLOWKIT_STORE_DSN"),
		Strategy:      Strategy(util.GetEnv("FLOWKIT_PREFETCH_STRATEGY", string(DefaultStrategy))),
		ScreenTimeout: util.ParseDurationEnv("FLOWKIT_SCREEN_TIMEOUT", DefaultScreenTimeout),
		SharedSecret:  os.Getenv("FLOWKIT_SHARED_SECRET"),
		GraphURL:      os.Getenv("FLOWKIT_GRAPH_URL"),
	}

	if !prefetch.IsValidStrategy(cfg.Strategy) {
		slog.Warn("Invalid prefetch strategy, using default", "strategy", cfg.Strategy, "default", DefaultStrategy)
		cfg.Strategy = DefaultStrategy
	}
	if cfg.AssetCacheDir == "" {
		cfg.AssetCacheDir = defaultCacheDir()
		slog.Debug("No FLOWKIT_ASSET_CACHE_DIR set, using default", "dir", cfg.AssetCacheDir)
	}
	return cfg
}

func defaultCacheDir() string {
	if base, err := os.UserCacheDir(); err == nil {
		return filepath.Join(base, "flowkit", "assets")
	}
	return filepath.Join(os.TempDir(), "flowkit-assets")
}

// OpenStore opens the persistence backend selected by the config.
func OpenStore(cfg Config) (Store, error) {
	switch cfg.StoreDriver {
	case "", "memory":
		return store.NewInMemoryStore(), nil
	case "sqlite3":
		return store.NewSQLiteStore(store.WithDSN(cfg.StoreDSN))
	case "postgres":
		return store.NewPostgresStore(store.WithDSN(cfg.StoreDSN))
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}
