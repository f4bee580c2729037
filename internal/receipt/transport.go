package receipt

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/launchpath/flowkit/internal/models"
)

// Apple's verification endpoints.
const (
	ProductionVerifyURL = "https://buy.itunes.apple.com/verifyReceipt"
	SandboxVerifyURL    = "https://sandbox.itunes.apple.com/verifyReceipt"

	// DefaultPostTimeout bounds a single validation call.
	DefaultPostTimeout = 30 * time.Second
)

// Transport posts a raw receipt to the validation endpoint for one
// environment and returns the raw response bytes.
type Transport interface {
	Post(ctx context.Context, receipt []byte, secret string, env Environment) ([]byte, error)
}

// AppStoreTransport is the HTTP transport against Apple's verifyReceipt
// endpoints.
type AppStoreTransport struct {
	client        *http.Client
	productionURL string
	sandboxURL    string
}

// TransportOption configures an AppStoreTransport.
type TransportOption func(*AppStoreTransport)

// WithHTTPClient sets the HTTP client used for validation calls.
func WithHTTPClient(c *http.Client) TransportOption {
	return func(t *AppStoreTransport) { t.client = c }
}

// WithEndpoints overrides the verification URLs (used by tests).
func WithEndpoints(production, sandbox string) TransportOption {
	return func(t *AppStoreTransport) {
		t.productionURL = production
		t.sandboxURL = sandbox
	}
}

// NewAppStoreTransport creates the default transport.
func NewAppStoreTransport(opts ...TransportOption) *AppStoreTransport {
	t := &AppStoreTransport{
		client:        &http.Client{Timeout: DefaultPostTimeout},
		productionURL: ProductionVerifyURL,
		sandboxURL:    SandboxVerifyURL,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Post submits the receipt to the endpoint for env.
func (t *AppStoreTransport) Post(ctx context.Context, receipt []byte, secret string, env Environment) ([]byte, error) {
	body, err := json.Marshal(verifyRequest{
		ReceiptData:            base64.StdEncoding.EncodeToString(receipt),
		Password:               secret,
		ExcludeOldTransactions: false,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrRequestBodyEncode, err)
	}

	url := t.productionURL
	if env == EnvironmentSandbox {
		url = t.sandboxURL
	}
	slog.Debug("AppStoreTransport Post", "env", env)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		slog.Error("AppStoreTransport Post failed", "error", err, "env", env)
		return nil, fmt.Errorf("%w: %v", models.ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrNetwork, err)
	}
	if len(data) == 0 {
		slog.Error("AppStoreTransport empty response", "env", env, "status", resp.StatusCode)
		return nil, models.ErrNoRemoteData
	}
	slog.Debug("AppStoreTransport Post succeeded", "env", env, "bytes", len(data))
	return data, nil
}
