package receipt

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/launchpath/flowkit/internal/models"
)

// Status codes returned by the verification endpoint.
const (
	statusValid = 0
	// statusSandboxReceiptOnProduction means a sandbox receipt was sent
	// to the production endpoint; retry against sandbox.
	statusSandboxReceiptOnProduction = 21007
	// statusProductionReceiptOnSandbox means a production receipt was
	// sent to the sandbox endpoint; retry against production.
	statusProductionReceiptOnSandbox = 21008
)

// Validator drives repeated calls against the validation endpoint,
// flipping between production and sandbox on the environment-mismatch
// statuses. Attempts are strictly sequential: at most one network call
// is in flight, and a concurrent Validate call is rejected.
type Validator struct {
	transport Transport
	secret    string
	inflight  atomic.Bool
}

// NewValidator creates a validator using the given transport and shared
// secret.
func NewValidator(transport Transport, secret string) *Validator {
	return &Validator{transport: transport, secret: secret}
}

// Validate submits the raw receipt starting against production and
// follows environment-mismatch statuses until the machine terminates.
//
// Terminal outcomes:
//   - status 0: the decoded receipt payload.
//   - any other status outside the mismatch pair: ErrReceiptInvalid
//     carrying the status code.
//   - transport or empty-body failure: surfaced as-is, never retried at
//     this layer.
//   - flip-flop guard: when the corrective environment equals the one
//     just used, the payload cannot be interpreted coherently and the
//     machine terminates with ErrJSONDecode instead of resubmitting.
func (v *Validator) Validate(ctx context.Context, rawReceipt []byte) (*ValidatedReceipt, error) {
	if len(rawReceipt) == 0 {
		return nil, models.ErrNoReceiptData
	}
	if !v.inflight.CompareAndSwap(false, true) {
		return nil, models.ErrValidationInProgress
	}
	defer v.inflight.Store(false)

	env := EnvironmentProduction
	for attempt := 1; ; attempt++ {
		slog.Debug("Validator submitting receipt", "env", env, "attempt", attempt)
		raw, err := v.transport.Post(ctx, rawReceipt, v.secret, env)
		if err != nil {
			slog.Error("Validator transport failed", "error", err, "env", env)
			return nil, err
		}

		resp, err := decodeResponse(raw)
		if err != nil {
			slog.Error("Validator response decode failed", "error", err, "env", env)
			return nil, fmt.Errorf("%w: %v", models.ErrJSONDecode, err)
		}

		var corrective Environment
		switch resp.Status {
		case statusValid:
			slog.Info("Validator receipt valid", "env", env, "attempts", attempt)
			return decodeValidated(resp), nil
		case statusSandboxReceiptOnProduction:
			corrective = EnvironmentSandbox
		case statusProductionReceiptOnSandbox:
			corrective = EnvironmentProduction
		default:
			slog.Warn("Validator receipt rejected", "status", resp.Status, "env", env)
			return nil, fmt.Errorf("%w: status %d", models.ErrReceiptInvalid, resp.Status)
		}

		if corrective == env {
			// The server keeps suggesting the environment we are already
			// using; the payload cannot be interpreted coherently.
			slog.Error("Validator environment flip-flop detected", "env", env, "status", resp.Status)
			return nil, fmt.Errorf("%w: environment flip-flop, server keeps redirecting to %s", models.ErrJSONDecode, corrective)
		}
		slog.Debug("Validator switching environment", "from", env, "to", corrective, "status", resp.Status)
		env = corrective
	}
}
