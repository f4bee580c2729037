package receipt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/launchpath/flowkit/internal/models"
)

// fakeTransport returns scripted responses per environment and records
// the sequence of environments queried.
type fakeTransport struct {
	mu        sync.Mutex
	responses map[Environment][]string
	err       error
	queried   []Environment
}

func (f *fakeTransport) Post(_ context.Context, _ []byte, _ string, env Environment) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queried = append(f.queried, env)
	if f.err != nil {
		return nil, f.err
	}
	queue := f.responses[env]
	if len(queue) == 0 {
		return nil, fmt.Errorf("no scripted response for %s", env)
	}
	next := queue[0]
	f.responses[env] = queue[1:]
	return []byte(next), nil
}

const validResponse = `{
	"status": 0,
	"environment": "Sandbox",
	"receipt": {
		"bundle_id": "com.example.app",
		"in_app": [{"product_id": "premium", "transaction_id": "t1", "purchase_date_ms": "1700000000000"}]
	}
}`

func TestValidate_ProductionFirstTry(t *testing.T) {
	ft := &fakeTransport{responses: map[Environment][]string{
		EnvironmentProduction: {validResponse},
	}}
	v := NewValidator(ft, "secret")

	got, err := v.Validate(context.Background(), []byte("receipt"))
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if got.BundleID != "com.example.app" || !got.IsProductPurchased("premium") {
		t.Fatalf("unexpected decoded receipt: %+v", got)
	}
	if len(ft.queried) != 1 || ft.queried[0] != EnvironmentProduction {
		t.Fatalf("queried %v, want single production call", ft.queried)
	}
}

func TestValidate_SandboxRetry(t *testing.T) {
	ft := &fakeTransport{responses: map[Environment][]string{
		EnvironmentProduction: {`{"status": 21007}`},
		EnvironmentSandbox:    {validResponse},
	}}
	v := NewValidator(ft, "secret")

	got, err := v.Validate(context.Background(), []byte("receipt"))
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !got.IsProductPurchased("premium") {
		t.Fatal("premium should be purchased after sandbox retry")
	}
	want := []Environment{EnvironmentProduction, EnvironmentSandbox}
	if len(ft.queried) != 2 || ft.queried[0] != want[0] || ft.queried[1] != want[1] {
		t.Fatalf("queried %v, want %v", ft.queried, want)
	}
}

// A server that keeps claiming "sandbox receipt sent to production" no
// matter which environment is queried must terminate with a decode
// error after one flip instead of looping.
func TestValidate_FlipFlopTerminates(t *testing.T) {
	ft := &fakeTransport{responses: map[Environment][]string{
		EnvironmentProduction: {`{"status": 21007}`, `{"status": 21007}`},
		EnvironmentSandbox:    {`{"status": 21007}`, `{"status": 21007}`},
	}}
	v := NewValidator(ft, "secret")

	_, err := v.Validate(context.Background(), []byte("receipt"))
	if !errors.Is(err, models.ErrJSONDecode) {
		t.Fatalf("Validate error = %v, want ErrJSONDecode", err)
	}
	if len(ft.queried) != 2 {
		t.Fatalf("made %d calls %v, want exactly 2 (production, sandbox)", len(ft.queried), ft.queried)
	}
}

func TestValidate_TerminalFailures(t *testing.T) {
	t.Run("empty receipt", func(t *testing.T) {
		v := NewValidator(&fakeTransport{}, "secret")
		if _, err := v.Validate(context.Background(), nil); !errors.Is(err, models.ErrNoReceiptData) {
			t.Fatalf("error = %v, want ErrNoReceiptData", err)
		}
	})

	t.Run("transport error not retried", func(t *testing.T) {
		ft := &fakeTransport{err: fmt.Errorf("%w: connection reset", models.ErrNetwork)}
		v := NewValidator(ft, "secret")
		if _, err := v.Validate(context.Background(), []byte("r")); !errors.Is(err, models.ErrNetwork) {
			t.Fatalf("error = %v, want ErrNetwork", err)
		}
		if len(ft.queried) != 1 {
			t.Fatalf("made %d calls, want 1 (no automatic retry)", len(ft.queried))
		}
	})

	t.Run("invalid status", func(t *testing.T) {
		ft := &fakeTransport{responses: map[Environment][]string{
			EnvironmentProduction: {`{"status": 21003}`},
		}}
		v := NewValidator(ft, "secret")
		_, err := v.Validate(context.Background(), []byte("r"))
		if !errors.Is(err, models.ErrReceiptInvalid) {
			t.Fatalf("error = %v, want ErrReceiptInvalid", err)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		ft := &fakeTransport{responses: map[Environment][]string{
			EnvironmentProduction: {`{not json`},
		}}
		v := NewValidator(ft, "secret")
		if _, err := v.Validate(context.Background(), []byte("r")); !errors.Is(err, models.ErrJSONDecode) {
			t.Fatalf("error = %v, want ErrJSONDecode", err)
		}
	})
}
