// Package receipt implements App Store receipt validation: the
// sandbox/production retry state machine, the validation transport, and
// the decoded receipt payload.
package receipt

import (
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// Environment identifies the App Store validation environment.
type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentSandbox    Environment = "sandbox"
)

// verifyRequest is the body posted to the verification endpoint.
type verifyRequest struct {
	ReceiptData            string `json:"receipt-data"`
	Password               string `json:"password"`
	ExcludeOldTransactions bool   `json:"exclude-old-transactions"`
}

// verifyResponse is the payload returned by the verification endpoint.
type verifyResponse struct {
	Status            int             `json:"status"`
	Environment       string          `json:"environment"`
	Receipt           *receiptPayload `json:"receipt"`
	LatestReceiptInfo []inAppPurchase `json:"latest_receipt_info"`
}

type receiptPayload struct {
	BundleID string          `json:"bundle_id"`
	InApp    []inAppPurchase `json:"in_app"`
}

type inAppPurchase struct {
	ProductID          string `json:"product_id"`
	TransactionID      string `json:"transaction_id"`
	PurchaseDateMS     string `json:"purchase_date_ms"`
	ExpiresDateMS      string `json:"expires_date_ms"`
	CancellationDateMS string `json:"cancellation_date_ms"`
}

// Purchase is one decoded in-app purchase or subscription period.
type Purchase struct {
	ProductID        string
	TransactionID    string
	PurchaseDate     time.Time
	ExpiresDate      time.Time
	CancellationDate time.Time
}

// Cancelled reports whether Apple customer support refunded the
// purchase.
func (p Purchase) Cancelled() bool {
	return !p.CancellationDate.IsZero()
}

// SubscriptionStatus classifies a subscription product.
type SubscriptionStatus string

const (
	SubscriptionActive  SubscriptionStatus = "active"
	SubscriptionExpired SubscriptionStatus = "expired"
)

// ValidatedReceipt is the successfully validated receipt payload.
type ValidatedReceipt struct {
	Environment Environment
	BundleID    string
	Purchases   []Purchase
}

// IsProductPurchased reports whether the receipt contains an
// uncancelled purchase of the given product.
func (r *ValidatedReceipt) IsProductPurchased(productID string) bool {
	for _, p := range r.Purchases {
		if p.ProductID == productID && !p.Cancelled() {
			return true
		}
	}
	return false
}

// SubscriptionStatuses classifies every subscription product in the
// receipt as active or expired at the given instant, using the latest
// expiry seen per product. Non-subscription purchases (no expiry) are
// omitted.
func (r *ValidatedReceipt) SubscriptionStatuses(now time.Time) map[string]SubscriptionStatus {
	latest := make(map[string]time.Time)
	for _, p := range r.Purchases {
		if p.ExpiresDate.IsZero() || p.Cancelled() {
			continue
		}
		if p.ExpiresDate.After(latest[p.ProductID]) {
			latest[p.ProductID] = p.ExpiresDate
		}
	}
	out := make(map[string]SubscriptionStatus, len(latest))
	for product, expires := range latest {
		if expires.After(now) {
			out[product] = SubscriptionActive
		} else {
			out[product] = SubscriptionExpired
		}
	}
	return out
}

// decodeValidated builds the exported receipt from a status-0 response.
func decodeValidated(resp *verifyResponse) *ValidatedReceipt {
	out := &ValidatedReceipt{Environment: Environment(resp.Environment)}
	var raw []inAppPurchase
	if resp.Receipt != nil {
		out.BundleID = resp.Receipt.BundleID
		raw = append(raw, resp.Receipt.InApp...)
	}
	// latest_receipt_info supersedes in_app entries for auto-renewing
	// subscriptions; both are merged and status computation keys off the
	// latest expiry per product.
	raw = append(raw, resp.LatestReceiptInfo...)
	for _, p := range raw {
		out.Purchases = append(out.Purchases, Purchase{
			ProductID:        p.ProductID,
			TransactionID:    p.TransactionID,
			PurchaseDate:     msToTime(p.PurchaseDateMS),
			ExpiresDate:      msToTime(p.ExpiresDateMS),
			CancellationDate: msToTime(p.CancellationDateMS),
		})
	}
	return out
}

// msToTime parses Apple's millisecond-epoch string dates. Empty or
// malformed values decode to the zero time.
func msToTime(ms string) time.Time {
	if ms == "" {
		return time.Time{}
	}
	n, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(n).UTC()
}

// decodeResponse unmarshals a raw endpoint response.
func decodeResponse(raw []byte) (*verifyResponse, error) {
	var resp verifyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
