// Package gateway talks to the external wallet-custody provider. The core
// only consumes two capabilities: create a transfer intent and query its
// status. Provider payloads never leak past this package.
package gateway

import (
	"context"
	"errors"
)

// Intent statuses reported by the provider.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ErrGateway wraps every provider-side failure so callers can test with
// errors.Is without depending on provider details.
var ErrGateway = errors.New("transfer gateway error")

// IntentStatus is the provider's view of a transfer intent.
type IntentStatus struct {
	Status string // pending, completed or failed
	TxHash string // On-chain hash, set once completed
}

// Client is the transfer-intent capability consumed by the transaction flow.
type Client interface {
	// CreateIntent registers a transfer of amountMinor minor units to the
	// destination address and returns an opaque intent id.
	CreateIntent(ctx context.Context, destination string, amountMinor int64, currency string) (string, error)

	// GetIntentStatus returns the current status of an intent.
	GetIntentStatus(ctx context.Context, intentID string) (*IntentStatus, error)
}
