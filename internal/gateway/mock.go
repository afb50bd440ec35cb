package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Mock is an in-memory gateway used when no provider is configured and in
// tests. An intent starts pending and completes on its second status poll,
// which exercises the reconciliation path.
type Mock struct {
	mu      sync.Mutex
	polls   map[string]int
	failing bool
}

// NewMock creates an empty mock gateway.
func NewMock() *Mock {
	return &Mock{polls: make(map[string]int)}
}

// SetFailing makes every subsequent call fail, simulating a provider outage.
func (m *Mock) SetFailing(failing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = failing
}

// CreateIntent returns a fresh intent id.
func (m *Mock) CreateIntent(ctx context.Context, destination string, amountMinor int64, currency string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return "", fmt.Errorf("%w: provider unavailable", ErrGateway)
	}
	if amountMinor <= 0 {
		return "", fmt.Errorf("%w: non-positive amount", ErrGateway)
	}
	id := uuid.NewString()
	m.polls[id] = 0
	return id, nil
}

// GetIntentStatus reports pending on the first poll and completed afterwards.
func (m *Mock) GetIntentStatus(ctx context.Context, intentID string) (*IntentStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return nil, fmt.Errorf("%w: provider unavailable", ErrGateway)
	}
	polls, ok := m.polls[intentID]
	if !ok {
		return nil, fmt.Errorf("%w: unknown intent %s", ErrGateway, intentID)
	}
	m.polls[intentID] = polls + 1
	if polls == 0 {
		return &IntentStatus{Status: StatusPending}, nil
	}
	return &IntentStatus{Status: StatusCompleted, TxHash: "0x" + intentID[:8]}, nil
}
