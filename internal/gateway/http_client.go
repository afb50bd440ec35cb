package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// HTTPClient is the real provider client. Every call is time-bounded by the
// underlying http.Client timeout so a hung provider cannot stall a request;
// callers must invoke it outside their own database transactions.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient creates a provider client for the given base URL and API key.
// A zero timeout defaults to 10 seconds.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type createIntentRequest struct {
	Destination string `json:"destination"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
}

type createIntentResponse struct {
	IntentID string `json:"intent_id"`
}

type intentStatusResponse struct {
	Status string `json:"status"`
	TxHash string `json:"tx_hash"`
}

// CreateIntent registers a transfer intent with the provider.
func (c *HTTPClient) CreateIntent(ctx context.Context, destination string, amountMinor int64, currency string) (string, error) {
	body, err := json.Marshal(createIntentRequest{
		Destination: destination,
		AmountMinor: amountMinor,
		Currency:    currency,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/intents", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: create intent: %v", ErrGateway, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		logrus.WithFields(logrus.Fields{
			"status":      resp.StatusCode,
			"destination": destination,
		}).Error("Gateway rejected intent")
		return "", fmt.Errorf("%w: create intent: status %d", ErrGateway, resp.StatusCode)
	}
	var out createIntentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode intent response: %v", ErrGateway, err)
	}
	if out.IntentID == "" {
		return "", fmt.Errorf("%w: empty intent id", ErrGateway)
	}
	return out.IntentID, nil
}

// GetIntentStatus queries the provider for an intent's current status.
func (c *HTTPClient) GetIntentStatus(ctx context.Context, intentID string) (*IntentStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/intents/"+intentID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: intent status: %v", ErrGateway, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: unknown intent %s", ErrGateway, intentID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: intent status: status %d", ErrGateway, resp.StatusCode)
	}
	var out intentStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode status response: %v", ErrGateway, err)
	}
	return &IntentStatus{Status: out.Status, TxHash: out.TxHash}, nil
}
