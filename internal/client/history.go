package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/driftline/market-sandbox/internal/domain/model"
)

// HistoryFetcher retrieves a bounded window of signed historical candles.
type HistoryFetcher interface {
	Fetch(ctx context.Context, count int) ([]model.SignedCandle, error)
}

// HistoryClient fetches history over HTTP.
type HistoryClient struct {
	BaseURL string
	Client  *http.Client
}

// NewHistoryClient creates a history client with a bounded request timeout.
func NewHistoryClient(baseURL string, client *http.Client) *HistoryClient {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HistoryClient{BaseURL: baseURL, Client: client}
}

type historyResponse struct {
	Metadata struct {
		Count       int   `json:"count"`
		IntervalMs  int   `json:"intervalMs"`
		GeneratedAt int64 `json:"generatedAt"`
	} `json:"metadata"`
	Candles []model.SignedCandle `json:"candles"`
}

// Fetch retrieves count candles ending now.
func (h *HistoryClient) Fetch(ctx context.Context, count int) ([]model.SignedCandle, error) {
	endpoint := fmt.Sprintf("%s/api/v1/candles/history?count=%d", h.BaseURL, count)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("client: build history request: %w", err)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: fetch history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("client: fetch history: unexpected status %d", resp.StatusCode)
	}

	var body historyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("client: decode history: %w", err)
	}
	return body.Candles, nil
}
