// Package payout implements the HTTP client for the external payout API.
package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/lokapasar/lokapasar/internal/config"
	"github.com/lokapasar/lokapasar/internal/disbursement/domain"
	"go.uber.org/zap"
)

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) domain.Client {
	return &Client{
		baseURL: cfg.PayoutBaseURL,
		apiKey:  cfg.PayoutAPIKey,
		http:    &http.Client{Timeout: cfg.PayoutTimeout},
		log:     log.Named("payout.client"),
	}
}

func (c *Client) CreatePayout(ctx context.Context, req domain.PayoutRequest) (*domain.PayoutResponse, error) {
	if c.baseURL == "" || c.apiKey == "" {
		return nil, domain.ErrPayoutUnconfigured
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/disbursements", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("X-Idempotency-Key", uuid.NewString())

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPayoutFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPayoutFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("payout request rejected",
			zap.Int("status_code", resp.StatusCode),
			zap.String("external_id", req.ExternalID),
		)
		return nil, fmt.Errorf("%w: status %d", domain.ErrPayoutFailed, resp.StatusCode)
	}

	var parsed domain.PayoutResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPayoutFailed, err)
	}
	parsed.Raw = raw
	return &parsed, nil
}
