// Package domain defines the outbound payout contract for platform fee
// disbursement.
package domain

import (
	"context"
	"encoding/json"
	"errors"
)

// PayoutRequest is the body sent to the external payout API.
type PayoutRequest struct {
	ExternalID        string `json:"external_id"`
	Amount            int64  `json:"amount"`
	BankCode          string `json:"bank_code"`
	AccountHolderName string `json:"account_holder_name"`
	AccountNumber     string `json:"account_number"`
	Description       string `json:"description"`
}

// PayoutResponse is the payout API's answer, persisted verbatim onto the
// order for reconciliation.
type PayoutResponse struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Raw    json.RawMessage `json:"-"`
}

// Client issues disbursement requests to the payout provider.
type Client interface {
	CreatePayout(ctx context.Context, req PayoutRequest) (*PayoutResponse, error)
}

var (
	ErrPayoutFailed       = errors.New("payout_failed")
	ErrPayoutUnconfigured = errors.New("payout_unconfigured")
)
