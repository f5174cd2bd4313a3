// Package domain defines the canonical gateway notification and the mapping
// from gateway status vocabulary to the internal transaction lattice.
package domain

import (
	"context"

	transactiondomain "github.com/lokapasar/lokapasar/internal/transaction/domain"
)

// Gateway transaction statuses.
const (
	GatewayStatusCapture    = "capture"
	GatewayStatusSettlement = "settlement"
	GatewayStatusPending    = "pending"
	GatewayStatusCancel     = "cancel"
	GatewayStatusDeny       = "deny"
	GatewayStatusExpire     = "expire"
)

// Gateway fraud-check results for card-type flows.
const (
	FraudStatusAccept    = "accept"
	FraudStatusChallenge = "challenge"
)

// Notification is the parsed form of an inbound gateway webhook.
type Notification struct {
	OrderID           string
	TransactionID     string
	TransactionStatus string
	FraudStatus       string
	StatusCode        string
	GrossAmount       string
	PaymentType       string
	SignatureKey      string
	Raw               []byte
}

// TargetStatus maps the gateway's status vocabulary onto the internal
// lattice. The mapping is total: anything unrecognized is held as pending so
// that an unknown signal can never grant an entitlement.
func (n *Notification) TargetStatus() transactiondomain.Status {
	switch n.TransactionStatus {
	case GatewayStatusCapture:
		if n.FraudStatus == FraudStatusChallenge {
			return transactiondomain.StatusPending
		}
		if n.FraudStatus == FraudStatusAccept || n.FraudStatus == "" {
			return transactiondomain.StatusPaid
		}
		return transactiondomain.StatusPending
	case GatewayStatusSettlement:
		return transactiondomain.StatusPaid
	case GatewayStatusCancel, GatewayStatusDeny, GatewayStatusExpire:
		return transactiondomain.StatusFailed
	case GatewayStatusPending:
		return transactiondomain.StatusPending
	default:
		return transactiondomain.StatusPending
	}
}

// AdapterConfig carries per-gateway credentials.
type AdapterConfig struct {
	ServerKey string
}

// GatewayAdapter parses and authenticates provider-native webhook payloads.
type GatewayAdapter interface {
	Parse(ctx context.Context, payload []byte) (*Notification, error)
	Verify(ctx context.Context, n *Notification) error
}

// AdapterFactory builds adapters for a named provider.
type AdapterFactory interface {
	Provider() string
	NewAdapter(cfg AdapterConfig) (GatewayAdapter, error)
}
