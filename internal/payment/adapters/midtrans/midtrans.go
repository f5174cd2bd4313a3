// Package midtrans parses and authenticates Midtrans-style payment
// notifications.
package midtrans

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"strings"

	paymentdomain "github.com/lokapasar/lokapasar/internal/payment/domain"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return "midtrans"
}

func (f *Factory) NewAdapter(cfg paymentdomain.AdapterConfig) (paymentdomain.GatewayAdapter, error) {
	serverKey := strings.TrimSpace(cfg.ServerKey)
	if serverKey == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}
	return &Adapter{serverKey: serverKey}, nil
}

type Adapter struct {
	serverKey string
}

type notificationPayload struct {
	OrderID           string `json:"order_id"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	PaymentType       string `json:"payment_type"`
	SignatureKey      string `json:"signature_key"`
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.Notification, error) {
	var body notificationPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(body.OrderID) == "" || strings.TrimSpace(body.TransactionStatus) == "" {
		return nil, paymentdomain.ErrInvalidPayload
	}

	return &paymentdomain.Notification{
		OrderID:           strings.TrimSpace(body.OrderID),
		TransactionID:     strings.TrimSpace(body.TransactionID),
		TransactionStatus: strings.ToLower(strings.TrimSpace(body.TransactionStatus)),
		FraudStatus:       strings.ToLower(strings.TrimSpace(body.FraudStatus)),
		StatusCode:        strings.TrimSpace(body.StatusCode),
		GrossAmount:       strings.TrimSpace(body.GrossAmount),
		PaymentType:       strings.TrimSpace(body.PaymentType),
		SignatureKey:      strings.TrimSpace(body.SignatureKey),
		Raw:               payload,
	}, nil
}

// Verify checks the notification signature:
// sha512(order_id + status_code + gross_amount + server_key). Notifications
// without a verifiable signature are rejected outright, never held as pending.
func (a *Adapter) Verify(ctx context.Context, n *Notification) error {
	if n == nil || n.SignatureKey == "" {
		return paymentdomain.ErrInvalidSignature
	}

	sum := sha512.Sum512([]byte(n.OrderID + n.StatusCode + n.GrossAmount + a.serverKey))
	expected := hex.EncodeToString(sum[:])
	if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(n.SignatureKey))) != 1 {
		return paymentdomain.ErrInvalidSignature
	}
	return nil
}

// Notification aliases the canonical type for readability inside the adapter.
type Notification = paymentdomain.Notification
