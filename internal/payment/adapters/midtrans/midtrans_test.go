package midtrans

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"

	paymentdomain "github.com/lokapasar/lokapasar/internal/payment/domain"
	transactiondomain "github.com/lokapasar/lokapasar/internal/transaction/domain"
)

const testServerKey = "SB-Mid-server-test"

func signature(orderID, statusCode, grossAmount string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + testServerKey))
	return hex.EncodeToString(sum[:])
}

func mustAdapter(t *testing.T) paymentdomain.GatewayAdapter {
	t.Helper()
	adapter, err := NewFactory().NewAdapter(paymentdomain.AdapterConfig{ServerKey: testServerKey})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	return adapter
}

func TestParseAndVerify(t *testing.T) {
	adapter := mustAdapter(t)

	payload := fmt.Sprintf(`{
		"order_id": "ORD-1",
		"transaction_status": "settlement",
		"status_code": "200",
		"gross_amount": "200000.00",
		"signature_key": "%s"
	}`, signature("ORD-1", "200", "200000.00"))

	n, err := adapter.Parse(context.Background(), []byte(payload))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := adapter.Verify(context.Background(), n); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	adapter := mustAdapter(t)

	payload := fmt.Sprintf(`{
		"order_id": "ORD-2",
		"transaction_status": "settlement",
		"status_code": "200",
		"gross_amount": "200000.00",
		"signature_key": "%s"
	}`, signature("ORD-2", "200", "999999.00"))

	n, err := adapter.Parse(context.Background(), []byte(payload))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := adapter.Verify(context.Background(), n); !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyRejectsMissingSignature(t *testing.T) {
	adapter := mustAdapter(t)

	n, err := adapter.Parse(context.Background(), []byte(`{"order_id":"ORD-3","transaction_status":"settlement"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := adapter.Verify(context.Background(), n); !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	adapter := mustAdapter(t)

	if _, err := adapter.Parse(context.Background(), []byte(`not-json`)); !errors.Is(err, paymentdomain.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
	if _, err := adapter.Parse(context.Background(), []byte(`{"transaction_status":"settlement"}`)); !errors.Is(err, paymentdomain.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload for missing order_id, got %v", err)
	}
}

func TestFactoryRequiresServerKey(t *testing.T) {
	if _, err := NewFactory().NewAdapter(paymentdomain.AdapterConfig{}); !errors.Is(err, paymentdomain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestTargetStatusMapping(t *testing.T) {
	cases := []struct {
		name        string
		txStatus    string
		fraudStatus string
		want        transactiondomain.Status
	}{
		{"settlement", "settlement", "", transactiondomain.StatusPaid},
		{"capture accepted", "capture", "accept", transactiondomain.StatusPaid},
		{"capture without fraud check", "capture", "", transactiondomain.StatusPaid},
		{"capture challenged", "capture", "challenge", transactiondomain.StatusPending},
		{"pending", "pending", "", transactiondomain.StatusPending},
		{"cancel", "cancel", "", transactiondomain.StatusFailed},
		{"deny", "deny", "", transactiondomain.StatusFailed},
		{"expire", "expire", "", transactiondomain.StatusFailed},
		{"unknown vocabulary", "refund_requested", "", transactiondomain.StatusPending},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := &paymentdomain.Notification{
				TransactionStatus: tc.txStatus,
				FraudStatus:       tc.fraudStatus,
			}
			if got := n.TargetStatus(); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}
