package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/lokapasar/lokapasar/internal/transaction/domain"
	"github.com/lokapasar/lokapasar/internal/transaction/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const transactionsSchema = `
CREATE TABLE IF NOT EXISTS transactions (
	id INTEGER PRIMARY KEY,
	order_number TEXT NOT NULL UNIQUE,
	tenant_id INTEGER,
	user_id INTEGER NOT NULL,
	item_id INTEGER NOT NULL,
	items TEXT,
	amount INTEGER NOT NULL DEFAULT 0,
	method TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	bank_ref TEXT,
	proof_ref TEXT,
	gateway_payload TEXT,
	payment_data TEXT,
	approved_at DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
)`

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

func setupService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	if err := db.Exec(transactionsSchema).Error; err != nil {
		t.Fatalf("prepare schema: %v", err)
	}

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: mustNode(t),
		Repo:  repository.Provide(),
	})
	return svc, db
}

func TestCreateManualTransferRequiresBankRef(t *testing.T) {
	svc, _ := setupService(t)
	node := mustNode(t)

	_, err := svc.Create(context.Background(), CreateRequest{
		UserID: node.Generate(),
		ItemID: node.Generate(),
		Amount: 150000,
		Method: domain.MethodManualTransfer,
	})
	if !errors.Is(err, domain.ErrBankRefRequired) {
		t.Fatalf("expected ErrBankRefRequired, got %v", err)
	}
}

func TestCreateRejectsUnknownMethod(t *testing.T) {
	svc, _ := setupService(t)
	node := mustNode(t)

	_, err := svc.Create(context.Background(), CreateRequest{
		UserID: node.Generate(),
		ItemID: node.Generate(),
		Amount: 150000,
		Method: domain.PaymentMethod("cash_on_delivery"),
	})
	if !errors.Is(err, domain.ErrInvalidMethod) {
		t.Fatalf("expected ErrInvalidMethod, got %v", err)
	}
}

func TestCreateRejectsNegativeAmount(t *testing.T) {
	svc, _ := setupService(t)
	node := mustNode(t)

	_, err := svc.Create(context.Background(), CreateRequest{
		UserID: node.Generate(),
		ItemID: node.Generate(),
		Amount: -1,
		Method: domain.MethodQRIS,
	})
	if !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestTransitionIdempotent(t *testing.T) {
	svc, _ := setupService(t)
	node := mustNode(t)

	tx, err := svc.Create(context.Background(), CreateRequest{
		UserID: node.Generate(),
		ItemID: node.Generate(),
		Amount: 200000,
		Method: domain.MethodQRIS,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	first, err := svc.Transition(context.Background(), tx.ID, domain.StatusPaid, domain.TransitionMeta{})
	if err != nil {
		t.Fatalf("first transition: %v", err)
	}
	if !first.Changed || first.Previous != domain.StatusPending {
		t.Fatalf("expected first transition to change pending -> paid, got changed=%v previous=%s", first.Changed, first.Previous)
	}
	if first.Transaction.ApprovedAt == nil {
		t.Fatalf("expected approved_at to be stamped on paid")
	}

	second, err := svc.Transition(context.Background(), tx.ID, domain.StatusPaid, domain.TransitionMeta{})
	if err != nil {
		t.Fatalf("second transition: %v", err)
	}
	if second.Changed {
		t.Fatalf("expected replayed transition to be a no-op")
	}
	if second.Transaction.Status != domain.StatusPaid {
		t.Fatalf("expected status paid, got %s", second.Transaction.Status)
	}
}

func TestTransitionRejectsBackwardMove(t *testing.T) {
	svc, _ := setupService(t)
	node := mustNode(t)

	tx, err := svc.Create(context.Background(), CreateRequest{
		UserID: node.Generate(),
		ItemID: node.Generate(),
		Amount: 50000,
		Method: domain.MethodGateway,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Transition(context.Background(), tx.ID, domain.StatusFailed, domain.TransitionMeta{}); err != nil {
		t.Fatalf("fail transition: %v", err)
	}

	_, err = svc.Transition(context.Background(), tx.ID, domain.StatusPaid, domain.TransitionMeta{})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for failed -> paid, got %v", err)
	}
}

func TestManualTransferPaidRequiresProof(t *testing.T) {
	svc, _ := setupService(t)
	node := mustNode(t)

	tx, err := svc.Create(context.Background(), CreateRequest{
		UserID:  node.Generate(),
		ItemID:  node.Generate(),
		Amount:  175000,
		Method:  domain.MethodManualTransfer,
		BankRef: "BCA-0123456789",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Transition(context.Background(), tx.ID, domain.StatusPaid, domain.TransitionMeta{})
	if !errors.Is(err, domain.ErrProofRequired) {
		t.Fatalf("expected ErrProofRequired, got %v", err)
	}

	proof := "uploads/proof-175000.jpg"
	res, err := svc.Transition(context.Background(), tx.ID, domain.StatusPaid, domain.TransitionMeta{ProofRef: &proof})
	if err != nil {
		t.Fatalf("transition with proof: %v", err)
	}
	if !res.Changed || res.Transaction.ProofRef == nil || *res.Transaction.ProofRef != proof {
		t.Fatalf("expected proof to be persisted with the paid transition")
	}
}

func TestAttachProofThenApprove(t *testing.T) {
	svc, _ := setupService(t)
	node := mustNode(t)

	tx, err := svc.Create(context.Background(), CreateRequest{
		UserID:  node.Generate(),
		ItemID:  node.Generate(),
		Amount:  90000,
		Method:  domain.MethodManualTransfer,
		BankRef: "BNI-555",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.AttachProof(context.Background(), tx.ID, "uploads/slip.png"); err != nil {
		t.Fatalf("attach proof: %v", err)
	}

	res, err := svc.Transition(context.Background(), tx.ID, domain.StatusPaid, domain.TransitionMeta{})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if !res.Changed {
		t.Fatalf("expected transition to succeed once proof is on the row")
	}
}

func TestExpirePending(t *testing.T) {
	svc, db := setupService(t)
	node := mustNode(t)

	stale, err := svc.Create(context.Background(), CreateRequest{
		UserID: node.Generate(),
		ItemID: node.Generate(),
		Amount: 10000,
		Method: domain.MethodQRIS,
	})
	if err != nil {
		t.Fatalf("create stale: %v", err)
	}
	old := time.Now().UTC().Add(-48 * time.Hour)
	if err := db.Exec(`UPDATE transactions SET created_at = ? WHERE id = ?`, old, stale.ID).Error; err != nil {
		t.Fatalf("age stale row: %v", err)
	}

	fresh, err := svc.Create(context.Background(), CreateRequest{
		UserID: node.Generate(),
		ItemID: node.Generate(),
		Amount: 20000,
		Method: domain.MethodQRIS,
	})
	if err != nil {
		t.Fatalf("create fresh: %v", err)
	}

	expired, err := svc.ExpirePending(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("expire pending: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected 1 expired transaction, got %d", expired)
	}

	got, err := svc.GetByID(context.Background(), stale.ID)
	if err != nil {
		t.Fatalf("get stale: %v", err)
	}
	if got.Status != domain.StatusFailed {
		t.Fatalf("expected stale transaction failed, got %s", got.Status)
	}

	got, err = svc.GetByID(context.Background(), fresh.ID)
	if err != nil {
		t.Fatalf("get fresh: %v", err)
	}
	if got.Status != domain.StatusPending {
		t.Fatalf("expected fresh transaction untouched, got %s", got.Status)
	}
}

func TestMergePaymentDataKeepsExistingKeys(t *testing.T) {
	svc, _ := setupService(t)
	node := mustNode(t)

	tx, err := svc.Create(context.Background(), CreateRequest{
		UserID: node.Generate(),
		ItemID: node.Generate(),
		Amount: 30000,
		Method: domain.MethodGateway,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.MergePaymentData(context.Background(), tx.ID, map[string]any{"a": "1"}); err != nil {
		t.Fatalf("merge a: %v", err)
	}
	if err := svc.MergePaymentData(context.Background(), tx.ID, map[string]any{"b": "2"}); err != nil {
		t.Fatalf("merge b: %v", err)
	}

	got, err := svc.GetByID(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.PaymentData["a"] != "1" || got.PaymentData["b"] != "2" {
		t.Fatalf("expected both keys merged, got %v", got.PaymentData)
	}
}
