package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lokapasar/lokapasar/internal/transaction/domain"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

// Service owns the transaction lifecycle: creation in pending and the
// idempotent forward-only status transitions.
type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func NewService(p Params) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("transaction.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

type CreateRequest struct {
	TenantID *snowflake.ID
	UserID   snowflake.ID
	ItemID   snowflake.ID
	Items    []domain.LineItem
	Amount   int64
	Method   domain.PaymentMethod
	BankRef  string
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*domain.Transaction, error) {
	if req.Amount < 0 {
		return nil, domain.ErrInvalidAmount
	}
	if req.UserID == 0 || req.ItemID == 0 {
		return nil, domain.ErrInvalidMethod
	}

	req.BankRef = strings.TrimSpace(req.BankRef)
	var bankRef *string
	switch req.Method {
	case domain.MethodManualTransfer:
		if req.BankRef == "" {
			return nil, domain.ErrBankRefRequired
		}
		bankRef = &req.BankRef
	case domain.MethodQRIS, domain.MethodGateway:
	default:
		return nil, domain.ErrInvalidMethod
	}

	var items datatypes.JSON
	if len(req.Items) > 0 {
		encoded, err := json.Marshal(req.Items)
		if err != nil {
			return nil, err
		}
		items = datatypes.JSON(encoded)
	}

	now := time.Now().UTC()
	tx := &domain.Transaction{
		ID:          s.genID.Generate(),
		OrderNumber: ulid.Make().String(),
		TenantID:    req.TenantID,
		UserID:      req.UserID,
		ItemID:      req.ItemID,
		Items:       items,
		Amount:      req.Amount,
		Method:      req.Method,
		Status:      domain.StatusPending,
		BankRef:     bankRef,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, s.db, tx); err != nil {
		return nil, err
	}

	s.log.Info("transaction created",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("order_number", tx.OrderNumber),
		zap.String("method", string(tx.Method)),
		zap.Int64("amount", tx.Amount),
	)
	return tx, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Transaction, error) {
	tx, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, domain.ErrNotFound
	}
	return tx, nil
}

func (s *Service) GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Transaction, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return nil, domain.ErrNotFound
	}
	tx, err := s.repo.FindByOrderNumber(ctx, s.db, orderNumber)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, domain.ErrNotFound
	}
	return tx, nil
}

const transitionAttempts = 3

// Transition moves a transaction to target. Calling it with the status the
// row is already in returns the row unchanged with Changed=false, so repeated
// gateway retries and admin/webhook races settle on a single state change.
func (s *Service) Transition(ctx context.Context, id snowflake.ID, target domain.Status, meta domain.TransitionMeta) (*domain.TransitionResult, error) {
	for attempt := 0; attempt < transitionAttempts; attempt++ {
		current, err := s.repo.FindByID(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, domain.ErrNotFound
		}

		if current.Status == target {
			return &domain.TransitionResult{
				Transaction: current,
				Previous:    current.Status,
				Changed:     false,
			}, nil
		}

		if !current.Status.CanTransitionTo(target) {
			return nil, domain.ErrInvalidTransition
		}

		if target == domain.StatusPaid && current.Method == domain.MethodManualTransfer {
			hasProof := current.ProofRef != nil && strings.TrimSpace(*current.ProofRef) != ""
			if !hasProof && (meta.ProofRef == nil || strings.TrimSpace(*meta.ProofRef) == "") {
				return nil, domain.ErrProofRequired
			}
		}

		if target == domain.StatusPaid && meta.ApprovedAt == nil {
			now := time.Now().UTC()
			meta.ApprovedAt = &now
		}

		won, err := s.repo.UpdateStatus(ctx, s.db, id, current.Status, target, meta)
		if err != nil {
			return nil, err
		}
		if !won {
			// Lost the compare-and-set; re-read and re-evaluate.
			continue
		}

		updated, err := s.repo.FindByID(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		if updated == nil {
			return nil, domain.ErrNotFound
		}

		s.log.Info("transaction transitioned",
			zap.String("transaction_id", id.String()),
			zap.String("from", string(current.Status)),
			zap.String("to", string(target)),
		)
		return &domain.TransitionResult{
			Transaction: updated,
			Previous:    current.Status,
			Changed:     true,
		}, nil
	}

	return nil, domain.ErrTransitionRace
}

// AttachProof stores the proof-of-payment reference on a pending manual
// transfer so an operator can approve it.
func (s *Service) AttachProof(ctx context.Context, id snowflake.ID, proofRef string) (*domain.Transaction, error) {
	proofRef = strings.TrimSpace(proofRef)
	if proofRef == "" {
		return nil, domain.ErrProofRequired
	}

	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Exec(
		`UPDATE transactions SET proof_ref = ?, updated_at = ? WHERE id = ?`,
		proofRef,
		time.Now().UTC(),
		current.ID,
	).Error; err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// RecordGatewayPayload keeps the raw notification for audit even when the
// notification did not change the status (held or replayed notifications).
func (s *Service) RecordGatewayPayload(ctx context.Context, id snowflake.ID, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	return s.repo.AttachGatewayPayload(ctx, s.db, id, payload)
}

// MergePaymentData folds data into the transaction's payment_data blob.
func (s *Service) MergePaymentData(ctx context.Context, id snowflake.ID, data map[string]any) error {
	return s.repo.MergePaymentData(ctx, s.db, id, data)
}

// ExpirePending fails pending transactions older than ttl. A deployment's
// scheduler calls this as the expiry sweep.
func (s *Service) ExpirePending(ctx context.Context, ttl time.Duration) (int64, error) {
	expired, err := s.repo.ExpirePending(ctx, s.db, time.Now().UTC().Add(-ttl))
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		s.log.Info("expired pending transactions", zap.Int64("count", expired))
	}
	return expired, nil
}
