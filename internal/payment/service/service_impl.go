package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/lokapasar/lokapasar/internal/config"
	disbursementservice "github.com/lokapasar/lokapasar/internal/disbursement/service"
	enrollmentservice "github.com/lokapasar/lokapasar/internal/enrollment/service"
	"github.com/lokapasar/lokapasar/internal/metrics"
	"github.com/lokapasar/lokapasar/internal/payment/adapters"
	"github.com/lokapasar/lokapasar/internal/payment/domain"
	transactiondomain "github.com/lokapasar/lokapasar/internal/transaction/domain"
	transactionservice "github.com/lokapasar/lokapasar/internal/transaction/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Cfg       config.Config
	Registry  *adapters.Registry
	TxSvc     *transactionservice.Service
	EnrollSvc *enrollmentservice.Service
	DisbSvc   *disbursementservice.Service
	Metrics   *metrics.Metrics `optional:"true"`
}

// Service reconciles inbound payment signals, gateway notifications and
// manual operator decisions, against the transaction lattice and runs the
// resulting side effects exactly once per effective state change.
type Service struct {
	log       *zap.Logger
	cfg       config.Config
	registry  *adapters.Registry
	txSvc     *transactionservice.Service
	enrollSvc *enrollmentservice.Service
	disbSvc   *disbursementservice.Service
	metrics   *metrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		log:       p.Log.Named("payment.service"),
		cfg:       p.Cfg,
		registry:  p.Registry,
		txSvc:     p.TxSvc,
		enrollSvc: p.EnrollSvc,
		disbSvc:   p.DisbSvc,
		metrics:   p.Metrics,
	}
}

// HandleNotification processes a raw gateway webhook for the given provider.
// Replayed, late, or held notifications resolve to a Changed=false result;
// unverifiable ones are rejected with ErrInvalidSignature before the order is
// even looked up.
func (s *Service) HandleNotification(ctx context.Context, provider string, payload []byte) (*transactiondomain.TransitionResult, error) {
	adapter, err := s.registry.NewAdapter(provider, domain.AdapterConfig{
		ServerKey: s.cfg.GatewayServerKey,
	})
	if err != nil {
		return nil, err
	}

	notification, err := adapter.Parse(ctx, payload)
	if err != nil {
		s.metrics.RecordWebhook("invalid_payload")
		return nil, err
	}
	if err := adapter.Verify(ctx, notification); err != nil {
		s.log.Warn("rejected unverifiable notification",
			zap.String("provider", provider),
			zap.String("order_id", notification.OrderID),
		)
		s.metrics.RecordWebhook("invalid_signature")
		return nil, err
	}

	tx, err := s.txSvc.GetByOrderNumber(ctx, notification.OrderID)
	if err != nil {
		if errors.Is(err, transactiondomain.ErrNotFound) {
			s.metrics.RecordWebhook("unknown_order")
		}
		return nil, err
	}

	target := notification.TargetStatus()
	res, err := s.txSvc.Transition(ctx, tx.ID, target, transactiondomain.TransitionMeta{
		GatewayPayload: notification.Raw,
	})
	if err != nil {
		if errors.Is(err, transactiondomain.ErrInvalidTransition) {
			// A late or out-of-order notification for a settled order. Keep
			// the payload for audit and report a no-op instead of failing the
			// gateway's retry loop.
			if recordErr := s.txSvc.RecordGatewayPayload(ctx, tx.ID, notification.Raw); recordErr != nil {
				s.log.Error("failed to record late notification", zap.Error(recordErr))
			}
			s.metrics.RecordWebhook("ignored")
			return &transactiondomain.TransitionResult{
				Transaction: tx,
				Previous:    tx.Status,
				Changed:     false,
			}, nil
		}
		s.metrics.RecordWebhook("error")
		return nil, err
	}

	if !res.Changed {
		// Replayed notification or a fraud hold keeping the order pending.
		if recordErr := s.txSvc.RecordGatewayPayload(ctx, tx.ID, notification.Raw); recordErr != nil {
			s.log.Error("failed to record notification payload", zap.Error(recordErr))
		}
		s.metrics.RecordWebhook("noop")
	} else {
		s.metrics.RecordWebhook(string(res.Transaction.Status))
	}

	if err := s.settle(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Approval statuses accepted from operators.
const (
	ApprovalApproved = "approved"
	ApprovalFailed   = "failed"
)

// Approve applies an operator decision to a transaction. "approved" settles
// the order as paid, "failed" rejects it; anything else is refused.
func (s *Service) Approve(ctx context.Context, id snowflake.ID, status string, proofRef *string) (*transactiondomain.TransitionResult, error) {
	var target transactiondomain.Status
	switch strings.ToLower(strings.TrimSpace(status)) {
	case ApprovalApproved:
		target = transactiondomain.StatusPaid
	case ApprovalFailed:
		target = transactiondomain.StatusFailed
	default:
		s.metrics.RecordApproval("invalid_status")
		return nil, domain.ErrInvalidApprovalStatus
	}

	res, err := s.txSvc.Transition(ctx, id, target, transactiondomain.TransitionMeta{
		ProofRef: proofRef,
	})
	if err != nil {
		s.metrics.RecordApproval("error")
		return nil, err
	}

	if res.Changed {
		s.metrics.RecordApproval(string(res.Transaction.Status))
	} else {
		s.metrics.RecordApproval("noop")
	}

	if err := s.settle(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// settle runs post-transition side effects. Granting runs on every paid
// outcome because Grant converges on its own; the fee disbursement gates on
// the before/after snapshot so it fires once per order.
func (s *Service) settle(ctx context.Context, res *transactiondomain.TransitionResult) error {
	tx := res.Transaction
	if tx.Status != transactiondomain.StatusPaid {
		return nil
	}

	if _, err := s.enrollSvc.Grant(ctx, tx.UserID, tx.ItemID); err != nil {
		s.log.Error("entitlement grant failed",
			zap.String("order_number", tx.OrderNumber),
			zap.Error(err),
		)
		return err
	}

	return s.disbSvc.HandlePaidTransition(ctx, res)
}
