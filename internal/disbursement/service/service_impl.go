package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/lokapasar/lokapasar/internal/config"
	"github.com/lokapasar/lokapasar/internal/disbursement/domain"
	"github.com/lokapasar/lokapasar/internal/metrics"
	tenantservice "github.com/lokapasar/lokapasar/internal/tenant/service"
	transactiondomain "github.com/lokapasar/lokapasar/internal/transaction/domain"
	transactionservice "github.com/lokapasar/lokapasar/internal/transaction/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Cfg       config.Config
	Client    domain.Client
	TenantSvc *tenantservice.Service
	TxSvc     *transactionservice.Service
	Metrics   *metrics.Metrics `optional:"true"`
}

// Service computes and issues the platform's fee cut when an order is paid.
// Disbursement is a best-effort side effect: failures are recorded on the
// order for manual reconciliation and never unwind the paid status.
type Service struct {
	log       *zap.Logger
	cfg       config.Config
	client    domain.Client
	tenantSvc *tenantservice.Service
	txSvc     *transactionservice.Service
	metrics   *metrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		log:       p.Log.Named("disbursement.service"),
		cfg:       p.Cfg,
		client:    p.Client,
		tenantSvc: p.TenantSvc,
		txSvc:     p.TxSvc,
		metrics:   p.Metrics,
	}
}

// HandlePaidTransition fires the fee disbursement for a transition whose
// before/after snapshot shows the order just became paid. Idempotent no-op
// transitions (Changed=false) and transitions into any other status are
// ignored, which is what keeps the fee from being paid twice.
func (s *Service) HandlePaidTransition(ctx context.Context, res *transactiondomain.TransitionResult) error {
	if res == nil || res.Transaction == nil {
		return nil
	}
	if !res.Changed || res.Transaction.Status != transactiondomain.StatusPaid || res.Previous == transactiondomain.StatusPaid {
		return nil
	}

	tx := res.Transaction
	feePercent := s.tenantSvc.FeePercent(ctx, tx.TenantID)
	fee := ComputeFee(tx.Amount, feePercent)
	if fee <= 0 {
		s.log.Info("fee is zero, skipping disbursement",
			zap.String("order_number", tx.OrderNumber),
			zap.Float64("fee_percent", feePercent),
		)
		s.metrics.RecordDisbursement("skipped")
		return nil
	}

	now := time.Now().UTC()
	externalID := fmt.Sprintf("%s-%d", tx.OrderNumber, now.Unix())

	resp, err := s.client.CreatePayout(ctx, domain.PayoutRequest{
		ExternalID:        externalID,
		Amount:            fee,
		BankCode:          s.cfg.PayoutBankCode,
		AccountHolderName: s.cfg.PayoutAccountName,
		AccountNumber:     s.cfg.PayoutAccountNumber,
		Description:       "platform fee for order " + tx.OrderNumber,
	})
	if err != nil {
		s.log.Error("fee disbursement failed",
			zap.String("order_number", tx.OrderNumber),
			zap.Int64("fee", fee),
			zap.Error(err),
		)
		s.metrics.RecordDisbursement("failed")
		record := map[string]any{
			"disbursement": map[string]any{
				"external_id":  externalID,
				"fee_percent":  feePercent,
				"fee_amount":   fee,
				"status":       "failed",
				"error":        err.Error(),
				"requested_at": now.Format(time.RFC3339),
			},
		}
		if mergeErr := s.txSvc.MergePaymentData(ctx, tx.ID, record); mergeErr != nil {
			s.log.Error("failed to record disbursement failure", zap.Error(mergeErr))
		}
		return nil
	}

	record := map[string]any{
		"disbursement": map[string]any{
			"external_id":  externalID,
			"fee_percent":  feePercent,
			"fee_amount":   fee,
			"id":           resp.ID,
			"status":       resp.Status,
			"requested_at": now.Format(time.RFC3339),
			"raw_response": string(resp.Raw),
		},
	}
	if err := s.txSvc.MergePaymentData(ctx, tx.ID, record); err != nil {
		s.log.Error("failed to record disbursement result",
			zap.String("order_number", tx.OrderNumber),
			zap.Error(err),
		)
		return nil
	}

	s.log.Info("fee disbursed",
		zap.String("order_number", tx.OrderNumber),
		zap.String("disbursement_id", resp.ID),
		zap.Int64("fee", fee),
	)
	s.metrics.RecordDisbursement("ok")
	return nil
}

// ComputeFee rounds orderTotal × feePercent / 100 to the nearest whole
// currency unit.
func ComputeFee(orderTotal int64, feePercent float64) int64 {
	if orderTotal <= 0 || feePercent <= 0 {
		return 0
	}
	return int64(math.Round(float64(orderTotal) * feePercent / 100))
}
