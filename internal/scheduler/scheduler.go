// Package scheduler runs the periodic maintenance sweeps, currently the
// pending-transaction expiry job.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/lokapasar/lokapasar/internal/clock"
	"github.com/lokapasar/lokapasar/internal/config"
	transactionservice "github.com/lokapasar/lokapasar/internal/transaction/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler: invalid configuration")

const (
	defaultSweepInterval = 10 * time.Minute
	defaultJobTimeout    = 30 * time.Second
)

type Params struct {
	fx.In

	Log   *zap.Logger
	Cfg   config.Config
	Clock clock.Clock
	TxSvc *transactionservice.Service
}

type Scheduler struct {
	log      *zap.Logger
	cfg      config.Config
	clock    clock.Clock
	txSvc    *transactionservice.Service
	interval time.Duration
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.TxSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:      p.Log.Named("scheduler"),
		cfg:      p.Cfg,
		clock:    p.Clock,
		txSvc:    p.TxSvc,
		interval: defaultSweepInterval,
	}, nil
}

// RunForever ticks the sweeps until ctx is cancelled.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single sweep pass.
func (s *Scheduler) RunOnce(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, defaultJobTimeout)
	defer cancel()

	start := s.clock.Now()
	expired, err := s.txSvc.ExpirePending(ctx, s.cfg.PendingTransactionTTL)
	if err != nil {
		s.log.Error("pending expiry sweep failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return
	}
	if expired > 0 {
		s.log.Info("pending expiry sweep finished",
			zap.Int64("expired", expired),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}
