package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lokapasar/lokapasar/internal/enrollment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

// Service grants and inspects enrollments. Grant is the idempotency boundary
// that protects against double fulfillment when a gateway notification and a
// manual approval race.
type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func NewService(p Params) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("enrollment.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

// EnsurePreview creates a preview enrollment at purchase-intent time if none
// exists yet. Existing enrollments are left untouched.
func (s *Service) EnsurePreview(ctx context.Context, userID, itemID snowflake.ID) (*domain.Enrollment, error) {
	if userID == 0 || itemID == 0 {
		return nil, domain.ErrInvalidPair
	}

	existing, err := s.repo.FindByUserItem(ctx, s.db, userID, itemID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now().UTC()
	enrollment := &domain.Enrollment{
		ID:        s.genID.Generate(),
		UserID:    userID,
		ItemID:    itemID,
		Status:    domain.StatusPreview,
		CreatedAt: now,
		UpdatedAt: now,
	}
	inserted, err := s.repo.Insert(ctx, s.db, enrollment)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return s.get(ctx, userID, itemID)
	}
	return enrollment, nil
}

// Grant idempotently ensures a purchased enrollment exists for (user, item):
// purchased/completed is a no-op, preview is upgraded in place, and a missing
// row is created directly as purchased (covers server-initiated gateway flows
// where the purchase-intent step never ran).
func (s *Service) Grant(ctx context.Context, userID, itemID snowflake.ID) (*domain.Enrollment, error) {
	if userID == 0 || itemID == 0 {
		return nil, domain.ErrInvalidPair
	}

	existing, err := s.repo.FindByUserItem(ctx, s.db, userID, itemID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		if existing.Status == domain.StatusPurchased || existing.Status == domain.StatusCompleted {
			return existing, nil
		}

		upgraded, err := s.repo.UpdateStatus(ctx, s.db, existing.ID, existing.Status, domain.StatusPurchased)
		if err != nil {
			return nil, err
		}
		if upgraded {
			s.log.Info("enrollment upgraded",
				zap.String("user_id", userID.String()),
				zap.String("item_id", itemID.String()),
			)
		}
		return s.get(ctx, userID, itemID)
	}

	now := time.Now().UTC()
	enrollment := &domain.Enrollment{
		ID:        s.genID.Generate(),
		UserID:    userID,
		ItemID:    itemID,
		Status:    domain.StatusPurchased,
		CreatedAt: now,
		UpdatedAt: now,
	}
	inserted, err := s.repo.Insert(ctx, s.db, enrollment)
	if err != nil {
		return nil, err
	}
	if !inserted {
		// Another grant landed first; converge on its row.
		return s.Grant(ctx, userID, itemID)
	}

	s.log.Info("enrollment created",
		zap.String("user_id", userID.String()),
		zap.String("item_id", itemID.String()),
	)
	return enrollment, nil
}

// Find returns the enrollment for (user, item), or ErrNotFound.
func (s *Service) Find(ctx context.Context, userID, itemID snowflake.ID) (*domain.Enrollment, error) {
	if userID == 0 || itemID == 0 {
		return nil, domain.ErrInvalidPair
	}
	return s.get(ctx, userID, itemID)
}

func (s *Service) get(ctx context.Context, userID, itemID snowflake.ID) (*domain.Enrollment, error) {
	enrollment, err := s.repo.FindByUserItem(ctx, s.db, userID, itemID)
	if err != nil {
		return nil, err
	}
	if enrollment == nil {
		return nil, domain.ErrNotFound
	}
	return enrollment, nil
}
