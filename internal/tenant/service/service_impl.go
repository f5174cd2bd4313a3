package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/lokapasar/lokapasar/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultFeePercent applies when no tenant or no active license resolves for
// a paid order.
const DefaultFeePercent = 1.0

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func NewService(p Params) *Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("tenant.service"),
		repo: p.Repo,
	}
}

// CheckLicense resolves a tenant by slug and validates its license.
// Returns (nil, nil) when the tenant is unknown, has no active license, or the
// license is past its expiry: those are blocked outcomes, not errors. A non-nil
// error means the record store itself failed; the caller decides whether to
// fail open.
func (s *Service) CheckLicense(ctx context.Context, rawSlug string) (*domain.Grant, error) {
	normalized := slug.Make(strings.TrimSpace(rawSlug))
	if normalized == "" {
		// A slug that normalizes to nothing can never match a tenant. This is
		// a blocked outcome, not an error, so the gate does not fail open.
		return nil, nil
	}

	tenant, err := s.repo.FindTenantBySlug(ctx, s.db, normalized)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, nil
	}

	license, err := s.repo.FindActiveLicense(ctx, s.db, tenant.ID)
	if err != nil {
		return nil, err
	}
	if !license.Valid(time.Now().UTC()) {
		return nil, nil
	}

	return &domain.Grant{Tenant: tenant, License: license}, nil
}

// FeePercent returns the platform's cut for a tenant's paid order. Missing
// tenant, missing license, or a store error all degrade to the default rather
// than blocking the disbursement path.
func (s *Service) FeePercent(ctx context.Context, tenantID *snowflake.ID) float64 {
	if tenantID == nil || *tenantID == 0 {
		return DefaultFeePercent
	}

	license, err := s.repo.FindActiveLicense(ctx, s.db, *tenantID)
	if err != nil {
		s.log.Warn("license lookup failed, using default fee",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
		return DefaultFeePercent
	}
	if license == nil {
		return DefaultFeePercent
	}
	// A zero or out-of-range percentage means the license never had a rate
	// configured, not a free ride.
	if license.FeePercent <= 0 || license.FeePercent > 100 {
		return DefaultFeePercent
	}
	return license.FeePercent
}
