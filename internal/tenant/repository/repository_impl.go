package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/lokapasar/lokapasar/internal/tenant/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindTenantBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Tenant, error) {
	var item domain.Tenant
	err := db.WithContext(ctx).Raw(
		`SELECT id, slug, name, custom_domain, created_at
		 FROM tenants
		 WHERE slug = ?
		 LIMIT 1`,
		slug,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindTenantByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Tenant, error) {
	var item domain.Tenant
	err := db.WithContext(ctx).Raw(
		`SELECT id, slug, name, custom_domain, created_at
		 FROM tenants
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindActiveLicense(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*domain.License, error) {
	var item domain.License
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, plan, fee_percent, status, issued_at, expires_at
		 FROM licenses
		 WHERE tenant_id = ? AND status = ?
		 ORDER BY issued_at DESC
		 LIMIT 1`,
		tenantID,
		domain.LicenseStatusActive,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}
