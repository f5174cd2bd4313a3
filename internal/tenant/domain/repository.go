package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository reads tenants and licenses. FindActiveLicense returns the most
// recently issued active license when several exist, which is the tie-break
// for tenants that accumulated overlapping licenses.
type Repository interface {
	FindTenantBySlug(ctx context.Context, db *gorm.DB, slug string) (*Tenant, error)
	FindTenantByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Tenant, error)
	FindActiveLicense(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*License, error)
}
