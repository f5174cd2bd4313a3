package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/lokapasar/lokapasar/internal/tenant/domain"
	"github.com/lokapasar/lokapasar/internal/tenant/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var tenantsSchema = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		id INTEGER PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		custom_domain TEXT,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS licenses (
		id INTEGER PRIMARY KEY,
		tenant_id INTEGER NOT NULL,
		plan TEXT NOT NULL DEFAULT '',
		fee_percent REAL NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'active',
		issued_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL
	)`,
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

func setupService(t *testing.T) (*Service, *gorm.DB, *snowflake.Node) {
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
	for _, stmt := range tenantsSchema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("prepare schema: %v", err)
		}
	}

	svc := NewService(Params{
		DB:   db,
		Log:  zap.NewNop(),
		Repo: repository.Provide(),
	})
	return svc, db, mustNode(t)
}

func seedTenant(t *testing.T, db *gorm.DB, node *snowflake.Node, slug string) snowflake.ID {
	t.Helper()
	id := node.Generate()
	if err := db.Exec(
		`INSERT INTO tenants (id, slug, name, created_at) VALUES (?, ?, ?, ?)`,
		id, slug, slug, time.Now().UTC(),
	).Error; err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	return id
}

func seedLicense(t *testing.T, db *gorm.DB, node *snowflake.Node, tenantID snowflake.ID, feePercent float64, status domain.LicenseStatus, issuedAt, expiresAt time.Time) {
	t.Helper()
	if err := db.Exec(
		`INSERT INTO licenses (id, tenant_id, plan, fee_percent, status, issued_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		node.Generate(), tenantID, "standard", feePercent, status, issuedAt, expiresAt,
	).Error; err != nil {
		t.Fatalf("seed license: %v", err)
	}
}

func TestCheckLicenseValid(t *testing.T) {
	svc, db, node := setupService(t)
	now := time.Now().UTC()
	tenantID := seedTenant(t, db, node, "toko-maju")
	seedLicense(t, db, node, tenantID, 2, domain.LicenseStatusActive, now.Add(-24*time.Hour), now.Add(30*24*time.Hour))

	grant, err := svc.CheckLicense(context.Background(), "toko-maju")
	if err != nil {
		t.Fatalf("check license: %v", err)
	}
	if grant == nil {
		t.Fatalf("expected a grant for a licensed tenant")
	}
	if grant.Tenant.ID != tenantID || grant.License.Plan != "standard" {
		t.Fatalf("unexpected grant: %+v", grant)
	}
}

func TestCheckLicenseExpired(t *testing.T) {
	svc, db, node := setupService(t)
	now := time.Now().UTC()
	tenantID := seedTenant(t, db, node, "toko-lama")
	seedLicense(t, db, node, tenantID, 2, domain.LicenseStatusActive, now.Add(-60*24*time.Hour), now.Add(-24*time.Hour))

	grant, err := svc.CheckLicense(context.Background(), "toko-lama")
	if err != nil {
		t.Fatalf("check license: %v", err)
	}
	if grant != nil {
		t.Fatalf("expected no grant for an expired license")
	}
}

func TestCheckLicenseUnknownTenant(t *testing.T) {
	svc, _, _ := setupService(t)

	grant, err := svc.CheckLicense(context.Background(), "no-such-store")
	if err != nil {
		t.Fatalf("check license: %v", err)
	}
	if grant != nil {
		t.Fatalf("expected no grant for an unknown tenant")
	}
}

func TestCheckLicenseGarbageSlugBlocks(t *testing.T) {
	svc, _, _ := setupService(t)

	// A slug that normalizes to nothing is a blocked outcome, not a store
	// error, so the caller never fails open for it.
	grant, err := svc.CheckLicense(context.Background(), "***")
	if err != nil {
		t.Fatalf("check license: %v", err)
	}
	if grant != nil {
		t.Fatalf("expected no grant for a garbage slug")
	}
}

func TestCheckLicenseNormalizesSlug(t *testing.T) {
	svc, db, node := setupService(t)
	now := time.Now().UTC()
	tenantID := seedTenant(t, db, node, "toko-baru")
	seedLicense(t, db, node, tenantID, 2, domain.LicenseStatusActive, now, now.Add(24*time.Hour))

	grant, err := svc.CheckLicense(context.Background(), "Toko Baru")
	if err != nil {
		t.Fatalf("check license: %v", err)
	}
	if grant == nil {
		t.Fatalf("expected slug normalization to resolve the tenant")
	}
}

func TestMostRecentlyIssuedLicenseWins(t *testing.T) {
	svc, db, node := setupService(t)
	now := time.Now().UTC()
	tenantID := seedTenant(t, db, node, "toko-ganda")
	seedLicense(t, db, node, tenantID, 5, domain.LicenseStatusActive, now.Add(-48*time.Hour), now.Add(30*24*time.Hour))
	seedLicense(t, db, node, tenantID, 2, domain.LicenseStatusActive, now.Add(-1*time.Hour), now.Add(30*24*time.Hour))

	pct := svc.FeePercent(context.Background(), &tenantID)
	if pct != 2 {
		t.Fatalf("expected the most recently issued license to win, got %v", pct)
	}
}

func TestFeePercentDefaults(t *testing.T) {
	svc, db, node := setupService(t)
	now := time.Now().UTC()

	if pct := svc.FeePercent(context.Background(), nil); pct != DefaultFeePercent {
		t.Fatalf("expected default fee for nil tenant, got %v", pct)
	}

	unlicensed := seedTenant(t, db, node, "toko-polos")
	if pct := svc.FeePercent(context.Background(), &unlicensed); pct != DefaultFeePercent {
		t.Fatalf("expected default fee for unlicensed tenant, got %v", pct)
	}

	zeroed := seedTenant(t, db, node, "toko-nol")
	seedLicense(t, db, node, zeroed, 0, domain.LicenseStatusActive, now, now.Add(24*time.Hour))
	if pct := svc.FeePercent(context.Background(), &zeroed); pct != DefaultFeePercent {
		t.Fatalf("expected default fee for an unconfigured rate, got %v", pct)
	}

	custom := seedTenant(t, db, node, "toko-premium")
	seedLicense(t, db, node, custom, 2.5, domain.LicenseStatusActive, now, now.Add(24*time.Hour))
	if pct := svc.FeePercent(context.Background(), &custom); pct != 2.5 {
		t.Fatalf("expected configured fee, got %v", pct)
	}
}
