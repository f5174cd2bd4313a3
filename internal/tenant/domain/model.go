// Package domain contains tenant and license models for the multi-tenant
// storefront gate.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Tenant is one isolated storefront instance, routed by slug or custom domain.
type Tenant struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	Slug         string       `json:"slug" gorm:"type:text;not null;uniqueIndex"`
	Name         string       `json:"name" gorm:"type:text;not null"`
	CustomDomain *string      `json:"custom_domain,omitempty" gorm:"type:text"`
	CreatedAt    time.Time    `json:"created_at" gorm:"not null"`
}

// TableName sets the database table name.
func (Tenant) TableName() string { return "tenants" }

// LicenseStatus represents lifecycle states for a license.
type LicenseStatus string

const (
	LicenseStatusActive    LicenseStatus = "active"
	LicenseStatusSuspended LicenseStatus = "suspended"
	LicenseStatusExpired   LicenseStatus = "expired"
)

// License entitles a tenant to serve traffic and sets the platform fee cut.
type License struct {
	ID         snowflake.ID  `json:"id" gorm:"primaryKey"`
	TenantID   snowflake.ID  `json:"tenant_id" gorm:"not null;index"`
	Plan       string        `json:"plan" gorm:"type:text;not null"`
	FeePercent float64       `json:"fee_percent" gorm:"not null"`
	Status     LicenseStatus `json:"status" gorm:"type:text;not null"`
	IssuedAt   time.Time     `json:"issued_at" gorm:"not null"`
	ExpiresAt  time.Time     `json:"expires_at" gorm:"not null"`
}

// TableName sets the database table name.
func (License) TableName() string { return "licenses" }

// Valid reports whether the license entitles the tenant to traffic at now.
// An active license past its expiry is treated the same as no license.
func (l *License) Valid(now time.Time) bool {
	if l == nil {
		return false
	}
	return l.Status == LicenseStatusActive && l.ExpiresAt.After(now)
}

// Grant is the resolved gate outcome attached to allowed requests.
type Grant struct {
	Tenant  *Tenant
	License *License
}
