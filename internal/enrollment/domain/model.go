// Package domain contains the enrollment (entitlement) model linking a payer
// to a purchased item.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status represents the access level of an enrollment.
type Status string

const (
	StatusPreview   Status = "preview"
	StatusPurchased Status = "purchased"
	StatusCompleted Status = "completed"
)

// Enrollment grants a user access to an item. At most one row exists per
// (user, item) pair; the unique index backs the granter's idempotency.
type Enrollment struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID    snowflake.ID `json:"user_id" gorm:"not null;uniqueIndex:ux_enrollments_user_item"`
	ItemID    snowflake.ID `json:"item_id" gorm:"not null;uniqueIndex:ux_enrollments_user_item"`
	Status    Status       `json:"status" gorm:"type:text;not null"`
	Progress  int          `json:"progress" gorm:"not null;default:0"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (Enrollment) TableName() string { return "enrollments" }

// HasAccess reports whether the enrollment unlocks paid content.
func (e *Enrollment) HasAccess() bool {
	if e == nil {
		return false
	}
	return e.Status == StatusPurchased || e.Status == StatusCompleted
}
