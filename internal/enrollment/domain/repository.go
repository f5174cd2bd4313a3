package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository persists enrollments. Insert is conflict-tolerant on the
// (user, item) unique index so concurrent grants collapse to one row.
type Repository interface {
	FindByUserItem(ctx context.Context, db *gorm.DB, userID, itemID snowflake.ID) (*Enrollment, error)
	Insert(ctx context.Context, db *gorm.DB, enrollment *Enrollment) (bool, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Status) (bool, error)
}
