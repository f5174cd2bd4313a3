package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository persists transactions. UpdateStatus must be a single atomic
// compare-and-set on (id, status): it is the only serialization point between
// a gateway notification and a manual approval racing on the same row.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, tx *Transaction) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Transaction, error)
	FindByOrderNumber(ctx context.Context, db *gorm.DB, orderNumber string) (*Transaction, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Status, meta TransitionMeta) (bool, error)
	AttachGatewayPayload(ctx context.Context, db *gorm.DB, id snowflake.ID, payload []byte) error
	MergePaymentData(ctx context.Context, db *gorm.DB, id snowflake.ID, data map[string]any) error
	ExpirePending(ctx context.Context, db *gorm.DB, before time.Time) (int64, error)
}
