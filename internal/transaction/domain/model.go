// Package domain contains persistence models for purchase transactions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// PaymentMethod identifies how a transaction is being paid.
type PaymentMethod string

const (
	MethodManualTransfer PaymentMethod = "manual_bank_transfer"
	MethodQRIS           PaymentMethod = "qris"
	MethodGateway        PaymentMethod = "gateway"
)

// Status represents lifecycle states for a transaction.
type Status string

const (
	StatusPending  Status = "pending"
	StatusPaid     Status = "paid"
	StatusFailed   Status = "failed"
	StatusRefunded Status = "refunded"
)

// CanTransitionTo reports whether the move from s to target is permitted.
// Status only moves forward: pending → {paid, failed}, paid → refunded.
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusPaid || target == StatusFailed
	case StatusPaid:
		return target == StatusRefunded
	default:
		return false
	}
}

// Transaction captures one payment attempt for one purchase. The same record
// backs both the course (single item) and storefront (line-item snapshot)
// variants; Items is nil for the former.
type Transaction struct {
	ID             snowflake.ID      `json:"id" gorm:"primaryKey"`
	OrderNumber    string            `json:"order_number" gorm:"type:text;not null;uniqueIndex"`
	TenantID       *snowflake.ID     `json:"tenant_id" gorm:"index"`
	UserID         snowflake.ID      `json:"user_id" gorm:"not null;index"`
	ItemID         snowflake.ID      `json:"item_id" gorm:"not null;index"`
	Items          datatypes.JSON    `json:"items,omitempty" gorm:"type:jsonb"`
	Amount         int64             `json:"amount" gorm:"not null"`
	Method         PaymentMethod     `json:"method" gorm:"type:text;not null"`
	Status         Status            `json:"status" gorm:"type:text;not null"`
	BankRef        *string           `json:"bank_ref,omitempty" gorm:"type:text"`
	ProofRef       *string           `json:"proof_ref,omitempty" gorm:"type:text"`
	GatewayPayload datatypes.JSON    `json:"gateway_payload,omitempty" gorm:"type:jsonb"`
	PaymentData    datatypes.JSONMap `json:"payment_data,omitempty" gorm:"type:jsonb"`
	ApprovedAt     *time.Time        `json:"approved_at,omitempty"`
	CreatedAt      time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time         `json:"updated_at" gorm:"not null"`
}

// TableName sets the database table name.
func (Transaction) TableName() string { return "transactions" }

// LineItem is the immutable snapshot of one purchased storefront item.
type LineItem struct {
	ItemID   snowflake.ID `json:"item_id"`
	Name     string       `json:"name"`
	Quantity int          `json:"quantity"`
	Price    int64        `json:"price"`
}

// TransitionMeta carries optional fields persisted alongside a status change.
type TransitionMeta struct {
	GatewayPayload datatypes.JSON
	ProofRef       *string
	ApprovedAt     *time.Time
}

// TransitionResult reports the outcome of a Transition call. Changed is false
// when the transaction was already at the target status, which is the signal
// consumers use to avoid re-firing one-shot side effects.
type TransitionResult struct {
	Transaction *Transaction
	Previous    Status
	Changed     bool
}
