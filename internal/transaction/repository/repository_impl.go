package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lokapasar/lokapasar/internal/transaction/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, tx *domain.Transaction) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO transactions (
			id, order_number, tenant_id, user_id, item_id, items, amount, method,
			status, bank_ref, proof_ref, gateway_payload, payment_data,
			approved_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID,
		tx.OrderNumber,
		tx.TenantID,
		tx.UserID,
		tx.ItemID,
		tx.Items,
		tx.Amount,
		tx.Method,
		tx.Status,
		tx.BankRef,
		tx.ProofRef,
		tx.GatewayPayload,
		tx.PaymentData,
		tx.ApprovedAt,
		tx.CreatedAt,
		tx.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Transaction, error) {
	var item domain.Transaction
	err := db.WithContext(ctx).Raw(
		`SELECT id, order_number, tenant_id, user_id, item_id, items, amount, method,
			status, bank_ref, proof_ref, gateway_payload, payment_data,
			approved_at, created_at, updated_at
		 FROM transactions
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

func (r *repo) FindByOrderNumber(ctx context.Context, db *gorm.DB, orderNumber string) (*domain.Transaction, error) {
	var item domain.Transaction
	err := db.WithContext(ctx).Raw(
		`SELECT id, order_number, tenant_id, user_id, item_id, items, amount, method,
			status, bank_ref, proof_ref, gateway_payload, payment_data,
			approved_at, created_at, updated_at
		 FROM transactions
		 WHERE order_number = ?
		 LIMIT 1`,
		orderNumber,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

// UpdateStatus is a compare-and-set: the row only moves when its status still
// equals from. A false return means another caller won the race.
func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.Status, meta domain.TransitionMeta) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE transactions
		 SET status = ?,
			 gateway_payload = COALESCE(?, gateway_payload),
			 proof_ref = COALESCE(?, proof_ref),
			 approved_at = COALESCE(?, approved_at),
			 updated_at = ?
		 WHERE id = ? AND status = ?`,
		to,
		meta.GatewayPayload,
		meta.ProofRef,
		meta.ApprovedAt,
		time.Now().UTC(),
		id,
		from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) AttachGatewayPayload(ctx context.Context, db *gorm.DB, id snowflake.ID, payload []byte) error {
	return db.WithContext(ctx).Exec(
		`UPDATE transactions
		 SET gateway_payload = ?, updated_at = ?
		 WHERE id = ?`,
		datatypes.JSON(payload),
		time.Now().UTC(),
		id,
	).Error
}

// MergePaymentData folds data into the payment_data blob without discarding
// keys written by earlier callers.
func (r *repo) MergePaymentData(ctx context.Context, db *gorm.DB, id snowflake.ID, data map[string]any) error {
	if len(data) == 0 {
		return nil
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row struct {
			ID          snowflake.ID      `gorm:"column:id"`
			PaymentData datatypes.JSONMap `gorm:"column:payment_data"`
		}
		if err := tx.Raw(
			`SELECT id, payment_data FROM transactions WHERE id = ? LIMIT 1`,
			id,
		).Scan(&row).Error; err != nil {
			return err
		}
		if row.ID == 0 {
			return domain.ErrNotFound
		}

		if row.PaymentData == nil {
			row.PaymentData = datatypes.JSONMap{}
		}
		for key, value := range data {
			row.PaymentData[key] = value
		}

		return tx.Exec(
			`UPDATE transactions SET payment_data = ?, updated_at = ? WHERE id = ?`,
			row.PaymentData,
			time.Now().UTC(),
			id,
		).Error
	})
}

func (r *repo) ExpirePending(ctx context.Context, db *gorm.DB, before time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE transactions
		 SET status = ?, updated_at = ?
		 WHERE status = ? AND created_at < ?`,
		domain.StatusFailed,
		time.Now().UTC(),
		domain.StatusPending,
		before,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
