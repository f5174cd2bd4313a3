package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lokapasar/lokapasar/internal/enrollment/domain"
	"github.com/lokapasar/lokapasar/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByUserItem(ctx context.Context, conn *gorm.DB, userID, itemID snowflake.ID) (*domain.Enrollment, error) {
	var item domain.Enrollment
	err := conn.WithContext(ctx).Raw(
		`SELECT id, user_id, item_id, status, progress, created_at, updated_at
		 FROM enrollments
		 WHERE user_id = ? AND item_id = ?
		 LIMIT 1`,
		userID,
		itemID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

// Insert reports false when the (user, item) unique index already holds a
// row, so racing grants converge instead of failing.
func (r *repo) Insert(ctx context.Context, conn *gorm.DB, enrollment *domain.Enrollment) (bool, error) {
	err := conn.WithContext(ctx).Exec(
		`INSERT INTO enrollments (id, user_id, item_id, status, progress, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		enrollment.ID,
		enrollment.UserID,
		enrollment.ItemID,
		enrollment.Status,
		enrollment.Progress,
		enrollment.CreatedAt,
		enrollment.UpdatedAt,
	).Error
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *repo) UpdateStatus(ctx context.Context, conn *gorm.DB, id snowflake.ID, from, to domain.Status) (bool, error) {
	res := conn.WithContext(ctx).Exec(
		`UPDATE enrollments
		 SET status = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		to,
		time.Now().UTC(),
		id,
		from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
