package repository

import (
	"context"
	"time"

	"sentinal-safety/internal/domain/block"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresBlockRepository struct {
	db *gorm.DB
}

func NewBlockRepository(db *gorm.DB) BlockRepository {
	return &PostgresBlockRepository{db: db}
}

const activeBlockCond = "lifted_at IS NULL AND (is_permanent OR expires_at IS NULL OR expires_at > ?)"

func (r *PostgresBlockRepository) Create(ctx context.Context, b *block.UserBlock) error {
	if err := r.db.WithContext(ctx).Create(b).Error; err != nil {
		return translate("create block", err)
	}
	return nil
}

func (r *PostgresBlockRepository) ActiveBetween(ctx context.Context, a, b uuid.UUID, now time.Time) ([]block.UserBlock, error) {
	var blocks []block.UserBlock
	err := r.db.WithContext(ctx).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Where(activeBlockCond, now).
		Find(&blocks).Error
	if err != nil {
		return nil, translate("active blocks between", err)
	}
	return blocks, nil
}

func (r *PostgresBlockRepository) ActiveByBlocker(ctx context.Context, blocker uuid.UUID, now time.Time) ([]block.UserBlock, error) {
	var blocks []block.UserBlock
	err := r.db.WithContext(ctx).
		Where("blocker_id = ?", blocker).
		Where(activeBlockCond, now).
		Order("created_at DESC").
		Find(&blocks).Error
	if err != nil {
		return nil, translate("active blocks by blocker", err)
	}
	return blocks, nil
}

func (r *PostgresBlockRepository) Lift(ctx context.Context, blocker, blocked uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&block.UserBlock{}).
		Where("blocker_id = ? AND blocked_id = ? AND lifted_at IS NULL", blocker, blocked).
		Update("lifted_at", at)
	if res.Error != nil {
		return 0, translate("lift block", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *PostgresBlockRepository) GetSuppression(ctx context.Context, userID uuid.UUID) (block.Suppression, error) {
	var s block.Suppression
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&s).Error; err != nil {
		return block.Suppression{}, translate("get suppression", err)
	}
	return s, nil
}

func (r *PostgresBlockRepository) EnsureSuppression(ctx context.Context, userID uuid.UUID, now time.Time) error {
	row := block.Suppression{UserID: userID, Kind: block.SuppressionNone, UpdatedAt: now}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return translate("ensure suppression", err)
	}
	return nil
}

func (r *PostgresBlockRepository) LockSuppression(ctx context.Context, userID uuid.UUID) (block.Suppression, error) {
	var s block.Suppression
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&s).Error
	if err != nil {
		return block.Suppression{}, translate("lock suppression", err)
	}
	return s, nil
}

func (r *PostgresBlockRepository) ApplySuppression(ctx context.Context, s block.Suppression, now time.Time) (bool, error) {
	q := r.db.WithContext(ctx).
		Model(&block.Suppression{}).
		Where("user_id = ?", s.UserID)
	if s.Kind == block.SuppressionBan && s.IsPermanent {
		q = q.Where("NOT (kind = ? AND is_permanent)", block.SuppressionBan)
	} else {
		q = q.Where("NOT (kind = ? AND (is_permanent OR COALESCE(expires_at > ?, false)))", block.SuppressionBan, now)
	}

	res := q.Updates(map[string]interface{}{
		"kind":         s.Kind,
		"is_permanent": s.IsPermanent,
		"expires_at":   s.ExpiresAt,
		"applied_by":   s.AppliedBy,
		"log_entry_id": s.LogEntryID,
		"reason":       s.Reason,
		"updated_at":   now,
	})
	if res.Error != nil {
		return false, translate("apply suppression", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresBlockRepository) ClearSuppression(ctx context.Context, userID uuid.UUID, kind block.SuppressionKind, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&block.Suppression{}).
		Where("user_id = ? AND kind = ?", userID, kind).
		Updates(map[string]interface{}{
			"kind":         block.SuppressionNone,
			"is_permanent": false,
			"expires_at":   nil,
			"updated_at":   now,
		})
	if res.Error != nil {
		return false, translate("clear suppression", res.Error)
	}
	return res.RowsAffected > 0, nil
}
