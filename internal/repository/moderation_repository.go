package repository

import (
	"context"
	"time"

	"sentinal-safety/internal/domain/moderation"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresModerationRepository struct {
	db *gorm.DB
}

func NewModerationRepository(db *gorm.DB) ModerationRepository {
	return &PostgresModerationRepository{db: db}
}

var strikeActions = []moderation.Action{moderation.ActionChatWarning, moderation.ActionUserWarn}

func (r *PostgresModerationRepository) strikes(ctx context.Context, userID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&moderation.LogEntry{}).
		Where("subject_user_id = ? AND action IN ? AND is_superseded = ?", userID, strikeActions, false)
}

func (r *PostgresModerationRepository) Create(ctx context.Context, e *moderation.LogEntry) error {
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		return translate("create moderation entry", err)
	}
	return nil
}

func (r *PostgresModerationRepository) GetByID(ctx context.Context, id uuid.UUID) (moderation.LogEntry, error) {
	var e moderation.LogEntry
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return moderation.LogEntry{}, translate("get moderation entry", err)
	}
	return e, nil
}

func (r *PostgresModerationRepository) CountStrikes(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	if err := r.strikes(ctx, userID).Count(&count).Error; err != nil {
		return 0, translate("count strikes", err)
	}
	return count, nil
}

func (r *PostgresModerationRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]moderation.LogEntry, error) {
	var entries []moderation.LogEntry
	err := r.db.WithContext(ctx).
		Where("subject_user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, translate("list moderation entries", err)
	}
	return entries, nil
}

func (r *PostgresModerationRepository) FileAppeal(ctx context.Context, id uuid.UUID, reason string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&moderation.LogEntry{}).
		Where("id = ? AND appeal_status = ?", id, moderation.AppealNone).
		Updates(map[string]interface{}{
			"appeal_status": moderation.AppealPending,
			"appeal_reason": reason,
			"appealed_at":   at,
		})
	if res.Error != nil {
		return false, translate("file appeal", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresModerationRepository) ResolveAppeal(ctx context.Context, id uuid.UUID, status moderation.AppealStatus, reviewer uuid.UUID, notes string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&moderation.LogEntry{}).
		Where("id = ? AND appeal_status = ?", id, moderation.AppealPending).
		Updates(map[string]interface{}{
			"appeal_status":       status,
			"appeal_reviewed_by":  reviewer,
			"appeal_review_notes": notes,
			"appeal_reviewed_at":  at,
		})
	if res.Error != nil {
		return false, translate("resolve appeal", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresModerationRepository) SupersedeStrikes(ctx context.Context, userID uuid.UUID, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	older := r.strikes(ctx, userID).
		Select("id").
		Order("created_at DESC").
		Offset(keep)

	res := r.db.WithContext(ctx).
		Model(&moderation.LogEntry{}).
		Where("id IN (?)", older).
		Update("is_superseded", true)
	if res.Error != nil {
		return 0, translate("supersede strikes", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *PostgresModerationRepository) TopStrikeUsers(ctx context.Context, limit int) ([]moderation.StrikeUser, error) {
	var rows []moderation.StrikeUser
	err := r.db.WithContext(ctx).
		Model(&moderation.LogEntry{}).
		Select("subject_user_id AS user_id, COUNT(*) AS strikes").
		Where("subject_user_id IS NOT NULL AND action IN ? AND is_superseded = ?", strikeActions, false).
		Group("subject_user_id").
		Order("strikes DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, translate("top strike users", err)
	}
	return rows, nil
}
