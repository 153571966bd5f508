package repository

import (
	"context"
	"time"

	"sentinal-safety/internal/domain/message"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresMessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Create(ctx context.Context, m *message.Message) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return translate("create message", err)
	}
	return nil
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (message.Message, error) {
	var m message.Message
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return message.Message{}, translate("get message", err)
	}
	return m, nil
}

func (r *PostgresMessageRepository) ListRoomMessages(ctx context.Context, roomID uuid.UUID, page, limit int, includeHidden bool) ([]message.Message, error) {
	var messages []message.Message
	q := r.db.WithContext(ctx).Where("room_id = ?", roomID)
	if !includeHidden {
		q = q.Where("is_hidden = ? AND is_retracted = ?", false, false)
	}
	err := q.
		Order("seq DESC").
		Offset(pageOffset(page, limit)).
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, translate("list messages", err)
	}
	return messages, nil
}

func (r *PostgresMessageRepository) MarkReadFrom(ctx context.Context, roomID, senderID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("room_id = ? AND sender_id = ? AND read_at IS NULL", roomID, senderID).
		Update("read_at", at)
	if res.Error != nil {
		return 0, translate("mark read", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *PostgresMessageRepository) Hide(ctx context.Context, id uuid.UUID, by uuid.UUID, retracted bool) error {
	updates := map[string]interface{}{
		"is_hidden": true,
		"hidden_by": uuid.NullUUID{UUID: by, Valid: true},
	}
	if retracted {
		updates["is_retracted"] = true
	}
	res := r.db.WithContext(ctx).
		Model(&message.Message{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return translate("hide message", res.Error)
	}
	if res.RowsAffected == 0 {
		return translate("hide message", gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *PostgresMessageRepository) CountFlagged(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&message.Message{}).Where("is_flagged = ?", true).Count(&count).Error; err != nil {
		return 0, translate("count flagged", err)
	}
	return count, nil
}
