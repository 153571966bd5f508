package repository

import (
	"context"

	"sentinal-safety/internal/domain/conversation"
	"sentinal-safety/internal/domain/message"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresRoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &PostgresRoomRepository{db: db}
}

var roomKeyColumns = []clause.Column{
	{Name: "party_a"},
	{Name: "party_b"},
	{Name: "context_type"},
	{Name: "context_ref"},
}

func (r *PostgresRoomRepository) InsertOrGet(ctx context.Context, room *conversation.Room) (conversation.Room, bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: roomKeyColumns, DoNothing: true}).
		Create(room)
	if res.Error != nil {
		return conversation.Room{}, false, translate("insert room", res.Error)
	}

	stored, err := r.GetByKey(ctx, room.Key())
	if err != nil {
		return conversation.Room{}, false, err
	}
	return stored, res.RowsAffected > 0, nil
}

func (r *PostgresRoomRepository) GetByID(ctx context.Context, id uuid.UUID) (conversation.Room, error) {
	var room conversation.Room
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&room).Error; err != nil {
		return conversation.Room{}, translate("get room", err)
	}
	return room, nil
}

func (r *PostgresRoomRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (conversation.Room, error) {
	var room conversation.Room
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&room).Error
	if err != nil {
		return conversation.Room{}, translate("lock room", err)
	}
	return room, nil
}

func (r *PostgresRoomRepository) GetByKey(ctx context.Context, key conversation.Key) (conversation.Room, error) {
	var room conversation.Room
	err := r.db.WithContext(ctx).
		Where("party_a = ? AND party_b = ? AND context_type = ? AND context_ref = ?",
			key.PartyA, key.PartyB, key.ContextType, key.ContextRef).
		First(&room).Error
	if err != nil {
		return conversation.Room{}, translate("get room by key", err)
	}
	return room, nil
}

func (r *PostgresRoomRepository) ListForParty(ctx context.Context, party uuid.UUID, page, limit int) ([]conversation.Room, int64, error) {
	var rooms []conversation.Room
	var total int64

	q := r.db.WithContext(ctx).
		Model(&conversation.Room{}).
		Where("party_a = ? OR party_b = ?", party, party)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate("count rooms", err)
	}

	if err := q.
		Order("last_message_at DESC NULLS LAST").
		Order("created_at DESC").
		Offset(pageOffset(page, limit)).
		Limit(limit).
		Find(&rooms).Error; err != nil {
		return nil, 0, translate("list rooms", err)
	}
	return rooms, total, nil
}

func (r *PostgresRoomRepository) ListBetween(ctx context.Context, a, b uuid.UUID) ([]conversation.Room, error) {
	a, b = conversation.NormalizePair(a, b)
	var rooms []conversation.Room
	if err := r.db.WithContext(ctx).Where("party_a = ? AND party_b = ?", a, b).Find(&rooms).Error; err != nil {
		return nil, translate("list rooms between", err)
	}
	return rooms, nil
}

func (r *PostgresRoomRepository) ListOpenForParty(ctx context.Context, party uuid.UUID) ([]conversation.Room, error) {
	var rooms []conversation.Room
	err := r.db.WithContext(ctx).
		Where("(party_a = ? OR party_b = ?) AND status <> ?", party, party, conversation.StatusClosed).
		Find(&rooms).Error
	if err != nil {
		return nil, translate("list open rooms", err)
	}
	return rooms, nil
}

func (r *PostgresRoomRepository) Transition(ctx context.Context, id uuid.UUID, from []conversation.RoomStatus, to conversation.RoomStatus, t RoomTransition) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": t.At,
	}
	switch to {
	case conversation.StatusMuted:
		updates["muted_by"] = t.Actor
		updates["muted_by_admin"] = t.ByAdmin
		updates["muted_at"] = t.At
	case conversation.StatusBlocked:
		updates["blocked_by"] = t.Actor
		updates["blocked_at"] = t.At
	case conversation.StatusReported:
		updates["reported_at"] = t.At
	case conversation.StatusClosed:
		updates["closed_by"] = t.Actor
		updates["closed_at"] = t.At
		updates["close_reason"] = t.Reason
	case conversation.StatusActive:
		updates["muted_by"] = nil
		updates["muted_by_admin"] = false
		updates["muted_at"] = nil
		updates["blocked_by"] = nil
		updates["blocked_at"] = nil
	}

	res := r.db.WithContext(ctx).
		Model(&conversation.Room{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, translate("transition room", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresRoomRepository) RecordMessage(ctx context.Context, roomID uuid.UUID, msg message.Message, recipient uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&conversation.Room{}).
		Where("id = ?", roomID).
		Updates(map[string]interface{}{
			"message_count":   gorm.Expr("message_count + 1"),
			"unread_a":        gorm.Expr("unread_a + CASE WHEN party_a = ? THEN 1 ELSE 0 END", recipient),
			"unread_b":        gorm.Expr("unread_b + CASE WHEN party_b = ? THEN 1 ELSE 0 END", recipient),
			"last_message_id": msg.ID,
			"last_message_at": msg.SentAt,
			"updated_at":      msg.SentAt,
		})
	if res.Error != nil {
		return translate("record message", res.Error)
	}
	if res.RowsAffected == 0 {
		return translate("record message", gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *PostgresRoomRepository) ResetUnread(ctx context.Context, roomID, party uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&conversation.Room{}).
		Where("id = ?", roomID).
		Updates(map[string]interface{}{
			"unread_a": gorm.Expr("CASE WHEN party_a = ? THEN 0 ELSE unread_a END", party),
			"unread_b": gorm.Expr("CASE WHEN party_b = ? THEN 0 ELSE unread_b END", party),
		})
	if res.Error != nil {
		return translate("reset unread", res.Error)
	}
	return nil
}
