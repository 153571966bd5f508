package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"sentinal-safety/internal/domain/message"
	sentinal_errors "sentinal-safety/pkg/errors"

	"github.com/google/uuid"
)

type messageRepo struct{ base }

func (r *messageRepo) Create(_ context.Context, m *message.Message) error {
	return r.write(func(t *tables) error {
		ensureID(&m.ID)
		if _, ok := t.messages[m.ID]; ok {
			return duplicate("create message")
		}
		for _, existing := range t.messages {
			if existing.RoomID == m.RoomID && existing.Seq == m.Seq {
				return duplicate("create message")
			}
		}
		ensureTime(&m.SentAt)
		t.messages[m.ID] = *m
		return nil
	})
}

func (r *messageRepo) GetByID(_ context.Context, id uuid.UUID) (message.Message, error) {
	var m message.Message
	err := r.read(func(t *tables) error {
		found, ok := t.messages[id]
		if !ok {
			return sentinal_errors.ErrNotFound
		}
		m = found
		return nil
	})
	return m, err
}

func (r *messageRepo) ListRoomMessages(_ context.Context, roomID uuid.UUID, page, limit int, includeHidden bool) ([]message.Message, error) {
	messages := []message.Message{}
	_ = r.read(func(t *tables) error {
		for _, m := range t.messages {
			if m.RoomID != roomID {
				continue
			}
			if !includeHidden && !m.Visible() {
				continue
			}
			messages = append(messages, m)
		}
		return nil
	})
	slices.SortFunc(messages, func(a, b message.Message) int { return cmp.Compare(b.Seq, a.Seq) })
	return paginate(messages, page, limit), nil
}

func (r *messageRepo) MarkReadFrom(_ context.Context, roomID, senderID uuid.UUID, at time.Time) (int64, error) {
	var n int64
	err := r.write(func(t *tables) error {
		for id, m := range t.messages {
			if m.RoomID == roomID && m.SenderID == senderID && !m.ReadAt.Valid {
				m.ReadAt = nullTime(at)
				t.messages[id] = m
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *messageRepo) Hide(_ context.Context, id uuid.UUID, by uuid.UUID, retracted bool) error {
	return r.write(func(t *tables) error {
		m, ok := t.messages[id]
		if !ok {
			return sentinal_errors.ErrNotFound
		}
		m.IsHidden = true
		m.HiddenBy = uuid.NullUUID{UUID: by, Valid: true}
		if retracted {
			m.IsRetracted = true
		}
		t.messages[id] = m
		return nil
	})
}

func (r *messageRepo) CountFlagged(_ context.Context) (int64, error) {
	var n int64
	_ = r.read(func(t *tables) error {
		for _, m := range t.messages {
			if m.IsFlagged {
				n++
			}
		}
		return nil
	})
	return n, nil
}
