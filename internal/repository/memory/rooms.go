package memory

import (
	"cmp"
	"context"
	"slices"

	"sentinal-safety/internal/domain/conversation"
	"sentinal-safety/internal/domain/message"
	"sentinal-safety/internal/repository"
	sentinal_errors "sentinal-safety/pkg/errors"

	"github.com/google/uuid"
)

type roomRepo struct{ base }

func (r *roomRepo) InsertOrGet(_ context.Context, room *conversation.Room) (conversation.Room, bool, error) {
	var (
		stored  conversation.Room
		created bool
	)
	err := r.write(func(t *tables) error {
		key := room.Key()
		for _, existing := range t.rooms {
			if existing.Key() == key {
				stored = existing
				return nil
			}
		}
		ensureID(&room.ID)
		ensureTime(&room.CreatedAt)
		if room.UpdatedAt.IsZero() {
			room.UpdatedAt = room.CreatedAt
		}
		if room.Status == "" {
			room.Status = conversation.StatusActive
		}
		t.rooms[room.ID] = *room
		stored, created = *room, true
		return nil
	})
	return stored, created, err
}

func (r *roomRepo) GetByID(_ context.Context, id uuid.UUID) (conversation.Room, error) {
	var room conversation.Room
	err := r.read(func(t *tables) error {
		found, ok := t.rooms[id]
		if !ok {
			return sentinal_errors.ErrNotFound
		}
		room = found
		return nil
	})
	return room, err
}

// GetByIDForUpdate needs no extra locking: transactions are already serialized.
func (r *roomRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (conversation.Room, error) {
	return r.GetByID(ctx, id)
}

func (r *roomRepo) GetByKey(_ context.Context, key conversation.Key) (conversation.Room, error) {
	var room conversation.Room
	err := r.read(func(t *tables) error {
		for _, existing := range t.rooms {
			if existing.Key() == key {
				room = existing
				return nil
			}
		}
		return sentinal_errors.ErrNotFound
	})
	return room, err
}

func (r *roomRepo) ListForParty(_ context.Context, party uuid.UUID, page, limit int) ([]conversation.Room, int64, error) {
	var rooms []conversation.Room
	_ = r.read(func(t *tables) error {
		for _, room := range t.rooms {
			if room.HasParty(party) {
				rooms = append(rooms, room)
			}
		}
		return nil
	})
	slices.SortFunc(rooms, func(a, b conversation.Room) int {
		switch {
		case a.LastMessageAt.Valid && !b.LastMessageAt.Valid:
			return -1
		case !a.LastMessageAt.Valid && b.LastMessageAt.Valid:
			return 1
		case a.LastMessageAt.Valid && !a.LastMessageAt.Time.Equal(b.LastMessageAt.Time):
			return b.LastMessageAt.Time.Compare(a.LastMessageAt.Time)
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return paginate(rooms, page, limit), int64(len(rooms)), nil
}

func (r *roomRepo) ListBetween(_ context.Context, a, b uuid.UUID) ([]conversation.Room, error) {
	a, b = conversation.NormalizePair(a, b)
	var rooms []conversation.Room
	_ = r.read(func(t *tables) error {
		for _, room := range t.rooms {
			if room.PartyA == a && room.PartyB == b {
				rooms = append(rooms, room)
			}
		}
		return nil
	})
	slices.SortFunc(rooms, func(x, y conversation.Room) int { return x.CreatedAt.Compare(y.CreatedAt) })
	return rooms, nil
}

func (r *roomRepo) ListOpenForParty(_ context.Context, party uuid.UUID) ([]conversation.Room, error) {
	var rooms []conversation.Room
	_ = r.read(func(t *tables) error {
		for _, room := range t.rooms {
			if room.HasParty(party) && room.Status != conversation.StatusClosed {
				rooms = append(rooms, room)
			}
		}
		return nil
	})
	slices.SortFunc(rooms, func(x, y conversation.Room) int { return cmp.Compare(x.ID.String(), y.ID.String()) })
	return rooms, nil
}

func (r *roomRepo) Transition(_ context.Context, id uuid.UUID, from []conversation.RoomStatus, to conversation.RoomStatus, tr repository.RoomTransition) (bool, error) {
	changed := false
	err := r.write(func(t *tables) error {
		room, ok := t.rooms[id]
		if !ok || !slices.Contains(from, room.Status) {
			return nil
		}
		room.Status = to
		room.UpdatedAt = tr.At
		switch to {
		case conversation.StatusMuted:
			room.MutedBy = tr.Actor
			room.MutedByAdmin = tr.ByAdmin
			room.MutedAt = nullTime(tr.At)
		case conversation.StatusBlocked:
			room.BlockedBy = tr.Actor
			room.BlockedAt = nullTime(tr.At)
		case conversation.StatusReported:
			room.ReportedAt = nullTime(tr.At)
		case conversation.StatusClosed:
			room.ClosedBy = tr.Actor
			room.ClosedAt = nullTime(tr.At)
			room.CloseReason = tr.Reason
		case conversation.StatusActive:
			room.MutedBy = uuid.NullUUID{}
			room.MutedByAdmin = false
			room.MutedAt.Valid = false
			room.BlockedBy = uuid.NullUUID{}
			room.BlockedAt.Valid = false
		}
		t.rooms[id] = room
		changed = true
		return nil
	})
	return changed, err
}

func (r *roomRepo) RecordMessage(_ context.Context, roomID uuid.UUID, msg message.Message, recipient uuid.UUID) error {
	return r.write(func(t *tables) error {
		room, ok := t.rooms[roomID]
		if !ok {
			return sentinal_errors.ErrNotFound
		}
		room.MessageCount++
		if room.PartyA == recipient {
			room.UnreadA++
		}
		if room.PartyB == recipient {
			room.UnreadB++
		}
		room.LastMessageID = uuid.NullUUID{UUID: msg.ID, Valid: true}
		room.LastMessageAt = nullTime(msg.SentAt)
		room.UpdatedAt = msg.SentAt
		t.rooms[roomID] = room
		return nil
	})
}

func (r *roomRepo) ResetUnread(_ context.Context, roomID, party uuid.UUID) error {
	return r.write(func(t *tables) error {
		room, ok := t.rooms[roomID]
		if !ok {
			return nil
		}
		if room.PartyA == party {
			room.UnreadA = 0
		}
		if room.PartyB == party {
			room.UnreadB = 0
		}
		t.rooms[roomID] = room
		return nil
	})
}
