package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sentinal-safety/internal/domain/block"
	"sentinal-safety/internal/domain/conversation"
	"sentinal-safety/internal/repository"
	sentinal_errors "sentinal-safety/pkg/errors"

	"github.com/google/uuid"
)

// transitionRoom moves room to `to`. Re-applying the current status is a
// no-op. The update is conditional on the status read by the caller so a
// concurrent writer cannot be overwritten.
func transitionRoom(ctx context.Context, rooms repository.RoomRepository, room conversation.Room, to conversation.RoomStatus, t repository.RoomTransition) (conversation.Room, error) {
	if room.Status == to {
		return room, nil
	}
	if !room.Status.CanTransitionTo(to) {
		return room, fmt.Errorf("room %s cannot move from %s to %s: %w", room.ID, room.Status, to, sentinal_errors.ErrInvalidTransition)
	}
	changed, err := rooms.Transition(ctx, room.ID, []conversation.RoomStatus{room.Status}, to, t)
	if err != nil {
		return room, err
	}
	current, err := rooms.GetByID(ctx, room.ID)
	if err != nil {
		return room, err
	}
	if !changed && current.Status != to {
		return current, fmt.Errorf("room %s changed concurrently to %s: %w", room.ID, current.Status, sentinal_errors.ErrConflict)
	}
	return current, nil
}

// markPairBlocked moves every room between a and b that can still be blocked
// into the blocked state.
func markPairBlocked(ctx context.Context, rooms repository.RoomRepository, a, b uuid.UUID, actor uuid.NullUUID, at time.Time) (int, error) {
	list, err := rooms.ListBetween(ctx, a, b)
	if err != nil {
		return 0, err
	}
	sources := conversation.SourcesFor(conversation.StatusBlocked)
	moved := 0
	for _, room := range list {
		changed, err := rooms.Transition(ctx, room.ID, sources, conversation.StatusBlocked, repository.RoomTransition{Actor: actor, At: at})
		if err != nil {
			return moved, err
		}
		if changed {
			moved++
		}
	}
	return moved, nil
}

// releaseExpiredBlock moves a blocked room back to active once no block
// between its parties is in force, which is how temporary blocks end. The
// caller must hold the room row lock.
func releaseExpiredBlock(ctx context.Context, tx repository.Store, room conversation.Room, at time.Time) (conversation.Room, error) {
	if room.Status != conversation.StatusBlocked {
		return room, nil
	}
	active, err := tx.Blocks().ActiveBetween(ctx, room.PartyA, room.PartyB, at)
	if err != nil || len(active) > 0 {
		return room, err
	}
	return transitionRoom(ctx, tx.Rooms(), room, conversation.StatusActive, repository.RoomTransition{At: at})
}

// restorePairRooms moves blocked rooms between a and b back to active.
func restorePairRooms(ctx context.Context, rooms repository.RoomRepository, a, b uuid.UUID, at time.Time) (int, error) {
	list, err := rooms.ListBetween(ctx, a, b)
	if err != nil {
		return 0, err
	}
	moved := 0
	for _, room := range list {
		changed, err := rooms.Transition(ctx, room.ID, []conversation.RoomStatus{conversation.StatusBlocked}, conversation.StatusActive, repository.RoomTransition{At: at})
		if err != nil {
			return moved, err
		}
		if changed {
			moved++
		}
	}
	return moved, nil
}

// closeRoomsOf closes every non-closed room the user takes part in.
func closeRoomsOf(ctx context.Context, rooms repository.RoomRepository, user uuid.UUID, actor uuid.NullUUID, reason string, at time.Time) (int, error) {
	list, err := rooms.ListOpenForParty(ctx, user)
	if err != nil {
		return 0, err
	}
	sources := conversation.SourcesFor(conversation.StatusClosed)
	closed := 0
	for _, room := range list {
		changed, err := rooms.Transition(ctx, room.ID, sources, conversation.StatusClosed, repository.RoomTransition{Actor: actor, Reason: reason, At: at})
		if err != nil {
			return closed, err
		}
		if changed {
			closed++
		}
	}
	return closed, nil
}

// suppressionOf returns the user's suppression row, or a zero row when the
// user was never sanctioned.
func suppressionOf(ctx context.Context, blocks repository.BlockRepository, user uuid.UUID) (block.Suppression, error) {
	s, err := blocks.GetSuppression(ctx, user)
	if errors.Is(err, sentinal_errors.ErrNotFound) {
		return block.Suppression{UserID: user, Kind: block.SuppressionNone}, nil
	}
	return s, err
}
