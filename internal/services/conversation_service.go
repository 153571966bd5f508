package services

import (
	"context"
	"fmt"
	"strings"

	"sentinal-safety/internal/domain/conversation"
	"sentinal-safety/internal/domain/message"
	"sentinal-safety/internal/metrics"
	"sentinal-safety/internal/repository"
	sentinal_errors "sentinal-safety/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ConversationService struct {
	store    repository.Store
	gate     ContextEligibilityGate
	messages *MessageService
	metrics  *metrics.Metrics
	now      Clock
}

func NewConversationService(store repository.Store, gate ContextEligibilityGate, messages *MessageService, m *metrics.Metrics) *ConversationService {
	return &ConversationService{store: store, gate: gate, messages: messages, metrics: m, now: defaultClock}
}

func (s *ConversationService) SetClock(c Clock) {
	s.now = c
}

type OpenConversationInput struct {
	Initiator      uuid.UUID
	OtherParty     uuid.UUID
	Context        conversation.ContextType
	ContextRef     string
	InitialMessage string
}

type OpenConversationResult struct {
	Room           conversation.Room
	Created        bool
	InitialMessage *message.Message
}

// OpenConversation returns the single room for the normalized pair and
// context, creating it if needed. When an initial message is supplied it is
// sent through the message pipeline after the room exists; a failed send is
// returned alongside the room.
func (s *ConversationService) OpenConversation(ctx context.Context, in OpenConversationInput) (OpenConversationResult, error) {
	if in.Initiator == uuid.Nil || in.OtherParty == uuid.Nil {
		return OpenConversationResult{}, sentinal_errors.ErrInvalidInput
	}
	if in.Initiator == in.OtherParty {
		return OpenConversationResult{}, sentinal_errors.ErrSelfConversation
	}
	if !in.Context.Valid() {
		return OpenConversationResult{}, fmt.Errorf("unknown context %q: %w", in.Context, sentinal_errors.ErrInvalidInput)
	}
	ref := strings.TrimSpace(in.ContextRef)
	now := s.now()

	blocks, err := s.store.Blocks().ActiveBetween(ctx, in.Initiator, in.OtherParty, now)
	if err != nil {
		return OpenConversationResult{}, err
	}
	if len(blocks) > 0 {
		return OpenConversationResult{}, sentinal_errors.ErrPartiesBlocked
	}
	for _, party := range []uuid.UUID{in.Initiator, in.OtherParty} {
		sup, err := suppressionOf(ctx, s.store.Blocks(), party)
		if err != nil {
			return OpenConversationResult{}, err
		}
		if sup.BannedAt(now) {
			return OpenConversationResult{}, sentinal_errors.ErrPartiesBlocked
		}
	}

	key := conversation.NewKey(in.Initiator, in.OtherParty, in.Context, ref)
	if s.gate != nil {
		decision, err := s.gate.Check(ctx, in.Context, ref, key.PartyA, key.PartyB)
		if err != nil {
			return OpenConversationResult{}, fmt.Errorf("eligibility check: %w: %v", sentinal_errors.ErrInternal, err)
		}
		if !decision.Allowed {
			return OpenConversationResult{}, fmt.Errorf("%w: %s", sentinal_errors.ErrIneligibleContext, decision.Reason)
		}
	}

	room := conversation.Room{
		ID:          uuid.New(),
		PartyA:      key.PartyA,
		PartyB:      key.PartyB,
		ContextType: key.ContextType,
		ContextRef:  key.ContextRef,
		Status:      conversation.StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	stored, created, err := s.store.Rooms().InsertOrGet(ctx, &room)
	if err != nil {
		return OpenConversationResult{}, err
	}
	if !created && stored.Status == conversation.StatusBlocked {
		err = s.store.WithinTx(ctx, func(tx repository.Store) error {
			locked, err := tx.Rooms().GetByIDForUpdate(ctx, stored.ID)
			if err != nil {
				return err
			}
			stored, err = releaseExpiredBlock(ctx, tx, locked, now)
			return err
		})
		if err != nil {
			return OpenConversationResult{}, err
		}
	}
	if created {
		s.metrics.RoomOpened()
		logFor(ctx).Info("room opened",
			zap.String("room_id", stored.ID.String()),
			zap.String("context", string(stored.ContextType)))
	}

	result := OpenConversationResult{Room: stored, Created: created}
	if strings.TrimSpace(in.InitialMessage) == "" || s.messages == nil {
		return result, nil
	}
	msg, err := s.messages.Send(ctx, SendInput{
		RoomID:   stored.ID,
		SenderID: in.Initiator,
		Type:     message.TypeText,
		Content:  in.InitialMessage,
	})
	if err != nil {
		return result, err
	}
	result.InitialMessage = &msg
	if refreshed, err := s.store.Rooms().GetByID(ctx, stored.ID); err == nil {
		result.Room = refreshed
	}
	return result, nil
}

// ListConversations returns the party's rooms, most recently active first.
func (s *ConversationService) ListConversations(ctx context.Context, party uuid.UUID, page, limit int) ([]conversation.Summary, int64, error) {
	page, limit = repository.NormalizePage(page, limit, 20, 100)
	rooms, total, err := s.store.Rooms().ListForParty(ctx, party, page, limit)
	if err != nil {
		return nil, 0, err
	}
	out := make([]conversation.Summary, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, conversation.Summary{
			Room:       room,
			OtherParty: room.OtherParty(party),
			Unread:     room.UnreadFor(party),
		})
	}
	return out, total, nil
}

func (s *ConversationService) GetConversation(ctx context.Context, roomID, requester uuid.UUID) (conversation.Summary, error) {
	room, err := s.store.Rooms().GetByID(ctx, roomID)
	if err != nil {
		return conversation.Summary{}, err
	}
	if !room.HasParty(requester) {
		return conversation.Summary{}, sentinal_errors.ErrForbidden
	}
	return conversation.Summary{Room: room, OtherParty: room.OtherParty(requester), Unread: room.UnreadFor(requester)}, nil
}

// Mute silences the room on behalf of a participant. The muter cannot send
// into the room until they unmute it.
func (s *ConversationService) Mute(ctx context.Context, roomID, actor uuid.UUID) (conversation.Room, error) {
	var out conversation.Room
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		room, err := tx.Rooms().GetByIDForUpdate(ctx, roomID)
		if err != nil {
			return err
		}
		if !room.HasParty(actor) {
			return sentinal_errors.ErrForbidden
		}
		out, err = transitionRoom(ctx, tx.Rooms(), room, conversation.StatusMuted, repository.RoomTransition{
			Actor: nullUUID(actor),
			At:    s.now(),
		})
		return err
	})
	return out, err
}

// Unmute lifts a participant mute. Only the party who muted may unmute, and a
// moderator mute can only be lifted by a moderator.
func (s *ConversationService) Unmute(ctx context.Context, roomID, actor uuid.UUID) (conversation.Room, error) {
	var out conversation.Room
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		room, err := tx.Rooms().GetByIDForUpdate(ctx, roomID)
		if err != nil {
			return err
		}
		if !room.HasParty(actor) {
			return sentinal_errors.ErrForbidden
		}
		out = room
		if room.Status != conversation.StatusMuted {
			if room.Status == conversation.StatusActive {
				return nil
			}
			return fmt.Errorf("room is %s: %w", room.Status, sentinal_errors.ErrInvalidTransition)
		}
		if room.MutedByAdmin || room.MutedBy.UUID != actor {
			return sentinal_errors.ErrForbidden
		}
		out, err = transitionRoom(ctx, tx.Rooms(), room, conversation.StatusActive, repository.RoomTransition{At: s.now()})
		return err
	})
	return out, err
}

// Close terminally closes the room. Closing a closed room is a no-op.
func (s *ConversationService) Close(ctx context.Context, roomID uuid.UUID, actor uuid.NullUUID, reason string) (conversation.Room, error) {
	var out conversation.Room
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		room, err := tx.Rooms().GetByIDForUpdate(ctx, roomID)
		if err != nil {
			return err
		}
		out, err = transitionRoom(ctx, tx.Rooms(), room, conversation.StatusClosed, repository.RoomTransition{
			Actor:  actor,
			Reason: reason,
			At:     s.now(),
		})
		return err
	})
	return out, err
}

// MarkBlocked moves every room between the pair to blocked.
func (s *ConversationService) MarkBlocked(ctx context.Context, a, b uuid.UUID, actor uuid.NullUUID) (int, error) {
	var moved int
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		moved, err = markPairBlocked(ctx, tx.Rooms(), a, b, actor, s.now())
		return err
	})
	return moved, err
}
