package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"sentinal-safety/config"
	"sentinal-safety/internal/domain/conversation"
	"sentinal-safety/internal/domain/message"
	"sentinal-safety/internal/metrics"
	"sentinal-safety/internal/repository"
	"sentinal-safety/internal/safety"
	sentinal_errors "sentinal-safety/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const deliveryTimeout = 5 * time.Second

type MessageService struct {
	store    repository.Store
	delivery PresenceDelivery
	metrics  *metrics.Metrics
	cfg      config.ModerationConfig
	now      Clock
}

func NewMessageService(store repository.Store, delivery PresenceDelivery, cfg config.ModerationConfig, m *metrics.Metrics) *MessageService {
	return &MessageService{store: store, delivery: delivery, metrics: m, cfg: cfg, now: defaultClock}
}

func (s *MessageService) SetClock(c Clock) {
	s.now = c
}

type SendInput struct {
	RoomID   uuid.UUID
	SenderID uuid.UUID
	Type     message.Type
	Content  string
	ReplyTo  uuid.NullUUID
}

func (s *MessageService) validate(in *SendInput) error {
	if in.Type == "" {
		in.Type = message.TypeText
	}
	if !in.Type.Valid() {
		return fmt.Errorf("unknown message type %q: %w", in.Type, sentinal_errors.ErrInvalidInput)
	}
	if strings.TrimSpace(in.Content) == "" {
		return sentinal_errors.ErrEmptyContent
	}
	if utf8.RuneCountInString(in.Content) > s.cfg.MaxMessageLength {
		return sentinal_errors.ErrContentTooLong
	}
	return nil
}

// Send persists a message and updates the room aggregates while holding the
// room row lock. Delivery to the recipient happens after commit and never
// affects the result.
func (s *MessageService) Send(ctx context.Context, in SendInput) (message.Message, error) {
	if err := s.validate(&in); err != nil {
		return message.Message{}, err
	}

	start := time.Now()
	var (
		msg       message.Message
		recipient uuid.UUID
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		now := s.now()
		room, err := tx.Rooms().GetByIDForUpdate(ctx, in.RoomID)
		if err != nil {
			return err
		}
		if room, err = releaseExpiredBlock(ctx, tx, room, now); err != nil {
			return err
		}
		if err := s.checkSender(ctx, tx, room, in.SenderID, now); err != nil {
			return err
		}
		if in.ReplyTo.Valid {
			parent, err := tx.Messages().GetByID(ctx, in.ReplyTo.UUID)
			if errors.Is(err, sentinal_errors.ErrNotFound) || (err == nil && parent.RoomID != room.ID) {
				return fmt.Errorf("reply target is not in this room: %w", sentinal_errors.ErrInvalidInput)
			}
			if err != nil {
				return err
			}
		}

		flags := safety.Scan(in.Content)
		msg = message.Message{
			ID:          uuid.New(),
			RoomID:      room.ID,
			SenderID:    in.SenderID,
			Seq:         room.MessageCount + 1,
			Type:        in.Type,
			Content:     in.Content,
			SafetyFlags: flags,
			IsFlagged:   flags.Any(),
			ReplyToID:   in.ReplyTo,
			SentAt:      now,
		}
		if err := tx.Messages().Create(ctx, &msg); err != nil {
			return err
		}
		recipient = room.OtherParty(in.SenderID)
		return tx.Rooms().RecordMessage(ctx, room.ID, msg, recipient)
	})
	if err != nil {
		return message.Message{}, err
	}

	s.metrics.MessageSent(string(msg.Type), msg.IsFlagged, start)
	if msg.IsFlagged {
		logFor(ctx).Info("message flagged",
			zap.String("message_id", msg.ID.String()),
			zap.String("room_id", msg.RoomID.String()),
			zap.Bool("phone", msg.ContainsPhone),
			zap.Bool("email", msg.ContainsEmail),
			zap.Bool("payment_handle", msg.ContainsPaymentHandle),
			zap.Bool("external_link", msg.ContainsExternalLink))
	}
	s.deliver(ctx, recipient, msg)
	return msg, nil
}

// checkSender enforces participation, room state, mutes, platform sanctions
// and blocks, in that order.
func (s *MessageService) checkSender(ctx context.Context, tx repository.Store, room conversation.Room, sender uuid.UUID, now time.Time) error {
	if !room.HasParty(sender) {
		return sentinal_errors.ErrForbidden
	}
	if !room.Status.AcceptsMessages() {
		return sentinal_errors.ErrRoomInactive
	}
	if room.Status == conversation.StatusMuted && (room.MutedByAdmin || room.MutedBy.UUID == sender) {
		return sentinal_errors.ErrSenderMuted
	}

	sup, err := suppressionOf(ctx, tx.Blocks(), sender)
	if err != nil {
		return err
	}
	if sup.BannedAt(now) {
		return sentinal_errors.ErrUserSuspended
	}
	if sup.MutedAt(now) {
		return sentinal_errors.ErrSenderMuted
	}

	blocks, err := tx.Blocks().ActiveBetween(ctx, room.PartyA, room.PartyB, now)
	if err != nil {
		return err
	}
	if len(blocks) > 0 {
		return sentinal_errors.ErrRoomInactive
	}
	return nil
}

// DeliveryPayload is what a recipient's live session receives.
type DeliveryPayload struct {
	Type      string    `json:"type"`
	MessageID uuid.UUID `json:"message_id"`
	RoomID    uuid.UUID `json:"room_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Seq       int64     `json:"seq"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content"`
	IsFlagged bool      `json:"is_flagged"`
	SentAt    time.Time `json:"sent_at"`
}

func (s *MessageService) deliver(ctx context.Context, recipient uuid.UUID, msg message.Message) {
	if s.delivery == nil {
		return
	}
	payload, err := json.Marshal(DeliveryPayload{
		Type:      EventMessageNew,
		MessageID: msg.ID,
		RoomID:    msg.RoomID,
		SenderID:  msg.SenderID,
		Seq:       msg.Seq,
		Kind:      string(msg.Type),
		Content:   msg.Content,
		IsFlagged: msg.IsFlagged,
		SentAt:    msg.SentAt,
	})
	if err != nil {
		logFor(ctx).Warn("encode delivery payload", zap.Error(err))
		return
	}
	bg := context.WithoutCancel(ctx)
	go func() {
		pushCtx, cancel := context.WithTimeout(bg, deliveryTimeout)
		defer cancel()
		if err := s.delivery.Push(pushCtx, recipient, payload); err != nil {
			s.metrics.DeliveryFailed()
			logFor(bg).Warn("live delivery failed",
				zap.String("recipient", recipient.String()),
				zap.String("message_id", msg.ID.String()),
				zap.Error(err))
		}
	}()
}

// FetchMessages returns one page of visible messages, oldest to newest, and
// marks the other party's messages read. Repeating the call leaves the
// requester's unread counter at zero.
func (s *MessageService) FetchMessages(ctx context.Context, roomID, requester uuid.UUID, page, limit int) ([]message.Message, error) {
	page, limit = repository.NormalizePage(page, limit, 50, 200)
	room, err := s.store.Rooms().GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasParty(requester) {
		return nil, sentinal_errors.ErrForbidden
	}

	msgs, err := s.store.Messages().ListRoomMessages(ctx, roomID, page, limit, false)
	if err != nil {
		return nil, err
	}
	slices.Reverse(msgs)

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Messages().MarkReadFrom(ctx, roomID, room.OtherParty(requester), s.now()); err != nil {
			return err
		}
		return tx.Rooms().ResetUnread(ctx, roomID, requester)
	})
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// Retract hides a message on behalf of its sender. Room counters keep the
// lifetime volume and are not decremented.
func (s *MessageService) Retract(ctx context.Context, messageID, requester uuid.UUID) error {
	msg, err := s.store.Messages().GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != requester {
		return sentinal_errors.ErrForbidden
	}
	if msg.IsRetracted {
		return nil
	}
	return s.store.Messages().Hide(ctx, messageID, requester, true)
}

// Hide removes a message from participant timelines on behalf of a moderator.
func (s *MessageService) Hide(ctx context.Context, messageID, adminID uuid.UUID) error {
	if _, err := s.store.Messages().GetByID(ctx, messageID); err != nil {
		return err
	}
	return s.store.Messages().Hide(ctx, messageID, adminID, false)
}

// RoomMessagesForReview returns the latest limit messages of the room,
// including hidden and retracted ones, oldest to newest.
func (s *MessageService) RoomMessagesForReview(ctx context.Context, roomID uuid.UUID, limit int) ([]message.Message, error) {
	if limit <= 0 {
		limit = s.cfg.ReviewContextMessages
	}
	msgs, err := s.store.Messages().ListRoomMessages(ctx, roomID, 1, limit, true)
	if err != nil {
		return nil, err
	}
	slices.Reverse(msgs)
	return msgs, nil
}
