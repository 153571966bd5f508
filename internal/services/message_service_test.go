package services

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"sentinal-safety/internal/domain/conversation"
	"sentinal-safety/internal/domain/message"
	"sentinal-safety/internal/domain/moderation"
	sentinal_errors "sentinal-safety/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type MessageServiceSuite struct {
	ServiceSuite
	chat conversation.Room
}

func TestMessageService(t *testing.T) {
	suite.Run(t, new(MessageServiceSuite))
}

func (s *MessageServiceSuite) SetupTest() {
	s.ServiceSuite.SetupTest()
	s.chat = s.openRoom(s.alice, s.bob)
}

func (s *MessageServiceSuite) send(sender uuid.UUID, content string) (message.Message, error) {
	return s.messages.Send(s.ctx, SendInput{RoomID: s.chat.ID, SenderID: sender, Content: content})
}

func (s *MessageServiceSuite) TestSendUpdatesRoomAggregates() {
	first, err := s.send(s.alice, "hi")
	s.Require().NoError(err)
	s.clock.Advance(time.Second)
	second, err := s.send(s.alice, "are you there?")
	s.Require().NoError(err)
	s.waitDeliveries(2)

	s.Equal(int64(1), first.Seq)
	s.Equal(int64(2), second.Seq)
	s.Equal(message.TypeText, second.Type)

	room := s.room(s.chat.ID)
	s.Equal(int64(2), room.MessageCount)
	s.Equal(int64(2), room.UnreadFor(s.bob))
	s.Zero(room.UnreadFor(s.alice))
	s.Equal(second.ID, room.LastMessageID.UUID)
	s.True(room.LastMessageAt.Time.Equal(second.SentAt))
}

func (s *MessageServiceSuite) TestSendFlagsContactDetails() {
	msg, err := s.send(s.bob, "call me on 9876543210 or mail bob@example.com")
	s.Require().NoError(err)
	s.waitDeliveries(1)

	s.True(msg.IsFlagged)
	s.True(msg.ContainsPhone)
	s.True(msg.ContainsEmail)
	s.False(msg.ContainsPaymentHandle)

	clean, err := s.send(s.bob, "see you at the temple on sunday")
	s.Require().NoError(err)
	s.waitDeliveries(1)
	s.False(clean.IsFlagged)
}

func (s *MessageServiceSuite) TestSendValidation() {
	s.Run("empty content", func() {
		_, err := s.send(s.alice, "   ")
		s.ErrorIs(err, sentinal_errors.ErrEmptyContent)
	})
	s.Run("too long", func() {
		_, err := s.send(s.alice, strings.Repeat("a", s.cfg.MaxMessageLength+1))
		s.ErrorIs(err, sentinal_errors.ErrContentTooLong)
	})
	s.Run("unknown type", func() {
		_, err := s.messages.Send(s.ctx, SendInput{RoomID: s.chat.ID, SenderID: s.alice, Type: "sticker", Content: "x"})
		s.ErrorIs(err, sentinal_errors.ErrInvalidInput)
	})
	s.Run("outsider", func() {
		_, err := s.send(s.carol, "hello")
		s.ErrorIs(err, sentinal_errors.ErrForbidden)
	})
	s.Run("unknown room", func() {
		_, err := s.messages.Send(s.ctx, SendInput{RoomID: uuid.New(), SenderID: s.alice, Content: "x"})
		s.ErrorIs(err, sentinal_errors.ErrNotFound)
	})
	s.Run("reply to another room", func() {
		other := s.openRoom(s.alice, s.carol)
		parent, err := s.messages.Send(s.ctx, SendInput{RoomID: other.ID, SenderID: s.carol, Content: "hi"})
		s.Require().NoError(err)
		s.waitDeliveries(1)

		_, err = s.messages.Send(s.ctx, SendInput{
			RoomID:   s.chat.ID,
			SenderID: s.alice,
			Content:  "replying",
			ReplyTo:  nullUUID(parent.ID),
		})
		s.ErrorIs(err, sentinal_errors.ErrInvalidInput)
	})

	s.Zero(s.room(s.chat.ID).MessageCount)
}

func (s *MessageServiceSuite) TestSendIntoBlockedRoom() {
	_, err := s.blocks.Block(s.ctx, BlockInput{BlockerID: s.bob, BlockedID: s.alice})
	s.Require().NoError(err)
	s.Equal(conversation.StatusBlocked, s.room(s.chat.ID).Status)

	for _, sender := range []uuid.UUID{s.alice, s.bob} {
		_, err := s.send(sender, "hello?")
		s.ErrorIs(err, sentinal_errors.ErrRoomInactive)
	}
	s.Zero(s.room(s.chat.ID).MessageCount)
}

func (s *MessageServiceSuite) TestSendIntoClosedRoom() {
	_, err := s.conversations.Close(s.ctx, s.chat.ID, nullUUID(s.admin), "done")
	s.Require().NoError(err)

	_, err = s.send(s.alice, "hello?")
	s.ErrorIs(err, sentinal_errors.ErrRoomInactive)
}

func (s *MessageServiceSuite) TestMutedSenderRejected() {
	_, err := s.conversations.Mute(s.ctx, s.chat.ID, s.alice)
	s.Require().NoError(err)

	_, err = s.send(s.alice, "hello")
	s.ErrorIs(err, sentinal_errors.ErrSenderMuted)

	_, err = s.send(s.bob, "the other side can still write")
	s.Require().NoError(err)
	s.waitDeliveries(1)
}

func (s *MessageServiceSuite) TestModeratorMuteSilencesBothParties() {
	_, err := s.moderation.RecordAction(s.ctx, RecordActionInput{
		AdminID:  nullUUID(s.admin),
		TargetID: s.chat.ID,
		Action:   moderation.ActionChatMute,
		Reason:   "cool down",
	})
	s.Require().NoError(err)

	for _, sender := range []uuid.UUID{s.alice, s.bob} {
		_, err := s.send(sender, "hello")
		s.ErrorIs(err, sentinal_errors.ErrSenderMuted)
	}
	_, err = s.conversations.Unmute(s.ctx, s.chat.ID, s.alice)
	s.ErrorIs(err, sentinal_errors.ErrForbidden)
}

func (s *MessageServiceSuite) TestSuspendedSenderRejected() {
	_, err := s.moderation.RecordAction(s.ctx, RecordActionInput{
		AdminID:         nullUUID(s.admin),
		TargetID:        s.alice,
		Action:          moderation.ActionUserMute,
		DurationMinutes: 30,
	})
	s.Require().NoError(err)

	_, err = s.send(s.alice, "hello")
	s.ErrorIs(err, sentinal_errors.ErrSenderMuted)

	s.clock.Advance(31 * time.Minute)
	_, err = s.send(s.alice, "hello again")
	s.Require().NoError(err)
	s.waitDeliveries(1)
}

func (s *MessageServiceSuite) TestFetchZeroesUnread() {
	for _, text := range []string{"one", "two", "three"} {
		_, err := s.send(s.alice, text)
		s.Require().NoError(err)
		s.clock.Advance(time.Second)
	}
	s.waitDeliveries(3)
	s.Equal(int64(3), s.room(s.chat.ID).UnreadFor(s.bob))

	msgs, err := s.messages.FetchMessages(s.ctx, s.chat.ID, s.bob, 1, 50)
	s.Require().NoError(err)
	s.Require().Len(msgs, 3)
	s.Equal("one", msgs[0].Content)
	s.Equal("three", msgs[2].Content)
	for _, m := range msgs {
		stored, err := s.store.Messages().GetByID(s.ctx, m.ID)
		s.Require().NoError(err)
		s.True(stored.ReadAt.Valid)
	}
	s.Zero(s.room(s.chat.ID).UnreadFor(s.bob))

	_, err = s.messages.FetchMessages(s.ctx, s.chat.ID, s.bob, 1, 50)
	s.Require().NoError(err)
	s.Zero(s.room(s.chat.ID).UnreadFor(s.bob))

	_, err = s.messages.FetchMessages(s.ctx, s.chat.ID, s.carol, 1, 50)
	s.ErrorIs(err, sentinal_errors.ErrForbidden)
}

func (s *MessageServiceSuite) TestRetractHidesFromParticipantsOnly() {
	kept, err := s.send(s.alice, "hello")
	s.Require().NoError(err)
	retracted, err := s.send(s.alice, "oops wrong chat")
	s.Require().NoError(err)
	s.waitDeliveries(2)

	s.ErrorIs(s.messages.Retract(s.ctx, retracted.ID, s.bob), sentinal_errors.ErrForbidden)
	s.Require().NoError(s.messages.Retract(s.ctx, retracted.ID, s.alice))
	s.Require().NoError(s.messages.Retract(s.ctx, retracted.ID, s.alice))

	visible, err := s.messages.FetchMessages(s.ctx, s.chat.ID, s.bob, 1, 50)
	s.Require().NoError(err)
	s.Require().Len(visible, 1)
	s.Equal(kept.ID, visible[0].ID)

	review, err := s.messages.RoomMessagesForReview(s.ctx, s.chat.ID, 0)
	s.Require().NoError(err)
	s.Require().Len(review, 2)
	s.True(review[1].IsRetracted)

	s.Equal(int64(2), s.room(s.chat.ID).MessageCount)
}

func (s *MessageServiceSuite) TestDeliveryPayload() {
	msg, err := s.send(s.alice, "hello bob")
	s.Require().NoError(err)
	s.waitDeliveries(1)

	pushes := s.delivery.all()
	s.Require().Len(pushes, 1)
	s.Equal(s.bob, pushes[0].party)

	var payload DeliveryPayload
	s.Require().NoError(json.Unmarshal(pushes[0].payload, &payload))
	s.Equal(EventMessageNew, payload.Type)
	s.Equal(msg.ID, payload.MessageID)
	s.Equal(s.chat.ID, payload.RoomID)
	s.Equal("hello bob", payload.Content)
}

func (s *MessageServiceSuite) TestDeliveryFailureDoesNotFailSend() {
	s.delivery.err = sentinal_errors.ErrInternal

	msg, err := s.send(s.alice, "still stored")
	s.Require().NoError(err)
	s.waitDeliveries(1)

	stored, err := s.store.Messages().GetByID(s.ctx, msg.ID)
	s.Require().NoError(err)
	s.Equal("still stored", stored.Content)
}
