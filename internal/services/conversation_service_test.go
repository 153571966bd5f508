package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"sentinal-safety/internal/domain/conversation"
	sentinal_errors "sentinal-safety/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type ConversationServiceSuite struct {
	ServiceSuite
}

func TestConversationService(t *testing.T) {
	suite.Run(t, new(ConversationServiceSuite))
}

func (s *ConversationServiceSuite) TestOpenNormalizesPair() {
	first, err := s.conversations.OpenConversation(s.ctx, OpenConversationInput{
		Initiator:  s.alice,
		OtherParty: s.bob,
		Context:    conversation.ContextJob,
		ContextRef: " job-42 ",
	})
	s.Require().NoError(err)
	s.True(first.Created)
	s.Equal("job-42", first.Room.ContextRef)
	s.Equal(conversation.StatusActive, first.Room.Status)
	s.True(first.Room.PartyA.String() < first.Room.PartyB.String())

	second, err := s.conversations.OpenConversation(s.ctx, OpenConversationInput{
		Initiator:  s.bob,
		OtherParty: s.alice,
		Context:    conversation.ContextJob,
		ContextRef: "job-42",
	})
	s.Require().NoError(err)
	s.False(second.Created)
	s.Equal(first.Room.ID, second.Room.ID)
}

func (s *ConversationServiceSuite) TestContextsAreDistinctRooms() {
	job := s.openRoomIn(conversation.ContextJob, "ref")
	business := s.openRoomIn(conversation.ContextBusiness, "ref")
	otherRef := s.openRoomIn(conversation.ContextJob, "other")

	s.NotEqual(job.ID, business.ID)
	s.NotEqual(job.ID, otherRef.ID)
}

func (s *ConversationServiceSuite) TestConcurrentOpenYieldsOneRoom() {
	const workers = 16
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = map[uuid.UUID]int{}
	)
	created := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := s.alice, s.bob
			if i%2 == 1 {
				a, b = b, a
			}
			res, err := s.conversations.OpenConversation(s.ctx, OpenConversationInput{
				Initiator:  a,
				OtherParty: b,
				Context:    conversation.ContextMatrimonial,
			})
			s.NoError(err)
			mu.Lock()
			ids[res.Room.ID]++
			if res.Created {
				created++
			}
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	s.Len(ids, 1)
	s.Equal(1, created)
}

func (s *ConversationServiceSuite) TestOpenValidation() {
	s.Run("self conversation", func() {
		_, err := s.conversations.OpenConversation(s.ctx, OpenConversationInput{
			Initiator:  s.alice,
			OtherParty: s.alice,
			Context:    conversation.ContextJob,
		})
		s.Require().ErrorIs(err, sentinal_errors.ErrSelfConversation)
		s.ErrorIs(err, sentinal_errors.ErrInvalidInput)
	})

	s.Run("unknown context", func() {
		_, err := s.conversations.OpenConversation(s.ctx, OpenConversationInput{
			Initiator:  s.alice,
			OtherParty: s.bob,
			Context:    "dating",
		})
		s.Require().ErrorIs(err, sentinal_errors.ErrInvalidInput)
	})

	s.Run("missing party", func() {
		_, err := s.conversations.OpenConversation(s.ctx, OpenConversationInput{
			Initiator: s.alice,
			Context:   conversation.ContextJob,
		})
		s.Require().ErrorIs(err, sentinal_errors.ErrInvalidInput)
	})
}

func (s *ConversationServiceSuite) TestOpenRejectedByGate() {
	s.gate.deny[conversation.ContextBusiness] = "no active inquiry"

	_, err := s.conversations.OpenConversation(s.ctx, OpenConversationInput{
		Initiator:  s.alice,
		OtherParty: s.bob,
		Context:    conversation.ContextBusiness,
		ContextRef: "inquiry-7",
	})
	s.Require().ErrorIs(err, sentinal_errors.ErrIneligibleContext)
	s.Contains(err.Error(), "no active inquiry")

	rooms, total, err := s.conversations.ListConversations(s.ctx, s.alice, 1, 20)
	s.Require().NoError(err)
	s.Empty(rooms)
	s.Zero(total)
}

func (s *ConversationServiceSuite) TestGateFailureIsInternal() {
	s.gate.err = errors.New("profiles module unreachable")

	_, err := s.conversations.OpenConversation(s.ctx, OpenConversationInput{
		Initiator:  s.alice,
		OtherParty: s.bob,
		Context:    conversation.ContextJob,
	})
	s.Require().ErrorIs(err, sentinal_errors.ErrInternal)
}

func (s *ConversationServiceSuite) TestOpenBlockedPairFails() {
	_, err := s.blocks.Block(s.ctx, BlockInput{BlockerID: s.bob, BlockedID: s.alice})
	s.Require().NoError(err)

	_, err = s.conversations.OpenConversation(s.ctx, OpenConversationInput{
		Initiator:  s.alice,
		OtherParty: s.bob,
		Context:    conversation.ContextJob,
	})
	s.Require().ErrorIs(err, sentinal_errors.ErrPartiesBlocked)
	s.Zero(s.gate.checks)
}

func (s *ConversationServiceSuite) TestOpenWithBannedPartyFails() {
	_, err := s.moderation.BanPermanently(s.ctx, s.bob, s.admin, "fraud")
	s.Require().NoError(err)

	_, err = s.conversations.OpenConversation(s.ctx, OpenConversationInput{
		Initiator:  s.alice,
		OtherParty: s.bob,
		Context:    conversation.ContextJob,
	})
	s.Require().ErrorIs(err, sentinal_errors.ErrPartiesBlocked)
}

func (s *ConversationServiceSuite) TestOpenWithInitialMessage() {
	res, err := s.conversations.OpenConversation(s.ctx, OpenConversationInput{
		Initiator:      s.alice,
		OtherParty:     s.bob,
		Context:        conversation.ContextMatrimonial,
		InitialMessage: "Namaste, I liked your profile",
	})
	s.Require().NoError(err)
	s.Require().NotNil(res.InitialMessage)
	s.Equal(int64(1), res.InitialMessage.Seq)
	s.Equal(int64(1), res.Room.MessageCount)
	s.Equal(int64(1), res.Room.UnreadFor(s.bob))
	s.Zero(res.Room.UnreadFor(s.alice))
	s.waitDeliveries(1)
}

func (s *ConversationServiceSuite) TestListAndGet() {
	withBob := s.openRoom(s.alice, s.bob)
	s.clock.Advance(time.Minute)
	withCarol := s.openRoom(s.alice, s.carol)

	_, err := s.messages.Send(s.ctx, SendInput{RoomID: withBob.ID, SenderID: s.bob, Content: "hello"})
	s.Require().NoError(err)
	s.waitDeliveries(1)

	list, total, err := s.conversations.ListConversations(s.ctx, s.alice, 1, 20)
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Require().Len(list, 2)
	s.Equal(withBob.ID, list[0].Room.ID)
	s.Equal(s.bob, list[0].OtherParty)
	s.Equal(int64(1), list[0].Unread)
	s.Equal(withCarol.ID, list[1].Room.ID)

	_, err = s.conversations.GetConversation(s.ctx, withBob.ID, s.carol)
	s.ErrorIs(err, sentinal_errors.ErrForbidden)

	_, err = s.conversations.GetConversation(s.ctx, uuid.New(), s.alice)
	s.ErrorIs(err, sentinal_errors.ErrNotFound)
}

func (s *ConversationServiceSuite) TestMuteAndUnmute() {
	room := s.openRoom(s.alice, s.bob)

	muted, err := s.conversations.Mute(s.ctx, room.ID, s.alice)
	s.Require().NoError(err)
	s.Equal(conversation.StatusMuted, muted.Status)
	s.Equal(s.alice, muted.MutedBy.UUID)

	s.Run("only the muter can unmute", func() {
		_, err := s.conversations.Unmute(s.ctx, room.ID, s.bob)
		s.ErrorIs(err, sentinal_errors.ErrForbidden)
	})

	s.Run("muting again is a no-op", func() {
		again, err := s.conversations.Mute(s.ctx, room.ID, s.alice)
		s.Require().NoError(err)
		s.Equal(conversation.StatusMuted, again.Status)
	})

	unmuted, err := s.conversations.Unmute(s.ctx, room.ID, s.alice)
	s.Require().NoError(err)
	s.Equal(conversation.StatusActive, unmuted.Status)
	s.False(unmuted.MutedBy.Valid)

	s.Run("outsider cannot mute", func() {
		_, err := s.conversations.Mute(s.ctx, room.ID, s.carol)
		s.ErrorIs(err, sentinal_errors.ErrForbidden)
	})
}

func (s *ConversationServiceSuite) TestCloseIsTerminal() {
	room := s.openRoom(s.alice, s.bob)

	closed, err := s.conversations.Close(s.ctx, room.ID, nullUUID(s.admin), "policy")
	s.Require().NoError(err)
	s.Equal(conversation.StatusClosed, closed.Status)
	s.Equal("policy", closed.CloseReason)

	_, err = s.conversations.Close(s.ctx, room.ID, nullUUID(s.admin), "again")
	s.Require().NoError(err)

	_, err = s.conversations.Mute(s.ctx, room.ID, s.alice)
	s.ErrorIs(err, sentinal_errors.ErrInvalidTransition)

	moved, err := s.conversations.MarkBlocked(s.ctx, s.alice, s.bob, nullUUID(s.alice))
	s.Require().NoError(err)
	s.Zero(moved)
	s.Equal(conversation.StatusClosed, s.room(room.ID).Status)
}

func (s *ConversationServiceSuite) openRoomIn(ct conversation.ContextType, ref string) conversation.Room {
	res, err := s.conversations.OpenConversation(s.ctx, OpenConversationInput{
		Initiator:  s.alice,
		OtherParty: s.bob,
		Context:    ct,
		ContextRef: ref,
	})
	s.Require().NoError(err)
	return res.Room
}
