package services

import (
	"testing"
	"time"

	"sentinal-safety/internal/domain/conversation"
	"sentinal-safety/internal/repository"
	sentinal_errors "sentinal-safety/pkg/errors"

	"github.com/stretchr/testify/suite"
)

type BlockServiceSuite struct {
	ServiceSuite
}

func TestBlockService(t *testing.T) {
	suite.Run(t, new(BlockServiceSuite))
}

func (s *BlockServiceSuite) TestBlockMovesEveryRoomOfThePair() {
	job, err := s.conversations.OpenConversation(s.ctx, OpenConversationInput{Initiator: s.alice, OtherParty: s.bob, Context: conversation.ContextJob, ContextRef: "j1"})
	s.Require().NoError(err)
	match := s.openRoom(s.alice, s.bob)
	unrelated := s.openRoom(s.alice, s.carol)

	ub, err := s.blocks.Block(s.ctx, BlockInput{BlockerID: s.alice, BlockedID: s.bob, Reason: "rude"})
	s.Require().NoError(err)
	s.True(ub.IsPermanent)

	for _, id := range []conversation.Room{job.Room, match} {
		room := s.room(id.ID)
		s.Equal(conversation.StatusBlocked, room.Status)
		s.Equal(s.alice, room.BlockedBy.UUID)
	}
	s.Equal(conversation.StatusActive, s.room(unrelated.ID).Status)

	blocked, err := s.blocks.IsBlocked(s.ctx, s.bob, s.alice)
	s.Require().NoError(err)
	s.True(blocked)
}

func (s *BlockServiceSuite) TestBlockIsIdempotent() {
	first, err := s.blocks.Block(s.ctx, BlockInput{BlockerID: s.alice, BlockedID: s.bob})
	s.Require().NoError(err)
	second, err := s.blocks.Block(s.ctx, BlockInput{BlockerID: s.alice, BlockedID: s.bob})
	s.Require().NoError(err)
	s.Equal(first.ID, second.ID)

	list, err := s.blocks.ListBlocks(s.ctx, s.alice)
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *BlockServiceSuite) TestBlockValidation() {
	_, err := s.blocks.Block(s.ctx, BlockInput{BlockerID: s.alice, BlockedID: s.alice})
	s.ErrorIs(err, sentinal_errors.ErrInvalidInput)

	_, err = s.blocks.Block(s.ctx, BlockInput{BlockerID: s.alice, BlockedID: s.bob, Duration: -time.Minute})
	s.ErrorIs(err, sentinal_errors.ErrInvalidInput)

	s.ErrorIs(s.blocks.Unblock(s.ctx, s.alice, s.alice), sentinal_errors.ErrInvalidInput)
}

func (s *BlockServiceSuite) TestUnblockRestoresRooms() {
	room := s.openRoom(s.alice, s.bob)
	_, err := s.blocks.Block(s.ctx, BlockInput{BlockerID: s.alice, BlockedID: s.bob})
	s.Require().NoError(err)

	s.Require().NoError(s.blocks.Unblock(s.ctx, s.alice, s.bob))

	restored := s.room(room.ID)
	s.Equal(conversation.StatusActive, restored.Status)
	s.False(restored.BlockedBy.Valid)

	blocked, err := s.blocks.IsBlocked(s.ctx, s.alice, s.bob)
	s.Require().NoError(err)
	s.False(blocked)
}

func (s *BlockServiceSuite) TestUnblockKeepsRoomsWhileReverseBlockRemains() {
	room := s.openRoom(s.alice, s.bob)
	_, err := s.blocks.Block(s.ctx, BlockInput{BlockerID: s.alice, BlockedID: s.bob})
	s.Require().NoError(err)
	_, err = s.blocks.Block(s.ctx, BlockInput{BlockerID: s.bob, BlockedID: s.alice})
	s.Require().NoError(err)

	s.Require().NoError(s.blocks.Unblock(s.ctx, s.alice, s.bob))
	s.Equal(conversation.StatusBlocked, s.room(room.ID).Status)

	s.Require().NoError(s.blocks.Unblock(s.ctx, s.bob, s.alice))
	s.Equal(conversation.StatusActive, s.room(room.ID).Status)
}

func (s *BlockServiceSuite) TestUnblockWithoutBlockIsNoop() {
	room := s.openRoom(s.alice, s.bob)
	_, err := s.conversations.Mute(s.ctx, room.ID, s.alice)
	s.Require().NoError(err)

	s.Require().NoError(s.blocks.Unblock(s.ctx, s.alice, s.bob))
	s.Equal(conversation.StatusMuted, s.room(room.ID).Status)
}

func (s *BlockServiceSuite) TestClosedRoomsStayClosed() {
	room := s.openRoom(s.alice, s.bob)
	_, err := s.conversations.Close(s.ctx, room.ID, nullUUID(s.admin), "policy")
	s.Require().NoError(err)

	_, err = s.blocks.Block(s.ctx, BlockInput{BlockerID: s.alice, BlockedID: s.bob})
	s.Require().NoError(err)
	s.Equal(conversation.StatusClosed, s.room(room.ID).Status)

	s.Require().NoError(s.blocks.Unblock(s.ctx, s.alice, s.bob))
	s.Equal(conversation.StatusClosed, s.room(room.ID).Status)
}

func (s *BlockServiceSuite) TestTemporaryBlockExpires() {
	room := s.openRoom(s.alice, s.bob)
	_, err := s.blocks.Block(s.ctx, BlockInput{BlockerID: s.alice, BlockedID: s.bob, Duration: time.Hour})
	s.Require().NoError(err)

	blocked, err := s.blocks.IsBlocked(s.ctx, s.alice, s.bob)
	s.Require().NoError(err)
	s.True(blocked)
	_, err = s.messages.Send(s.ctx, SendInput{RoomID: room.ID, SenderID: s.alice, Content: "hi"})
	s.ErrorIs(err, sentinal_errors.ErrRoomInactive)

	s.clock.Advance(time.Hour + time.Second)
	blocked, err = s.blocks.IsBlocked(s.ctx, s.alice, s.bob)
	s.Require().NoError(err)
	s.False(blocked)

	msg, err := s.messages.Send(s.ctx, SendInput{RoomID: room.ID, SenderID: s.alice, Content: "hi again"})
	s.Require().NoError(err)
	s.Equal(room.ID, msg.RoomID)

	restored := s.room(room.ID)
	s.Equal(conversation.StatusActive, restored.Status)
	s.False(restored.BlockedBy.Valid)
}

func (s *BlockServiceSuite) TestReopenAfterTemporaryBlockExpires() {
	room := s.openRoom(s.alice, s.bob)
	_, err := s.blocks.Block(s.ctx, BlockInput{BlockerID: s.bob, BlockedID: s.alice, Duration: time.Hour})
	s.Require().NoError(err)

	_, err = s.conversations.OpenConversation(s.ctx, OpenConversationInput{Initiator: s.alice, OtherParty: s.bob, Context: conversation.ContextMatrimonial, ContextRef: "profile-match"})
	s.ErrorIs(err, sentinal_errors.ErrPartiesBlocked)

	s.clock.Advance(2 * time.Hour)
	res, err := s.conversations.OpenConversation(s.ctx, OpenConversationInput{
		Initiator:      s.alice,
		OtherParty:     s.bob,
		Context:        conversation.ContextMatrimonial,
		ContextRef:     "profile-match",
		InitialMessage: "hello again",
	})
	s.Require().NoError(err)
	s.False(res.Created)
	s.Equal(room.ID, res.Room.ID)
	s.Equal(conversation.StatusActive, res.Room.Status)
	s.Require().NotNil(res.InitialMessage)
}

func (s *BlockServiceSuite) TestTemporaryAdminBlockExpires() {
	room := s.openRoom(s.alice, s.bob)
	_, err := s.blocks.AdminBlock(s.ctx, s.admin, s.alice, s.bob, 30*time.Minute, "cooling off")
	s.Require().NoError(err)

	s.clock.Advance(31 * time.Minute)
	_, err = s.messages.Send(s.ctx, SendInput{RoomID: room.ID, SenderID: s.bob, Content: "sorry"})
	s.Require().NoError(err)
	s.Equal(conversation.StatusActive, s.room(room.ID).Status)
}

func (s *BlockServiceSuite) TestAdminBlockIsMutual() {
	room := s.openRoom(s.alice, s.bob)

	blocks, err := s.blocks.AdminBlock(s.ctx, s.admin, s.alice, s.bob, 0, "harassment investigation")
	s.Require().NoError(err)
	s.Require().Len(blocks, 2)
	for _, b := range blocks {
		s.Equal(s.admin, b.AdminID.UUID)
	}

	blocked := s.room(room.ID)
	s.Equal(conversation.StatusBlocked, blocked.Status)
	s.Equal(s.admin, blocked.BlockedBy.UUID)

	s.Require().NoError(s.blocks.Unblock(s.ctx, s.alice, s.bob))
	s.Equal(conversation.StatusBlocked, s.room(room.ID).Status)
}

func (s *BlockServiceSuite) TestBlockAndUnblockKeepReportedRoom() {
	room := s.openRoom(s.alice, s.bob)
	_, err := s.store.Rooms().Transition(s.ctx, room.ID,
		[]conversation.RoomStatus{conversation.StatusActive}, conversation.StatusReported,
		repository.RoomTransition{At: s.clock.Now()})
	s.Require().NoError(err)

	_, err = s.blocks.Block(s.ctx, BlockInput{BlockerID: s.bob, BlockedID: s.alice})
	s.Require().NoError(err)
	s.Equal(conversation.StatusReported, s.room(room.ID).Status)

	_, err = s.messages.Send(s.ctx, SendInput{RoomID: room.ID, SenderID: s.bob, Content: "still here?"})
	s.ErrorIs(err, sentinal_errors.ErrRoomInactive)

	s.Require().NoError(s.blocks.Unblock(s.ctx, s.bob, s.alice))
	s.Equal(conversation.StatusReported, s.room(room.ID).Status)
}

func (s *BlockServiceSuite) TestBlockAndUnblockKeepMutedRoom() {
	room := s.openRoom(s.alice, s.bob)
	_, err := s.conversations.Mute(s.ctx, room.ID, s.alice)
	s.Require().NoError(err)

	_, err = s.blocks.Block(s.ctx, BlockInput{BlockerID: s.bob, BlockedID: s.alice})
	s.Require().NoError(err)
	s.Equal(conversation.StatusMuted, s.room(room.ID).Status)

	_, err = s.messages.Send(s.ctx, SendInput{RoomID: room.ID, SenderID: s.bob, Content: "hello"})
	s.ErrorIs(err, sentinal_errors.ErrRoomInactive)

	s.Require().NoError(s.blocks.Unblock(s.ctx, s.bob, s.alice))
	muted := s.room(room.ID)
	s.Equal(conversation.StatusMuted, muted.Status)
	s.Equal(s.alice, muted.MutedBy.UUID)

	_, err = s.messages.Send(s.ctx, SendInput{RoomID: room.ID, SenderID: s.alice, Content: "hello"})
	s.ErrorIs(err, sentinal_errors.ErrSenderMuted)
}
