// Package storetest holds the behaviour every repository.Store has to show.
// The memory store runs it in unit tests and the postgres store under the
// integration build tag.
package storetest

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"sentinal-safety/internal/domain/block"
	"sentinal-safety/internal/domain/conversation"
	"sentinal-safety/internal/domain/message"
	"sentinal-safety/internal/domain/moderation"
	"sentinal-safety/internal/domain/report"
	"sentinal-safety/internal/repository"
	sentinal_errors "sentinal-safety/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

// StoreSuite runs against the store returned by NewStore, which is called
// once per test.
type StoreSuite struct {
	suite.Suite
	NewStore func() repository.Store

	ctx   context.Context
	store repository.Store
	now   time.Time
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.NewStore()
	s.now = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
}

func (s *StoreSuite) newRoom(a, b uuid.UUID) conversation.Room {
	key := conversation.NewKey(a, b, conversation.ContextMatrimonial, "")
	room := conversation.Room{
		ID:          uuid.New(),
		PartyA:      key.PartyA,
		PartyB:      key.PartyB,
		ContextType: key.ContextType,
		Status:      conversation.StatusActive,
		CreatedAt:   s.now,
		UpdatedAt:   s.now,
	}
	stored, created, err := s.store.Rooms().InsertOrGet(s.ctx, &room)
	s.Require().NoError(err)
	s.Require().True(created)
	return stored
}

func (s *StoreSuite) TestInsertOrGetIsIdempotent() {
	a, b := uuid.New(), uuid.New()
	first := s.newRoom(a, b)

	key := conversation.NewKey(b, a, conversation.ContextMatrimonial, "")
	dup := conversation.Room{
		ID:          uuid.New(),
		PartyA:      key.PartyA,
		PartyB:      key.PartyB,
		ContextType: key.ContextType,
		Status:      conversation.StatusActive,
		CreatedAt:   s.now,
	}
	stored, created, err := s.store.Rooms().InsertOrGet(s.ctx, &dup)
	s.Require().NoError(err)
	s.False(created)
	s.Equal(first.ID, stored.ID)

	byKey, err := s.store.Rooms().GetByKey(s.ctx, key)
	s.Require().NoError(err)
	s.Equal(first.ID, byKey.ID)
}

func (s *StoreSuite) TestConcurrentInsertOrGet() {
	a, b := uuid.New(), uuid.New()
	key := conversation.NewKey(a, b, conversation.ContextJob, "job-1")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ids     = map[uuid.UUID]bool{}
		created int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			room := conversation.Room{
				ID:          uuid.New(),
				PartyA:      key.PartyA,
				PartyB:      key.PartyB,
				ContextType: key.ContextType,
				ContextRef:  key.ContextRef,
				Status:      conversation.StatusActive,
				CreatedAt:   s.now,
			}
			stored, ok, err := s.store.Rooms().InsertOrGet(s.ctx, &room)
			s.NoError(err)
			mu.Lock()
			ids[stored.ID] = true
			if ok {
				created++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()
	s.Len(ids, 1)
	s.Equal(1, created)
}

func (s *StoreSuite) TestGetMissingRoom() {
	_, err := s.store.Rooms().GetByID(s.ctx, uuid.New())
	s.ErrorIs(err, sentinal_errors.ErrNotFound)
}

func (s *StoreSuite) TestConditionalTransition() {
	room := s.newRoom(uuid.New(), uuid.New())
	rooms := s.store.Rooms()

	changed, err := rooms.Transition(s.ctx, room.ID, []conversation.RoomStatus{conversation.StatusActive}, conversation.StatusReported, repository.RoomTransition{At: s.now})
	s.Require().NoError(err)
	s.True(changed)

	changed, err = rooms.Transition(s.ctx, room.ID, []conversation.RoomStatus{conversation.StatusActive}, conversation.StatusReported, repository.RoomTransition{At: s.now})
	s.Require().NoError(err)
	s.False(changed)

	got, err := rooms.GetByID(s.ctx, room.ID)
	s.Require().NoError(err)
	s.Equal(conversation.StatusReported, got.Status)
	s.True(got.ReportedAt.Valid)
}

func (s *StoreSuite) TestRecordMessageAndUnread() {
	a, b := uuid.New(), uuid.New()
	room := s.newRoom(a, b)

	err := s.store.WithinTx(s.ctx, func(tx repository.Store) error {
		msg := message.Message{ID: uuid.New(), RoomID: room.ID, SenderID: a, Seq: 1, Type: message.TypeText, Content: "hi", SentAt: s.now}
		if err := tx.Messages().Create(s.ctx, &msg); err != nil {
			return err
		}
		return tx.Rooms().RecordMessage(s.ctx, room.ID, msg, b)
	})
	s.Require().NoError(err)

	got, err := s.store.Rooms().GetByID(s.ctx, room.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), got.MessageCount)
	s.Equal(int64(1), got.UnreadFor(b))
	s.Zero(got.UnreadFor(a))

	n, err := s.store.Messages().MarkReadFrom(s.ctx, room.ID, a, s.now)
	s.Require().NoError(err)
	s.Equal(int64(1), n)
	s.Require().NoError(s.store.Rooms().ResetUnread(s.ctx, room.ID, b))

	got, err = s.store.Rooms().GetByID(s.ctx, room.ID)
	s.Require().NoError(err)
	s.Zero(got.UnreadFor(b))
}

func (s *StoreSuite) TestTransactionRollback() {
	a, b := uuid.New(), uuid.New()
	room := s.newRoom(a, b)
	boom := errors.New("boom")

	err := s.store.WithinTx(s.ctx, func(tx repository.Store) error {
		if _, err := tx.Rooms().Transition(s.ctx, room.ID, []conversation.RoomStatus{conversation.StatusActive}, conversation.StatusClosed, repository.RoomTransition{At: s.now}); err != nil {
			return err
		}
		ub := block.UserBlock{ID: uuid.New(), BlockerID: a, BlockedID: b, IsPermanent: true, CreatedAt: s.now}
		if err := tx.Blocks().Create(s.ctx, &ub); err != nil {
			return err
		}
		return boom
	})
	s.Require().ErrorIs(err, boom)

	got, err := s.store.Rooms().GetByID(s.ctx, room.ID)
	s.Require().NoError(err)
	s.Equal(conversation.StatusActive, got.Status)

	blocks, err := s.store.Blocks().ActiveBetween(s.ctx, a, b, s.now)
	s.Require().NoError(err)
	s.Empty(blocks)
}

func (s *StoreSuite) TestVisibleMessages() {
	a, b := uuid.New(), uuid.New()
	room := s.newRoom(a, b)
	var ids []uuid.UUID
	for i := 1; i <= 3; i++ {
		msg := message.Message{ID: uuid.New(), RoomID: room.ID, SenderID: a, Seq: int64(i), Type: message.TypeText, Content: "m", SentAt: s.now.Add(time.Duration(i) * time.Second)}
		s.Require().NoError(s.store.Messages().Create(s.ctx, &msg))
		ids = append(ids, msg.ID)
	}
	s.Require().NoError(s.store.Messages().Hide(s.ctx, ids[1], a, true))

	visible, err := s.store.Messages().ListRoomMessages(s.ctx, room.ID, 1, 10, false)
	s.Require().NoError(err)
	s.Require().Len(visible, 2)
	s.Equal(ids[2], visible[0].ID)

	all, err := s.store.Messages().ListRoomMessages(s.ctx, room.ID, 1, 10, true)
	s.Require().NoError(err)
	s.Len(all, 3)

	s.ErrorIs(s.store.Messages().Hide(s.ctx, uuid.New(), a, false), sentinal_errors.ErrNotFound)
}

func (s *StoreSuite) TestBlocksAndLift() {
	a, b := uuid.New(), uuid.New()
	temp := block.UserBlock{ID: uuid.New(), BlockerID: a, BlockedID: b, ExpiresAt: sqlTime(s.now.Add(time.Hour)), CreatedAt: s.now}
	s.Require().NoError(s.store.Blocks().Create(s.ctx, &temp))

	active, err := s.store.Blocks().ActiveBetween(s.ctx, b, a, s.now)
	s.Require().NoError(err)
	s.Len(active, 1)

	active, err = s.store.Blocks().ActiveBetween(s.ctx, a, b, s.now.Add(2*time.Hour))
	s.Require().NoError(err)
	s.Empty(active)

	lifted, err := s.store.Blocks().Lift(s.ctx, a, b, s.now)
	s.Require().NoError(err)
	s.Equal(int64(1), lifted)

	lifted, err = s.store.Blocks().Lift(s.ctx, a, b, s.now)
	s.Require().NoError(err)
	s.Zero(lifted)

	byBlocker, err := s.store.Blocks().ActiveByBlocker(s.ctx, a, s.now)
	s.Require().NoError(err)
	s.Empty(byBlocker)
}

func (s *StoreSuite) TestApplySuppression() {
	user := uuid.New()
	blocks := s.store.Blocks()
	s.Require().NoError(blocks.EnsureSuppression(s.ctx, user, s.now))
	s.Require().NoError(blocks.EnsureSuppression(s.ctx, user, s.now))

	sup, err := blocks.GetSuppression(s.ctx, user)
	s.Require().NoError(err)
	s.Equal(block.SuppressionNone, sup.Kind)

	tempBan := block.Suppression{UserID: user, Kind: block.SuppressionBan, ExpiresAt: sqlTime(s.now.Add(time.Hour))}
	applied, err := blocks.ApplySuppression(s.ctx, tempBan, s.now)
	s.Require().NoError(err)
	s.True(applied)

	s.Run("weaker sanction does not replace an active ban", func() {
		mute := block.Suppression{UserID: user, Kind: block.SuppressionMute, IsPermanent: true}
		applied, err := blocks.ApplySuppression(s.ctx, mute, s.now)
		s.Require().NoError(err)
		s.False(applied)
	})

	s.Run("permanent ban upgrades a temporary one", func() {
		perm := block.Suppression{UserID: user, Kind: block.SuppressionBan, IsPermanent: true}
		applied, err := blocks.ApplySuppression(s.ctx, perm, s.now)
		s.Require().NoError(err)
		s.True(applied)

		applied, err = blocks.ApplySuppression(s.ctx, perm, s.now)
		s.Require().NoError(err)
		s.False(applied)
	})

	cleared, err := blocks.ClearSuppression(s.ctx, user, block.SuppressionBan, s.now)
	s.Require().NoError(err)
	s.True(cleared)

	sup, err = blocks.GetSuppression(s.ctx, user)
	s.Require().NoError(err)
	s.False(sup.BannedAt(s.now))

	cleared, err = blocks.ClearSuppression(s.ctx, user, block.SuppressionBan, s.now)
	s.Require().NoError(err)
	s.False(cleared)

	_, err = blocks.GetSuppression(s.ctx, uuid.New())
	s.ErrorIs(err, sentinal_errors.ErrNotFound)
}

func (s *StoreSuite) TestReportQueries() {
	a, b := uuid.New(), uuid.New()
	room := s.newRoom(a, b)
	rep := report.Report{ID: uuid.New(), RoomID: room.ID, ReporterID: a, ReportedID: b, Type: report.TypeScam, Status: report.StatusPending, CreatedAt: s.now, UpdatedAt: s.now}
	s.Require().NoError(s.store.Reports().Create(s.ctx, &rep))

	latest, err := s.store.Reports().LatestNonDismissed(s.ctx, room.ID, a, s.now.Add(-24*time.Hour))
	s.Require().NoError(err)
	s.Equal(rep.ID, latest.ID)

	_, err = s.store.Reports().LatestNonDismissed(s.ctx, room.ID, b, s.now.Add(-24*time.Hour))
	s.ErrorIs(err, sentinal_errors.ErrNotFound)

	open, err := s.store.Reports().CountOpenForRoom(s.ctx, room.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), open)

	changed, err := s.store.Reports().UpdateStatus(s.ctx, rep.ID, []report.Status{report.StatusPending}, report.StatusDismissed, repository.ReportResolution{At: s.now, Action: "none"})
	s.Require().NoError(err)
	s.True(changed)

	changed, err = s.store.Reports().UpdateStatus(s.ctx, rep.ID, []report.Status{report.StatusPending}, report.StatusResolved, repository.ReportResolution{At: s.now})
	s.Require().NoError(err)
	s.False(changed)

	open, err = s.store.Reports().CountOpenForRoom(s.ctx, room.ID)
	s.Require().NoError(err)
	s.Zero(open)

	_, err = s.store.Reports().LatestNonDismissed(s.ctx, room.ID, a, s.now.Add(-24*time.Hour))
	s.ErrorIs(err, sentinal_errors.ErrNotFound)

	byStatus, err := s.store.Reports().CountByStatus(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), byStatus[report.StatusDismissed])
}

func (s *StoreSuite) TestStrikeLedger() {
	user := uuid.New()
	for i := 0; i < 3; i++ {
		e := moderation.LogEntry{
			ID:            uuid.New(),
			TargetType:    moderation.TargetUser,
			TargetID:      user,
			SubjectUserID: uuid.NullUUID{UUID: user, Valid: true},
			Action:        moderation.ActionUserWarn,
			StrikeCount:   i + 1,
			AppealStatus:  moderation.AppealNone,
			CreatedAt:     s.now.Add(time.Duration(i) * time.Minute),
		}
		s.Require().NoError(s.store.Moderation().Create(s.ctx, &e))
	}

	strikes, err := s.store.Moderation().CountStrikes(s.ctx, user)
	s.Require().NoError(err)
	s.Equal(int64(3), strikes)

	superseded, err := s.store.Moderation().SupersedeStrikes(s.ctx, user, 1)
	s.Require().NoError(err)
	s.Equal(int64(2), superseded)

	strikes, err = s.store.Moderation().CountStrikes(s.ctx, user)
	s.Require().NoError(err)
	s.Equal(int64(1), strikes)

	entries, err := s.store.Moderation().ListForUser(s.ctx, user, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	s.Equal(3, entries[0].StrikeCount)
	s.False(entries[0].IsSuperseded)

	filed, err := s.store.Moderation().FileAppeal(s.ctx, entries[0].ID, "please", s.now)
	s.Require().NoError(err)
	s.True(filed)
	filed, err = s.store.Moderation().FileAppeal(s.ctx, entries[0].ID, "again", s.now)
	s.Require().NoError(err)
	s.False(filed)

	resolved, err := s.store.Moderation().ResolveAppeal(s.ctx, entries[0].ID, moderation.AppealUpheld, uuid.New(), "", s.now)
	s.Require().NoError(err)
	s.True(resolved)
}

func sqlTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: true}
}
