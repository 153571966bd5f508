package services

import (
	"strings"
	"sync"
	"testing"
	"time"

	"sentinal-safety/config"
	"sentinal-safety/internal/domain/conversation"
	"sentinal-safety/internal/domain/moderation"
	"sentinal-safety/internal/domain/report"
	sentinal_errors "sentinal-safety/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type ReportServiceSuite struct {
	ServiceSuite
	chat conversation.Room
}

func TestReportService(t *testing.T) {
	suite.Run(t, new(ReportServiceSuite))
}

func (s *ReportServiceSuite) SetupTest() {
	s.ServiceSuite.SetupTest()
	s.chat = s.openRoom(s.alice, s.bob)
}

func (s *ReportServiceSuite) file(reporter uuid.UUID, reportType report.Type) (FileReportResult, error) {
	return s.reports.FileReport(s.ctx, FileReportInput{
		RoomID:      s.chat.ID,
		ReporterID:  reporter,
		ReportedID:  s.chat.OtherParty(reporter),
		Type:        reportType,
		Description: "asked for money",
	})
}

func (s *ReportServiceSuite) TestFileReport() {
	res, err := s.file(s.alice, report.TypeScam)
	s.Require().NoError(err)
	s.False(res.Escalated)
	s.Equal(report.StatusPending, res.Report.Status)
	s.Equal(s.bob, res.Report.ReportedID)
	s.Equal(1, s.events.count(EventReportFiled))
}

func (s *ReportServiceSuite) TestFileReportValidation() {
	s.Run("unknown type", func() {
		_, err := s.file(s.alice, "catfishing")
		s.ErrorIs(err, sentinal_errors.ErrInvalidInput)
	})
	s.Run("reporting yourself", func() {
		_, err := s.reports.FileReport(s.ctx, FileReportInput{RoomID: s.chat.ID, ReporterID: s.alice, ReportedID: s.alice, Type: report.TypeSpam})
		s.ErrorIs(err, sentinal_errors.ErrInvalidInput)
	})
	s.Run("outsider", func() {
		_, err := s.reports.FileReport(s.ctx, FileReportInput{RoomID: s.chat.ID, ReporterID: s.carol, ReportedID: s.bob, Type: report.TypeSpam})
		s.ErrorIs(err, sentinal_errors.ErrForbidden)
	})
	s.Run("reported party not in room", func() {
		_, err := s.reports.FileReport(s.ctx, FileReportInput{RoomID: s.chat.ID, ReporterID: s.alice, ReportedID: s.carol, Type: report.TypeSpam})
		s.ErrorIs(err, sentinal_errors.ErrInvalidInput)
	})
	s.Run("description too long", func() {
		_, err := s.reports.FileReport(s.ctx, FileReportInput{
			RoomID:      s.chat.ID,
			ReporterID:  s.alice,
			ReportedID:  s.bob,
			Type:        report.TypeSpam,
			Description: strings.Repeat("x", maxDescriptionLength+1),
		})
		s.ErrorIs(err, sentinal_errors.ErrInvalidInput)
	})
	s.Run("message from another room", func() {
		other := s.openRoom(s.alice, s.carol)
		msg, err := s.messages.Send(s.ctx, SendInput{RoomID: other.ID, SenderID: s.carol, Content: "hi"})
		s.Require().NoError(err)
		s.waitDeliveries(1)

		_, err = s.reports.FileReport(s.ctx, FileReportInput{
			RoomID:     s.chat.ID,
			MessageID:  nullUUID(msg.ID),
			ReporterID: s.alice,
			ReportedID: s.bob,
			Type:       report.TypeHarassment,
		})
		s.ErrorIs(err, sentinal_errors.ErrInvalidInput)
	})
	s.Run("evidence of another reporter", func() {
		_, err := s.reports.FileReport(s.ctx, FileReportInput{
			RoomID:      s.chat.ID,
			ReporterID:  s.alice,
			ReportedID:  s.bob,
			Type:        report.TypeHarassment,
			EvidenceKey: evidenceKeyPrefix(s.carol) + "shot.png",
		})
		s.ErrorIs(err, sentinal_errors.ErrInvalidInput)
	})
}

func (s *ReportServiceSuite) TestDuplicateReportWithinCooldown() {
	_, err := s.file(s.alice, report.TypeSpam)
	s.Require().NoError(err)

	s.clock.Advance(23 * time.Hour)
	_, err = s.file(s.alice, report.TypeHarassment)
	s.Require().ErrorIs(err, sentinal_errors.ErrDuplicateReport)
	s.ErrorIs(err, sentinal_errors.ErrRateLimited)

	s.clock.Advance(time.Hour + time.Second)
	_, err = s.file(s.alice, report.TypeHarassment)
	s.Require().NoError(err)
}

func (s *ReportServiceSuite) TestDismissedReportDoesNotBlockRefiling() {
	first, err := s.file(s.alice, report.TypeSpam)
	s.Require().NoError(err)
	_, err = s.reports.Dismiss(s.ctx, first.Report.ID, s.admin, "not spam")
	s.Require().NoError(err)

	_, err = s.file(s.alice, report.TypeScam)
	s.Require().NoError(err)
}

func (s *ReportServiceSuite) TestEscalatesAtThreshold() {
	res, err := s.file(s.alice, report.TypeSpam)
	s.Require().NoError(err)
	s.False(res.Escalated)

	res, err = s.file(s.bob, report.TypeHarassment)
	s.Require().NoError(err)
	s.False(res.Escalated)

	s.clock.Advance(25 * time.Hour)
	res, err = s.file(s.alice, report.TypeScam)
	s.Require().NoError(err)
	s.True(res.Escalated)

	room := s.room(s.chat.ID)
	s.Equal(conversation.StatusReported, room.Status)
	s.True(room.ReportedAt.Valid)
	s.Equal(1, s.events.count(EventRoomEscalated))

	s.clock.Advance(25 * time.Hour)
	res, err = s.file(s.bob, report.TypeScam)
	s.Require().NoError(err)
	s.False(res.Escalated)
}

func (s *ReportServiceSuite) TestDismissedReportsDoNotCountTowardEscalation() {
	first, err := s.file(s.alice, report.TypeSpam)
	s.Require().NoError(err)
	_, err = s.file(s.bob, report.TypeSpam)
	s.Require().NoError(err)
	_, err = s.reports.Dismiss(s.ctx, first.Report.ID, s.admin, "")
	s.Require().NoError(err)

	res, err := s.file(s.alice, report.TypeSpam)
	s.Require().NoError(err)
	s.False(res.Escalated)
	s.Equal(conversation.StatusActive, s.room(s.chat.ID).Status)
}

func (s *ReportServiceSuite) TestReportOnBlockedRoomDoesNotEscalate() {
	_, err := s.blocks.Block(s.ctx, BlockInput{BlockerID: s.alice, BlockedID: s.bob})
	s.Require().NoError(err)

	for i, reporter := range []uuid.UUID{s.alice, s.bob, s.alice} {
		if i == 2 {
			s.clock.Advance(25 * time.Hour)
		}
		res, err := s.file(reporter, report.TypeHarassment)
		s.Require().NoError(err)
		s.False(res.Escalated)
	}
	s.Equal(conversation.StatusBlocked, s.room(s.chat.ID).Status)
}

func (s *ReportServiceSuite) TestInvestigateResolveDismiss() {
	filed, err := s.file(s.alice, report.TypeSpam)
	s.Require().NoError(err)
	id := filed.Report.ID

	rep, err := s.reports.StartInvestigation(s.ctx, id, s.admin)
	s.Require().NoError(err)
	s.Equal(report.StatusInvestigating, rep.Status)

	rep, err = s.reports.StartInvestigation(s.ctx, id, s.admin)
	s.Require().NoError(err)
	s.Equal(report.StatusInvestigating, rep.Status)

	resolved, err := s.reports.Resolve(s.ctx, ResolveReportInput{ReportID: id, AdminID: s.admin, Notes: "talked to them"})
	s.Require().NoError(err)
	s.Equal(report.StatusResolved, resolved.Report.Status)
	s.Nil(resolved.Moderation)
	s.Equal(resolutionNone, resolved.Report.ResolutionAction)

	_, err = s.reports.Resolve(s.ctx, ResolveReportInput{ReportID: id, AdminID: s.admin})
	s.ErrorIs(err, sentinal_errors.ErrReportClosed)
	_, err = s.reports.Dismiss(s.ctx, id, s.admin, "")
	s.ErrorIs(err, sentinal_errors.ErrReportClosed)
	_, err = s.reports.StartInvestigation(s.ctx, id, s.admin)
	s.ErrorIs(err, sentinal_errors.ErrReportClosed)
}

func (s *ReportServiceSuite) TestResolveWithActionRecordsStrike() {
	filed, err := s.file(s.alice, report.TypeHarassment)
	s.Require().NoError(err)

	resolved, err := s.reports.Resolve(s.ctx, ResolveReportInput{
		ReportID: filed.Report.ID,
		AdminID:  s.admin,
		Action:   moderation.ActionChatWarning,
		Notes:    "first warning",
	})
	s.Require().NoError(err)
	s.Require().NotNil(resolved.Moderation)

	entry := resolved.Moderation.Entry
	s.Equal(moderation.ActionChatWarning, entry.Action)
	s.Equal(s.chat.ID, entry.TargetID)
	s.Equal(s.bob, entry.SubjectUserID.UUID)
	s.Equal(filed.Report.ID, entry.ReportID.UUID)
	s.Equal(1, entry.StrikeCount)

	s.Equal(string(moderation.ActionChatWarning), resolved.Report.ResolutionAction)
	s.Equal(entry.ID, resolved.Report.LogEntryID.UUID)
}

func (s *ReportServiceSuite) TestResolveFailureLeavesReportOpen() {
	filed, err := s.file(s.alice, report.TypeHarassment)
	s.Require().NoError(err)

	_, err = s.reports.Resolve(s.ctx, ResolveReportInput{
		ReportID: filed.Report.ID,
		AdminID:  s.admin,
		Action:   moderation.ActionMessageHide,
	})
	s.Require().ErrorIs(err, sentinal_errors.ErrInvalidInput)

	rep, err := s.store.Reports().GetByID(s.ctx, filed.Report.ID)
	s.Require().NoError(err)
	s.Equal(report.StatusPending, rep.Status)
}

func (s *ReportServiceSuite) TestResolveRejectsNonPunitiveAction() {
	filed, err := s.file(s.alice, report.TypeHarassment)
	s.Require().NoError(err)

	_, err = s.reports.Resolve(s.ctx, ResolveReportInput{
		ReportID: filed.Report.ID,
		AdminID:  s.admin,
		Action:   moderation.ActionUserUnban,
	})
	s.Require().ErrorIs(err, sentinal_errors.ErrInvalidInput)
	s.NotErrorIs(err, sentinal_errors.ErrUnknownAction)

	rep, err := s.store.Reports().GetByID(s.ctx, filed.Report.ID)
	s.Require().NoError(err)
	s.Equal(report.StatusPending, rep.Status)

	history, err := s.moderation.UserHistory(s.ctx, s.bob, 0)
	s.Require().NoError(err)
	s.Empty(history.Entries)
}

func (s *ReportServiceSuite) TestReportDetailIncludesHiddenMessages() {
	msg, err := s.messages.Send(s.ctx, SendInput{RoomID: s.chat.ID, SenderID: s.bob, Content: "send me 5000 on paytm"})
	s.Require().NoError(err)
	s.waitDeliveries(1)
	s.Require().NoError(s.messages.Retract(s.ctx, msg.ID, s.bob))

	filed, err := s.reports.FileReport(s.ctx, FileReportInput{
		RoomID:     s.chat.ID,
		MessageID:  nullUUID(msg.ID),
		ReporterID: s.alice,
		ReportedID: s.bob,
		Type:       report.TypeScam,
	})
	s.Require().NoError(err)

	detail, err := s.reports.GetReportDetail(s.ctx, filed.Report.ID, 10)
	s.Require().NoError(err)
	s.Equal(s.chat.ID, detail.Room.ID)
	s.Require().Len(detail.Messages, 1)
	s.True(detail.Messages[0].IsRetracted)
}

func (s *ReportServiceSuite) TestListAndAggregates() {
	other := s.openRoom(s.carol, s.bob)
	_, err := s.file(s.alice, report.TypeScam)
	s.Require().NoError(err)
	_, err = s.reports.FileReport(s.ctx, FileReportInput{RoomID: other.ID, ReporterID: s.carol, ReportedID: s.bob, Type: report.TypeScam})
	s.Require().NoError(err)
	_, err = s.file(s.bob, report.TypeSpam)
	s.Require().NoError(err)

	list, total, err := s.reports.ListReports(s.ctx, report.Filter{Type: report.TypeScam}, 1, 20)
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Len(list, 2)

	_, _, err = s.reports.ListReports(s.ctx, report.Filter{Status: "open"}, 1, 20)
	s.ErrorIs(err, sentinal_errors.ErrInvalidInput)

	frequent, err := s.reports.FrequentlyReported(s.ctx, 2, 10)
	s.Require().NoError(err)
	s.Require().Len(frequent, 1)
	s.Equal(s.bob, frequent[0].UserID)
	s.Equal(int64(2), frequent[0].ReportCount)

	counts, err := s.reports.CountsByType(s.ctx, 0)
	s.Require().NoError(err)
	byType := map[report.Type]int64{}
	for _, c := range counts {
		byType[c.Type] = c.Count
	}
	s.Equal(int64(2), byType[report.TypeScam])
	s.Equal(int64(1), byType[report.TypeSpam])
}

// ReportEscalationSuite runs with a threshold both parties of a room can
// reach at once.
type ReportEscalationSuite struct {
	ServiceSuite
}

func TestReportEscalation(t *testing.T) {
	suite.Run(t, new(ReportEscalationSuite))
}

func (s *ReportEscalationSuite) SetupTest() {
	s.cfg = s.thresholdConfig()
	s.ServiceSuite.SetupTest()
}

func (s *ReportEscalationSuite) thresholdConfig() config.ModerationConfig {
	cfg := config.DefaultModeration()
	cfg.ReportEscalationThreshold = 2
	return cfg
}

func (s *ReportEscalationSuite) TestConcurrentReportsEscalateOnce() {
	for round := 0; round < 10; round++ {
		room := s.openRoom(uuid.New(), uuid.New())
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			escalated int
		)
		for _, reporter := range []uuid.UUID{room.PartyA, room.PartyB} {
			wg.Add(1)
			go func(reporter uuid.UUID) {
				defer wg.Done()
				res, err := s.reports.FileReport(s.ctx, FileReportInput{
					RoomID:     room.ID,
					ReporterID: reporter,
					ReportedID: room.OtherParty(reporter),
					Type:       report.TypeHarassment,
				})
				s.NoError(err)
				if res.Escalated {
					mu.Lock()
					escalated++
					mu.Unlock()
				}
			}(reporter)
		}
		wg.Wait()

		s.Equal(1, escalated)
		s.Equal(conversation.StatusReported, s.room(room.ID).Status)
	}
	s.Equal(10, s.events.count(EventRoomEscalated))
}
