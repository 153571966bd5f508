package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"sentinal-safety/config"
	"sentinal-safety/internal/domain/conversation"
	"sentinal-safety/internal/domain/message"
	"sentinal-safety/internal/domain/moderation"
	"sentinal-safety/internal/domain/report"
	"sentinal-safety/internal/metrics"
	"sentinal-safety/internal/repository"
	sentinal_errors "sentinal-safety/pkg/errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	maxDescriptionLength = 2000
	resolutionNone       = "none"
)

var openStatuses = []report.Status{report.StatusPending, report.StatusInvestigating}

type ReportService struct {
	store      repository.Store
	messages   *MessageService
	moderation *ModerationService
	events     EventPublisher
	metrics    *metrics.Metrics
	cfg        config.ModerationConfig
	now        Clock
}

func NewReportService(store repository.Store, messages *MessageService, moderation *ModerationService, events EventPublisher, cfg config.ModerationConfig, m *metrics.Metrics) *ReportService {
	return &ReportService{
		store:      store,
		messages:   messages,
		moderation: moderation,
		events:     events,
		metrics:    m,
		cfg:        cfg,
		now:        defaultClock,
	}
}

func (s *ReportService) SetClock(c Clock) {
	s.now = c
}

type FileReportInput struct {
	RoomID      uuid.UUID
	MessageID   uuid.NullUUID
	ReporterID  uuid.UUID
	ReportedID  uuid.UUID
	Type        report.Type
	Description string
	EvidenceKey string
}

type FileReportResult struct {
	Report report.Report
	// Escalated is true only for the report whose filing moved the room to
	// reported.
	Escalated bool
}

// FileReport records a report and escalates the room once its open report
// count reaches the threshold. The room row lock plus the conditional status
// update make the escalation happen exactly once.
func (s *ReportService) FileReport(ctx context.Context, in FileReportInput) (FileReportResult, error) {
	ctx, span := tracer.Start(ctx, "report.FileReport")
	defer span.End()
	span.SetAttributes(
		attribute.String("report.room_id", in.RoomID.String()),
		attribute.String("report.type", string(in.Type)),
	)

	if !in.Type.Valid() {
		return FileReportResult{}, fmt.Errorf("unknown report type %q: %w", in.Type, sentinal_errors.ErrInvalidInput)
	}
	if in.ReporterID == uuid.Nil || in.ReportedID == uuid.Nil || in.ReporterID == in.ReportedID {
		return FileReportResult{}, fmt.Errorf("reporter and reported party must differ: %w", sentinal_errors.ErrInvalidInput)
	}
	if utf8.RuneCountInString(in.Description) > maxDescriptionLength {
		return FileReportResult{}, fmt.Errorf("description too long: %w", sentinal_errors.ErrInvalidInput)
	}
	if !ownsEvidence(in.ReporterID, in.EvidenceKey) {
		return FileReportResult{}, fmt.Errorf("evidence key was not issued to the reporter: %w", sentinal_errors.ErrInvalidInput)
	}

	var result FileReportResult
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		now := s.now()
		room, err := tx.Rooms().GetByIDForUpdate(ctx, in.RoomID)
		if err != nil {
			return err
		}
		if !room.HasParty(in.ReporterID) {
			return sentinal_errors.ErrForbidden
		}
		if room.OtherParty(in.ReporterID) != in.ReportedID {
			return fmt.Errorf("reported party is not in the room: %w", sentinal_errors.ErrInvalidInput)
		}
		if in.MessageID.Valid {
			msg, err := tx.Messages().GetByID(ctx, in.MessageID.UUID)
			if errors.Is(err, sentinal_errors.ErrNotFound) || (err == nil && msg.RoomID != room.ID) {
				return fmt.Errorf("reported message is not in the room: %w", sentinal_errors.ErrInvalidInput)
			}
			if err != nil {
				return err
			}
		}

		_, err = tx.Reports().LatestNonDismissed(ctx, room.ID, in.ReporterID, now.Add(-s.cfg.ReportCooldown))
		switch {
		case err == nil:
			return sentinal_errors.ErrDuplicateReport
		case !errors.Is(err, sentinal_errors.ErrNotFound):
			return err
		}

		rep := report.Report{
			ID:          uuid.New(),
			RoomID:      room.ID,
			MessageID:   in.MessageID,
			ReporterID:  in.ReporterID,
			ReportedID:  in.ReportedID,
			Type:        in.Type,
			Description: strings.TrimSpace(in.Description),
			EvidenceKey: in.EvidenceKey,
			Status:      report.StatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.Reports().Create(ctx, &rep); err != nil {
			return err
		}
		result.Report = rep

		open, err := tx.Reports().CountOpenForRoom(ctx, room.ID)
		if err != nil {
			return err
		}
		if open < int64(s.cfg.ReportEscalationThreshold) || room.Status != conversation.StatusActive {
			return nil
		}
		result.Escalated, err = tx.Rooms().Transition(ctx, room.ID,
			[]conversation.RoomStatus{conversation.StatusActive},
			conversation.StatusReported,
			repository.RoomTransition{At: now})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return FileReportResult{}, err
	}

	s.metrics.ReportFiled(string(result.Report.Type), result.Escalated)
	publish(ctx, s.events, Event{Type: EventReportFiled, OccurredAt: result.Report.CreatedAt, Data: result.Report})
	if result.Escalated {
		span.SetAttributes(attribute.Bool("report.escalated", true))
		logFor(ctx).Warn("room escalated to reported",
			zap.String("room_id", result.Report.RoomID.String()),
			zap.String("report_id", result.Report.ID.String()))
		publish(ctx, s.events, Event{Type: EventRoomEscalated, OccurredAt: result.Report.CreatedAt, Data: result.Report})
	}
	return result, nil
}

func (s *ReportService) ListReports(ctx context.Context, filter report.Filter, page, limit int) ([]report.Report, int64, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, fmt.Errorf("unknown status %q: %w", filter.Status, sentinal_errors.ErrInvalidInput)
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, 0, fmt.Errorf("unknown type %q: %w", filter.Type, sentinal_errors.ErrInvalidInput)
	}
	page, limit = repository.NormalizePage(page, limit, 20, 100)
	return s.store.Reports().List(ctx, filter, page, limit)
}

type ReportDetail struct {
	Report   report.Report
	Room     conversation.Room
	Messages []message.Message
}

// GetReportDetail returns the report with its room and the latest n room
// messages, hidden and retracted ones included.
func (s *ReportService) GetReportDetail(ctx context.Context, id uuid.UUID, n int) (ReportDetail, error) {
	rep, err := s.store.Reports().GetByID(ctx, id)
	if err != nil {
		return ReportDetail{}, err
	}
	room, err := s.store.Rooms().GetByID(ctx, rep.RoomID)
	if err != nil {
		return ReportDetail{}, err
	}
	msgs, err := s.messages.RoomMessagesForReview(ctx, rep.RoomID, n)
	if err != nil {
		return ReportDetail{}, err
	}
	return ReportDetail{Report: rep, Room: room, Messages: msgs}, nil
}

func (s *ReportService) FrequentlyReported(ctx context.Context, minReports int64, limit int) ([]report.ReportedUser, error) {
	if minReports <= 0 {
		minReports = int64(s.cfg.ReportEscalationThreshold)
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.store.Reports().FrequentlyReported(ctx, minReports, limit)
}

// CountsByType buckets reports created within the trailing window.
func (s *ReportService) CountsByType(ctx context.Context, window time.Duration) ([]report.TypeCount, error) {
	if window <= 0 {
		window = dashboardTypeWindow
	}
	return s.store.Reports().CountsByType(ctx, s.now().Add(-window))
}

// StartInvestigation moves a pending report to investigating. Calling it on a
// report already under investigation is a no-op.
func (s *ReportService) StartInvestigation(ctx context.Context, id, adminID uuid.UUID) (report.Report, error) {
	now := s.now()
	changed, err := s.store.Reports().UpdateStatus(ctx, id,
		[]report.Status{report.StatusPending},
		report.StatusInvestigating,
		repository.ReportResolution{By: nullUUID(adminID), At: now})
	if err != nil {
		return report.Report{}, err
	}
	rep, err := s.store.Reports().GetByID(ctx, id)
	if err != nil {
		return report.Report{}, err
	}
	if !changed && rep.Status.Terminal() {
		return rep, sentinal_errors.ErrReportClosed
	}
	return rep, nil
}

type ResolveReportInput struct {
	ReportID uuid.UUID
	AdminID  uuid.UUID
	// Action is the sanction to record. Empty resolves without one.
	Action          moderation.Action
	Notes           string
	DurationMinutes int
}

type ResolveReportResult struct {
	Report     report.Report
	Moderation *RecordActionResult
}

// Resolve terminalizes the report. A punitive action is recorded in the
// ledger in the same transaction, which is the only way a report turns into
// a strike.
func (s *ReportService) Resolve(ctx context.Context, in ResolveReportInput) (ResolveReportResult, error) {
	if in.Action != "" && !in.Action.Valid() {
		return ResolveReportResult{}, sentinal_errors.ErrUnknownAction
	}
	if in.Action != "" && !in.Action.Punitive() {
		return ResolveReportResult{}, fmt.Errorf("%s cannot resolve a report: %w", in.Action, sentinal_errors.ErrInvalidInput)
	}

	var out ResolveReportResult
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		rep, err := tx.Reports().GetByID(ctx, in.ReportID)
		if err != nil {
			return err
		}
		if rep.Status.Terminal() {
			return sentinal_errors.ErrReportClosed
		}

		resolution := repository.ReportResolution{
			By:     nullUUID(in.AdminID),
			At:     s.now(),
			Action: resolutionNone,
			Notes:  in.Notes,
		}
		if in.Action != "" {
			action, err := actionForReport(rep, in)
			if err != nil {
				return err
			}
			recorded, err := s.moderation.recordInTx(ctx, tx, action)
			if err != nil {
				return err
			}
			out.Moderation = &recorded
			resolution.Action = string(in.Action)
			resolution.LogEntryID = nullUUID(recorded.Entry.ID)
		}

		changed, err := tx.Reports().UpdateStatus(ctx, rep.ID, openStatuses, report.StatusResolved, resolution)
		if err != nil {
			return err
		}
		if !changed {
			return sentinal_errors.ErrReportClosed
		}
		out.Report, err = tx.Reports().GetByID(ctx, rep.ID)
		return err
	})
	if err != nil {
		return ResolveReportResult{}, err
	}
	if out.Moderation != nil {
		s.moderation.afterRecord(ctx, *out.Moderation)
	}
	return out, nil
}

func actionForReport(rep report.Report, in ResolveReportInput) (RecordActionInput, error) {
	action := RecordActionInput{
		AdminID:         nullUUID(in.AdminID),
		Action:          in.Action,
		Reason:          in.Notes,
		DurationMinutes: in.DurationMinutes,
		ReportID:        nullUUID(rep.ID),
	}
	switch in.Action.TargetType() {
	case moderation.TargetMessage:
		if !rep.MessageID.Valid {
			return RecordActionInput{}, fmt.Errorf("report has no message to act on: %w", sentinal_errors.ErrInvalidInput)
		}
		action.TargetID = rep.MessageID.UUID
	case moderation.TargetRoom:
		action.TargetID = rep.RoomID
		action.SubjectUserID = nullUUID(rep.ReportedID)
	default:
		action.TargetID = rep.ReportedID
	}
	return action, nil
}

// Dismiss closes the report without a sanction.
func (s *ReportService) Dismiss(ctx context.Context, id, adminID uuid.UUID, reason string) (report.Report, error) {
	changed, err := s.store.Reports().UpdateStatus(ctx, id, openStatuses, report.StatusDismissed, repository.ReportResolution{
		By:     nullUUID(adminID),
		At:     s.now(),
		Action: resolutionNone,
		Notes:  reason,
	})
	if err != nil {
		return report.Report{}, err
	}
	rep, err := s.store.Reports().GetByID(ctx, id)
	if err != nil {
		return report.Report{}, err
	}
	if !changed {
		return rep, sentinal_errors.ErrReportClosed
	}
	return rep, nil
}
