package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"sentinal-safety/config"
	"sentinal-safety/internal/domain/block"
	"sentinal-safety/internal/domain/conversation"
	"sentinal-safety/internal/domain/moderation"
	"sentinal-safety/internal/metrics"
	"sentinal-safety/internal/repository"
	sentinal_errors "sentinal-safety/pkg/errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	autoBanReason   = "automatic temporary ban: strike threshold reached"
	banCloseReason  = "user banned"
	historyMaxItems = 200
)

var tracer = otel.Tracer("sentinal-safety/services")

// ModerationService is the append-only ledger of moderator actions and the
// sanction engine driven by it.
type ModerationService struct {
	store   repository.Store
	events  EventPublisher
	metrics *metrics.Metrics
	cfg     config.ModerationConfig
	now     Clock
}

func NewModerationService(store repository.Store, events EventPublisher, cfg config.ModerationConfig, m *metrics.Metrics) *ModerationService {
	return &ModerationService{store: store, events: events, metrics: m, cfg: cfg, now: defaultClock}
}

func (s *ModerationService) SetClock(c Clock) {
	s.now = c
}

type RecordActionInput struct {
	AdminID uuid.NullUUID
	// TargetType is optional; when set it must match the action.
	TargetType moderation.TargetType
	TargetID   uuid.UUID
	// SubjectUserID names the user a room-level action lands on. Warnings
	// against a room require it.
	SubjectUserID   uuid.NullUUID
	Action          moderation.Action
	Reason          string
	DurationMinutes int
	ReportID        uuid.NullUUID
}

type RecordActionResult struct {
	Entry moderation.LogEntry
	// AutoBan is set when this action pushed the subject over the strike
	// threshold and the automatic ban was applied.
	AutoBan     *moderation.LogEntry
	RoomsClosed int
}

// RecordAction writes one ledger entry and applies its side effects in the
// same transaction, including the strike escalation cascade.
func (s *ModerationService) RecordAction(ctx context.Context, in RecordActionInput) (RecordActionResult, error) {
	ctx, span := tracer.Start(ctx, "moderation.RecordAction")
	defer span.End()
	span.SetAttributes(
		attribute.String("moderation.action", string(in.Action)),
		attribute.String("moderation.target_id", in.TargetID.String()),
	)

	var res RecordActionResult
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		res, err = s.recordInTx(ctx, tx, in)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return RecordActionResult{}, err
	}

	s.afterRecord(ctx, res)
	return res, nil
}

func (s *ModerationService) afterRecord(ctx context.Context, res RecordActionResult) {
	s.metrics.ActionRecorded(string(res.Entry.Action))
	publish(ctx, s.events, Event{Type: EventModerationAction, OccurredAt: res.Entry.CreatedAt, Data: res.Entry})
	if res.Entry.Action == moderation.ActionUserBan {
		publish(ctx, s.events, Event{Type: EventUserBanned, OccurredAt: res.Entry.CreatedAt, Data: res.Entry})
	}
	if res.AutoBan != nil {
		s.metrics.AutomaticBan()
		s.metrics.ActionRecorded(string(res.AutoBan.Action))
		publish(ctx, s.events, Event{Type: EventUserBanned, OccurredAt: res.AutoBan.CreatedAt, Data: res.AutoBan})
		logFor(ctx).Warn("automatic ban applied",
			zap.String("user_id", res.AutoBan.TargetID.String()),
			zap.Int("strikes", res.AutoBan.StrikeCount),
			zap.Int("rooms_closed", res.RoomsClosed))
	}
}

// recordInTx does the work of RecordAction against a transactional store. It
// is shared with report resolution so both land in one transaction.
func (s *ModerationService) recordInTx(ctx context.Context, tx repository.Store, in RecordActionInput) (RecordActionResult, error) {
	if !in.Action.Valid() {
		return RecordActionResult{}, sentinal_errors.ErrUnknownAction
	}
	targetType := in.Action.TargetType()
	if in.TargetType != "" && in.TargetType != targetType {
		return RecordActionResult{}, fmt.Errorf("action %s targets a %s, not a %s: %w", in.Action, targetType, in.TargetType, sentinal_errors.ErrInvalidInput)
	}
	if in.TargetID == uuid.Nil || in.DurationMinutes < 0 {
		return RecordActionResult{}, sentinal_errors.ErrInvalidInput
	}

	now := s.now()
	entry := moderation.LogEntry{
		ID:           uuid.New(),
		AdminID:      in.AdminID,
		TargetType:   targetType,
		TargetID:     in.TargetID,
		ReportID:     in.ReportID,
		Action:       in.Action,
		Reason:       in.Reason,
		AppealStatus: moderation.AppealNone,
		CreatedAt:    now,
	}
	if in.DurationMinutes > 0 {
		entry.DurationMinutes = sql.NullInt32{Int32: int32(in.DurationMinutes), Valid: true}
	}

	var room conversation.Room
	switch targetType {
	case moderation.TargetRoom:
		r, err := tx.Rooms().GetByIDForUpdate(ctx, in.TargetID)
		if err != nil {
			return RecordActionResult{}, err
		}
		room = r
		entry.RoomID = nullUUID(room.ID)
		if in.SubjectUserID.Valid {
			if !room.HasParty(in.SubjectUserID.UUID) {
				return RecordActionResult{}, fmt.Errorf("subject is not a party of the room: %w", sentinal_errors.ErrInvalidInput)
			}
			entry.SubjectUserID = in.SubjectUserID
		}
	case moderation.TargetMessage:
		msg, err := tx.Messages().GetByID(ctx, in.TargetID)
		if err != nil {
			return RecordActionResult{}, err
		}
		entry.MessageID = nullUUID(msg.ID)
		entry.RoomID = nullUUID(msg.RoomID)
		entry.SubjectUserID = nullUUID(msg.SenderID)
	case moderation.TargetUser:
		entry.SubjectUserID = nullUUID(in.TargetID)
	}
	if in.Action.IsStrike() && !entry.SubjectUserID.Valid {
		return RecordActionResult{}, subjectRequired(in.Action)
	}

	// The suppression row serializes every sanction that lands on one user.
	if entry.SubjectUserID.Valid {
		subject := entry.SubjectUserID.UUID
		if err := tx.Blocks().EnsureSuppression(ctx, subject, now); err != nil {
			return RecordActionResult{}, err
		}
		if _, err := tx.Blocks().LockSuppression(ctx, subject); err != nil {
			return RecordActionResult{}, err
		}
		strikes, err := tx.Moderation().CountStrikes(ctx, subject)
		if err != nil {
			return RecordActionResult{}, err
		}
		if in.Action.IsStrike() {
			strikes++
		}
		entry.StrikeCount = int(strikes)
		entry.AppealEligible = in.Action.Appealable()
		if entry.AppealEligible {
			entry.AppealDeadline = sql.NullTime{Time: now.Add(s.cfg.AppealWindow), Valid: true}
		}
	}

	res := RecordActionResult{}
	if err := s.applySideEffect(ctx, tx, in, &entry, room, now, &res); err != nil {
		return RecordActionResult{}, err
	}
	if err := tx.Moderation().Create(ctx, &entry); err != nil {
		return RecordActionResult{}, err
	}
	res.Entry = entry

	if in.Action.IsStrike() && entry.StrikeCount >= s.cfg.StrikeBanThreshold {
		ban, closed, err := s.autoBan(ctx, tx, entry, now)
		if err != nil {
			return RecordActionResult{}, err
		}
		res.AutoBan = ban
		res.RoomsClosed += closed
	}
	return res, nil
}

func (s *ModerationService) applySideEffect(ctx context.Context, tx repository.Store, in RecordActionInput, entry *moderation.LogEntry, room conversation.Room, now time.Time, res *RecordActionResult) error {
	switch in.Action {
	case moderation.ActionChatWarning, moderation.ActionUserWarn:
		return nil

	case moderation.ActionChatMute:
		t := repository.RoomTransition{Actor: in.AdminID, ByAdmin: true, At: now}
		if room.Status == conversation.StatusMuted && !room.MutedByAdmin {
			// Upgrade a participant mute so only a moderator can lift it.
			_, err := tx.Rooms().Transition(ctx, room.ID, []conversation.RoomStatus{conversation.StatusMuted}, conversation.StatusMuted, t)
			return err
		}
		_, err := transitionRoom(ctx, tx.Rooms(), room, conversation.StatusMuted, t)
		return err

	case moderation.ActionChatClose:
		_, err := transitionRoom(ctx, tx.Rooms(), room, conversation.StatusClosed, repository.RoomTransition{
			Actor:  in.AdminID,
			Reason: in.Reason,
			At:     now,
		})
		return err

	case moderation.ActionMessageHide, moderation.ActionMessageDelete:
		return tx.Messages().Hide(ctx, in.TargetID, in.AdminID.UUID, false)

	case moderation.ActionUserMute:
		sup := block.Suppression{
			UserID:      entry.SubjectUserID.UUID,
			Kind:        block.SuppressionMute,
			IsPermanent: in.DurationMinutes == 0,
			AppliedBy:   in.AdminID,
			LogEntryID:  nullUUID(entry.ID),
			Reason:      in.Reason,
		}
		if in.DurationMinutes > 0 {
			sup.ExpiresAt = sql.NullTime{Time: now.Add(time.Duration(in.DurationMinutes) * time.Minute), Valid: true}
		}
		applied, err := tx.Blocks().ApplySuppression(ctx, sup, now)
		if err != nil {
			return err
		}
		if !applied {
			return sentinal_errors.ErrAlreadySuspended
		}
		return nil

	case moderation.ActionUserBan:
		var duration time.Duration
		if in.DurationMinutes > 0 {
			duration = time.Duration(in.DurationMinutes) * time.Minute
		}
		applied, err := s.applyBan(ctx, tx, entry.SubjectUserID.UUID, in.AdminID, entry.ID, duration, in.Reason, now)
		if err != nil {
			return err
		}
		if !applied {
			return sentinal_errors.ErrAlreadySuspended
		}
		closed, err := closeRoomsOf(ctx, tx.Rooms(), entry.SubjectUserID.UUID, in.AdminID, banCloseReason, now)
		res.RoomsClosed += closed
		return err

	case moderation.ActionUserUnban:
		cleared, err := tx.Blocks().ClearSuppression(ctx, entry.SubjectUserID.UUID, block.SuppressionBan, now)
		if err != nil {
			return err
		}
		if !cleared {
			return sentinal_errors.ErrNotSuspended
		}
		return nil
	}
	return sentinal_errors.ErrUnknownAction
}

// applyBan writes a ban suppression unless an equal or stronger ban is in
// force. A zero duration is permanent.
func (s *ModerationService) applyBan(ctx context.Context, tx repository.Store, user uuid.UUID, admin uuid.NullUUID, entryID uuid.UUID, duration time.Duration, reason string, now time.Time) (bool, error) {
	sup := block.Suppression{
		UserID:      user,
		Kind:        block.SuppressionBan,
		IsPermanent: duration == 0,
		AppliedBy:   admin,
		LogEntryID:  nullUUID(entryID),
		Reason:      reason,
	}
	if duration > 0 {
		sup.ExpiresAt = sql.NullTime{Time: now.Add(duration), Valid: true}
	}
	return tx.Blocks().ApplySuppression(ctx, sup, now)
}

// autoBan applies the strike-threshold ban. The conditional suppression write
// decides the race: only the writer that applies it logs the ban and closes
// rooms, so a user already banned gets no second ban entry.
func (s *ModerationService) autoBan(ctx context.Context, tx repository.Store, strike moderation.LogEntry, now time.Time) (*moderation.LogEntry, int, error) {
	user := strike.SubjectUserID.UUID
	banID := uuid.New()
	applied, err := s.applyBan(ctx, tx, user, uuid.NullUUID{}, banID, s.cfg.TempBanDuration, autoBanReason, now)
	if err != nil || !applied {
		return nil, 0, err
	}

	ban := moderation.LogEntry{
		ID:              banID,
		TargetType:      moderation.TargetUser,
		TargetID:        user,
		SubjectUserID:   strike.SubjectUserID,
		RoomID:          strike.RoomID,
		ReportID:        strike.ReportID,
		Action:          moderation.ActionUserBan,
		Reason:          autoBanReason,
		DurationMinutes: sql.NullInt32{Int32: int32(s.cfg.TempBanDuration / time.Minute), Valid: true},
		StrikeCount:     strike.StrikeCount,
		IsAutomatic:     true,
		AppealEligible:  true,
		AppealDeadline:  sql.NullTime{Time: now.Add(s.cfg.AppealWindow), Valid: true},
		AppealStatus:    moderation.AppealNone,
		CreatedAt:       now,
	}
	if err := tx.Moderation().Create(ctx, &ban); err != nil {
		return nil, 0, err
	}
	closed, err := closeRoomsOf(ctx, tx.Rooms(), user, uuid.NullUUID{}, banCloseReason, now)
	if err != nil {
		return nil, 0, err
	}
	return &ban, closed, nil
}

func subjectRequired(action moderation.Action) error {
	return fmt.Errorf("%s: %w", action, sentinal_errors.ErrSubjectRequired)
}

// BanTemporarily bans the user for durationMinutes and closes their rooms.
func (s *ModerationService) BanTemporarily(ctx context.Context, user, admin uuid.UUID, durationMinutes int, reason string) (RecordActionResult, error) {
	if durationMinutes <= 0 {
		return RecordActionResult{}, fmt.Errorf("duration must be positive: %w", sentinal_errors.ErrInvalidInput)
	}
	return s.RecordAction(ctx, RecordActionInput{
		AdminID:         nullUUID(admin),
		TargetID:        user,
		Action:          moderation.ActionUserBan,
		Reason:          reason,
		DurationMinutes: durationMinutes,
	})
}

// BanPermanently bans the user with no expiry and closes their rooms.
func (s *ModerationService) BanPermanently(ctx context.Context, user, admin uuid.UUID, reason string) (RecordActionResult, error) {
	return s.RecordAction(ctx, RecordActionInput{
		AdminID:  nullUUID(admin),
		TargetID: user,
		Action:   moderation.ActionUserBan,
		Reason:   reason,
	})
}

// Unban lifts the user's ban. History is kept and closed rooms stay closed.
func (s *ModerationService) Unban(ctx context.Context, user, admin uuid.UUID, reason string) (RecordActionResult, error) {
	return s.RecordAction(ctx, RecordActionInput{
		AdminID:  nullUUID(admin),
		TargetID: user,
		Action:   moderation.ActionUserUnban,
		Reason:   reason,
	})
}

// Appeal moves an entry into pending appeal. Only the sanctioned user may
// appeal, and only within the appeal window.
func (s *ModerationService) Appeal(ctx context.Context, entryID, user uuid.UUID, reason string) (moderation.LogEntry, error) {
	entry, err := s.store.Moderation().GetByID(ctx, entryID)
	if err != nil {
		return moderation.LogEntry{}, err
	}
	if !entry.SubjectUserID.Valid || entry.SubjectUserID.UUID != user {
		return moderation.LogEntry{}, sentinal_errors.ErrForbidden
	}
	if !entry.AppealEligible {
		return moderation.LogEntry{}, sentinal_errors.ErrNotAppealable
	}
	if entry.AppealStatus != moderation.AppealNone {
		return moderation.LogEntry{}, sentinal_errors.ErrAppealAlreadyFiled
	}
	now := s.now()
	if !entry.AppealDeadline.Valid || now.After(entry.AppealDeadline.Time) {
		return moderation.LogEntry{}, sentinal_errors.ErrAppealWindowClosed
	}

	filed, err := s.store.Moderation().FileAppeal(ctx, entryID, reason, now)
	if err != nil {
		return moderation.LogEntry{}, err
	}
	if !filed {
		return moderation.LogEntry{}, sentinal_errors.ErrAppealAlreadyFiled
	}
	updated, err := s.store.Moderation().GetByID(ctx, entryID)
	if err != nil {
		return moderation.LogEntry{}, err
	}
	s.metrics.AppealFiled()
	publish(ctx, s.events, Event{Type: EventAppealFiled, OccurredAt: now, Data: updated})
	return updated, nil
}

type AppealResolution struct {
	Entry moderation.LogEntry
	// FollowUpRequired is set when an overturned entry left a sanction in
	// place that the reviewer has to lift by hand.
	FollowUpRequired bool
}

// ResolveAppeal records the reviewer's decision. Overturning an entry does
// not reverse its sanction.
func (s *ModerationService) ResolveAppeal(ctx context.Context, entryID uuid.UUID, decision moderation.Decision, reviewer uuid.UUID, notes string) (AppealResolution, error) {
	if !decision.Valid() {
		return AppealResolution{}, fmt.Errorf("unknown decision %q: %w", decision, sentinal_errors.ErrInvalidInput)
	}
	now := s.now()
	resolved, err := s.store.Moderation().ResolveAppeal(ctx, entryID, decision.Status(), reviewer, notes, now)
	if err != nil {
		return AppealResolution{}, err
	}
	entry, err := s.store.Moderation().GetByID(ctx, entryID)
	if err != nil {
		return AppealResolution{}, err
	}
	if !resolved {
		return AppealResolution{}, sentinal_errors.ErrAppealNotPending
	}

	out := AppealResolution{Entry: entry}
	if decision == moderation.DecisionOverturned {
		switch entry.Action {
		case moderation.ActionUserBan, moderation.ActionUserMute, moderation.ActionChatClose, moderation.ActionChatMute,
			moderation.ActionMessageHide, moderation.ActionMessageDelete:
			out.FollowUpRequired = true
		}
		logFor(ctx).Info("appeal overturned",
			zap.String("entry_id", entry.ID.String()),
			zap.String("action", string(entry.Action)),
			zap.Bool("follow_up_required", out.FollowUpRequired))
	}
	publish(ctx, s.events, Event{Type: EventAppealResolved, OccurredAt: now, Data: entry})
	return out, nil
}

// ReconcileStrikes marks all but the newest keep strikes of the user as
// superseded. It is the only path that lowers a strike count.
func (s *ModerationService) ReconcileStrikes(ctx context.Context, user, admin uuid.UUID, keep int, reason string) (int64, error) {
	if keep < 0 {
		return 0, sentinal_errors.ErrInvalidInput
	}
	var superseded int64
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		now := s.now()
		if err := tx.Blocks().EnsureSuppression(ctx, user, now); err != nil {
			return err
		}
		if _, err := tx.Blocks().LockSuppression(ctx, user); err != nil {
			return err
		}
		var err error
		superseded, err = tx.Moderation().SupersedeStrikes(ctx, user, keep)
		return err
	})
	if err != nil {
		return 0, err
	}
	logFor(ctx).Warn("strikes reconciled",
		zap.String("user_id", user.String()),
		zap.String("admin_id", admin.String()),
		zap.Int("keep", keep),
		zap.Int64("superseded", superseded),
		zap.String("reason", reason))
	return superseded, nil
}

type UserHistory struct {
	Suppression block.Suppression
	Banned      bool
	Muted       bool
	Strikes     int64
	Entries     []moderation.LogEntry
}

// UserHistory returns the user's current sanction state and ledger entries,
// newest first.
func (s *ModerationService) UserHistory(ctx context.Context, user uuid.UUID, limit int) (UserHistory, error) {
	if limit <= 0 || limit > historyMaxItems {
		limit = historyMaxItems
	}
	sup, err := suppressionOf(ctx, s.store.Blocks(), user)
	if err != nil {
		return UserHistory{}, err
	}
	strikes, err := s.store.Moderation().CountStrikes(ctx, user)
	if err != nil {
		return UserHistory{}, err
	}
	entries, err := s.store.Moderation().ListForUser(ctx, user, limit)
	if err != nil {
		return UserHistory{}, err
	}
	now := s.now()
	return UserHistory{
		Suppression: sup,
		Banned:      sup.BannedAt(now),
		Muted:       sup.MutedAt(now),
		Strikes:     strikes,
		Entries:     entries,
	}, nil
}
