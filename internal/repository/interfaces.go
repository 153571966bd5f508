package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"sentinal-safety/internal/domain/block"
	"sentinal-safety/internal/domain/conversation"
	"sentinal-safety/internal/domain/message"
	"sentinal-safety/internal/domain/moderation"
	"sentinal-safety/internal/domain/report"
)

// Store groups the repositories that take part in one unit of work.
// WithinTx runs fn against a transactional view of the store; when the
// receiver is already transactional fn runs directly on it.
type Store interface {
	Rooms() RoomRepository
	Messages() MessageRepository
	Blocks() BlockRepository
	Reports() ReportRepository
	Moderation() ModerationRepository

	WithinTx(ctx context.Context, fn func(Store) error) error
}

// RoomTransition carries the marker columns written alongside a status change.
type RoomTransition struct {
	Actor   uuid.NullUUID
	ByAdmin bool
	Reason  string
	At      time.Time
}

type RoomRepository interface {
	// InsertOrGet inserts room unless a row with the same normalized key
	// exists, and returns the stored row. created is false when an existing
	// row was returned.
	InsertOrGet(ctx context.Context, room *conversation.Room) (stored conversation.Room, created bool, err error)
	GetByID(ctx context.Context, id uuid.UUID) (conversation.Room, error)
	// GetByIDForUpdate locks the row for the rest of the transaction.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (conversation.Room, error)
	GetByKey(ctx context.Context, key conversation.Key) (conversation.Room, error)

	ListForParty(ctx context.Context, party uuid.UUID, page, limit int) ([]conversation.Room, int64, error)
	ListBetween(ctx context.Context, a, b uuid.UUID) ([]conversation.Room, error)
	ListOpenForParty(ctx context.Context, party uuid.UUID) ([]conversation.Room, error)

	// Transition moves the room to `to` only if its current status is one of
	// from. It reports whether a row changed.
	Transition(ctx context.Context, id uuid.UUID, from []conversation.RoomStatus, to conversation.RoomStatus, t RoomTransition) (bool, error)
	// RecordMessage bumps the message count and the recipient's unread
	// counter and moves the last-message pointer, in one statement.
	RecordMessage(ctx context.Context, roomID uuid.UUID, msg message.Message, recipient uuid.UUID) error
	ResetUnread(ctx context.Context, roomID, party uuid.UUID) error
}

type MessageRepository interface {
	Create(ctx context.Context, m *message.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (message.Message, error)
	// ListRoomMessages returns newest first.
	ListRoomMessages(ctx context.Context, roomID uuid.UUID, page, limit int, includeHidden bool) ([]message.Message, error)
	MarkReadFrom(ctx context.Context, roomID, senderID uuid.UUID, at time.Time) (int64, error)
	Hide(ctx context.Context, id uuid.UUID, by uuid.UUID, retracted bool) error
	CountFlagged(ctx context.Context) (int64, error)
}

type BlockRepository interface {
	Create(ctx context.Context, b *block.UserBlock) error
	ActiveBetween(ctx context.Context, a, b uuid.UUID, now time.Time) ([]block.UserBlock, error)
	ActiveByBlocker(ctx context.Context, blocker uuid.UUID, now time.Time) ([]block.UserBlock, error)
	Lift(ctx context.Context, blocker, blocked uuid.UUID, at time.Time) (int64, error)

	GetSuppression(ctx context.Context, userID uuid.UUID) (block.Suppression, error)
	// EnsureSuppression creates the user's suppression row if missing.
	EnsureSuppression(ctx context.Context, userID uuid.UUID, now time.Time) error
	LockSuppression(ctx context.Context, userID uuid.UUID) (block.Suppression, error)
	// ApplySuppression writes s unless a stronger ban is already in force:
	// a permanent ban is only skipped by another permanent ban, anything else
	// is skipped by any active ban.
	ApplySuppression(ctx context.Context, s block.Suppression, now time.Time) (bool, error)
	// ClearSuppression lifts an active suppression of the given kind.
	ClearSuppression(ctx context.Context, userID uuid.UUID, kind block.SuppressionKind, now time.Time) (bool, error)
}

// ReportResolution carries the columns written when a report changes status.
type ReportResolution struct {
	By         uuid.NullUUID
	At         time.Time
	Action     string
	Notes      string
	LogEntryID uuid.NullUUID
}

type ReportRepository interface {
	Create(ctx context.Context, r *report.Report) error
	GetByID(ctx context.Context, id uuid.UUID) (report.Report, error)
	// LatestNonDismissed returns the reporter's newest non-dismissed report on
	// the room created at or after since.
	LatestNonDismissed(ctx context.Context, roomID, reporterID uuid.UUID, since time.Time) (report.Report, error)
	CountOpenForRoom(ctx context.Context, roomID uuid.UUID) (int64, error)
	List(ctx context.Context, filter report.Filter, page, limit int) ([]report.Report, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from []report.Status, to report.Status, res ReportResolution) (bool, error)

	FrequentlyReported(ctx context.Context, minReports int64, limit int) ([]report.ReportedUser, error)
	CountsByType(ctx context.Context, since time.Time) ([]report.TypeCount, error)
	CountByStatus(ctx context.Context) (map[report.Status]int64, error)
}

type ModerationRepository interface {
	Create(ctx context.Context, e *moderation.LogEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (moderation.LogEntry, error)
	CountStrikes(ctx context.Context, userID uuid.UUID) (int64, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]moderation.LogEntry, error)

	// FileAppeal moves an entry from no appeal to pending.
	FileAppeal(ctx context.Context, id uuid.UUID, reason string, at time.Time) (bool, error)
	// ResolveAppeal moves a pending appeal to its terminal status.
	ResolveAppeal(ctx context.Context, id uuid.UUID, status moderation.AppealStatus, reviewer uuid.UUID, notes string, at time.Time) (bool, error)
	// SupersedeStrikes marks all but the newest keep strikes of the user as
	// superseded and returns how many rows changed.
	SupersedeStrikes(ctx context.Context, userID uuid.UUID, keep int) (int64, error)
	TopStrikeUsers(ctx context.Context, limit int) ([]moderation.StrikeUser, error)
}
