package block

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// UserBlock represents the user_blocks table: a directed blocker -> blocked
// edge. A row is active until LiftedAt is set or ExpiresAt passes.
type UserBlock struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey"`
	BlockerID   uuid.UUID     `gorm:"type:uuid;not null;index:idx_block_pair,priority:1"`
	BlockedID   uuid.UUID     `gorm:"type:uuid;not null;index:idx_block_pair,priority:2;index"`
	IsPermanent bool          `gorm:"not null;default:true"`
	ExpiresAt   sql.NullTime  `gorm:"index"`
	AdminID     uuid.NullUUID `gorm:"type:uuid"`
	Reason      string        `gorm:"type:text;not null;default:''"`
	CreatedAt   time.Time
	LiftedAt    sql.NullTime
}

func (UserBlock) TableName() string {
	return "user_blocks"
}

func (b UserBlock) ActiveAt(now time.Time) bool {
	if b.LiftedAt.Valid {
		return false
	}
	if b.IsPermanent {
		return true
	}
	return !b.ExpiresAt.Valid || b.ExpiresAt.Time.After(now)
}

type SuppressionKind string

const (
	SuppressionNone SuppressionKind = "none"
	SuppressionMute SuppressionKind = "mute"
	SuppressionBan  SuppressionKind = "ban"
)

// Suppression represents the user_suppressions table, one row per user that
// has ever been sanctioned. The row doubles as the per-user lock for the
// moderation ledger.
type Suppression struct {
	UserID      uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Kind        SuppressionKind `gorm:"type:varchar(8);not null;default:'none'"`
	IsPermanent bool            `gorm:"not null;default:false"`
	ExpiresAt   sql.NullTime
	AppliedBy   uuid.NullUUID `gorm:"type:uuid"`
	LogEntryID  uuid.NullUUID `gorm:"type:uuid"`
	Reason      string        `gorm:"type:text;not null;default:''"`
	UpdatedAt   time.Time
}

func (Suppression) TableName() string {
	return "user_suppressions"
}

// ActiveAt reports whether the sanction is in force at now.
func (s Suppression) ActiveAt(now time.Time) bool {
	if s.Kind == SuppressionNone || s.Kind == "" {
		return false
	}
	if s.IsPermanent {
		return true
	}
	return s.ExpiresAt.Valid && s.ExpiresAt.Time.After(now)
}

func (s Suppression) BannedAt(now time.Time) bool {
	return s.Kind == SuppressionBan && s.ActiveAt(now)
}

func (s Suppression) MutedAt(now time.Time) bool {
	return s.Kind == SuppressionMute && s.ActiveAt(now)
}
