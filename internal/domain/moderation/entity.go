package moderation

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Action string

const (
	ActionChatWarning   Action = "chat_warning"
	ActionChatMute      Action = "chat_mute"
	ActionChatClose     Action = "chat_close"
	ActionMessageDelete Action = "message_delete"
	ActionMessageHide   Action = "message_hide"
	ActionUserWarn      Action = "user_warn"
	ActionUserMute      Action = "user_mute"
	ActionUserBan       Action = "user_ban"
	ActionUserUnban     Action = "user_unban"
)

var allActions = []Action{
	ActionChatWarning, ActionChatMute, ActionChatClose,
	ActionMessageDelete, ActionMessageHide,
	ActionUserWarn, ActionUserMute, ActionUserBan, ActionUserUnban,
}

func (a Action) Valid() bool {
	for _, known := range allActions {
		if a == known {
			return true
		}
	}
	return false
}

// IsStrike reports whether the action counts as a warning-class strike.
func (a Action) IsStrike() bool {
	return a == ActionChatWarning || a == ActionUserWarn
}

// Punitive is true for every sanction. Lifting one is not a sanction.
func (a Action) Punitive() bool {
	return a.Valid() && a != ActionUserUnban
}

// Appealable is true for every sanction.
func (a Action) Appealable() bool {
	return a.Punitive()
}

// TargetType is the kind of entity an action is recorded against.
func (a Action) TargetType() TargetType {
	switch a {
	case ActionChatWarning, ActionChatMute, ActionChatClose:
		return TargetRoom
	case ActionMessageDelete, ActionMessageHide:
		return TargetMessage
	default:
		return TargetUser
	}
}

type TargetType string

const (
	TargetRoom    TargetType = "room"
	TargetMessage TargetType = "message"
	TargetUser    TargetType = "user"
)

func (t TargetType) Valid() bool {
	return t == TargetRoom || t == TargetMessage || t == TargetUser
}

type AppealStatus string

const (
	AppealNone       AppealStatus = "none"
	AppealPending    AppealStatus = "pending"
	AppealUpheld     AppealStatus = "upheld"
	AppealOverturned AppealStatus = "overturned"
)

// Decision is a reviewer's verdict on an appeal.
type Decision string

const (
	DecisionUpheld     Decision = "upheld"
	DecisionOverturned Decision = "overturned"
)

func (d Decision) Valid() bool {
	return d == DecisionUpheld || d == DecisionOverturned
}

func (d Decision) Status() AppealStatus {
	if d == DecisionOverturned {
		return AppealOverturned
	}
	return AppealUpheld
}

// LogEntry represents the moderation_logs table. Rows are never deleted; only
// the appeal columns and IsSuperseded change after insert.
type LogEntry struct {
	ID              uuid.UUID     `gorm:"type:uuid;primaryKey"`
	AdminID         uuid.NullUUID `gorm:"type:uuid;index"`
	TargetType      TargetType    `gorm:"type:varchar(16);not null"`
	TargetID        uuid.UUID     `gorm:"type:uuid;not null;index"`
	SubjectUserID   uuid.NullUUID `gorm:"type:uuid;index"`
	RoomID          uuid.NullUUID `gorm:"type:uuid"`
	MessageID       uuid.NullUUID `gorm:"type:uuid"`
	ReportID        uuid.NullUUID `gorm:"type:uuid"`
	Action          Action        `gorm:"type:varchar(32);not null;index"`
	Reason          string        `gorm:"type:text;not null;default:''"`
	DurationMinutes sql.NullInt32
	StrikeCount     int  `gorm:"not null;default:0"`
	IsSuperseded    bool `gorm:"not null;default:false"`
	IsAutomatic     bool `gorm:"not null;default:false"`

	AppealEligible    bool          `gorm:"not null;default:false"`
	AppealDeadline    sql.NullTime
	AppealStatus      AppealStatus  `gorm:"type:varchar(16);not null;default:'none'"`
	AppealReason      string        `gorm:"type:text;not null;default:''"`
	AppealedAt        sql.NullTime
	AppealReviewedBy  uuid.NullUUID `gorm:"type:uuid"`
	AppealReviewNotes string        `gorm:"type:text;not null;default:''"`
	AppealReviewedAt  sql.NullTime

	CreatedAt time.Time `gorm:"index"`
}

func (LogEntry) TableName() string {
	return "moderation_logs"
}

// StrikeUser is one row of the top-strike projection.
type StrikeUser struct {
	UserID  uuid.UUID
	Strikes int64
}
