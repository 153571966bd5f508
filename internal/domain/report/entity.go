package report

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeSpam                 Type = "spam"
	TypeHarassment           Type = "harassment"
	TypeInappropriateContent Type = "inappropriate_content"
	TypeFakeProfile          Type = "fake_profile"
	TypeScam                 Type = "scam"
	TypeOther                Type = "other"
)

func (t Type) Valid() bool {
	switch t {
	case TypeSpam, TypeHarassment, TypeInappropriateContent, TypeFakeProfile, TypeScam, TypeOther:
		return true
	}
	return false
}

type Status string

const (
	StatusPending       Status = "pending"
	StatusInvestigating Status = "investigating"
	StatusResolved      Status = "resolved"
	StatusDismissed     Status = "dismissed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInvestigating, StatusResolved, StatusDismissed:
		return true
	}
	return false
}

// Open reports whether the status still counts toward room escalation.
func (s Status) Open() bool {
	return s == StatusPending || s == StatusInvestigating
}

func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusDismissed
}

// Report represents the chat_reports table. Room, message and party ids are
// denormalized so an investigation can be reconstructed from the row alone.
type Report struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey"`
	RoomID      uuid.UUID     `gorm:"type:uuid;not null;index:idx_report_room_reporter,priority:1"`
	MessageID   uuid.NullUUID `gorm:"type:uuid"`
	ReporterID  uuid.UUID     `gorm:"type:uuid;not null;index:idx_report_room_reporter,priority:2"`
	ReportedID  uuid.UUID     `gorm:"type:uuid;not null;index"`
	Type        Type          `gorm:"type:varchar(32);not null;index"`
	Description string        `gorm:"type:text;not null;default:''"`
	EvidenceKey string        `gorm:"type:varchar(512);not null;default:''"`
	Status      Status        `gorm:"type:varchar(16);not null;default:'pending';index"`

	ResolvedBy       uuid.NullUUID `gorm:"type:uuid"`
	ResolvedAt       sql.NullTime
	ResolutionAction string        `gorm:"type:varchar(32);not null;default:''"`
	ResolutionNotes  string        `gorm:"type:text;not null;default:''"`
	LogEntryID       uuid.NullUUID `gorm:"type:uuid"`

	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

func (Report) TableName() string {
	return "chat_reports"
}

// Filter narrows admin report listings. Zero values match everything.
type Filter struct {
	Status Status
	Type   Type
}

// ReportedUser is one row of the frequently-reported projection.
type ReportedUser struct {
	UserID      uuid.UUID
	ReportCount int64
}

// TypeCount is one bucket of the report-type histogram.
type TypeCount struct {
	Type  Type
	Count int64
}
