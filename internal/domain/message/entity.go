package message

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeText  Type = "text"
	TypeImage Type = "image"
	TypeFile  Type = "file"
	TypeVoice Type = "voice"
)

func (t Type) Valid() bool {
	switch t {
	case TypeText, TypeImage, TypeFile, TypeVoice:
		return true
	}
	return false
}

// SafetyFlags is computed once at send time and never changes afterwards.
type SafetyFlags struct {
	ContainsPhone         bool `gorm:"not null;default:false"`
	ContainsEmail         bool `gorm:"not null;default:false"`
	ContainsPaymentHandle bool `gorm:"not null;default:false"`
	ContainsExternalLink  bool `gorm:"not null;default:false"`
}

func (f SafetyFlags) Any() bool {
	return f.ContainsPhone || f.ContainsEmail || f.ContainsPaymentHandle || f.ContainsExternalLink
}

// Message represents the chat_messages table. Rows are append-only: later
// state is expressed through the hidden/retracted/read columns.
type Message struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoomID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_message_room_seq,priority:1"`
	SenderID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Seq         int64     `gorm:"not null;uniqueIndex:idx_message_room_seq,priority:2"`
	Type        Type      `gorm:"type:varchar(16);not null"`
	Content     string    `gorm:"type:text;not null"`

	SafetyFlags `gorm:"embedded"`

	IsFlagged   bool          `gorm:"not null;default:false;index"`
	IsHidden    bool          `gorm:"not null;default:false"`
	IsRetracted bool          `gorm:"not null;default:false"`
	HiddenBy    uuid.NullUUID `gorm:"type:uuid"`
	ReplyToID   uuid.NullUUID `gorm:"type:uuid"`
	SentAt      time.Time     `gorm:"not null;index"`
	ReadAt      sql.NullTime
}

func (Message) TableName() string {
	return "chat_messages"
}

// Visible reports whether the message shows up in a participant's timeline.
func (m Message) Visible() bool {
	return !m.IsHidden && !m.IsRetracted
}
