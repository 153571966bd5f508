package conversation

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// RoomStatus is the lifecycle state of a chat room.
type RoomStatus string

const (
	StatusActive   RoomStatus = "active"
	StatusMuted    RoomStatus = "muted"
	StatusBlocked  RoomStatus = "blocked"
	StatusReported RoomStatus = "reported"
	StatusClosed   RoomStatus = "closed"
)

// ContextType is the domain reason two parties may converse.
type ContextType string

const (
	ContextMatrimonial ContextType = "matrimonial"
	ContextJob         ContextType = "job"
	ContextBusiness    ContextType = "business"
)

func (c ContextType) Valid() bool {
	switch c {
	case ContextMatrimonial, ContextJob, ContextBusiness:
		return true
	}
	return false
}

func (s RoomStatus) Valid() bool {
	switch s {
	case StatusActive, StatusMuted, StatusBlocked, StatusReported, StatusClosed:
		return true
	}
	return false
}

// transitions lists the allowed moves out of each status. closed has none.
// Only an active room becomes blocked: a muted or reported room keeps its
// status under a block and the live block check suppresses sends instead.
var transitions = map[RoomStatus][]RoomStatus{
	StatusActive:   {StatusMuted, StatusBlocked, StatusReported, StatusClosed},
	StatusMuted:    {StatusActive, StatusClosed},
	StatusBlocked:  {StatusActive, StatusClosed},
	StatusReported: {StatusClosed},
	StatusClosed:   {},
}

// CanTransitionTo reports whether s may move to next. Re-entering the same
// status is reported as allowed so callers can treat it as a no-op.
func (s RoomStatus) CanTransitionTo(next RoomStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SourcesFor returns every status from which next can be reached, excluding
// next itself. Repositories use it to build conditional updates.
func SourcesFor(next RoomStatus) []RoomStatus {
	var out []RoomStatus
	for _, from := range []RoomStatus{StatusActive, StatusMuted, StatusBlocked, StatusReported, StatusClosed} {
		if from == next {
			continue
		}
		for _, allowed := range transitions[from] {
			if allowed == next {
				out = append(out, from)
				break
			}
		}
	}
	return out
}

// AcceptsMessages is false for blocked and closed rooms.
func (s RoomStatus) AcceptsMessages() bool {
	return s != StatusBlocked && s != StatusClosed
}

// Room represents the chat_rooms table. PartyA is always the party whose
// identifier sorts first.
type Room struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey"`
	PartyA      uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_room_key,priority:1;index"`
	PartyB      uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_room_key,priority:2;index"`
	ContextType ContextType `gorm:"type:varchar(32);not null;uniqueIndex:idx_room_key,priority:3"`
	ContextRef  string      `gorm:"type:varchar(128);not null;default:'';uniqueIndex:idx_room_key,priority:4"`
	Status      RoomStatus  `gorm:"type:varchar(16);not null;default:'active';index"`

	MutedBy      uuid.NullUUID `gorm:"type:uuid"`
	MutedByAdmin bool          `gorm:"not null;default:false"`
	MutedAt      sql.NullTime
	BlockedBy    uuid.NullUUID `gorm:"type:uuid"`
	BlockedAt    sql.NullTime
	ReportedAt   sql.NullTime
	ClosedBy     uuid.NullUUID `gorm:"type:uuid"`
	ClosedAt     sql.NullTime
	CloseReason  string `gorm:"type:text;not null;default:''"`

	LastMessageID uuid.NullUUID `gorm:"type:uuid"`
	LastMessageAt sql.NullTime  `gorm:"index"`
	MessageCount  int64         `gorm:"not null;default:0"`
	UnreadA       int64         `gorm:"not null;default:0"`
	UnreadB       int64         `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Room) TableName() string {
	return "chat_rooms"
}

// NormalizePair orders two party ids so the lexicographically smaller one
// comes first.
func NormalizePair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if b.String() < a.String() {
		return b, a
	}
	return a, b
}

// Key identifies a room independently of its id.
type Key struct {
	PartyA      uuid.UUID
	PartyB      uuid.UUID
	ContextType ContextType
	ContextRef  string
}

func NewKey(x, y uuid.UUID, ctxType ContextType, ref string) Key {
	a, b := NormalizePair(x, y)
	return Key{PartyA: a, PartyB: b, ContextType: ctxType, ContextRef: ref}
}

func (r Room) Key() Key {
	return Key{PartyA: r.PartyA, PartyB: r.PartyB, ContextType: r.ContextType, ContextRef: r.ContextRef}
}

func (r Room) HasParty(id uuid.UUID) bool {
	return r.PartyA == id || r.PartyB == id
}

// OtherParty returns the counterpart of id. The result is meaningless if id
// is not a party of the room.
func (r Room) OtherParty(id uuid.UUID) uuid.UUID {
	if r.PartyA == id {
		return r.PartyB
	}
	return r.PartyA
}

// UnreadFor returns the unread counter owned by party.
func (r Room) UnreadFor(party uuid.UUID) int64 {
	if r.PartyA == party {
		return r.UnreadA
	}
	return r.UnreadB
}

// Summary is a room as seen from one party's inbox.
type Summary struct {
	Room       Room
	OtherParty uuid.UUID
	Unread     int64
}
