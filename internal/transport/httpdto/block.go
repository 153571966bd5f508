package httpdto

import (
	"time"

	"sentinal-safety/internal/domain/block"
)

// BlockRequest is optional on POST /blocks/:otherParty. A zero duration
// blocks permanently.
type BlockRequest struct {
	DurationMinutes int    `json:"duration_minutes"`
	Reason          string `json:"reason"`
}

type AdminBlockRequest struct {
	PartyA          string `json:"party_a" binding:"required"`
	PartyB          string `json:"party_b" binding:"required"`
	DurationMinutes int    `json:"duration_minutes"`
	Reason          string `json:"reason"`
}

type BlockDTO struct {
	ID          string     `json:"id"`
	BlockerID   string     `json:"blocker_id"`
	BlockedID   string     `json:"blocked_id"`
	IsPermanent bool       `json:"is_permanent"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	AdminID     *string    `json:"admin_id,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func FromBlock(b block.UserBlock) BlockDTO {
	return BlockDTO{
		ID:          b.ID.String(),
		BlockerID:   b.BlockerID.String(),
		BlockedID:   b.BlockedID.String(),
		IsPermanent: b.IsPermanent,
		ExpiresAt:   timePtr(b.ExpiresAt),
		AdminID:     idPtr(b.AdminID),
		Reason:      b.Reason,
		CreatedAt:   b.CreatedAt,
	}
}

func FromBlocks(items []block.UserBlock) []BlockDTO {
	out := make([]BlockDTO, 0, len(items))
	for _, b := range items {
		out = append(out, FromBlock(b))
	}
	return out
}
