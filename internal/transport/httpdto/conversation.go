package httpdto

import (
	"time"

	"sentinal-safety/internal/domain/conversation"
)

type OpenConversationRequest struct {
	OtherPartyID   string `json:"other_party_id" binding:"required"`
	Context        string `json:"context" binding:"required"`
	ContextRef     string `json:"context_ref"`
	InitialMessage string `json:"initial_message"`
}

type ConversationDTO struct {
	ID            string     `json:"id"`
	PartyA        string     `json:"party_a"`
	PartyB        string     `json:"party_b"`
	OtherParty    string     `json:"other_party,omitempty"`
	Context       string     `json:"context"`
	ContextRef    string     `json:"context_ref,omitempty"`
	Status        string     `json:"status"`
	MutedBy       *string    `json:"muted_by,omitempty"`
	MutedByAdmin  bool       `json:"muted_by_admin,omitempty"`
	CloseReason   string     `json:"close_reason,omitempty"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
	MessageCount  int64      `json:"message_count"`
	Unread        int64      `json:"unread"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type OpenConversationResponse struct {
	Conversation   ConversationDTO `json:"conversation"`
	Created        bool            `json:"created"`
	InitialMessage *MessageDTO     `json:"initial_message,omitempty"`
}

func FromRoom(r conversation.Room) ConversationDTO {
	return ConversationDTO{
		ID:            r.ID.String(),
		PartyA:        r.PartyA.String(),
		PartyB:        r.PartyB.String(),
		Context:       string(r.ContextType),
		ContextRef:    r.ContextRef,
		Status:        string(r.Status),
		MutedBy:       idPtr(r.MutedBy),
		MutedByAdmin:  r.MutedByAdmin,
		CloseReason:   r.CloseReason,
		ClosedAt:      timePtr(r.ClosedAt),
		MessageCount:  r.MessageCount,
		LastMessageAt: timePtr(r.LastMessageAt),
		CreatedAt:     r.CreatedAt,
	}
}

func FromSummary(s conversation.Summary) ConversationDTO {
	dto := FromRoom(s.Room)
	dto.OtherParty = s.OtherParty.String()
	dto.Unread = s.Unread
	return dto
}

func FromSummaries(items []conversation.Summary) []ConversationDTO {
	out := make([]ConversationDTO, 0, len(items))
	for _, s := range items {
		out = append(out, FromSummary(s))
	}
	return out
}
