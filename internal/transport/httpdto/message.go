package httpdto

import (
	"time"

	"sentinal-safety/internal/domain/message"
)

type SendMessageRequest struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	ReplyTo string `json:"reply_to"`
}

type MessageDTO struct {
	ID          string     `json:"id"`
	RoomID      string     `json:"room_id"`
	SenderID    string     `json:"sender_id"`
	Seq         int64      `json:"seq"`
	Type        string     `json:"type"`
	Content     string     `json:"content"`
	IsFlagged   bool       `json:"is_flagged"`
	Flags       []string   `json:"flags,omitempty"`
	IsHidden    bool       `json:"is_hidden,omitempty"`
	IsRetracted bool       `json:"is_retracted,omitempty"`
	ReplyTo     *string    `json:"reply_to,omitempty"`
	SentAt      time.Time  `json:"sent_at"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}

func FromMessage(m message.Message) MessageDTO {
	return MessageDTO{
		ID:          m.ID.String(),
		RoomID:      m.RoomID.String(),
		SenderID:    m.SenderID.String(),
		Seq:         m.Seq,
		Type:        string(m.Type),
		Content:     m.Content,
		IsFlagged:   m.IsFlagged,
		Flags:       flagNames(m.SafetyFlags),
		IsHidden:    m.IsHidden,
		IsRetracted: m.IsRetracted,
		ReplyTo:     idPtr(m.ReplyToID),
		SentAt:      m.SentAt,
		ReadAt:      timePtr(m.ReadAt),
	}
}

func FromMessages(items []message.Message) []MessageDTO {
	out := make([]MessageDTO, 0, len(items))
	for _, m := range items {
		out = append(out, FromMessage(m))
	}
	return out
}

func flagNames(f message.SafetyFlags) []string {
	var out []string
	if f.ContainsPhone {
		out = append(out, "phone")
	}
	if f.ContainsEmail {
		out = append(out, "email")
	}
	if f.ContainsPaymentHandle {
		out = append(out, "payment_handle")
	}
	if f.ContainsExternalLink {
		out = append(out, "external_link")
	}
	return out
}
