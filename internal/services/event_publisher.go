package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Event types fanned out to other modules after a commit.
const (
	EventMessageNew       = "message.new"
	EventReportFiled      = "report.filed"
	EventRoomEscalated    = "room.escalated"
	EventModerationAction = "moderation.action"
	EventUserBanned       = "user.banned"
	EventAppealFiled      = "appeal.filed"
	EventAppealResolved   = "appeal.resolved"
)

// Event is the envelope published for trust & safety state changes.
type Event struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// EventPublisher fans committed state changes out to interested consumers.
// Publishing happens after the transaction commits and never fails the
// operation that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, evt Event) error
}

func publish(ctx context.Context, p EventPublisher, evt Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, evt); err != nil {
		logFor(ctx).Warn("event publish failed", zap.String("type", evt.Type), zap.Error(err))
	}
}
