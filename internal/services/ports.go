package services

import (
	"context"
	"time"

	"sentinal-safety/internal/domain/conversation"
	"sentinal-safety/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EligibilityDecision is the answer of a context collaborator. Reason is only
// meaningful when Allowed is false.
type EligibilityDecision struct {
	Allowed bool
	Reason  string
}

func Allow() EligibilityDecision {
	return EligibilityDecision{Allowed: true}
}

func Deny(reason string) EligibilityDecision {
	return EligibilityDecision{Allowed: false, Reason: reason}
}

// ContextEligibilityGate asks the owning module whether two parties may talk
// within the declared context. partyA and partyB are already normalized.
type ContextEligibilityGate interface {
	Check(ctx context.Context, contextType conversation.ContextType, contextRef string, partyA, partyB uuid.UUID) (EligibilityDecision, error)
}

// PresenceDelivery pushes a payload to a party's live session if one exists.
// Delivery is best effort; callers only log the error.
type PresenceDelivery interface {
	Push(ctx context.Context, party uuid.UUID, payload []byte) error
}

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time

func defaultClock() time.Time {
	return time.Now().UTC()
}

func logFor(ctx context.Context) *zap.Logger {
	return logger.GetGlobalLogger().WithContext(ctx)
}

func nullUUID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}
