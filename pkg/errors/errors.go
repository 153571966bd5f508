package sentinal_errors

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned across a service boundary is one of
// these or wraps one of them.
var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidInput      = errors.New("invalid input")
	ErrRateLimited       = errors.New("rate limited")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInternal          = errors.New("internal failure")
)

// Conversation and messaging errors.
var (
	ErrSelfConversation  = fmt.Errorf("cannot open a conversation with yourself: %w", ErrInvalidInput)
	ErrPartiesBlocked    = fmt.Errorf("parties are blocked: %w", ErrForbidden)
	ErrIneligibleContext = fmt.Errorf("conversation context is not eligible: %w", ErrForbidden)
	ErrUserSuspended     = fmt.Errorf("user is suspended: %w", ErrForbidden)
	ErrRoomInactive      = fmt.Errorf("room is not active: %w", ErrInvalidTransition)
	ErrSenderMuted       = fmt.Errorf("sender is muted in this room: %w", ErrInvalidTransition)
	ErrEmptyContent      = fmt.Errorf("message content is empty: %w", ErrInvalidInput)
	ErrContentTooLong    = fmt.Errorf("message content is too long: %w", ErrInvalidInput)
)

// Reporting and moderation errors.
var (
	ErrDuplicateReport    = fmt.Errorf("report already filed for this room within the cool-down window: %w", ErrRateLimited)
	ErrReportClosed       = fmt.Errorf("report is already resolved or dismissed: %w", ErrInvalidTransition)
	ErrNotAppealable      = fmt.Errorf("moderation entry is not appealable: %w", ErrInvalidTransition)
	ErrAppealWindowClosed = fmt.Errorf("appeal window has closed: %w", ErrInvalidTransition)
	ErrAppealNotPending   = fmt.Errorf("no pending appeal for this entry: %w", ErrInvalidTransition)
	ErrAppealAlreadyFiled = fmt.Errorf("an appeal was already filed for this entry: %w", ErrInvalidTransition)
	ErrSubjectRequired    = fmt.Errorf("a subject user is required for this action: %w", ErrInvalidInput)
	ErrUnknownAction      = fmt.Errorf("unknown moderation action: %w", ErrInvalidInput)
	ErrAlreadySuspended   = fmt.Errorf("user is already under an equal or stronger ban: %w", ErrConflict)
	ErrNotSuspended       = fmt.Errorf("user has no active ban: %w", ErrInvalidTransition)
)
