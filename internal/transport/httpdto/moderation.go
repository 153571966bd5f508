package httpdto

import (
	"time"

	"sentinal-safety/internal/domain/block"
	"sentinal-safety/internal/domain/moderation"
)

type RecordActionRequest struct {
	TargetType      string `json:"target_type"`
	TargetID        string `json:"target_id" binding:"required"`
	SubjectUserID   string `json:"subject_user_id"`
	Action          string `json:"action" binding:"required"`
	Reason          string `json:"reason"`
	DurationMinutes int    `json:"duration_minutes"`
	ReportID        string `json:"report_id"`
}

// BanRequest bans for DurationMinutes, or permanently when it is zero.
type BanRequest struct {
	DurationMinutes int    `json:"duration_minutes"`
	Reason          string `json:"reason"`
}

type UnbanRequest struct {
	Reason string `json:"reason"`
}

type HideMessageRequest struct {
	Reason string `json:"reason"`
}

type ReconcileStrikesRequest struct {
	Keep   int    `json:"keep"`
	Reason string `json:"reason" binding:"required"`
}

type ReconcileStrikesResponse struct {
	Superseded int64 `json:"superseded"`
}

type AppealRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type ResolveAppealRequest struct {
	Decision string `json:"decision" binding:"required"`
	Notes    string `json:"notes"`
}

type ResolveAppealResponse struct {
	Entry            LogEntryDTO `json:"entry"`
	FollowUpRequired bool        `json:"follow_up_required"`
}

type LogEntryDTO struct {
	ID              string     `json:"id"`
	AdminID         *string    `json:"admin_id,omitempty"`
	TargetType      string     `json:"target_type"`
	TargetID        string     `json:"target_id"`
	SubjectUserID   *string    `json:"subject_user_id,omitempty"`
	RoomID          *string    `json:"room_id,omitempty"`
	MessageID       *string    `json:"message_id,omitempty"`
	ReportID        *string    `json:"report_id,omitempty"`
	Action          string     `json:"action"`
	Reason          string     `json:"reason,omitempty"`
	DurationMinutes *int32     `json:"duration_minutes,omitempty"`
	StrikeCount     int        `json:"strike_count"`
	IsSuperseded    bool       `json:"is_superseded,omitempty"`
	IsAutomatic     bool       `json:"is_automatic,omitempty"`
	AppealEligible  bool       `json:"appeal_eligible"`
	AppealDeadline  *time.Time `json:"appeal_deadline,omitempty"`
	AppealStatus    string     `json:"appeal_status"`
	AppealReason    string     `json:"appeal_reason,omitempty"`
	AppealedAt      *time.Time `json:"appealed_at,omitempty"`
	AppealReviewBy  *string    `json:"appeal_reviewed_by,omitempty"`
	AppealNotes     string     `json:"appeal_review_notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func FromLogEntry(e moderation.LogEntry) LogEntryDTO {
	dto := LogEntryDTO{
		ID:             e.ID.String(),
		AdminID:        idPtr(e.AdminID),
		TargetType:     string(e.TargetType),
		TargetID:       e.TargetID.String(),
		SubjectUserID:  idPtr(e.SubjectUserID),
		RoomID:         idPtr(e.RoomID),
		MessageID:      idPtr(e.MessageID),
		ReportID:       idPtr(e.ReportID),
		Action:         string(e.Action),
		Reason:         e.Reason,
		StrikeCount:    e.StrikeCount,
		IsSuperseded:   e.IsSuperseded,
		IsAutomatic:    e.IsAutomatic,
		AppealEligible: e.AppealEligible,
		AppealDeadline: timePtr(e.AppealDeadline),
		AppealStatus:   string(e.AppealStatus),
		AppealReason:   e.AppealReason,
		AppealedAt:     timePtr(e.AppealedAt),
		AppealReviewBy: idPtr(e.AppealReviewedBy),
		AppealNotes:    e.AppealReviewNotes,
		CreatedAt:      e.CreatedAt,
	}
	if e.DurationMinutes.Valid {
		v := e.DurationMinutes.Int32
		dto.DurationMinutes = &v
	}
	return dto
}

func FromLogEntries(items []moderation.LogEntry) []LogEntryDTO {
	out := make([]LogEntryDTO, 0, len(items))
	for _, e := range items {
		out = append(out, FromLogEntry(e))
	}
	return out
}

type RecordActionResponse struct {
	Entry       LogEntryDTO  `json:"entry"`
	AutoBan     *LogEntryDTO `json:"auto_ban,omitempty"`
	RoomsClosed int          `json:"rooms_closed"`
}

func NewRecordActionResponse(entry moderation.LogEntry, autoBan *moderation.LogEntry, roomsClosed int) RecordActionResponse {
	res := RecordActionResponse{Entry: FromLogEntry(entry), RoomsClosed: roomsClosed}
	if autoBan != nil {
		dto := FromLogEntry(*autoBan)
		res.AutoBan = &dto
	}
	return res
}

type SuppressionDTO struct {
	Kind        string     `json:"kind"`
	IsPermanent bool       `json:"is_permanent,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Reason      string     `json:"reason,omitempty"`
}

func FromSuppression(s block.Suppression) SuppressionDTO {
	kind := string(s.Kind)
	if kind == "" {
		kind = string(block.SuppressionNone)
	}
	return SuppressionDTO{Kind: kind, IsPermanent: s.IsPermanent, ExpiresAt: timePtr(s.ExpiresAt), Reason: s.Reason}
}

type UserHistoryResponse struct {
	UserID      string         `json:"user_id"`
	Suppression SuppressionDTO `json:"suppression"`
	Banned      bool           `json:"banned"`
	Muted       bool           `json:"muted"`
	Strikes     int64          `json:"strikes"`
	Entries     []LogEntryDTO  `json:"entries"`
}

type StrikeUserDTO struct {
	UserID  string `json:"user_id"`
	Strikes int64  `json:"strikes"`
}

type DashboardResponse struct {
	TotalReports     int64           `json:"total_reports"`
	PendingReports   int64           `json:"pending_reports"`
	ResolvedReports  int64           `json:"resolved_reports"`
	DismissedReports int64           `json:"dismissed_reports"`
	FlaggedMessages  int64           `json:"flagged_messages"`
	ReportsByType    []TypeCountDTO  `json:"reports_by_type"`
	TopStrikeUsers   []StrikeUserDTO `json:"top_strike_users"`
}

func FromStrikeUsers(items []moderation.StrikeUser) []StrikeUserDTO {
	out := make([]StrikeUserDTO, 0, len(items))
	for _, u := range items {
		out = append(out, StrikeUserDTO{UserID: u.UserID.String(), Strikes: u.Strikes})
	}
	return out
}
