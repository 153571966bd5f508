package httpdto

import (
	"time"

	"sentinal-safety/internal/domain/report"
)

type FileReportRequest struct {
	RoomID      string `json:"room_id" binding:"required"`
	MessageID   string `json:"message_id"`
	ReportedID  string `json:"reported_id" binding:"required"`
	Type        string `json:"type" binding:"required"`
	Description string `json:"description"`
	EvidenceKey string `json:"evidence_key"`
}

type FileReportResponse struct {
	Report    ReportDTO `json:"report"`
	Escalated bool      `json:"escalated"`
}

type EvidenceUploadRequest struct {
	FileName    string `json:"file_name" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
	FileSize    int64  `json:"file_size" binding:"required"`
}

type EvidenceUploadResponse struct {
	UploadURL string            `json:"upload_url"`
	Key       string            `json:"key"`
	Headers   map[string]string `json:"headers,omitempty"`
}

type ResolveReportRequest struct {
	Action          string `json:"action"`
	Notes           string `json:"notes"`
	DurationMinutes int    `json:"duration_minutes"`
}

type DismissReportRequest struct {
	Reason string `json:"reason"`
}

type ReportDTO struct {
	ID               string     `json:"id"`
	RoomID           string     `json:"room_id"`
	MessageID        *string    `json:"message_id,omitempty"`
	ReporterID       string     `json:"reporter_id"`
	ReportedID       string     `json:"reported_id"`
	Type             string     `json:"type"`
	Description      string     `json:"description,omitempty"`
	EvidenceKey      string     `json:"evidence_key,omitempty"`
	Status           string     `json:"status"`
	ResolvedBy       *string    `json:"resolved_by,omitempty"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
	ResolutionAction string     `json:"resolution_action,omitempty"`
	ResolutionNotes  string     `json:"resolution_notes,omitempty"`
	LogEntryID       *string    `json:"log_entry_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func FromReport(r report.Report) ReportDTO {
	return ReportDTO{
		ID:               r.ID.String(),
		RoomID:           r.RoomID.String(),
		MessageID:        idPtr(r.MessageID),
		ReporterID:       r.ReporterID.String(),
		ReportedID:       r.ReportedID.String(),
		Type:             string(r.Type),
		Description:      r.Description,
		EvidenceKey:      r.EvidenceKey,
		Status:           string(r.Status),
		ResolvedBy:       idPtr(r.ResolvedBy),
		ResolvedAt:       timePtr(r.ResolvedAt),
		ResolutionAction: r.ResolutionAction,
		ResolutionNotes:  r.ResolutionNotes,
		LogEntryID:       idPtr(r.LogEntryID),
		CreatedAt:        r.CreatedAt,
	}
}

func FromReports(items []report.Report) []ReportDTO {
	out := make([]ReportDTO, 0, len(items))
	for _, r := range items {
		out = append(out, FromReport(r))
	}
	return out
}

type ReportDetailResponse struct {
	Report       ReportDTO       `json:"report"`
	Conversation ConversationDTO `json:"conversation"`
	Messages     []MessageDTO    `json:"messages"`
}

type ResolveReportResponse struct {
	Report     ReportDTO             `json:"report"`
	Moderation *RecordActionResponse `json:"moderation,omitempty"`
}

type ReportedUserDTO struct {
	UserID      string `json:"user_id"`
	ReportCount int64  `json:"report_count"`
}

func FromReportedUsers(items []report.ReportedUser) []ReportedUserDTO {
	out := make([]ReportedUserDTO, 0, len(items))
	for _, u := range items {
		out = append(out, ReportedUserDTO{UserID: u.UserID.String(), ReportCount: u.ReportCount})
	}
	return out
}

type TypeCountDTO struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

func FromTypeCounts(items []report.TypeCount) []TypeCountDTO {
	out := make([]TypeCountDTO, 0, len(items))
	for _, t := range items {
		out = append(out, TypeCountDTO{Type: string(t.Type), Count: t.Count})
	}
	return out
}
