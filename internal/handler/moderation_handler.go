package handler

import (
	"net/http"
	"strconv"

	"sentinal-safety/internal/domain/moderation"
	"sentinal-safety/internal/services"
	"sentinal-safety/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ModerationHandler struct {
	service *services.ModerationService
}

func NewModerationHandler(service *services.ModerationService) *ModerationHandler {
	return &ModerationHandler{service: service}
}

func (h *ModerationHandler) RecordAction(c *gin.Context) {
	var req httpdto.RecordActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	adminID, ok := caller(c)
	if !ok {
		return
	}
	targetID, errTarget := uuid.Parse(req.TargetID)
	subject, errSubject := optionalID(req.SubjectUserID)
	reportID, errReport := optionalID(req.ReportID)
	if errTarget != nil || errSubject != nil || errReport != nil {
		badRequest(c, "invalid id")
		return
	}

	res, err := h.service.RecordAction(c.Request.Context(), services.RecordActionInput{
		AdminID:         uuid.NullUUID{UUID: adminID, Valid: true},
		TargetType:      moderation.TargetType(req.TargetType),
		TargetID:        targetID,
		SubjectUserID:   subject,
		Action:          moderation.Action(req.Action),
		Reason:          req.Reason,
		DurationMinutes: req.DurationMinutes,
		ReportID:        reportID,
	})
	h.respondRecorded(c, res, err)
}

func (h *ModerationHandler) HideMessage(c *gin.Context) {
	var req httpdto.HideMessageRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	adminID, ok := caller(c)
	if !ok {
		return
	}
	messageID, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.service.RecordAction(c.Request.Context(), services.RecordActionInput{
		AdminID:  uuid.NullUUID{UUID: adminID, Valid: true},
		TargetID: messageID,
		Action:   moderation.ActionMessageHide,
		Reason:   req.Reason,
	})
	h.respondRecorded(c, res, err)
}

func (h *ModerationHandler) Ban(c *gin.Context) {
	var req httpdto.BanRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	adminID, ok := caller(c)
	if !ok {
		return
	}
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if req.DurationMinutes < 0 {
		badRequest(c, "duration_minutes must not be negative")
		return
	}

	var (
		res services.RecordActionResult
		err error
	)
	if req.DurationMinutes > 0 {
		res, err = h.service.BanTemporarily(c.Request.Context(), userID, adminID, req.DurationMinutes, req.Reason)
	} else {
		res, err = h.service.BanPermanently(c.Request.Context(), userID, adminID, req.Reason)
	}
	h.respondRecorded(c, res, err)
}

func (h *ModerationHandler) Unban(c *gin.Context) {
	var req httpdto.UnbanRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	adminID, ok := caller(c)
	if !ok {
		return
	}
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.service.Unban(c.Request.Context(), userID, adminID, req.Reason)
	h.respondRecorded(c, res, err)
}

func (h *ModerationHandler) ReconcileStrikes(c *gin.Context) {
	var req httpdto.ReconcileStrikesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	adminID, ok := caller(c)
	if !ok {
		return
	}
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	n, err := h.service.ReconcileStrikes(c.Request.Context(), userID, adminID, req.Keep, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ReconcileStrikesResponse{Superseded: n}))
}

func (h *ModerationHandler) History(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	hist, err := h.service.UserHistory(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.UserHistoryResponse{
		UserID:      userID.String(),
		Suppression: httpdto.FromSuppression(hist.Suppression),
		Banned:      hist.Banned,
		Muted:       hist.Muted,
		Strikes:     hist.Strikes,
		Entries:     httpdto.FromLogEntries(hist.Entries),
	}))
}

func (h *ModerationHandler) Appeal(c *gin.Context) {
	var req httpdto.AppealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	userID, ok := caller(c)
	if !ok {
		return
	}
	entryID, ok := pathID(c, "entryId")
	if !ok {
		return
	}
	entry, err := h.service.Appeal(c.Request.Context(), entryID, userID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromLogEntry(entry)))
}

func (h *ModerationHandler) ResolveAppeal(c *gin.Context) {
	var req httpdto.ResolveAppealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	reviewer, ok := caller(c)
	if !ok {
		return
	}
	entryID, ok := pathID(c, "entryId")
	if !ok {
		return
	}
	res, err := h.service.ResolveAppeal(c.Request.Context(), entryID, moderation.Decision(req.Decision), reviewer, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ResolveAppealResponse{
		Entry:            httpdto.FromLogEntry(res.Entry),
		FollowUpRequired: res.FollowUpRequired,
	}))
}

func (h *ModerationHandler) Dashboard(c *gin.Context) {
	stats, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.DashboardResponse{
		TotalReports:     stats.TotalReports,
		PendingReports:   stats.PendingReports,
		ResolvedReports:  stats.ResolvedReports,
		DismissedReports: stats.DismissedReports,
		FlaggedMessages:  stats.FlaggedMessages,
		ReportsByType:    httpdto.FromTypeCounts(stats.ReportsByType),
		TopStrikeUsers:   httpdto.FromStrikeUsers(stats.TopStrikeUsers),
	}))
}

func (h *ModerationHandler) respondRecorded(c *gin.Context, res services.RecordActionResult, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.NewRecordActionResponse(res.Entry, res.AutoBan, res.RoomsClosed)))
}
