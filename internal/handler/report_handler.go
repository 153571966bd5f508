package handler

import (
	"net/http"
	"strconv"
	"time"

	"sentinal-safety/internal/domain/moderation"
	"sentinal-safety/internal/domain/report"
	"sentinal-safety/internal/services"
	"sentinal-safety/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ReportHandler struct {
	service       *services.ReportService
	evidence      *services.EvidenceService
	reviewContext int
}

// NewReportHandler wires report intake and review. reviewContext is the
// number of room messages shown next to a report.
func NewReportHandler(service *services.ReportService, evidence *services.EvidenceService, reviewContext int) *ReportHandler {
	return &ReportHandler{service: service, evidence: evidence, reviewContext: reviewContext}
}

func (h *ReportHandler) File(c *gin.Context) {
	var req httpdto.FileReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	reporter, ok := caller(c)
	if !ok {
		return
	}
	roomID, errRoom := uuid.Parse(req.RoomID)
	reported, errReported := uuid.Parse(req.ReportedID)
	messageID, errMsg := optionalID(req.MessageID)
	if errRoom != nil || errReported != nil || errMsg != nil {
		badRequest(c, "invalid id")
		return
	}

	res, err := h.service.FileReport(c.Request.Context(), services.FileReportInput{
		RoomID:      roomID,
		MessageID:   messageID,
		ReporterID:  reporter,
		ReportedID:  reported,
		Type:        report.Type(req.Type),
		Description: req.Description,
		EvidenceKey: req.EvidenceKey,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.FileReportResponse{
		Report:    httpdto.FromReport(res.Report),
		Escalated: res.Escalated,
	}))
}

func (h *ReportHandler) CreateEvidenceUpload(c *gin.Context) {
	var req httpdto.EvidenceUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	reporter, ok := caller(c)
	if !ok {
		return
	}
	upload, err := h.evidence.CreateUpload(c.Request.Context(), services.EvidenceUploadInput{
		ReporterID:  reporter,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		FileSize:    req.FileSize,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.EvidenceUploadResponse{
		UploadURL: upload.UploadURL,
		Key:       upload.Key,
		Headers:   upload.Headers,
	}))
}

func (h *ReportHandler) List(c *gin.Context) {
	page, limit := pageParams(c)
	filter := report.Filter{
		Status: report.Status(c.Query("status")),
		Type:   report.Type(c.Query("type")),
	}
	items, total, err := h.service.ListReports(c.Request.Context(), filter, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.Page[httpdto.ReportDTO]{
		Items: httpdto.FromReports(items),
		Total: total,
	}))
}

func (h *ReportHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	detail, err := h.service.GetReportDetail(c.Request.Context(), id, h.reviewContext)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ReportDetailResponse{
		Report:       httpdto.FromReport(detail.Report),
		Conversation: httpdto.FromRoom(detail.Room),
		Messages:     httpdto.FromMessages(detail.Messages),
	}))
}

func (h *ReportHandler) Investigate(c *gin.Context) {
	adminID, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	rep, err := h.service.StartInvestigation(c.Request.Context(), id, adminID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromReport(rep)))
}

func (h *ReportHandler) Resolve(c *gin.Context) {
	var req httpdto.ResolveReportRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	adminID, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	res, err := h.service.Resolve(c.Request.Context(), services.ResolveReportInput{
		ReportID:        id,
		AdminID:         adminID,
		Action:          moderation.Action(req.Action),
		Notes:           req.Notes,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	out := httpdto.ResolveReportResponse{Report: httpdto.FromReport(res.Report)}
	if res.Moderation != nil {
		m := httpdto.NewRecordActionResponse(res.Moderation.Entry, res.Moderation.AutoBan, res.Moderation.RoomsClosed)
		out.Moderation = &m
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(out))
}

func (h *ReportHandler) Dismiss(c *gin.Context) {
	var req httpdto.DismissReportRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	adminID, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	rep, err := h.service.Dismiss(c.Request.Context(), id, adminID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromReport(rep)))
}

// Frequent lists users with at least min_reports reports.
func (h *ReportHandler) Frequent(c *gin.Context) {
	minReports, _ := strconv.ParseInt(c.Query("min_reports"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit"))
	items, err := h.service.FrequentlyReported(c.Request.Context(), minReports, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromReportedUsers(items)))
}

// Stats buckets reports by type over the trailing window_days.
func (h *ReportHandler) Stats(c *gin.Context) {
	days, _ := strconv.Atoi(c.Query("window_days"))
	items, err := h.service.CountsByType(c.Request.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.FromTypeCounts(items)))
}
