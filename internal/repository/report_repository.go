package repository

import (
	"context"
	"time"

	"sentinal-safety/internal/domain/report"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &PostgresReportRepository{db: db}
}

var openReportStatuses = []report.Status{report.StatusPending, report.StatusInvestigating}

func (r *PostgresReportRepository) Create(ctx context.Context, rep *report.Report) error {
	if err := r.db.WithContext(ctx).Create(rep).Error; err != nil {
		return translate("create report", err)
	}
	return nil
}

func (r *PostgresReportRepository) GetByID(ctx context.Context, id uuid.UUID) (report.Report, error) {
	var rep report.Report
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rep).Error; err != nil {
		return report.Report{}, translate("get report", err)
	}
	return rep, nil
}

func (r *PostgresReportRepository) LatestNonDismissed(ctx context.Context, roomID, reporterID uuid.UUID, since time.Time) (report.Report, error) {
	var rep report.Report
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND reporter_id = ? AND status <> ? AND created_at >= ?",
			roomID, reporterID, report.StatusDismissed, since).
		Order("created_at DESC").
		First(&rep).Error
	if err != nil {
		return report.Report{}, translate("latest report", err)
	}
	return rep, nil
}

func (r *PostgresReportRepository) CountOpenForRoom(ctx context.Context, roomID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&report.Report{}).
		Where("room_id = ? AND status IN ?", roomID, openReportStatuses).
		Count(&count).Error
	if err != nil {
		return 0, translate("count open reports", err)
	}
	return count, nil
}

func (r *PostgresReportRepository) List(ctx context.Context, filter report.Filter, page, limit int) ([]report.Report, int64, error) {
	var reports []report.Report
	var total int64

	q := r.db.WithContext(ctx).Model(&report.Report{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate("count reports", err)
	}
	if err := q.
		Order("created_at DESC").
		Offset(pageOffset(page, limit)).
		Limit(limit).
		Find(&reports).Error; err != nil {
		return nil, 0, translate("list reports", err)
	}
	return reports, total, nil
}

func (r *PostgresReportRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from []report.Status, to report.Status, res ReportResolution) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": res.At,
	}
	if to.Terminal() {
		updates["resolved_by"] = res.By
		updates["resolved_at"] = res.At
		updates["resolution_action"] = res.Action
		updates["resolution_notes"] = res.Notes
		updates["log_entry_id"] = res.LogEntryID
	}

	out := r.db.WithContext(ctx).
		Model(&report.Report{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if out.Error != nil {
		return false, translate("update report status", out.Error)
	}
	return out.RowsAffected > 0, nil
}

func (r *PostgresReportRepository) FrequentlyReported(ctx context.Context, minReports int64, limit int) ([]report.ReportedUser, error) {
	var rows []report.ReportedUser
	err := r.db.WithContext(ctx).
		Model(&report.Report{}).
		Select("reported_id AS user_id, COUNT(*) AS report_count").
		Where("status <> ?", report.StatusDismissed).
		Group("reported_id").
		Having("COUNT(*) >= ?", minReports).
		Order("report_count DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, translate("frequently reported", err)
	}
	return rows, nil
}

func (r *PostgresReportRepository) CountsByType(ctx context.Context, since time.Time) ([]report.TypeCount, error) {
	var rows []report.TypeCount
	err := r.db.WithContext(ctx).
		Model(&report.Report{}).
		Select("type, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group("type").
		Order("count DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, translate("counts by type", err)
	}
	return rows, nil
}

func (r *PostgresReportRepository) CountByStatus(ctx context.Context) (map[report.Status]int64, error) {
	var rows []struct {
		Status report.Status
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&report.Report{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, translate("count by status", err)
	}
	out := make(map[report.Status]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}
