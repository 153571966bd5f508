package services

import (
	"context"
	"time"

	"sentinal-safety/internal/domain/moderation"
	"sentinal-safety/internal/domain/report"

	"golang.org/x/sync/errgroup"
)

const (
	dashboardTypeWindow = 30 * 24 * time.Hour
	dashboardTopUsers   = 10
)

type DashboardStats struct {
	TotalReports     int64
	PendingReports   int64
	ResolvedReports  int64
	DismissedReports int64
	FlaggedMessages  int64
	ReportsByType    []report.TypeCount
	TopStrikeUsers   []moderation.StrikeUser
}

// Dashboard aggregates the read-only projections over the report and ledger
// tables. The queries are independent and run concurrently.
func (s *ModerationService) Dashboard(ctx context.Context) (DashboardStats, error) {
	var (
		stats    DashboardStats
		byStatus map[report.Status]int64
	)
	since := s.now().Add(-dashboardTypeWindow)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		byStatus, err = s.store.Reports().CountByStatus(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats.FlaggedMessages, err = s.store.Messages().CountFlagged(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats.ReportsByType, err = s.store.Reports().CountsByType(gctx, since)
		return err
	})
	g.Go(func() error {
		var err error
		stats.TopStrikeUsers, err = s.store.Moderation().TopStrikeUsers(gctx, dashboardTopUsers)
		return err
	})
	if err := g.Wait(); err != nil {
		return DashboardStats{}, err
	}

	for status, n := range byStatus {
		stats.TotalReports += n
		switch status {
		case report.StatusPending, report.StatusInvestigating:
			stats.PendingReports += n
		case report.StatusResolved:
			stats.ResolvedReports += n
		case report.StatusDismissed:
			stats.DismissedReports += n
		}
	}
	return stats, nil
}
