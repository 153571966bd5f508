package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"sentinal-safety/internal/domain/report"
	"sentinal-safety/internal/repository"
	sentinal_errors "sentinal-safety/pkg/errors"

	"github.com/google/uuid"
)

type reportRepo struct{ base }

func (r *reportRepo) Create(_ context.Context, rep *report.Report) error {
	return r.write(func(t *tables) error {
		ensureID(&rep.ID)
		if _, ok := t.reports[rep.ID]; ok {
			return duplicate("create report")
		}
		ensureTime(&rep.CreatedAt)
		if rep.UpdatedAt.IsZero() {
			rep.UpdatedAt = rep.CreatedAt
		}
		if rep.Status == "" {
			rep.Status = report.StatusPending
		}
		t.reports[rep.ID] = *rep
		return nil
	})
}

func (r *reportRepo) GetByID(_ context.Context, id uuid.UUID) (report.Report, error) {
	var rep report.Report
	err := r.read(func(t *tables) error {
		found, ok := t.reports[id]
		if !ok {
			return sentinal_errors.ErrNotFound
		}
		rep = found
		return nil
	})
	return rep, err
}

func (r *reportRepo) LatestNonDismissed(_ context.Context, roomID, reporterID uuid.UUID, since time.Time) (report.Report, error) {
	var (
		latest report.Report
		found  bool
	)
	_ = r.read(func(t *tables) error {
		for _, rep := range t.reports {
			if rep.RoomID != roomID || rep.ReporterID != reporterID || rep.Status == report.StatusDismissed {
				continue
			}
			if rep.CreatedAt.Before(since) {
				continue
			}
			if !found || rep.CreatedAt.After(latest.CreatedAt) {
				latest, found = rep, true
			}
		}
		return nil
	})
	if !found {
		return report.Report{}, sentinal_errors.ErrNotFound
	}
	return latest, nil
}

func (r *reportRepo) CountOpenForRoom(_ context.Context, roomID uuid.UUID) (int64, error) {
	var n int64
	_ = r.read(func(t *tables) error {
		for _, rep := range t.reports {
			if rep.RoomID == roomID && rep.Status.Open() {
				n++
			}
		}
		return nil
	})
	return n, nil
}

func (r *reportRepo) List(_ context.Context, filter report.Filter, page, limit int) ([]report.Report, int64, error) {
	reports := []report.Report{}
	_ = r.read(func(t *tables) error {
		for _, rep := range t.reports {
			if filter.Status != "" && rep.Status != filter.Status {
				continue
			}
			if filter.Type != "" && rep.Type != filter.Type {
				continue
			}
			reports = append(reports, rep)
		}
		return nil
	})
	slices.SortFunc(reports, func(a, b report.Report) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return paginate(reports, page, limit), int64(len(reports)), nil
}

func (r *reportRepo) UpdateStatus(_ context.Context, id uuid.UUID, from []report.Status, to report.Status, res repository.ReportResolution) (bool, error) {
	changed := false
	err := r.write(func(t *tables) error {
		rep, ok := t.reports[id]
		if !ok || !slices.Contains(from, rep.Status) {
			return nil
		}
		rep.Status = to
		rep.UpdatedAt = res.At
		if to.Terminal() {
			rep.ResolvedBy = res.By
			rep.ResolvedAt = nullTime(res.At)
			rep.ResolutionAction = res.Action
			rep.ResolutionNotes = res.Notes
			rep.LogEntryID = res.LogEntryID
		}
		t.reports[id] = rep
		changed = true
		return nil
	})
	return changed, err
}

func (r *reportRepo) FrequentlyReported(_ context.Context, minReports int64, limit int) ([]report.ReportedUser, error) {
	counts := make(map[uuid.UUID]int64)
	_ = r.read(func(t *tables) error {
		for _, rep := range t.reports {
			if rep.Status != report.StatusDismissed {
				counts[rep.ReportedID]++
			}
		}
		return nil
	})

	out := []report.ReportedUser{}
	for userID, n := range counts {
		if n >= minReports {
			out = append(out, report.ReportedUser{UserID: userID, ReportCount: n})
		}
	}
	slices.SortFunc(out, func(a, b report.ReportedUser) int {
		if c := cmp.Compare(b.ReportCount, a.ReportCount); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID.String(), b.UserID.String())
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *reportRepo) CountsByType(_ context.Context, since time.Time) ([]report.TypeCount, error) {
	counts := make(map[report.Type]int64)
	_ = r.read(func(t *tables) error {
		for _, rep := range t.reports {
			if !rep.CreatedAt.Before(since) {
				counts[rep.Type]++
			}
		}
		return nil
	})

	out := []report.TypeCount{}
	for typ, n := range counts {
		out = append(out, report.TypeCount{Type: typ, Count: n})
	}
	slices.SortFunc(out, func(a, b report.TypeCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Type, b.Type)
	})
	return out, nil
}

func (r *reportRepo) CountByStatus(_ context.Context) (map[report.Status]int64, error) {
	out := make(map[report.Status]int64)
	_ = r.read(func(t *tables) error {
		for _, rep := range t.reports {
			out[rep.Status]++
		}
		return nil
	})
	return out, nil
}
