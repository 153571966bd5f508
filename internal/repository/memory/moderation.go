package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"sentinal-safety/internal/domain/moderation"
	sentinal_errors "sentinal-safety/pkg/errors"

	"github.com/google/uuid"
)

type moderationRepo struct{ base }

func isLiveStrike(e moderation.LogEntry, userID uuid.UUID) bool {
	return e.SubjectUserID.Valid && e.SubjectUserID.UUID == userID && e.Action.IsStrike() && !e.IsSuperseded
}

func (r *moderationRepo) Create(_ context.Context, e *moderation.LogEntry) error {
	return r.write(func(t *tables) error {
		ensureID(&e.ID)
		if _, ok := t.entries[e.ID]; ok {
			return duplicate("create moderation entry")
		}
		ensureTime(&e.CreatedAt)
		if e.AppealStatus == "" {
			e.AppealStatus = moderation.AppealNone
		}
		t.entries[e.ID] = *e
		return nil
	})
}

func (r *moderationRepo) GetByID(_ context.Context, id uuid.UUID) (moderation.LogEntry, error) {
	var e moderation.LogEntry
	err := r.read(func(t *tables) error {
		found, ok := t.entries[id]
		if !ok {
			return sentinal_errors.ErrNotFound
		}
		e = found
		return nil
	})
	return e, err
}

func (r *moderationRepo) CountStrikes(_ context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	_ = r.read(func(t *tables) error {
		for _, e := range t.entries {
			if isLiveStrike(e, userID) {
				n++
			}
		}
		return nil
	})
	return n, nil
}

func (r *moderationRepo) ListForUser(_ context.Context, userID uuid.UUID, limit int) ([]moderation.LogEntry, error) {
	out := []moderation.LogEntry{}
	_ = r.read(func(t *tables) error {
		for _, e := range t.entries {
			if e.SubjectUserID.Valid && e.SubjectUserID.UUID == userID {
				out = append(out, e)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b moderation.LogEntry) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *moderationRepo) FileAppeal(_ context.Context, id uuid.UUID, reason string, at time.Time) (bool, error) {
	filed := false
	err := r.write(func(t *tables) error {
		e, ok := t.entries[id]
		if !ok || e.AppealStatus != moderation.AppealNone {
			return nil
		}
		e.AppealStatus = moderation.AppealPending
		e.AppealReason = reason
		e.AppealedAt = nullTime(at)
		t.entries[id] = e
		filed = true
		return nil
	})
	return filed, err
}

func (r *moderationRepo) ResolveAppeal(_ context.Context, id uuid.UUID, status moderation.AppealStatus, reviewer uuid.UUID, notes string, at time.Time) (bool, error) {
	resolved := false
	err := r.write(func(t *tables) error {
		e, ok := t.entries[id]
		if !ok || e.AppealStatus != moderation.AppealPending {
			return nil
		}
		e.AppealStatus = status
		e.AppealReviewedBy = uuid.NullUUID{UUID: reviewer, Valid: true}
		e.AppealReviewNotes = notes
		e.AppealReviewedAt = nullTime(at)
		t.entries[id] = e
		resolved = true
		return nil
	})
	return resolved, err
}

func (r *moderationRepo) SupersedeStrikes(_ context.Context, userID uuid.UUID, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	var n int64
	err := r.write(func(t *tables) error {
		var live []moderation.LogEntry
		for _, e := range t.entries {
			if isLiveStrike(e, userID) {
				live = append(live, e)
			}
		}
		slices.SortFunc(live, func(a, b moderation.LogEntry) int { return b.CreatedAt.Compare(a.CreatedAt) })
		for i := keep; i < len(live); i++ {
			e := live[i]
			e.IsSuperseded = true
			t.entries[e.ID] = e
			n++
		}
		return nil
	})
	return n, err
}

func (r *moderationRepo) TopStrikeUsers(_ context.Context, limit int) ([]moderation.StrikeUser, error) {
	counts := make(map[uuid.UUID]int64)
	_ = r.read(func(t *tables) error {
		for _, e := range t.entries {
			if e.SubjectUserID.Valid && e.Action.IsStrike() && !e.IsSuperseded {
				counts[e.SubjectUserID.UUID]++
			}
		}
		return nil
	})

	out := []moderation.StrikeUser{}
	for userID, n := range counts {
		out = append(out, moderation.StrikeUser{UserID: userID, Strikes: n})
	}
	slices.SortFunc(out, func(a, b moderation.StrikeUser) int {
		if c := cmp.Compare(b.Strikes, a.Strikes); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID.String(), b.UserID.String())
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
