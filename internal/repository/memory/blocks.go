package memory

import (
	"context"
	"slices"
	"time"

	"sentinal-safety/internal/domain/block"
	sentinal_errors "sentinal-safety/pkg/errors"

	"github.com/google/uuid"
)

type blockRepo struct{ base }

func (r *blockRepo) Create(_ context.Context, b *block.UserBlock) error {
	return r.write(func(t *tables) error {
		ensureID(&b.ID)
		if _, ok := t.blocks[b.ID]; ok {
			return duplicate("create block")
		}
		ensureTime(&b.CreatedAt)
		t.blocks[b.ID] = *b
		return nil
	})
}

func (r *blockRepo) ActiveBetween(_ context.Context, a, b uuid.UUID, now time.Time) ([]block.UserBlock, error) {
	var out []block.UserBlock
	_ = r.read(func(t *tables) error {
		for _, ub := range t.blocks {
			pair := (ub.BlockerID == a && ub.BlockedID == b) || (ub.BlockerID == b && ub.BlockedID == a)
			if pair && ub.ActiveAt(now) {
				out = append(out, ub)
			}
		}
		return nil
	})
	return out, nil
}

func (r *blockRepo) ActiveByBlocker(_ context.Context, blocker uuid.UUID, now time.Time) ([]block.UserBlock, error) {
	out := []block.UserBlock{}
	_ = r.read(func(t *tables) error {
		for _, ub := range t.blocks {
			if ub.BlockerID == blocker && ub.ActiveAt(now) {
				out = append(out, ub)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(x, y block.UserBlock) int { return y.CreatedAt.Compare(x.CreatedAt) })
	return out, nil
}

func (r *blockRepo) Lift(_ context.Context, blocker, blocked uuid.UUID, at time.Time) (int64, error) {
	var n int64
	err := r.write(func(t *tables) error {
		for id, ub := range t.blocks {
			if ub.BlockerID == blocker && ub.BlockedID == blocked && !ub.LiftedAt.Valid {
				ub.LiftedAt = nullTime(at)
				t.blocks[id] = ub
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *blockRepo) GetSuppression(_ context.Context, userID uuid.UUID) (block.Suppression, error) {
	var s block.Suppression
	err := r.read(func(t *tables) error {
		found, ok := t.suppressions[userID]
		if !ok {
			return sentinal_errors.ErrNotFound
		}
		s = found
		return nil
	})
	return s, err
}

func (r *blockRepo) EnsureSuppression(_ context.Context, userID uuid.UUID, now time.Time) error {
	return r.write(func(t *tables) error {
		if _, ok := t.suppressions[userID]; !ok {
			t.suppressions[userID] = block.Suppression{UserID: userID, Kind: block.SuppressionNone, UpdatedAt: now}
		}
		return nil
	})
}

func (r *blockRepo) LockSuppression(ctx context.Context, userID uuid.UUID) (block.Suppression, error) {
	return r.GetSuppression(ctx, userID)
}

func (r *blockRepo) ApplySuppression(_ context.Context, s block.Suppression, now time.Time) (bool, error) {
	applied := false
	err := r.write(func(t *tables) error {
		current, ok := t.suppressions[s.UserID]
		if !ok {
			return nil
		}
		if s.Kind == block.SuppressionBan && s.IsPermanent {
			if current.Kind == block.SuppressionBan && current.IsPermanent {
				return nil
			}
		} else if current.BannedAt(now) {
			return nil
		}
		s.UpdatedAt = now
		t.suppressions[s.UserID] = s
		applied = true
		return nil
	})
	return applied, err
}

func (r *blockRepo) ClearSuppression(_ context.Context, userID uuid.UUID, kind block.SuppressionKind, now time.Time) (bool, error) {
	cleared := false
	err := r.write(func(t *tables) error {
		current, ok := t.suppressions[userID]
		if !ok || current.Kind != kind {
			return nil
		}
		current.Kind = block.SuppressionNone
		current.IsPermanent = false
		current.ExpiresAt.Valid = false
		current.UpdatedAt = now
		t.suppressions[userID] = current
		cleared = true
		return nil
	})
	return cleared, err
}
