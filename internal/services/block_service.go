package services

import (
	"context"
	"database/sql"
	"time"

	"sentinal-safety/internal/domain/block"
	"sentinal-safety/internal/repository"
	sentinal_errors "sentinal-safety/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BlockService is the registry of directed user blocks.
type BlockService struct {
	store repository.Store
	now   Clock
}

func NewBlockService(store repository.Store) *BlockService {
	return &BlockService{store: store, now: defaultClock}
}

func (s *BlockService) SetClock(c Clock) {
	s.now = c
}

type BlockInput struct {
	BlockerID uuid.UUID
	BlockedID uuid.UUID
	// Duration of zero makes the block permanent.
	Duration time.Duration
	Reason   string
	AdminID  uuid.NullUUID
}

// Block records blocker -> blocked and moves every room between the pair to
// blocked. Blocking an already blocked party returns the existing block.
func (s *BlockService) Block(ctx context.Context, in BlockInput) (block.UserBlock, error) {
	if in.BlockerID == uuid.Nil || in.BlockedID == uuid.Nil || in.BlockerID == in.BlockedID {
		return block.UserBlock{}, sentinal_errors.ErrInvalidInput
	}
	if in.Duration < 0 {
		return block.UserBlock{}, sentinal_errors.ErrInvalidInput
	}

	now := s.now()
	var result block.UserBlock
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		existing, err := tx.Blocks().ActiveBetween(ctx, in.BlockerID, in.BlockedID, now)
		if err != nil {
			return err
		}
		for _, b := range existing {
			if b.BlockerID == in.BlockerID {
				result = b
				return nil
			}
		}

		ub := block.UserBlock{
			ID:          uuid.New(),
			BlockerID:   in.BlockerID,
			BlockedID:   in.BlockedID,
			IsPermanent: in.Duration == 0,
			AdminID:     in.AdminID,
			Reason:      in.Reason,
			CreatedAt:   now,
		}
		if in.Duration > 0 {
			ub.ExpiresAt = sql.NullTime{Time: now.Add(in.Duration), Valid: true}
		}
		if err := tx.Blocks().Create(ctx, &ub); err != nil {
			return err
		}

		actor := nullUUID(in.BlockerID)
		if in.AdminID.Valid {
			actor = in.AdminID
		}
		moved, err := markPairBlocked(ctx, tx.Rooms(), in.BlockerID, in.BlockedID, actor, now)
		if err != nil {
			return err
		}
		logFor(ctx).Info("user blocked",
			zap.String("blocker", in.BlockerID.String()),
			zap.String("blocked", in.BlockedID.String()),
			zap.Int("rooms_blocked", moved))
		result = ub
		return nil
	})
	if err != nil {
		return block.UserBlock{}, err
	}
	return result, nil
}

// AdminBlock blocks the pair in both directions on behalf of a moderator.
func (s *BlockService) AdminBlock(ctx context.Context, adminID, a, b uuid.UUID, duration time.Duration, reason string) ([]block.UserBlock, error) {
	var out []block.UserBlock
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		scoped := &BlockService{store: tx, now: s.now}
		for _, pair := range [][2]uuid.UUID{{a, b}, {b, a}} {
			ub, err := scoped.Block(ctx, BlockInput{
				BlockerID: pair[0],
				BlockedID: pair[1],
				Duration:  duration,
				Reason:    reason,
				AdminID:   nullUUID(adminID),
			})
			if err != nil {
				return err
			}
			out = append(out, ub)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Unblock lifts blocker -> blocked. Rooms return to active only when no block
// remains in either direction. Unblocking a party that is not blocked is a
// no-op.
func (s *BlockService) Unblock(ctx context.Context, blocker, blocked uuid.UUID) error {
	if blocker == uuid.Nil || blocked == uuid.Nil || blocker == blocked {
		return sentinal_errors.ErrInvalidInput
	}
	now := s.now()
	return s.store.WithinTx(ctx, func(tx repository.Store) error {
		lifted, err := tx.Blocks().Lift(ctx, blocker, blocked, now)
		if err != nil || lifted == 0 {
			return err
		}
		remaining, err := tx.Blocks().ActiveBetween(ctx, blocker, blocked, now)
		if err != nil {
			return err
		}
		if len(remaining) > 0 {
			return nil
		}
		_, err = restorePairRooms(ctx, tx.Rooms(), blocker, blocked, now)
		return err
	})
}

func (s *BlockService) ListBlocks(ctx context.Context, blocker uuid.UUID) ([]block.UserBlock, error) {
	return s.store.Blocks().ActiveByBlocker(ctx, blocker, s.now())
}

// IsBlocked reports whether an active block exists in either direction.
func (s *BlockService) IsBlocked(ctx context.Context, a, b uuid.UUID) (bool, error) {
	blocks, err := s.store.Blocks().ActiveBetween(ctx, a, b, s.now())
	if err != nil {
		return false, err
	}
	return len(blocks) > 0, nil
}
