package memory

import (
	"database/sql"
	"fmt"
	"time"

	sentinal_errors "sentinal-safety/pkg/errors"

	"github.com/google/uuid"
)

type base struct {
	st   *state
	inTx bool
}

func (b base) write(fn func(t *tables) error) error {
	if !b.inTx {
		b.st.txMu.Lock()
		defer b.st.txMu.Unlock()
	}
	b.st.mu.Lock()
	defer b.st.mu.Unlock()
	return fn(&b.st.t)
}

func (b base) read(fn func(t *tables) error) error {
	b.st.mu.RLock()
	defer b.st.mu.RUnlock()
	return fn(&b.st.t)
}

func duplicate(op string) error {
	return fmt.Errorf("%s: %w", op, sentinal_errors.ErrAlreadyExists)
}

func paginate[T any](items []T, page, limit int) []T {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		return items
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: true}
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func ensureTime(t *time.Time) {
	if t.IsZero() {
		*t = time.Now()
	}
}
