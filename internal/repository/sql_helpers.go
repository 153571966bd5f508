package repository

import (
	"errors"
	"fmt"

	sentinal_errors "sentinal-safety/pkg/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// translate maps store errors onto the sentinel taxonomy. Anything that is
// not a known store condition is wrapped with op for the logs and classified
// as an internal failure.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return sentinal_errors.ErrNotFound
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, sentinal_errors.ErrAlreadyExists)
	default:
		return fmt.Errorf("%s: %w: %v", op, sentinal_errors.ErrInternal, err)
	}
}

func pageOffset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}

// NormalizePage clamps pagination input to sane bounds.
func NormalizePage(page, limit, def, max int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	return page, limit
}
