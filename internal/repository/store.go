package repository

import (
	"context"

	"gorm.io/gorm"
)

// PostgresStore is the gorm-backed Store.
type PostgresStore struct {
	db   *gorm.DB
	inTx bool
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Rooms() RoomRepository { return NewRoomRepository(s.db) }
func (s *PostgresStore) Messages() MessageRepository { return NewMessageRepository(s.db) }
func (s *PostgresStore) Blocks() BlockRepository { return NewBlockRepository(s.db) }
func (s *PostgresStore) Reports() ReportRepository { return NewReportRepository(s.db) }
func (s *PostgresStore) Moderation() ModerationRepository { return NewModerationRepository(s.db) }

// WithinTx executes fn inside a transaction. If the store is already
// transactional, fn is executed directly.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&PostgresStore{db: tx, inTx: true})
	})
}
