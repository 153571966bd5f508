// Package memory is a map-backed repository.Store used by tests and by the
// "memory" store driver.
package memory

import (
	"context"
	"sync"

	"sentinal-safety/internal/domain/block"
	"sentinal-safety/internal/domain/conversation"
	"sentinal-safety/internal/domain/message"
	"sentinal-safety/internal/domain/moderation"
	"sentinal-safety/internal/domain/report"
	"sentinal-safety/internal/repository"

	"github.com/google/uuid"
)

type tables struct {
	rooms        map[uuid.UUID]conversation.Room
	messages     map[uuid.UUID]message.Message
	blocks       map[uuid.UUID]block.UserBlock
	suppressions map[uuid.UUID]block.Suppression
	reports      map[uuid.UUID]report.Report
	entries      map[uuid.UUID]moderation.LogEntry
}

func newTables() tables {
	return tables{
		rooms:        make(map[uuid.UUID]conversation.Room),
		messages:     make(map[uuid.UUID]message.Message),
		blocks:       make(map[uuid.UUID]block.UserBlock),
		suppressions: make(map[uuid.UUID]block.Suppression),
		reports:      make(map[uuid.UUID]report.Report),
		entries:      make(map[uuid.UUID]moderation.LogEntry),
	}
}

func (t tables) clone() tables {
	out := newTables()
	for k, v := range t.rooms {
		out.rooms[k] = v
	}
	for k, v := range t.messages {
		out.messages[k] = v
	}
	for k, v := range t.blocks {
		out.blocks[k] = v
	}
	for k, v := range t.suppressions {
		out.suppressions[k] = v
	}
	for k, v := range t.reports {
		out.reports[k] = v
	}
	for k, v := range t.entries {
		out.entries[k] = v
	}
	return out
}

// state is shared by a Store and every transactional view derived from it.
// mu guards the tables for single statements. txMu serializes transactions
// and writes made outside of one, so a rollback never discards a write it
// did not make.
type state struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	t    tables
}

type Store struct {
	st   *state
	inTx bool
}

func NewStore() *Store {
	return &Store{st: &state{t: newTables()}}
}

func (s *Store) Rooms() repository.RoomRepository { return &roomRepo{base{st: s.st, inTx: s.inTx}} }
func (s *Store) Messages() repository.MessageRepository { return &messageRepo{base{st: s.st, inTx: s.inTx}} }
func (s *Store) Blocks() repository.BlockRepository { return &blockRepo{base{st: s.st, inTx: s.inTx}} }
func (s *Store) Reports() repository.ReportRepository { return &reportRepo{base{st: s.st, inTx: s.inTx}} }
func (s *Store) Moderation() repository.ModerationRepository { return &moderationRepo{base{st: s.st, inTx: s.inTx}} }

// WithinTx runs fn while holding the transaction lock. Writes made by fn are
// rolled back if it returns an error.
func (s *Store) WithinTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.st.txMu.Lock()
	defer s.st.txMu.Unlock()

	s.st.mu.RLock()
	snapshot := s.st.t.clone()
	s.st.mu.RUnlock()

	if err := fn(&Store{st: s.st, inTx: true}); err != nil {
		s.st.mu.Lock()
		s.st.t = snapshot
		s.st.mu.Unlock()
		return err
	}
	return nil
}
