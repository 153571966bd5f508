package services

import (
	"context"
	"sync"
	"time"

	"sentinal-safety/config"
	"sentinal-safety/internal/domain/conversation"
	"sentinal-safety/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type fakeGate struct {
	mu     sync.Mutex
	deny   map[conversation.ContextType]string
	err    error
	checks int
}

func (g *fakeGate) Check(_ context.Context, contextType conversation.ContextType, _ string, _, _ uuid.UUID) (EligibilityDecision, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checks++
	if g.err != nil {
		return EligibilityDecision{}, g.err
	}
	if reason, ok := g.deny[contextType]; ok {
		return Deny(reason), nil
	}
	return Allow(), nil
}

type pushed struct {
	party   uuid.UUID
	payload []byte
}

type fakeDelivery struct {
	mu     sync.Mutex
	pushes []pushed
	err    error
	done   chan struct{}
}

func newFakeDelivery() *fakeDelivery {
	return &fakeDelivery{done: make(chan struct{}, 64)}
}

func (d *fakeDelivery) Push(_ context.Context, party uuid.UUID, payload []byte) error {
	d.mu.Lock()
	d.pushes = append(d.pushes, pushed{party: party, payload: payload})
	err := d.err
	d.mu.Unlock()
	d.done <- struct{}{}
	return err
}

func (d *fakeDelivery) all() []pushed {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]pushed(nil), d.pushes...)
}

type fakeEvents struct {
	mu     sync.Mutex
	events []Event
}

func (e *fakeEvents) Publish(_ context.Context, evt Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, evt)
	return nil
}

func (e *fakeEvents) count(eventType string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, evt := range e.events {
		if evt.Type == eventType {
			n++
		}
	}
	return n
}

// testClock is a settable clock shared by every service of a fixture.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// ServiceSuite wires every service over one memory store.
type ServiceSuite struct {
	suite.Suite
	ctx      context.Context
	store    *memory.Store
	gate     *fakeGate
	delivery *fakeDelivery
	events   *fakeEvents
	clock    *testClock
	cfg      config.ModerationConfig

	conversations *ConversationService
	messages      *MessageService
	blocks        *BlockService
	moderation    *ModerationService
	reports       *ReportService

	alice uuid.UUID
	bob   uuid.UUID
	carol uuid.UUID
	admin uuid.UUID
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.NewStore()
	s.gate = &fakeGate{deny: map[conversation.ContextType]string{}}
	s.delivery = newFakeDelivery()
	s.events = &fakeEvents{}
	s.clock = &testClock{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	if s.cfg == (config.ModerationConfig{}) {
		s.cfg = config.DefaultModeration()
	}

	s.messages = NewMessageService(s.store, s.delivery, s.cfg, nil)
	s.messages.SetClock(s.clock.Now)
	s.conversations = NewConversationService(s.store, s.gate, s.messages, nil)
	s.conversations.SetClock(s.clock.Now)
	s.blocks = NewBlockService(s.store)
	s.blocks.SetClock(s.clock.Now)
	s.moderation = NewModerationService(s.store, s.events, s.cfg, nil)
	s.moderation.SetClock(s.clock.Now)
	s.reports = NewReportService(s.store, s.messages, s.moderation, s.events, s.cfg, nil)
	s.reports.SetClock(s.clock.Now)

	s.alice = uuid.New()
	s.bob = uuid.New()
	s.carol = uuid.New()
	s.admin = uuid.New()
}

func (s *ServiceSuite) openRoom(a, b uuid.UUID) conversation.Room {
	res, err := s.conversations.OpenConversation(s.ctx, OpenConversationInput{
		Initiator:  a,
		OtherParty: b,
		Context:    conversation.ContextMatrimonial,
		ContextRef: "profile-match",
	})
	s.Require().NoError(err)
	return res.Room
}

func (s *ServiceSuite) room(id uuid.UUID) conversation.Room {
	room, err := s.store.Rooms().GetByID(s.ctx, id)
	s.Require().NoError(err)
	return room
}

// waitDeliveries blocks until n pushes were attempted.
func (s *ServiceSuite) waitDeliveries(n int) {
	for i := 0; i < n; i++ {
		select {
		case <-s.delivery.done:
		case <-time.After(2 * time.Second):
			s.FailNow("timed out waiting for live delivery")
		}
	}
}
