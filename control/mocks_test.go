package control

import (
	"context"
	"sync"
	"time"

	"ParkMe/db"
	"ParkMe/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(unix int64) *fakeClock {
	return &fakeClock{now: time.Unix(unix, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(unix int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = time.Unix(unix, 0)
}

// stubStore 包一层内存存储，可以按需替换某个方法的返回
type stubStore struct {
	*db.MemoryStore
	insertFn func(ctx context.Context, ticket *model.Ticket) error
	getFn    func(ctx context.Context, ticketID string) (*model.Ticket, error)
	updateFn func(ctx context.Context, ticketID string, expected model.Status, closure model.Closure) (*model.Ticket, error)
	findFn   func(ctx context.Context, plate string, status model.Status) ([]model.Ticket, error)
}

func newStubStore() *stubStore {
	return &stubStore{MemoryStore: db.NewMemoryStore()}
}

func (s *stubStore) Insert(ctx context.Context, ticket *model.Ticket) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, ticket)
	}
	return s.MemoryStore.Insert(ctx, ticket)
}

func (s *stubStore) Get(ctx context.Context, ticketID string) (*model.Ticket, error) {
	if s.getFn != nil {
		return s.getFn(ctx, ticketID)
	}
	return s.MemoryStore.Get(ctx, ticketID)
}

func (s *stubStore) ConditionalUpdate(ctx context.Context, ticketID string, expected model.Status, closure model.Closure) (*model.Ticket, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, ticketID, expected, closure)
	}
	return s.MemoryStore.ConditionalUpdate(ctx, ticketID, expected, closure)
}

func (s *stubStore) FindByPlate(ctx context.Context, plate string, status model.Status) ([]model.Ticket, error) {
	if s.findFn != nil {
		return s.findFn(ctx, plate, status)
	}
	return s.MemoryStore.FindByPlate(ctx, plate, status)
}
