package db

import (
	"context"
	"sort"
	"sync"

	"ParkMe/model"
)

// MemoryStore 进程内存储，单进程部署和测试使用
type MemoryStore struct {
	mu      sync.RWMutex
	tickets map[string]model.Ticket
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tickets: make(map[string]model.Ticket)}
}

func (s *MemoryStore) Get(_ context.Context, ticketID string) (*model.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ticket, ok := s.tickets[ticketID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneTicket(ticket), nil
}

func (s *MemoryStore) Insert(_ context.Context, ticket *model.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tickets[ticket.TicketID]; ok {
		return ErrAlreadyExists
	}
	s.tickets[ticket.TicketID] = *cloneTicket(*ticket)
	return nil
}

func (s *MemoryStore) ConditionalUpdate(_ context.Context, ticketID string, expected model.Status, closure model.Closure) (*model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[ticketID]
	if !ok {
		return nil, ErrNotFound
	}
	if ticket.Status != expected {
		return nil, ErrPreconditionFailed
	}
	closure.Apply(&ticket)
	s.tickets[ticketID] = ticket
	return cloneTicket(ticket), nil
}

func (s *MemoryStore) FindByPlate(_ context.Context, plate string, status model.Status) ([]model.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var tickets []model.Ticket
	for _, ticket := range s.tickets {
		if ticket.Plate == plate && ticket.Status == status {
			tickets = append(tickets, *cloneTicket(ticket))
		}
	}
	sort.Slice(tickets, func(i, j int) bool {
		return tickets[i].EntryTs < tickets[j].EntryTs
	})
	return tickets, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
