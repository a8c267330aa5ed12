package control

import (
	"context"
	"errors"
	"fmt"

	"ParkMe/db"
	"ParkMe/model"
)

// QueryService 只读查询
type QueryService struct {
	store db.TicketStore
}

func NewQueryService(store db.TicketStore) *QueryService {
	return &QueryService{store: store}
}

func (s *QueryService) GetTicket(ctx context.Context, ticketID string) (*model.Ticket, error) {
	if err := requireFields("ticketId", ticketID); err != nil {
		return nil, err
	}
	ticket, err := s.store.Get(ctx, ticketID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ticketID)
	}
	if err != nil {
		return nil, internalError("get ticket", err)
	}
	return ticket, nil
}

// OpenTickets 某个车牌当前未出场的票，按入场时间排序
func (s *QueryService) OpenTickets(ctx context.Context, plate string) ([]model.Ticket, error) {
	if err := requireFields("plate", plate); err != nil {
		return nil, err
	}
	tickets, err := s.store.FindByPlate(ctx, plate, model.StatusOpen)
	if err != nil {
		return nil, internalError("find open tickets", err)
	}
	if tickets == nil {
		tickets = []model.Ticket{}
	}
	return tickets, nil
}
