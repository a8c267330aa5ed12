package control

import (
	"context"
	"errors"
	"fmt"

	"ParkMe/db"
	"ParkMe/model"

	log "github.com/sirupsen/logrus"
)

// ExitService 车辆出场结算
type ExitService struct {
	store db.TicketStore
	clock Clock
}

func NewExitService(store db.TicketStore) *ExitService {
	return &ExitService{store: store, clock: RealClock()}
}

// CloseTicket 计算停车时长和费用，并把票从 OPEN 原子地改为 CLOSED
//
// 关闭只以 ConditionalUpdate 为准：同一张票并发出场只有一个请求成功，其余返回 ErrAlreadyClosed。
func (s *ExitService) CloseTicket(ctx context.Context, ticketID string) (*model.Ticket, error) {
	if err := requireFields("ticketId", ticketID); err != nil {
		return nil, err
	}
	logger := log.WithField("ticketId", ticketID)

	ticket, err := s.store.Get(ctx, ticketID)
	if errors.Is(err, db.ErrNotFound) {
		logger.Info("close ticket: not found")
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ticketID)
	}
	if err != nil {
		logger.WithError(err).Error("close ticket: get failed")
		return nil, internalError("get ticket", err)
	}
	if ticket.Status != model.StatusOpen {
		logger.Info("close ticket: already closed")
		return nil, fmt.Errorf("%w: %s", ErrAlreadyClosed, ticketID)
	}

	exitTs := s.clock.Now().Unix()
	elapsed := exitTs - ticket.EntryTs
	if elapsed < 0 {
		logger.WithFields(log.Fields{
			"entryTs": ticket.EntryTs,
			"exitTs":  exitTs,
		}).Warn("exit time before entry time, charging zero duration")
	}
	fee := ComputeFee(elapsed)

	closed, err := s.store.ConditionalUpdate(ctx, ticketID, model.StatusOpen, model.Closure{
		ExitTs:      exitTs,
		DurationMin: fee.DurationMin,
		ChargeUsd:   fee.ChargeUsd,
	})
	switch {
	case errors.Is(err, db.ErrPreconditionFailed):
		logger.Info("close ticket: lost race, already closed")
		return nil, fmt.Errorf("%w: %s", ErrAlreadyClosed, ticketID)
	case errors.Is(err, db.ErrNotFound):
		logger.Warn("close ticket: disappeared before update")
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ticketID)
	case err != nil:
		logger.WithError(err).Error("close ticket: update failed")
		return nil, internalError("close ticket", err)
	}

	logger.WithFields(log.Fields{
		"durationMin": fee.DurationMin,
		"chunks":      fee.Chunks,
		"chargeUsd":   fee.ChargeUsd.StringFixed(2),
	}).Info("ticket closed")
	return closed, nil
}
