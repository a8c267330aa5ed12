package control

import (
	"context"
	"errors"
	"fmt"

	"ParkMe/db"
	"ParkMe/model"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// 票号冲突时换一个新票号重试一次
const maxInsertAttempts = 2

// EntryService 车辆入场开票
type EntryService struct {
	store db.TicketStore
	clock Clock
	newID func() string
}

func NewEntryService(store db.TicketStore) *EntryService {
	return &EntryService{
		store: store,
		clock: RealClock(),
		newID: uuid.NewString,
	}
}

// CreateTicket 生成新票号并写入一张 OPEN 状态的票
func (s *EntryService) CreateTicket(ctx context.Context, plate, parkingLotID string) (*model.Ticket, error) {
	if err := requireFields("plate", plate, "parkingLotId", parkingLotID); err != nil {
		return nil, err
	}

	ticket := &model.Ticket{
		Plate:        plate,
		ParkingLotID: parkingLotID,
		EntryTs:      s.clock.Now().Unix(),
		Status:       model.StatusOpen,
	}
	for attempt := 1; attempt <= maxInsertAttempts; attempt++ {
		ticket.TicketID = s.newID()
		err := s.store.Insert(ctx, ticket)
		if err == nil {
			log.WithFields(log.Fields{
				"ticketId":     ticket.TicketID,
				"plate":        ticket.Plate,
				"parkingLotId": ticket.ParkingLotID,
			}).Info("ticket created")
			return ticket, nil
		}
		if !errors.Is(err, db.ErrAlreadyExists) {
			log.WithError(err).WithField("plate", plate).Error("insert ticket failed")
			return nil, internalError("insert ticket", err)
		}
		log.WithFields(log.Fields{
			"ticketId": ticket.TicketID,
			"attempt":  attempt,
		}).Warn("ticket id collision")
	}
	return nil, fmt.Errorf("%w: ticket id collision after %d attempts", ErrInternal, maxInsertAttempts)
}
