package db

import (
	"context"
	"errors"
	"fmt"

	"ParkMe/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore 基于 gorm 的票据存储，mysql 和 sqlite 共用
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate 建表以及 (plate, status) 索引
func (s *GormStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&model.Ticket{}); err != nil {
		return fmt.Errorf("migrate tickets: %w", err)
	}
	return nil
}

func (s *GormStore) Get(ctx context.Context, ticketID string) (*model.Ticket, error) {
	return getTicket(s.db.WithContext(ctx), ticketID)
}

func getTicket(tx *gorm.DB, ticketID string) (*model.Ticket, error) {
	var ticket model.Ticket
	err := tx.Where("ticketId = ?", ticketID).Take(&ticket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ticket %s: %w", ticketID, err)
	}
	return &ticket, nil
}

func (s *GormStore) Insert(ctx context.Context, ticket *model.Ticket) error {
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(ticket)
	if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return ErrAlreadyExists
	}
	if result.Error != nil {
		return fmt.Errorf("insert ticket %s: %w", ticket.TicketID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlreadyExists
	}
	return nil
}

// ConditionalUpdate 单条 UPDATE ... WHERE status = ?，没有更新到任何行时再区分不存在和状态不符
// 更新和回读在同一个事务里，回读失败时关闭一并回滚
func (s *GormStore) ConditionalUpdate(ctx context.Context, ticketID string, expected model.Status, closure model.Closure) (*model.Ticket, error) {
	var closed *model.Ticket
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Ticket{}).
			Where("ticketId = ? AND status = ?", ticketID, expected).
			Updates(map[string]interface{}{
				"exitTs":      closure.ExitTs,
				"durationMin": closure.DurationMin,
				"chargeUsd":   closure.ChargeUsd,
				"status":      model.StatusClosed,
			})
		if result.Error != nil {
			return fmt.Errorf("close ticket %s: %w", ticketID, result.Error)
		}

		if result.RowsAffected == 0 {
			if _, err := getTicket(tx, ticketID); err != nil {
				return err
			}
			return ErrPreconditionFailed
		}

		ticket, err := getTicket(tx, ticketID)
		if err != nil {
			return err
		}
		closed = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}
	return closed, nil
}

func (s *GormStore) FindByPlate(ctx context.Context, plate string, status model.Status) ([]model.Ticket, error) {
	var tickets []model.Ticket
	err := s.db.WithContext(ctx).
		Where("plate = ? AND status = ?", plate, status).
		Order("entryTs ASC").
		Find(&tickets).Error
	if err != nil {
		return nil, fmt.Errorf("find tickets for plate %s: %w", plate, err)
	}
	return tickets, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
