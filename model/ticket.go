package model

import (
	"github.com/shopspring/decimal"
)

// Status 停车票状态，只能从 OPEN 变为 CLOSED
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// Ticket 停车票，一辆车从入场到出场的完整记录
// 出场相关字段（ExitTs、DurationMin、ChargeUsd）只在 CLOSED 之后才有值
type Ticket struct {
	TicketID     string           `gorm:"column:ticketId;primaryKey;type:varchar(36)" json:"ticketId"`
	Plate        string           `gorm:"column:plate;type:varchar(32);not null;index:idx_plate_status,priority:1" json:"plate"`
	ParkingLotID string           `gorm:"column:parkingLotId;type:varchar(64);not null" json:"parkingLotId"`
	EntryTs      int64            `gorm:"column:entryTs;not null" json:"entryTs"`
	Status       Status           `gorm:"column:status;type:varchar(8);not null;index:idx_plate_status,priority:2" json:"status"`
	ExitTs       *int64           `gorm:"column:exitTs" json:"exitTs,omitempty"`
	DurationMin  *int64           `gorm:"column:durationMin" json:"durationMin,omitempty"`
	ChargeUsd    *decimal.Decimal `gorm:"column:chargeUsd;type:decimal(10,2)" json:"chargeUsd,omitempty"`
}

// TableName 表名固定为 tickets
func (Ticket) TableName() string {
	return "tickets"
}

// Closure 出场时一次性写入的字段
type Closure struct {
	ExitTs      int64
	DurationMin int64
	ChargeUsd   decimal.Decimal
}

// Apply 把出场信息写到票上，并将状态置为 CLOSED
func (c Closure) Apply(t *Ticket) {
	exitTs, duration, charge := c.ExitTs, c.DurationMin, c.ChargeUsd
	t.ExitTs = &exitTs
	t.DurationMin = &duration
	t.ChargeUsd = &charge
	t.Status = StatusClosed
}

// IsClosed 出场字段齐全且状态为 CLOSED
func (t *Ticket) IsClosed() bool {
	return t.Status == StatusClosed && t.ExitTs != nil && t.DurationMin != nil && t.ChargeUsd != nil
}
