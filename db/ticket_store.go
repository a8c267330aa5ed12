package db

import (
	"context"
	"errors"
	"fmt"

	"ParkMe/config"
	"ParkMe/model"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrNotFound           = errors.New("ticket not found")
	ErrAlreadyExists      = errors.New("ticket already exists")
	ErrPreconditionFailed = errors.New("ticket status precondition failed")
)

// TicketStore 停车票持久化接口
//
// ConditionalUpdate 必须是对后端的一次原子操作：只有当前状态等于 expected 时才写入 closure，
// 同一张票的并发调用最多只有一个成功。
type TicketStore interface {
	Get(ctx context.Context, ticketID string) (*model.Ticket, error)
	Insert(ctx context.Context, ticket *model.Ticket) error
	ConditionalUpdate(ctx context.Context, ticketID string, expected model.Status, closure model.Closure) (*model.Ticket, error)
	// FindByPlate 通过 (plate, status) 索引查询
	FindByPlate(ctx context.Context, plate string, status model.Status) ([]model.Ticket, error)
	Close() error
}

// OpenTicketStore 按配置创建存储后端，进程内只应调用一次
func OpenTicketStore(ctx context.Context, conf *config.GlobalConfig) (TicketStore, error) {
	backend := conf.StoreConfig.Backend
	log.WithField("backend", backend).Info("opening ticket store")

	switch backend {
	case config.BackendMySQL:
		gdb, err := NewMySQL(conf.DbConfig)
		if err != nil {
			return nil, err
		}
		return openGormStore(ctx, gdb)
	case config.BackendSQLite:
		gdb, err := NewSQLite(conf.SQLiteConfig.Path)
		if err != nil {
			return nil, err
		}
		return openGormStore(ctx, gdb)
	case config.BackendRedis:
		client, err := NewRedisClient(conf.RedisConfig)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client), nil
	case config.BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

func openGormStore(ctx context.Context, gdb *gorm.DB) (*GormStore, error) {
	store := NewGormStore(gdb)
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func cloneTicket(t model.Ticket) *model.Ticket {
	if t.ExitTs != nil {
		v := *t.ExitTs
		t.ExitTs = &v
	}
	if t.DurationMin != nil {
		v := *t.DurationMin
		t.DurationMin = &v
	}
	if t.ChargeUsd != nil {
		v := *t.ChargeUsd
		t.ChargeUsd = &v
	}
	return &t
}
