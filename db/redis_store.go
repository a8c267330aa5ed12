package db

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"ParkMe/model"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

const (
	ticketKeyPrefix = "ParkMe:ticket:"
	plateKeyPrefix  = "ParkMe:plate:"
)

// 不存在时才写入票据，同时加入 (plate, status) 索引
var insertScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
    return 0
end
redis.call("HSET", KEYS[1], "ticketId", ARGV[1], "plate", ARGV[2], "parkingLotId", ARGV[3], "entryTs", ARGV[4], "status", ARGV[5])
redis.call("SADD", KEYS[2], ARGV[1])
return 1
`)

// 状态等于 ARGV[1] 时写入出场信息，并把票号从 KEYS[2] 移到 KEYS[3]，成功返回整张票
// -1 不存在，0 状态不符
var closeScript = redis.NewScript(`
local status = redis.call("HGET", KEYS[1], "status")
if not status then
    return -1
end
if status ~= ARGV[1] then
    return 0
end
redis.call("HSET", KEYS[1], "status", ARGV[2], "exitTs", ARGV[3], "durationMin", ARGV[4], "chargeUsd", ARGV[5])
redis.call("SREM", KEYS[2], ARGV[6])
redis.call("SADD", KEYS[3], ARGV[6])
return redis.call("HGETALL", KEYS[1])
`)

// RedisStore 每张票一个 hash，(plate, status) 索引用 set 维护
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func ticketKey(ticketID string) string {
	return ticketKeyPrefix + ticketID
}

func plateKey(plate string, status model.Status) string {
	return plateKeyPrefix + plate + ":" + string(status)
}

func (s *RedisStore) Get(ctx context.Context, ticketID string) (*model.Ticket, error) {
	fields, err := s.client.HGetAll(ctx, ticketKey(ticketID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get ticket %s: %w", ticketID, err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return decodeTicket(fields)
}

func (s *RedisStore) Insert(ctx context.Context, ticket *model.Ticket) error {
	keys := []string{ticketKey(ticket.TicketID), plateKey(ticket.Plate, ticket.Status)}
	inserted, err := insertScript.Run(ctx, s.client, keys,
		ticket.TicketID, ticket.Plate, ticket.ParkingLotID, ticket.EntryTs, string(ticket.Status)).Int()
	if err != nil {
		return fmt.Errorf("insert ticket %s: %w", ticket.TicketID, err)
	}
	if inserted == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (s *RedisStore) ConditionalUpdate(ctx context.Context, ticketID string, expected model.Status, closure model.Closure) (*model.Ticket, error) {
	// 车牌写入后不会再变，先读出来用于拼索引 key
	plate, err := s.client.HGet(ctx, ticketKey(ticketID), "plate").Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("close ticket %s: %w", ticketID, err)
	}

	keys := []string{ticketKey(ticketID), plateKey(plate, expected), plateKey(plate, model.StatusClosed)}
	res, err := closeScript.Run(ctx, s.client, keys,
		string(expected), string(model.StatusClosed),
		closure.ExitTs, closure.DurationMin, closure.ChargeUsd.StringFixed(2),
		ticketID).Result()
	if err != nil {
		return nil, fmt.Errorf("close ticket %s: %w", ticketID, err)
	}

	switch v := res.(type) {
	case int64:
		if v == -1 {
			return nil, ErrNotFound
		}
		return nil, ErrPreconditionFailed
	case []interface{}:
		fields := make(map[string]string, len(v)/2)
		for i := 0; i+1 < len(v); i += 2 {
			fields[fmt.Sprint(v[i])] = fmt.Sprint(v[i+1])
		}
		return decodeTicket(fields)
	default:
		return nil, fmt.Errorf("close ticket %s: unexpected script result %T", ticketID, res)
	}
}

func (s *RedisStore) FindByPlate(ctx context.Context, plate string, status model.Status) ([]model.Ticket, error) {
	ids, err := s.client.SMembers(ctx, plateKey(plate, status)).Result()
	if err != nil {
		return nil, fmt.Errorf("find tickets for plate %s: %w", plate, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringStringMapCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, ticketKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("find tickets for plate %s: %w", plate, err)
	}

	tickets := make([]model.Ticket, 0, len(ids))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 || fields["status"] != string(status) {
			continue
		}
		ticket, err := decodeTicket(fields)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *ticket)
	}
	sort.Slice(tickets, func(i, j int) bool {
		return tickets[i].EntryTs < tickets[j].EntryTs
	})
	return tickets, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func decodeTicket(fields map[string]string) (*model.Ticket, error) {
	entryTs, err := strconv.ParseInt(fields["entryTs"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode ticket %s entryTs: %w", fields["ticketId"], err)
	}
	ticket := &model.Ticket{
		TicketID:     fields["ticketId"],
		Plate:        fields["plate"],
		ParkingLotID: fields["parkingLotId"],
		EntryTs:      entryTs,
		Status:       model.Status(fields["status"]),
	}
	if ticket.Status != model.StatusClosed {
		return ticket, nil
	}

	exitTs, err := strconv.ParseInt(fields["exitTs"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode ticket %s exitTs: %w", ticket.TicketID, err)
	}
	duration, err := strconv.ParseInt(fields["durationMin"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode ticket %s durationMin: %w", ticket.TicketID, err)
	}
	charge, err := decimal.NewFromString(fields["chargeUsd"])
	if err != nil {
		return nil, fmt.Errorf("decode ticket %s chargeUsd: %w", ticket.TicketID, err)
	}
	model.Closure{ExitTs: exitTs, DurationMin: duration, ChargeUsd: charge}.Apply(ticket)
	return ticket, nil
}
