package db

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"ParkMe/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newOpenTicket(id, plate string, entryTs int64) *model.Ticket {
	return &model.Ticket{
		TicketID:     id,
		Plate:        plate,
		ParkingLotID: "lot-1",
		EntryTs:      entryTs,
		Status:       model.StatusOpen,
	}
}

func testClosure() model.Closure {
	return model.Closure{ExitTs: 1900, DurationMin: 15, ChargeUsd: decimal.RequireFromString("2.50")}
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) TicketStore {
		return NewMemoryStore()
	})
}

func TestGormStoreSQLite(t *testing.T) {
	runStoreContract(t, func(t *testing.T) TicketStore {
		gdb, err := NewSQLite(":memory:")
		require.NoError(t, err)
		store := NewGormStore(gdb)
		require.NoError(t, store.Migrate(context.Background()))
		t.Cleanup(func() { store.Close() })
		return store
	})
}

// 更新之后请求被取消，关闭应整体回滚，票仍然可以正常出场
func TestGormStoreConditionalUpdateRollsBack(t *testing.T) {
	// 取消会让事务丢弃连接，用文件库保证数据还在
	gdb, err := NewSQLite(filepath.Join(t.TempDir(), "tickets.db"))
	require.NoError(t, err)
	store := NewGormStore(gdb)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Insert(context.Background(), newOpenTicket("t-1", "ABC123", 1000)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err = gdb.Callback().Update().After("gorm:update").Register("test:cancel_after_update", func(*gorm.DB) {
		cancel()
	})
	require.NoError(t, err)

	_, err = store.ConditionalUpdate(ctx, "t-1", model.StatusOpen, testClosure())
	require.Error(t, err)

	got, err := store.Get(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusOpen, got.Status)
	assert.Nil(t, got.ExitTs)
	assert.Nil(t, got.ChargeUsd)

	closed, err := store.ConditionalUpdate(context.Background(), "t-1", model.StatusOpen, testClosure())
	require.NoError(t, err)
	assert.True(t, closed.IsClosed())
	assert.Equal(t, "2.50", closed.ChargeUsd.StringFixed(2))
}

func TestRedisStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) TicketStore {
		mr := miniredis.RunT(t)
		store := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
		t.Cleanup(func() { store.Close() })
		return store
	})
}

// 关闭时票号从 OPEN 索引移到 CLOSED 索引
func TestRedisStoreCloseMovesPlateIndex(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, newOpenTicket("t-1", "ABC123", 1000)))
	open, err := mr.Members(plateKey("ABC123", model.StatusOpen))
	require.NoError(t, err)
	assert.Equal(t, []string{"t-1"}, open)

	_, err = store.ConditionalUpdate(ctx, "t-1", model.StatusOpen, testClosure())
	require.NoError(t, err)

	assert.False(t, mr.Exists(plateKey("ABC123", model.StatusOpen)))
	closed, err := mr.Members(plateKey("ABC123", model.StatusClosed))
	require.NoError(t, err)
	assert.Equal(t, []string{"t-1"}, closed)

	// 状态不符时索引保持不变
	_, err = store.ConditionalUpdate(ctx, "t-1", model.StatusOpen, testClosure())
	assert.ErrorIs(t, err, ErrPreconditionFailed)
	closed, err = mr.Members(plateKey("ABC123", model.StatusClosed))
	require.NoError(t, err)
	assert.Equal(t, []string{"t-1"}, closed)
}

func runStoreContract(t *testing.T, newStore func(t *testing.T) TicketStore) {
	ctx := context.Background()

	t.Run("insert and get", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Insert(ctx, newOpenTicket("t-1", "ABC123", 1000)))

		got, err := store.Get(ctx, "t-1")
		require.NoError(t, err)
		assert.Equal(t, "ABC123", got.Plate)
		assert.Equal(t, "lot-1", got.ParkingLotID)
		assert.Equal(t, int64(1000), got.EntryTs)
		assert.Equal(t, model.StatusOpen, got.Status)
		assert.Nil(t, got.ExitTs)
		assert.Nil(t, got.DurationMin)
		assert.Nil(t, got.ChargeUsd)
	})

	t.Run("get unknown", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("insert existing id does not overwrite", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Insert(ctx, newOpenTicket("t-1", "ABC123", 1000)))

		err := store.Insert(ctx, newOpenTicket("t-1", "OTHER", 2000))
		assert.ErrorIs(t, err, ErrAlreadyExists)

		got, err := store.Get(ctx, "t-1")
		require.NoError(t, err)
		assert.Equal(t, "ABC123", got.Plate)
		assert.Equal(t, int64(1000), got.EntryTs)
	})

	t.Run("conditional update closes once", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Insert(ctx, newOpenTicket("t-1", "ABC123", 1000)))

		closed, err := store.ConditionalUpdate(ctx, "t-1", model.StatusOpen, testClosure())
		require.NoError(t, err)
		assert.True(t, closed.IsClosed())
		assert.Equal(t, int64(1900), *closed.ExitTs)
		assert.Equal(t, int64(15), *closed.DurationMin)
		assert.True(t, decimal.RequireFromString("2.50").Equal(*closed.ChargeUsd))
		assert.Equal(t, int64(1000), closed.EntryTs)

		again := model.Closure{ExitTs: 5000, DurationMin: 67, ChargeUsd: decimal.RequireFromString("12.50")}
		_, err = store.ConditionalUpdate(ctx, "t-1", model.StatusOpen, again)
		assert.ErrorIs(t, err, ErrPreconditionFailed)

		// 已关闭的票多次读取结果一致
		for i := 0; i < 3; i++ {
			got, err := store.Get(ctx, "t-1")
			require.NoError(t, err)
			assert.Equal(t, *closed.ExitTs, *got.ExitTs)
			assert.Equal(t, *closed.DurationMin, *got.DurationMin)
			assert.True(t, closed.ChargeUsd.Equal(*got.ChargeUsd))
			assert.Equal(t, model.StatusClosed, got.Status)
		}
	})

	t.Run("conditional update unknown", func(t *testing.T) {
		store := newStore(t)
		_, err := store.ConditionalUpdate(ctx, "missing", model.StatusOpen, testClosure())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("find by plate and status", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Insert(ctx, newOpenTicket("t-2", "ABC123", 2000)))
		require.NoError(t, store.Insert(ctx, newOpenTicket("t-1", "ABC123", 1000)))
		require.NoError(t, store.Insert(ctx, newOpenTicket("t-3", "XYZ999", 1500)))

		open, err := store.FindByPlate(ctx, "ABC123", model.StatusOpen)
		require.NoError(t, err)
		require.Len(t, open, 2)
		assert.Equal(t, "t-1", open[0].TicketID)
		assert.Equal(t, "t-2", open[1].TicketID)

		_, err = store.ConditionalUpdate(ctx, "t-1", model.StatusOpen, testClosure())
		require.NoError(t, err)

		open, err = store.FindByPlate(ctx, "ABC123", model.StatusOpen)
		require.NoError(t, err)
		require.Len(t, open, 1)
		assert.Equal(t, "t-2", open[0].TicketID)

		closed, err := store.FindByPlate(ctx, "ABC123", model.StatusClosed)
		require.NoError(t, err)
		require.Len(t, closed, 1)
		assert.Equal(t, "t-1", closed[0].TicketID)

		none, err := store.FindByPlate(ctx, "NOPE", model.StatusOpen)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("concurrent conditional updates", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Insert(ctx, newOpenTicket("t-1", "ABC123", 1000)))

		const n = 16
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			failures  int
		)
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func() {
				defer wg.Done()
				_, err := store.ConditionalUpdate(ctx, "t-1", model.StatusOpen, testClosure())
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					successes++
				} else if assert.ErrorIs(t, err, ErrPreconditionFailed) {
					failures++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, successes)
		assert.Equal(t, n-1, failures)
	})
}
