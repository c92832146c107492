package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/storefront-bot/internal/core/domain"
)

func sampleOrder(requesterID, planID int64) domain.PendingOrder {
	return domain.PendingOrder{
		ID:                   "order-1",
		RequesterID:          requesterID,
		PlanID:               planID,
		PlanName:             "Gold",
		PlanPrice:            50000,
		RequesterDisplayName: "@buyer",
		Status:               domain.OrderStatusPending,
		CreatedAt:            time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMemoryLedger_TryCreateTwice(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	first := sampleOrder(42, 3)
	require.NoError(t, l.TryCreate(ctx, first))

	second := sampleOrder(42, 5)
	second.ID = "order-2"
	err := l.TryCreate(ctx, second)
	require.ErrorIs(t, err, domain.ErrAlreadyPending)

	got, err := l.Get(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first, *got)
}

func TestMemoryLedger_GetMissing(t *testing.T) {
	got, err := NewMemoryLedger().Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryLedger_Remove(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	require.NoError(t, l.TryCreate(ctx, sampleOrder(42, 3)))

	removed, err := l.Remove(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, removed)
	assert.Equal(t, int64(3), removed.PlanID)

	again, err := l.Remove(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, again)

	// a new order is accepted once the old one is gone
	require.NoError(t, l.TryCreate(ctx, sampleOrder(42, 4)))
}

func TestMemoryLedger_ListAll(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	for _, id := range []int64{1, 2, 3} {
		require.NoError(t, l.TryCreate(ctx, sampleOrder(id, 9)))
	}

	all, err := l.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMemoryLedger_ConcurrentTryCreate(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(plan int64) {
			defer wg.Done()
			if err := l.TryCreate(ctx, sampleOrder(7, plan)); err == nil {
				successCount.Add(1)
			}
		}(int64(i))
	}
	wg.Wait()

	assert.Equal(t, int32(1), successCount.Load())
}

func TestMemoryLocker(t *testing.T) {
	ctx := context.Background()
	lk := NewMemoryLocker()

	release, ok, err := lk.TryLock(ctx, "confirm:42")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = lk.TryLock(ctx, "confirm:42")
	require.NoError(t, err)
	assert.False(t, ok, "second lock on the same key must fail")

	other, ok, err := lk.TryLock(ctx, "confirm:43")
	require.NoError(t, err)
	assert.True(t, ok)
	other()

	release()
	release() // idempotent

	again, ok, err := lk.TryLock(ctx, "confirm:42")
	require.NoError(t, err)
	assert.True(t, ok)
	again()
}
