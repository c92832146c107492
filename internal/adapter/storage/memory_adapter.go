package storage

import (
	"context"
	"sync"

	"github.com/rl1809/storefront-bot/internal/core/domain"
)

// MemoryLedger keeps pending orders in a mutex-guarded map. Contents are
// lost on restart.
type MemoryLedger struct {
	mu     sync.Mutex
	orders map[int64]domain.PendingOrder
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{orders: make(map[int64]domain.PendingOrder)}
}

func (m *MemoryLedger) TryCreate(ctx context.Context, order domain.PendingOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.orders[order.RequesterID]; exists {
		return domain.ErrAlreadyPending
	}
	m.orders[order.RequesterID] = order
	return nil
}

func (m *MemoryLedger) Get(ctx context.Context, requesterID int64) (*domain.PendingOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[requesterID]
	if !ok {
		return nil, nil
	}
	return &order, nil
}

func (m *MemoryLedger) Remove(ctx context.Context, requesterID int64) (*domain.PendingOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[requesterID]
	if !ok {
		return nil, nil
	}
	delete(m.orders, requesterID)
	return &order, nil
}

func (m *MemoryLedger) ListAll(ctx context.Context) ([]domain.PendingOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.PendingOrder, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o)
	}
	return out, nil
}

// MemoryLocker is a non-blocking keyed lock for a single process.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]struct{})}
}

func (m *MemoryLocker) TryLock(ctx context.Context, key string) (func(), bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, busy := m.held[key]; busy {
		return nil, false, nil
	}
	m.held[key] = struct{}{}

	var once sync.Once
	release := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.held, key)
			m.mu.Unlock()
		})
	}
	return release, true, nil
}
