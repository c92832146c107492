package handler

import (
	"context"
	"sync"
	"time"

	"github.com/rl1809/storefront-bot/internal/core/domain"
	"github.com/rl1809/storefront-bot/internal/core/service"
)

const testAdminToken = "ops-secret"

// Mock OrderAdmin
type mockAdmin struct {
	mu sync.Mutex

	orders  []domain.PendingOrder
	confirm service.ConfirmResult
	cancel  domain.PendingOrder
	err     error

	lastOperator  int64
	lastRequester int64
}

func (m *mockAdmin) ListOrders(ctx context.Context, operatorID int64) ([]domain.PendingOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastOperator = operatorID
	return m.orders, m.err
}

func (m *mockAdmin) ConfirmOrder(ctx context.Context, operatorID, requesterID int64) (service.ConfirmResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastOperator, m.lastRequester = operatorID, requesterID
	return m.confirm, m.err
}

func (m *mockAdmin) CancelOrder(ctx context.Context, callerID, requesterID int64) (domain.PendingOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastOperator, m.lastRequester = callerID, requesterID
	return m.cancel, m.err
}

func (m *mockAdmin) last() (int64, int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastOperator, m.lastRequester
}

var sampleOrder = domain.PendingOrder{
	ID:                   "9b1d2c",
	RequesterID:          42,
	PlanID:               3,
	PlanName:             "Gold",
	PlanPrice:            50000,
	RequesterDisplayName: "@buyer",
	Status:               domain.OrderStatusPending,
	CreatedAt:            time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
}

func confirmedResult(delivered bool) service.ConfirmResult {
	return service.ConfirmResult{
		Order:     sampleOrder,
		Account:   domain.ProvisionedAccount{Username: "tg_user_42", Password: "AbC123xyz789", PlanName: "Gold"},
		Delivered: delivered,
	}
}
