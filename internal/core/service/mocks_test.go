package service

import (
	"context"
	"sync"
	"time"

	"github.com/rl1809/storefront-bot/internal/clock"
	"github.com/rl1809/storefront-bot/internal/core/domain"
)

// Mock OrderLedger
type mockLedger struct {
	mu     sync.Mutex
	orders map[int64]domain.PendingOrder
	err    error
}

func newMockLedger() *mockLedger {
	return &mockLedger{orders: make(map[int64]domain.PendingOrder)}
}

func (m *mockLedger) TryCreate(ctx context.Context, order domain.PendingOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.orders[order.RequesterID]; ok {
		return domain.ErrAlreadyPending
	}
	m.orders[order.RequesterID] = order
	return nil
}

func (m *mockLedger) Get(ctx context.Context, requesterID int64) (*domain.PendingOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	o, ok := m.orders[requesterID]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (m *mockLedger) Remove(ctx context.Context, requesterID int64) (*domain.PendingOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	o, ok := m.orders[requesterID]
	if !ok {
		return nil, nil
	}
	delete(m.orders, requesterID)
	return &o, nil
}

func (m *mockLedger) ListAll(ctx context.Context) ([]domain.PendingOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.PendingOrder, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o)
	}
	return out, nil
}

func (m *mockLedger) put(o domain.PendingOrder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.RequesterID] = o
}

func (m *mockLedger) lookup(requesterID int64) (domain.PendingOrder, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[requesterID]
	return o, ok
}

func (m *mockLedger) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// Mock KeyLocker
type mockLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMockLocker() *mockLocker {
	return &mockLocker{held: make(map[string]bool)}
}

func (m *mockLocker) TryLock(ctx context.Context, key string) (func(), bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] {
		return nil, false, nil
	}
	m.held[key] = true
	return func() {
		m.mu.Lock()
		delete(m.held, key)
		m.mu.Unlock()
	}, true, nil
}

// Mock Provisioner
type mockProvisioner struct {
	mu          sync.Mutex
	plans       []domain.Plan
	accounts    map[int64]domain.AccountStatus
	password    string
	createErr   error
	createCalls int

	// When set, CreateUser signals entered and waits on release.
	entered chan struct{}
	release chan struct{}
}

func newMockProvisioner(plans ...domain.Plan) *mockProvisioner {
	return &mockProvisioner{
		plans:    plans,
		accounts: make(map[int64]domain.AccountStatus),
		password: "AbC123xyz789",
	}
}

func (m *mockProvisioner) ListPlans(ctx context.Context) []domain.Plan {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Plan(nil), m.plans...)
}

func (m *mockProvisioner) CreateUser(ctx context.Context, requesterID, planID int64) (domain.ProvisionedAccount, error) {
	m.mu.Lock()
	m.createCalls++
	entered, release := m.entered, m.release
	m.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
		<-release
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return domain.ProvisionedAccount{}, m.createErr
	}
	plan := domain.FindPlan(m.plans, planID)
	if plan == nil {
		return domain.ProvisionedAccount{}, domain.ErrPlanNotFound
	}
	return domain.ProvisionedAccount{
		Username: domain.PanelUsername(requesterID),
		Password: m.password,
		PlanName: plan.Name,
	}, nil
}

func (m *mockProvisioner) GetUserStatus(ctx context.Context, requesterID int64) *domain.AccountStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[requesterID]
	if !ok {
		return nil
	}
	return &acc
}

func (m *mockProvisioner) setCreateErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createErr = err
}

func (m *mockProvisioner) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createCalls
}

// Mock Messenger
type sentMessage struct {
	ChatID int64
	Reply  domain.Reply
}

type mockMessenger struct {
	mu     sync.Mutex
	sent   []sentMessage
	failTo map[int64]error
}

func newMockMessenger() *mockMessenger {
	return &mockMessenger{failTo: make(map[int64]error)}
}

func (m *mockMessenger) Send(ctx context.Context, chatID int64, reply domain.Reply) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failTo[chatID]; err != nil {
		return err
	}
	m.sent = append(m.sent, sentMessage{ChatID: chatID, Reply: reply})
	return nil
}

func (m *mockMessenger) failFor(chatID int64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failTo[chatID] = err
}

func (m *mockMessenger) sentTo(chatID int64) []domain.Reply {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Reply
	for _, s := range m.sent {
		if s.ChatID == chatID {
			out = append(out, s.Reply)
		}
	}
	return out
}

// Mock OrderJournal
type mockJournal struct {
	mu     sync.Mutex
	events []domain.OrderEvent
}

func (m *mockJournal) Record(ctx context.Context, ev domain.OrderEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *mockJournal) History(ctx context.Context, requesterID int64, limit int) ([]domain.OrderEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.OrderEvent
	for _, ev := range m.events {
		if ev.RequesterID == requesterID {
			out = append(out, ev)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

const (
	operatorID  int64 = 1000
	requesterID int64 = 42
)

var (
	testNow  = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	goldPlan = domain.Plan{ID: 3, Name: "Gold", VolumeMB: 51200, DurationDays: 30, Price: 50000, Status: domain.PlanStatusActive}
	oldPlan  = domain.Plan{ID: 7, Name: "Legacy", VolumeMB: 1024, DurationDays: 7, Price: 1000, Status: domain.PlanStatusInactive}
)

type fixture struct {
	ledger      *mockLedger
	locker      *mockLocker
	provisioner *mockProvisioner
	messenger   *mockMessenger
	journal     *mockJournal
	clock       *clock.Manual
	svc         *OrderService
}

func newFixture(operators ...int64) *fixture {
	if len(operators) == 0 {
		operators = []int64{operatorID}
	}
	f := &fixture{
		ledger:      newMockLedger(),
		locker:      newMockLocker(),
		provisioner: newMockProvisioner(goldPlan, oldPlan),
		messenger:   newMockMessenger(),
		journal:     &mockJournal{},
		clock:       clock.NewManual(testNow),
	}
	f.svc = NewOrderService(Dependencies{
		Ledger:      f.ledger,
		Locker:      f.locker,
		Provisioner: f.provisioner,
		Messenger:   f.messenger,
		Journal:     f.journal,
		Guard:       NewOperatorGuard(operators),
		Clock:       f.clock,
		Currency:    "Toman",
	}, 100)
	return f
}

// drain empties the event queue into a slice; call after Close.
func (f *fixture) drain() []domain.OrderEvent {
	var events []domain.OrderEvent
	for ev := range f.svc.GetEventQueue() {
		events = append(events, ev)
	}
	return events
}

func pendingOrder(requester int64, plan domain.Plan, createdAt time.Time) domain.PendingOrder {
	return domain.PendingOrder{
		ID:                   "ord-" + plan.Name,
		RequesterID:          requester,
		PlanID:               plan.ID,
		PlanName:             plan.Name,
		PlanPrice:            plan.Price,
		RequesterDisplayName: "@buyer",
		Status:               domain.OrderStatusPending,
		CreatedAt:            createdAt,
	}
}
