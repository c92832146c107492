package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/storefront-bot/internal/clock"
	"github.com/rl1809/storefront-bot/internal/core/domain"
	"github.com/rl1809/storefront-bot/internal/logging"
	"github.com/rl1809/storefront-bot/internal/port"
)

const historyLimit = 20

// Dependencies are the collaborators of the order lifecycle.
type Dependencies struct {
	Ledger      port.OrderLedger
	Locker      port.KeyLocker
	Provisioner port.Provisioner
	Messenger   port.Messenger
	Journal     port.OrderJournal
	Guard       *OperatorGuard
	Clock       clock.Clock
	Logger      logging.Logger
	// Currency labels prices in operator notifications.
	Currency string
}

// OrderService drives the order lifecycle:
//
//	NONE -> PENDING -> CONFIRMED (removed) | CANCELLED/EXPIRED (removed)
//
// An order leaves PENDING through confirmation only after the panel has
// created the user. Confirm and cancel are serialized per requester.
type OrderService struct {
	deps       Dependencies
	logger     logging.Logger
	eventQueue chan domain.OrderEvent

	mu     sync.RWMutex
	closed bool
}

// ConfirmResult describes a settled order. Delivered is false when the
// credentials could not be sent to the requester and must be handed over
// by the operator.
type ConfirmResult struct {
	Order     domain.PendingOrder
	Account   domain.ProvisionedAccount
	Delivered bool
}

// StatusView is what a requester sees for /my_status. At most one of
// Account and Pending is set.
type StatusView struct {
	Account  *domain.AccountStatus
	PlanName string
	Pending  *domain.PendingOrder
}

func NewOrderService(deps Dependencies, queueSize int) *OrderService {
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	if deps.Guard == nil {
		deps.Guard = NewOperatorGuard(nil)
	}
	return &OrderService{
		deps:       deps,
		logger:     deps.Logger.With("component", "orders"),
		eventQueue: make(chan domain.OrderEvent, queueSize),
	}
}

// RequestOrder opens a pending order for an active plan and notifies the
// operators. Each notification is independent; failures are only logged.
func (s *OrderService) RequestOrder(ctx context.Context, requester domain.Requester, planID int64) (domain.PendingOrder, domain.Plan, error) {
	plans := s.deps.Provisioner.ListPlans(ctx)
	plan := domain.FindPlan(plans, planID)
	if plan == nil {
		return domain.PendingOrder{}, domain.Plan{}, fmt.Errorf("plan %d: %w", planID, domain.ErrPlanNotFound)
	}
	if !plan.IsActive() {
		return domain.PendingOrder{}, domain.Plan{}, fmt.Errorf("plan %d: %w", planID, domain.ErrPlanInactive)
	}

	order := domain.PendingOrder{
		ID:                   uuid.NewString(),
		RequesterID:          requester.ID,
		PlanID:               plan.ID,
		PlanName:             plan.Name,
		PlanPrice:            plan.Price,
		RequesterDisplayName: requester.DisplayName(),
		Status:               domain.OrderStatusPending,
		CreatedAt:            s.deps.Clock.Now(),
	}

	if err := s.deps.Ledger.TryCreate(ctx, order); err != nil {
		if errors.Is(err, domain.ErrAlreadyPending) {
			return domain.PendingOrder{}, domain.Plan{}, err
		}
		return domain.PendingOrder{}, domain.Plan{}, fmt.Errorf("create order: %w", err)
	}

	s.logger.Info(ctx, "order created", "order_id", order.ID, "requester_id", order.RequesterID, "plan_id", order.PlanID)
	s.emit(order, domain.EventRequested, plan.Name)
	s.notifyOperators(ctx, order)

	return order, *plan, nil
}

func (s *OrderService) notifyOperators(ctx context.Context, order domain.PendingOrder) {
	msg := operatorNotification(order, s.deps.Currency)
	for _, operatorID := range s.deps.Guard.Operators() {
		if err := s.deps.Messenger.Send(ctx, operatorID, msg); err != nil {
			s.logger.Error(ctx, "notify operator failed", "operator_id", operatorID, "order_id", order.ID, "error", err)
		}
	}
}

// ConfirmOrder provisions the requester's account after an operator has
// verified payment. On provisioning failure the order stays pending and
// the upstream error is returned unchanged so the operator can retry.
func (s *OrderService) ConfirmOrder(ctx context.Context, operatorID, requesterID int64) (ConfirmResult, error) {
	if err := s.deps.Guard.Authorize(operatorID); err != nil {
		return ConfirmResult{}, err
	}

	order, err := s.deps.Ledger.Get(ctx, requesterID)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("load order: %w", err)
	}
	if order == nil {
		return ConfirmResult{}, fmt.Errorf("requester %d: %w", requesterID, domain.ErrOrderNotFound)
	}

	release, err := s.lock(ctx, requesterID)
	if err != nil {
		return ConfirmResult{}, err
	}
	defer release()

	// Once started, a confirmation runs to completion.
	ctx = context.WithoutCancel(ctx)

	// A concurrent confirm may have settled the order before we got the lock.
	order, err = s.deps.Ledger.Get(ctx, requesterID)
	if err != nil {
		return ConfirmResult{}, fmt.Errorf("load order: %w", err)
	}
	if order == nil {
		return ConfirmResult{}, fmt.Errorf("requester %d: %w", requesterID, domain.ErrOrderNotFound)
	}

	s.emit(*order, domain.EventConfirmStarted, "operator "+strconv.FormatInt(operatorID, 10))

	account, err := s.deps.Provisioner.CreateUser(ctx, requesterID, order.PlanID)
	if err != nil {
		s.logger.Error(ctx, "provisioning failed, order kept pending",
			"order_id", order.ID, "requester_id", requesterID, "plan_id", order.PlanID, "error", err)
		s.emit(*order, domain.EventProvisionFailed, err.Error())
		return ConfirmResult{Order: *order}, err
	}
	s.emit(*order, domain.EventProvisioned, account.Username)

	result := ConfirmResult{Order: *order, Account: account, Delivered: true}
	if err := s.deps.Messenger.Send(ctx, requesterID, credentialsMessage(account)); err != nil {
		result.Delivered = false
		s.logger.Error(ctx, "credential delivery failed", "order_id", order.ID, "requester_id", requesterID, "error", err)
		s.emit(*order, domain.EventDeliveryFailed, err.Error())
	}

	if _, err := s.deps.Ledger.Remove(ctx, requesterID); err != nil {
		// The account exists upstream; a retry would fail on the duplicate
		// username, so report success and leave cleanup to the operator.
		s.logger.Error(ctx, "settled order could not be removed", "order_id", order.ID, "requester_id", requesterID, "error", err)
	}

	s.logger.Info(ctx, "order confirmed", "order_id", order.ID, "requester_id", requesterID,
		"operator_id", operatorID, "username", account.Username, "delivered", result.Delivered)
	return result, nil
}

// CancelOrder drops a pending order. Requesters may cancel their own
// order; operators may cancel any.
func (s *OrderService) CancelOrder(ctx context.Context, callerID, requesterID int64) (domain.PendingOrder, error) {
	byOperator := callerID != requesterID
	if byOperator {
		if err := s.deps.Guard.Authorize(callerID); err != nil {
			return domain.PendingOrder{}, err
		}
	}

	release, err := s.lock(ctx, requesterID)
	if err != nil {
		return domain.PendingOrder{}, err
	}
	defer release()

	removed, err := s.deps.Ledger.Remove(ctx, requesterID)
	if err != nil {
		return domain.PendingOrder{}, fmt.Errorf("remove order: %w", err)
	}
	if removed == nil {
		return domain.PendingOrder{}, fmt.Errorf("requester %d: %w", requesterID, domain.ErrOrderNotFound)
	}

	detail := "by requester"
	if byOperator {
		detail = "by operator " + strconv.FormatInt(callerID, 10)
		if err := s.deps.Messenger.Send(ctx, requesterID, cancelledNotice(*removed, "cancelled by an operator")); err != nil {
			s.logger.Warn(ctx, "cancel notice failed", "requester_id", requesterID, "error", err)
		}
	}
	s.emit(*removed, domain.EventCancelled, detail)
	s.logger.Info(ctx, "order cancelled", "order_id", removed.ID, "requester_id", requesterID, "caller_id", callerID)
	return *removed, nil
}

// ListOrders returns all pending orders, oldest first.
func (s *OrderService) ListOrders(ctx context.Context, operatorID int64) ([]domain.PendingOrder, error) {
	if err := s.deps.Guard.Authorize(operatorID); err != nil {
		return nil, err
	}
	orders, err := s.deps.Ledger.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].RequesterID < orders[j].RequesterID
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
	return orders, nil
}

// Pending returns the requester's pending order, nil if none.
func (s *OrderService) Pending(ctx context.Context, requesterID int64) (*domain.PendingOrder, error) {
	order, err := s.deps.Ledger.Get(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	return order, nil
}

// Status reports the requester's panel account if one exists, otherwise
// their pending order, otherwise an empty view.
func (s *OrderService) Status(ctx context.Context, requesterID int64) (StatusView, error) {
	if account := s.deps.Provisioner.GetUserStatus(ctx, requesterID); account != nil {
		view := StatusView{Account: account}
		if plan := domain.FindPlan(s.deps.Provisioner.ListPlans(ctx), account.PlanID); plan != nil {
			view.PlanName = plan.Name
		}
		return view, nil
	}

	order, err := s.deps.Ledger.Get(ctx, requesterID)
	if err != nil {
		return StatusView{}, fmt.Errorf("load order: %w", err)
	}
	return StatusView{Pending: order}, nil
}

// History returns the journaled lifecycle events of a requester.
func (s *OrderService) History(ctx context.Context, operatorID, requesterID int64) ([]domain.OrderEvent, error) {
	if err := s.deps.Guard.Authorize(operatorID); err != nil {
		return nil, err
	}
	if s.deps.Journal == nil {
		return nil, domain.ErrJournalDisabled
	}
	return s.deps.Journal.History(ctx, requesterID, historyLimit)
}

// ExpireStale removes pending orders created more than maxAge ago and
// tells their requesters. Orders being confirmed are skipped.
func (s *OrderService) ExpireStale(ctx context.Context, maxAge time.Duration) (int, error) {
	orders, err := s.deps.Ledger.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list orders: %w", err)
	}

	cutoff := s.deps.Clock.Now().Add(-maxAge)
	expired := 0
	for _, o := range orders {
		if !o.CreatedAt.Before(cutoff) {
			continue
		}
		ok, err := s.expireOne(ctx, o, cutoff)
		if err != nil {
			return expired, err
		}
		if ok {
			expired++
		}
	}
	return expired, nil
}

func (s *OrderService) expireOne(ctx context.Context, candidate domain.PendingOrder, cutoff time.Time) (bool, error) {
	release, ok, err := s.deps.Locker.TryLock(ctx, lockKey(candidate.RequesterID))
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return false, nil
	}
	defer release()

	current, err := s.deps.Ledger.Get(ctx, candidate.RequesterID)
	if err != nil {
		return false, fmt.Errorf("load order: %w", err)
	}
	if current == nil || current.ID != candidate.ID || !current.CreatedAt.Before(cutoff) {
		return false, nil
	}
	if _, err := s.deps.Ledger.Remove(ctx, candidate.RequesterID); err != nil {
		return false, fmt.Errorf("remove order: %w", err)
	}

	s.emit(*current, domain.EventExpired, "")
	s.logger.Info(ctx, "order expired", "order_id", current.ID, "requester_id", current.RequesterID)
	if err := s.deps.Messenger.Send(ctx, current.RequesterID, cancelledNotice(*current, "expired")); err != nil {
		s.logger.Warn(ctx, "expiry notice failed", "requester_id", current.RequesterID, "error", err)
	}
	return true, nil
}

// RunSweeper expires stale orders every interval until ctx is done.
func (s *OrderService) RunSweeper(ctx context.Context, maxAge, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.ExpireStale(ctx, maxAge)
			if err != nil {
				s.logger.Error(ctx, "expiry sweep failed", "error", err)
			} else if n > 0 {
				s.logger.Info(ctx, "expiry sweep", "expired", n)
			}
		}
	}
}

func (s *OrderService) lock(ctx context.Context, requesterID int64) (func(), error) {
	release, ok, err := s.deps.Locker.TryLock(ctx, lockKey(requesterID))
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("requester %d: %w", requesterID, domain.ErrConfirmInProgress)
	}
	return release, nil
}

func lockKey(requesterID int64) string {
	return "order:" + strconv.FormatInt(requesterID, 10)
}

// emit queues an audit event without blocking the caller. Events are
// dropped with a warning when the queue is full or closed.
func (s *OrderService) emit(order domain.PendingOrder, kind domain.EventKind, detail string) {
	ev := domain.OrderEvent{
		ID:          uuid.NewString(),
		OrderID:     order.ID,
		RequesterID: order.RequesterID,
		PlanID:      order.PlanID,
		Kind:        kind,
		Detail:      detail,
		At:          s.deps.Clock.Now(),
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.eventQueue <- ev:
	default:
		s.logger.Warn(context.Background(), "event queue full, dropping event", "kind", string(kind), "order_id", order.ID)
	}
}

func (s *OrderService) GetEventQueue() <-chan domain.OrderEvent {
	return s.eventQueue
}

func (s *OrderService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.eventQueue)
	}
}
