package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rl1809/storefront-bot/internal/config"
	"github.com/rl1809/storefront-bot/internal/core/domain"
	"github.com/rl1809/storefront-bot/internal/logging"
	"github.com/rl1809/storefront-bot/internal/port"
)

// Storefront turns chat operations into replies. It never retries; every
// error becomes a direct message to whoever invoked the operation.
type Storefront struct {
	orders      *OrderService
	provisioner port.Provisioner
	messenger   port.Messenger
	guard       *OperatorGuard
	payment     config.PaymentInstructions
	logger      logging.Logger
}

func NewStorefront(orders *OrderService, provisioner port.Provisioner, messenger port.Messenger,
	guard *OperatorGuard, payment config.PaymentInstructions, logger logging.Logger) *Storefront {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Storefront{
		orders:      orders,
		provisioner: provisioner,
		messenger:   messenger,
		guard:       guard,
		payment:     payment,
		logger:      logger.With("component", "storefront"),
	}
}

func (s *Storefront) OnStart(requester domain.Requester) domain.Reply {
	name := requester.FirstName
	if name == "" {
		name = requester.DisplayName()
	}
	return plain(fmt.Sprintf("Hi %s! 👋\nWelcome to the subscription store.\n\n"+
		"Use the menu below to browse plans, check your account or contact support.", name))
}

// OnListPlans shows active plans only, in the order the panel returns them.
func (s *Storefront) OnListPlans(ctx context.Context) domain.Reply {
	plans := domain.ActivePlans(s.provisioner.ListPlans(ctx))
	if len(plans) == 0 {
		return plain("No plans are available right now. Please try again later.")
	}
	return planCatalog(plans, s.payment.Currency)
}

func (s *Storefront) OnPlanSelected(ctx context.Context, requester domain.Requester, planID int64) domain.Reply {
	_, plan, err := s.orders.RequestOrder(ctx, requester, planID)
	switch {
	case err == nil:
		return paymentInstructions(plan, s.payment)
	case errors.Is(err, domain.ErrAlreadyPending):
		return plain("You already have a pending order. Please complete its payment or cancel it with /cancel first.")
	case errors.Is(err, domain.ErrPlanNotFound), errors.Is(err, domain.ErrPlanInactive):
		return plain("This plan is no longer available. Use /plans to see the current offer.")
	default:
		return s.OnError(ctx, err)
	}
}

func (s *Storefront) OnStatusQuery(ctx context.Context, requester domain.Requester) domain.Reply {
	view, err := s.orders.Status(ctx, requester.ID)
	if err != nil {
		return s.OnError(ctx, err)
	}
	switch {
	case view.Account != nil:
		return accountStatus(view)
	case view.Pending != nil:
		return pendingStatus(*view.Pending)
	default:
		return plain("You don't have an active account yet. Use /plans to buy one.")
	}
}

func (s *Storefront) OnSupportQuery() domain.Reply {
	return plain(fmt.Sprintf("For support please message %s.", s.payment.Contact))
}

// OnCancel drops the requester's own pending order.
func (s *Storefront) OnCancel(ctx context.Context, requester domain.Requester) domain.Reply {
	order, err := s.orders.CancelOrder(ctx, requester.ID, requester.ID)
	switch {
	case err == nil:
		return markdown(fmt.Sprintf("Your order for plan *%s* was cancelled.", escape(order.PlanName)))
	case errors.Is(err, domain.ErrOrderNotFound):
		return plain("You have no pending order.")
	case errors.Is(err, domain.ErrConfirmInProgress):
		return plain("Your order is being processed right now and can't be cancelled.")
	default:
		return s.OnError(ctx, err)
	}
}

func (s *Storefront) OnAdminListOrders(ctx context.Context, operatorID int64) domain.Reply {
	orders, err := s.orders.ListOrders(ctx, operatorID)
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return unauthorized()
	case err != nil:
		return s.OnError(ctx, err)
	case len(orders) == 0:
		return plain("No pending orders.")
	}
	return pendingOrdersList(orders, s.payment.Currency)
}

// OnAdminConfirm handles "/confirm_payment <requester id>". Provisioning
// errors are reported verbatim and the order stays pending for a retry.
func (s *Storefront) OnAdminConfirm(ctx context.Context, operatorID int64, args string) domain.Reply {
	if !s.guard.IsOperator(operatorID) {
		return unauthorized()
	}
	requesterID, err := parseRequesterID(args)
	if err != nil {
		return usage("/confirm_payment", err)
	}

	pending, err := s.orders.Pending(ctx, requesterID)
	if err != nil {
		return s.OnError(ctx, err)
	}
	if pending == nil {
		return plain(fmt.Sprintf("No pending order found for user %d.", requesterID))
	}

	progress := plain(fmt.Sprintf("Creating account for user %d...", requesterID))
	if err := s.messenger.Send(ctx, operatorID, progress); err != nil {
		s.logger.Warn(ctx, "progress message failed", "operator_id", operatorID, "error", err)
	}

	result, err := s.orders.ConfirmOrder(ctx, operatorID, requesterID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrUnauthorized):
		return unauthorized()
	case errors.Is(err, domain.ErrOrderNotFound):
		return plain(fmt.Sprintf("No pending order found for user %d.", requesterID))
	case errors.Is(err, domain.ErrConfirmInProgress):
		return plain(fmt.Sprintf("The order of user %d is already being confirmed.", requesterID))
	case errors.Is(err, domain.ErrAPI), errors.Is(err, domain.ErrProvisioning), errors.Is(err, domain.ErrPlanNotFound):
		return plain(fmt.Sprintf("Account creation for user %d failed: %v\n"+
			"The order is still pending. Retry with /confirm_payment %d", requesterID, err, requesterID))
	default:
		return s.OnError(ctx, err)
	}

	if !result.Delivered {
		return markdown(fmt.Sprintf("Account `%s` was created but the credentials could not be delivered to user %d.\n"+
			"Please forward them manually:\nUsername: `%s`\nPassword: `%s`",
			result.Account.Username, requesterID, result.Account.Username, result.Account.Password))
	}
	return markdown(fmt.Sprintf("Account `%s` for user %d was created on plan *%s* and the credentials were delivered.",
		result.Account.Username, requesterID, escape(result.Order.PlanName)))
}

// OnAdminCancel handles "/cancel_order <requester id>".
func (s *Storefront) OnAdminCancel(ctx context.Context, operatorID int64, args string) domain.Reply {
	if !s.guard.IsOperator(operatorID) {
		return unauthorized()
	}
	requesterID, err := parseRequesterID(args)
	if err != nil {
		return usage("/cancel_order", err)
	}

	order, err := s.orders.CancelOrder(ctx, operatorID, requesterID)
	switch {
	case err == nil:
		return markdown(fmt.Sprintf("Order of user %d for plan *%s* was cancelled.", requesterID, escape(order.PlanName)))
	case errors.Is(err, domain.ErrOrderNotFound):
		return plain(fmt.Sprintf("No pending order found for user %d.", requesterID))
	case errors.Is(err, domain.ErrConfirmInProgress):
		return plain(fmt.Sprintf("The order of user %d is being confirmed and can't be cancelled now.", requesterID))
	default:
		return s.OnError(ctx, err)
	}
}

// OnAdminHistory handles "/order_history <requester id>".
func (s *Storefront) OnAdminHistory(ctx context.Context, operatorID int64, args string) domain.Reply {
	if !s.guard.IsOperator(operatorID) {
		return unauthorized()
	}
	requesterID, err := parseRequesterID(args)
	if err != nil {
		return usage("/order_history", err)
	}

	events, err := s.orders.History(ctx, operatorID, requesterID)
	switch {
	case errors.Is(err, domain.ErrJournalDisabled):
		return plain("Order history is not available: no journal database is configured.")
	case err != nil:
		return s.OnError(ctx, err)
	case len(events) == 0:
		return plain(fmt.Sprintf("No recorded orders for user %d.", requesterID))
	}
	return eventHistory(requesterID, events)
}

func (s *Storefront) OnUnrecognized() domain.Reply {
	return plain("Sorry, I didn't understand that. Please use the menu or /start.")
}

// OnError logs err and returns the generic apology.
func (s *Storefront) OnError(ctx context.Context, err error) domain.Reply {
	s.logger.Error(ctx, "request failed", "error", err)
	return plain("Sorry, something went wrong. Please try again later.")
}

func unauthorized() domain.Reply {
	return domain.Reply{Text: "You are not allowed to use this command."}
}

func usage(command string, err error) domain.Reply {
	if errors.Is(err, domain.ErrInvalidRequesterID) {
		return domain.Reply{Text: "The user ID must be a positive number."}
	}
	return domain.Reply{Text: fmt.Sprintf("Usage: %s <user id>", command)}
}

// parseRequesterID reads the single numeric argument of an operator command.
func parseRequesterID(args string) (int64, error) {
	fields := strings.Fields(args)
	if len(fields) != 1 {
		return 0, errMissingArgument
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%q: %w", fields[0], domain.ErrInvalidRequesterID)
	}
	return id, nil
}

var errMissingArgument = errors.New("missing argument")
