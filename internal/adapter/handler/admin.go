package handler

import (
	"context"
	"time"

	"github.com/rl1809/storefront-bot/internal/core/domain"
	"github.com/rl1809/storefront-bot/internal/core/service"
)

// OrderAdmin is the operator surface of the order lifecycle shared by the
// HTTP and gRPC admin APIs.
type OrderAdmin interface {
	ListOrders(ctx context.Context, operatorID int64) ([]domain.PendingOrder, error)
	ConfirmOrder(ctx context.Context, operatorID, requesterID int64) (service.ConfirmResult, error)
	CancelOrder(ctx context.Context, callerID, requesterID int64) (domain.PendingOrder, error)
}

type OrderView struct {
	OrderID     string    `json:"order_id"`
	RequesterID int64     `json:"requester_id"`
	Requester   string    `json:"requester"`
	PlanID      int64     `json:"plan_id"`
	PlanName    string    `json:"plan_name"`
	PlanPrice   int64     `json:"plan_price"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// ConfirmView reports a settled order. Password is only included when the
// credentials could not be delivered to the requester.
type ConfirmView struct {
	Order     OrderView `json:"order"`
	Username  string    `json:"username"`
	Password  string    `json:"password,omitempty"`
	Delivered bool      `json:"delivered"`
}

func toOrderView(o domain.PendingOrder) OrderView {
	return OrderView{
		OrderID:     o.ID,
		RequesterID: o.RequesterID,
		Requester:   o.RequesterDisplayName,
		PlanID:      o.PlanID,
		PlanName:    o.PlanName,
		PlanPrice:   o.PlanPrice,
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
	}
}

func toOrderViews(orders []domain.PendingOrder) []OrderView {
	out := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderView(o))
	}
	return out
}

func toConfirmView(r service.ConfirmResult) ConfirmView {
	v := ConfirmView{
		Order:     toOrderView(r.Order),
		Username:  r.Account.Username,
		Delivered: r.Delivered,
	}
	if !r.Delivered {
		v.Password = r.Account.Password
	}
	return v
}
