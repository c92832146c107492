package domain

import "time"

type OrderStatus string

// Orders only exist while pending; settled or dropped orders leave the
// ledger and survive only as journal events.
const OrderStatusPending OrderStatus = "pending"

// PendingOrder is a purchase request awaiting manual payment confirmation.
// At most one exists per requester.
type PendingOrder struct {
	ID                   string
	RequesterID          int64
	PlanID               int64
	PlanName             string
	PlanPrice            int64
	RequesterDisplayName string
	Status               OrderStatus
	CreatedAt            time.Time
}

type EventKind string

const (
	EventRequested       EventKind = "requested"
	EventConfirmStarted  EventKind = "confirm_started"
	EventProvisioned     EventKind = "provisioned"
	EventProvisionFailed EventKind = "provision_failed"
	EventDeliveryFailed  EventKind = "delivery_failed"
	EventCancelled       EventKind = "cancelled"
	EventExpired         EventKind = "expired"
)

// OrderEvent is an audit record of a lifecycle step.
type OrderEvent struct {
	ID          string
	OrderID     string
	RequesterID int64
	PlanID      int64
	Kind        EventKind
	Detail      string
	At          time.Time
}
