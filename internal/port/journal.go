package port

import (
	"context"

	"github.com/rl1809/storefront-bot/internal/core/domain"
)

type OrderJournal interface {
	// Record appends a lifecycle event to the audit trail
	Record(ctx context.Context, event domain.OrderEvent) error

	// History returns up to limit most recent events for a requester, oldest first
	History(ctx context.Context, requesterID int64, limit int) ([]domain.OrderEvent, error)
}
