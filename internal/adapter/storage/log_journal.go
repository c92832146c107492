package storage

import (
	"context"

	"github.com/rl1809/storefront-bot/internal/core/domain"
	"github.com/rl1809/storefront-bot/internal/logging"
)

// LogJournal writes lifecycle events to the log when no database is
// configured. It keeps no history.
type LogJournal struct {
	logger logging.Logger
}

func NewLogJournal(logger logging.Logger) *LogJournal {
	return &LogJournal{logger: logger.With("component", "journal")}
}

func (j *LogJournal) Record(ctx context.Context, event domain.OrderEvent) error {
	j.logger.Info(ctx, "order event",
		"event_id", event.ID,
		"order_id", event.OrderID,
		"requester_id", event.RequesterID,
		"plan_id", event.PlanID,
		"kind", string(event.Kind),
		"detail", event.Detail,
	)
	return nil
}

func (j *LogJournal) History(ctx context.Context, requesterID int64, limit int) ([]domain.OrderEvent, error) {
	return nil, domain.ErrJournalDisabled
}
