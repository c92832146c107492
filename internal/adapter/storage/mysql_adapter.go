package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rl1809/storefront-bot/internal/core/domain"
)

const createOrderEventsTable = `
CREATE TABLE IF NOT EXISTS order_events (
	id           CHAR(36)    NOT NULL PRIMARY KEY,
	order_id     CHAR(36)    NOT NULL,
	requester_id BIGINT      NOT NULL,
	plan_id      BIGINT      NOT NULL,
	kind         VARCHAR(32) NOT NULL,
	detail       TEXT        NOT NULL,
	created_at   DATETIME(6) NOT NULL,
	INDEX idx_order_events_requester (requester_id, created_at)
)`

// MySQLAdapter is the order journal: an append-only audit trail of
// lifecycle events. It is not read back to rebuild the ledger.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, createOrderEventsTable); err != nil {
		return fmt.Errorf("create order_events: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) Record(ctx context.Context, event domain.OrderEvent) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO order_events (id, order_id, requester_id, plan_id, kind, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.OrderID, event.RequesterID, event.PlanID, string(event.Kind),
		event.Detail, event.At,
	)
	if err != nil {
		return fmt.Errorf("insert order event: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) History(ctx context.Context, requesterID int64, limit int) ([]domain.OrderEvent, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, order_id, requester_id, plan_id, kind, detail, created_at
		FROM (
			SELECT id, order_id, requester_id, plan_id, kind, detail, created_at
			FROM order_events WHERE requester_id = ?
			ORDER BY created_at DESC LIMIT ?
		) recent
		ORDER BY created_at ASC`, requesterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query order events: %w", err)
	}
	defer rows.Close()

	var events []domain.OrderEvent
	for rows.Next() {
		var (
			ev   domain.OrderEvent
			kind string
		)
		if err := rows.Scan(&ev.ID, &ev.OrderID, &ev.RequesterID, &ev.PlanID, &kind, &ev.Detail, &ev.At); err != nil {
			return nil, fmt.Errorf("scan order event: %w", err)
		}
		ev.Kind = domain.EventKind(kind)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order events: %w", err)
	}
	return events, nil
}
