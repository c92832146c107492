package port

import (
	"context"

	"github.com/rl1809/storefront-bot/internal/core/domain"
)

type OrderLedger interface {
	// TryCreate stores the order only if the requester has none pending,
	// otherwise returns domain.ErrAlreadyPending without mutating state
	TryCreate(ctx context.Context, order domain.PendingOrder) error

	// Get returns the pending order for the requester, nil if absent
	Get(ctx context.Context, requesterID int64) (*domain.PendingOrder, error)

	// Remove deletes and returns the pending order, nil if absent
	Remove(ctx context.Context, requesterID int64) (*domain.PendingOrder, error)

	// ListAll returns every pending order in no particular order
	ListAll(ctx context.Context) ([]domain.PendingOrder, error)
}

type KeyLocker interface {
	// TryLock acquires an exclusive lock on key without waiting. ok is false
	// when someone else holds it. release must be called once when ok.
	TryLock(ctx context.Context, key string) (release func(), ok bool, err error)
}
