package port

import (
	"context"

	"github.com/rl1809/storefront-bot/internal/core/domain"
)

type Provisioner interface {
	// ListPlans returns all plans, or an empty slice if the panel is unreachable
	ListPlans(ctx context.Context) []domain.Plan

	// CreateUser provisions a panel account for the requester on the plan
	CreateUser(ctx context.Context, requesterID, planID int64) (domain.ProvisionedAccount, error)

	// GetUserStatus returns the requester's panel account, nil if absent or unknown
	GetUserStatus(ctx context.Context, requesterID int64) *domain.AccountStatus
}
