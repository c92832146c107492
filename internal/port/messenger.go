package port

import (
	"context"

	"github.com/rl1809/storefront-bot/internal/core/domain"
)

type Messenger interface {
	// Send delivers a reply to a chat identified by its numeric ID
	Send(ctx context.Context, chatID int64, reply domain.Reply) error
}
