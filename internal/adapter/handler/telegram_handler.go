package handler

import (
	"context"
	"fmt"
	"regexp"
	"runtime/debug"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rl1809/storefront-bot/internal/core/domain"
	"github.com/rl1809/storefront-bot/internal/core/service"
	"github.com/rl1809/storefront-bot/internal/logging"
)

// BotAPI is the part of *tgbotapi.BotAPI the gateway uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// TelegramMessenger renders replies as Telegram messages.
type TelegramMessenger struct {
	bot BotAPI
}

func NewTelegramMessenger(bot BotAPI) *TelegramMessenger {
	return &TelegramMessenger{bot: bot}
}

func (m *TelegramMessenger) Send(ctx context.Context, chatID int64, reply domain.Reply) error {
	if _, err := m.bot.Send(render(chatID, reply)); err != nil {
		return fmt.Errorf("send to chat %d: %w", chatID, err)
	}
	return nil
}

func render(chatID int64, reply domain.Reply) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, reply.Text)
	if reply.Markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}

	switch {
	case len(reply.Options) > 0:
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(reply.Options))
		for _, opt := range reply.Options {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(opt.Label, opt.Data)))
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	case reply.MainMenu:
		msg.ReplyMarkup = mainMenu()
	}
	return msg
}

func mainMenu() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(service.MenuPlans)),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(service.MenuStatus),
			tgbotapi.NewKeyboardButton(service.MenuSupport),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

var buyCallback = regexp.MustCompile(`^` + service.BuyPrefix + `(\d+)$`)

// TelegramGateway dispatches inbound updates to the storefront on a fixed
// pool of workers.
type TelegramGateway struct {
	bot        BotAPI
	messenger  *TelegramMessenger
	storefront *service.Storefront
	workers    int
	logger     logging.Logger
}

func NewTelegramGateway(bot BotAPI, storefront *service.Storefront, workers int, logger logging.Logger) *TelegramGateway {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &TelegramGateway{
		bot:        bot,
		messenger:  NewTelegramMessenger(bot),
		storefront: storefront,
		workers:    workers,
		logger:     logger.With("component", "telegram"),
	}
}

// Run consumes updates until ctx is done or the channel is closed, and
// returns once every worker has finished its current update.
func (g *TelegramGateway) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	var wg sync.WaitGroup
	for i := 0; i < g.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			g.workerLoop(ctx, id, updates)
		}(i)
	}
	g.logger.Info(ctx, "telegram gateway started", "workers", g.workers)
	wg.Wait()
	g.logger.Info(context.Background(), "telegram gateway stopped")
}

func (g *TelegramGateway) workerLoop(ctx context.Context, id int, updates <-chan tgbotapi.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			g.handle(ctx, id, u)
		}
	}
}

func (g *TelegramGateway) handle(ctx context.Context, worker int, u tgbotapi.Update) {
	chatID := updateChatID(u)
	ctx = logging.ContextWith(ctx, "worker", worker, "update_id", u.UpdateID, "chat_id", chatID)
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error(ctx, "panic while handling update", "panic", r, "stack", string(debug.Stack()))
			if chatID != 0 {
				g.reply(ctx, chatID, g.storefront.OnError(ctx, fmt.Errorf("panic: %v", r)))
			}
		}
	}()

	switch {
	case u.CallbackQuery != nil:
		g.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil && u.Message.From != nil:
		g.handleMessage(ctx, u.Message)
	}
}

func (g *TelegramGateway) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if _, err := g.bot.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		g.logger.Warn(ctx, "callback answer failed", "error", err)
	}
	if cq.From == nil {
		return
	}
	chatID := cq.From.ID
	if cq.Message != nil && cq.Message.Chat != nil {
		chatID = cq.Message.Chat.ID
	}

	m := buyCallback.FindStringSubmatch(cq.Data)
	if m == nil {
		g.reply(ctx, chatID, g.storefront.OnUnrecognized())
		return
	}
	planID, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		g.reply(ctx, chatID, g.storefront.OnUnrecognized())
		return
	}
	g.reply(ctx, chatID, g.storefront.OnPlanSelected(ctx, requesterOf(cq.From), planID))
}

func (g *TelegramGateway) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	requester := requesterOf(msg.From)
	chatID := msg.Chat.ID
	sf := g.storefront

	var reply domain.Reply
	if msg.IsCommand() {
		args := msg.CommandArguments()
		switch msg.Command() {
		case "start":
			reply = sf.OnStart(requester)
		case "plans":
			reply = sf.OnListPlans(ctx)
		case "my_status":
			reply = sf.OnStatusQuery(ctx, requester)
		case "support":
			reply = sf.OnSupportQuery()
		case "cancel":
			reply = sf.OnCancel(ctx, requester)
		case "admin_orders":
			reply = sf.OnAdminListOrders(ctx, requester.ID)
		case "confirm_payment":
			reply = sf.OnAdminConfirm(ctx, requester.ID, args)
		case "cancel_order":
			reply = sf.OnAdminCancel(ctx, requester.ID, args)
		case "order_history":
			reply = sf.OnAdminHistory(ctx, requester.ID, args)
		default:
			reply = sf.OnUnrecognized()
		}
	} else {
		switch msg.Text {
		case service.MenuPlans:
			reply = sf.OnListPlans(ctx)
		case service.MenuStatus:
			reply = sf.OnStatusQuery(ctx, requester)
		case service.MenuSupport:
			reply = sf.OnSupportQuery()
		default:
			reply = sf.OnUnrecognized()
		}
	}

	g.reply(ctx, chatID, reply)
}

func (g *TelegramGateway) reply(ctx context.Context, chatID int64, reply domain.Reply) {
	if err := g.messenger.Send(ctx, chatID, reply); err != nil {
		g.logger.Error(ctx, "reply failed", "to", chatID, "error", err)
	}
}

func requesterOf(u *tgbotapi.User) domain.Requester {
	return domain.Requester{ID: u.ID, Username: u.UserName, FirstName: u.FirstName}
}

func updateChatID(u tgbotapi.Update) int64 {
	switch {
	case u.Message != nil && u.Message.Chat != nil:
		return u.Message.Chat.ID
	case u.CallbackQuery != nil && u.CallbackQuery.Message != nil && u.CallbackQuery.Message.Chat != nil:
		return u.CallbackQuery.Message.Chat.ID
	case u.CallbackQuery != nil && u.CallbackQuery.From != nil:
		return u.CallbackQuery.From.ID
	}
	return 0
}
