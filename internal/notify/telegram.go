package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"gys/internal/models"
)

// sender is the slice of the bot API the notifier needs.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier pushes operational alerts to the manager chats.
type TelegramNotifier struct {
	bot      sender
	managers []int64
	logger   *zerolog.Logger
}

func NewTelegram(token string, debug bool, managers []int64, logger *zerolog.Logger) (*TelegramNotifier, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	botAPI.Debug = debug

	logger.Info().Str("bot_username", botAPI.Self.UserName).Msg("telegram notifier connected")
	return &TelegramNotifier{bot: botAPI, managers: managers, logger: logger}, nil
}

func (n *TelegramNotifier) NotifySyncFailure(ctx context.Context, kind string, syncErr error) error {
	text := fmt.Sprintf("⚠️ Takvim senkronizasyonu başarısız (%s):\n%v", kind, syncErr)
	return n.broadcast(ctx, text)
}

func (n *TelegramNotifier) NotifyUnprocessedFees(ctx context.Context, gelinler []*models.Gelin) error {
	if len(gelinler) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("💰 Ücreti işlenmemiş gelinler:\n")
	for _, g := range gelinler {
		fmt.Fprintf(&b, "• %s - %s %s\n", g.Ad, g.Tarih, g.Saat)
	}
	return n.broadcast(ctx, b.String())
}

func (n *TelegramNotifier) broadcast(ctx context.Context, text string) error {
	var lastErr error
	for _, chatID := range n.managers {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := n.bot.Send(msg); err != nil {
			n.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send telegram alert")
			lastErr = err
		}
	}
	return lastErr
}
