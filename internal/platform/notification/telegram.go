package notification

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
)

// ChatSender delivers a text message to a chat.
type ChatSender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

type telegramSender struct {
	bot *bot.Bot
}

// NewTelegramSender builds a send-only bot client. The bot is never started,
// so it does not poll for updates.
func NewTelegramSender(token string) (ChatSender, error) {
	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &telegramSender{bot: b}, nil
}

func (s *telegramSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	_, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text})
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
