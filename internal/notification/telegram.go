package notification

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSink forwards broadcasts and error notices to an admin chat.
type TelegramSink struct {
	bot    messageSender
	chatID int64
}

func NewTelegramSink(token string, chatID int64) (*TelegramSink, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &TelegramSink{bot: bot, chatID: chatID}, nil
}

// Deliver returns when the message is sent or ctx ends, whichever is first.
func (s *TelegramSink) Deliver(ctx context.Context, n Notification) error {
	if !n.Broadcast() && n.Type != TypeError {
		return nil
	}
	target := "all users"
	if !n.Broadcast() {
		target = "user " + n.UserID
	}
	text := fmt.Sprintf("[%s] %s\n%s\n(%s)", n.Type, n.Title, n.Message, target)

	done := make(chan error, 1)
	go func() {
		_, err := s.bot.Send(tgbotapi.NewMessage(s.chatID, text))
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("telegram send: %w", ctx.Err())
	}
}
