package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"donation_backend/internal/amount"
)

// Notifier tells the admins about a completed donation.
type Notifier interface {
	DonationPaid(ctx context.Context, transactionID string, total int64, paidAt time.Time) error
}

type Noop struct{}

func (Noop) DonationPaid(context.Context, string, int64, time.Time) error { return nil }

// Telegram posts to one admin chat through the Bot API. It only sends, so
// the bot is never started and getMe is skipped.
type Telegram struct {
	b      *bot.Bot
	chatID string
	log    *slog.Logger
}

func NewTelegram(token, chatID string, log *slog.Logger, opts ...bot.Option) (*Telegram, error) {
	opts = append([]bot.Option{bot.WithSkipGetMe()}, opts...)
	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &Telegram{b: b, chatID: chatID, log: log}, nil
}

func (t *Telegram) DonationPaid(ctx context.Context, transactionID string, total int64, paidAt time.Time) error {
	text := fmt.Sprintf(
		"✅ <b>Donasi diterima</b>\n\nJumlah: <b>%s</b>\nID: <code>%s</code>\nWaktu: %s",
		html.EscapeString(amount.FormatIDR(total)),
		html.EscapeString(transactionID),
		paidAt.Format("02/01/06 15.04.05"),
	)

	_, err := t.b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    t.chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	t.log.Debug("telegram notification sent", "transaction_id", transactionID)
	return nil
}
