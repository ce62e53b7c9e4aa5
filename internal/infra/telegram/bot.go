package telegram

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier posts operational messages into a single admin chat.
type Notifier struct {
	api    sender
	chatID int64
}

type PaymentReview struct {
	TransactionID int64
	Username      string
	TotalAmount   string
	RecipeCount   int
	PaymentMethod string
	ProofURL      string
}

func NewNotifier(token string, chatID int64, httpClient *http.Client) (*Notifier, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("telegram bot token is empty")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("telegram admin chat id is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	api, err := tgbotapi.NewBotAPIWithClient(strings.TrimSpace(token), tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot api: %w", err)
	}

	return &Notifier{api: api, chatID: chatID}, nil
}

func (n *Notifier) SendText(ctx context.Context, text string) error {
	if n == nil || n.api == nil {
		return fmt.Errorf("telegram notifier is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, text)
	if err := n.send(ctx, msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

func (n *Notifier) NotifyPaymentSubmitted(ctx context.Context, review PaymentReview) error {
	if n == nil || n.api == nil {
		return fmt.Errorf("telegram notifier is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, formatPaymentReview(review))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if review.ProofURL != "" {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("Open payment proof", review.ProofURL),
			),
		)
	}

	if err := n.send(ctx, msg); err != nil {
		return fmt.Errorf("send payment review message: %w", err)
	}
	return nil
}

// send returns when the Bot API answers or ctx is done. The SDK call has no
// context of its own, so an abandoned call finishes in the background bounded
// by the http client timeout.
func (n *Notifier) send(ctx context.Context, msg tgbotapi.Chattable) error {
	done := make(chan error, 1)
	go func() {
		_, err := n.api.Send(msg)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func formatPaymentReview(review PaymentReview) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Payment submitted for transaction #%d</b>\n", review.TransactionID)
	fmt.Fprintf(&b, "Buyer: %s\n", html.EscapeString(review.Username))
	fmt.Fprintf(&b, "Total: %s (%d recipes)\n", html.EscapeString(review.TotalAmount), review.RecipeCount)
	fmt.Fprintf(&b, "Method: %s", html.EscapeString(review.PaymentMethod))
	return b.String()
}
