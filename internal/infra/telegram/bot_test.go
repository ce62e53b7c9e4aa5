package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type senderStub struct {
	sent []tgbotapi.Chattable
	err  error
}

func (s *senderStub) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.sent = append(s.sent, c)
	return tgbotapi.Message{}, s.err
}

func TestNotifyPaymentSubmittedEscapesAndAddsProofButton(t *testing.T) {
	stub := &senderStub{}
	n := &Notifier{api: stub, chatID: -100}

	err := n.NotifyPaymentSubmitted(context.Background(), PaymentReview{
		TransactionID: 7,
		Username:      "<bob>",
		TotalAmount:   "15.00",
		RecipeCount:   2,
		PaymentMethod: "bank_transfer",
		ProofURL:      "https://cdn.example.com/payment-proofs/7.png",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(stub.sent) != 1 {
		t.Fatalf("unexpected sent count: %d", len(stub.sent))
	}

	msg, ok := stub.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("unexpected chattable type %T", stub.sent[0])
	}
	if msg.ChatID != -100 {
		t.Fatalf("unexpected chat id: %d", msg.ChatID)
	}
	if !strings.Contains(msg.Text, "&lt;bob&gt;") || !strings.Contains(msg.Text, "#7") {
		t.Fatalf("unexpected text: %s", msg.Text)
	}
	if msg.ReplyMarkup == nil {
		t.Fatalf("expected proof button")
	}
}

func TestSendTextWrapsFailure(t *testing.T) {
	cause := errors.New("telegram down")
	n := &Notifier{api: &senderStub{err: cause}, chatID: 1}

	if err := n.SendText(context.Background(), "hi"); !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

type blockingSender struct {
	release chan struct{}
}

func (s blockingSender) Send(tgbotapi.Chattable) (tgbotapi.Message, error) {
	<-s.release
	return tgbotapi.Message{}, nil
}

func TestNotifyGivesUpWhenContextExpires(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	n := &Notifier{api: blockingSender{release: release}, chatID: 1}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := n.NotifyPaymentSubmitted(ctx, PaymentReview{TransactionID: 1})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("notify blocked for %v", elapsed)
	}
}

func TestNewNotifierValidatesInput(t *testing.T) {
	if _, err := NewNotifier("", 1, nil); err == nil {
		t.Fatalf("expected error for empty token")
	}
	if _, err := NewNotifier("token", 0, nil); err == nil {
		t.Fatalf("expected error for missing chat")
	}
}
