package transactions

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ivankudzin/recipemarket/internal/domain/model"
	"github.com/ivankudzin/recipemarket/internal/domain/rules"
	"github.com/ivankudzin/recipemarket/internal/infra/kafka"
	"github.com/ivankudzin/recipemarket/internal/infra/telegram"
)

const (
	EventCreated          = "transaction.created"
	EventPaymentSubmitted = "transaction.payment_submitted"
	EventVerified         = "transaction.verified"
	EventRejected         = "transaction.rejected"

	defaultSideEffectTimeout = 2 * time.Second
)

type EventPublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type ReviewNotifier interface {
	NotifyPaymentSubmitted(ctx context.Context, review telegram.PaymentReview) error
}

type lifecycleEvent struct {
	Type          string    `json:"type"`
	TransactionID int64     `json:"transaction_id"`
	UserID        int64     `json:"user_id"`
	Status        string    `json:"status"`
	Total         string    `json:"total"`
	RecipeIDs     []int64   `json:"recipe_ids"`
	PurchaseIDs   []int64   `json:"purchase_ids,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// publish emits a lifecycle event after commit. The write already happened,
// so failures are only logged.
func (s *Service) publish(ctx context.Context, eventType string, t model.Transaction, purchaseIDs []int64) {
	if s.events == nil {
		return
	}

	recipeIDs := make([]int64, 0, len(t.Lines))
	for _, line := range t.Lines {
		recipeIDs = append(recipeIDs, line.RecipeID)
	}

	payload, err := json.Marshal(lifecycleEvent{
		Type:          eventType,
		TransactionID: t.ID,
		UserID:        t.UserID,
		Status:        string(t.Status),
		Total:         rules.FormatCents(t.TotalCents),
		RecipeIDs:     recipeIDs,
		PurchaseIDs:   purchaseIDs,
		OccurredAt:    s.now().UTC(),
	})
	if err != nil {
		s.log.Warn("encode transaction event failed", zap.Int64("transaction_id", t.ID), zap.Error(err))
		return
	}

	ctx, cancel := s.sideEffectContext(ctx)
	defer cancel()

	msg := kafka.Message{
		Key:     strconv.FormatInt(t.ID, 10),
		Payload: payload,
		Headers: map[string]string{"event_type": eventType},
	}
	if err := s.events.Publish(ctx, msg); err != nil {
		s.log.Warn("publish transaction event failed",
			zap.String("event", eventType),
			zap.Int64("transaction_id", t.ID),
			zap.Error(err),
		)
	}
}

func (s *Service) notifyReview(ctx context.Context, t model.Transaction) {
	if s.notifier == nil {
		return
	}

	review := telegram.PaymentReview{
		TransactionID: t.ID,
		Username:      t.Username,
		TotalAmount:   rules.FormatCents(t.TotalCents),
		RecipeCount:   t.RecipeCount,
	}
	if t.PaymentMethod != nil {
		review.PaymentMethod = *t.PaymentMethod
	}
	if t.PaymentProofURL != nil {
		review.ProofURL = *t.PaymentProofURL
	}

	ctx, cancel := s.sideEffectContext(ctx)
	defer cancel()

	if err := s.notifier.NotifyPaymentSubmitted(ctx, review); err != nil {
		s.log.Warn("notify payment review failed", zap.Int64("transaction_id", t.ID), zap.Error(err))
	}
}

// sideEffectContext bounds a post-commit call. It outlives a cancelled
// request because the write it reports on is already committed.
func (s *Service) sideEffectContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.sideEffectTimeout)
}
