package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ivankudzin/recipemarket/internal/pkg/apperr"
	redrepo "github.com/ivankudzin/recipemarket/internal/repo/redis"
)

func TestLimiterBlocksAfterLimit(t *testing.T) {
	mr, client := newMiniRedisClient(t)

	limiter := NewLimiter(redrepo.NewRateRepo(client), Limits{ActionSubmitPayment: 2})
	ctx := context.Background()
	userID := int64(42)

	for i := 0; i < 2; i++ {
		if err := limiter.Allow(ctx, ActionSubmitPayment, userID); err != nil {
			t.Fatalf("allow #%d: %v", i+1, err)
		}
	}

	err := limiter.Allow(ctx, ActionSubmitPayment, userID)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected rate limit on third action, got %v", err)
	}
	if apperr.KindOf(err) != apperr.KindRateLimited {
		t.Fatalf("unexpected kind %v", apperr.KindOf(err))
	}
	retryAfter, ok := RetryAfter(err)
	if !ok || retryAfter <= 0 || retryAfter > 60 {
		t.Fatalf("unexpected retry_after %d (ok=%v)", retryAfter, ok)
	}

	current, err := limiter.RetryAfter(ctx, ActionSubmitPayment, userID)
	if err != nil {
		t.Fatalf("retry_after state: %v", err)
	}
	if current <= 0 {
		t.Fatalf("expected positive retry_after state, got %d", current)
	}

	mr.FastForward(61 * time.Second)

	if err := limiter.Allow(ctx, ActionSubmitPayment, userID); err != nil {
		t.Fatalf("allow after window: %v", err)
	}
}

func TestLimiterKeepsActionsAndUsersApart(t *testing.T) {
	_, client := newMiniRedisClient(t)

	limiter := NewLimiter(redrepo.NewRateRepo(client), Limits{ActionSubmitPayment: 1, ActionAddToCart: 1})
	ctx := context.Background()

	if err := limiter.Allow(ctx, ActionSubmitPayment, 1); err != nil {
		t.Fatalf("payment user 1: %v", err)
	}
	if err := limiter.Allow(ctx, ActionAddToCart, 1); err != nil {
		t.Fatalf("cart user 1: %v", err)
	}
	if err := limiter.Allow(ctx, ActionSubmitPayment, 2); err != nil {
		t.Fatalf("payment user 2: %v", err)
	}
	if err := limiter.Allow(ctx, ActionSubmitPayment, 1); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("second payment user 1 should be limited, got %v", err)
	}
}

func TestLimiterWithoutLimitAllows(t *testing.T) {
	limiter := NewLimiter(nil, Limits{ActionAddToCart: 0})
	for i := 0; i < 5; i++ {
		if err := limiter.Allow(context.Background(), ActionAddToCart, 7); err != nil {
			t.Fatalf("unlimited action must pass: %v", err)
		}
	}

	var nilLimiter *Limiter
	if err := nilLimiter.Allow(context.Background(), ActionSubmitPayment, 7); err != nil {
		t.Fatalf("nil limiter must pass: %v", err)
	}
}

func TestLimiterStoreFailureIsDependencyError(t *testing.T) {
	limiter := NewLimiter(failingStore{err: errors.New("dial tcp: connection refused")}, Limits{ActionAddToCart: 3})

	err := limiter.Allow(context.Background(), ActionAddToCart, 9)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	if apperr.KindOf(err) != apperr.KindDependency {
		t.Fatalf("unexpected kind %v", apperr.KindOf(err))
	}
	if _, ok := RetryAfter(err); ok {
		t.Fatalf("store failure must not look like a rate limit")
	}

	if _, err := limiter.RetryAfter(context.Background(), ActionAddToCart, 9); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected unavailable error from RetryAfter, got %v", err)
	}
}

type failingStore struct {
	err error
}

func (f failingStore) IncrementWindow(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, f.err
}

func (f failingStore) WindowState(context.Context, string) (int64, time.Duration, error) {
	return 0, 0, f.err
}

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}
