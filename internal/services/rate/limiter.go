package rate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ivankudzin/recipemarket/internal/pkg/apperr"
)

type Action string

const (
	ActionAddToCart     Action = "cart_add"
	ActionSubmitPayment Action = "payment_submit"

	actionWindow = time.Minute
)

var (
	ErrRateLimited = apperr.RateLimited("RATE_LIMITED", "Too many requests, please slow down")
	ErrUnavailable = apperr.Dependency("RATE_LIMIT_UNAVAILABLE", "Rate limiter is unavailable")
)

// LimitError carries how long the caller has to wait. It unwraps to
// ErrRateLimited so the boundary can classify it.
type LimitError struct {
	Action        Action
	RetryAfterSec int64
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s rate limited, retry after %ds", e.Action, e.RetryAfterSec)
}

func (e *LimitError) Unwrap() error {
	return ErrRateLimited
}

// RetryAfter extracts the wait hint from a rate limit error.
func RetryAfter(err error) (int64, bool) {
	var limitErr *LimitError
	if errors.As(err, &limitErr) {
		return limitErr.RetryAfterSec, true
	}
	return 0, false
}

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	WindowState(ctx context.Context, key string) (int64, time.Duration, error)
}

type Limits map[Action]int

// Limiter enforces per-user fixed windows of one minute. A nil limiter or
// an action with no positive limit always allows.
type Limiter struct {
	store  WindowStore
	limits Limits
}

func NewLimiter(store WindowStore, limits Limits) *Limiter {
	copied := make(Limits, len(limits))
	for action, limit := range limits {
		if limit > 0 {
			copied[action] = limit
		}
	}
	return &Limiter{store: store, limits: copied}
}

func (l *Limiter) Allow(ctx context.Context, action Action, userID int64) error {
	if l == nil {
		return nil
	}
	limit, ok := l.limits[action]
	if !ok {
		return nil
	}
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}
	if l.store == nil {
		return fmt.Errorf("rate limiter store is nil")
	}

	count, ttl, err := l.store.IncrementWindow(ctx, windowKey(action, userID), actionWindow)
	if err != nil {
		return apperr.Wrap(ErrUnavailable, err)
	}
	if count > int64(limit) {
		return &LimitError{Action: action, RetryAfterSec: ceilSeconds(ttl)}
	}
	return nil
}

// RetryAfter reports the remaining wait without consuming a slot.
func (l *Limiter) RetryAfter(ctx context.Context, action Action, userID int64) (int64, error) {
	if l == nil {
		return 0, nil
	}
	limit, ok := l.limits[action]
	if !ok {
		return 0, nil
	}
	if l.store == nil {
		return 0, fmt.Errorf("rate limiter store is nil")
	}

	count, ttl, err := l.store.WindowState(ctx, windowKey(action, userID))
	if err != nil {
		return 0, apperr.Wrap(ErrUnavailable, err)
	}
	if count >= int64(limit) {
		return ceilSeconds(ttl), nil
	}
	return 0, nil
}

func windowKey(action Action, userID int64) string {
	return "recipemarket:rate:" + string(action) + ":" + strconv.FormatInt(userID, 10)
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 1
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	return sec
}
