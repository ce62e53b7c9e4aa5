package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ivankudzin/recipemarket/internal/domain/model"
	"github.com/ivankudzin/recipemarket/internal/pkg/apperr"
	pgrepo "github.com/ivankudzin/recipemarket/internal/repo/postgres"
	"github.com/ivankudzin/recipemarket/internal/services/rate"
)

var errRecipeMissing = apperr.NotFound("RECIPE_NOT_FOUND", "Recipe not found")

type recipesStub map[int64]model.SaleInfo

func (r recipesStub) SaleInfo(_ context.Context, id int64) (model.SaleInfo, error) {
	info, ok := r[id]
	if !ok {
		return model.SaleInfo{}, errRecipeMissing
	}
	return info, nil
}

type cartStoreStub struct {
	rows map[[2]int64]int64
	next int64
	// racing makes Exists miss a row that Insert then collides with.
	racing bool
	items  []model.CartItem
}

func newCartStoreStub() *cartStoreStub {
	return &cartStoreStub{rows: map[[2]int64]int64{}}
}

func (s *cartStoreStub) Exists(_ context.Context, userID, recipeID int64) (bool, error) {
	if s.racing {
		return false, nil
	}
	_, ok := s.rows[[2]int64{userID, recipeID}]
	return ok, nil
}

func (s *cartStoreStub) Insert(_ context.Context, userID, recipeID int64) (int64, time.Time, bool, error) {
	key := [2]int64{userID, recipeID}
	if _, ok := s.rows[key]; ok {
		return 0, time.Time{}, false, nil
	}
	s.next++
	s.rows[key] = s.next
	return s.next, time.Now(), true, nil
}

func (s *cartStoreStub) Delete(_ context.Context, userID, recipeID int64) (int64, error) {
	key := [2]int64{userID, recipeID}
	id, ok := s.rows[key]
	if !ok {
		return 0, pgrepo.ErrCartEntryNotFound
	}
	delete(s.rows, key)
	return id, nil
}

func (s *cartStoreStub) List(context.Context, int64) ([]model.CartItem, error) {
	return s.items, nil
}

type ownedStub map[[2]int64]bool

func (o ownedStub) Exists(_ context.Context, userID, recipeID int64) (bool, error) {
	return o[[2]int64{userID, recipeID}], nil
}

type limiterStub struct {
	err     error
	actions []rate.Action
}

func (l *limiterStub) Allow(_ context.Context, action rate.Action, _ int64) error {
	l.actions = append(l.actions, action)
	return l.err
}

func newCartService(store *cartStoreStub, owned ownedStub, limiter RateLimiter) *Service {
	recipes := recipesStub{
		1: {RecipeID: 1, Title: "Ramen", PriceCents: 1000, IsForSale: true},
		2: {RecipeID: 2, Title: "Retired", PriceCents: 500, IsForSale: false},
	}
	return NewService(Dependencies{Recipes: recipes, Store: store, Purchases: owned, Limiter: limiter})
}

func TestAddChecksPreconditionsInOrder(t *testing.T) {
	store := newCartStoreStub()
	svc := newCartService(store, ownedStub{{7, 1}: true}, nil)
	ctx := context.Background()

	if _, err := svc.Add(ctx, 7, 404); !errors.Is(err, errRecipeMissing) {
		t.Fatalf("missing recipe: got %v", err)
	}
	if _, err := svc.Add(ctx, 7, 2); !errors.Is(err, ErrNotForSale) {
		t.Fatalf("not for sale: got %v", err)
	}
	if _, err := svc.Add(ctx, 7, 1); !errors.Is(err, ErrAlreadyOwned) {
		t.Fatalf("owned without cart row: got %v", err)
	}
	if len(store.rows) != 0 {
		t.Fatalf("no row may be written on failure")
	}
}

func TestAddTwiceReportsAlreadyInCart(t *testing.T) {
	store := newCartStoreStub()
	svc := newCartService(store, ownedStub{}, nil)
	ctx := context.Background()

	entry, err := svc.Add(ctx, 3, 1)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if entry.Title != "Ramen" || entry.PriceCents != 1000 {
		t.Fatalf("snapshot missing: %+v", entry)
	}

	if _, err := svc.Add(ctx, 3, 1); !errors.Is(err, ErrAlreadyInCart) {
		t.Fatalf("second add: got %v", err)
	}
	if len(store.rows) != 1 {
		t.Fatalf("expected exactly one row, got %d", len(store.rows))
	}
}

func TestAddLosingRaceReportsAlreadyInCart(t *testing.T) {
	store := newCartStoreStub()
	svc := newCartService(store, ownedStub{}, nil)
	ctx := context.Background()

	if _, err := svc.Add(ctx, 3, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	store.racing = true
	if _, err := svc.Add(ctx, 3, 1); !errors.Is(err, ErrAlreadyInCart) {
		t.Fatalf("constraint must decide: got %v", err)
	}
}

func TestAddIsRateLimited(t *testing.T) {
	limiter := &limiterStub{err: &rate.LimitError{Action: rate.ActionAddToCart, RetryAfterSec: 12}}
	svc := newCartService(newCartStoreStub(), ownedStub{}, limiter)

	_, err := svc.Add(context.Background(), 3, 1)
	if !errors.Is(err, rate.ErrRateLimited) {
		t.Fatalf("expected rate limit, got %v", err)
	}
	if len(limiter.actions) != 1 || limiter.actions[0] != rate.ActionAddToCart {
		t.Fatalf("unexpected limiter calls %v", limiter.actions)
	}
}

func TestRemoveIsNotIdempotent(t *testing.T) {
	store := newCartStoreStub()
	svc := newCartService(store, ownedStub{}, nil)
	ctx := context.Background()

	if _, err := svc.Add(ctx, 3, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	removed, err := svc.Remove(ctx, 3, 1)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if removed.RecipeID != 1 || removed.ID == 0 {
		t.Fatalf("unexpected removed entry %+v", removed)
	}
	if _, err := svc.Remove(ctx, 3, 1); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("second remove: got %v", err)
	}
}

func TestGetSumsLivePrices(t *testing.T) {
	store := newCartStoreStub()
	store.items = []model.CartItem{{RecipeID: 1, PriceCents: 1000}, {RecipeID: 4, PriceCents: 499}}
	svc := newCartService(store, ownedStub{}, nil)

	cart, err := svc.Get(context.Background(), 3)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cart.TotalCents != 1499 || cart.ItemCount != 2 {
		t.Fatalf("unexpected cart %+v", cart)
	}

	store.items = nil
	empty, err := svc.Get(context.Background(), 3)
	if err != nil {
		t.Fatalf("get empty: %v", err)
	}
	if empty.Items == nil || empty.TotalCents != 0 || empty.ItemCount != 0 {
		t.Fatalf("unexpected empty cart %+v", empty)
	}
}
