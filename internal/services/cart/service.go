package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ivankudzin/recipemarket/internal/domain/model"
	"github.com/ivankudzin/recipemarket/internal/domain/rules"
	"github.com/ivankudzin/recipemarket/internal/pkg/apperr"
	pgrepo "github.com/ivankudzin/recipemarket/internal/repo/postgres"
	"github.com/ivankudzin/recipemarket/internal/services/rate"
)

var (
	ErrNotForSale    = apperr.Conflict("RECIPE_NOT_FOR_SALE", "Recipe is not available for purchase")
	ErrAlreadyInCart = apperr.Conflict("ALREADY_IN_CART", "Recipe is already in your cart")
	ErrAlreadyOwned  = apperr.Conflict("ALREADY_OWNED", "You already own this recipe")
	ErrItemNotFound  = apperr.NotFound("CART_ITEM_NOT_FOUND", "Item not found in cart")
)

// SaleInfoReader resolves a recipe for admission. It must return a
// NotFound classified error for a missing recipe.
type SaleInfoReader interface {
	SaleInfo(ctx context.Context, recipeID int64) (model.SaleInfo, error)
}

type Store interface {
	Exists(ctx context.Context, userID, recipeID int64) (bool, error)
	Insert(ctx context.Context, userID, recipeID int64) (id int64, addedAt time.Time, inserted bool, err error)
	Delete(ctx context.Context, userID, recipeID int64) (int64, error)
	List(ctx context.Context, userID int64) ([]model.CartItem, error)
}

type PurchaseChecker interface {
	Exists(ctx context.Context, userID, recipeID int64) (bool, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, action rate.Action, userID int64) error
}

type RemovedEntry struct {
	ID       int64
	RecipeID int64
}

type Dependencies struct {
	Recipes   SaleInfoReader
	Store     Store
	Purchases PurchaseChecker
	Limiter   RateLimiter
}

type Service struct {
	recipes   SaleInfoReader
	store     Store
	purchases PurchaseChecker
	limiter   RateLimiter
}

func NewService(deps Dependencies) *Service {
	return &Service{
		recipes:   deps.Recipes,
		store:     deps.Store,
		purchases: deps.Purchases,
		limiter:   deps.Limiter,
	}
}

// Add admits a recipe into the cart. The pre-checks only pick the error
// message; the unique pair constraint decides AlreadyInCart.
func (s *Service) Add(ctx context.Context, userID, recipeID int64) (model.CartEntry, error) {
	if s.limiter != nil {
		if err := s.limiter.Allow(ctx, rate.ActionAddToCart, userID); err != nil {
			return model.CartEntry{}, err
		}
	}

	info, err := s.recipes.SaleInfo(ctx, recipeID)
	if err != nil {
		return model.CartEntry{}, err
	}
	if !info.IsForSale {
		return model.CartEntry{}, ErrNotForSale
	}

	inCart, err := s.store.Exists(ctx, userID, recipeID)
	if err != nil {
		return model.CartEntry{}, fmt.Errorf("check cart entry: %w", err)
	}
	if inCart {
		return model.CartEntry{}, ErrAlreadyInCart
	}

	owned, err := s.purchases.Exists(ctx, userID, recipeID)
	if err != nil {
		return model.CartEntry{}, fmt.Errorf("check ownership: %w", err)
	}
	if owned {
		return model.CartEntry{}, ErrAlreadyOwned
	}

	id, addedAt, inserted, err := s.store.Insert(ctx, userID, recipeID)
	if err != nil {
		return model.CartEntry{}, fmt.Errorf("insert cart entry: %w", err)
	}
	if !inserted {
		return model.CartEntry{}, ErrAlreadyInCart
	}

	return model.CartEntry{
		ID:         id,
		UserID:     userID,
		RecipeID:   recipeID,
		Title:      info.Title,
		PriceCents: info.PriceCents,
		AddedAt:    addedAt,
	}, nil
}

// Remove is deliberately not idempotent: a repeated call reports
// ErrItemNotFound.
func (s *Service) Remove(ctx context.Context, userID, recipeID int64) (RemovedEntry, error) {
	id, err := s.store.Delete(ctx, userID, recipeID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrCartEntryNotFound) {
			return RemovedEntry{}, ErrItemNotFound
		}
		return RemovedEntry{}, fmt.Errorf("remove cart entry: %w", err)
	}
	return RemovedEntry{ID: id, RecipeID: recipeID}, nil
}

func (s *Service) Get(ctx context.Context, userID int64) (model.Cart, error) {
	items, err := s.store.List(ctx, userID)
	if err != nil {
		return model.Cart{}, fmt.Errorf("load cart: %w", err)
	}
	if items == nil {
		items = []model.CartItem{}
	}

	prices := make([]int64, len(items))
	for i, item := range items {
		prices[i] = item.PriceCents
	}

	return model.Cart{
		Items:      items,
		TotalCents: rules.SumCents(prices...),
		ItemCount:  len(items),
	}, nil
}
