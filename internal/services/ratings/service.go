package ratings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ivankudzin/recipemarket/internal/domain/model"
	"github.com/ivankudzin/recipemarket/internal/domain/rules"
	"github.com/ivankudzin/recipemarket/internal/pkg/apperr"
	pgrepo "github.com/ivankudzin/recipemarket/internal/repo/postgres"
)

var (
	ErrInvalidScore      = apperr.Validation("INVALID_RATING_SCORE", "Rating score must be between 1 and 5")
	ErrMustPurchaseFirst = apperr.Forbidden("MUST_PURCHASE_FIRST", "You must purchase this recipe before rating it")
	ErrRecipeNotFound    = apperr.NotFound("RECIPE_NOT_FOUND", "Recipe not found")
	ErrRatingNotOwned    = apperr.Forbidden("RATING_NOT_ACCESSIBLE", "Rating not found or you do not have permission to delete it")
)

type Store interface {
	Upsert(ctx context.Context, userID, recipeID int64, score int, comment *string) (model.Rating, error)
	ListForRecipe(ctx context.Context, recipeID int64) (model.RecipeRatings, error)
	DeleteOwned(ctx context.Context, ratingID, userID int64) (int64, error)
}

type RecipeChecker interface {
	Exists(ctx context.Context, recipeID int64) (bool, error)
}

type PurchaseChecker interface {
	Exists(ctx context.Context, userID, recipeID int64) (bool, error)
}

type Dependencies struct {
	Store     Store
	Recipes   RecipeChecker
	Purchases PurchaseChecker
}

type Service struct {
	store     Store
	recipes   RecipeChecker
	purchases PurchaseChecker
}

func NewService(deps Dependencies) *Service {
	return &Service{store: deps.Store, recipes: deps.Recipes, purchases: deps.Purchases}
}

// Upsert creates or replaces the caller's single rating of a recipe. The
// score is checked before ownership so a bad score always reads as invalid.
func (s *Service) Upsert(ctx context.Context, userID, recipeID int64, score int, comment *string) (model.Rating, error) {
	if !rules.ValidRatingScore(score) {
		return model.Rating{}, ErrInvalidScore
	}

	owned, err := s.purchases.Exists(ctx, userID, recipeID)
	if err != nil {
		return model.Rating{}, fmt.Errorf("check purchase: %w", err)
	}
	if !owned {
		return model.Rating{}, ErrMustPurchaseFirst
	}

	if err := s.ensureRecipe(ctx, recipeID); err != nil {
		return model.Rating{}, err
	}

	rating, err := s.store.Upsert(ctx, userID, recipeID, score, normalizeComment(comment))
	if err != nil {
		return model.Rating{}, fmt.Errorf("save rating: %w", err)
	}
	return rating, nil
}

func (s *Service) ListForRecipe(ctx context.Context, recipeID int64) (model.RecipeRatings, error) {
	if err := s.ensureRecipe(ctx, recipeID); err != nil {
		return model.RecipeRatings{}, err
	}

	out, err := s.store.ListForRecipe(ctx, recipeID)
	if err != nil {
		return model.RecipeRatings{}, fmt.Errorf("list ratings: %w", err)
	}
	if out.Ratings == nil {
		out.Ratings = []model.Rating{}
	}
	out.Average = rules.RoundRating(out.Average)
	return out, nil
}

// Delete removes a rating owned by userID. Someone else's rating and a
// missing one are indistinguishable to the caller.
func (s *Service) Delete(ctx context.Context, ratingID, userID int64) error {
	if _, err := s.store.DeleteOwned(ctx, ratingID, userID); err != nil {
		if errors.Is(err, pgrepo.ErrRatingNotFound) {
			return ErrRatingNotOwned
		}
		return fmt.Errorf("delete rating: %w", err)
	}
	return nil
}

func (s *Service) ensureRecipe(ctx context.Context, recipeID int64) error {
	exists, err := s.recipes.Exists(ctx, recipeID)
	if err != nil {
		return fmt.Errorf("check recipe: %w", err)
	}
	if !exists {
		return ErrRecipeNotFound
	}
	return nil
}

func normalizeComment(comment *string) *string {
	if comment == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*comment)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
