package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/ivankudzin/recipemarket/internal/domain/enums"
	"github.com/ivankudzin/recipemarket/internal/domain/model"
	"github.com/ivankudzin/recipemarket/internal/domain/rules"
	pgrepo "github.com/ivankudzin/recipemarket/internal/repo/postgres"
)

type TxRunner interface {
	WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

type RecipeStore interface {
	Create(ctx context.Context, tx pgx.Tx, authorID int64, draft model.RecipeDraft) (int64, error)
	Update(ctx context.Context, tx pgx.Tx, recipeID int64, draft model.RecipeDraft) error
	SetForSale(ctx context.Context, recipeID int64, forSale bool) error
	LockForDelete(ctx context.Context, tx pgx.Tx, recipeID int64) (hasPurchases, inTransactions bool, err error)
	Delete(ctx context.Context, tx pgx.Tx, recipeID int64) ([]string, error)
	FindDetail(ctx context.Context, q pgrepo.Querier, recipeID int64) (model.RecipeDetail, error)
	IncrementViewCount(ctx context.Context, recipeID int64) error
	Exists(ctx context.Context, recipeID int64) (bool, error)
	SaleInfo(ctx context.Context, recipeID int64) (model.SaleInfo, error)
	Overview(ctx context.Context, filter model.RecipeFilter) ([]model.RecipeSummary, int64, error)
}

type PurchaseChecker interface {
	Exists(ctx context.Context, userID, recipeID int64) (bool, error)
}

// BlobDiscarder removes an object that a committed write made unreachable.
type BlobDiscarder interface {
	DiscardSuperseded(ctx context.Context, previous *string, current string)
}

// Viewer is the caller as seen by read operations. A nil viewer is anonymous.
type Viewer struct {
	UserID int64
	Admin  bool
}

type OverviewQuery struct {
	Search      string
	Difficulty  string
	CookingTime string
	Sort        string
	Mine        bool
	Page        int
	Limit       int
}

type Page struct {
	Items      []model.RecipeSummary
	Pagination model.Pagination
}

type Config struct {
	DefaultPageSize int
	MaxPageSize     int
}

type Dependencies struct {
	Tx        TxRunner
	Recipes   RecipeStore
	Purchases PurchaseChecker
	Blobs     BlobDiscarder
}

type Service struct {
	tx        TxRunner
	recipes   RecipeStore
	purchases PurchaseChecker
	blobs     BlobDiscarder
	cfg       Config
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = rules.DefaultPageSize
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = rules.MaxPageSize
	}
	return &Service{
		tx:        deps.Tx,
		recipes:   deps.Recipes,
		purchases: deps.Purchases,
		blobs:     deps.Blobs,
		cfg:       cfg,
	}
}

func (s *Service) Create(ctx context.Context, authorID int64, in RecipeInput) (model.RecipeDetail, error) {
	draft, err := in.draft()
	if err != nil {
		return model.RecipeDetail{}, err
	}

	var recipeID int64
	err = s.tx.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		id, err := s.recipes.Create(ctx, tx, authorID, draft)
		if err != nil {
			return err
		}
		recipeID = id
		return nil
	})
	if err != nil {
		return model.RecipeDetail{}, fmt.Errorf("create recipe: %w", err)
	}

	return s.detail(ctx, recipeID)
}

func (s *Service) Update(ctx context.Context, recipeID int64, in RecipeInput) (model.RecipeDetail, error) {
	draft, err := in.draft()
	if err != nil {
		return model.RecipeDetail{}, err
	}

	err = s.tx.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return s.recipes.Update(ctx, tx, recipeID, draft)
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrRecipeNotFound) {
			return model.RecipeDetail{}, ErrRecipeNotFound
		}
		return model.RecipeDetail{}, fmt.Errorf("update recipe: %w", err)
	}

	return s.detail(ctx, recipeID)
}

func (s *Service) SetForSale(ctx context.Context, recipeID int64, forSale bool) error {
	if err := s.recipes.SetForSale(ctx, recipeID, forSale); err != nil {
		if errors.Is(err, pgrepo.ErrRecipeNotFound) {
			return ErrRecipeNotFound
		}
		return fmt.Errorf("set recipe sale state: %w", err)
	}
	return nil
}

// Delete removes a recipe nobody has bought or ordered. Its thumbnail blob
// is removed only after the row is gone.
func (s *Service) Delete(ctx context.Context, recipeID int64) error {
	var blobKeys []string
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		hasPurchases, inTransactions, err := s.recipes.LockForDelete(ctx, tx, recipeID)
		if err != nil {
			return err
		}
		if hasPurchases {
			return ErrRecipeHasPurchases
		}
		if inTransactions {
			return ErrRecipeInTransactions
		}
		keys, err := s.recipes.Delete(ctx, tx, recipeID)
		if err != nil {
			return err
		}
		blobKeys = keys
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, pgrepo.ErrRecipeNotFound):
			return ErrRecipeNotFound
		case errors.Is(err, ErrRecipeHasPurchases), errors.Is(err, ErrRecipeInTransactions):
			return err
		default:
			return fmt.Errorf("delete recipe: %w", err)
		}
	}

	if s.blobs != nil {
		for _, key := range blobKeys {
			s.blobs.DiscardSuperseded(ctx, &key, "")
		}
	}
	return nil
}

func (s *Service) Overview(ctx context.Context, q OverviewQuery, viewer *Viewer) (Page, error) {
	filter := model.RecipeFilter{Search: strings.TrimSpace(q.Search)}

	if raw := strings.TrimSpace(q.Difficulty); raw != "" {
		difficulty, ok := enums.ParseDifficulty(raw)
		if !ok {
			return Page{}, ErrInvalidFilter
		}
		filter.Difficulty = difficulty
	}
	if raw := strings.TrimSpace(q.CookingTime); raw != "" {
		bucket, ok := rules.ParseCookingTimeBucket(raw)
		if !ok {
			return Page{}, ErrInvalidFilter
		}
		filter.MinCookingTime, filter.MaxCookingTime, _ = bucket.Bounds()
	}
	sort, ok := parseSort(q.Sort)
	if !ok {
		return Page{}, ErrInvalidFilter
	}
	filter.Sort = sort

	if q.Mine {
		if viewer == nil || viewer.UserID <= 0 {
			return Page{}, ErrAuthRequired
		}
		filter.PurchasedBy = viewer.UserID
	}

	page, limit := rules.NormalizePage(q.Page, q.Limit, s.cfg.DefaultPageSize, s.cfg.MaxPageSize)
	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	items, total, err := s.recipes.Overview(ctx, filter)
	if err != nil {
		return Page{}, fmt.Errorf("list recipes: %w", err)
	}
	for i := range items {
		items[i].AverageRating = rules.RoundRating(items[i].AverageRating)
	}

	return Page{Items: items, Pagination: model.NewPagination(page, limit, total)}, nil
}

// Detail is gated: only admins and buyers see ingredients and steps.
// Every successful read counts as one view.
func (s *Service) Detail(ctx context.Context, recipeID int64, viewer *Viewer) (model.RecipeDetail, error) {
	exists, err := s.recipes.Exists(ctx, recipeID)
	if err != nil {
		return model.RecipeDetail{}, fmt.Errorf("check recipe: %w", err)
	}
	if !exists {
		return model.RecipeDetail{}, ErrRecipeNotFound
	}
	if viewer == nil || viewer.UserID <= 0 {
		return model.RecipeDetail{}, ErrAuthRequired
	}
	if !viewer.Admin {
		owned, err := s.purchases.Exists(ctx, viewer.UserID, recipeID)
		if err != nil {
			return model.RecipeDetail{}, fmt.Errorf("check purchase: %w", err)
		}
		if !owned {
			return model.RecipeDetail{}, ErrMustPurchaseToView
		}
	}

	if err := s.recipes.IncrementViewCount(ctx, recipeID); err != nil {
		return model.RecipeDetail{}, fmt.Errorf("count recipe view: %w", err)
	}
	return s.detail(ctx, recipeID)
}

// SaleInfo reports whether a recipe can be bought and at which price.
func (s *Service) SaleInfo(ctx context.Context, recipeID int64) (model.SaleInfo, error) {
	info, err := s.recipes.SaleInfo(ctx, recipeID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrRecipeNotFound) {
			return model.SaleInfo{}, ErrRecipeNotFound
		}
		return model.SaleInfo{}, fmt.Errorf("read sale info: %w", err)
	}
	return info, nil
}

func (s *Service) detail(ctx context.Context, recipeID int64) (model.RecipeDetail, error) {
	detail, err := s.recipes.FindDetail(ctx, nil, recipeID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrRecipeNotFound) {
			return model.RecipeDetail{}, ErrRecipeNotFound
		}
		return model.RecipeDetail{}, fmt.Errorf("load recipe: %w", err)
	}
	detail.AverageRating = rules.RoundRating(detail.AverageRating)
	return detail, nil
}

func parseSort(raw string) (model.RecipeSort, bool) {
	switch model.RecipeSort(strings.ToLower(strings.TrimSpace(raw))) {
	case "", model.RecipeSortNewest:
		return model.RecipeSortNewest, true
	case model.RecipeSortPrice:
		return model.RecipeSortPrice, true
	case model.RecipeSortRating:
		return model.RecipeSortRating, true
	case model.RecipeSortPopular:
		return model.RecipeSortPopular, true
	default:
		return "", false
	}
}
