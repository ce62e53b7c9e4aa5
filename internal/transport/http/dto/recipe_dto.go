package dto

import (
	"time"

	"github.com/ivankudzin/recipemarket/internal/domain/model"
	"github.com/ivankudzin/recipemarket/internal/domain/rules"
)

type IngredientDTO struct {
	ID          int64    `json:"id,omitempty"`
	Label       string   `json:"label"`
	Quantity    *float64 `json:"quantity"`
	Measurement *string  `json:"measurement"`
}

type InstructionDTO struct {
	ID      int64  `json:"id,omitempty"`
	Step    int    `json:"step"`
	Content string `json:"content"`
}

type NutritionDTO struct {
	ID          int64    `json:"id,omitempty"`
	Type        string   `json:"type"`
	Quantity    *float64 `json:"quantity"`
	Measurement *string  `json:"measurement"`
}

// RecipeRequest is the body of recipe create and update calls. Price is a
// decimal amount.
type RecipeRequest struct {
	Title        string           `json:"title"`
	Description  *string          `json:"description"`
	VideoURL     *string          `json:"videoUrl"`
	Price        float64          `json:"price"`
	Difficulty   string           `json:"difficulty"`
	CookingTime  int              `json:"cookingTime"`
	Servings     int              `json:"servings"`
	Category     string           `json:"category"`
	IsForSale    *bool            `json:"isForSale"`
	Ingredients  []IngredientDTO  `json:"ingredients"`
	Instructions []InstructionDTO `json:"instructions"`
	Nutrition    []NutritionDTO   `json:"nutrition"`
}

type SaleRequest struct {
	IsForSale *bool `json:"isForSale"`
}

type RecipeSummaryResponse struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   *string   `json:"description"`
	ThumbnailURL  *string   `json:"thumbnailUrl"`
	Price         string    `json:"price"`
	Difficulty    string    `json:"difficulty"`
	CookingTime   int       `json:"cookingTime"`
	Servings      int       `json:"servings"`
	Category      string    `json:"category"`
	IsForSale     bool      `json:"isForSale"`
	PurchaseCount int64     `json:"purchaseCount"`
	ViewCount     int64     `json:"viewCount"`
	AverageRating float64   `json:"averageRating"`
	TotalRatings  int64     `json:"totalRatings"`
	CreatedAt     time.Time `json:"createdAt"`
}

type RecipeDetailResponse struct {
	RecipeSummaryResponse
	VideoURL     *string          `json:"videoUrl"`
	Ingredients  []IngredientDTO  `json:"ingredients"`
	Instructions []InstructionDTO `json:"instructions"`
	Nutrition    []NutritionDTO   `json:"nutrition"`
}

type PaginationResponse struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type RecipePageResponse struct {
	Recipes    []RecipeSummaryResponse `json:"recipes"`
	Pagination PaginationResponse      `json:"pagination"`
}

func NewPagination(p model.Pagination) PaginationResponse {
	return PaginationResponse{Page: p.Page, Limit: p.Limit, Total: p.Total, TotalPages: p.TotalPages}
}

func NewRecipeSummary(r model.RecipeSummary) RecipeSummaryResponse {
	return RecipeSummaryResponse{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		ThumbnailURL:  r.ThumbnailURL,
		Price:         rules.FormatCents(r.PriceCents),
		Difficulty:    string(r.Difficulty),
		CookingTime:   r.CookingTime,
		Servings:      r.Servings,
		Category:      r.Category,
		IsForSale:     r.IsForSale,
		PurchaseCount: r.PurchaseCount,
		ViewCount:     r.ViewCount,
		AverageRating: r.AverageRating,
		TotalRatings:  r.TotalRatings,
		CreatedAt:     r.CreatedAt,
	}
}

func NewRecipeDetail(r model.RecipeDetail) RecipeDetailResponse {
	out := RecipeDetailResponse{
		RecipeSummaryResponse: NewRecipeSummary(r.RecipeSummary),
		VideoURL:              r.VideoURL,
		Ingredients:           make([]IngredientDTO, 0, len(r.Ingredients)),
		Instructions:          make([]InstructionDTO, 0, len(r.Instructions)),
		Nutrition:             make([]NutritionDTO, 0, len(r.Nutrition)),
	}
	for _, ing := range r.Ingredients {
		out.Ingredients = append(out.Ingredients, IngredientDTO(ing))
	}
	for _, ins := range r.Instructions {
		out.Instructions = append(out.Instructions, InstructionDTO(ins))
	}
	for _, n := range r.Nutrition {
		out.Nutrition = append(out.Nutrition, NutritionDTO(n))
	}
	return out
}

func NewRecipePage(items []model.RecipeSummary, p model.Pagination) RecipePageResponse {
	out := RecipePageResponse{
		Recipes:    make([]RecipeSummaryResponse, 0, len(items)),
		Pagination: NewPagination(p),
	}
	for _, item := range items {
		out.Recipes = append(out.Recipes, NewRecipeSummary(item))
	}
	return out
}
