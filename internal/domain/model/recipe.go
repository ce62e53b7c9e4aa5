package model

import (
	"time"

	"github.com/ivankudzin/recipemarket/internal/domain/enums"
)

type Recipe struct {
	ID            int64
	AuthorID      int64
	Title         string
	Description   *string
	VideoURL      *string
	ThumbnailURL  *string
	ThumbnailKey  *string
	PriceCents    int64
	Difficulty    enums.Difficulty
	CookingTime   int
	Servings      int
	Category      string
	IsForSale     bool
	PurchaseCount int64
	ViewCount     int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Ingredient struct {
	ID          int64
	Label       string
	Quantity    *float64
	Measurement *string
}

type Instruction struct {
	ID      int64
	Step    int
	Content string
}

type Nutrition struct {
	ID          int64
	Type        string
	Quantity    *float64
	Measurement *string
}

type RecipeSummary struct {
	Recipe
	AverageRating float64
	TotalRatings  int64
}

type RecipeDetail struct {
	RecipeSummary
	Ingredients  []Ingredient
	Instructions []Instruction
	Nutrition    []Nutrition
}

// SaleInfo is the slice of a recipe the cart needs to admit an entry.
type SaleInfo struct {
	RecipeID   int64
	Title      string
	PriceCents int64
	IsForSale  bool
}

// RecipeDraft is a validated recipe ready to be written with its children.
type RecipeDraft struct {
	Title        string
	Description  *string
	VideoURL     *string
	PriceCents   int64
	Difficulty   enums.Difficulty
	CookingTime  int
	Servings     int
	Category     string
	IsForSale    bool
	Ingredients  []Ingredient
	Instructions []Instruction
	Nutrition    []Nutrition
}

type RecipeSort string

const (
	RecipeSortNewest  RecipeSort = "newest"
	RecipeSortPrice   RecipeSort = "price"
	RecipeSortRating  RecipeSort = "rating"
	RecipeSortPopular RecipeSort = "popular"
)

type RecipeFilter struct {
	Search         string
	Difficulty     enums.Difficulty
	MinCookingTime int
	MaxCookingTime int
	Sort           RecipeSort
	PurchasedBy    int64
	Limit          int
	Offset         int
}

type RecipeImage struct {
	ID           int64
	RecipeID     int64
	URL          string
	Key          string
	AltText      string
	IsTitleImage bool
	CreatedAt    time.Time
}
