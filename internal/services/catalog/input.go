package catalog

import (
	"strings"

	"github.com/ivankudzin/recipemarket/internal/domain/enums"
	"github.com/ivankudzin/recipemarket/internal/domain/model"
	"github.com/ivankudzin/recipemarket/internal/domain/rules"
	"github.com/ivankudzin/recipemarket/internal/pkg/validate"
)

// RecipeInput is an unvalidated recipe write. IsForSale defaults to true.
type RecipeInput struct {
	Title        string
	Description  *string
	VideoURL     *string
	PriceCents   int64
	Difficulty   string
	CookingTime  int
	Servings     int
	Category     string
	IsForSale    *bool
	Ingredients  []model.Ingredient
	Instructions []model.Instruction
	Nutrition    []model.Nutrition
}

func (in RecipeInput) draft() (model.RecipeDraft, error) {
	title := strings.TrimSpace(in.Title)
	if !validate.MinLength(title, rules.MinRecipeTitleLength) {
		return model.RecipeDraft{}, ErrInvalidTitle
	}
	if in.PriceCents < 0 {
		return model.RecipeDraft{}, ErrInvalidPrice
	}
	difficulty, ok := enums.ParseDifficulty(in.Difficulty)
	if !ok {
		return model.RecipeDraft{}, ErrInvalidDifficulty
	}
	if in.CookingTime < 1 {
		return model.RecipeDraft{}, ErrInvalidCookingTime
	}
	if in.Servings < 1 {
		return model.RecipeDraft{}, ErrInvalidServings
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		return model.RecipeDraft{}, ErrCategoryRequired
	}

	if len(in.Ingredients) == 0 {
		return model.RecipeDraft{}, ErrIngredientsMissing
	}
	ingredients := make([]model.Ingredient, 0, len(in.Ingredients))
	for _, ing := range in.Ingredients {
		ing.Label = strings.TrimSpace(ing.Label)
		if ing.Label == "" || negative(ing.Quantity) {
			return model.RecipeDraft{}, ErrInvalidIngredient
		}
		ing.Measurement = trimmedOrNil(ing.Measurement)
		ingredients = append(ingredients, ing)
	}

	if len(in.Instructions) == 0 {
		return model.RecipeDraft{}, ErrStepsMissing
	}
	seen := make(map[int]struct{}, len(in.Instructions))
	instructions := make([]model.Instruction, 0, len(in.Instructions))
	for _, inst := range in.Instructions {
		inst.Content = strings.TrimSpace(inst.Content)
		if inst.Step < 1 || !validate.MinLength(inst.Content, rules.MinInstructionLength) {
			return model.RecipeDraft{}, ErrInvalidInstruction
		}
		if _, dup := seen[inst.Step]; dup {
			return model.RecipeDraft{}, ErrDuplicateStep
		}
		seen[inst.Step] = struct{}{}
		instructions = append(instructions, inst)
	}

	nutrition := make([]model.Nutrition, 0, len(in.Nutrition))
	for _, n := range in.Nutrition {
		n.Type = strings.TrimSpace(n.Type)
		if n.Type == "" || negative(n.Quantity) {
			return model.RecipeDraft{}, ErrInvalidNutrition
		}
		n.Measurement = trimmedOrNil(n.Measurement)
		nutrition = append(nutrition, n)
	}

	forSale := true
	if in.IsForSale != nil {
		forSale = *in.IsForSale
	}

	return model.RecipeDraft{
		Title:        title,
		Description:  trimmedOrNil(in.Description),
		VideoURL:     trimmedOrNil(in.VideoURL),
		PriceCents:   in.PriceCents,
		Difficulty:   difficulty,
		CookingTime:  in.CookingTime,
		Servings:     in.Servings,
		Category:     category,
		IsForSale:    forSale,
		Ingredients:  ingredients,
		Instructions: instructions,
		Nutrition:    nutrition,
	}, nil
}

func negative(v *float64) bool {
	return v != nil && *v < 0
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}
