package catalog

import "github.com/ivankudzin/recipemarket/internal/pkg/apperr"

var (
	ErrRecipeNotFound       = apperr.NotFound("RECIPE_NOT_FOUND", "Recipe not found")
	ErrAuthRequired         = apperr.Unauthenticated("AUTH_REQUIRED", "Authentication required")
	ErrMustPurchaseToView   = apperr.Forbidden("MUST_PURCHASE_TO_VIEW", "You must purchase this recipe to view its details")
	ErrRecipeHasPurchases   = apperr.Conflict("RECIPE_HAS_PURCHASES", "Recipe has been purchased and cannot be deleted")
	ErrRecipeInTransactions = apperr.Conflict("RECIPE_IN_TRANSACTIONS", "Recipe is part of a transaction and cannot be deleted")

	ErrInvalidTitle       = apperr.Validation("INVALID_TITLE", "Title must be at least 3 characters long")
	ErrInvalidPrice       = apperr.Validation("INVALID_PRICE", "Price must be a non-negative number")
	ErrInvalidDifficulty  = apperr.Validation("INVALID_DIFFICULTY", "Difficulty must be one of: easy, medium, hard")
	ErrInvalidCookingTime = apperr.Validation("INVALID_COOKING_TIME", "Cooking time must be at least 1 minute")
	ErrInvalidServings    = apperr.Validation("INVALID_SERVINGS", "Servings must be at least 1")
	ErrCategoryRequired   = apperr.Validation("CATEGORY_REQUIRED", "Category is required")
	ErrIngredientsMissing = apperr.Validation("INGREDIENTS_REQUIRED", "At least one ingredient is required")
	ErrInvalidIngredient  = apperr.Validation("INVALID_INGREDIENT", "Each ingredient needs a label and a non-negative quantity")
	ErrStepsMissing       = apperr.Validation("INSTRUCTIONS_REQUIRED", "At least one instruction is required")
	ErrInvalidInstruction = apperr.Validation("INVALID_INSTRUCTION", "Each instruction needs a positive step and at least 10 characters of content")
	ErrDuplicateStep      = apperr.Validation("DUPLICATE_INSTRUCTION_STEP", "Instruction steps must be unique")
	ErrInvalidNutrition   = apperr.Validation("INVALID_NUTRITION", "Each nutrition entry needs a type and a non-negative quantity")

	ErrInvalidFilter = apperr.Validation("INVALID_FILTER", "Unknown difficulty, cooking time or sort value")
)
