package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/recipemarket/internal/domain/model"
)

var ErrRecipeImageNotFound = errors.New("recipe image not found")

type RecipeImageRepo struct {
	pool *pgxpool.Pool
}

func NewRecipeImageRepo(pool *pgxpool.Pool) *RecipeImageRepo {
	return &RecipeImageRepo{pool: pool}
}

const recipeImageColumns = `id, recipe_id, url, object_key, alt_text, is_title_image, created_at`

func scanRecipeImage(row rowScanner) (model.RecipeImage, error) {
	var img model.RecipeImage
	err := row.Scan(&img.ID, &img.RecipeID, &img.URL, &img.Key, &img.AltText, &img.IsTitleImage, &img.CreatedAt)
	return img, err
}

// Insert links a stored image to a recipe. The recipe row is locked so that
// concurrent title changes serialize; a new title image demotes the old one.
func (r *RecipeImageRepo) Insert(ctx context.Context, tx pgx.Tx, img model.RecipeImage) (model.RecipeImage, error) {
	if tx == nil {
		return model.RecipeImage{}, ErrNilTx
	}

	var locked int64
	err := tx.QueryRow(ctx, `SELECT id FROM recipes WHERE id = $1 FOR UPDATE`, img.RecipeID).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.RecipeImage{}, ErrRecipeNotFound
		}
		return model.RecipeImage{}, fmt.Errorf("lock recipe for image: %w", err)
	}

	if img.IsTitleImage {
		if _, err := tx.Exec(ctx, `
UPDATE recipe_images SET is_title_image = FALSE
WHERE recipe_id = $1 AND is_title_image
`, img.RecipeID); err != nil {
			return model.RecipeImage{}, fmt.Errorf("clear title image: %w", err)
		}
	}

	created, err := scanRecipeImage(tx.QueryRow(ctx, `
INSERT INTO recipe_images (recipe_id, url, object_key, alt_text, is_title_image, created_at)
VALUES ($1, $2, $3, $4, $5, NOW())
RETURNING `+recipeImageColumns, img.RecipeID, img.URL, img.Key, img.AltText, img.IsTitleImage))
	if err != nil {
		if isUniqueViolation(err) {
			return model.RecipeImage{}, ErrDuplicate
		}
		return model.RecipeImage{}, fmt.Errorf("insert recipe image: %w", err)
	}
	return created, nil
}

// ListForRecipe returns the gallery with the title image first, then oldest
// first.
func (r *RecipeImageRepo) ListForRecipe(ctx context.Context, recipeID int64) ([]model.RecipeImage, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+recipeImageColumns+`
FROM recipe_images
WHERE recipe_id = $1
ORDER BY is_title_image DESC, created_at ASC, id ASC
`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("list recipe images: %w", err)
	}

	images, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.RecipeImage, error) {
		return scanRecipeImage(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan recipe images: %w", err)
	}
	return images, nil
}

// Delete removes one gallery row and returns its object key.
func (r *RecipeImageRepo) Delete(ctx context.Context, tx pgx.Tx, imageID int64) (string, error) {
	if tx == nil {
		return "", ErrNilTx
	}

	var key string
	err := tx.QueryRow(ctx, `DELETE FROM recipe_images WHERE id = $1 RETURNING object_key`, imageID).Scan(&key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrRecipeImageNotFound
		}
		return "", fmt.Errorf("delete recipe image: %w", err)
	}
	return key, nil
}
