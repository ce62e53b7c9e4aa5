package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/recipemarket/internal/domain/model"
)

var ErrRatingNotFound = errors.New("rating not found")

type RatingRepo struct {
	pool *pgxpool.Pool
}

func NewRatingRepo(pool *pgxpool.Pool) *RatingRepo {
	return &RatingRepo{pool: pool}
}

func (r *RatingRepo) Upsert(ctx context.Context, userID, recipeID int64, score int, comment *string) (model.Rating, error) {
	if r.pool == nil {
		return model.Rating{}, fmt.Errorf("postgres pool is nil")
	}

	var rating model.Rating
	err := r.pool.QueryRow(ctx, `
INSERT INTO ratings (user_id, recipe_id, score, comment, created_at, updated_at)
VALUES ($1, $2, $3, $4, NOW(), NOW())
ON CONFLICT (user_id, recipe_id) DO UPDATE SET
	score = EXCLUDED.score,
	comment = EXCLUDED.comment,
	updated_at = NOW()
RETURNING id, recipe_id, user_id, score, comment, created_at, updated_at
`, userID, recipeID, score, comment).Scan(
		&rating.ID,
		&rating.RecipeID,
		&rating.UserID,
		&rating.Score,
		&rating.Comment,
		&rating.CreatedAt,
		&rating.UpdatedAt,
	)
	if err != nil {
		return model.Rating{}, fmt.Errorf("upsert rating: %w", err)
	}
	return rating, nil
}

func (r *RatingRepo) ListForRecipe(ctx context.Context, recipeID int64) (model.RecipeRatings, error) {
	if r.pool == nil {
		return model.RecipeRatings{}, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT rt.id, rt.recipe_id, rt.user_id, u.username, rt.score, rt.comment, rt.created_at, rt.updated_at
FROM ratings rt
JOIN users u ON u.id = rt.user_id
WHERE rt.recipe_id = $1
ORDER BY rt.updated_at DESC, rt.id DESC
`, recipeID)
	if err != nil {
		return model.RecipeRatings{}, fmt.Errorf("list ratings: %w", err)
	}

	ratings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Rating, error) {
		var rt model.Rating
		err := row.Scan(&rt.ID, &rt.RecipeID, &rt.UserID, &rt.Username, &rt.Score, &rt.Comment, &rt.CreatedAt, &rt.UpdatedAt)
		return rt, err
	})
	if err != nil {
		return model.RecipeRatings{}, fmt.Errorf("scan ratings: %w", err)
	}

	out := model.RecipeRatings{Ratings: ratings, Total: int64(len(ratings))}
	if len(ratings) > 0 {
		sum := 0
		for _, rt := range ratings {
			sum += rt.Score
		}
		out.Average = float64(sum) / float64(len(ratings))
	}
	return out, nil
}

// DeleteOwned removes the rating only when userID owns it.
func (r *RatingRepo) DeleteOwned(ctx context.Context, ratingID, userID int64) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var recipeID int64
	err := r.pool.QueryRow(ctx, `
DELETE FROM ratings
WHERE id = $1 AND user_id = $2
RETURNING recipe_id
`, ratingID, userID).Scan(&recipeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrRatingNotFound
		}
		return 0, fmt.Errorf("delete rating: %w", err)
	}
	return recipeID, nil
}
