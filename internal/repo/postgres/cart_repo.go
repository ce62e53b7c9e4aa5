package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/recipemarket/internal/domain/model"
)

var ErrCartEntryNotFound = errors.New("cart entry not found")

type CartRepo struct {
	pool *pgxpool.Pool
}

func NewCartRepo(pool *pgxpool.Pool) *CartRepo {
	return &CartRepo{pool: pool}
}

func (r *CartRepo) Exists(ctx context.Context, userID, recipeID int64) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	var exists bool
	err := r.pool.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM cart_items WHERE user_id = $1 AND recipe_id = $2)
`, userID, recipeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check cart entry: %w", err)
	}
	return exists, nil
}

// Insert adds the pair unless it is already present. inserted is false when
// the unique constraint swallowed the write.
func (r *CartRepo) Insert(ctx context.Context, userID, recipeID int64) (id int64, addedAt time.Time, inserted bool, err error) {
	if r.pool == nil {
		return 0, time.Time{}, false, fmt.Errorf("postgres pool is nil")
	}

	err = r.pool.QueryRow(ctx, `
INSERT INTO cart_items (user_id, recipe_id, added_at)
VALUES ($1, $2, NOW())
ON CONFLICT (user_id, recipe_id) DO NOTHING
RETURNING id, added_at
`, userID, recipeID).Scan(&id, &addedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, time.Time{}, false, nil
		}
		return 0, time.Time{}, false, fmt.Errorf("insert cart entry: %w", err)
	}
	return id, addedAt, true, nil
}

func (r *CartRepo) Delete(ctx context.Context, userID, recipeID int64) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var id int64
	err := r.pool.QueryRow(ctx, `
DELETE FROM cart_items
WHERE user_id = $1 AND recipe_id = $2
RETURNING id
`, userID, recipeID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrCartEntryNotFound
		}
		return 0, fmt.Errorf("delete cart entry: %w", err)
	}
	return id, nil
}

// List returns the cart joined with live recipe data. Entries whose recipe
// left sale are skipped.
func (r *CartRepo) List(ctx context.Context, userID int64) ([]model.CartItem, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT c.id, c.recipe_id, rc.title, rc.thumbnail_url, rc.price_cents, rc.difficulty, rc.cooking_time, rc.category, c.added_at
FROM cart_items c
JOIN recipes rc ON rc.id = c.recipe_id
WHERE c.user_id = $1 AND rc.is_for_sale = TRUE
ORDER BY c.added_at DESC, c.id DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.CartItem, error) {
		var item model.CartItem
		err := row.Scan(
			&item.ID,
			&item.RecipeID,
			&item.Title,
			&item.ThumbnailURL,
			&item.PriceCents,
			&item.Difficulty,
			&item.CookingTime,
			&item.Category,
			&item.AddedAt,
		)
		return item, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan cart: %w", err)
	}
	return items, nil
}

// LockEligible locks the user's cart rows and returns the sale-eligible ones
// priced at the current recipe price.
func (r *CartRepo) LockEligible(ctx context.Context, tx pgx.Tx, userID int64) ([]model.LineItem, error) {
	if tx == nil {
		return nil, ErrNilTx
	}

	rows, err := tx.Query(ctx, `
SELECT rc.id, rc.title, rc.price_cents
FROM cart_items c
JOIN recipes rc ON rc.id = c.recipe_id
WHERE c.user_id = $1 AND rc.is_for_sale = TRUE
ORDER BY c.added_at, c.id
FOR UPDATE OF c
`, userID)
	if err != nil {
		return nil, fmt.Errorf("lock cart: %w", err)
	}

	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.LineItem, error) {
		var line model.LineItem
		err := row.Scan(&line.RecipeID, &line.Title, &line.PriceCents)
		return line, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan locked cart: %w", err)
	}
	return lines, nil
}

func (r *CartRepo) DeleteRecipes(ctx context.Context, tx pgx.Tx, userID int64, recipeIDs []int64) (int64, error) {
	if tx == nil {
		return 0, ErrNilTx
	}
	if len(recipeIDs) == 0 {
		return 0, nil
	}

	tag, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND recipe_id = ANY($2)`, userID, recipeIDs)
	if err != nil {
		return 0, fmt.Errorf("consume cart entries: %w", err)
	}
	return tag.RowsAffected(), nil
}
