package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/recipemarket/internal/domain/model"
)

type PurchaseRepo struct {
	pool *pgxpool.Pool
}

type GrantedPurchase struct {
	ID       int64
	RecipeID int64
}

func NewPurchaseRepo(pool *pgxpool.Pool) *PurchaseRepo {
	return &PurchaseRepo{pool: pool}
}

func (r *PurchaseRepo) Exists(ctx context.Context, userID, recipeID int64) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	var exists bool
	err := r.pool.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM purchases WHERE user_id = $1 AND recipe_id = $2)
`, userID, recipeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check purchase: %w", err)
	}
	return exists, nil
}

// GrantMany inserts one purchase per line unless the user already owns the
// recipe. Only rows actually inserted are returned.
func (r *PurchaseRepo) GrantMany(ctx context.Context, tx pgx.Tx, userID int64, lines []model.LineItem) ([]GrantedPurchase, error) {
	if tx == nil {
		return nil, ErrNilTx
	}
	if len(lines) == 0 {
		return nil, nil
	}

	recipeIDs := make([]int64, len(lines))
	prices := make([]int64, len(lines))
	for i, line := range lines {
		recipeIDs[i] = line.RecipeID
		prices[i] = line.PriceCents
	}

	rows, err := tx.Query(ctx, `
INSERT INTO purchases (user_id, recipe_id, price_cents, purchased_at)
SELECT $1, t.recipe_id, t.price_cents, NOW()
FROM unnest($2::bigint[], $3::bigint[]) AS t(recipe_id, price_cents)
ON CONFLICT (user_id, recipe_id) DO NOTHING
RETURNING id, recipe_id
`, userID, recipeIDs, prices)
	if err != nil {
		return nil, fmt.Errorf("grant purchases: %w", err)
	}

	granted, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (GrantedPurchase, error) {
		var g GrantedPurchase
		err := row.Scan(&g.ID, &g.RecipeID)
		return g, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan granted purchases: %w", err)
	}
	return granted, nil
}

func (r *PurchaseRepo) ListForUser(ctx context.Context, userID int64) ([]model.Purchase, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT p.id, p.user_id, p.recipe_id, rc.title, p.price_cents, p.purchased_at
FROM purchases p
JOIN recipes rc ON rc.id = p.recipe_id
WHERE p.user_id = $1
ORDER BY p.purchased_at DESC, p.id DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}

	purchases, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Purchase, error) {
		var p model.Purchase
		err := row.Scan(&p.ID, &p.UserID, &p.RecipeID, &p.RecipeTitle, &p.PriceCents, &p.PurchasedAt)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan purchases: %w", err)
	}
	return purchases, nil
}
