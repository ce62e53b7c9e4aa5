package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/recipemarket/internal/domain/enums"
	"github.com/ivankudzin/recipemarket/internal/domain/model"
)

var ErrRecipeNotFound = errors.New("recipe not found")

type RecipeRepo struct {
	pool *pgxpool.Pool
}

func NewRecipeRepo(pool *pgxpool.Pool) *RecipeRepo {
	return &RecipeRepo{pool: pool}
}

const recipeColumns = `r.id, r.author_id, r.title, r.description, r.video_url, r.thumbnail_url, r.thumbnail_key,
	r.price_cents, r.difficulty, r.cooking_time, r.servings, r.category, r.is_for_sale,
	r.purchase_count, r.view_count, r.created_at, r.updated_at`

const ratingAggregates = `COALESCE(ROUND(AVG(rt.score)::numeric, 2), 0)::float8 AS avg_rating, COUNT(rt.id) AS total_ratings`

func scanRecipeSummary(row rowScanner) (model.RecipeSummary, error) {
	var (
		s          model.RecipeSummary
		difficulty string
	)
	err := row.Scan(
		&s.ID,
		&s.AuthorID,
		&s.Title,
		&s.Description,
		&s.VideoURL,
		&s.ThumbnailURL,
		&s.ThumbnailKey,
		&s.PriceCents,
		&difficulty,
		&s.CookingTime,
		&s.Servings,
		&s.Category,
		&s.IsForSale,
		&s.PurchaseCount,
		&s.ViewCount,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.AverageRating,
		&s.TotalRatings,
	)
	if err != nil {
		return model.RecipeSummary{}, err
	}
	s.Difficulty = enums.Difficulty(difficulty)
	return s, nil
}

func (r *RecipeRepo) Create(ctx context.Context, tx pgx.Tx, authorID int64, draft model.RecipeDraft) (int64, error) {
	if tx == nil {
		return 0, ErrNilTx
	}

	var id int64
	err := tx.QueryRow(ctx, `
INSERT INTO recipes (
	author_id,
	title,
	description,
	video_url,
	price_cents,
	difficulty,
	cooking_time,
	servings,
	category,
	is_for_sale,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
RETURNING id
`, authorID, draft.Title, draft.Description, draft.VideoURL, draft.PriceCents, string(draft.Difficulty),
		draft.CookingTime, draft.Servings, draft.Category, draft.IsForSale).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert recipe: %w", err)
	}

	if err := r.insertChildren(ctx, tx, id, draft); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *RecipeRepo) Update(ctx context.Context, tx pgx.Tx, recipeID int64, draft model.RecipeDraft) error {
	if tx == nil {
		return ErrNilTx
	}

	tag, err := tx.Exec(ctx, `
UPDATE recipes SET
	title = $2,
	description = $3,
	video_url = $4,
	price_cents = $5,
	difficulty = $6,
	cooking_time = $7,
	servings = $8,
	category = $9,
	is_for_sale = $10,
	updated_at = NOW()
WHERE id = $1
`, recipeID, draft.Title, draft.Description, draft.VideoURL, draft.PriceCents, string(draft.Difficulty),
		draft.CookingTime, draft.Servings, draft.Category, draft.IsForSale)
	if err != nil {
		return fmt.Errorf("update recipe: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecipeNotFound
	}

	for _, table := range []string{"recipe_ingredients", "recipe_instructions", "recipe_nutrition"} {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE recipe_id = $1`, recipeID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	return r.insertChildren(ctx, tx, recipeID, draft)
}

// insertChildren writes each child collection with one multi-row statement.
func (r *RecipeRepo) insertChildren(ctx context.Context, tx pgx.Tx, recipeID int64, draft model.RecipeDraft) error {
	if len(draft.Ingredients) > 0 {
		labels := make([]string, len(draft.Ingredients))
		quantities := make([]*float64, len(draft.Ingredients))
		measurements := make([]*string, len(draft.Ingredients))
		for i, ing := range draft.Ingredients {
			labels[i] = ing.Label
			quantities[i] = ing.Quantity
			measurements[i] = ing.Measurement
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO recipe_ingredients (recipe_id, label, quantity, measurement)
SELECT $1, t.label, t.quantity, t.measurement
FROM unnest($2::text[], $3::numeric[], $4::text[]) AS t(label, quantity, measurement)
`, recipeID, labels, quantities, measurements); err != nil {
			return fmt.Errorf("insert recipe ingredients: %w", err)
		}
	}

	if len(draft.Instructions) > 0 {
		steps := make([]int32, len(draft.Instructions))
		contents := make([]string, len(draft.Instructions))
		for i, inst := range draft.Instructions {
			steps[i] = int32(inst.Step)
			contents[i] = inst.Content
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO recipe_instructions (recipe_id, step, content)
SELECT $1, t.step, t.content
FROM unnest($2::int4[], $3::text[]) AS t(step, content)
`, recipeID, steps, contents); err != nil {
			return fmt.Errorf("insert recipe instructions: %w", err)
		}
	}

	if len(draft.Nutrition) > 0 {
		types := make([]string, len(draft.Nutrition))
		quantities := make([]*float64, len(draft.Nutrition))
		measurements := make([]*string, len(draft.Nutrition))
		for i, n := range draft.Nutrition {
			types[i] = n.Type
			quantities[i] = n.Quantity
			measurements[i] = n.Measurement
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO recipe_nutrition (recipe_id, type, quantity, measurement)
SELECT $1, t.type, t.quantity, t.measurement
FROM unnest($2::text[], $3::numeric[], $4::text[]) AS t(type, quantity, measurement)
`, recipeID, types, quantities, measurements); err != nil {
			return fmt.Errorf("insert recipe nutrition: %w", err)
		}
	}

	return nil
}

func (r *RecipeRepo) SetForSale(ctx context.Context, recipeID int64, forSale bool) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `UPDATE recipes SET is_for_sale = $2, updated_at = NOW() WHERE id = $1`, recipeID, forSale)
	if err != nil {
		return fmt.Errorf("set recipe for sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecipeNotFound
	}
	return nil
}

// LockForDelete locks the recipe row and reports whether purchases or
// transaction line items still reference it.
func (r *RecipeRepo) LockForDelete(ctx context.Context, tx pgx.Tx, recipeID int64) (hasPurchases, inTransactions bool, err error) {
	if tx == nil {
		return false, false, ErrNilTx
	}

	err = tx.QueryRow(ctx, `
SELECT
	EXISTS (SELECT 1 FROM purchases p WHERE p.recipe_id = r.id),
	EXISTS (SELECT 1 FROM transaction_recipes tr WHERE tr.recipe_id = r.id)
FROM recipes r
WHERE r.id = $1
FOR UPDATE OF r
`, recipeID).Scan(&hasPurchases, &inTransactions)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, false, ErrRecipeNotFound
		}
		return false, false, fmt.Errorf("lock recipe for delete: %w", err)
	}
	return hasPurchases, inTransactions, nil
}

// Delete removes the recipe and returns the object keys of its thumbnail and
// gallery images. Children, gallery rows and cart entries cascade.
func (r *RecipeRepo) Delete(ctx context.Context, tx pgx.Tx, recipeID int64) ([]string, error) {
	if tx == nil {
		return nil, ErrNilTx
	}

	rows, err := tx.Query(ctx, `SELECT object_key FROM recipe_images WHERE recipe_id = $1`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("query recipe image keys: %w", err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan recipe image keys: %w", err)
	}

	var thumbnail *string
	err = tx.QueryRow(ctx, `DELETE FROM recipes WHERE id = $1 RETURNING thumbnail_key`, recipeID).Scan(&thumbnail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("delete recipe: %w", err)
	}
	if thumbnail != nil && *thumbnail != "" {
		keys = append(keys, *thumbnail)
	}
	return keys, nil
}

func (r *RecipeRepo) FindSummary(ctx context.Context, q Querier, recipeID int64) (model.RecipeSummary, error) {
	if q == nil {
		if r.pool == nil {
			return model.RecipeSummary{}, fmt.Errorf("postgres pool is nil")
		}
		q = r.pool
	}

	summary, err := scanRecipeSummary(q.QueryRow(ctx, `
SELECT `+recipeColumns+`, `+ratingAggregates+`
FROM recipes r
LEFT JOIN ratings rt ON rt.recipe_id = r.id
WHERE r.id = $1
GROUP BY r.id
`, recipeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.RecipeSummary{}, ErrRecipeNotFound
		}
		return model.RecipeSummary{}, fmt.Errorf("find recipe: %w", err)
	}
	return summary, nil
}

// FindDetail loads the recipe with its children. q may be a tx so that a
// freshly written recipe is visible before commit.
func (r *RecipeRepo) FindDetail(ctx context.Context, q Querier, recipeID int64) (model.RecipeDetail, error) {
	if q == nil {
		if r.pool == nil {
			return model.RecipeDetail{}, fmt.Errorf("postgres pool is nil")
		}
		q = r.pool
	}
	summary, err := r.FindSummary(ctx, q, recipeID)
	if err != nil {
		return model.RecipeDetail{}, err
	}

	detail := model.RecipeDetail{
		RecipeSummary: summary,
		Ingredients:   []model.Ingredient{},
		Instructions:  []model.Instruction{},
		Nutrition:     []model.Nutrition{},
	}

	rows, err := q.Query(ctx, `SELECT id, label, quantity::float8, measurement FROM recipe_ingredients WHERE recipe_id = $1 ORDER BY id`, recipeID)
	if err != nil {
		return model.RecipeDetail{}, fmt.Errorf("list recipe ingredients: %w", err)
	}
	detail.Ingredients, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Ingredient, error) {
		var ing model.Ingredient
		err := row.Scan(&ing.ID, &ing.Label, &ing.Quantity, &ing.Measurement)
		return ing, err
	})
	if err != nil {
		return model.RecipeDetail{}, fmt.Errorf("scan recipe ingredients: %w", err)
	}

	rows, err = q.Query(ctx, `SELECT id, step, content FROM recipe_instructions WHERE recipe_id = $1 ORDER BY step, id`, recipeID)
	if err != nil {
		return model.RecipeDetail{}, fmt.Errorf("list recipe instructions: %w", err)
	}
	detail.Instructions, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Instruction, error) {
		var inst model.Instruction
		err := row.Scan(&inst.ID, &inst.Step, &inst.Content)
		return inst, err
	})
	if err != nil {
		return model.RecipeDetail{}, fmt.Errorf("scan recipe instructions: %w", err)
	}

	rows, err = q.Query(ctx, `SELECT id, type, quantity::float8, measurement FROM recipe_nutrition WHERE recipe_id = $1 ORDER BY id`, recipeID)
	if err != nil {
		return model.RecipeDetail{}, fmt.Errorf("list recipe nutrition: %w", err)
	}
	detail.Nutrition, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Nutrition, error) {
		var n model.Nutrition
		err := row.Scan(&n.ID, &n.Type, &n.Quantity, &n.Measurement)
		return n, err
	})
	if err != nil {
		return model.RecipeDetail{}, fmt.Errorf("scan recipe nutrition: %w", err)
	}

	return detail, nil
}

func (r *RecipeRepo) IncrementViewCount(ctx context.Context, recipeID int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if _, err := r.pool.Exec(ctx, `UPDATE recipes SET view_count = view_count + 1 WHERE id = $1`, recipeID); err != nil {
		return fmt.Errorf("increment view count: %w", err)
	}
	return nil
}

// IncrementPurchaseCounts bumps each listed recipe by exactly one.
func (r *RecipeRepo) IncrementPurchaseCounts(ctx context.Context, tx pgx.Tx, recipeIDs []int64) error {
	if tx == nil {
		return ErrNilTx
	}
	if len(recipeIDs) == 0 {
		return nil
	}

	tag, err := tx.Exec(ctx, `UPDATE recipes SET purchase_count = purchase_count + 1 WHERE id = ANY($1)`, recipeIDs)
	if err != nil {
		return fmt.Errorf("increment purchase counts: %w", err)
	}
	if int(tag.RowsAffected()) != len(recipeIDs) {
		return fmt.Errorf("increment purchase counts: updated %d of %d recipes", tag.RowsAffected(), len(recipeIDs))
	}
	return nil
}

func (r *RecipeRepo) SaleInfo(ctx context.Context, recipeID int64) (model.SaleInfo, error) {
	if r.pool == nil {
		return model.SaleInfo{}, fmt.Errorf("postgres pool is nil")
	}

	info := model.SaleInfo{RecipeID: recipeID}
	err := r.pool.QueryRow(ctx, `SELECT title, price_cents, is_for_sale FROM recipes WHERE id = $1`, recipeID).
		Scan(&info.Title, &info.PriceCents, &info.IsForSale)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.SaleInfo{}, ErrRecipeNotFound
		}
		return model.SaleInfo{}, fmt.Errorf("read recipe sale info: %w", err)
	}
	return info, nil
}

func (r *RecipeRepo) Exists(ctx context.Context, recipeID int64) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM recipes WHERE id = $1)`, recipeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check recipe exists: %w", err)
	}
	return exists, nil
}

func (r *RecipeRepo) LockThumbnail(ctx context.Context, tx pgx.Tx, recipeID int64) (*string, error) {
	if tx == nil {
		return nil, ErrNilTx
	}

	var key *string
	err := tx.QueryRow(ctx, `SELECT thumbnail_key FROM recipes WHERE id = $1 FOR UPDATE`, recipeID).Scan(&key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("lock recipe thumbnail: %w", err)
	}
	return key, nil
}

func (r *RecipeRepo) UpdateThumbnail(ctx context.Context, tx pgx.Tx, recipeID int64, url, key string) error {
	if tx == nil {
		return ErrNilTx
	}

	tag, err := tx.Exec(ctx, `
UPDATE recipes
SET thumbnail_url = $2, thumbnail_key = $3, updated_at = NOW()
WHERE id = $1
`, recipeID, url, key)
	if err != nil {
		return fmt.Errorf("update recipe thumbnail: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecipeNotFound
	}
	return nil
}

// Overview lists sale-eligible recipes matching the filter and the total
// number of matches ignoring pagination.
func (r *RecipeRepo) Overview(ctx context.Context, filter model.RecipeFilter) ([]model.RecipeSummary, int64, error) {
	if r.pool == nil {
		return nil, 0, fmt.Errorf("postgres pool is nil")
	}

	where, args := buildOverviewWhere(filter)

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM recipes r WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count recipes overview: %w", err)
	}

	limitArg := len(args) + 1
	query := `
SELECT ` + recipeColumns + `, ` + ratingAggregates + `
FROM recipes r
LEFT JOIN ratings rt ON rt.recipe_id = r.id
WHERE ` + where + `
GROUP BY r.id
ORDER BY ` + overviewOrder(filter.Sort) + `
LIMIT $` + strconv.Itoa(limitArg) + ` OFFSET $` + strconv.Itoa(limitArg+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list recipes overview: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.RecipeSummary, error) {
		return scanRecipeSummary(row)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scan recipes overview: %w", err)
	}

	return items, total, nil
}

func buildOverviewWhere(filter model.RecipeFilter) (string, []any) {
	clauses := []string{"r.is_for_sale = TRUE"}
	args := make([]any, 0, 6)
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.PurchasedBy > 0 {
		clauses = append(clauses, "r.id IN (SELECT recipe_id FROM purchases WHERE user_id = "+next(filter.PurchasedBy)+")")
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		p := next("%" + escapeLike(strings.ToLower(search)) + "%")
		clauses = append(clauses, "(lower(r.title) LIKE "+p+" OR lower(r.category) LIKE "+p+")")
	}
	if filter.Difficulty != "" {
		clauses = append(clauses, "r.difficulty = "+next(string(filter.Difficulty)))
	}
	if filter.MinCookingTime > 0 {
		clauses = append(clauses, "r.cooking_time >= "+next(filter.MinCookingTime))
	}
	if filter.MaxCookingTime > 0 {
		clauses = append(clauses, "r.cooking_time < "+next(filter.MaxCookingTime))
	}

	return strings.Join(clauses, " AND "), args
}

func overviewOrder(sort model.RecipeSort) string {
	switch sort {
	case model.RecipeSortPrice:
		return "r.price_cents ASC, r.created_at DESC"
	case model.RecipeSortRating:
		return "avg_rating DESC, r.created_at DESC"
	case model.RecipeSortPopular:
		return "r.purchase_count DESC, r.view_count DESC"
	default:
		return "r.created_at DESC"
	}
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}
