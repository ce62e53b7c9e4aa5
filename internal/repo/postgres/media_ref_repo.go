package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type MediaRefRepo struct {
	pool *pgxpool.Pool
}

func NewMediaRefRepo(pool *pgxpool.Pool) *MediaRefRepo {
	return &MediaRefRepo{pool: pool}
}

// ReferencedKeys returns the subset of keys still stored on a user, recipe,
// gallery image or transaction row.
func (r *MediaRefRepo) ReferencedKeys(ctx context.Context, keys []string) (map[string]struct{}, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	out := make(map[string]struct{}, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT profile_picture_key FROM users WHERE profile_picture_key = ANY($1)
UNION
SELECT thumbnail_key FROM recipes WHERE thumbnail_key = ANY($1)
UNION
SELECT object_key FROM recipe_images WHERE object_key = ANY($1)
UNION
SELECT payment_proof_key FROM transactions WHERE payment_proof_key = ANY($1)
`, keys)
	if err != nil {
		return nil, fmt.Errorf("query referenced media keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan referenced media key: %w", err)
		}
		out[key] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate referenced media keys: %w", err)
	}
	return out, nil
}
