package purchases

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ivankudzin/recipemarket/internal/domain/model"
	pgrepo "github.com/ivankudzin/recipemarket/internal/repo/postgres"
)

// Store is the append-only purchase ledger. It has no update or delete.
type Store interface {
	Exists(ctx context.Context, userID, recipeID int64) (bool, error)
	GrantMany(ctx context.Context, tx pgx.Tx, userID int64, lines []model.LineItem) ([]pgrepo.GrantedPurchase, error)
	ListForUser(ctx context.Context, userID int64) ([]model.Purchase, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) Exists(ctx context.Context, userID, recipeID int64) (bool, error) {
	if userID <= 0 || recipeID <= 0 {
		return false, nil
	}
	owned, err := s.store.Exists(ctx, userID, recipeID)
	if err != nil {
		return false, fmt.Errorf("check purchase: %w", err)
	}
	return owned, nil
}

// GrantMany records ownership for every line the user does not hold yet and
// returns only the new grants. It must run inside the verifying unit of work.
func (s *Service) GrantMany(ctx context.Context, tx pgx.Tx, userID int64, lines []model.LineItem) ([]pgrepo.GrantedPurchase, error) {
	granted, err := s.store.GrantMany(ctx, tx, userID, dedupe(lines))
	if err != nil {
		return nil, fmt.Errorf("grant purchases: %w", err)
	}
	return granted, nil
}

func (s *Service) ListForUser(ctx context.Context, userID int64) ([]model.Purchase, error) {
	items, err := s.store.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	if items == nil {
		items = []model.Purchase{}
	}
	return items, nil
}

// dedupe keeps the first line per recipe. A multi-row insert may not touch
// the same conflict target twice.
func dedupe(lines []model.LineItem) []model.LineItem {
	seen := make(map[int64]struct{}, len(lines))
	out := make([]model.LineItem, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.RecipeID]; ok {
			continue
		}
		seen[line.RecipeID] = struct{}{}
		out = append(out, line)
	}
	return out
}
