package purchases

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/ivankudzin/recipemarket/internal/domain/model"
	pgrepo "github.com/ivankudzin/recipemarket/internal/repo/postgres"
)

type ledgerStub struct {
	owned  map[[2]int64]int64
	nextID int64
}

func newLedgerStub() *ledgerStub {
	return &ledgerStub{owned: map[[2]int64]int64{}}
}

func (l *ledgerStub) Exists(_ context.Context, userID, recipeID int64) (bool, error) {
	_, ok := l.owned[[2]int64{userID, recipeID}]
	return ok, nil
}

func (l *ledgerStub) GrantMany(_ context.Context, _ pgx.Tx, userID int64, lines []model.LineItem) ([]pgrepo.GrantedPurchase, error) {
	var out []pgrepo.GrantedPurchase
	for _, line := range lines {
		key := [2]int64{userID, line.RecipeID}
		if _, ok := l.owned[key]; ok {
			continue
		}
		l.nextID++
		l.owned[key] = l.nextID
		out = append(out, pgrepo.GrantedPurchase{ID: l.nextID, RecipeID: line.RecipeID})
	}
	return out, nil
}

func (l *ledgerStub) ListForUser(context.Context, int64) ([]model.Purchase, error) {
	return nil, nil
}

func TestGrantManySkipsOwnedAndDuplicateLines(t *testing.T) {
	ledger := newLedgerStub()
	ledger.owned[[2]int64{1, 10}] = 99
	svc := NewService(ledger)

	granted, err := svc.GrantMany(context.Background(), nil, 1, []model.LineItem{
		{RecipeID: 10, PriceCents: 500},
		{RecipeID: 11, PriceCents: 700},
		{RecipeID: 11, PriceCents: 700},
	})
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if len(granted) != 1 || granted[0].RecipeID != 11 {
		t.Fatalf("unexpected grants %+v", granted)
	}

	again, err := svc.GrantMany(context.Background(), nil, 1, []model.LineItem{{RecipeID: 11}})
	if err != nil {
		t.Fatalf("regrant: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("regrant must be a no-op, got %+v", again)
	}
}

func TestExistsIgnoresAnonymous(t *testing.T) {
	svc := NewService(newLedgerStub())

	owned, err := svc.Exists(context.Background(), 0, 5)
	if err != nil || owned {
		t.Fatalf("anonymous user owns nothing, got %v %v", owned, err)
	}
}

func TestListForUserNeverNil(t *testing.T) {
	svc := NewService(newLedgerStub())

	items, err := svc.ListForUser(context.Background(), 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if items == nil {
		t.Fatalf("expected empty slice")
	}
}
