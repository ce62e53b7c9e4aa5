package model

import "time"

type Purchase struct {
	ID          int64
	UserID      int64
	RecipeID    int64
	RecipeTitle string
	PriceCents  int64
	PurchasedAt time.Time
}
