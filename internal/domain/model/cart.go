package model

import "time"

type CartEntry struct {
	ID         int64
	UserID     int64
	RecipeID   int64
	Title      string
	PriceCents int64
	AddedAt    time.Time
}

type CartItem struct {
	ID           int64
	RecipeID     int64
	Title        string
	ThumbnailURL *string
	PriceCents   int64
	Difficulty   string
	CookingTime  int
	Category     string
	AddedAt      time.Time
}

type Cart struct {
	Items      []CartItem
	TotalCents int64
	ItemCount  int
}
