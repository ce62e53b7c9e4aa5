package model

import "time"

type Rating struct {
	ID        int64
	RecipeID  int64
	UserID    int64
	Username  string
	Score     int
	Comment   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type RecipeRatings struct {
	Average float64
	Total   int64
	Ratings []Rating
}
