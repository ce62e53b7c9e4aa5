package model

import (
	"time"

	"github.com/ivankudzin/recipemarket/internal/domain/enums"
)

type Transaction struct {
	ID              int64
	UserID          int64
	Username        string
	TotalCents      int64
	Status          enums.TransactionStatus
	PaymentMethod   *string
	PaymentProofURL *string
	PaymentProofKey *string
	AdminNotes      *string
	CreatedAt       time.Time
	VerifiedAt      *time.Time
	VerifiedBy      *int64
	RecipeCount     int
	Lines           []LineItem
}

// LineItem is a recipe priced at the moment its transaction was created.
type LineItem struct {
	RecipeID   int64
	Title      string
	PriceCents int64
}

type Verification struct {
	TransactionID int64
	UserID        int64
	Status        enums.TransactionStatus
	PurchaseIDs   []int64
}

func (v Verification) PurchaseCount() int {
	return len(v.PurchaseIDs)
}
