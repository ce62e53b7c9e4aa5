package dto

import (
	"time"

	"github.com/ivankudzin/recipemarket/internal/domain/model"
	"github.com/ivankudzin/recipemarket/internal/domain/rules"
)

type AddToCartRequest struct {
	RecipeID int64 `json:"recipeId"`
}

type CartEntryResponse struct {
	ID       int64     `json:"id"`
	RecipeID int64     `json:"recipeId"`
	Title    string    `json:"title"`
	Price    string    `json:"price"`
	AddedAt  time.Time `json:"addedAt"`
}

type CartItemResponse struct {
	ID           int64     `json:"id"`
	RecipeID     int64     `json:"recipeId"`
	Title        string    `json:"title"`
	ThumbnailURL *string   `json:"thumbnailUrl"`
	Price        string    `json:"price"`
	Difficulty   string    `json:"difficulty"`
	CookingTime  int       `json:"cookingTime"`
	Category     string    `json:"category"`
	AddedAt      time.Time `json:"addedAt"`
}

type CartResponse struct {
	Items     []CartItemResponse `json:"items"`
	Total     string             `json:"total"`
	ItemCount int                `json:"itemCount"`
}

type CartRemovedResponse struct {
	ID       int64 `json:"id"`
	RecipeID int64 `json:"recipeId"`
}

type LineItemResponse struct {
	RecipeID int64  `json:"recipeId"`
	Title    string `json:"title"`
	Price    string `json:"price"`
}

type TransactionResponse struct {
	ID              int64              `json:"id"`
	UserID          int64              `json:"userId"`
	Username        string             `json:"username,omitempty"`
	TotalAmount     string             `json:"totalAmount"`
	Status          string             `json:"status"`
	PaymentMethod   *string            `json:"paymentMethod"`
	PaymentProofURL *string            `json:"paymentProof"`
	AdminNotes      *string            `json:"adminNotes"`
	CreatedAt       time.Time          `json:"createdAt"`
	VerifiedAt      *time.Time         `json:"verifiedAt"`
	VerifiedBy      *int64             `json:"verifiedBy"`
	RecipeCount     int                `json:"recipeCount"`
	Recipes         []LineItemResponse `json:"recipes,omitempty"`
}

type TransactionPageResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Pagination   PaginationResponse    `json:"pagination"`
}

type VerifyRequest struct {
	AdminNotes *string `json:"adminNotes"`
}

type RejectRequest struct {
	AdminNotes string `json:"adminNotes"`
}

type VerificationResponse struct {
	TransactionID int64   `json:"transactionId"`
	Status        string  `json:"status"`
	PurchaseCount int     `json:"purchaseCount"`
	PurchaseIDs   []int64 `json:"purchaseIds"`
}

type PurchaseResponse struct {
	ID          int64     `json:"id"`
	RecipeID    int64     `json:"recipeId"`
	RecipeTitle string    `json:"recipeTitle"`
	Price       string    `json:"price"`
	PurchasedAt time.Time `json:"purchasedAt"`
}

type RatingRequest struct {
	RatingScore int     `json:"ratingScore"`
	Comment     *string `json:"comment"`
}

type RatingResponse struct {
	ID        int64     `json:"id"`
	RecipeID  int64     `json:"recipeId"`
	UserID    int64     `json:"userId"`
	Username  string    `json:"username,omitempty"`
	Score     int       `json:"ratingScore"`
	Comment   *string   `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type RecipeRatingsResponse struct {
	AverageRating float64          `json:"averageRating"`
	TotalRatings  int64            `json:"totalRatings"`
	Ratings       []RatingResponse `json:"ratings"`
}

func NewCartEntry(e model.CartEntry) CartEntryResponse {
	return CartEntryResponse{
		ID:       e.ID,
		RecipeID: e.RecipeID,
		Title:    e.Title,
		Price:    rules.FormatCents(e.PriceCents),
		AddedAt:  e.AddedAt,
	}
}

func NewCart(c model.Cart) CartResponse {
	out := CartResponse{
		Items:     make([]CartItemResponse, 0, len(c.Items)),
		Total:     rules.FormatCents(c.TotalCents),
		ItemCount: c.ItemCount,
	}
	for _, item := range c.Items {
		out.Items = append(out.Items, CartItemResponse{
			ID:           item.ID,
			RecipeID:     item.RecipeID,
			Title:        item.Title,
			ThumbnailURL: item.ThumbnailURL,
			Price:        rules.FormatCents(item.PriceCents),
			Difficulty:   item.Difficulty,
			CookingTime:  item.CookingTime,
			Category:     item.Category,
			AddedAt:      item.AddedAt,
		})
	}
	return out
}

func NewTransaction(t model.Transaction) TransactionResponse {
	out := TransactionResponse{
		ID:              t.ID,
		UserID:          t.UserID,
		Username:        t.Username,
		TotalAmount:     rules.FormatCents(t.TotalCents),
		Status:          string(t.Status),
		PaymentMethod:   t.PaymentMethod,
		PaymentProofURL: t.PaymentProofURL,
		AdminNotes:      t.AdminNotes,
		CreatedAt:       t.CreatedAt,
		VerifiedAt:      t.VerifiedAt,
		VerifiedBy:      t.VerifiedBy,
		RecipeCount:     t.RecipeCount,
	}
	if len(t.Lines) > 0 {
		out.Recipes = make([]LineItemResponse, 0, len(t.Lines))
		for _, line := range t.Lines {
			out.Recipes = append(out.Recipes, LineItemResponse{
				RecipeID: line.RecipeID,
				Title:    line.Title,
				Price:    rules.FormatCents(line.PriceCents),
			})
		}
	}
	return out
}

func NewTransactions(items []model.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(items))
	for _, t := range items {
		out = append(out, NewTransaction(t))
	}
	return out
}

func NewVerification(v model.Verification) VerificationResponse {
	ids := v.PurchaseIDs
	if ids == nil {
		ids = []int64{}
	}
	return VerificationResponse{
		TransactionID: v.TransactionID,
		Status:        string(v.Status),
		PurchaseCount: v.PurchaseCount(),
		PurchaseIDs:   ids,
	}
}

func NewPurchases(items []model.Purchase) []PurchaseResponse {
	out := make([]PurchaseResponse, 0, len(items))
	for _, p := range items {
		out = append(out, PurchaseResponse{
			ID:          p.ID,
			RecipeID:    p.RecipeID,
			RecipeTitle: p.RecipeTitle,
			Price:       rules.FormatCents(p.PriceCents),
			PurchasedAt: p.PurchasedAt,
		})
	}
	return out
}

func NewRating(r model.Rating) RatingResponse {
	return RatingResponse{
		ID:        r.ID,
		RecipeID:  r.RecipeID,
		UserID:    r.UserID,
		Username:  r.Username,
		Score:     r.Score,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func NewRecipeRatings(r model.RecipeRatings) RecipeRatingsResponse {
	out := RecipeRatingsResponse{
		AverageRating: r.Average,
		TotalRatings:  r.Total,
		Ratings:       make([]RatingResponse, 0, len(r.Ratings)),
	}
	for _, rating := range r.Ratings {
		out.Ratings = append(out.Ratings, NewRating(rating))
	}
	return out
}
