package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/ivankudzin/recipemarket/internal/domain/model"
	"github.com/ivankudzin/recipemarket/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/recipemarket/internal/transport/http/errors"
)

type RatingService interface {
	Upsert(ctx context.Context, userID, recipeID int64, score int, comment *string) (model.Rating, error)
	ListForRecipe(ctx context.Context, recipeID int64) (model.RecipeRatings, error)
	Delete(ctx context.Context, ratingID, userID int64) error
}

type RatingHandler struct {
	service RatingService
	log     *zap.Logger
}

func NewRatingHandler(service RatingService, log *zap.Logger) *RatingHandler {
	return &RatingHandler{service: service, log: log}
}

func (h *RatingHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	recipeID, ok := pathID(r, "recipeId")
	if !ok {
		writeBadRequest(w, "INVALID_RECIPE_ID", "Invalid recipe ID")
		return
	}

	var req dto.RatingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "Invalid request body")
		return
	}

	rating, err := h.service.Upsert(r.Context(), identity.UserID, recipeID, req.RatingScore, req.Comment)
	if err != nil {
		writeError(w, h.log, err, "Failed to save rating")
		return
	}
	httperrors.OK(w, http.StatusOK, "Rating saved successfully", dto.NewRating(rating))
}

func (h *RatingHandler) List(w http.ResponseWriter, r *http.Request) {
	recipeID, ok := pathID(r, "recipeId")
	if !ok {
		writeBadRequest(w, "INVALID_RECIPE_ID", "Invalid recipe ID")
		return
	}

	ratings, err := h.service.ListForRecipe(r.Context(), recipeID)
	if err != nil {
		writeError(w, h.log, err, "Failed to retrieve ratings")
		return
	}
	httperrors.OK(w, http.StatusOK, "", dto.NewRecipeRatings(ratings))
}

func (h *RatingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	ratingID, ok := pathID(r, "ratingId")
	if !ok {
		writeBadRequest(w, "INVALID_RATING_ID", "Invalid rating ID")
		return
	}

	if err := h.service.Delete(r.Context(), ratingID, identity.UserID); err != nil {
		writeError(w, h.log, err, "Failed to delete rating")
		return
	}
	httperrors.OK(w, http.StatusOK, "Rating deleted successfully", nil)
}
