package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/ivankudzin/recipemarket/internal/domain/model"
	cartsvc "github.com/ivankudzin/recipemarket/internal/services/cart"
	"github.com/ivankudzin/recipemarket/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/recipemarket/internal/transport/http/errors"
)

type CartService interface {
	Add(ctx context.Context, userID, recipeID int64) (model.CartEntry, error)
	Remove(ctx context.Context, userID, recipeID int64) (cartsvc.RemovedEntry, error)
	Get(ctx context.Context, userID int64) (model.Cart, error)
}

type CartHandler struct {
	service CartService
	log     *zap.Logger
}

func NewCartHandler(service CartService, log *zap.Logger) *CartHandler {
	return &CartHandler{service: service, log: log}
}

func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req dto.AddToCartRequest
	if err := decodeJSON(r, &req); err != nil || req.RecipeID <= 0 {
		writeBadRequest(w, "INVALID_RECIPE_ID", "Valid recipe ID is required")
		return
	}

	entry, err := h.service.Add(r.Context(), identity.UserID, req.RecipeID)
	if err != nil {
		writeError(w, h.log, err, "Failed to add recipe to cart")
		return
	}
	httperrors.OK(w, http.StatusCreated, "Recipe added to cart successfully", dto.NewCartEntry(entry))
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	cart, err := h.service.Get(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, h.log, err, "Failed to retrieve cart")
		return
	}
	httperrors.OK(w, http.StatusOK, "", dto.NewCart(cart))
}

func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	recipeID, ok := pathID(r, "recipeId")
	if !ok {
		writeBadRequest(w, "INVALID_RECIPE_ID", "Invalid recipe ID")
		return
	}

	removed, err := h.service.Remove(r.Context(), identity.UserID, recipeID)
	if err != nil {
		writeError(w, h.log, err, "Failed to remove recipe from cart")
		return
	}
	httperrors.OK(w, http.StatusOK, "Recipe removed from cart successfully", dto.CartRemovedResponse{
		ID:       removed.ID,
		RecipeID: removed.RecipeID,
	})
}
