package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ivankudzin/recipemarket/internal/domain/model"
	mediasvc "github.com/ivankudzin/recipemarket/internal/services/media"
	"github.com/ivankudzin/recipemarket/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/recipemarket/internal/transport/http/errors"
)

type RecipeGallery interface {
	AddRecipeImage(ctx context.Context, in mediasvc.RecipeImageInput) (model.RecipeImage, error)
	ListRecipeImages(ctx context.Context, recipeID int64) ([]model.RecipeImage, error)
	DeleteRecipeImage(ctx context.Context, imageID int64) error
}

type ImageHandler struct {
	gallery  RecipeGallery
	maxBytes int64
	log      *zap.Logger
}

func NewImageHandler(gallery RecipeGallery, maxUploadBytes int64, log *zap.Logger) *ImageHandler {
	return &ImageHandler{gallery: gallery, maxBytes: maxUploadBytes, log: log}
}

// Upload expects multipart fields image, recipeId, isTitleImage and altText.
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, ok := readImage(w, r, "image", h.maxBytes)
	if !ok {
		return
	}

	recipeID, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("recipeId")), 10, 64)
	if err != nil || recipeID <= 0 {
		writeBadRequest(w, "INVALID_RECIPE_ID", "Invalid recipe ID")
		return
	}
	isTitle, _ := strconv.ParseBool(strings.TrimSpace(r.FormValue("isTitleImage")))

	img, err := h.gallery.AddRecipeImage(r.Context(), mediasvc.RecipeImageInput{
		RecipeID:     recipeID,
		IsTitleImage: isTitle,
		AltText:      r.FormValue("altText"),
		File:         file,
	})
	if err != nil {
		writeError(w, h.log, err, "Failed to upload image")
		return
	}
	httperrors.OK(w, http.StatusCreated, "Image uploaded successfully", dto.NewRecipeImage(img))
}

func (h *ImageHandler) ListForRecipe(w http.ResponseWriter, r *http.Request) {
	recipeID, ok := pathID(r, "recipeId")
	if !ok {
		writeBadRequest(w, "INVALID_RECIPE_ID", "Invalid recipe ID")
		return
	}

	images, err := h.gallery.ListRecipeImages(r.Context(), recipeID)
	if err != nil {
		writeError(w, h.log, err, "Failed to fetch recipe images")
		return
	}
	httperrors.OK(w, http.StatusOK, "", dto.NewRecipeGallery(images))
}

func (h *ImageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	imageID, ok := pathID(r, "imageId")
	if !ok {
		writeBadRequest(w, "INVALID_IMAGE_ID", "Invalid image ID")
		return
	}

	if err := h.gallery.DeleteRecipeImage(r.Context(), imageID); err != nil {
		writeError(w, h.log, err, "Failed to delete image")
		return
	}
	httperrors.OK(w, http.StatusOK, "Image deleted successfully", nil)
}
