package handlers

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ivankudzin/recipemarket/internal/domain/model"
	"github.com/ivankudzin/recipemarket/internal/domain/rules"
	authsvc "github.com/ivankudzin/recipemarket/internal/services/auth"
	catalogsvc "github.com/ivankudzin/recipemarket/internal/services/catalog"
	mediasvc "github.com/ivankudzin/recipemarket/internal/services/media"
	"github.com/ivankudzin/recipemarket/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/recipemarket/internal/transport/http/errors"
)

type CatalogService interface {
	Create(ctx context.Context, authorID int64, in catalogsvc.RecipeInput) (model.RecipeDetail, error)
	Update(ctx context.Context, recipeID int64, in catalogsvc.RecipeInput) (model.RecipeDetail, error)
	SetForSale(ctx context.Context, recipeID int64, forSale bool) error
	Delete(ctx context.Context, recipeID int64) error
	Overview(ctx context.Context, q catalogsvc.OverviewQuery, viewer *catalogsvc.Viewer) (catalogsvc.Page, error)
	Detail(ctx context.Context, recipeID int64, viewer *catalogsvc.Viewer) (model.RecipeDetail, error)
}

type ThumbnailUploader interface {
	UploadRecipeThumbnail(ctx context.Context, recipeID int64, file mediasvc.Upload) (mediasvc.StoredObject, error)
}

type RecipeHandler struct {
	service    CatalogService
	thumbnails ThumbnailUploader
	maxBytes   int64
	log        *zap.Logger
}

func NewRecipeHandler(service CatalogService, thumbnails ThumbnailUploader, maxUploadBytes int64, log *zap.Logger) *RecipeHandler {
	return &RecipeHandler{service: service, thumbnails: thumbnails, maxBytes: maxUploadBytes, log: log}
}

func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.service.Overview(r.Context(), catalogsvc.OverviewQuery{
		Search:      q.Get("search"),
		Difficulty:  q.Get("difficulty"),
		CookingTime: q.Get("cookingTime"),
		Sort:        q.Get("sort"),
		Mine:        strings.EqualFold(q.Get("mine"), "true"),
		Page:        queryInt(r, "page"),
		Limit:       queryInt(r, "limit"),
	}, viewerFrom(r))
	if err != nil {
		writeError(w, h.log, err, "Failed to retrieve recipes")
		return
	}
	httperrors.OK(w, http.StatusOK, "", dto.NewRecipePage(page.Items, page.Pagination))
}

func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeBadRequest(w, "INVALID_RECIPE_ID", "Invalid recipe ID")
		return
	}

	detail, err := h.service.Detail(r.Context(), id, viewerFrom(r))
	if err != nil {
		writeError(w, h.log, err, "Failed to retrieve recipe")
		return
	}
	httperrors.OK(w, http.StatusOK, "", dto.NewRecipeDetail(detail))
}

func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	in, ok := decodeRecipe(w, r)
	if !ok {
		return
	}

	detail, err := h.service.Create(r.Context(), identity.UserID, in)
	if err != nil {
		writeError(w, h.log, err, "Failed to create recipe")
		return
	}
	httperrors.OK(w, http.StatusCreated, "Recipe created successfully", dto.NewRecipeDetail(detail))
}

func (h *RecipeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeBadRequest(w, "INVALID_RECIPE_ID", "Invalid recipe ID")
		return
	}
	in, ok := decodeRecipe(w, r)
	if !ok {
		return
	}

	detail, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, h.log, err, "Failed to update recipe")
		return
	}
	httperrors.OK(w, http.StatusOK, "Recipe updated successfully", dto.NewRecipeDetail(detail))
}

func (h *RecipeHandler) SetForSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeBadRequest(w, "INVALID_RECIPE_ID", "Invalid recipe ID")
		return
	}

	var req dto.SaleRequest
	if err := decodeJSON(r, &req); err != nil || req.IsForSale == nil {
		writeBadRequest(w, "INVALID_REQUEST", "isForSale must be a boolean")
		return
	}
	if err := h.service.SetForSale(r.Context(), id, *req.IsForSale); err != nil {
		writeError(w, h.log, err, "Failed to update sale status")
		return
	}
	httperrors.OK(w, http.StatusOK, "Recipe sale status updated", map[string]any{
		"id":        id,
		"isForSale": *req.IsForSale,
	})
}

func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeBadRequest(w, "INVALID_RECIPE_ID", "Invalid recipe ID")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, h.log, err, "Failed to delete recipe")
		return
	}
	httperrors.OK(w, http.StatusOK, "Recipe deleted successfully", nil)
}

func (h *RecipeHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeBadRequest(w, "INVALID_RECIPE_ID", "Invalid recipe ID")
		return
	}
	if h.thumbnails == nil {
		writeInternal(w, "MEDIA_SERVICE_UNAVAILABLE", "Media service is unavailable")
		return
	}

	file, ok := readImage(w, r, "image", h.maxBytes)
	if !ok {
		return
	}
	obj, err := h.thumbnails.UploadRecipeThumbnail(r.Context(), id, file)
	if err != nil {
		writeError(w, h.log, err, "Failed to upload thumbnail")
		return
	}
	httperrors.OK(w, http.StatusOK, "Thumbnail updated successfully", dto.ImageResponse{URL: obj.URL})
}

func decodeRecipe(w http.ResponseWriter, r *http.Request) (catalogsvc.RecipeInput, bool) {
	var req dto.RecipeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "Invalid request body")
		return catalogsvc.RecipeInput{}, false
	}

	price, err := rules.CentsFromAmount(req.Price)
	if err != nil {
		writeBadRequest(w, "INVALID_PRICE", "Price must be a non-negative amount")
		return catalogsvc.RecipeInput{}, false
	}

	in := catalogsvc.RecipeInput{
		Title:        req.Title,
		Description:  req.Description,
		VideoURL:     req.VideoURL,
		PriceCents:   price,
		Difficulty:   req.Difficulty,
		CookingTime:  req.CookingTime,
		Servings:     req.Servings,
		Category:     req.Category,
		IsForSale:    req.IsForSale,
		Ingredients:  make([]model.Ingredient, 0, len(req.Ingredients)),
		Instructions: make([]model.Instruction, 0, len(req.Instructions)),
		Nutrition:    make([]model.Nutrition, 0, len(req.Nutrition)),
	}
	for _, ing := range req.Ingredients {
		in.Ingredients = append(in.Ingredients, model.Ingredient(ing))
	}
	for _, ins := range req.Instructions {
		in.Instructions = append(in.Instructions, model.Instruction(ins))
	}
	for _, n := range req.Nutrition {
		in.Nutrition = append(in.Nutrition, model.Nutrition(n))
	}
	return in, true
}

func viewerFrom(r *http.Request) *catalogsvc.Viewer {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		return nil
	}
	return &catalogsvc.Viewer{UserID: identity.UserID, Admin: identity.IsAdmin()}
}
