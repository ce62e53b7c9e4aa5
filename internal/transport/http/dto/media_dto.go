package dto

import (
	"time"

	"github.com/ivankudzin/recipemarket/internal/domain/model"
)

type ImageResponse struct {
	URL string `json:"imageUrl"`
}

type RecipeImageResponse struct {
	ID           int64     `json:"imageId"`
	RecipeID     int64     `json:"recipeId"`
	URL          string    `json:"imageUrl"`
	AltText      string    `json:"altText"`
	IsTitleImage bool      `json:"isTitleImage"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

type RecipeGalleryResponse struct {
	Images []RecipeImageResponse `json:"images"`
	Count  int                   `json:"count"`
}

func NewRecipeImage(img model.RecipeImage) RecipeImageResponse {
	return RecipeImageResponse{
		ID:           img.ID,
		RecipeID:     img.RecipeID,
		URL:          img.URL,
		AltText:      img.AltText,
		IsTitleImage: img.IsTitleImage,
		UploadedAt:   img.CreatedAt,
	}
}

func NewRecipeGallery(images []model.RecipeImage) RecipeGalleryResponse {
	out := RecipeGalleryResponse{Images: make([]RecipeImageResponse, 0, len(images))}
	for _, img := range images {
		out.Images = append(out.Images, NewRecipeImage(img))
	}
	out.Count = len(out.Images)
	return out
}
