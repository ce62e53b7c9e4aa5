package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/ivankudzin/recipemarket/internal/domain/model"
	"github.com/ivankudzin/recipemarket/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/recipemarket/internal/transport/http/errors"
)

type PurchaseService interface {
	ListForUser(ctx context.Context, userID int64) ([]model.Purchase, error)
}

type PurchaseHandler struct {
	service PurchaseService
	log     *zap.Logger
}

func NewPurchaseHandler(service PurchaseService, log *zap.Logger) *PurchaseHandler {
	return &PurchaseHandler{service: service, log: log}
}

func (h *PurchaseHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	items, err := h.service.ListForUser(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, h.log, err, "Failed to retrieve purchases")
		return
	}
	httperrors.OK(w, http.StatusOK, "", dto.NewPurchases(items))
}
