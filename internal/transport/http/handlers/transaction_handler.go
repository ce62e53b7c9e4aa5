package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/ivankudzin/recipemarket/internal/domain/model"
	mediasvc "github.com/ivankudzin/recipemarket/internal/services/media"
	txsvc "github.com/ivankudzin/recipemarket/internal/services/transactions"
	"github.com/ivankudzin/recipemarket/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/recipemarket/internal/transport/http/errors"
)

type TransactionService interface {
	Create(ctx context.Context, userID int64) (model.Transaction, error)
	SubmitPaymentUpload(ctx context.Context, transactionID, userID int64, method string, proof mediasvc.Upload) (model.Transaction, error)
	Verify(ctx context.Context, transactionID, adminID int64, notes *string) (model.Verification, error)
	Reject(ctx context.Context, transactionID, adminID int64, notes string) (model.Transaction, error)
	Get(ctx context.Context, transactionID int64, viewer txsvc.Viewer) (model.Transaction, error)
	ListForUser(ctx context.Context, userID int64, status string) ([]model.Transaction, error)
	ListAll(ctx context.Context, q txsvc.ListQuery) (txsvc.Page, error)
}

type TransactionHandler struct {
	service  TransactionService
	maxBytes int64
	log      *zap.Logger
}

func NewTransactionHandler(service TransactionService, maxUploadBytes int64, log *zap.Logger) *TransactionHandler {
	return &TransactionHandler{service: service, maxBytes: maxUploadBytes, log: log}
}

func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	created, err := h.service.Create(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, h.log, err, "Failed to create transaction")
		return
	}
	httperrors.OK(w, http.StatusCreated, "Transaction created successfully. Please submit payment proof.", dto.NewTransaction(created))
}

func (h *TransactionHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	items, err := h.service.ListForUser(r.Context(), identity.UserID, r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, h.log, err, "Failed to retrieve transactions")
		return
	}
	httperrors.OK(w, http.StatusOK, "", dto.NewTransactions(items))
}

func (h *TransactionHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	userID := int64(queryInt(r, "userId"))
	if raw := r.URL.Query().Get("userId"); raw != "" && userID <= 0 {
		writeBadRequest(w, "INVALID_USER_ID", "Invalid user ID")
		return
	}

	page, err := h.service.ListAll(r.Context(), txsvc.ListQuery{
		Status: r.URL.Query().Get("status"),
		UserID: userID,
		Page:   queryInt(r, "page"),
		Limit:  queryInt(r, "limit"),
	})
	if err != nil {
		writeError(w, h.log, err, "Failed to retrieve transactions")
		return
	}
	httperrors.OK(w, http.StatusOK, "", dto.TransactionPageResponse{
		Transactions: dto.NewTransactions(page.Items),
		Pagination:   dto.NewPagination(page.Pagination),
	})
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeBadRequest(w, "INVALID_TRANSACTION_ID", "Invalid transaction ID")
		return
	}

	t, err := h.service.Get(r.Context(), id, txsvc.Viewer{UserID: identity.UserID, Admin: identity.IsAdmin()})
	if err != nil {
		writeError(w, h.log, err, "Failed to retrieve transaction")
		return
	}
	httperrors.OK(w, http.StatusOK, "", dto.NewTransaction(t))
}

// SubmitPayment accepts multipart fields paymentMethod and paymentProof.
func (h *TransactionHandler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeBadRequest(w, "INVALID_TRANSACTION_ID", "Invalid transaction ID")
		return
	}

	proof, ok := readImage(w, r, "paymentProof", h.maxBytes)
	if !ok {
		return
	}

	updated, err := h.service.SubmitPaymentUpload(r.Context(), id, identity.UserID, r.FormValue("paymentMethod"), proof)
	if err != nil {
		writeError(w, h.log, err, "Failed to submit payment")
		return
	}
	httperrors.OK(w, http.StatusOK, "Payment proof submitted successfully. Waiting for admin verification.", dto.NewTransaction(updated))
}

func (h *TransactionHandler) Verify(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeBadRequest(w, "INVALID_TRANSACTION_ID", "Invalid transaction ID")
		return
	}

	var req dto.VerifyRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "Invalid request body")
		return
	}

	result, err := h.service.Verify(r.Context(), id, identity.UserID, req.AdminNotes)
	if err != nil {
		writeError(w, h.log, err, "Failed to verify transaction")
		return
	}
	httperrors.OK(w, http.StatusOK, "Transaction verified successfully", dto.NewVerification(result))
}

func (h *TransactionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeBadRequest(w, "INVALID_TRANSACTION_ID", "Invalid transaction ID")
		return
	}

	var req dto.RejectRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "Invalid request body")
		return
	}

	rejected, err := h.service.Reject(r.Context(), id, identity.UserID, req.AdminNotes)
	if err != nil {
		writeError(w, h.log, err, "Failed to reject transaction")
		return
	}
	httperrors.OK(w, http.StatusOK, "Transaction rejected", dto.NewTransaction(rejected))
}
