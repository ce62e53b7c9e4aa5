package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ivankudzin/recipemarket/internal/domain/model"
	authsvc "github.com/ivankudzin/recipemarket/internal/services/auth"
	mediasvc "github.com/ivankudzin/recipemarket/internal/services/media"
	"github.com/ivankudzin/recipemarket/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/recipemarket/internal/transport/http/errors"
)

type AuthService interface {
	Register(ctx context.Context, username, password string) (authsvc.AuthResult, error)
	Login(ctx context.Context, username, password, otpCode string) (authsvc.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (authsvc.AuthResult, error)
	Logout(ctx context.Context, sid string) error
	LogoutAll(ctx context.Context, userID int64) error
	Profile(ctx context.Context, userID int64) (model.User, error)
	BeginTOTPEnrollment(ctx context.Context, userID int64) (authsvc.TOTPEnrollment, error)
	ConfirmTOTPEnrollment(ctx context.Context, userID int64, code string) error
}

type ProfilePictureUploader interface {
	UploadProfilePicture(ctx context.Context, userID int64, file mediasvc.Upload) (mediasvc.StoredObject, error)
}

type AuthHandler struct {
	service  AuthService
	pictures ProfilePictureUploader
	maxBytes int64
	log      *zap.Logger
}

func NewAuthHandler(service AuthService, pictures ProfilePictureUploader, maxUploadBytes int64, log *zap.Logger) *AuthHandler {
	return &AuthHandler{service: service, pictures: pictures, maxBytes: maxUploadBytes, log: log}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "Invalid request body")
		return
	}

	res, err := h.service.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, h.log, err, "Failed to register user")
		return
	}
	httperrors.OK(w, http.StatusCreated, "User registered successfully", tokensResponse(res))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "Invalid request body")
		return
	}

	res, err := h.service.Login(r.Context(), req.Username, req.Password, req.OTPCode)
	if err != nil {
		writeError(w, h.log, err, "Failed to log in")
		return
	}
	httperrors.OK(w, http.StatusOK, "Login successful", tokensResponse(res))
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "Invalid request body")
		return
	}

	res, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, h.log, err, "Failed to refresh session")
		return
	}
	httperrors.OK(w, http.StatusOK, "", tokensResponse(res))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if err := h.service.Logout(r.Context(), identity.SID); err != nil {
		writeError(w, h.log, err, "Failed to log out")
		return
	}
	httperrors.OK(w, http.StatusOK, "Logged out", nil)
}

func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if err := h.service.LogoutAll(r.Context(), identity.UserID); err != nil {
		writeError(w, h.log, err, "Failed to log out")
		return
	}
	httperrors.OK(w, http.StatusOK, "Logged out from all sessions", nil)
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	user, err := h.service.Profile(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, h.log, err, "Failed to load profile")
		return
	}
	httperrors.OK(w, http.StatusOK, "", dto.ProfileResponse{
		ID:                user.ID,
		Username:          user.Username,
		Role:              string(user.Role),
		ProfilePictureURL: user.ProfilePictureURL,
		TOTPEnabled:       user.TOTPEnabled(),
		CreatedAt:         user.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func (h *AuthHandler) ProfilePicture(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if h.pictures == nil {
		writeInternal(w, "MEDIA_SERVICE_UNAVAILABLE", "Media service is unavailable")
		return
	}

	file, ok := readImage(w, r, "image", h.maxBytes)
	if !ok {
		return
	}
	obj, err := h.pictures.UploadProfilePicture(r.Context(), identity.UserID, file)
	if err != nil {
		writeError(w, h.log, err, "Failed to upload profile picture")
		return
	}
	httperrors.OK(w, http.StatusOK, "Profile picture updated successfully", dto.ImageResponse{URL: obj.URL})
}

func (h *AuthHandler) TOTPSetup(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	enrollment, err := h.service.BeginTOTPEnrollment(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, h.log, err, "Failed to start two-factor setup")
		return
	}
	httperrors.OK(w, http.StatusOK, "", dto.TOTPSetupResponse{
		Secret:    enrollment.Secret,
		OTPAuth:   enrollment.OTPAuth,
		QRDataURL: enrollment.QRDataURL,
	})
}

func (h *AuthHandler) TOTPConfirm(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req dto.TOTPConfirmRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if err := h.service.ConfirmTOTPEnrollment(r.Context(), identity.UserID, req.Code); err != nil {
		writeError(w, h.log, err, "Failed to confirm two-factor setup")
		return
	}
	httperrors.OK(w, http.StatusOK, "Two-factor authentication enabled", nil)
}

func tokensResponse(res authsvc.AuthResult) dto.AuthTokensResponse {
	return dto.AuthTokensResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresInSec: max(0, int64(time.Until(res.AccessExpires).Seconds())),
		User: dto.AuthMeResponse{
			ID:       res.Me.ID,
			Username: res.Me.Username,
			Role:     string(res.Me.Role),
		},
	}
}
