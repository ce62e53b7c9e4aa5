package auth

import (
	"errors"
	"time"

	"github.com/ivankudzin/recipemarket/internal/domain/enums"
	"github.com/ivankudzin/recipemarket/internal/pkg/apperr"
)

var (
	ErrInvalidInput       = apperr.Validation("INVALID_INPUT", "Username and password are required")
	ErrInvalidUsername    = apperr.Validation("INVALID_USERNAME", "Username must be between 3 and 50 characters")
	ErrWeakPassword       = apperr.Validation("WEAK_PASSWORD", "Password must be at least 6 characters long")
	ErrUsernameTaken      = apperr.Conflict("USERNAME_TAKEN", "Username already exists")
	ErrUnauthorized       = apperr.Unauthenticated("UNAUTHORIZED", "Authentication required")
	ErrInvalidCredentials = apperr.Unauthenticated("INVALID_CREDENTIALS", "Invalid username or password")
	ErrOTPRequired        = apperr.Unauthenticated("OTP_REQUIRED", "One-time code is required")
	ErrInvalidOTP         = apperr.Unauthenticated("INVALID_OTP", "One-time code is invalid")
	ErrUserNotFound       = apperr.NotFound("USER_NOT_FOUND", "User not found")
	ErrTOTPAlreadyEnabled = apperr.Conflict("TOTP_ALREADY_ENABLED", "Two-factor authentication is already enabled")
	ErrTOTPSetupMissing   = apperr.Validation("TOTP_SETUP_NOT_STARTED", "Start two-factor setup before confirming it")

	ErrSessionNotFound = errors.New("session not found")
	ErrRefreshNotFound = errors.New("refresh token not found")
)

type SessionRecord struct {
	SID       string
	UserID    int64
	Role      string
	ExpiresAt time.Time
}

type AccessClaims struct {
	UserID    int64
	SID       string
	Role      string
	ExpiresAt time.Time
}

type Me struct {
	ID       int64
	Username string
	Role     enums.Role
}

type AuthResult struct {
	AccessToken   string
	RefreshToken  string
	AccessExpires time.Time
	Me            Me
}

type TOTPEnrollment struct {
	Secret    string
	OTPAuth   string
	QRDataURL string
}
