package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ivankudzin/recipemarket/internal/domain/enums"
	"github.com/ivankudzin/recipemarket/internal/domain/model"
	pgrepo "github.com/ivankudzin/recipemarket/internal/repo/postgres"
	"github.com/ivankudzin/recipemarket/internal/pkg/validate"
)

const (
	MinRefreshTTL = 24 * time.Hour
	MaxRefreshTTL = 90 * 24 * time.Hour

	minUsernameLength = 3
	maxUsernameLength = 50
	minPasswordLength = 6
	totpSetupTTL      = 10 * time.Minute
	qrCodeSize        = 256
)

type SessionStore interface {
	Create(ctx context.Context, session SessionRecord, refreshToken string) error
	GetSession(ctx context.Context, sid string) (SessionRecord, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (SessionRecord, error)
	RotateRefresh(ctx context.Context, sid, oldRefreshToken, newRefreshToken string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, sid string) error
	DeleteAllForUser(ctx context.Context, userID int64) error
}

type TOTPSetupStore interface {
	SavePendingTOTP(ctx context.Context, userID int64, secret string, ttl time.Duration) error
	PendingTOTP(ctx context.Context, userID int64) (string, error)
	ClearPendingTOTP(ctx context.Context, userID int64) error
}

type UserStore interface {
	Create(ctx context.Context, username, passwordHash string, role enums.Role) (model.User, error)
	FindByID(ctx context.Context, userID int64) (model.User, error)
	FindByUsername(ctx context.Context, username string) (model.User, error)
	SetTOTPSecret(ctx context.Context, userID int64, secret string) error
}

type Config struct {
	RefreshTTL time.Duration
	TOTPIssuer string
}

type Dependencies struct {
	JWT        *JWTManager
	Sessions   SessionStore
	TOTPSetups TOTPSetupStore
	Users      UserStore
}

type Service struct {
	jwt        *JWTManager
	sessions   SessionStore
	totpSetups TOTPSetupStore
	users      UserStore
	refreshTTL time.Duration
	issuer     string
	now        func() time.Time
}

func NewService(deps Dependencies, cfg Config) *Service {
	refreshTTL := cfg.RefreshTTL
	if refreshTTL < MinRefreshTTL {
		refreshTTL = MinRefreshTTL
	}
	if refreshTTL > MaxRefreshTTL {
		refreshTTL = MaxRefreshTTL
	}
	issuer := strings.TrimSpace(cfg.TOTPIssuer)
	if issuer == "" {
		issuer = "RecipeMarket"
	}

	return &Service{
		jwt:        deps.JWT,
		sessions:   deps.Sessions,
		totpSetups: deps.TOTPSetups,
		users:      deps.Users,
		refreshTTL: refreshTTL,
		issuer:     issuer,
		now:        time.Now,
	}
}

func (s *Service) Register(ctx context.Context, username, password string) (AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return AuthResult{}, ErrInvalidInput
	}
	if !validate.LengthBetween(username, minUsernameLength, maxUsernameLength) {
		return AuthResult{}, ErrInvalidUsername
	}
	if len(password) < minPasswordLength {
		return AuthResult{}, ErrWeakPassword
	}
	if s.users == nil {
		return AuthResult{}, fmt.Errorf("user store is not configured")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, username, hash, enums.RoleUser)
	if err != nil {
		if errors.Is(err, pgrepo.ErrDuplicate) {
			return AuthResult{}, ErrUsernameTaken
		}
		return AuthResult{}, fmt.Errorf("create user: %w", err)
	}

	return s.issueForUser(ctx, user)
}

// Login checks the password and, for users who enrolled a second factor,
// the current one-time code.
func (s *Service) Login(ctx context.Context, username, password, otpCode string) (AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return AuthResult{}, ErrInvalidInput
	}
	if s.users == nil {
		return AuthResult{}, fmt.Errorf("user store is not configured")
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, fmt.Errorf("find user: %w", err)
	}
	if !CheckPassword(user.PasswordHash, password) {
		return AuthResult{}, ErrInvalidCredentials
	}

	if user.TOTPEnabled() {
		if strings.TrimSpace(otpCode) == "" {
			return AuthResult{}, ErrOTPRequired
		}
		if !ValidateTOTP(*user.TOTPSecret, otpCode, s.now()) {
			return AuthResult{}, ErrInvalidOTP
		}
	}

	return s.issueForUser(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return AuthResult{}, ErrInvalidInput
	}

	session, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshNotFound) || errors.Is(err, ErrUnauthorized) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, fmt.Errorf("get refresh token session: %w", err)
	}
	if s.now().After(session.ExpiresAt) {
		return AuthResult{}, ErrUnauthorized
	}

	newRefreshToken, err := NewRefreshToken()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate refresh token: %w", err)
	}

	newExpiresAt := s.now().Add(s.refreshTTL)
	if err := s.sessions.RotateRefresh(ctx, session.SID, refreshToken, newRefreshToken, newExpiresAt); err != nil {
		if errors.Is(err, ErrRefreshNotFound) {
			return AuthResult{}, ErrUnauthorized
		}
		return AuthResult{}, fmt.Errorf("rotate refresh token: %w", err)
	}

	accessToken, accessExpires, err := s.jwt.GenerateAccessToken(session.UserID, session.SID, session.Role)
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate access token: %w", err)
	}

	me := Me{ID: session.UserID, Role: enums.Role(session.Role)}
	if s.users != nil {
		if user, err := s.users.FindByID(ctx, session.UserID); err == nil {
			me.Username = user.Username
		}
	}

	return AuthResult{
		AccessToken:   accessToken,
		RefreshToken:  newRefreshToken,
		AccessExpires: accessExpires,
		Me:            me,
	}, nil
}

func (s *Service) Logout(ctx context.Context, sid string) error {
	if strings.TrimSpace(sid) == "" {
		return ErrUnauthorized
	}
	if err := s.sessions.DeleteSession(ctx, sid); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Service) LogoutAll(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return ErrUnauthorized
	}
	if err := s.sessions.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("delete all sessions: %w", err)
	}
	return nil
}

func (s *Service) ValidateAccessToken(ctx context.Context, accessToken string) (AccessClaims, error) {
	claims, err := s.jwt.ParseAccessToken(accessToken)
	if err != nil {
		return AccessClaims{}, ErrUnauthorized
	}

	session, err := s.sessions.GetSession(ctx, claims.SID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrUnauthorized) {
			return AccessClaims{}, ErrUnauthorized
		}
		return AccessClaims{}, fmt.Errorf("get session: %w", err)
	}

	if session.UserID != claims.UserID || session.Role != claims.Role {
		return AccessClaims{}, ErrUnauthorized
	}
	if s.now().After(session.ExpiresAt) {
		return AccessClaims{}, ErrUnauthorized
	}

	return claims, nil
}

func (s *Service) Profile(ctx context.Context, userID int64) (model.User, error) {
	if userID <= 0 {
		return model.User{}, ErrUnauthorized
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// BeginTOTPEnrollment creates a pending secret. It only becomes active once
// ConfirmTOTPEnrollment sees a valid code for it.
func (s *Service) BeginTOTPEnrollment(ctx context.Context, userID int64) (TOTPEnrollment, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return TOTPEnrollment{}, err
	}
	if user.TOTPEnabled() {
		return TOTPEnrollment{}, ErrTOTPAlreadyEnabled
	}
	if s.totpSetups == nil {
		return TOTPEnrollment{}, fmt.Errorf("totp setup store is not configured")
	}

	secret, otpURL, err := GenerateTOTPSecret(s.issuer, user.Username)
	if err != nil {
		return TOTPEnrollment{}, fmt.Errorf("generate totp secret: %w", err)
	}
	qr, err := MakeQRCodeDataURL(otpURL, qrCodeSize)
	if err != nil {
		return TOTPEnrollment{}, fmt.Errorf("render totp qr code: %w", err)
	}
	if err := s.totpSetups.SavePendingTOTP(ctx, userID, secret, totpSetupTTL); err != nil {
		return TOTPEnrollment{}, fmt.Errorf("save pending totp: %w", err)
	}

	return TOTPEnrollment{Secret: secret, OTPAuth: otpURL, QRDataURL: qr}, nil
}

func (s *Service) ConfirmTOTPEnrollment(ctx context.Context, userID int64, code string) error {
	if userID <= 0 {
		return ErrUnauthorized
	}
	if s.totpSetups == nil {
		return fmt.Errorf("totp setup store is not configured")
	}

	secret, err := s.totpSetups.PendingTOTP(ctx, userID)
	if err != nil {
		return fmt.Errorf("load pending totp: %w", err)
	}
	if secret == "" {
		return ErrTOTPSetupMissing
	}
	if !ValidateTOTP(secret, code, s.now()) {
		return ErrInvalidOTP
	}

	if err := s.users.SetTOTPSecret(ctx, userID, secret); err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("store totp secret: %w", err)
	}
	if err := s.totpSetups.ClearPendingTOTP(ctx, userID); err != nil {
		return fmt.Errorf("clear pending totp: %w", err)
	}
	return nil
}

func (s *Service) issueForUser(ctx context.Context, user model.User) (AuthResult, error) {
	sessionID, err := NewSessionID()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate session id: %w", err)
	}
	refreshToken, err := NewRefreshToken()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate refresh token: %w", err)
	}

	role := string(user.Role)
	session := SessionRecord{
		SID:       sessionID,
		UserID:    user.ID,
		Role:      role,
		ExpiresAt: s.now().Add(s.refreshTTL),
	}
	if err := s.sessions.Create(ctx, session, refreshToken); err != nil {
		return AuthResult{}, fmt.Errorf("create session: %w", err)
	}

	accessToken, accessExpires, err := s.jwt.GenerateAccessToken(user.ID, sessionID, role)
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate access token: %w", err)
	}

	return AuthResult{
		AccessToken:   accessToken,
		RefreshToken:  refreshToken,
		AccessExpires: accessExpires,
		Me: Me{
			ID:       user.ID,
			Username: user.Username,
			Role:     user.Role,
		},
	}, nil
}
