package dto

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	OTPCode  string `json:"otpCode,omitempty"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type AuthMeResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type AuthTokensResponse struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	ExpiresInSec int64          `json:"expiresInSec"`
	User         AuthMeResponse `json:"user"`
}

type ProfileResponse struct {
	ID                int64   `json:"id"`
	Username          string  `json:"username"`
	Role              string  `json:"role"`
	ProfilePictureURL *string `json:"profilePictureUrl"`
	TOTPEnabled       bool    `json:"totpEnabled"`
	CreatedAt         string  `json:"createdAt"`
}

type TOTPSetupResponse struct {
	Secret    string `json:"secret"`
	OTPAuth   string `json:"otpauthUrl"`
	QRDataURL string `json:"qrCode"`
}

type TOTPConfirmRequest struct {
	Code string `json:"code"`
}
