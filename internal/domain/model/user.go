package model

import (
	"time"

	"github.com/ivankudzin/recipemarket/internal/domain/enums"
)

type User struct {
	ID                int64      `json:"id"`
	Username          string     `json:"username"`
	PasswordHash      string     `json:"-"`
	Role              enums.Role `json:"role"`
	ProfilePictureURL *string    `json:"profile_picture_url,omitempty"`
	ProfilePictureKey *string    `json:"-"`
	TOTPSecret        *string    `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
}

func (u User) TOTPEnabled() bool {
	return u.TOTPSecret != nil && *u.TOTPSecret != ""
}
