package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/recipemarket/internal/domain/enums"
	"github.com/ivankudzin/recipemarket/internal/domain/model"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, username, password_hash, role, profile_picture_url, profile_picture_key, totp_secret, created_at`

func scanUser(row rowScanner) (model.User, error) {
	var (
		user model.User
		role string
	)
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&role,
		&user.ProfilePictureURL,
		&user.ProfilePictureKey,
		&user.TOTPSecret,
		&user.CreatedAt,
	)
	if err != nil {
		return model.User{}, err
	}
	user.Role = enums.Role(role)
	return user, nil
}

func (r *UserRepo) Create(ctx context.Context, username, passwordHash string, role enums.Role) (model.User, error) {
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}
	username = strings.TrimSpace(username)
	if username == "" || passwordHash == "" {
		return model.User{}, fmt.Errorf("invalid user payload")
	}
	if role == "" {
		role = enums.RoleUser
	}

	user, err := scanUser(r.pool.QueryRow(ctx, `
INSERT INTO users (username, password_hash, role, created_at)
VALUES ($1, $2, $3, NOW())
RETURNING `+userColumns, username, passwordHash, string(role)))
	if err != nil {
		if isUniqueViolation(err) {
			return model.User{}, ErrDuplicate
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (r *UserRepo) FindByID(ctx context.Context, userID int64) (model.User, error) {
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}

	user, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("find user by id: %w", err)
	}
	return user, nil
}

func (r *UserRepo) FindByUsername(ctx context.Context, username string) (model.User, error) {
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}

	user, err := scanUser(r.pool.QueryRow(ctx, `
SELECT `+userColumns+`
FROM users
WHERE lower(username) = lower($1)
LIMIT 1
`, strings.TrimSpace(username)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("find user by username: %w", err)
	}
	return user, nil
}

func (r *UserRepo) SetRole(ctx context.Context, username string, role enums.Role) (model.User, error) {
	if r.pool == nil {
		return model.User{}, fmt.Errorf("postgres pool is nil")
	}

	user, err := scanUser(r.pool.QueryRow(ctx, `
UPDATE users SET role = $2
WHERE lower(username) = lower($1)
RETURNING `+userColumns, strings.TrimSpace(username), string(role)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, fmt.Errorf("set user role: %w", err)
	}
	return user, nil
}

func (r *UserRepo) SetTOTPSecret(ctx context.Context, userID int64, secret string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `UPDATE users SET totp_secret = $2 WHERE id = $1`, userID, secret)
	if err != nil {
		return fmt.Errorf("set totp secret: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// LockProfilePicture returns the current picture key while holding the row lock.
func (r *UserRepo) LockProfilePicture(ctx context.Context, tx pgx.Tx, userID int64) (*string, error) {
	if tx == nil {
		return nil, ErrNilTx
	}

	var key *string
	err := tx.QueryRow(ctx, `SELECT profile_picture_key FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lock user profile picture: %w", err)
	}
	return key, nil
}

func (r *UserRepo) UpdateProfilePicture(ctx context.Context, tx pgx.Tx, userID int64, url, key string) error {
	if tx == nil {
		return ErrNilTx
	}

	tag, err := tx.Exec(ctx, `
UPDATE users
SET profile_picture_url = $2, profile_picture_key = $3
WHERE id = $1
`, userID, url, key)
	if err != nil {
		return fmt.Errorf("update profile picture: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
