package media

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ivankudzin/recipemarket/internal/domain/model"
	"github.com/ivankudzin/recipemarket/internal/pkg/apperr"
	"github.com/ivankudzin/recipemarket/internal/pkg/validate"
	pgrepo "github.com/ivankudzin/recipemarket/internal/repo/postgres"
)

const (
	PrefixPaymentProofs    = "payment-proofs/"
	PrefixProfilePictures  = "profile-pictures/"
	PrefixRecipeThumbnails = "recipe-thumbnails/"
	PrefixRecipeImages     = "recipe-images/"
)

const (
	defaultAltText   = "Recipe image"
	maxAltTextLength = 255
)

var (
	ErrFileRequired       = apperr.Validation("FILE_REQUIRED", "Image file is required")
	ErrFileTooLarge       = apperr.Validation("FILE_TOO_LARGE", "File size must not exceed 5MB")
	ErrNotAnImage         = apperr.Validation("INVALID_FILE_TYPE", "Only image files are allowed")
	ErrUserNotFound       = apperr.NotFound("USER_NOT_FOUND", "User not found")
	ErrRecipeNotFound     = apperr.NotFound("RECIPE_NOT_FOUND", "Recipe not found")
	ErrStorageUnavailable = apperr.Dependency("STORAGE_UNAVAILABLE", "File storage is unavailable")
	ErrInvalidRecipeID    = apperr.Validation("INVALID_RECIPE_ID", "Invalid recipe ID")
	ErrAltTextTooLong     = apperr.Validation("ALT_TEXT_TOO_LONG", "Alt text must not exceed 255 characters")
	ErrImageNotFound      = apperr.NotFound("IMAGE_NOT_FOUND", "Image not found")
)

// ManagedPrefixes lists every key prefix this service writes under.
func ManagedPrefixes() []string {
	return []string{PrefixPaymentProofs, PrefixProfilePictures, PrefixRecipeThumbnails, PrefixRecipeImages}
}

type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, content []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

type TxRunner interface {
	WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

type ProfilePictureStore interface {
	LockProfilePicture(ctx context.Context, tx pgx.Tx, userID int64) (*string, error)
	UpdateProfilePicture(ctx context.Context, tx pgx.Tx, userID int64, url, key string) error
}

type ThumbnailStore interface {
	LockThumbnail(ctx context.Context, tx pgx.Tx, recipeID int64) (*string, error)
	UpdateThumbnail(ctx context.Context, tx pgx.Tx, recipeID int64, url, key string) error
}

type RecipeImageStore interface {
	Insert(ctx context.Context, tx pgx.Tx, img model.RecipeImage) (model.RecipeImage, error)
	ListForRecipe(ctx context.Context, recipeID int64) ([]model.RecipeImage, error)
	Delete(ctx context.Context, tx pgx.Tx, imageID int64) (string, error)
}

type Upload struct {
	Content []byte
}

type StoredObject struct {
	Key string `json:"-"`
	URL string `json:"url"`
}

type RecipeImageInput struct {
	RecipeID     int64
	IsTitleImage bool
	AltText      string
	File         Upload
}

type Config struct {
	MaxBytes     int64
	AllowedTypes []string
}

type Dependencies struct {
	Tx      TxRunner
	Users   ProfilePictureStore
	Recipes ThumbnailStore
	Images  RecipeImageStore
	Storage ObjectStorage
	Logger  *zap.Logger
}

type Service struct {
	tx       TxRunner
	users    ProfilePictureStore
	recipes  ThumbnailStore
	images   RecipeImageStore
	storage  ObjectStorage
	log      *zap.Logger
	maxBytes int64
	allowed  []string
}

func NewService(deps Dependencies, cfg Config) *Service {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		tx:       deps.Tx,
		users:    deps.Users,
		recipes:  deps.Recipes,
		images:   deps.Images,
		storage:  deps.Storage,
		log:      log,
		maxBytes: cfg.MaxBytes,
		allowed:  cfg.AllowedTypes,
	}
}

// UploadPaymentProof stores a proof image. Linking it to a transaction is
// the caller's job.
func (s *Service) UploadPaymentProof(ctx context.Context, userID int64, file Upload) (StoredObject, error) {
	return s.store(ctx, PrefixPaymentProofs, userID, file)
}

// UploadProfilePicture uploads first and then links inside one unit of work.
// A blob left behind by a failed commit is collected by the orphan sweep.
func (s *Service) UploadProfilePicture(ctx context.Context, userID int64, file Upload) (StoredObject, error) {
	if s.users == nil || s.tx == nil {
		return StoredObject{}, fmt.Errorf("media dependencies are not configured")
	}

	obj, err := s.store(ctx, PrefixProfilePictures, userID, file)
	if err != nil {
		return StoredObject{}, err
	}

	var previous *string
	err = s.tx.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		old, err := s.users.LockProfilePicture(ctx, tx, userID)
		if err != nil {
			return err
		}
		previous = old
		return s.users.UpdateProfilePicture(ctx, tx, userID, obj.URL, obj.Key)
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return StoredObject{}, ErrUserNotFound
		}
		return StoredObject{}, fmt.Errorf("link profile picture: %w", err)
	}

	s.DiscardSuperseded(ctx, previous, obj.Key)
	return obj, nil
}

func (s *Service) UploadRecipeThumbnail(ctx context.Context, recipeID int64, file Upload) (StoredObject, error) {
	if s.recipes == nil || s.tx == nil {
		return StoredObject{}, fmt.Errorf("media dependencies are not configured")
	}

	obj, err := s.store(ctx, PrefixRecipeThumbnails, recipeID, file)
	if err != nil {
		return StoredObject{}, err
	}

	var previous *string
	err = s.tx.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		old, err := s.recipes.LockThumbnail(ctx, tx, recipeID)
		if err != nil {
			return err
		}
		previous = old
		return s.recipes.UpdateThumbnail(ctx, tx, recipeID, obj.URL, obj.Key)
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrRecipeNotFound) {
			return StoredObject{}, ErrRecipeNotFound
		}
		return StoredObject{}, fmt.Errorf("link recipe thumbnail: %w", err)
	}

	s.DiscardSuperseded(ctx, previous, obj.Key)
	return obj, nil
}

// AddRecipeImage stores a gallery image and links it to the recipe. When the
// recipe does not exist the fresh blob is removed right away.
func (s *Service) AddRecipeImage(ctx context.Context, in RecipeImageInput) (model.RecipeImage, error) {
	if s.images == nil || s.tx == nil {
		return model.RecipeImage{}, fmt.Errorf("media dependencies are not configured")
	}
	if in.RecipeID <= 0 {
		return model.RecipeImage{}, ErrInvalidRecipeID
	}
	alt := strings.TrimSpace(in.AltText)
	if alt == "" {
		alt = defaultAltText
	}
	if utf8.RuneCountInString(alt) > maxAltTextLength {
		return model.RecipeImage{}, ErrAltTextTooLong
	}

	obj, err := s.store(ctx, PrefixRecipeImages, in.RecipeID, in.File)
	if err != nil {
		return model.RecipeImage{}, err
	}

	var created model.RecipeImage
	err = s.tx.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		created, err = s.images.Insert(ctx, tx, model.RecipeImage{
			RecipeID:     in.RecipeID,
			URL:          obj.URL,
			Key:          obj.Key,
			AltText:      alt,
			IsTitleImage: in.IsTitleImage,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrRecipeNotFound) {
			s.DiscardSuperseded(ctx, &obj.Key, "")
			return model.RecipeImage{}, ErrRecipeNotFound
		}
		return model.RecipeImage{}, fmt.Errorf("link recipe image: %w", err)
	}
	return created, nil
}

// ListRecipeImages returns the gallery, title image first.
func (s *Service) ListRecipeImages(ctx context.Context, recipeID int64) ([]model.RecipeImage, error) {
	if s.images == nil {
		return nil, fmt.Errorf("media dependencies are not configured")
	}
	if recipeID <= 0 {
		return nil, ErrInvalidRecipeID
	}
	images, err := s.images.ListForRecipe(ctx, recipeID)
	if err != nil {
		return nil, fmt.Errorf("list recipe images: %w", err)
	}
	return images, nil
}

// DeleteRecipeImage removes the gallery row and, once that commits, its blob.
func (s *Service) DeleteRecipeImage(ctx context.Context, imageID int64) error {
	if s.images == nil || s.tx == nil {
		return fmt.Errorf("media dependencies are not configured")
	}

	var key string
	err := s.tx.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		key, err = s.images.Delete(ctx, tx, imageID)
		return err
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrRecipeImageNotFound) {
			return ErrImageNotFound
		}
		return fmt.Errorf("delete recipe image: %w", err)
	}

	s.DiscardSuperseded(ctx, &key, "")
	return nil
}

// DiscardSuperseded deletes a blob that a committed write replaced.
// Failures are logged and never returned.
func (s *Service) DiscardSuperseded(ctx context.Context, previous *string, current string) {
	if previous == nil || *previous == "" || *previous == current || s.storage == nil {
		return
	}
	if err := s.storage.Delete(ctx, *previous); err != nil {
		s.log.Warn("delete superseded object failed", zap.String("key", *previous), zap.Error(err))
	}
}

func (s *Service) store(ctx context.Context, prefix string, ownerID int64, file Upload) (StoredObject, error) {
	if s.storage == nil {
		return StoredObject{}, fmt.Errorf("object storage is not configured")
	}

	contentType, err := validate.Image(file.Content, s.maxBytes, s.allowed)
	if err != nil {
		switch {
		case errors.Is(err, validate.ErrEmptyFile):
			return StoredObject{}, ErrFileRequired
		case errors.Is(err, validate.ErrFileTooLarge):
			return StoredObject{}, ErrFileTooLarge
		default:
			return StoredObject{}, ErrNotAnImage
		}
	}

	if err := s.storage.EnsureBucket(ctx); err != nil {
		return StoredObject{}, apperr.Wrap(ErrStorageUnavailable, err)
	}

	key := objectKey(prefix, ownerID, contentType)
	if err := s.storage.Put(ctx, key, file.Content, contentType); err != nil {
		return StoredObject{}, apperr.Wrap(ErrStorageUnavailable, err)
	}

	return StoredObject{Key: key, URL: s.storage.PublicURL(key)}, nil
}

func objectKey(prefix string, ownerID int64, contentType string) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(strconv.FormatInt(ownerID, 10))
	b.WriteByte('/')
	b.WriteString(uuid.NewString())
	b.WriteString(validate.ExtensionForMIME(contentType))
	return b.String()
}
