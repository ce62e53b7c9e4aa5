package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ivankudzin/recipemarket/internal/domain/enums"
	authsvc "github.com/ivankudzin/recipemarket/internal/services/auth"
	cartsvc "github.com/ivankudzin/recipemarket/internal/services/cart"
	catalogsvc "github.com/ivankudzin/recipemarket/internal/services/catalog"
	mediasvc "github.com/ivankudzin/recipemarket/internal/services/media"
	purchasesvc "github.com/ivankudzin/recipemarket/internal/services/purchases"
	ratingsvc "github.com/ivankudzin/recipemarket/internal/services/ratings"
	txsvc "github.com/ivankudzin/recipemarket/internal/services/transactions"
	"github.com/ivankudzin/recipemarket/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService        *authsvc.Service
	CatalogService     *catalogsvc.Service
	CartService        *cartsvc.Service
	TransactionService *txsvc.Service
	RatingService      *ratingsvc.Service
	PurchaseService    *purchasesvc.Service
	MediaService       *mediasvc.Service
	HealthChecks       map[string]handlers.Pinger
	MaxUploadBytes     int64
	Logger             *zap.Logger
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler(deps.HealthChecks)
	authHandler := handlers.NewAuthHandler(deps.AuthService, deps.MediaService, deps.MaxUploadBytes, deps.Logger)
	recipeHandler := handlers.NewRecipeHandler(deps.CatalogService, deps.MediaService, deps.MaxUploadBytes, deps.Logger)
	cartHandler := handlers.NewCartHandler(deps.CartService, deps.Logger)
	transactionHandler := handlers.NewTransactionHandler(deps.TransactionService, deps.MaxUploadBytes, deps.Logger)
	ratingHandler := handlers.NewRatingHandler(deps.RatingService, deps.Logger)
	purchaseHandler := handlers.NewPurchaseHandler(deps.PurchaseService, deps.Logger)
	imageHandler := handlers.NewImageHandler(deps.MediaService, deps.MaxUploadBytes, deps.Logger)

	authMW := AuthMiddleware(deps.AuthService, deps.Logger)
	optionalAuthMW := OptionalAuthMiddleware(deps.AuthService, deps.Logger)
	adminMW := RequireRole(enums.RoleAdmin)

	r.Get("/healthz", healthHandler.Handle)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
		r.With(authMW).Post("/logout", authHandler.Logout)
		r.With(authMW).Post("/logout_all", authHandler.LogoutAll)
		r.With(authMW).Get("/profile", authHandler.Profile)
		r.With(authMW).Put("/profile/picture", authHandler.ProfilePicture)
		r.With(authMW).Post("/totp/setup", authHandler.TOTPSetup)
		r.With(authMW).Post("/totp/confirm", authHandler.TOTPConfirm)
	})

	r.Route("/recipes", func(r chi.Router) {
		r.With(optionalAuthMW).Get("/", recipeHandler.List)
		r.With(optionalAuthMW).Get("/{id}", recipeHandler.Get)
		r.With(authMW, adminMW).Post("/", recipeHandler.Create)
		r.With(authMW, adminMW).Put("/{id}", recipeHandler.Update)
		r.With(authMW, adminMW).Put("/{id}/sale", recipeHandler.SetForSale)
		r.With(authMW, adminMW).Put("/{id}/thumbnail", recipeHandler.Thumbnail)
		r.With(authMW, adminMW).Delete("/{id}", recipeHandler.Delete)
	})

	r.Route("/images", func(r chi.Router) {
		r.Get("/recipe/{recipeId}", imageHandler.ListForRecipe)
		r.With(authMW, adminMW).Post("/upload", imageHandler.Upload)
		r.With(authMW, adminMW).Delete("/{imageId}", imageHandler.Delete)
	})

	r.Route("/cart", func(r chi.Router) {
		r.Use(authMW)
		r.Post("/", cartHandler.Add)
		r.Get("/", cartHandler.Get)
		r.Delete("/{recipeId}", cartHandler.Remove)
	})

	r.Route("/transactions", func(r chi.Router) {
		r.Use(authMW)
		r.Post("/", transactionHandler.Create)
		r.Get("/", transactionHandler.ListMine)
		r.With(adminMW).Get("/all", transactionHandler.ListAll)
		r.Get("/{id}", transactionHandler.Get)
		r.Put("/{id}/payment", transactionHandler.SubmitPayment)
		r.With(adminMW).Put("/{id}/verify", transactionHandler.Verify)
		r.With(adminMW).Put("/{id}/reject", transactionHandler.Reject)
	})

	r.Route("/ratings", func(r chi.Router) {
		r.Get("/recipe/{recipeId}", ratingHandler.List)
		r.With(authMW).Post("/recipe/{recipeId}", ratingHandler.Upsert)
		r.With(authMW).Delete("/{ratingId}", ratingHandler.Delete)
	})

	r.With(authMW).Get("/purchases", purchaseHandler.List)
}
