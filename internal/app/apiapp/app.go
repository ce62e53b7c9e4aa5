package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/IBM/sarama"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ivankudzin/recipemarket/internal/config"
	"github.com/ivankudzin/recipemarket/internal/infra/httpclient"
	"github.com/ivankudzin/recipemarket/internal/infra/kafka"
	s3infra "github.com/ivankudzin/recipemarket/internal/infra/s3"
	"github.com/ivankudzin/recipemarket/internal/infra/telegram"
	pgrepo "github.com/ivankudzin/recipemarket/internal/repo/postgres"
	redrepo "github.com/ivankudzin/recipemarket/internal/repo/redis"
	authsvc "github.com/ivankudzin/recipemarket/internal/services/auth"
	cartsvc "github.com/ivankudzin/recipemarket/internal/services/cart"
	catalogsvc "github.com/ivankudzin/recipemarket/internal/services/catalog"
	mediasvc "github.com/ivankudzin/recipemarket/internal/services/media"
	purchasesvc "github.com/ivankudzin/recipemarket/internal/services/purchases"
	ratesvc "github.com/ivankudzin/recipemarket/internal/services/rate"
	ratingsvc "github.com/ivankudzin/recipemarket/internal/services/ratings"
	txsvc "github.com/ivankudzin/recipemarket/internal/services/transactions"
	"github.com/ivankudzin/recipemarket/internal/transport/http/handlers"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	producer   sarama.SyncProducer
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log, cfg.HTTP.RequestTimeout)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	sessionRepo := redrepo.NewSessionRepo(redisClient)
	rateRepo := redrepo.NewRateRepo(redisClient)

	txManager := pgrepo.NewTxManager(pool)
	userRepo := pgrepo.NewUserRepo(pool)
	recipeRepo := pgrepo.NewRecipeRepo(pool)
	cartRepo := pgrepo.NewCartRepo(pool)
	purchaseRepo := pgrepo.NewPurchaseRepo(pool)
	ratingRepo := pgrepo.NewRatingRepo(pool)
	recipeImageRepo := pgrepo.NewRecipeImageRepo(pool)
	transactionRepo := pgrepo.NewTransactionRepo(pool)

	s3Cfg := s3infra.Config{
		Endpoint:      cfg.S3.Endpoint,
		AccessKey:     cfg.S3.AccessKey,
		SecretKey:     cfg.S3.SecretKey,
		UseSSL:        cfg.S3.UseSSL,
		PublicBaseURL: cfg.S3.PublicBaseURL,
	}
	s3Client, err := s3infra.NewClient(s3Cfg)
	if err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	}
	mediaStorage := mediasvc.NewS3Storage(s3Client, cfg.S3.Bucket, s3infra.PublicBaseURL(s3Cfg, cfg.S3.Bucket))

	var (
		producer sarama.SyncProducer
		events   txsvc.EventPublisher
	)
	if len(cfg.Events.Brokers) > 0 {
		if p, err := kafka.NewSyncProducer(cfg.Events.Brokers, "recipemarket-api"); err != nil {
			log.Warn("kafka init failed, lifecycle events disabled", zap.Error(err))
		} else {
			producer = p
			events = kafka.NewProducer(p, cfg.Events.Topic)
		}
	}

	var notifier txsvc.ReviewNotifier
	if cfg.Notify.TelegramToken != "" {
		if n, err := telegram.NewNotifier(cfg.Notify.TelegramToken, cfg.Notify.TelegramAdminChatID, httpclient.New(10*time.Second)); err != nil {
			log.Warn("telegram init failed, review notifications disabled", zap.Error(err))
		} else {
			notifier = n
		}
	}

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	authService := authsvc.NewService(authsvc.Dependencies{
		JWT:        jwtManager,
		Sessions:   sessionRepo,
		TOTPSetups: sessionRepo,
		Users:      userRepo,
	}, authsvc.Config{
		RefreshTTL: cfg.Auth.RefreshTTL,
		TOTPIssuer: cfg.Auth.TOTPIssuer,
	})

	rateLimiter := ratesvc.NewLimiter(rateRepo, ratesvc.Limits{
		ratesvc.ActionAddToCart:     cfg.Limits.AddToCartPerMinute,
		ratesvc.ActionSubmitPayment: cfg.Limits.PaymentSubmitPerMinute,
	})

	mediaService := mediasvc.NewService(mediasvc.Dependencies{
		Tx:      txManager,
		Users:   userRepo,
		Recipes: recipeRepo,
		Images:  recipeImageRepo,
		Storage: mediaStorage,
		Logger:  log,
	}, mediasvc.Config{
		MaxBytes:     cfg.Uploads.MaxBytes,
		AllowedTypes: cfg.Uploads.AllowedTypes,
	})

	purchaseService := purchasesvc.NewService(purchaseRepo)
	catalogService := catalogsvc.NewService(catalogsvc.Dependencies{
		Tx:        txManager,
		Recipes:   recipeRepo,
		Purchases: purchaseService,
		Blobs:     mediaService,
	}, catalogsvc.Config{
		DefaultPageSize: cfg.Pagination.DefaultLimit,
		MaxPageSize:     cfg.Pagination.MaxLimit,
	})
	cartService := cartsvc.NewService(cartsvc.Dependencies{
		Recipes:   catalogService,
		Store:     cartRepo,
		Purchases: purchaseService,
		Limiter:   rateLimiter,
	})
	ratingService := ratingsvc.NewService(ratingsvc.Dependencies{
		Store:     ratingRepo,
		Recipes:   recipeRepo,
		Purchases: purchaseService,
	})
	transactionService := txsvc.NewService(txsvc.Dependencies{
		Tx:        txManager,
		Store:     transactionRepo,
		Cart:      cartRepo,
		Purchases: purchaseService,
		Counters:  recipeRepo,
		Proofs:    mediaService,
		Limiter:   rateLimiter,
		Events:    events,
		Notifier:  notifier,
		Logger:    log,
	}, txsvc.Config{
		DefaultPageSize: cfg.Pagination.DefaultLimit,
		MaxPageSize:     cfg.Pagination.MaxLimit,
	})

	health := map[string]handlers.Pinger{"redis": redrepo.Pinger{Client: redisClient}}
	if pool != nil {
		health["postgres"] = pool
	}

	RegisterRoutes(r, Dependencies{
		AuthService:        authService,
		CatalogService:     catalogService,
		CartService:        cartService,
		TransactionService: transactionService,
		RatingService:      ratingService,
		PurchaseService:    purchaseService,
		MediaService:       mediaService,
		HealthChecks:       health,
		MaxUploadBytes:     cfg.Uploads.MaxBytes,
		Logger:             log,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		producer:   producer,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
