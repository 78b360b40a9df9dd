package router

import (
	"context"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/dongne-market/backend/internal/chat"
	"github.com/anonto42/dongne-market/backend/internal/filters"
	"github.com/anonto42/dongne-market/backend/internal/handlers"
	"github.com/anonto42/dongne-market/backend/internal/middleware"
	"github.com/anonto42/dongne-market/backend/internal/models"
	"github.com/anonto42/dongne-market/backend/internal/querycache"
	"github.com/anonto42/dongne-market/backend/internal/realtime"
	"github.com/anonto42/dongne-market/backend/internal/repositories"
	"github.com/anonto42/dongne-market/backend/internal/services"
	"github.com/anonto42/dongne-market/backend/pkg/config"
	"github.com/anonto42/dongne-market/backend/pkg/logger"
	"github.com/anonto42/dongne-market/backend/pkg/storage"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
)

// Dependencies are the connected backends the routes are built on
type Dependencies struct {
	Config       *config.Config
	DB           *config.DB
	Objects      storage.ObjectStore
	FirebaseAuth *auth.Client // Optional
}

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(eMiddleware.RequestLoggerWithConfig(eMiddleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v eMiddleware.RequestLoggerValues) error {
			ev := logger.Info()
			if v.Error != nil {
				ev = logger.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	logger.Info().Msg("Global middleware configured.")
}

// SetupRoutes migrates the schema, builds every layer and registers the routes
func SetupRoutes(e *echo.Echo, deps Dependencies) error {
	cfg := deps.Config
	pgdb := deps.DB.Postgres
	mongoDB := deps.DB.Mongo.Database(cfg.MongoDatabase)

	// AutoMigrate PostgreSQL models
	err := pgdb.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Like{},
		&models.Comment{},
		&models.Notification{},
		&models.ChatRoom{},
		&models.ChatMessage{},
	)
	if err != nil {
		return err
	}
	logger.Info().Msg("PostgreSQL auto-migrations completed for all models.")

	// Health checks - always accessible
	health := handlers.NewHealthHandler(deps.DB)
	e.GET("/health", health.HealthCheck)
	e.GET("/ready", health.ReadyCheck)

	// --- Initialize Repositories ---
	userRepo := repositories.NewPostgresUserRepository(pgdb)
	profileRepo := repositories.NewPostgresProfileRepository(pgdb)
	itemRepo := repositories.NewMongoItemRepository(mongoDB)
	likeRepo := repositories.NewPostgresLikeRepository(pgdb)
	commentRepo := repositories.NewPostgresCommentRepository(pgdb)
	notificationRepo := repositories.NewPostgresNotificationRepository(pgdb)
	chatRepo := repositories.NewPostgresChatRepository(pgdb)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := itemRepo.EnsureIndexes(ctx); err != nil {
		return err
	}
	logger.Info().Msg("MongoDB item indexes ensured.")

	// --- Shared realtime feed, query cache and filter state ---
	feed := realtime.NewRedisFeed(deps.DB.Redis)
	cache := querycache.New(deps.DB.Redis, cfg.CacheTTL)
	locations := filters.NewRedisLocationState(deps.DB.Redis)

	// --- Services ---
	itemService := services.NewItemService(itemRepo, likeRepo, deps.Objects, feed, cache)
	likeService := services.NewLikeService(likeRepo, itemRepo, feed, cache)
	commentService := services.NewCommentService(commentRepo, itemRepo, profileRepo, notificationRepo, feed, cache)
	notificationService := services.NewNotificationService(notificationRepo, feed)
	profileService := services.NewProfileService(profileRepo, userRepo, deps.Objects, cache)
	chatService := services.NewChatService(chatRepo, itemRepo, userRepo, feed, cache)

	// --- Unprotected routes for authentication ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))

	authHandler := handlers.NewAuthHandler(userRepo, deps.FirebaseAuth, cfg.JWTSecret)
	authHandler.RegisterAuthRoutes(api.Group("/auth", middleware.RateLimit(cfg.AuthRateLimit, 10)))
	logger.Info().Msg("Auth routes configured.")

	handlers.NewItemHandler(itemService, locations).RegisterItemRoutes(api)
	logger.Info().Msg("Item routes configured.")

	handlers.NewLocationHandler(itemService, locations).RegisterLocationRoutes(api)
	logger.Info().Msg("Location routes configured.")

	handlers.NewLikeHandler(likeService).RegisterLikeRoutes(api)
	logger.Info().Msg("Like routes configured.")

	handlers.NewCommentHandler(commentService).RegisterCommentRoutes(api)
	logger.Info().Msg("Comment routes configured.")

	handlers.NewNotificationHandler(notificationService).RegisterNotificationRoutes(api)
	logger.Info().Msg("Notification routes configured.")

	handlers.NewProfileHandler(profileService).RegisterProfileRoutes(api)
	logger.Info().Msg("Profile routes configured.")

	rooms := chat.NewSynchronizer(chatService, feed, cfg.ChatPollInterval)
	badge := chat.NewBadge(chatService, feed)
	handlers.NewChatHandler(chatService, rooms, badge).RegisterChatRoutes(api)
	logger.Info().Msg("Chat routes configured.")

	logger.Info().Msg("All routes configured.")
	return nil
}
