package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "orgchat/docs"
	"orgchat/internal/config"
	"orgchat/internal/handlers"
	"orgchat/internal/middleware"
	"orgchat/internal/pdf"
	"orgchat/internal/realtime"
	"orgchat/internal/repositories"
	"orgchat/internal/routes"
	"orgchat/internal/services"
)

const shutdownTimeout = 15 * time.Second

// Run serves until ctx is cancelled, then drains sockets and background workers.
func Run(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	// === DB ===
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("[app] db close failed", zap.Error(err))
		}
	}()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = db.PingContext(pingCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	// === Repos ===
	chatRepo := repositories.NewChatRepository(db)
	messageRepo := repositories.NewMessageRepository(db)
	userRepo := repositories.NewUserRepository(db)
	memberRepo := repositories.NewMembershipRepository(db)
	entitlementRepo := repositories.NewEntitlementRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)
	auditRepo := repositories.NewAuditRepository(db)
	linkRepo := repositories.NewTelegramLinkRepository(db)

	// === Push channels (offline mentions) ===
	var channels []services.PushChannel
	if cfg.Email.Enabled {
		emailService := services.NewEmailService(
			cfg.Email.SMTPHost,
			cfg.Email.SMTPPort,
			cfg.Email.SMTPUser,
			cfg.Email.SMTPPassword,
			cfg.Email.FromEmail,
		)
		channels = append(channels, services.NewEmailChannel(emailService, cfg.Email.AppURL))
	}
	var tgService *services.TelegramService
	if cfg.Telegram.Enabled {
		tgService, err = services.NewTelegramService(cfg.Telegram.BotToken, logger)
		if err != nil {
			// push over Telegram is optional; the rest keeps working
			logger.Warn("[app] telegram disabled", zap.Error(err))
			tgService = nil
		} else {
			channels = append(channels, tgService)
		}
	}
	var pusher *services.PushDispatcher
	if len(channels) > 0 {
		pusher = services.NewPushDispatcher(userRepo, cfg.Notification.PushWorkers, cfg.Notification.PushBuffer, logger, channels...)
		defer pusher.Shutdown()
	}

	// === Services ===
	registry := realtime.NewRegistry()
	hub := realtime.NewHub()
	membership := services.NewMembershipService(memberRepo, chatRepo)
	entitlement := services.NewEntitlementService(entitlementRepo, cfg.Chat.BundledTiers, cfg.Chat.FeatureSlug, logger)
	audit := services.NewAuditService(auditRepo, logger)
	defer audit.Close()

	chatService := services.NewChatService(services.ChatServiceDeps{
		Chats:       chatRepo,
		Messages:    messageRepo,
		Users:       userRepo,
		OrgMembers:  memberRepo,
		Membership:  membership,
		Entitlement: entitlement,
		Notifier:    services.NewNotificationService(notificationRepo, registry, pusher, logger),
		Audit:       audit,
		Transcripts: pdf.NewDocumentGenerator(cfg.Files.RootDir, cfg.Files.FontPath),
		Config:      cfg.Chat,
		Logger:      logger,
	})

	// === Realtime ===
	var broadcaster realtime.Broadcaster
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		backplane := realtime.NewRedisBackplane(rdb, cfg.Redis.Channel, hub, logger)
		go backplane.Run(ctx)
		broadcaster = backplane
		logger.Info("[app] redis backplane enabled", zap.String("channel", cfg.Redis.Channel))
	}

	verifier := middleware.NewTokenVerifier(cfg.JWT.Secret, cfg.JWT.Leeway)
	gateway := realtime.NewGateway(realtime.GatewayDeps{
		Verifier:       verifier,
		Users:          userRepo,
		Membership:     membership,
		Entitlement:    entitlement,
		Chats:          chatService,
		Registry:       registry,
		Hub:            hub,
		Broadcaster:    broadcaster,
		Config:         cfg.Realtime,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	})

	// === Handlers ===
	chatHandler := handlers.NewChatHandler(chatService, gateway, logger)
	var integrationsHandler *handlers.IntegrationsHandler
	if tgService != nil {
		integrationsHandler = handlers.NewIntegrationsHandler(tgService, linkRepo, logger)
	}

	// === Gin ===
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Organization-ID"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Swagger
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	limiter := middleware.NewRateLimiter(float64(cfg.Server.RequestsPerSec), 0)
	routes.SetupRoutes(router, verifier, limiter, chatHandler, integrationsHandler, gateway.ServeWS)

	// === Run ===
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("[app] listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("[app] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// hijacked websocket conns are not tracked by Shutdown
	gateway.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
