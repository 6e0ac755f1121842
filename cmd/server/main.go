package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/tutoring_hub/internal/app"
	"github.com/Freeeeeet/tutoring_hub/internal/auth"
	"github.com/Freeeeeet/tutoring_hub/internal/config"
	"github.com/Freeeeeet/tutoring_hub/internal/controller"
	"github.com/Freeeeeet/tutoring_hub/internal/notify"
	"github.com/Freeeeeet/tutoring_hub/internal/realtime"
	"github.com/Freeeeeet/tutoring_hub/internal/repository"
	"github.com/Freeeeeet/tutoring_hub/internal/repository/base"
	"github.com/Freeeeeet/tutoring_hub/internal/service"
	"github.com/Freeeeeet/tutoring_hub/migrations"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	sweepInterval   = time.Hour
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := app.NewLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting tutoring hub",
		zap.String("environment", cfg.Environment),
		zap.String("addr", cfg.HTTPAddr),
		zap.String("timezone", cfg.Timezone.String()),
	)

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}
	logger.Info("✅ Connected to database")

	migrator, err := app.NewMigrator(pool, migrations.FS, cfg.MigrationsDir, logger)
	if err != nil {
		return err
	}
	if err := migrator.Run(ctx); err != nil {
		_ = migrator.Close()
		return err
	}
	_ = migrator.Close()

	// Репозитории
	db := base.NewRepository(pool)
	txManager := base.NewTxManager(pool)
	userRepo := repository.NewUserRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	connectionRepo := repository.NewConnectionRepository(db)
	planRepo := repository.NewStudyPlanRepository(db)

	notifier := newNotifier(ctx, cfg, userRepo, logger)

	// Хаб проверяет участие через сервис сообщений, а сервис публикует события в хаб
	var messageService *service.MessageService
	hub := realtime.NewHub(realtime.AuthorizerFunc(func(ctx context.Context, userID, conversationID int64) error {
		return messageService.CanJoin(ctx, userID, conversationID)
	}), cfg.CORSOrigins, logger)

	// Сервисы
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	userService := service.NewUserService(txManager, userRepo, tokens, logger)
	availabilityService := service.NewAvailabilityService(txManager, userRepo, availabilityRepo, sessionRepo, cfg.Timezone, logger)
	sessionService := service.NewSessionService(txManager, sessionRepo, availabilityRepo, userRepo, notifier, cfg.Timezone, logger)
	messageService = service.NewMessageService(txManager, conversationRepo, messageRepo, userRepo, hub, logger)
	connectionService := service.NewConnectionService(txManager, connectionRepo, userRepo, notifier, logger)
	planService := service.NewStudyPlanService(txManager, planRepo, userRepo, notifier, logger)
	statsService := service.NewStatsService(userRepo, sessionRepo, connectionRepo, planRepo, cfg.Timezone)

	scheduler := app.NewScheduler(sessionService, sweepInterval, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	handler := controller.NewHandler(controller.Deps{
		Users:        userService,
		Availability: availabilityService,
		Sessions:     sessionService,
		Messages:     messageService,
		Connections:  connectionService,
		StudyPlans:   planService,
		Stats:        statsService,
		Tokens:       tokens,
		Websocket:    hub,
		Health:       pool,
		Location:     cfg.Timezone,
		CORSOrigins:  cfg.CORSOrigins,
		Logger:       logger,
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("🚀 HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// websocket-соединения Shutdown не закрывает
	hub.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("Server stopped")
	return nil
}

// newNotifier поднимает Telegram-бота, если задан токен; иначе уведомления только пишутся в лог
func newNotifier(ctx context.Context, cfg *config.Config, users notify.RecipientLookup, logger *zap.Logger) service.Notifier {
	if cfg.TelegramToken == "" {
		logger.Info("TELEGRAM_TOKEN is not set, notifications go to the log")
		return notify.NewLogNotifier(logger)
	}

	b, err := bot.New(cfg.TelegramToken)
	if err != nil {
		logger.Warn("Failed to create telegram bot, notifications go to the log", zap.Error(err))
		return notify.NewLogNotifier(logger)
	}

	tgBot := notify.NewBot(b, logger)
	if err := tgBot.RegisterHandlers(ctx); err != nil {
		logger.Warn("Failed to register bot commands", zap.Error(err))
	}
	go tgBot.Start(ctx)

	return notify.NewTelegramNotifier(b, users, logger)
}
