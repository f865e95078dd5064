// @title Velvet Den API
// @version 1.0
// @description Event space booking: registration with review, events with a fixed set of spaces, and one booking per user per event.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"velvetden/config"
	_ "velvetden/docs"
	"velvetden/internal/adapters/auth"
	"velvetden/internal/adapters/email"
	"velvetden/internal/adapters/notify"
	"velvetden/internal/adapters/ratelimit"
	"velvetden/internal/adapters/storage"
	deliveryhttp "velvetden/internal/delivery/http"
	"velvetden/internal/delivery/http/controllers"
	"velvetden/internal/delivery/http/middleware"
	"velvetden/internal/domain"
	"velvetden/internal/repository/postgres"
	"velvetden/internal/services"
)

func main() {
	logger := config.NewLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped with error", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		return err
	}
	logger.Info("connected to database")

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	eventRepo := postgres.NewEventRepository(db)
	spaceRepo := postgres.NewSpaceRepository(db)
	templateRepo := postgres.NewSpaceTemplateRepository(db)
	tx := postgres.NewTransactor(db)

	// Infrastructure
	fileStore, err := storage.NewFileStore(ctx, storage.Config{
		Provider:  cfg.Storage.Provider,
		LocalDir:  cfg.Storage.LocalDir,
		KeyPrefix: "verification",
		S3: storage.S3Config{
			Region:          cfg.Storage.Region,
			Bucket:          cfg.Storage.Bucket,
			Endpoint:        cfg.Storage.Endpoint,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			UsePathStyle:    cfg.Storage.UsePathStyle,
		},
	})
	if err != nil {
		return err
	}

	var limiter domain.LoginLimiter
	if cfg.Redis.Addr != "" {
		client, err := ratelimit.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer client.Close()
		limiter = ratelimit.NewRedisLimiter(client, cfg.Login.MaxAttempts, cfg.Login.Window)
	} else {
		logger.Warn("REDIS_ADDR not set, login attempts are not rate limited")
	}

	sink, closeSink, err := newSink(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSink()
	dispatcher := notify.NewDispatcher(sink, cfg.Notify.QueueSize, logger)
	dispatcher.Start()

	// Services
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	userSvc := services.NewUserService(userRepo, spaceRepo, hasher, auth.NewJWTIssuer(cfg.JWTSecret), cfg.JWTExpiry, limiter, fileStore, dispatcher)
	reviewSvc := services.NewReviewService(userRepo, fileStore, dispatcher, logger)
	templateSvc := services.NewSpaceTemplateService(templateRepo)
	eventSvc := services.NewEventService(tx, eventRepo, spaceRepo, templateSvc, nil)
	bookingSvc := services.NewBookingService(tx, spaceRepo, eventRepo)

	// HTTP
	router := deliveryhttp.NewRouter(deliveryhttp.Controllers{
		Auth:   controllers.NewAuthController(logger, userSvc),
		Users:  controllers.NewUserController(logger, userSvc, reviewSvc),
		Events: controllers.NewEventController(logger, eventSvc),
		Spaces: controllers.NewSpaceController(logger, bookingSvc, userSvc, templateSvc),
		Admin:  controllers.NewAdminController(logger, userSvc, reviewSvc, bookingSvc, fileStore),
	}, auth.NewJWTVerifier(cfg.JWTSecret), logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           middleware.CORS(cfg.CORSOrigins, middleware.LoggingMiddleware(logger, router)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "err", err)
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Warn("notifications left undelivered", "err", err)
	}
	return nil
}

// newSink builds the notification sink named by NOTIFY_SINK. The returned
// func releases its resources.
func newSink(cfg *config.Config, logger *slog.Logger) (domain.NotificationSink, func(), error) {
	if cfg.Notify.Sink == "amqp" {
		pub, err := notify.NewPublisher(cfg.Notify.RabbitMQURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("notifications published to broker", "exchange", notify.ExchangeName)
		return pub, pub.Close, nil
	}
	emails, err := newEmailService(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return &notify.EmailSink{Emails: emails, AdminEmail: cfg.AdminEmail, FrontendURL: cfg.FrontendURL}, func() {}, nil
}

func newEmailService(cfg *config.Config, logger *slog.Logger) (domain.EmailService, error) {
	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:          cfg.Email.AWSRegion,
			AccessKeyID:     cfg.Email.AWSAccessKeyID,
			SecretAccessKey: cfg.Email.AWSSecretAccessKey,
		},
	}, logger)
	if err != nil {
		return nil, err
	}
	renderer, err := email.NewTemplateRenderer()
	if err != nil {
		return nil, err
	}
	return services.NewEmailService(mailer, renderer, logger), nil
}
