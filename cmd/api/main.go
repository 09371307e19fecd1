package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/edulive/classroom-api/internal/config"
	"github.com/edulive/classroom-api/internal/database"
	"github.com/edulive/classroom-api/internal/handler"
	"github.com/edulive/classroom-api/internal/middleware"
	"github.com/edulive/classroom-api/internal/models"
	"github.com/edulive/classroom-api/internal/repository"
	"github.com/edulive/classroom-api/internal/router"
	"github.com/edulive/classroom-api/internal/service"
	"github.com/edulive/classroom-api/pkg/meeting"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Classroom{}, &models.Teacher{}, &models.Session{}, &models.Enrollment{}, &models.AuditEntry{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not configured, descriptor caching disabled")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	} else {
		logger.Warn().Msg("nats url not configured, audit fan-out disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	sessionRepo := repository.NewSessionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	gateway := meeting.NewGateway(buildProviders(cfg, logger), cfg.ProviderTimeout, logger)

	auditSink := service.NewAuditSink(auditRepo, natsConn, cfg.AuditSubject, cfg.AuditBufferSize, logger)
	sessionService := service.NewSessionService(sessionRepo, enrollmentRepo, classroomRepo,
		gateway, auditSink, redisClient, cfg.JoinWindowLead, cfg.DescriptorCacheTTL, validate, logger)

	sessionHandler := handler.NewSessionHandler(sessionService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSOrigins})
	router.Register(app, cfg, router.Dependencies{
		SessionHandler: sessionHandler,
		JWTMiddleware:  middleware.JWTProtected(cfg.JWTSecret),
	})

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	auditSink.Start(runCtx)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-runCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}

func buildProviders(cfg config.Config, logger zerolog.Logger) []meeting.Provider {
	providers := make([]meeting.Provider, 0, len(cfg.ProviderOrder))
	for _, name := range cfg.ProviderOrder {
		switch name {
		case "daily":
			providers = append(providers, meeting.NewDailyProvider(meeting.DailyConfig{
				APIKey:  cfg.DailyAPIKey,
				BaseURL: cfg.DailyBaseURL,
				Timeout: cfg.ProviderTimeout,
			}, logger))
		case "jitsi":
			providers = append(providers, meeting.NewJitsiProvider(cfg.JitsiBaseURL))
		default:
			logger.Warn().Str("provider", name).Msg("unknown meeting provider in ordering, skipping")
		}
	}
	return providers
}
