package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bms/configs"
	v1 "bms/internal/api/v1"
	"bms/internal/api/v1/handlers"
	"bms/internal/calendar"
	"bms/internal/config"
	"bms/internal/invite"
	"bms/internal/metrics"
	"bms/internal/middleware"
	"bms/internal/repository"
	"bms/internal/service"
	myws "bms/internal/websocket"
	"bms/pkg/database"
	"bms/pkg/logger"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	// Load config
	cfg := configs.LoadConfig()

	// Inisialisasi logger
	logger.InitLoggers(cfg.LogDir)
	defer logger.SyncLoggers()
	logger.SystemLogger.Info("Starting application", zap.String("time", time.Now().Format(time.RFC3339)))

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Mode,
			AttachStacktrace: true,
		}); err != nil {
			logger.ErrorLogger.Error("Sentry init failed", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx := context.Background()

	// Inisialisasi database
	deps := &config.Dependencies{DB: database.ConnectDB(cfg)}
	defer deps.Close()
	logger.SystemLogger.Info("Database Connected")

	// Buat tabel jika belum ada
	if err := repository.CreateTableIfNotExists(ctx, deps.DB); err != nil {
		logger.ErrorLogger.Fatal("Error creating tables", zap.Error(err))
	}
	// Admin awal dari env
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		created, err := repository.CreateAdminUser(ctx, deps.DB, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			logger.ErrorLogger.Fatal("Error creating admin user", zap.Error(err))
		}
		if created {
			logger.AuditLogger.Info("Admin user created", zap.String("email", cfg.AdminEmail))
		}
	}

	deps.Redis = database.ConnectRedis(cfg)

	// ----- Repository & service ----- //
	users := repository.NewUserRepository(deps.DB)
	teams := repository.NewTeamRepository(deps.DB)
	tasks := repository.NewTaskRepository(deps.DB)
	meetings := repository.NewMeetingRepository(deps.DB)
	taskCache := repository.NewTaskCache(deps.Redis, cfg.TaskCacheTTL)

	hub := myws.NewHub()
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go hub.Run(hubCtx)

	h := &handlers.Handler{
		Auth:     service.NewAuthService(users, []byte(cfg.SecretKey), cfg.JWTLifetime),
		Teams:    service.NewTeamService(teams, users, invite.NewGenerator(teams)),
		Tasks:    service.NewTaskService(tasks, users, taskCache),
		Meetings: service.NewMeetingService(meetings, hub),
		Profile:  service.NewProfileService(users, teams, tasks),
		Calendar: calendar.NewAggregator(repository.CalendarSource{Tasks: tasks, Meetings: meetings}),
	}

	metrics.Register(prometheus.DefaultRegisterer)

	app := fiber.New(fiber.Config{
		AppName:      "bms",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})

	// Middleware
	app.Use(middleware.RequestID())
	app.Use(middleware.ErrorHandler())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.RateLimiter(cfg.RateLimitMax, time.Minute, middleware.NewRedisStorage(deps.Redis)))

	// Daftarkan route API v1
	v1.RegisterRoutes(app, h, middleware.UseToken([]byte(cfg.SecretKey), users), hub)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.SystemLogger.Info("Shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.ErrorLogger.Error("Shutdown failed", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.SystemLogger.Info("Application ready", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		logger.ErrorLogger.Error("Application failed to start", zap.Error(err))
	}
}
