package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ugcstudio/api/internal/auth"
	"github.com/ugcstudio/api/internal/client"
	"github.com/ugcstudio/api/internal/config"
	"github.com/ugcstudio/api/internal/handler"
	"github.com/ugcstudio/api/internal/limiter"
	"github.com/ugcstudio/api/internal/logger"
	"github.com/ugcstudio/api/internal/middleware"
	"github.com/ugcstudio/api/internal/service"
	ws "github.com/ugcstudio/api/internal/websocket"
	"github.com/ugcstudio/api/pkg/response"
)

// @title          UGC Studio API
// @version        1.0
// @description    Password-gated proxy for UGC ad video generation.
// @host           localhost:8000
// @BasePath       /
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Window store: Redis when enabled, process memory otherwise
	var windows limiter.WindowStore
	var redisClient *redis.Client
	sweeper := cron.New()
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("Redis not available", zap.Error(err))
		}
		defer redisClient.Close()
		windows = limiter.NewRedisStore(redisClient)
	} else {
		mem := limiter.NewMemoryStore()
		if _, err := mem.ScheduleSweep(sweeper, "@every 1m", nil, func(n int) {
			log.Debug("swept expired rate limit windows", zap.Int("count", n))
		}); err != nil {
			log.Fatal("failed to schedule sweeper", zap.Error(err))
		}
		windows = mem
	}
	sweeper.Start()
	defer sweeper.Stop()

	rateLimit := limiter.New(windows, "ugc", cfg.RateLimit.RequestsPerMin, time.Minute, nil)
	quota := limiter.New(windows, "quota", cfg.RateLimit.QuotaPerDay, 24*time.Hour, nil)

	gate := auth.NewGate(cfg.Access.Passwords, cfg.Access.AdminPasswords)
	if !gate.Enabled() {
		log.Warn("no ACCESS_PASSWORDS configured, every password will be rejected")
	}

	// Initialize validator
	validate := handler.NewValidator()

	// Initialize WebSocket hub
	hub := ws.NewHub(log)
	go hub.Run(ctx)

	// Initialize external clients
	webhook := client.NewWebhookClient(&cfg.Webhook, cfg.WebhookTimeout(), log)
	if !webhook.Configured() {
		log.Warn("N8N_WEBHOOK_URL not configured, job actions will fail")
	}

	// Initialize services
	ugcService := service.NewUGCService(service.UGCServiceOptions{
		Runner:    webhook,
		Gate:      gate,
		Quota:     quota,
		Publisher: hub,
		JWTSecret: cfg.JWT.Secret,
		TokenTTL:  time.Duration(cfg.JWT.Expiration) * time.Hour,
		Log:       log.Named("ugc"),
	})

	// Initialize handlers
	ugcHandler := handler.NewUGCHandler(ugcService, validate, log)
	insightHandler := handler.NewInsightHandler(validate)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(rateLimit, log)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    1 * 1024 * 1024,
	})

	// Global middleware
	app.Use(recover.New())
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${reqHeaders}\n"
	}
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"webhook": webhook.Configured(),
				"redis":   redisClient != nil,
				"auth":    gate.Enabled(),
			},
		})
	})

	// API routes
	api := app.Group("/api")
	api.Post("/ugc", rateLimiter.PerIP(), authMiddleware.Session(), ugcHandler.Handle)
	api.Post("/score", insightHandler.Score)
	api.Post("/progress", insightHandler.Progress)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("Shutting down server...")
		cancel()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("Server shutdown error", zap.Error(err))
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Info("Server starting", zap.String("addr", addr), zap.String("env", cfg.Server.Env))
	if err := app.Listen(addr); err != nil {
		log.Fatal("Server error", zap.Error(err))
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	if code == fiber.StatusNotFound {
		return response.NotFound(c, message)
	}
	return response.Error(c, code, response.CodeServiceError, message, nil)
}
