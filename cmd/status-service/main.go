package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/statusplay/statusplay/internal/config"
	"github.com/statusplay/statusplay/internal/server/cache"
	"github.com/statusplay/statusplay/internal/server/events"
	statushandlers "github.com/statusplay/statusplay/internal/server/handlers/status"
	"github.com/statusplay/statusplay/internal/server/handlers/ws"
	"github.com/statusplay/statusplay/internal/server/media"
	"github.com/statusplay/statusplay/internal/server/middleware"
	"github.com/statusplay/statusplay/internal/server/ratelimit"
	"github.com/statusplay/statusplay/internal/server/storage"
	"github.com/statusplay/statusplay/internal/server/storage/memory"
	"github.com/statusplay/statusplay/internal/server/storage/postgres"
	"github.com/statusplay/statusplay/internal/server/sweeper"
	"github.com/statusplay/statusplay/internal/server/websocket"
	"github.com/statusplay/statusplay/internal/utils/jwt"
)

const sweepInterval = time.Minute

func main() {
	// load config
	cfg := config.MustLoad()

	// storage setup
	var store storage.Storage
	switch cfg.StorageDriver {
	case "memory":
		store = memory.New()
		slog.Info("Using in-memory storage")
	default:
		pg, err := postgres.NewPostgres(cfg)
		if err != nil {
			log.Fatal("Failed to initialize database:", err)
		}
		store = pg
		slog.Info("Connected to Postgres database")
	}

	// redis-backed cache and rate limits
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	slog.Info("Connected to Redis", slog.String("address", cfg.Redis.Address))

	store = cache.NewCacheService(store, redisClient)
	limiter := ratelimit.New(redisClient)

	// media storage is optional; text and location posts need none
	var mediaService *media.Service
	if cfg.MinIO.Endpoint != "" {
		svc, err := media.NewService(cfg)
		if err != nil {
			slog.Warn("Media storage unavailable, downloads disabled", slog.String("error", err.Error()))
		} else {
			mediaService = svc
			slog.Info("Connected to MinIO", slog.String("endpoint", cfg.MinIO.Endpoint))
		}
	}

	// keep the handler interface nil when no media backend is wired,
	// a typed nil pointer would defeat the handlers' nil checks
	var mediaStore statushandlers.MediaStore
	if mediaService != nil {
		mediaStore = mediaService
	}

	// realtime hub and event fan-out
	hub := websocket.NewHub()
	go hub.Run()
	publisher := events.NewEventPublisher(hub)

	// background sweep of expired posts
	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	defer cancelSweep()
	go sweeper.New(store, publisher, sweepInterval, slog.Default()).Start(sweepCtx)

	// routes
	auth := middleware.AuthMiddleware(cfg.JWTSecret)

	router := http.NewServeMux()
	router.Handle("GET /status/{id}", auth(statushandlers.StatusSet(store)))
	router.Handle("POST /posts/{id}/view", auth(statushandlers.RecordView(store, publisher)))
	router.Handle("POST /posts/{id}/like",
		auth(middleware.RateLimitedHandler(limiter, "like", statushandlers.ToggleLike(store, publisher))))
	router.Handle("POST /posts/{id}/comments",
		auth(middleware.RateLimitedHandler(limiter, "comment", statushandlers.AddComment(store, publisher))))
	router.Handle("POST /posts/{id}/reactions",
		auth(middleware.RateLimitedHandler(limiter, "like", statushandlers.AddReaction(store, publisher))))
	router.Handle("DELETE /posts/{id}", auth(statushandlers.DeletePost(store, publisher, mediaStore)))
	router.Handle("GET /posts/{id}/media", auth(statushandlers.MediaDownload(store, mediaStore)))
	router.HandleFunc("GET /ws", ws.Handler(hub, cfg.JWTSecret))

	if cfg.Env == "local" {
		token, err := jwt.GenerateToken("local-dev-user", cfg.JWTSecret, 24*time.Hour)
		if err == nil {
			slog.Info("Development token", slog.String("token", token))
		}
	}

	server := http.Server{
		Addr:    cfg.HTTPServer.Address,
		Handler: router,
	}

	log.Println("server started on", cfg.HTTPServer.Address)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %s", err)
		}
	}()

	<-done

	slog.Info("Shutting down server...")
	cancelSweep()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("failed to gracefully shutdown server", slog.String("error", err.Error()))
		return
	}

	slog.Info("Server stopped")
}
