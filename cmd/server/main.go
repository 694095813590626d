package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tryonlab/api/docs"
	"github.com/tryonlab/api/internal/client"
	"github.com/tryonlab/api/internal/config"
	"github.com/tryonlab/api/internal/handler"
	"github.com/tryonlab/api/internal/logger"
	"github.com/tryonlab/api/internal/metrics"
	"github.com/tryonlab/api/internal/middleware"
	"github.com/tryonlab/api/internal/server"
	"github.com/tryonlab/api/internal/service"
	"github.com/tryonlab/api/internal/storage"
	ws "github.com/tryonlab/api/internal/websocket"
	"github.com/tryonlab/api/internal/worker"
)

// @title          Try-On API
// @version        1.0
// @description    Backend API for virtual try-on: 2D garment compositing and 3D body reconstruction.
// @host           localhost:3000
// @BasePath       /
// @schemes        http https
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log := logger.New("production", "info")
		log.Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.New(cfg.Server.Env, cfg.Server.LogLevel)

	// Configure Swagger host/scheme based on environment
	if cfg.Server.ApiDomain != "" {
		docs.SwaggerInfo.Host = cfg.Server.ApiDomain
		docs.SwaggerInfo.Schemes = []string{"https"}
	} else {
		docs.SwaggerInfo.Host = "localhost:" + cfg.Server.Port
		docs.SwaggerInfo.Schemes = []string{"http"}
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis not available")
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	collector := metrics.NewCollector("tryon")

	// Initialize WebSocket hub
	hub := ws.NewHub(log)
	go hub.Run(ctx)

	// Local storage roots
	scratch, err := storage.NewFileStore(cfg.Storage.UploadDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to prepare upload dir")
	}
	models, err := storage.NewFileStore(cfg.Storage.ModelsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to prepare models dir")
	}

	// Initialize external clients
	replicateClient := client.NewReplicateClient(&cfg.Replicate, collector, log)
	if !replicateClient.IsConfigured() {
		log.Warn().Msg("REPLICATE_API_TOKEN not set, 2D try-on will answer 503")
	}
	pifuhdRunner := client.NewPIFuHDRunner(&cfg.PIFuHD, log)

	// Mesh publishing: R2 when configured, otherwise the static models route
	var publisher service.Publisher = service.NewLocalPublisher(cfg.Storage.ModelsBasePath)
	r2Enabled := false
	if client.R2Configured(&cfg.R2) {
		r2Client, err := client.NewR2Client(&cfg.R2)
		if err != nil {
			log.Warn().Err(err).Msg("R2 client not initialized, serving meshes locally")
		} else {
			publisher = service.NewObjectPublisher(r2Client)
			r2Enabled = true
		}
	} else {
		log.Info().Msg("R2 storage not configured, serving meshes locally")
	}

	// Initialize services
	var cleanup service.CleanupScheduler
	if scheduler := service.NewAsynqCleanupScheduler(asynqClient, cfg.Cleanup.UploadRetention); scheduler != nil {
		cleanup = scheduler
	}
	uploadService := service.NewUploadService(scratch)
	tryOnService := service.NewTryOnService(
		uploadService,
		service.NewRemoteExecutor(replicateClient, cfg.Replicate, log),
		service.NewLocalExecutor(pifuhdRunner, models, publisher, collector, log),
		cleanup,
		hub,
		collector,
		log,
	)
	historyService := service.NewHistoryService(redisClient, cfg.History, log)

	// Initialize handlers
	opts := handler.Options{
		RequestTimeout:    cfg.Server.RequestTimeout,
		ExposeDiagnostics: cfg.Server.ExposeDiagnostics,
	}
	app := server.New(cfg, server.Deps{
		TryOn:       handler.NewTryOnHandler(tryOnService, validate, opts),
		Reconstruct: handler.NewReconstructHandler(tryOnService, validate, opts),
		History:     handler.NewHistoryHandler(historyService, validate),
		Health: handler.NewHealthHandler(map[string]bool{
			"replicate": replicateClient.IsConfigured(),
			"r2":        r2Enabled,
			"cleanup":   cleanup != nil,
		}),
		RateLimiter: middleware.NewRateLimiter(redisClient, log),
		Hub:         hub,
		Metrics:     collector,
		Logger:      log,
	})

	// Start Asynq worker server
	workerSrv := newWorkerServer(cfg, redisOpt, log)
	go func() {
		mux := asynq.NewServeMux()
		mux.HandleFunc(service.TaskTypeCleanup, worker.NewCleanupWorker(scratch, log).ProcessTask)
		if err := workerSrv.Run(mux); err != nil {
			log.Error().Err(err).Msg("asynq worker error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info().Msg("shutting down server")
		stop()
		workerSrv.Shutdown()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Info().Str("addr", addr).Str("env", cfg.Server.Env).Msg("server starting")
	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func newWorkerServer(cfg *config.Config, redisOpt asynq.RedisClientOpt, log zerolog.Logger) *asynq.Server {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	return asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 2,
		Queues: map[string]int{
			service.QueueCleanup: 1,
		},
		LogLevel: asynqLogLevel,
		Logger:   logger.NewAsynqAdapter(log),
	})
}
