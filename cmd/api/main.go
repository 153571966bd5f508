package main

import (
	"context"
	"log"
	"time"

	"sentinal-safety/config"
	"sentinal-safety/internal/eligibility"
	"sentinal-safety/internal/handler"
	"sentinal-safety/internal/metrics"
	"sentinal-safety/internal/ratelimit"
	"sentinal-safety/internal/redis"
	"sentinal-safety/internal/repository"
	"sentinal-safety/internal/repository/memory"
	"sentinal-safety/internal/server"
	"sentinal-safety/internal/services"
	"sentinal-safety/internal/storage"
	"sentinal-safety/internal/websocket"
	"sentinal-safety/pkg/database"
	"sentinal-safety/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()

	l := logger.New(cfg.LogMode)
	logger.SetGlobalLogger(l)
	defer l.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New(prometheus.DefaultRegisterer)

	var (
		store  repository.Store
		gate   services.ContextEligibilityGate
		health func(context.Context) error
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		l.Warnf("Using the in-memory store; data is lost on restart")
		store = memory.NewStore()
		gate = eligibility.Permissive()
	default:
		db, err := database.Connect(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()
		store = repository.NewPostgresStore(db)
		gate = eligibility.NewGormRouter(db)
		health = database.HealthCheck
	}

	rateConfig := ratelimit.Config{
		MessageLimit:  cfg.RateLimit.MessagesPerMinute,
		MessageWindow: time.Minute,
		ReportLimit:   cfg.RateLimit.ReportsPerHour,
		ReportWindow:  time.Hour,
	}
	var limiter ratelimit.Limiter

	hub := websocket.NewHub()
	var (
		delivery services.PresenceDelivery = hub
		events   services.EventPublisher
		presence websocket.Presence
	)
	redisClient := redis.NewClient(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redis.Ping(ctx, redisClient, 3*time.Second); err != nil {
		l.Warnf("Redis unavailable, falling back to single-node delivery and in-process rate limits: %v", err)
		_ = redisClient.Close()
		local := ratelimit.NewLocal(rateConfig)
		go local.RunPruner(ctx, 10*time.Minute, 2*time.Hour)
		limiter = local
	} else {
		defer redisClient.Close()
		publisher := redis.NewPublisher(redisClient)
		presenceStore := redis.NewPresenceStore(redisClient, 2*time.Minute)
		presence = presenceStore
		delivery = redis.NewDelivery(publisher, presenceStore)
		events = redis.NewEventPublisher(publisher)
		limiter = redis.NewRateLimiter(redisClient, rateConfig)

		bridge := websocket.NewRedisBridge(redis.NewSubscriber(redisClient), hub)
		go func() {
			if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
				l.WithContext(ctx).Error("redis bridge stopped", zap.Error(err))
			}
		}()
	}

	var presigner services.ObjectPresigner
	if cfg.S3.Bucket != "" {
		s3Client, err := storage.NewClient(ctx, storage.S3Config{
			Region:     cfg.S3.Region,
			Bucket:     cfg.S3.Bucket,
			AccessKey:  cfg.S3.AccessKey,
			SecretKey:  cfg.S3.SecretKey,
			Endpoint:   cfg.S3.Endpoint,
			PresignTTL: cfg.S3.PresignTTL,
		})
		if err != nil {
			log.Fatalf("Failed to configure S3: %v", err)
		}
		presigner = s3Client
	}

	authService := services.NewAuthService(cfg.JWTSecret, cfg.JWTIssuer)
	messageService := services.NewMessageService(store, delivery, cfg.Moderation, m)
	conversationService := services.NewConversationService(store, gate, messageService, m)
	blockService := services.NewBlockService(store)
	moderationService := services.NewModerationService(store, events, cfg.Moderation, m)
	reportService := services.NewReportService(store, messageService, moderationService, events, cfg.Moderation, m)
	evidenceService := services.NewEvidenceService(presigner)

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Conversation: handler.NewConversationHandler(conversationService),
		Message:      handler.NewMessageHandler(messageService),
		Block:        handler.NewBlockHandler(blockService),
		Report:       handler.NewReportHandler(reportService, evidenceService, cfg.Moderation.ReviewContextMessages),
		Moderation:   handler.NewModerationHandler(moderationService),
		WebSocket:    websocket.NewHandler(authService, hub, presence),
	}, server.Deps{
		Auth:     authService,
		Limiter:  limiter,
		Metrics:  m,
		Gatherer: prometheus.DefaultGatherer,
		Health:   health,
	})

	if err := srv.Start(); err != nil {
		log.Fatalf("Server stopped with error: %v", err)
	}
}
