package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/senatai/backend/internal/api/handlers"
	"github.com/senatai/backend/internal/cache/redis"
	"github.com/senatai/backend/internal/evaluation"
	"github.com/senatai/backend/internal/extraction"
	"github.com/senatai/backend/internal/ingestion"
	"github.com/senatai/backend/internal/matcher"
	"github.com/senatai/backend/internal/metrics"
	"github.com/senatai/backend/internal/middleware/ratelimit"
	"github.com/senatai/backend/internal/middleware/security"
	"github.com/senatai/backend/internal/middleware/validation"
	"github.com/senatai/backend/internal/predictor"
	"github.com/senatai/backend/internal/rewards"
	"github.com/senatai/backend/internal/storage/sqlite"
	"github.com/senatai/backend/internal/survey"
	"github.com/senatai/backend/internal/textproc"
	"github.com/senatai/backend/pkg/config"
	appLogger "github.com/senatai/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Senatai API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	// Redis is an optimization; matching works uncached without it.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, match caching disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	normalizer := textproc.NewNormalizer()

	engine := extraction.NewEngine(sqliteClient, normalizer, extraction.Options{
		MinTextLength:         cfg.Extraction.MinTextLength,
		MaxBodySample:         cfg.Extraction.MaxBodySample,
		MaxNouns:              cfg.Extraction.MaxNouns,
		MaxAdjectives:         cfg.Extraction.MaxAdjectives,
		MaxEntities:           cfg.Extraction.MaxEntities,
		MinFrequency:          cfg.Extraction.MinFrequency,
		MaxNounFrequency:      cfg.Extraction.MaxNounFrequency,
		MaxAdjectiveFrequency: cfg.Extraction.MaxAdjectiveFrequency,
		Scheme:                cfg.Extraction.Scheme,
		NounDivisor:           cfg.Extraction.NounDivisor,
		AdjectiveDivisor:      cfg.Extraction.AdjectiveDivisor,
		EntityRelevance:       cfg.Extraction.EntityRelevance,
	})

	matchEngine := matcher.NewMatcher(sqliteClient, normalizer, redisClient, matcher.Options{
		DefaultLimit: cfg.Matching.DefaultLimit,
		CacheTTL:     time.Duration(cfg.Matching.CacheTTLSec) * time.Second,
	})

	stancePredictor := predictor.NewPredictor(sqliteClient, predictor.Options{
		MinOverlap: cfg.Prediction.MinOverlap,
		Weighting:  cfg.Prediction.Weighting,
	})

	scheduler := rewards.NewScheduler(sqliteClient, rewards.Options{
		FullRewardCount: cfg.Rewards.FullRewardCount,
		DecayUntilCount: cfg.Rewards.DecayUntilCount,
		FullAmount:      cfg.Rewards.FullAmount,
		FloorAmount:     cfg.Rewards.FloorAmount,
		MinimalAmount:   cfg.Rewards.MinimalAmount,
		InitialPolicap:  cfg.Rewards.InitialPolicap,
	})

	auditor := evaluation.NewAuditor(sqliteClient)
	generator := survey.NewGenerator(time.Now().UnixNano())
	processor := ingestion.NewProcessor(sqliteClient, engine, redisClient)

	// Documents that arrived before the tagger could process them get
	// their keywords extracted in the background.
	batchCtx, cancelBatch := context.WithCancel(context.Background())
	defer cancelBatch()
	go engine.RunBatch(batchCtx, cfg.Extraction.BatchSize, time.Duration(cfg.Extraction.IdleWaitSec)*time.Second)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Senatair-ID",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))

	limiter := ratelimit.New(ratelimit.Config{Logger: appLogger.Log})
	defer limiter.Stop()
	app.Use(limiter.Middleware())
	app.Use(validation.Middleware(validation.Config{Logger: appLogger.Log}))

	documentHandler := handlers.NewDocumentHandler(processor, sqliteClient)
	matchHandler := handlers.NewMatchHandler(matchEngine, sqliteClient)
	responseHandler := handlers.NewResponseHandler(scheduler)
	predictHandler := handlers.NewPredictHandler(stancePredictor, auditor)
	surveyHandler := handlers.NewSurveyHandler(matchEngine, generator, scheduler, sqliteClient)

	api := app.Group("/api/v1")

	api.Post("/documents", documentHandler.IngestDocument)
	api.Get("/documents/recent", documentHandler.ListRecent)

	api.Post("/match", matchHandler.HandleMatch)
	api.Post("/responses", responseHandler.SubmitResponse)

	api.Post("/predictions", predictHandler.HandlePredict)
	api.Post("/predictions/:id/feedback", predictHandler.HandleFeedback)
	api.Get("/predictions/report", predictHandler.HandleReport)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/survey", websocket.New(surveyHandler.HandleConnection))

	app.Get("/metrics", metrics.MetricsHandler())

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	cancelBatch()
	app.Shutdown()
	appLogger.Info("Server stopped")
}
