package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/seriouslysahid/CodeRed-sub001/internal/app"
	"github.com/seriouslysahid/CodeRed-sub001/internal/cache"
	"github.com/seriouslysahid/CodeRed-sub001/internal/clock"
	"github.com/seriouslysahid/CodeRed-sub001/internal/config"
	"github.com/seriouslysahid/CodeRed-sub001/internal/logging"
	"github.com/seriouslysahid/CodeRed-sub001/internal/observability"
	"github.com/seriouslysahid/CodeRed-sub001/internal/repository"
	"github.com/seriouslysahid/CodeRed-sub001/internal/service"
	"github.com/seriouslysahid/CodeRed-sub001/internal/transport/rest"
	"github.com/seriouslysahid/CodeRed-sub001/internal/transport/rest/middleware"
	"github.com/seriouslysahid/CodeRed-sub001/internal/transport/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	log := logging.New(cfg.LogLevel, cfg.IsProduction())
	log.WithFields(logrus.Fields{
		"env":       cfg.Env,
		"test_mode": cfg.TestMode,
	}).Info("started")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// AI generator settings
	gen := service.NewGenerator(cfg.AI, cfg.TestMode)
	if gen == nil {
		log.Warn("No generator API key set, every message will use the fallback")
	} else {
		log.WithFields(logrus.Fields{
			"generator": gen.Name(),
			"timeout":   cfg.AI.Timeout().String(),
			"max_rps":   cfg.AI.MaxRPS,
		}).Info("Message generator configured")
	}

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(context.Background())

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.WithError(err).Fatal("Failed to ping MongoDB")
	}
	log.Info("Connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDatabase)

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.WithError(err).Fatal("Failed to ping Redis")
	}
	log.Info("Connected to Redis")

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	// Core scoring and resilience components
	clk := clock.Real{}
	core, err := app.NewCore(cfg, gen, clk, metrics, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to build core")
	}

	go func() {
		if err := config.WatchWeights(ctx, core.Weights, logging.Component(log, "weights")); err != nil {
			log.WithError(err).Warn("Risk weights watcher stopped")
		}
	}()

	// Repositories
	learnerRepo := repository.NewLearnerRepo(db)
	outcomeRepo, closeOutcomes := openOutcomeRepo(cfg, db, log)
	defer closeOutcomes.Close()

	// Caches
	riskBoard := cache.NewRiskBoardCache(rdb)
	var admitter middleware.Admitter = core.Admission
	if cfg.RateLimit.Backend == "redis" && !cfg.TestMode {
		admitter = cache.NewAdmissionCache(rdb, cfg.RateLimit.PerWindow, cfg.RateLimit.Window, clk)
		log.Info("Using Redis admission counter")
	} else {
		log.WithFields(logrus.Fields{
			"limit":  core.Admission.Max(),
			"window": cfg.RateLimit.Window,
		}).Info("Using in-process admission counter")
	}

	// WebSocket hub
	wsHub := ws.NewHub(logging.Component(log, "ws"))
	defer wsHub.Close()
	log.Info("WebSocket hub started")

	// Services
	authSvc := service.NewAuthService(cfg.Auth)
	riskSvc := service.NewRiskService(core.Engine, learnerRepo, riskBoard, logging.Component(log, "risk"))
	riskSvc.SetMetrics(metrics)
	// Inject broadcaster (wsHub implements service.Broadcaster)
	riskSvc.SetBroadcaster(wsHub)
	messageSvc := service.NewMessageService(learnerRepo, core.Generation, outcomeRepo, logging.Component(log, "messages"))

	container := &rest.Container{
		Core:           core,
		AuthService:    authSvc,
		RiskService:    riskSvc,
		MessageService: messageSvc,
		Admitter:       admitter,
		Gatherer:       registry,
		WSHub:          wsHub,
		Log:            log,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           rest.NewRouter(container),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("ListenAndServe")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	log.Info("Server exited")
}

// openOutcomeRepo picks the audit store. The returned closer is a no-op for
// Mongo since the client is closed separately.
func openOutcomeRepo(cfg *config.Config, db *mongo.Database, log logrus.FieldLogger) (repository.OutcomeRepo, io.Closer) {
	if cfg.Audit.Store == "sqlite" {
		repo, err := repository.OpenSQLiteOutcomeRepo(cfg.Audit.SQLitePath)
		if err != nil {
			log.WithError(err).Fatal("Failed to open SQLite outcome store")
		}
		log.WithField("path", cfg.Audit.SQLitePath).Info("Recording generation outcomes to SQLite")
		return repo, repo
	}
	return repository.NewOutcomeRepo(db), io.NopCloser(nil)
}
