package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/cinerec/cinerec/internal/catalog"
	"github.com/cinerec/cinerec/internal/config"
	"github.com/cinerec/cinerec/internal/engine"
	"github.com/cinerec/cinerec/internal/factors"
	"github.com/cinerec/cinerec/internal/handlers"
	"github.com/cinerec/cinerec/internal/ledger"
	"github.com/cinerec/cinerec/internal/messaging"
	"github.com/cinerec/cinerec/internal/middleware"
	"github.com/cinerec/cinerec/internal/services"
	"github.com/cinerec/cinerec/internal/trainer"
)

type App struct {
	config      *config.Config
	logger      *logrus.Logger
	store       *factors.Store
	ledger      ledger.Store
	cache       *redis.Client
	bus         *messaging.MessageBus
	coordinator *trainer.Coordinator
	handlers    *handlers.Handlers
	router      *gin.Engine

	cancelBackground context.CancelFunc
}

func New(cfg *config.Config) (*App, error) {
	app := &App{
		config: cfg,
		logger: setupLogger(cfg),
	}

	// Rating ledger: Postgres when configured, in-memory otherwise.
	if cfg.Database.URL != "" {
		pg, err := ledger.NewPostgres(&cfg.Database, app.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize rating ledger: %w", err)
		}
		app.ledger = pg
	} else {
		app.logger.Warn("No database configured, using in-memory rating ledger")
		app.ledger = ledger.NewMemory()
	}

	// Result cache is optional.
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis config: %w", err)
		}
		opts.MaxRetries = cfg.Redis.MaxRetries
		opts.PoolSize = cfg.Redis.PoolSize
		app.cache = redis.NewClient(opts)
	}

	movies, err := catalog.Load(cfg.Model.CatalogPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			app.logger.WithField("path", cfg.Model.CatalogPath).Warn("Movie catalog not found, titles will be synthesized")
			movies = catalog.Empty()
		} else {
			return nil, fmt.Errorf("failed to load movie catalog: %w", err)
		}
	}

	// Missing artifact is not fatal: the service starts in a not-ready
	// state and the first retrain (or a later deploy of the artifact plus
	// restart) brings it up.
	app.store = factors.NewStore()
	if m, err := factors.LoadArtifact(cfg.Model.ArtifactPath); err != nil {
		app.logger.WithError(err).WithField("path", cfg.Model.ArtifactPath).
			Warn("No model artifact loaded, serving endpoints will answer 503 until one is trained")
	} else {
		app.store.Swap(m)
		app.logger.WithFields(logrus.Fields{
			"version": m.Meta().Version,
			"users":   m.NumUsers(),
			"items":   m.NumItems(),
		}).Info("Model artifact loaded")
	}

	bus, err := messaging.NewMessageBus(&cfg.Kafka, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize message bus: %w", err)
	}
	app.bus = bus

	eng := engine.New(app.store, app.ledger, movies, &cfg.Recommend, app.cache, app.logger)
	app.coordinator = trainer.NewCoordinator(app.store, app.ledger, &cfg.Retrain, &cfg.Model, app.logger)
	health := services.NewHealthService(app.store, app.ledger, app.cache, app.logger)

	app.handlers = handlers.New(eng, app.ledger, movies, app.coordinator, health, bus, cfg, app.logger)
	app.setupRouter()

	bgCtx, cancel := context.WithCancel(context.Background())
	app.cancelBackground = cancel
	app.coordinator.StartPeriodic(bgCtx, cfg.Retrain.CheckInterval)

	return app, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	if a.cancelBackground != nil {
		a.cancelBackground()
	}
	if err := a.bus.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing message bus")
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.WithError(err).Error("Error closing redis client")
		}
	}
	a.ledger.Close()

	return nil
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func (a *App) setupRouter() {
	if a.config.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.CORS(a.config))

	router.GET("/health", a.handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/predict", a.handlers.Predict)

	recommendations := router.Group("/recommendations")
	{
		recommendations.POST("", a.handlers.Recommend)
		recommendations.POST("/new-user", a.handlers.RecommendNewUser)
		recommendations.POST("/genre", a.handlers.RecommendByGenre)
	}

	router.POST("/similar-movies", a.handlers.SimilarMovies)
	router.POST("/movies/popular", a.handlers.PopularMovies)

	ratings := router.Group("/ratings")
	{
		ratings.POST("", a.handlers.SubmitRating)
		ratings.GET("/:userId", a.handlers.RatingHistory)
		ratings.DELETE("/:userId/:movieId", a.handlers.RemoveRating)
	}

	router.POST("/retrain", a.handlers.Retrain)

	a.router = router
}
