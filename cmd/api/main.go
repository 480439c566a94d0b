package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/qaboard/qa-service/internal/api/http"
	"github.com/qaboard/qa-service/internal/api/http/handlers"
	"github.com/qaboard/qa-service/internal/auth"
	"github.com/qaboard/qa-service/internal/censor"
	"github.com/qaboard/qa-service/internal/config"
	"github.com/qaboard/qa-service/internal/events"
	"github.com/qaboard/qa-service/internal/observability"
	"github.com/qaboard/qa-service/internal/persistence"
	"github.com/qaboard/qa-service/internal/repository"
	"github.com/qaboard/qa-service/internal/service"
	"github.com/qaboard/qa-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tokens, err := auth.NewTokenProvider(cfg.Auth)
	if err != nil {
		logger.Fatal("failed to init token provider", zap.Error(err))
	}

	deps := map[string]handlers.Pinger{}
	var (
		userRepo     repository.UserRepository
		questionRepo repository.QuestionRepository
	)
	switch cfg.Postgres.Backend {
	case config.BackendMemory:
		logger.Warn("using in-memory storage; data is lost on restart")
		store := repository.NewMemoryStore()
		userRepo, questionRepo = store.Users(), store.Questions()
	default:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()

		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		deps["postgres"] = pg
		userRepo = repository.NewUserRepository(pg.Pool)
		questionRepo = repository.NewQuestionRepository(pg.Pool)
	}

	var censorOpts []censor.Option
	if redis := persistence.NewRedis(ctx, cfg.Redis, logger); redis != nil {
		defer redis.Close()
		deps["redis"] = redis
		censorOpts = append(censorOpts, censor.WithCache(censor.NewRedisCache(redis.Client)))
	}

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo: userRepo,
		Tokens:   tokens,
		Logger:   logger,
	})
	questionService := service.NewQuestionService(service.QuestionDependencies{
		QuestionRepo: questionRepo,
		Censor:       censor.New(cfg.Censor, logger, censorOpts...),
		Dispatcher:   dispatcher,
		Logger:       logger,
	})

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
		ErrorHandler:          httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{
		Logger:  logger,
		Metrics: metrics,
		Timeout: cfg.App.RequestTimeout(),
		CORS:    cfg.CORS,
	})
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps),
		Users:          handlers.NewUsersHandler(authService),
		Questions:      handlers.NewQuestionsHandler(questionService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Metrics:        metrics,
	})

	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.App.Addr()),
			zap.String("signing_scheme", cfg.Auth.SigningScheme),
			zap.String("storage", cfg.Postgres.Backend))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
