// Package main is the entry point of the vocabulary service API server.
// It wires configuration, storage, the session store, and the HTTP routes,
// and runs the server with graceful shutdown.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/lexivault/vocab-web-app/api-service/internal/assistant"
	"github.com/lexivault/vocab-web-app/api-service/internal/auth"
	"github.com/lexivault/vocab-web-app/api-service/internal/config"
	"github.com/lexivault/vocab-web-app/api-service/internal/database/postgres"
	"github.com/lexivault/vocab-web-app/api-service/internal/handlers"
	"github.com/lexivault/vocab-web-app/api-service/internal/middleware"
	vocabredis "github.com/lexivault/vocab-web-app/api-service/internal/redis"
	"github.com/lexivault/vocab-web-app/api-service/internal/repository"
	"github.com/lexivault/vocab-web-app/api-service/internal/session"
	"github.com/lexivault/vocab-web-app/api-service/internal/startup"
	"github.com/lexivault/vocab-web-app/api-service/pkg/logger"
)

func main() {
	goEnv := os.Getenv("GO_ENV")
	if goEnv == "" || goEnv == "development" {
		if err := godotenv.Load(".env.local"); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env.local file: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log.WithFields(logrus.Fields{
		"port": cfg.Server.Port,
		"host": cfg.Server.Host,
		"tls":  cfg.IsTLSEnabled(),
	}).Info("Starting vocabulary service")

	deps := initializeServices(cfg, log)
	defer deps.close(log)

	seeder := startup.NewPromptSeeder(cfg, deps.prompts, log)
	if seedErr := seeder.Seed(context.Background()); seedErr != nil {
		log.WithError(seedErr).Error("Failed to seed prompt templates")
		// Lookups for unseeded actions will fail until an admin installs
		// templates, but the service itself is fine.
	}

	server := setupServer(cfg, deps, log)
	runServer(server, cfg, log)
}

// services holds the wired dependency graph.
type services struct {
	dbMgr    *postgres.Manager
	redis    *goredis.Client
	sessions session.Store
	janitor  *session.Janitor
	users    repository.UserRepository
	words    repository.VocabRepository
	prompts  repository.PromptRepository
	userSvc  auth.UserService
	aiSvc    *assistant.Service
}

func initializeServices(cfg *config.Config, log *logrus.Logger) *services {
	deps := &services{}

	dbMgr, err := postgres.NewManager(cfg, log)
	if err != nil {
		log.WithError(err).Error("Failed to initialize database manager")
		dbMgr = nil
	}
	deps.dbMgr = dbMgr

	if cfg.IsDatabaseConfigured() && dbMgr != nil {
		poolGetter := dbMgr.Pool
		deps.sessions = session.NewPostgresStore(poolGetter, cfg.Session.Window, log)
		deps.users = repository.NewPostgresUserRepository(poolGetter)
		deps.words = repository.NewPostgresVocabRepository(poolGetter)
		deps.prompts = repository.NewPostgresPromptRepository(poolGetter)
	} else {
		log.Warn("PostgreSQL not configured, using in-memory stores; data will not survive restarts")
		deps.sessions = session.NewMemoryStore(cfg.Session.Window, log)
		deps.users = repository.NewMemoryUserRepository()
		deps.words = repository.NewMemoryVocabRepository()
		deps.prompts = repository.NewMemoryPromptRepository()
	}

	deps.janitor = session.NewJanitor(deps.sessions, cfg.Session.CleanupInterval, log)
	deps.janitor.Start()

	redisClient, err := vocabredis.NewClient(&cfg.Redis, log)
	if err != nil {
		log.WithError(err).Warn("Failed to connect to Redis, rate limiting disabled")
		redisClient = nil
	}
	deps.redis = redisClient

	deps.userSvc = auth.NewUserService(cfg, deps.users, deps.sessions, log)
	deps.aiSvc = assistant.NewService(assistant.NewClient(&cfg.Assistant, log), deps.prompts, log)

	return deps
}

func (s *services) close(log *logrus.Logger) {
	s.janitor.Stop()
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.WithError(err).Error("Failed to close Redis connection")
		}
	}
	if s.dbMgr != nil {
		s.dbMgr.Close()
		log.Info("Database connections closed")
	}
}

func setupServer(cfg *config.Config, deps *services, log *logrus.Logger) *http.Server {
	healthHandler := handlers.NewHealthHandler(cfg, deps.dbMgr, deps.redis, log)
	metrics := healthHandler.Metrics()

	userAuthHandler := handlers.NewUserAuthHandler(deps.userSvc, metrics, log)
	vocabHandler := handlers.NewVocabHandler(deps.words, deps.users, deps.aiSvc, metrics, log)
	adminHandler := handlers.NewAdminHandler(deps.users, deps.prompts, deps.sessions, log)
	analyticsHandler := handlers.NewAnalyticsHandler(deps.sessions, metrics, log)

	middlewareStack := middleware.NewStack(cfg, deps.sessions, deps.redis, log)

	router := mux.NewRouter()

	// Health and metrics stay outside the API prefix and any auth.
	healthHandler.RegisterRoutes(router)

	apiV1 := router.PathPrefix("/api/v1").Subrouter()

	// Public endpoints: login, registration, and the analytics sink that
	// must accept events from already-dead sessions.
	userAuthHandler.RegisterPublicRoutes(apiV1)
	analyticsHandler.RegisterRoutes(apiV1)

	// Session-protected endpoints.
	protected := apiV1.NewRoute().Subrouter()
	protected.Use(middlewareStack.SessionAuth)
	userAuthHandler.RegisterProtectedRoutes(protected)
	vocabHandler.RegisterRoutes(protected)

	// Admin endpoints additionally require the admin flag.
	admin := protected.NewRoute().Subrouter()
	admin.Use(middlewareStack.AdminOnly)
	adminHandler.RegisterRoutes(admin)

	finalHandler := middlewareStack.Chain(
		router,
		middlewareStack.Recovery,
		middlewareStack.RequestLogger,
		middlewareStack.SecurityHeaders,
		middlewareStack.CORS,
		middlewareStack.RateLimit,
		middlewareStack.ContentType,
	)

	return &http.Server{
		Addr:         cfg.ServerAddr(),
		Handler:      finalHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

func runServer(server *http.Server, cfg *config.Config, log *logrus.Logger) {
	go startServer(server, cfg, log)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		log.WithError(shutdownErr).Error("Server forced to shutdown")
	} else {
		log.Info("Server exited gracefully")
	}
}

func startServer(server *http.Server, cfg *config.Config, log *logrus.Logger) {
	log.WithFields(logrus.Fields{
		"addr": server.Addr,
		"tls":  cfg.IsTLSEnabled(),
	}).Info("Starting HTTP server")

	var startErr error
	if cfg.IsTLSEnabled() {
		startErr = server.ListenAndServeTLS(cfg.Server.TLSCert, cfg.Server.TLSKey)
	} else {
		startErr = server.ListenAndServe()
	}

	if startErr != nil && startErr != http.ErrServerClosed {
		log.WithError(startErr).Fatal("Failed to start server")
	}
}
