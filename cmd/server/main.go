package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HammerMeetNail/solutionbase/internal/config"
	"github.com/HammerMeetNail/solutionbase/internal/database"
	"github.com/HammerMeetNail/solutionbase/internal/handlers"
	"github.com/HammerMeetNail/solutionbase/internal/logging"
	"github.com/HammerMeetNail/solutionbase/internal/mcp"
	"github.com/HammerMeetNail/solutionbase/internal/metrics"
	"github.com/HammerMeetNail/solutionbase/internal/middleware"
	"github.com/HammerMeetNail/solutionbase/internal/services"
	"github.com/HammerMeetNail/solutionbase/internal/services/ai"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	logger := logging.New()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Server.Debug {
		logger.SetLevel(logging.LevelDebug)
		logging.SetDefaultLevel(logging.LevelDebug)
		logger.Debug("Debug logging enabled", map[string]interface{}{"env": cfg.Server.Environment})
	}

	logger.Info("Starting solutionbase server...", map[string]interface{}{"version": version})

	logger.Info("Connecting to PostgreSQL", map[string]interface{}{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDB(cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()

	logger.Info("Running database migrations...", map[string]interface{}{"path": cfg.Server.MigrationsPath})
	migrator, err := database.NewMigrator(cfg.Database.DSN(), cfg.Server.MigrationsPath)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		return fmt.Errorf("running migrations: %w", err)
	}
	_ = migrator.Close()
	logger.Info("Migrations completed")

	logger.Info("Connecting to Redis", map[string]interface{}{"addr": cfg.Redis.Addr()})
	redisDB, err := database.NewRedisDB(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisDB.Close() }()

	// Services
	dbAdapter := services.NewPoolAdapter(db.Pool)
	redisAdapter := services.NewRedisAdapter(redisDB.Client)

	userService := services.NewUserService(dbAdapter)
	authService := services.NewAuthService(dbAdapter, redisAdapter)
	tokenService := services.NewAccessTokenService(dbAdapter, cfg.MCP.DefaultTokenTTL)
	solutionService := services.NewSolutionService(dbAdapter, services.NewMarkdownRenderer(), ai.NewSummarizer(cfg))
	versionService := services.NewVersionService(dbAdapter)

	m := metrics.New(version)

	mcpServer, err := mcp.NewServer(mcp.Config{
		Solutions:     solutionService,
		Authenticator: tokenService,
		Metrics:       m,
		Version:       version,
	})
	if err != nil {
		return fmt.Errorf("creating mcp server: %w", err)
	}
	logger.Info("MCP endpoint ready", map[string]interface{}{
		"endpoint": cfg.Server.MCPEndpoint(),
		"methods":  len(mcpServer.Registry().Catalogue()),
	})

	// Handlers
	healthHandler := handlers.NewHealthHandler(version,
		handlers.HealthCheck{Name: "postgres", Checker: db},
		handlers.HealthCheck{Name: "redis", Checker: redisDB},
	)
	authHandler := handlers.NewAuthHandler(userService, authService, cfg.Server.Secure)
	tokenHandler := handlers.NewAccessTokenHandler(tokenService, cfg.Server.MCPEndpoint())
	versionHandler := handlers.NewVersionHandler(solutionService, versionService)

	// Middleware
	counterStore := middleware.NewRedisCounterStore(redisDB.Client)
	authMiddleware := middleware.NewAuthMiddleware(authService)
	csrfMiddleware := middleware.NewCSRFMiddleware(cfg.Server.Secure, "/api/mcp")
	securityHeaders := middleware.NewSecurityHeaders(cfg.Server.Secure)
	compress := middleware.NewCompress("/metrics")
	requestLogger := middleware.NewRequestLogger(logger)
	authLimiter := middleware.NewAuthRateLimiter(counterStore)
	mcpLimiter := middleware.NewMCPRateLimiter(counterStore, cfg.MCP.RateLimit, mcp.WriteRejection)

	requireAuth := authMiddleware.RequireAuth

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /ready", healthHandler.Ready)
	mux.HandleFunc("GET /live", healthHandler.Live)
	mux.Handle("GET /metrics", m.Handler())

	// The JSON-RPC server answers every verb itself so that unsupported
	// ones get a JSON-RPC 405 body.
	mcpHandler := mcpLimiter.Middleware(mcpServer)
	mux.Handle("/api/mcp", mcpHandler)
	mux.Handle("/api/mcp/", mcpHandler)

	mux.HandleFunc("GET /api/csrf", csrfMiddleware.GetToken)

	mux.Handle("POST /api/auth/register", authLimiter.Middleware(http.HandlerFunc(authHandler.Register)))
	mux.Handle("POST /api/auth/login", authLimiter.Middleware(http.HandlerFunc(authHandler.Login)))
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.Handle("GET /api/auth/me", requireAuth(http.HandlerFunc(authHandler.Me)))

	mux.Handle("GET /api/tokens", requireAuth(http.HandlerFunc(tokenHandler.List)))
	mux.Handle("POST /api/tokens", requireAuth(http.HandlerFunc(tokenHandler.Create)))
	mux.Handle("DELETE /api/tokens/{id}", requireAuth(http.HandlerFunc(tokenHandler.Revoke)))

	mux.HandleFunc("GET /api/solutions/{slug}/versions", versionHandler.List)
	mux.HandleFunc("GET /api/solutions/{slug}/versions/{number}", versionHandler.Get)

	// Instrument sits directly on the mux so it can read the matched pattern.
	var handler http.Handler = m.Instrument(mux)
	handler = authMiddleware.Authenticate(handler)
	handler = csrfMiddleware.Protect(handler)
	handler = compress.Apply(handler)
	handler = securityHeaders.Apply(handler)
	handler = requestLogger.Apply(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: handler,
		// Gemini summaries run inside create/update calls.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not gracefully shutdown the server", map[string]interface{}{
				"error": err.Error(),
			})
		}
		close(done)
	}()

	logger.Info("Server listening", map[string]interface{}{"addr": addr})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}
