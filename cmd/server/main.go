package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/openfleet/fleetmeter/internal/cache"
	"github.com/openfleet/fleetmeter/internal/config"
	"github.com/openfleet/fleetmeter/internal/database"
	"github.com/openfleet/fleetmeter/internal/errors"
	"github.com/openfleet/fleetmeter/internal/importer"
	"github.com/openfleet/fleetmeter/internal/middleware"
	"github.com/openfleet/fleetmeter/internal/monitoring"
	"github.com/openfleet/fleetmeter/internal/ranking"
	"github.com/openfleet/fleetmeter/internal/ratelimit"
	"github.com/openfleet/fleetmeter/internal/retention"
	"github.com/openfleet/fleetmeter/internal/risk"
	"github.com/openfleet/fleetmeter/internal/security"
	"github.com/openfleet/fleetmeter/internal/types"
)

func main() {
	// .env is optional; real deployments set FLEETMETER_* directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := monitoring.NewLogger(monitoring.ParseLevel(cfg.LogLevel))
	slog.SetDefault(logger.Logger)

	db, err := database.NewDB(cfg.DataDir)
	if err != nil {
		slog.Error("failed to open database", "error", err, "data_dir", cfg.DataDir)
		os.Exit(1)
	}
	defer db.Close()

	redisClient, err := ratelimit.NewRedisClient(cfg.RedisURL)
	if err != nil {
		slog.Warn("redis unavailable, rate limiting falls back to memory", "error", err)
	}

	srv := buildServer(cfg, db, redisClient, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv.retention.Start(ctx)
	if cfg.RankingRefreshMinutes > 0 {
		srv.ranking.StartAutoRefresh(ctx, nil, cfg.RankingRefresh())
	}

	router := srv.buildRouter()

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	if redisClient != nil {
		_ = redisClient.Close()
	}
	slog.Info("server stopped")
}

// buildServer wires every service against the shared repository.
func buildServer(cfg *config.Config, db *database.DB, redisClient *ratelimit.RedisClient, logger *monitoring.Logger) *server {
	repo := database.NewRepository(db)
	metrics := monitoring.NewMetrics()
	prom := monitoring.NewPromCollector()

	limiterCfg := ratelimit.DefaultConfig()
	if cfg.RateLimitPerMinute > 0 {
		limiterCfg.IPLimitPerMin = cfg.RateLimitPerMinute
	}

	alerts := monitoring.NewAlertManager(logger, 80)
	if cfg.AlertWebhookURL != "" {
		alerts.AddNotifier(monitoring.NewWebhookNotifier(cfg.AlertWebhookURL))
	}

	secCfg := security.DefaultSecurityConfig()
	if origins := cfg.Origins(); len(origins) > 0 {
		secCfg.AllowedOrigins = origins
	}
	operators := database.NewOperatorService(repo, cfg.JWTSecret)
	sec := security.NewSecurityMiddleware(secCfg)
	sec.SetOperatorService(operators)

	return &server{
		cfg:       cfg,
		db:        db,
		repo:      repo,
		operators: operators,
		risk:      risk.NewService(repo, repo),
		ranking:   ranking.NewService(repo),
		retention: retention.NewService(repo, cfg.RetentionDays),
		importer:  importer.NewService(repo, metrics, prom, logger),
		alerts:    alerts,
		metrics:   metrics,
		prom:      prom,
		logger:    logger,
		cache:     cache.NewCache(cfg.CacheTTL()),
		limiter:   ratelimit.NewRateLimiter(redisClient, limiterCfg, metrics, prom),
		compress:  middleware.NewCompressor(middleware.DefaultCompressionConfig()),
		sec:       sec,
	}
}

// buildRouter assembles the middleware chain and the route table.
func (s *server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	sec := s.sec

	router.Use(errors.RecoveryHandler())
	router.Use(errors.ErrorHandler())
	router.Use(monitoring.MonitoringMiddleware(s.metrics, s.prom, s.logger))
	router.Use(monitoring.SecurityMonitoringMiddleware(s.logger))
	router.Use(security.SecurityHeadersMiddleware(false))
	router.Use(security.CSPMiddleware(""))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.Origins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(s.compress.Middleware())
	router.Use(s.limiter.IPRateLimitMiddleware())
	router.Use(sec.RequestTimeout)

	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(s.prom.Handler()))

	router.POST("/api/auth/token", sec.ValidateContentType, s.handleIssueToken)

	api := router.Group("/api")
	api.Use(sec.AuthRequired)
	{
		api.POST("/analyze",
			s.cache.Middleware(s.metrics, s.prom, "/api/analyze"),
			sec.ValidateContentType,
			sec.ValidateAnalyzeRequest,
			s.handleAnalyze)
		// Fleet-wide recomputation touches every driver; keep it rarer than
		// the per-driver endpoint.
		api.POST("/fleet/analyze",
			s.limiter.EndpointRateLimitMiddleware("fleet_analyze", 10),
			s.handleFleetAnalysis)
		api.GET("/fleet/export",
			sec.RequireRole(types.RoleAdmin, types.RoleManager),
			s.handleFleetExport)
		api.GET("/drivers/:driverID/assessment", s.handleGetAssessment)
		api.GET("/ranking", s.handleRanking)

		api.POST("/operators", sec.RequireRole(types.RoleAdmin, types.RoleManager), s.handleRegisterOperator)
		api.GET("/operators", s.handleListOperators)

		imports := api.Group("/import")
		imports.Use(sec.ValidateContentType, s.limiter.ImportRateLimitMiddleware())
		{
			imports.POST("/telemetry", s.handleImportTelemetry)
			imports.POST("/questions", s.handleImportQuestions)
			imports.POST("/scenarios", s.handleImportScenarios)
			imports.POST("/maintenance", s.handleImportMaintenance)
		}

		api.GET("/banks/knowledge", s.handleKnowledgeBank)
		api.GET("/banks/scenarios", s.handleScenarioBank)
		api.GET("/banks/maintenance", s.handleMaintenanceBank)

		api.GET("/config/modules", s.handleGetModuleConfigs)
		api.PUT("/config/modules", sec.RequireRole(types.RoleAdmin, types.RoleManager), s.handlePutModuleConfigs)
		api.GET("/config/selection", s.handleGetSelectionConfig)
		api.PUT("/config/selection", sec.RequireRole(types.RoleAdmin, types.RoleManager), s.handlePutSelectionConfig)

		api.POST("/candidates", s.handleCreateCandidate)
		api.GET("/candidates", s.handleListCandidates)
		api.PUT("/candidates/:candidateID/status", sec.RequireRole(types.RoleAdmin, types.RoleManager), s.handleCandidateStatus)
		api.GET("/candidates/:candidateID/next", s.handleCandidateNext)
		api.GET("/candidates/:candidateID/result", s.handleCandidateResult)
		api.GET("/candidates/:candidateID/retake/:module", s.handleCandidateRetake)
		api.POST("/candidates/:candidateID/submit", sec.ValidateContentType, s.handleSubmitModule)

		api.GET("/candidates/:candidateID/tests/:module", s.handleComposeTest)

		api.GET("/alerts", s.handleAlerts)
		api.GET("/alerts/active", s.handleActiveAlerts)

		api.GET("/retention", s.handleRetentionPolicy)
		api.GET("/stats", s.handleStats)
		api.GET("/ratelimit/status", s.limiter.HandleRateLimitStatus())

		admin := api.Group("/admin")
		admin.Use(sec.RequireRole(types.RoleAdmin))
		{
			admin.DELETE("/drivers/:driverID", s.handleDeleteDriver)
			admin.GET("/ratelimits", s.limiter.HandleAdminRateLimits())
			admin.POST("/ratelimits/import/:companyID/reset", s.limiter.HandleAdminResetImportLimit())
			admin.POST("/ratelimits/ip/:ip/reset", s.limiter.HandleAdminInvalidateIP())
		}
	}

	return router
}
