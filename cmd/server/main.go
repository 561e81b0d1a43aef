package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"familypoints/internal/config"
	"familypoints/internal/database"
	"familypoints/internal/handlers"
	"familypoints/internal/jobs"
	"familypoints/internal/llm"
	"familypoints/internal/logger"
	"familypoints/internal/repository"
	"familypoints/internal/security"
	"familypoints/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(cfg.LogLevel, cfg.LogFormat, cfg.LogOutput); err != nil {
		log.Fatalf("Failed to initialise logging: %v", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("Failed to resolve time zone: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.WithField("type", cfg.DatabaseType).Info("Database connection established")

	if err := db.RunMigrations(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	clock := service.NewClock(loc)
	accountRepo := repository.NewAccountRepository(db)
	policy := service.NewPolicy(accountRepo)
	tokens := security.NewTokenManager(cfg.JWTSecret, cfg.TokenDuration)

	// Initialize services
	accountService := service.NewAccountService(db, clock)
	authService := service.NewAuthService(accountRepo, tokens)
	ledgerService := service.NewLedgerService(db, clock)
	familyService := service.NewFamilyService(db, ledgerService, policy, clock)
	homeworkService := service.NewHomeworkService(db, ledgerService, policy, clock)

	if cfg.AdminUsername != "" {
		created, err := accountService.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			log.Fatalf("Failed to bootstrap admin account: %v", err)
		}
		if created {
			log.WithField("username", cfg.AdminUsername).Info("Admin account created")
		}
	}

	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, cfg.EmailDebug)
	if err != nil {
		log.Fatalf("Failed to initialise email service: %v", err)
	}
	var notifier service.RedemptionNotifier
	if emailService.IsEnabled() {
		notifier = emailService
	} else {
		log.Warn("SES_FROM_EMAIL not set, redemption emails disabled")
	}
	rewardService := service.NewRewardService(db, ledgerService, policy, notifier, clock)

	var completer service.Completer
	if cfg.LLMAPIKey != "" {
		completer = llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
	} else {
		log.Warn("LLM_API_KEY not set, homework analysis disabled")
	}
	analysisService := service.NewAnalysisService(db, homeworkService, completer, service.AnalysisOptions{
		CacheTTL:         cfg.AnalysisCacheTTL,
		MaxEntriesPerKid: cfg.AnalysisCacheMaxPerChild,
		Timeout:          cfg.LLMTimeout,
	}, clock)

	scheduler := jobs.NewScheduler(analysisService, cfg.AnalysisSweepCron, loc)
	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	loginLimiter := security.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow)
	go loginLimiter.Run(ctx, 5*time.Minute)

	handler := handlers.NewRouter(handlers.Router{
		Middleware:   handlers.NewMiddleware(authService),
		LoginLimiter: loginLimiter,
		Health:       db,
		Auth:         handlers.NewAuthHandler(authService),
		Accounts:     handlers.NewAccountHandler(accountService, ledgerService),
		Families:     handlers.NewFamilyHandler(familyService),
		History:      handlers.NewHistoryHandler(ledgerService, policy),
		Homework:     handlers.NewHomeworkHandler(homeworkService, analysisService),
		Rewards:      handlers.NewRewardHandler(rewardService),
	})

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.LLMTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", addr).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
		os.Exit(1)
	}
	log.Info("Server stopped")
}
