package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/core"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

const (
	eventBuffer          = 256
	throttleCacheEntries = 10000
	cacheCleanupInterval = 5 * time.Minute
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentApp)
	cli.MustValidate(logger, cfg.Validate)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	tokens, err := auth.NewTokenService([]byte(cfg.JWTSecret), cfg.TokenTTL)
	if err != nil {
		logger.Error("Failed to initialize token service", applog.FieldError, err)
		os.Exit(1)
	}

	// Failed login counters live only in memory; they reset on restart.
	failures := cache.NewLRUCache[int](throttleCacheEntries, cfg.LoginLockout)
	caches := cache.NewManager(logger.WithComponent(applog.ComponentAuth))
	caches.Register(failures)
	caches.StartCleanup(cacheCleanupInterval)
	defer caches.Stop()

	// Ledger events are best effort; without a broker the API still serves.
	var events *services.EventDispatcher
	if cfg.EventsEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to connect to AMQP broker, ledger events disabled",
				applog.FieldErrorType, applog.ErrorTypeNetwork,
				applog.FieldError, err)
		} else {
			defer client.Close()
			events = services.NewEventDispatcher(client, logger, eventBuffer)
			defer events.Close()
			logger.Info("Ledger events enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("Ledger events disabled - no AMQP_URL provided")
	}

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:              ":" + cfg.Port,
		AuthMode:          auth.Mode(cfg.AuthMode),
		DevUserID:         core.UserID(cfg.DevUserID),
		AllowedOrigins:    cfg.CORSAllowedOrigins,
		TrustedProxies:    cfg.TrustedProxies,
		RequestsPerMinute: cfg.RateLimitRPM,
	}, apphttp.Dependencies{
		Users: services.NewAuthService(repo, auth.NewBcryptHasher(cfg.BcryptCost), tokens,
			services.NewLoginThrottle(failures, cfg.LoginMaxFailures), events, logger),
		Categories: services.NewCategoryLedger(repo, events, logger),
		Incomes:    services.NewTransactionLedger(core.Income, repo, events, logger),
		Expenses:   services.NewTransactionLedger(core.Expense, repo, events, logger),
		Dashboard:  services.NewDashboardService(repo),
		Store:      repo,
		Tokens:     tokens,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("Failed to configure HTTP server", applog.FieldError, err)
		os.Exit(1)
	}
	if cfg.AuthMode == string(auth.ModeOpen) {
		logger.WithComponent(applog.ComponentSecurity).Warn("AUTH_MODE=open: requests without a token act as the development user",
			"dev_user_id", cfg.DevUserID)
	}

	// Graceful shutdown handling
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting fintrack server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", applog.FieldError, err)
	}
	logger.Info("Server stopped gracefully")
}
