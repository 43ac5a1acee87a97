package internal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace/pkg/httpmetrics"
	"marketplace/pkg/logger"
	"marketplace/pkg/ratelimit"
	"marketplace/pkg/scheduler"
	"marketplace/services/api-gateway/internal/auth"
	"marketplace/services/api-gateway/internal/configs"
	"marketplace/services/api-gateway/internal/port"
	"marketplace/services/api-gateway/internal/server"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/prometheus/client_golang/prometheus"
)

const jobCleanupRateLimiters = "cleanup_client_rate_limiters"

// App - основная структура приложения
type App struct {
	httpServer   *http.Server
	scheduler    *scheduler.Scheduler
	stopJWKS     context.CancelFunc
	logger       port.LoggerPort
	fluentClient *fluent.Fluent
}

// NewApp создает и настраивает все компоненты приложения
func NewApp() (*App, error) {
	appConfig, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading application configuration: %w", err)
	}

	baseLogger, fluentClient, err := logger.Setup(logger.SetupConfig{
		AppName:      appConfig.AppName,
		StdoutLevel:  appConfig.StdoutLogger.Level,
		StdoutJSON:   appConfig.StdoutLogger.JSON,
		FluentEnable: appConfig.FluentBit.Enabled,
		FluentHost:   appConfig.FluentBit.Host,
		FluentPort:   appConfig.FluentBit.Port,
		FluentLevel:  appConfig.FluentBit.Level,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up loggers: %w", err)
	}
	appLogger := baseLogger.WithFields(port.Fields{"component": "app"})

	jwksCtx, stopJWKS := context.WithCancel(context.Background())
	fail := func(msg string, err error) (*App, error) {
		appLogger.Error(msg, err, nil)
		stopJWKS()
		if fluentClient != nil {
			fluentClient.Close()
		}
		return nil, fmt.Errorf("%s: %w", msg, err)
	}

	// Набор ключей Supabase обновляется в фоне до остановки приложения.
	var jwks keyfunc.Keyfunc
	if appConfig.Auth.JWKSURL != "" {
		jwks, err = auth.NewRemoteKeySet(jwksCtx, appConfig.Auth.JWKSURL)
		if err != nil {
			return fail("failed to initialize JWKS key set", err)
		}
		appLogger.Info("JWKS key set initialized", port.Fields{"jwks_url": appConfig.Auth.JWKSURL})
	}

	verifier, err := auth.NewVerifier(auth.Config{
		Issuer:   appConfig.Auth.Issuer,
		Audience: appConfig.Auth.Audience,
		Secret:   []byte(appConfig.Auth.JWTSecret),
		Leeway:   appConfig.Auth.Leeway,
	}, jwks)
	if err != nil {
		return fail("failed to create token verifier", err)
	}
	appLogger.Debug("Token verifier initialized", port.Fields{
		"issuer":      appConfig.Auth.Issuer,
		"hs256":       appConfig.Auth.JWTSecret != "",
		"jwks_loaded": jwks != nil,
	})

	limiter := ratelimit.NewKeyedLimiter(appConfig.RateLimit.RPS, appConfig.RateLimit.Burst)

	metrics := httpmetrics.New("api_gateway")
	err = metrics.Registry().Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "api_gateway",
		Name:      "rate_limiter_clients",
		Help:      "Clients currently tracked by the rate limiter.",
	}, func() float64 { return float64(limiter.Len()) }))
	if err != nil {
		return fail("failed to register rate limiter gauge", err)
	}

	idleTTL := appConfig.RateLimit.IdleTTL
	jobs := scheduler.New(baseLogger)
	err = jobs.Add(jobCleanupRateLimiters, appConfig.RateLimit.CleanupCron, func(ctx context.Context) error {
		if removed := limiter.Cleanup(idleTTL); removed > 0 {
			baseLogger.Debug("Idle client limiters removed", port.Fields{"removed": removed, "remaining": limiter.Len()})
		}
		return nil
	})
	if err != nil {
		return fail("failed to schedule limiter cleanup", err)
	}

	router, err := server.NewRouter(server.RouterConfig{
		ListingServiceURL:   appConfig.ListingServiceURL,
		MessagingServiceURL: appConfig.MessagingServiceURL,
		AllowedOrigins:      appConfig.CORS.AllowedOrigins,
		CORSMaxAge:          appConfig.CORS.MaxAge,
		Auth:                server.NewAuthMiddleware(verifier),
		Limiter:             limiter,
		Metrics:             metrics,
		Logger:              baseLogger,
	})
	if err != nil {
		return fail("failed to build router", err)
	}
	appLogger.Info("Gateway routes configured", port.Fields{
		"listing_service":   appConfig.ListingServiceURL,
		"messaging_service": appConfig.MessagingServiceURL,
	})

	return &App{
		httpServer:   server.NewServer(appConfig.Port, router),
		scheduler:    jobs,
		stopJWKS:     stopJWKS,
		logger:       appLogger,
		fluentClient: fluentClient,
	}, nil
}

// Run запускает приложение и управляет его жизненным циклом
func (a *App) Run() error {
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := a.httpServer.Shutdown(ctx); err != nil {
			a.logger.Error("API Gateway shutdown failed", err, nil)
		}
		if err := a.scheduler.Stop(ctx); err != nil {
			a.logger.Error("Error stopping scheduler", err, nil)
		}
		a.stopJWKS()

		a.logger.Info("Application shut down gracefully.", nil)
		if a.fluentClient != nil {
			if err := a.fluentClient.Close(); err != nil {
				fmt.Printf("ERROR: Error closing fluent client: %v\n", err)
			}
		}
	}()

	errorsCh := make(chan error, 1)

	a.scheduler.Start()

	go func() {
		a.logger.Info("API Gateway is listening", port.Fields{"address": a.httpServer.Addr})
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errorsCh <- fmt.Errorf("failed to start API Gateway: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		a.logger.Info("API Gateway is shutting down...", port.Fields{"signal": sig.String()})
	case err := <-errorsCh:
		a.logger.Error("API Gateway failed", err, nil)
		return err
	}
	return nil
}
