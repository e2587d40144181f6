package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace/internal/auth"
	"marketplace/internal/config"
	"marketplace/internal/http_server/cookie"
	"marketplace/internal/http_server/handlers/health"
	"marketplace/internal/http_server/handlers/oauth"
	"marketplace/internal/http_server/router"
	sl "marketplace/internal/lib/logger/sl"
	"marketplace/internal/lib/validation"
	"marketplace/internal/marketplace"
	"marketplace/internal/middleware/metrics"
	"marketplace/internal/rabbitmq"
	"marketplace/internal/storage/postgres"
	"marketplace/internal/storage/redis"

	"golang.org/x/sync/errgroup"
)

const (
	envLocal = "local"
	envDev   = "dev"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("starting marketplace api", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("api stopped with error", sl.Err(err))
		os.Exit(1)
	}

	log.Info("api stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	storage, err := postgres.New(ctx, log, cfg)
	if err != nil {
		return err
	}
	defer storage.Close()

	cache, err := redis.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer cache.Close()

	msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		return err
	}
	defer msgBroker.Close()

	authService := auth.New(log, storage, storage, cache, msgBroker, auth.Settings{
		JWTSecret:           cfg.Tokens.JWTSecret,
		SessionTTL:          cfg.Tokens.SessionTTL,
		ReservationTTL:      cfg.Signup.ReservationTTL,
		OTPTTL:              cfg.Signup.OTPTTL,
		OTPCooldown:         cfg.Signup.OTPCooldown,
		OTPMaxAttempts:      cfg.Signup.OTPMaxAttempts,
		ResetTokenTTL:       cfg.PasswordReset.TokenTTL,
		ResetCooldown:       cfg.PasswordReset.Cooldown,
		ResetResendCooldown: cfg.PasswordReset.ResendCooldown,
		OAuthSessionTTL:     cfg.OAuth.SessionTTL,
		FrontendURL:         cfg.FrontendURL,
	})

	market := marketplace.New(log, storage, storage, storage, storage, cfg.Invites.TTL)

	handler := router.New(log, validation.New(), authService, market, router.Options{
		JWTSecret: cfg.Tokens.JWTSecret,
		Cookies: cookie.Settings{
			Name:   cfg.Cookie.Name,
			Domain: cfg.Cookie.Domain,
			Secure: cfg.Cookie.Secure,
		},
		FrontendURL:     cfg.FrontendURL,
		OTPCooldown:     cfg.Signup.OTPCooldown,
		OAuthSessionTTL: cfg.OAuth.SessionTTL,
		Providers:       setupProviders(log, cfg.OAuth),
		Health: map[string]health.Pinger{
			"postgres": storage,
			"redis":    cache,
		},
		Metrics: metrics.New(),
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.ListenAddress(),
		Handler:      handler,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("HTTP server is running", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return market.RunInviteSweeper(ctx, cfg.Invites.SweepInterval)
	})

	g.Go(func() error {
		<-ctx.Done()

		log.Info("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func setupProviders(log *slog.Logger, cfg config.OAuth) []oauth.IdentityProvider {
	var providers []oauth.IdentityProvider

	if cfg.Google.Enabled() {
		providers = append(providers, oauth.NewGoogle(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.CallbackBaseURL))
	} else {
		log.Warn("google sign-in disabled: no client credentials")
	}

	if cfg.Facebook.Enabled() {
		providers = append(providers, oauth.NewFacebook(cfg.Facebook.ClientID, cfg.Facebook.ClientSecret, cfg.CallbackBaseURL))
	} else {
		log.Warn("facebook sign-in disabled: no client credentials")
	}

	return providers
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}
