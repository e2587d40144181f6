package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"marketplace/internal/config"
	sl "marketplace/internal/lib/logger/sl"
	"marketplace/internal/mailer"
	"marketplace/internal/models"
	"marketplace/internal/rabbitmq"

	"golang.org/x/sync/errgroup"
)

const (
	envLocal = "local"
	envDev   = "dev"
)

type Sender interface {
	Send(msg models.Message) error
}

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("starting mail_sender", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("mail_sender stopped with error", sl.Err(err))
		os.Exit(1)
	}

	log.Info("service gracefully stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	queue, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		return err
	}
	defer queue.Close()

	m := mailer.New(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("consumer started", slog.String("queue", cfg.RabbitMQ.QueueName))
		return queue.StartReading(ctx, handleMessage(log, m))
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down consumer...")
		return nil
	})

	return g.Wait()
}

// handleMessage decodes one queued message and mails it.
func handleMessage(log *slog.Logger, sender Sender) func(body []byte) error {
	return func(body []byte) error {
		const op = "mail_sender.handleMessage"

		log := log.With(slog.String("op", op))

		var msg models.Message
		if err := json.Unmarshal(body, &msg); err != nil {
			log.Error("failed to unmarshal message", sl.Err(err))
			return fmt.Errorf("%s: %w: %w", op, rabbitmq.ErrMalformed, err)
		}

		if msg.Email == "" {
			log.Error("message without recipient", slog.String("purpose", msg.Purpose))
			return fmt.Errorf("%s: %w: empty recipient", op, rabbitmq.ErrMalformed)
		}

		if err := sender.Send(msg); err != nil {
			log.Error("failed to send message", sl.Err(err), slog.String("purpose", msg.Purpose))
			return fmt.Errorf("%s: %w", op, err)
		}

		log.Info("message sent successfully", slog.String("purpose", msg.Purpose))

		return nil
	}
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
