// Command notifier consumes notifications published by the API (NOTIFY_SINK=amqp)
// and delivers them as emails.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"velvetden/config"
	"velvetden/internal/adapters/email"
	"velvetden/internal/adapters/notify"
	"velvetden/internal/services"
)

func main() {
	logger := config.NewLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:          cfg.Email.AWSRegion,
			AccessKeyID:     cfg.Email.AWSAccessKeyID,
			SecretAccessKey: cfg.Email.AWSSecretAccessKey,
		},
	}, logger)
	if err != nil {
		logger.Error("failed to create mailer", "err", err)
		os.Exit(1)
	}
	renderer, err := email.NewTemplateRenderer()
	if err != nil {
		logger.Error("failed to load email templates", "err", err)
		os.Exit(1)
	}

	consumer, err := notify.NewConsumer(cfg.Notify.RabbitMQURL)
	if err != nil {
		logger.Error("failed to connect to broker", "err", err)
		os.Exit(1)
	}
	defer consumer.Close()

	msgs, err := consumer.Consume()
	if err != nil {
		logger.Error("failed to start consuming", "queue", notify.QueueName, "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	relay := &notify.Relay{
		Sink: &notify.EmailSink{
			Emails:      services.NewEmailService(mailer, renderer, logger),
			AdminEmail:  cfg.AdminEmail,
			FrontendURL: cfg.FrontendURL,
		},
		Logger: logger,
	}
	logger.Info("notifier started", "queue", notify.QueueName)
	relay.Run(ctx, msgs)
	logger.Info("notifier stopped")
}
