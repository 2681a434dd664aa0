// Package sender собирает приложение рассылки почтовых уведомлений:
// потребитель очереди RabbitMQ и SMTP-транспорт.
package sender

import (
	"context"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/thread-forge/internal/config"
	"github.com/magabrotheeeer/thread-forge/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/thread-forge/internal/lib/smtp"
	senderservice "github.com/magabrotheeeer/thread-forge/internal/services/sender"
)

type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.SenderService
	logger        *slog.Logger
	queueName     string
}

func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitURL, 5, 2*time.Second)
	if err != nil {
		return nil, err
	}

	ch, err := rabbitmq.SetupChannel(conn, cfg.Exchange, []rabbitmq.QueueConfig{
		{QueueName: cfg.QueueName, RoutingKey: cfg.RoutingKeyName},
	})
	if err != nil {
		conn.Close()
		return nil, err
	}

	newTransport := smtp.NewTransport(cfg, logger)
	senderService := senderservice.NewSenderService(logger, newTransport)

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderService,
		logger:        logger,
		queueName:     cfg.QueueName,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.ch, a.queueName, a.senderService.SendEntitlementChanged)
	if err != nil {
		a.logger.Error("failed to start entitlement notification consumer", slog.Any("err", err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("Sender service shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}

	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}

	return nil
}
