// Package sender собирает сервис рассылки уведомлений: подключение к
// брокеру, хранилищу и SMTP, запуск потребителей очередей.
package sender

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/config"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/labels"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/lib/smtp"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/rabbitmq"
	senderservice "github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/services/sender"
	"github.com/MAGMADIMSUM-RTX/BUPT-Toolman/internal/storage"
)

// App инкапсулирует соединения сервиса рассылки.
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	db            *storage.Storage
	senderService *senderservice.SenderService
	logger        *slog.Logger
}

// New собирает сервис рассылки.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	catalog, err := labels.Load(cfg.LabelsPath)
	if err != nil {
		return nil, err
	}

	db, err := storage.New(cfg.StorageConnectionString, catalog)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.NotificationQueues())
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	transport := smtp.NewTransport(cfg, logger)
	senderService, err := senderservice.NewSenderService(cfg, logger, transport, db, catalog)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &App{
		conn:          conn,
		ch:            ch,
		db:            db,
		senderService: senderService,
		logger:        logger,
	}, nil
}

// Run запускает потребителей очередей и блокируется до отмены контекста.
func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.RegistrationQueue, a.senderService.HandleUserRegistered)
	if err != nil {
		a.logger.Error("failed to start registration consumer", slog.Any("err", err))
		return err
	}

	err = rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.ListingQueue, a.senderService.HandleListingCreated)
	if err != nil {
		a.logger.Error("failed to start listing consumer", slog.Any("err", err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("sender service shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", slog.Any("err", err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", slog.Any("err", err))
	}
	if err := a.db.DB.Close(); err != nil {
		a.logger.Error("failed to close database", slog.Any("err", err))
	}

	return nil
}
