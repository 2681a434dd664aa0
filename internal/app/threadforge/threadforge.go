// Package threadforge собирает основное приложение: хранилище, кеш,
// клиент провайдера генерации, сервисы и HTTP-сервер.
package threadforge

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/thread-forge/internal/cache"
	"github.com/magabrotheeeer/thread-forge/internal/config"
	"github.com/magabrotheeeer/thread-forge/internal/lib/jwt"
	"github.com/magabrotheeeer/thread-forge/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/thread-forge/internal/lib/sl"
	"github.com/magabrotheeeer/thread-forge/internal/migrations"
	authservice "github.com/magabrotheeeer/thread-forge/internal/services/auth"
	entservice "github.com/magabrotheeeer/thread-forge/internal/services/entitlement"
	genservice "github.com/magabrotheeeer/thread-forge/internal/services/generation"
	quotaservice "github.com/magabrotheeeer/thread-forge/internal/services/quota"
	"github.com/magabrotheeeer/thread-forge/internal/storage/repository"
	"github.com/magabrotheeeer/thread-forge/internal/threadprovider"
)

type App struct {
	server   *http.Server
	logger   *slog.Logger
	db       *repository.Storage
	rabbitCh *amqp.Channel
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	// Публикация уведомлений опциональна: без RabbitMQ приложение
	// работает, изменения подписки просто не рассылаются по почте.
	var rabbitCh *amqp.Channel
	var publisher entservice.Publisher
	if cfg.RabbitURL != "" {
		conn, err := rabbitmq.Connect(cfg.RabbitURL, 5, 2*time.Second)
		if err != nil {
			return nil, err
		}
		rabbitCh, err = rabbitmq.SetupChannel(conn, cfg.Exchange, []rabbitmq.QueueConfig{
			{QueueName: cfg.QueueName, RoutingKey: cfg.RoutingKeyName},
		})
		if err != nil {
			return nil, err
		}
		publisher = rabbitmq.NewNotificationPublisher(rabbitCh, cfg.Exchange, cfg.RoutingKeyName)
	} else {
		logger.Warn("rabbit url is empty, entitlement notifications are disabled")
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	providerClient := threadprovider.NewClient(cfg.ThreadProvider)

	authService := authservice.NewAuthService(db, jwtMaker)
	quotaService := quotaservice.NewQuotaService(db, cacheRedis, logger, cfg.FreeMonthlyLimit)
	generationService := genservice.NewGenerationService(db, quotaService, providerClient, logger)
	entitlementService := entservice.NewEntitlementService(db, publisher, quotaService, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, authService, generationService, quotaService, entitlementService)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.TimeoutHTTP,
		WriteTimeout: cfg.HTTPServer.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:   srv,
		logger:   logger,
		db:       db,
		rabbitCh: rabbitCh,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if a.rabbitCh != nil {
			if closeErr := a.rabbitCh.Close(); closeErr != nil {
				a.logger.Warn("failed to close rabbit channel", sl.Err(closeErr))
			}
		}
		a.db.DB.Close()
		return err
	}
}
