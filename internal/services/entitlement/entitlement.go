// Package services содержит бизнес-логику применения событий подписки
// от платежного провайдера к аккаунтам.
package services

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/magabrotheeeer/thread-forge/internal/models"
)

// Repository определяет методы хранилища для изменения статуса подписки.
type Repository interface {
	FindAccountByStripeCustomerID(ctx context.Context, customerID string) (*models.Account, error)
	FindAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	UpdateEntitlement(ctx context.Context, accountUID string, isPro bool, stripeCustomerID string) (int, error)
	ClearEntitlementByCustomerID(ctx context.Context, customerID string) (int, error)
}

// Publisher описывает публикацию уведомлений об изменении подписки.
type Publisher interface {
	Publish(message any) error
}

// Invalidator сбрасывает кешированную сводку использования аккаунта.
type Invalidator interface {
	InvalidateSummary(username string)
}

// EntitlementService применяет события подписки к аккаунтам.
// Применение идемпотентно: повторное событие дает то же конечное состояние.
type EntitlementService struct {
	repo        Repository
	publisher   Publisher
	invalidator Invalidator
	log         *slog.Logger
}

// NewEntitlementService создает новый экземпляр EntitlementService.
// publisher и invalidator могут быть nil: уведомления и кеш опциональны.
func NewEntitlementService(repo Repository, publisher Publisher, invalidator Invalidator, log *slog.Logger) *EntitlementService {
	return &EntitlementService{
		repo:        repo,
		publisher:   publisher,
		invalidator: invalidator,
		log:         log,
	}
}

// Apply применяет одно событие подписки.
//
// Для created/updated аккаунт ищется сначала по идентификатору покупателя,
// и только при первой привязке — по электронной почте. Для cancelled/ended —
// строго по идентификатору покупателя. Отсутствие подходящего аккаунта —
// не ошибка (провайдеру незачем ретраить доставку), но логируется:
// это признак расхождения между биллингом и локальным состоянием.
// Неизвестные типы событий игнорируются.
func (s *EntitlementService) Apply(ctx context.Context, event models.EntitlementEvent) error {
	const op = "entitlement.Apply"
	log := s.log.With(
		slog.String("op", op),
		slog.String("event", event.Type),
		slog.String("customer_id", event.Data.CustomerID),
	)

	switch event.Type {
	case models.SubscriptionCreated, models.SubscriptionUpdated:
		account, err := s.locateAccount(ctx, event.Data)
		if err != nil {
			return err
		}
		if account == nil {
			log.Warn("no account matches subscription event, billing and local state have drifted")
			return nil
		}

		isPro := event.Data.Status == "active"
		if _, err := s.repo.UpdateEntitlement(ctx, account.UID, isPro, event.Data.CustomerID); err != nil {
			return err
		}
		s.afterChange(account, event.Type, isPro)
		log.Info("entitlement updated", slog.Bool("is_pro", isPro))

	case models.SubscriptionCancelled, models.SubscriptionEnded:
		account, err := s.findByCustomerID(ctx, event.Data.CustomerID)
		if err != nil {
			return err
		}
		if account == nil {
			log.Warn("no account matches cancellation event, billing and local state have drifted")
			return nil
		}

		if _, err := s.repo.ClearEntitlementByCustomerID(ctx, event.Data.CustomerID); err != nil {
			return err
		}
		s.afterChange(account, event.Type, false)
		log.Info("entitlement cleared")

	default:
		// Неизвестные типы принимаются и игнорируются ради
		// совместимости с будущими событиями провайдера.
		log.Info("ignored subscription event")
	}
	return nil
}

// locateAccount ищет аккаунт по идентификатору покупателя, при первой
// привязке — по почте. Идентификатор детерминированнее почты: один человек
// может переиспользовать почту между биллинговыми идентичностями.
func (s *EntitlementService) locateAccount(ctx context.Context, data models.SubscriptionData) (*models.Account, error) {
	account, err := s.findByCustomerID(ctx, data.CustomerID)
	if err != nil || account != nil {
		return account, err
	}

	account, err = s.repo.FindAccountByEmail(ctx, data.CustomerEmail)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return account, err
}

func (s *EntitlementService) findByCustomerID(ctx context.Context, customerID string) (*models.Account, error) {
	if customerID == "" {
		return nil, nil
	}
	account, err := s.repo.FindAccountByStripeCustomerID(ctx, customerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return account, err
}

func (s *EntitlementService) afterChange(account *models.Account, eventType string, isPro bool) {
	if s.invalidator != nil {
		s.invalidator.InvalidateSummary(account.Username)
	}
	if s.publisher == nil {
		return
	}
	message := models.NotificationMessage{
		Email:    account.Email,
		Username: account.Username,
		Event:    eventType,
		IsPro:    isPro,
	}
	if err := s.publisher.Publish(message); err != nil {
		s.log.Warn("failed to publish entitlement notification", slog.Any("err", err))
	}
}
