// Package services содержит бизнес-логику проверки месячной квоты генераций.
//
// Проверка квоты сама по себе не расходует генерации: единственный
// побочный эффект — ленивое создание или сброс истекшего окна
// использования, выполняемые атомарным upsert-ом в хранилище.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/thread-forge/internal/lib/month"
	"github.com/magabrotheeeer/thread-forge/internal/models"
)

// usageCacheTTL время жизни кешированной сводки использования.
const usageCacheTTL = 5 * time.Minute

// Repository определяет методы хранилища, нужные для оценки квоты.
type Repository interface {
	// GetAccountByUsername возвращает аккаунт по имени.
	GetAccountByUsername(ctx context.Context, username string) (*models.Account, error)
	// UpsertUsageWindow атомарно создает или сбрасывает истекшее окно.
	UpsertUsageWindow(ctx context.Context, accountUID string, now, resetAt time.Time) (*models.UsageWindow, error)
	// CountThreads возвращает общее число тредов аккаунта.
	CountThreads(ctx context.Context, accountUID string) (int, error)
}

// Cache описывает методы для кэширования сводок использования.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Decision результат проверки квоты для одной попытки генерации.
type Decision struct {
	Allowed   bool               // Разрешена ли генерация
	Unlimited bool               // true для Pro-аккаунтов
	Remaining int                // Остаток генераций в окне, 0 для Pro
	Window    models.UsageWindow // Актуальное окно после возможного сброса
	Account   models.Account     // Аккаунт, прочитанный при проверке
}

// QuotaService реализует проверку месячной квоты и сводку использования.
type QuotaService struct {
	repo  Repository
	cache Cache
	log   *slog.Logger
	limit int
}

// NewQuotaService создает новый экземпляр QuotaService.
// limit — месячный лимит бесплатных генераций, единый для проверки и расчета остатка.
func NewQuotaService(repo Repository, cache Cache, log *slog.Logger, limit int) *QuotaService {
	return &QuotaService{
		repo:  repo,
		cache: cache,
		log:   log,
		limit: limit,
	}
}

// Limit возвращает месячный лимит бесплатных генераций.
func (s *QuotaService) Limit() int {
	return s.limit
}

// Evaluate решает, разрешена ли аккаунту генерация в момент now.
//
// Если окна использования нет или оно истекло, окно атомарно создается
// либо сбрасывается: count = 0, reset_at = первое мгновение следующего
// календарного месяца. Повторный вызов с тем же now без генераций между
// ними не меняет ни count, ни reset_at.
func (s *QuotaService) Evaluate(ctx context.Context, username string, now time.Time) (*Decision, error) {
	account, err := s.repo.GetAccountByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("quota.Evaluate: %w", err)
	}

	window, err := s.repo.UpsertUsageWindow(ctx, account.UID, now, month.NextResetTime(now))
	if err != nil {
		return nil, fmt.Errorf("quota.Evaluate: %w", err)
	}

	decision := &Decision{
		Unlimited: account.IsPro,
		Window:    *window,
		Account:   *account,
	}
	if account.IsPro {
		decision.Allowed = true
		return decision, nil
	}

	decision.Allowed = window.Count < s.limit
	decision.Remaining = s.limit - window.Count
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}
	return decision, nil
}

// Summary возвращает сводку использования для страницы настроек,
// кешируя результат в Redis. Кеш инвалидируется при каждой генерации
// и при изменении статуса подписки.
func (s *QuotaService) Summary(ctx context.Context, username string, now time.Time) (*models.UsageSummary, error) {
	cacheKey := UsageCacheKey(username)

	var cached models.UsageSummary
	found, err := s.cache.Get(cacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read usage summary from cache",
			slog.String("key", cacheKey), slog.Any("err", err))
	}
	if found {
		return &cached, nil
	}

	decision, err := s.Evaluate(ctx, username, now)
	if err != nil {
		return nil, err
	}

	total, err := s.repo.CountThreads(ctx, decision.Account.UID)
	if err != nil {
		return nil, fmt.Errorf("quota.Summary: %w", err)
	}

	resetAt := decision.Window.ResetAt
	summary := &models.UsageSummary{
		Username:     username,
		IsPro:        decision.Unlimited,
		Count:        decision.Window.Count,
		Remaining:    decision.Remaining,
		Unlimited:    decision.Unlimited,
		ResetAt:      &resetAt,
		TotalThreads: total,
	}

	if err := s.cache.Set(cacheKey, summary, usageCacheTTL); err != nil {
		s.log.Warn("failed to cache usage summary",
			slog.String("key", cacheKey), slog.Any("err", err))
	}
	return summary, nil
}

// InvalidateSummary сбрасывает кешированную сводку аккаунта.
func (s *QuotaService) InvalidateSummary(username string) {
	if err := s.cache.Invalidate(UsageCacheKey(username)); err != nil {
		s.log.Warn("failed to invalidate usage summary cache",
			slog.String("username", username), slog.Any("err", err))
	}
}

// UsageCacheKey возвращает ключ кеша сводки использования аккаунта.
func UsageCacheKey(username string) string {
	return fmt.Sprintf("usage:%s", username)
}
