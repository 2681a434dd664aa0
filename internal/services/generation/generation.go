// Package services содержит бизнес-логику генерации тредов:
// валидация входа, проверка квоты, вызов провайдера, сохранение
// результата и учет расхода.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/thread-forge/internal/models"
	quota "github.com/magabrotheeeer/thread-forge/internal/services/quota"
	"github.com/magabrotheeeer/thread-forge/internal/storage/repository"
)

// Repository определяет методы хранилища для записи результатов генерации.
type Repository interface {
	// CreateThread сохраняет запись треда и возвращает её ID.
	CreateThread(ctx context.Context, record models.ThreadRecord) (int, error)
	// ConsumeGeneration атомарно расходует одну генерацию относительно
	// текущего значения счетчика в базе.
	ConsumeGeneration(ctx context.Context, accountUID string, limit int, unlimited bool) (int, error)
	// ListThreads возвращает треды аккаунта с пагинацией.
	ListThreads(ctx context.Context, accountUID string, limit, offset int) ([]*models.ThreadRecord, error)
}

// Quota описывает интерфейс проверки квоты.
type Quota interface {
	Evaluate(ctx context.Context, username string, now time.Time) (*quota.Decision, error)
	InvalidateSummary(username string)
	Limit() int
}

// Provider описывает интерфейс внешнего провайдера генерации текста.
type Provider interface {
	GenerateThread(ctx context.Context, input string) (string, error)
}

// GenerationService координирует полный цикл генерации треда.
type GenerationService struct {
	repo     Repository
	quota    Quota
	provider Provider
	log      *slog.Logger
}

// NewGenerationService создает новый экземпляр GenerationService.
func NewGenerationService(repo Repository, quotaSvc Quota, provider Provider, log *slog.Logger) *GenerationService {
	return &GenerationService{
		repo:     repo,
		quota:    quotaSvc,
		provider: provider,
		log:      log,
	}
}

// Generate выполняет полный цикл генерации для аккаунта username:
//
//  1. вход обрезается; пустой вход — ErrInvalidInput;
//  2. проверка квоты (с ленивым созданием/сбросом окна); отказ — QuotaExceededError;
//  3. один вызов провайдера; сбой или пустой ответ — ErrProviderUnavailable,
//     квота при этом не израсходована;
//  4. сохранение ThreadRecord с исходным входом и сырым выходом — строго
//     до учета расхода, чтобы сбой записи не съедал квоту;
//  5. атомарный условный инкремент счетчика (count < limit OR pro).
//
// Остаток считается от значения счетчика после инкремента.
func (s *GenerationService) Generate(ctx context.Context, username, rawInput string) (*models.GenerationResult, error) {
	input := strings.TrimSpace(rawInput)
	if input == "" {
		return nil, ErrInvalidInput
	}

	decision, err := s.quota.Evaluate(ctx, username, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	if !decision.Allowed {
		return nil, &QuotaExceededError{ResetAt: decision.Window.ResetAt}
	}

	output, err := s.provider.GenerateThread(ctx, input)
	if err != nil || strings.TrimSpace(output) == "" {
		if err == nil {
			err = fmt.Errorf("empty completion")
		}
		s.log.Error("thread provider call failed", slog.Any("err", err))
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	tweets := splitTweets(output)

	record := models.ThreadRecord{
		AccountUID: decision.Account.UID,
		Input:      input,
		Output:     output,
	}
	threadID, err := s.repo.CreateThread(ctx, record)
	if err != nil {
		// Ответ провайдера уже оплачен, но локально не сохранен:
		// этот сбой отличим от сбоя провайдера.
		s.log.Error("failed to persist thread", slog.Any("err", err))
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	result := &models.GenerationResult{
		Tweets:    tweets,
		Unlimited: decision.Unlimited,
	}

	newCount, err := s.repo.ConsumeGeneration(ctx, decision.Account.UID, s.quota.Limit(), decision.Unlimited)
	switch {
	case err == nil:
		if !decision.Unlimited {
			result.Remaining = s.quota.Limit() - newCount
			if result.Remaining < 0 {
				result.Remaining = 0
			}
		}
	case errors.Is(err, repository.ErrLimitReached):
		// Лимит выбран конкурентным запросом между проверкой и учетом.
		// Тред уже сохранен, счетчик остается на потолке.
		s.log.Warn("generation consumed without increment: limit reached concurrently",
			slog.String("username", username))
		result.Remaining = 0
	default:
		s.log.Error("failed to consume generation", slog.Any("err", err))
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	s.quota.InvalidateSummary(username)

	s.log.Info("thread generated",
		slog.String("username", username),
		slog.Int("thread_id", threadID),
		slog.Int("tweets", len(tweets)))
	return result, nil
}

// ListThreads возвращает историю тредов аккаунта, новые первыми.
func (s *GenerationService) ListThreads(ctx context.Context, accountUID string, limit, offset int) ([]*models.ThreadRecord, error) {
	return s.repo.ListThreads(ctx, accountUID, limit, offset)
}

// splitTweets разрезает сырой ответ провайдера на непустые обрезанные
// строки, сохраняя порядок. Формат строк не проверяется.
func splitTweets(output string) []string {
	var tweets []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			tweets = append(tweets, line)
		}
	}
	return tweets
}
