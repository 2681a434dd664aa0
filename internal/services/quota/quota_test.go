package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/thread-forge/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockRepository) UpsertUsageWindow(ctx context.Context, accountUID string, now, resetAt time.Time) (*models.UsageWindow, error) {
	args := m.Called(ctx, accountUID, now, resetAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UsageWindow), args.Error(1)
}

func (m *MockRepository) CountThreads(ctx context.Context, accountUID string) (int, error) {
	args := m.Called(ctx, accountUID)
	return args.Int(0), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Set(key string, value any, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCache) Invalidate(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestQuotaService_Evaluate(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	resetAt := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	account := &models.Account{UID: "uid-1", Username: "alice", Email: "alice@example.com"}
	proAccount := &models.Account{UID: "uid-2", Username: "bob", Email: "bob@example.com", IsPro: true}

	tests := []struct {
		name              string
		username          string
		setupMocks        func(*MockRepository)
		expectedAllowed   bool
		expectedUnlimited bool
		expectedRemaining int
		expectedError     bool
	}{
		{
			name:     "fresh window - allowed with full quota",
			username: "alice",
			setupMocks: func(r *MockRepository) {
				r.On("GetAccountByUsername", mock.Anything, "alice").Return(account, nil).Once()
				r.On("UpsertUsageWindow", mock.Anything, "uid-1", now, resetAt).
					Return(&models.UsageWindow{AccountUID: "uid-1", Count: 0, ResetAt: resetAt}, nil).Once()
			},
			expectedAllowed:   true,
			expectedRemaining: 5,
		},
		{
			name:     "one generation left",
			username: "alice",
			setupMocks: func(r *MockRepository) {
				r.On("GetAccountByUsername", mock.Anything, "alice").Return(account, nil).Once()
				r.On("UpsertUsageWindow", mock.Anything, "uid-1", now, resetAt).
					Return(&models.UsageWindow{AccountUID: "uid-1", Count: 4, ResetAt: resetAt}, nil).Once()
			},
			expectedAllowed:   true,
			expectedRemaining: 1,
		},
		{
			name:     "limit reached - denied",
			username: "alice",
			setupMocks: func(r *MockRepository) {
				r.On("GetAccountByUsername", mock.Anything, "alice").Return(account, nil).Once()
				r.On("UpsertUsageWindow", mock.Anything, "uid-1", now, resetAt).
					Return(&models.UsageWindow{AccountUID: "uid-1", Count: 5, ResetAt: resetAt}, nil).Once()
			},
			expectedAllowed:   false,
			expectedRemaining: 0,
		},
		{
			name:     "count above limit - remaining clamped to zero",
			username: "alice",
			setupMocks: func(r *MockRepository) {
				r.On("GetAccountByUsername", mock.Anything, "alice").Return(account, nil).Once()
				r.On("UpsertUsageWindow", mock.Anything, "uid-1", now, resetAt).
					Return(&models.UsageWindow{AccountUID: "uid-1", Count: 7, ResetAt: resetAt}, nil).Once()
			},
			expectedAllowed:   false,
			expectedRemaining: 0,
		},
		{
			name:     "pro account - always allowed regardless of count",
			username: "bob",
			setupMocks: func(r *MockRepository) {
				r.On("GetAccountByUsername", mock.Anything, "bob").Return(proAccount, nil).Once()
				r.On("UpsertUsageWindow", mock.Anything, "uid-2", now, resetAt).
					Return(&models.UsageWindow{AccountUID: "uid-2", Count: 100, ResetAt: resetAt}, nil).Once()
			},
			expectedAllowed:   true,
			expectedUnlimited: true,
			expectedRemaining: 0,
		},
		{
			name:     "account lookup fails",
			username: "ghost",
			setupMocks: func(r *MockRepository) {
				r.On("GetAccountByUsername", mock.Anything, "ghost").Return(nil, errors.New("db error")).Once()
			},
			expectedError: true,
		},
		{
			name:     "window upsert fails",
			username: "alice",
			setupMocks: func(r *MockRepository) {
				r.On("GetAccountByUsername", mock.Anything, "alice").Return(account, nil).Once()
				r.On("UpsertUsageWindow", mock.Anything, "uid-1", now, resetAt).
					Return(nil, errors.New("db error")).Once()
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			service := NewQuotaService(repo, new(MockCache), newNoopLogger(), 5)

			tt.setupMocks(repo)

			decision, err := service.Evaluate(context.Background(), tt.username, now)

			if tt.expectedError {
				assert.Error(t, err)
				assert.Nil(t, decision)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedAllowed, decision.Allowed)
				assert.Equal(t, tt.expectedUnlimited, decision.Unlimited)
				assert.Equal(t, tt.expectedRemaining, decision.Remaining)
				assert.Equal(t, resetAt, decision.Window.ResetAt)
			}

			repo.AssertExpectations(t)
		})
	}
}

func TestQuotaService_Evaluate_RepeatedCallSameArguments(t *testing.T) {
	// Повторная проверка без генераций между вызовами не меняет окно:
	// сервис оба раза передает хранилищу одинаковые now и resetAt.
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	resetAt := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	account := &models.Account{UID: "uid-1", Username: "alice"}
	window := &models.UsageWindow{AccountUID: "uid-1", Count: 2, ResetAt: resetAt}

	repo := new(MockRepository)
	repo.On("GetAccountByUsername", mock.Anything, "alice").Return(account, nil).Twice()
	repo.On("UpsertUsageWindow", mock.Anything, "uid-1", now, resetAt).Return(window, nil).Twice()

	service := NewQuotaService(repo, new(MockCache), newNoopLogger(), 5)

	first, err := service.Evaluate(context.Background(), "alice", now)
	assert.NoError(t, err)
	second, err := service.Evaluate(context.Background(), "alice", now)
	assert.NoError(t, err)

	assert.Equal(t, first, second)
	repo.AssertExpectations(t)
}

func TestQuotaService_Summary(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	resetAt := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	account := &models.Account{UID: "uid-1", Username: "alice"}

	t.Run("cache miss - builds summary and caches it", func(t *testing.T) {
		repo := new(MockRepository)
		cache := new(MockCache)
		repo.On("GetAccountByUsername", mock.Anything, "alice").Return(account, nil).Once()
		repo.On("UpsertUsageWindow", mock.Anything, "uid-1", now, resetAt).
			Return(&models.UsageWindow{AccountUID: "uid-1", Count: 3, ResetAt: resetAt}, nil).Once()
		repo.On("CountThreads", mock.Anything, "uid-1").Return(12, nil).Once()
		cache.On("Get", UsageCacheKey("alice"), mock.Anything).Return(false, nil).Once()
		cache.On("Set", UsageCacheKey("alice"), mock.Anything, usageCacheTTL).Return(nil).Once()

		service := NewQuotaService(repo, cache, newNoopLogger(), 5)

		summary, err := service.Summary(context.Background(), "alice", now)

		assert.NoError(t, err)
		assert.Equal(t, "alice", summary.Username)
		assert.Equal(t, 3, summary.Count)
		assert.Equal(t, 2, summary.Remaining)
		assert.False(t, summary.Unlimited)
		assert.Equal(t, 12, summary.TotalThreads)
		assert.Equal(t, resetAt, *summary.ResetAt)

		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("cache hit - repository untouched", func(t *testing.T) {
		repo := new(MockRepository)
		cache := new(MockCache)
		cache.On("Get", UsageCacheKey("alice"), mock.Anything).Return(true, nil).Once()

		service := NewQuotaService(repo, cache, newNoopLogger(), 5)

		summary, err := service.Summary(context.Background(), "alice", now)

		assert.NoError(t, err)
		assert.NotNil(t, summary)
		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("cache set failure does not fail the summary", func(t *testing.T) {
		repo := new(MockRepository)
		cache := new(MockCache)
		repo.On("GetAccountByUsername", mock.Anything, "alice").Return(account, nil).Once()
		repo.On("UpsertUsageWindow", mock.Anything, "uid-1", now, resetAt).
			Return(&models.UsageWindow{AccountUID: "uid-1", Count: 0, ResetAt: resetAt}, nil).Once()
		repo.On("CountThreads", mock.Anything, "uid-1").Return(0, nil).Once()
		cache.On("Get", UsageCacheKey("alice"), mock.Anything).Return(false, nil).Once()
		cache.On("Set", UsageCacheKey("alice"), mock.Anything, usageCacheTTL).Return(errors.New("redis down")).Once()

		service := NewQuotaService(repo, cache, newNoopLogger(), 5)

		summary, err := service.Summary(context.Background(), "alice", now)

		assert.NoError(t, err)
		assert.Equal(t, 5, summary.Remaining)
	})
}

func TestQuotaService_InvalidateSummary(t *testing.T) {
	cache := new(MockCache)
	cache.On("Invalidate", UsageCacheKey("alice")).Return(nil).Once()

	service := NewQuotaService(new(MockRepository), cache, newNoopLogger(), 5)
	service.InvalidateSummary("alice")

	cache.AssertExpectations(t)
}
