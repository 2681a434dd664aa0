package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/thread-forge/internal/http/middlewarectx"
	"github.com/magabrotheeeer/thread-forge/internal/models"
	genservice "github.com/magabrotheeeer/thread-forge/internal/services/generation"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Generate(ctx context.Context, username, rawInput string) (*models.GenerationResult, error) {
	args := m.Called(ctx, username, rawInput)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GenerationResult), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newRequest(body []byte, username string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/threads", bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123")
	if username != "" {
		ctx = context.WithValue(ctx, middlewarectx.User, username)
	}
	return req.WithContext(ctx)
}

func TestGenerateHandler_Success(t *testing.T) {
	serviceMock := new(ServiceMock)
	serviceMock.On("Generate", mock.Anything, "alice", "my dev notes").
		Return(&models.GenerationResult{
			Tweets:    []string{"1/ first", "2/ second"},
			Remaining: 3,
		}, nil).Once()

	handler := New(newNoopLogger(), serviceMock)

	body, _ := json.Marshal(models.DummyGenerate{Input: "my dev notes"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newRequest(body, "alice"))

	assert.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&got))

	thread, ok := got["thread"].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, []any{"1/ first", "2/ second"}, thread["tweets"])
	assert.Equal(t, float64(3), got["remaining"])

	serviceMock.AssertExpectations(t)
}

func TestGenerateHandler_ProUnlimited(t *testing.T) {
	serviceMock := new(ServiceMock)
	serviceMock.On("Generate", mock.Anything, "bob", "notes").
		Return(&models.GenerationResult{
			Tweets:    []string{"1/ tweet"},
			Unlimited: true,
		}, nil).Once()

	handler := New(newNoopLogger(), serviceMock)

	body, _ := json.Marshal(models.DummyGenerate{Input: "notes"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newRequest(body, "bob"))

	assert.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "unlimited", got["remaining"])
}

func TestGenerateHandler_Errors(t *testing.T) {
	resetAt := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		body           []byte
		username       string
		serviceError   error
		wantStatusCode int
	}{
		{
			name:           "invalid json body",
			body:           []byte("not a json"),
			username:       "alice",
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "missing input field",
			body:           []byte(`{}`),
			username:       "alice",
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "no username in context",
			body:           mustBody(t, "notes"),
			username:       "",
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "whitespace input rejected by service",
			body:           mustBody(t, "   "),
			username:       "alice",
			serviceError:   genservice.ErrInvalidInput,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "quota exceeded",
			body:           mustBody(t, "notes"),
			username:       "alice",
			serviceError:   &genservice.QuotaExceededError{ResetAt: resetAt},
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:           "provider unavailable",
			body:           mustBody(t, "notes"),
			username:       "alice",
			serviceError:   genservice.ErrProviderUnavailable,
			wantStatusCode: http.StatusInternalServerError,
		},
		{
			name:           "persistence failed",
			body:           mustBody(t, "notes"),
			username:       "alice",
			serviceError:   genservice.ErrPersistenceFailed,
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serviceMock := new(ServiceMock)
			if tt.serviceError != nil {
				serviceMock.On("Generate", mock.Anything, tt.username, mock.Anything).
					Return(nil, tt.serviceError).Once()
			}

			handler := New(newNoopLogger(), serviceMock)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, newRequest(tt.body, tt.username))

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			if tt.serviceError != nil {
				serviceMock.AssertExpectations(t)
			}
		})
	}
}

func TestGenerateHandler_QuotaExceededMessageCarriesResetTime(t *testing.T) {
	resetAt := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	serviceMock := new(ServiceMock)
	serviceMock.On("Generate", mock.Anything, "alice", mock.Anything).
		Return(nil, &genservice.QuotaExceededError{ResetAt: resetAt}).Once()

	handler := New(newNoopLogger(), serviceMock)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newRequest(mustBody(t, "notes"), "alice"))

	assert.Equal(t, http.StatusForbidden, rec.Code)

	var got map[string]any
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Contains(t, got["error"], resetAt.Format(time.RFC3339))
}

func mustBody(t *testing.T, input string) []byte {
	t.Helper()
	body, err := json.Marshal(models.DummyGenerate{Input: input})
	if err != nil {
		t.Fatal(err)
	}
	return body
}
