package register

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/thread-forge/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Register(ctx context.Context, email, username, rawPassword string) (string, error) {
	args := m.Called(ctx, email, username, rawPassword)
	return args.String(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestRegisterHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		requestBody    interface{}
		mockUID        string
		mockErr        error
		wantStatusCode int
		wantStatus     string
	}{
		{
			name: "valid registration",
			requestBody: models.DummyRegister{
				Email:    "alice@example.com",
				Username: "alice",
				Password: "password123",
			},
			mockUID:        "uid-1",
			wantStatusCode: http.StatusOK,
			wantStatus:     "OK",
		},
		{
			name:           "invalid json body",
			requestBody:    "not a json",
			wantStatusCode: http.StatusBadRequest,
			wantStatus:     "Error",
		},
		{
			name: "validation error - bad email",
			requestBody: models.DummyRegister{
				Email:    "not-an-email",
				Username: "alice",
				Password: "password123",
			},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantStatus:     "Error",
		},
		{
			name: "validation error - short password",
			requestBody: models.DummyRegister{
				Email:    "alice@example.com",
				Username: "alice",
				Password: "short",
			},
			wantStatusCode: http.StatusUnprocessableEntity,
			wantStatus:     "Error",
		},
		{
			name: "service error",
			requestBody: models.DummyRegister{
				Email:    "alice@example.com",
				Username: "alice",
				Password: "password123",
			},
			mockErr:        errors.New("duplicate username"),
			wantStatusCode: http.StatusInternalServerError,
			wantStatus:     "Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serviceMock := new(ServiceMock)
			if tt.mockUID != "" || tt.mockErr != nil {
				req := tt.requestBody.(models.DummyRegister)
				serviceMock.On("Register", mock.Anything, req.Email, req.Username, req.Password).
					Return(tt.mockUID, tt.mockErr).Once()
			}

			handler := New(newNoopLogger(), serviceMock)

			var bodyBytes []byte
			switch v := tt.requestBody.(type) {
			case string:
				bodyBytes = []byte(v)
			default:
				var err error
				bodyBytes, err = json.Marshal(tt.requestBody)
				if err != nil {
					t.Fatal(err)
				}
			}

			req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(bodyBytes))
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "reqid123"))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var got map[string]any
			assert.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			assert.Equal(t, tt.wantStatus, got["status"])

			if tt.wantStatusCode == http.StatusOK {
				data, ok := got["data"].(map[string]any)
				assert.True(t, ok)
				assert.Equal(t, tt.mockUID, data["uid"])
			}

			serviceMock.AssertExpectations(t)
		})
	}
}
