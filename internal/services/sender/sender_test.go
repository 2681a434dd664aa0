package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/thread-forge/internal/lib/smtp"
	"github.com/magabrotheeeer/thread-forge/internal/models"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Connect() (smtp.Client, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(smtp.Client), args.Error(1)
}

func (m *MockTransport) GetSMTPUser() string {
	args := m.Called()
	return args.String(0)
}

type MockSMTPClient struct {
	mock.Mock
}

func (m *MockSMTPClient) Mail(from string) error {
	args := m.Called(from)
	return args.Error(0)
}

func (m *MockSMTPClient) Rcpt(to string) error {
	args := m.Called(to)
	return args.Error(0)
}

func (m *MockSMTPClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.WriteCloser), args.Error(1)
}

func (m *MockSMTPClient) Quit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockSMTPClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

type nopWriteCloser struct {
	*bytes.Buffer
}

func (nopWriteCloser) Close() error { return nil }

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func notificationBody(t *testing.T, isPro bool) []byte {
	t.Helper()
	body, err := json.Marshal(models.NotificationMessage{
		Email:    "alice@example.com",
		Username: "alice",
		Event:    models.SubscriptionCreated,
		IsPro:    isPro,
	})
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func TestSenderService_SendEntitlementChanged(t *testing.T) {
	tests := []struct {
		name         string
		isPro        bool
		wantContains string
	}{
		{name: "pro activated email", isPro: true, wantContains: "Pro activated"},
		{name: "pro cancelled email", isPro: false, wantContains: "Pro cancelled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var written bytes.Buffer

			client := new(MockSMTPClient)
			client.On("Mail", "sender@threadforge.local").Return(nil).Once()
			client.On("Rcpt", "alice@example.com").Return(nil).Once()
			client.On("Data").Return(nopWriteCloser{&written}, nil).Once()
			client.On("Quit").Return(nil).Once()
			client.On("Close").Return(nil).Once()

			transport := new(MockTransport)
			transport.On("Connect").Return(client, nil).Once()
			transport.On("GetSMTPUser").Return("sender@threadforge.local")

			service := NewSenderService(newNoopLogger(), transport)

			err := service.SendEntitlementChanged(notificationBody(t, tt.isPro))

			assert.NoError(t, err)
			assert.Contains(t, written.String(), "To: alice@example.com")
			assert.Contains(t, written.String(), tt.wantContains)
			assert.Contains(t, written.String(), "alice")

			client.AssertExpectations(t)
			transport.AssertExpectations(t)
		})
	}
}

func TestSenderService_SendEntitlementChanged_BadBody(t *testing.T) {
	transport := new(MockTransport)
	service := NewSenderService(newNoopLogger(), transport)

	err := service.SendEntitlementChanged([]byte("{not json"))
	assert.Error(t, err)
	transport.AssertNotCalled(t, "Connect")
}

func TestSenderService_SendEntitlementChanged_ConnectFailure(t *testing.T) {
	transport := new(MockTransport)
	transport.On("GetSMTPUser").Return("sender@threadforge.local")
	transport.On("Connect").Return(nil, errors.New("dial tcp: refused")).Once()

	service := NewSenderService(newNoopLogger(), transport)

	err := service.SendEntitlementChanged(notificationBody(t, true))
	assert.Error(t, err)
}
