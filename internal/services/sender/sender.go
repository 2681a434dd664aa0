// Package services содержит логику отправки почтовых уведомлений
// об изменениях статуса подписки.
package services

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	libsmtp "github.com/magabrotheeeer/thread-forge/internal/lib/smtp"
	"github.com/magabrotheeeer/thread-forge/internal/lib/sl"
	"github.com/magabrotheeeer/thread-forge/internal/models"
)

// SenderService отправляет письма по сообщениям из очереди уведомлений.
type SenderService struct {
	transport libsmtp.TransportInterface
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(log *slog.Logger, transport libsmtp.TransportInterface) *SenderService {
	return &SenderService{
		transport: transport,
		log:       log,
	}
}

// SendEntitlementChanged отправляет письмо об изменении статуса подписки.
// body — JSON-сообщение models.NotificationMessage из очереди.
func (s *SenderService) SendEntitlementChanged(body []byte) error {
	var message models.NotificationMessage
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal notification body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	to := []string{message.Email}
	var subject, bodyText string
	if message.IsPro {
		subject = "Thread Forge Pro activated"
		bodyText = fmt.Sprintf("Hi %s!\n\nYour Pro subscription is now active: unlimited thread generations.\n\nThanks for supporting Thread Forge.",
			message.Username)
	} else {
		subject = "Thread Forge Pro cancelled"
		bodyText = fmt.Sprintf("Hi %s!\n\nYour Pro subscription has ended. Your account is back on the free tier.\n\nYou can re-subscribe any time from the settings page.",
			message.Username)
	}

	return s.sendEmail(to, subject, bodyText)
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer client.Close()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("failed to set MAIL FROM", "from", s.transport.GetSMTPUser(), "error", sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", "recipient", addr, "error", sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}

	_, err = wc.Write([]byte(msg))
	if err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", "to", to)
	return nil
}
