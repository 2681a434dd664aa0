// Package services содержит логику бизнес-уровня для работы с аккаунтами и аутентификацией.
package services

import (
	"context"
	"errors"

	"github.com/magabrotheeeer/thread-forge/internal/lib/jwt"
	"github.com/magabrotheeeer/thread-forge/internal/lib/password"
	"github.com/magabrotheeeer/thread-forge/internal/models"
)

// ErrInvalidCredentials возвращается при неверной паре логин/пароль.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AccountRepository описывает контракт для работы с аккаунтами в базе данных.
type AccountRepository interface {
	// RegisterAccount сохраняет новый аккаунт и возвращает его UID.
	RegisterAccount(ctx context.Context, account models.Account) (string, error)

	// GetAccountByUsername возвращает аккаунт по имени или ошибку, если не найден.
	GetAccountByUsername(ctx context.Context, username string) (*models.Account, error)
}

// AuthService отвечает за регистрацию, авторизацию и валидацию JWT.
type AuthService struct {
	accounts AccountRepository
	jwtMaker jwt.Maker
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(accounts AccountRepository, jwtMaker jwt.Maker) *AuthService {
	return &AuthService{
		accounts: accounts,
		jwtMaker: jwtMaker,
	}
}

// Register создает новый аккаунт с хэшированием пароля.
func (s *AuthService) Register(ctx context.Context, email, username, rawPassword string) (string, error) {
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return "", err
	}
	account := models.Account{
		Email:        email,
		Username:     username,
		PasswordHash: hashed,
	}
	return s.accounts.RegisterAccount(ctx, account)
}

// Login проверяет пароль аккаунта и генерирует JWT.
func (s *AuthService) Login(ctx context.Context, username, rawPassword string) (string, error) {
	account, err := s.accounts.GetAccountByUsername(ctx, username)
	if err != nil {
		return "", ErrInvalidCredentials
	}
	if err := password.CompareHash(account.PasswordHash, rawPassword); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.jwtMaker.GenerateToken(account.Username, account.UID)
}

// ValidateToken проверяет JWT и возвращает claims с данными аккаунта.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*jwt.CustomClaims, error) {
	return s.jwtMaker.ParseToken(token)
}
