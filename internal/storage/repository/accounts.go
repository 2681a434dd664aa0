package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/thread-forge/internal/models"
)

// RegisterAccount сохраняет новый аккаунт в базу данных и возвращает его UID.
func (s *Storage) RegisterAccount(ctx context.Context, account models.Account) (string, error) {
	const op = "storage.RegisterAccount"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newUID string
	query := `INSERT INTO accounts (email, username, password_hash)
			  VALUES ($1, $2, $3)
			  RETURNING uid;`
	if err := s.DB.QueryRowContext(ctx, query,
		account.Email, account.Username, account.PasswordHash).Scan(&newUID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}

// GetAccountByUsername возвращает аккаунт по его username.
func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	const op = "storage.GetAccountByUsername"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, email, username, password_hash, is_pro, stripe_customer_id
			  FROM accounts
			  WHERE username = $1`
	return s.scanAccount(s.DB.QueryRowContext(ctx, query, username), op)
}

// FindAccountByStripeCustomerID возвращает аккаунт по идентификатору
// покупателя у платежного провайдера.
func (s *Storage) FindAccountByStripeCustomerID(ctx context.Context, customerID string) (*models.Account, error) {
	const op = "storage.FindAccountByStripeCustomerID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, email, username, password_hash, is_pro, stripe_customer_id
			  FROM accounts
			  WHERE stripe_customer_id = $1`
	return s.scanAccount(s.DB.QueryRowContext(ctx, query, customerID), op)
}

// FindAccountByEmail возвращает аккаунт по электронной почте.
func (s *Storage) FindAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	const op = "storage.FindAccountByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, email, username, password_hash, is_pro, stripe_customer_id
			  FROM accounts
			  WHERE email = $1`
	return s.scanAccount(s.DB.QueryRowContext(ctx, query, email), op)
}

// UpdateEntitlement выставляет признак Pro и привязывает идентификатор
// покупателя к аккаунту. Повторное применение того же события дает то же
// конечное состояние. Возвращает количество изменённых строк.
func (s *Storage) UpdateEntitlement(ctx context.Context, accountUID string, isPro bool, stripeCustomerID string) (int, error) {
	const op = "storage.UpdateEntitlement"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE accounts
			  SET is_pro = $1, stripe_customer_id = $2
			  WHERE uid = $3`
	result, err := s.DB.ExecContext(ctx, query, isPro, stripeCustomerID, accountUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ClearEntitlementByCustomerID снимает признак Pro с аккаунта,
// привязанного к данному идентификатору покупателя.
// Возвращает 0 изменённых строк, если такого аккаунта нет.
func (s *Storage) ClearEntitlementByCustomerID(ctx context.Context, customerID string) (int, error) {
	const op = "storage.ClearEntitlementByCustomerID"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE accounts
			  SET is_pro = false
			  WHERE stripe_customer_id = $1`
	result, err := s.DB.ExecContext(ctx, query, customerID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

func (s *Storage) scanAccount(row *sql.Row, op string) (*models.Account, error) {
	a := &models.Account{}
	var stripeCustomerID sql.NullString
	if err := row.Scan(&a.UID, &a.Email, &a.Username, &a.PasswordHash,
		&a.IsPro, &stripeCustomerID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if stripeCustomerID.Valid {
		a.StripeCustomerID = &stripeCustomerID.String
	}
	return a, nil
}
