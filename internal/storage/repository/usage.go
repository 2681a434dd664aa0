package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/thread-forge/internal/models"
)

// ErrLimitReached сигнализирует, что условный инкремент не прошел:
// лимит окна уже выбран конкурентным запросом.
var ErrLimitReached = errors.New("usage limit reached")

// GetUsageWindow возвращает окно использования аккаунта.
// Возвращает sql.ErrNoRows (обернутую), если окно еще не создавалось.
func (s *Storage) GetUsageWindow(ctx context.Context, accountUID string) (*models.UsageWindow, error) {
	const op = "storage.GetUsageWindow"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT account_uid, count, reset_at
			  FROM usage_windows
			  WHERE account_uid = $1`
	var w models.UsageWindow
	row := s.DB.QueryRowContext(ctx, query, accountUID)
	if err := row.Scan(&w.AccountUID, &w.Count, &w.ResetAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &w, nil
}

// UpsertUsageWindow атомарно создает окно использования либо сбрасывает
// истекшее: count становится 0, reset_at — resetAt. Сброс применяется
// только если текущее окно истекло к моменту now, поэтому два
// конкурентных вызова никогда не применят сброс дважды.
//
// Возвращает итоговое окно. Если вставка/сброс не прошли (окно уже
// актуально или сброс выиграл конкурент), возвращает текущее окно из базы.
func (s *Storage) UpsertUsageWindow(ctx context.Context, accountUID string, now, resetAt time.Time) (*models.UsageWindow, error) {
	const op = "storage.UpsertUsageWindow"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO usage_windows (account_uid, count, reset_at)
			  VALUES ($1, 0, $2)
			  ON CONFLICT (account_uid) DO UPDATE
			  SET count = 0, reset_at = EXCLUDED.reset_at
			  WHERE usage_windows.reset_at <= $3
			  RETURNING account_uid, count, reset_at`
	var w models.UsageWindow
	row := s.DB.QueryRowContext(ctx, query, accountUID, resetAt, now)
	err := row.Scan(&w.AccountUID, &w.Count, &w.ResetAt)
	if errors.Is(err, sql.ErrNoRows) {
		// Окно существует и еще не истекло: читаем его как есть.
		return s.GetUsageWindow(ctx, accountUID)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &w, nil
}

// ConsumeGeneration атомарно расходует одну генерацию: count
// увеличивается на 1 относительно текущего значения в базе, но только
// пока count < limit либо unlimited == true. Возвращает новое значение
// счетчика либо ErrLimitReached, если лимит уже выбран.
func (s *Storage) ConsumeGeneration(ctx context.Context, accountUID string, limit int, unlimited bool) (int, error) {
	const op = "storage.ConsumeGeneration"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE usage_windows
			  SET count = count + 1
			  WHERE account_uid = $1 AND (count < $2 OR $3)
			  RETURNING count`
	var newCount int
	row := s.DB.QueryRowContext(ctx, query, accountUID, limit, unlimited)
	err := row.Scan(&newCount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s: %w", op, ErrLimitReached)
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newCount, nil
}
