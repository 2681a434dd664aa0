package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/thread-forge/internal/models"
)

// CreateThread вставляет новую запись треда и возвращает её ID.
// Запись хранит исходные заметки и сырой (неразрезанный) ответ провайдера.
func (s *Storage) CreateThread(ctx context.Context, record models.ThreadRecord) (int, error) {
	const op = "storage.CreateThread"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO threads (account_uid, input, output)
			  VALUES ($1, $2, $3)
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		record.AccountUID, record.Input, record.Output).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListThreads возвращает треды аккаунта, новые первыми, с пагинацией.
func (s *Storage) ListThreads(ctx context.Context, accountUID string, limit, offset int) ([]*models.ThreadRecord, error) {
	const op = "storage.ListThreads"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, account_uid, input, output, created_at
			  FROM threads
			  WHERE account_uid = $1
			  ORDER BY created_at DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, accountUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.ThreadRecord
	for rows.Next() {
		var item models.ThreadRecord
		if err := rows.Scan(&item.ID, &item.AccountUID, &item.Input,
			&item.Output, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CountThreads возвращает общее число тредов аккаунта за все время.
func (s *Storage) CountThreads(ctx context.Context, accountUID string) (int, error) {
	const op = "storage.CountThreads"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*) FROM threads WHERE account_uid = $1`
	var count int
	if err := s.DB.QueryRowContext(ctx, query, accountUID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}
