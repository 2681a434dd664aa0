package services

import (
	"errors"
	"fmt"
	"time"
)

// Ошибки генерации, различаемые обработчиком при выборе HTTP-статуса.
var (
	// ErrInvalidInput входной текст пуст после обрезки пробелов.
	ErrInvalidInput = errors.New("input is required")
	// ErrProviderUnavailable провайдер генерации недоступен или вернул пустой ответ.
	// Повтор не выполняется: вызывающий может повторить запрос целиком,
	// квота на этом пути не расходуется.
	ErrProviderUnavailable = errors.New("generation provider unavailable")
	// ErrPersistenceFailed не удалось сохранить результат или учесть генерацию.
	// Отличается от ErrProviderUnavailable: вызов провайдера уже состоялся.
	ErrPersistenceFailed = errors.New("failed to persist generation")
)

// QuotaExceededError возвращается при исчерпанном месячном лимите.
// Несет время сброса окна для сообщения пользователю.
type QuotaExceededError struct {
	ResetAt time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("free tier limit reached, resets at %s", e.ResetAt.Format(time.RFC3339))
}
