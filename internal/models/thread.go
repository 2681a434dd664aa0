package models

import "time"

// ThreadRecord представляет одну пару вход/выход генерации.
// Запись создается ровно один раз и далее не изменяется.
type ThreadRecord struct {
	ID         int       `json:"id"`
	AccountUID string    `json:"-"`
	Input      string    `json:"input"`
	Output     string    `json:"output"`
	CreatedAt  time.Time `json:"created_at"`
}

// DummyGenerate используется для приёма данных из JSON-запроса генерации.
type DummyGenerate struct {
	Input string `json:"input" validate:"required"`
}

// GenerationResult результат успешной генерации треда.
type GenerationResult struct {
	Tweets    []string // Непустые строки ответа провайдера по порядку
	Remaining int      // Остаток генераций в текущем окне, 0 для Pro
	Unlimited bool     // true для Pro-аккаунтов
}
