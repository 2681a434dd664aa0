package models

import "time"

// UsageWindow представляет счетчик генераций аккаунта за текущий
// календарный месяц. На аккаунт существует не более одного окна.
type UsageWindow struct {
	AccountUID string    // Аккаунт-владелец окна
	Count      int       // Израсходовано генераций в текущем окне
	ResetAt    time.Time // Первое мгновение следующего календарного месяца
}

// UsageSummary агрегирует данные об использовании для страницы настроек.
type UsageSummary struct {
	Username     string     `json:"username"`
	IsPro        bool       `json:"is_pro"`
	Count        int        `json:"count"`
	Remaining    int        `json:"remaining"`
	Unlimited    bool       `json:"unlimited"`
	ResetAt      *time.Time `json:"reset_at,omitempty"`
	TotalThreads int        `json:"total_threads"`
}
